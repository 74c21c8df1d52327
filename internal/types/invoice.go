package types

// InvoiceLineItemType discriminates the line item variants on an invoice.
// Sign convention: charges are positive, credits and adjustments that reduce
// what is owed are negative.
type InvoiceLineItemType string

const (
	// InvoiceLineItemTypeRecurring is a subscription billing period charge
	InvoiceLineItemTypeRecurring InvoiceLineItemType = "RECURRING"
	// InvoiceLineItemTypeFixed is a one-off fixed charge
	InvoiceLineItemTypeFixed InvoiceLineItemType = "FIXED"
	// InvoiceLineItemTypeCreditAdj is an account credit applied to an invoice
	InvoiceLineItemTypeCreditAdj InvoiceLineItemType = "CREDIT_ADJ"
	// InvoiceLineItemTypeCreditBalanceAdj moves amounts in or out of the
	// account-level credit balance pool
	InvoiceLineItemTypeCreditBalanceAdj InvoiceLineItemType = "CREDIT_BALANCE_ADJ"
	// InvoiceLineItemTypeRefundAdj writes an invoice down after a refund
	InvoiceLineItemTypeRefundAdj InvoiceLineItemType = "REFUND_ADJ"
)

// InvoicePaymentType discriminates payment rows attached to an invoice
type InvoicePaymentType string

const (
	InvoicePaymentTypeAttempt    InvoicePaymentType = "ATTEMPT"
	InvoicePaymentTypeRefund     InvoicePaymentType = "REFUND"
	InvoicePaymentTypeChargeback InvoicePaymentType = "CHARGED_BACK"
)

// ControlTagWrittenOff marks an invoice as written off. The tag subsystem is
// a pass-through collaborator, the invoicing core only knows the tag name.
const ControlTagWrittenOff = "written_off"

// EntityTypeInvoice is the tag entity type for invoices
const EntityTypeInvoice = "invoice"

// TableName represents a database table name
type TableName string

const (
	TableNameInvoices        TableName = "invoices"
	TableNameInvoiceLineItem TableName = "invoice_line_items"
	TableNameInvoicePayments TableName = "invoice_payments"
	TableNameTags            TableName = "tags"
)
