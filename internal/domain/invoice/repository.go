package invoice

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository is the ledger store for invoices, line items and payments.
// Every method joins the transaction carried by ctx when one is open, so a
// service-level WithTx makes a multi-step mutation atomic.
//
// Fetch methods return the bare row; populating children is the caller's job
// (services never hand out an invoice without its line items and payments).
type Repository interface {
	// Invoice rows
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	// GetByNumber resolves an invoice by its stable row ordinal
	GetByNumber(ctx context.Context, number int64) (*Invoice, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*Invoice, error)
	// ListByCustomerAfter returns invoices whose target date falls on or
	// after the given local date
	ListByCustomerAfter(ctx context.Context, customerID string, from time.Time) ([]*Invoice, error)
	// ListBySubscription returns invoices carrying at least one line item of
	// the given subscription
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*Invoice, error)

	// Line items
	CreateLineItems(ctx context.Context, items []*InvoiceLineItem) error
	CreateLineItem(ctx context.Context, item *InvoiceLineItem) error
	GetLineItem(ctx context.Context, id string) (*InvoiceLineItem, error)
	GetLineItemsByInvoice(ctx context.Context, invoiceID string) ([]*InvoiceLineItem, error)

	// Payments
	CreatePayment(ctx context.Context, p *InvoicePayment) error
	GetPayment(ctx context.Context, id string) (*InvoicePayment, error)
	// GetPaymentByPaymentID resolves a payment row by the external payment
	// system's attempt id
	GetPaymentByPaymentID(ctx context.Context, paymentID string) (*InvoicePayment, error)
	// GetPaymentByCookie resolves a refund by its idempotency cookie
	GetPaymentByCookie(ctx context.Context, paymentCookieID string) (*InvoicePayment, error)
	GetPaymentsByInvoice(ctx context.Context, invoiceID string) ([]*InvoicePayment, error)

	// Derived lookups
	// GetRemainingAmountPaid is the original payment amount minus refunds
	// and chargebacks already posted against it; zero when the payment does
	// not exist
	GetRemainingAmountPaid(ctx context.Context, invoicePaymentID string) (decimal.Decimal, error)
	GetInvoiceIDByPaymentID(ctx context.Context, paymentID string) (string, error)
	GetCustomerIDByPaymentID(ctx context.Context, invoicePaymentID string) (string, error)
	ListChargebacksByCustomer(ctx context.Context, customerID string) ([]*InvoicePayment, error)
	ListChargebacksByPaymentID(ctx context.Context, paymentID string) ([]*InvoicePayment, error)
}
