package dto

import (
	"context"
	"time"

	"github.com/billcraft/billcraft/internal/domain/invoice"
	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest creates an invoice together with its line items and
// payments as one atomic unit. Supplying an ID makes the call idempotent:
// when an invoice with that id already exists the call is a no-op.
type CreateInvoiceRequest struct {
	ID          *string   `json:"id,omitempty"`
	CustomerID  string    `json:"customer_id" validate:"required"`
	Currency    string    `json:"currency" validate:"required"`
	InvoiceDate time.Time `json:"invoice_date"`
	TargetDate  time.Time `json:"target_date"`
	// BillCycleDayUTC drives the next-billing notification for recurring
	// items; falls back to the configured default when zero
	BillCycleDayUTC int `json:"bill_cycle_day_utc,omitempty"`

	LineItems []CreateInvoiceLineItemRequest `json:"line_items,omitempty"`
	Payments  []CreateInvoicePaymentRequest  `json:"payments,omitempty"`

	Metadata types.Metadata `json:"metadata,omitempty"`
}

type CreateInvoiceLineItemRequest struct {
	Type            types.InvoiceLineItemType `json:"type" validate:"required"`
	Amount          decimal.Decimal           `json:"amount"`
	SubscriptionID  *string                   `json:"subscription_id,omitempty"`
	PlanDisplayName *string                   `json:"plan_display_name,omitempty"`
	EffectiveDate   *time.Time                `json:"effective_date,omitempty"`
	PeriodStart     *time.Time                `json:"period_start,omitempty"`
	PeriodEnd       *time.Time                `json:"period_end,omitempty"`
}

type CreateInvoicePaymentRequest struct {
	PaymentID   string          `json:"payment_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate *time.Time      `json:"payment_date,omitempty"`
}

// Validate validates the create invoice request
func (r *CreateInvoiceRequest) Validate() error {
	if r.CustomerID == "" {
		return ierr.NewError("customer_id is required").
			WithHint("Customer ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.Currency == "" {
		return ierr.NewError("currency is required").
			WithHint("Currency is required").
			Mark(ierr.ErrValidation)
	}
	if r.BillCycleDayUTC < 0 || r.BillCycleDayUTC > 31 {
		return ierr.NewError("invalid bill cycle day").
			WithHint("Bill cycle day must be between 1 and 31").
			WithReportableDetails(map[string]any{
				"bill_cycle_day_utc": r.BillCycleDayUTC,
			}).
			Mark(ierr.ErrValidation)
	}
	for _, item := range r.LineItems {
		if item.Type == types.InvoiceLineItemTypeRecurring && lo.FromPtr(item.SubscriptionID) == "" {
			return ierr.NewError("subscription_id is required").
				WithHint("Recurring line items must reference a subscription").
				Mark(ierr.ErrValidation)
		}
	}
	for _, p := range r.Payments {
		if p.PaymentID == "" {
			return ierr.NewError("payment_id is required").
				WithHint("Invoice payments must carry the external payment id").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// ToInvoice converts the request to a domain invoice with children attached.
// defaultDate fills a missing invoice date; callers pass the injected clock's
// current time so conversion never reads the wall clock itself.
func (r *CreateInvoiceRequest) ToInvoice(ctx context.Context, defaultDate time.Time) *invoice.Invoice {
	invoiceDate := r.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = defaultDate
	}
	targetDate := r.TargetDate
	if targetDate.IsZero() {
		targetDate = invoiceDate
	}

	inv := invoice.New(ctx, r.CustomerID, invoiceDate, targetDate, r.Currency)
	if id := lo.FromPtr(r.ID); id != "" {
		inv.ID = id
	}

	for _, item := range r.LineItems {
		effective := lo.FromPtrOr(item.EffectiveDate, targetDate)
		var li *invoice.InvoiceLineItem
		switch item.Type {
		case types.InvoiceLineItemTypeRecurring:
			start := lo.FromPtrOr(item.PeriodStart, effective)
			li = invoice.NewRecurringLineItem(ctx, r.CustomerID, lo.FromPtr(item.SubscriptionID),
				lo.FromPtr(item.PlanDisplayName), item.Amount, r.Currency, start, item.PeriodEnd)
		case types.InvoiceLineItemTypeFixed:
			li = invoice.NewFixedLineItem(ctx, r.CustomerID, item.Amount, r.Currency, effective)
		case types.InvoiceLineItemTypeCreditAdj:
			li = invoice.NewCreditLineItem(ctx, inv.ID, r.CustomerID, item.Amount, r.Currency, effective)
		case types.InvoiceLineItemTypeCreditBalanceAdj:
			li = invoice.NewCreditBalanceLineItem(ctx, inv.ID, r.CustomerID, item.Amount, r.Currency, effective)
		case types.InvoiceLineItemTypeRefundAdj:
			li = invoice.NewRefundAdjLineItem(ctx, inv.ID, r.CustomerID, item.Amount, r.Currency, effective)
		}
		if li != nil {
			inv.AddLineItems(li)
		}
	}

	for _, p := range r.Payments {
		date := lo.FromPtrOr(p.PaymentDate, invoiceDate)
		inv.AddPayments(invoice.NewPaymentAttempt(ctx, inv.ID, p.PaymentID, p.Amount, r.Currency, date))
	}

	return inv
}

// InvoiceResponse is the invoice aggregate handed back to callers, children
// always populated and derived amounts precomputed
type InvoiceResponse struct {
	*invoice.Invoice
	Balance   decimal.Decimal `json:"balance"`
	CBAAmount decimal.Decimal `json:"cba_amount"`
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	if inv == nil {
		return nil
	}
	return &InvoiceResponse{
		Invoice:   inv,
		Balance:   inv.Balance(),
		CBAAmount: inv.CBAAmount(),
	}
}

// ListInvoicesResponse wraps a list of invoice aggregates
type ListInvoicesResponse struct {
	Items []*InvoiceResponse `json:"items"`
	Total int                `json:"total"`
}

func NewListInvoicesResponse(invoices []*invoice.Invoice) *ListInvoicesResponse {
	items := make([]*InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		items[i] = NewInvoiceResponse(inv)
	}
	return &ListInvoicesResponse{Items: items, Total: len(items)}
}

// PaymentRequest records an external payment attempt against an invoice
type PaymentRequest struct {
	InvoiceID   string          `json:"invoice_id" validate:"required"`
	PaymentID   string          `json:"payment_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate *time.Time      `json:"payment_date,omitempty"`
}

func (r *PaymentRequest) Validate() error {
	if r.InvoiceID == "" {
		return ierr.NewError("invoice_id is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.PaymentID == "" {
		return ierr.NewError("payment_id is required").
			WithHint("Payment ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.Amount.IsNegative() {
		return ierr.NewError("amount must be non-negative").
			WithHint("Payment attempts carry the amount received").
			Mark(ierr.ErrValidation)
	}
	return nil
}
