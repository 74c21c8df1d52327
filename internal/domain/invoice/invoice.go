package invoice

import (
	"context"
	"time"

	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is the aggregate root for a customer invoice. Balance and CBA are
// derived from the signed line item and payment amounts and are never stored;
// the in-memory Invoice is a disposable view reconstructed per operation.
type Invoice struct {
	ID string `json:"id"`
	// InvoiceNumber is the stable row ordinal assigned by the ledger store
	InvoiceNumber *int64     `json:"invoice_number,omitempty"`
	CustomerID    string     `json:"customer_id"`
	Currency      string     `json:"currency"`
	InvoiceDate   time.Time  `json:"invoice_date"`
	TargetDate    time.Time  `json:"target_date"`
	EnvironmentID string     `json:"environment_id"`

	LineItems []*InvoiceLineItem `json:"line_items,omitempty"`
	Payments  []*InvoicePayment  `json:"payments,omitempty"`

	types.BaseModel
}

// New creates an empty invoice for a customer. Line items and payments are
// attached afterwards via AddLineItems/AddPayments.
func New(ctx context.Context, customerID string, invoiceDate, targetDate time.Time, currency string) *Invoice {
	return &Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		CustomerID:    customerID,
		Currency:      currency,
		InvoiceDate:   invoiceDate,
		TargetDate:    targetDate,
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

// Balance is the sum of all line item amounts minus the sum of all payment
// amounts. Payments are signed: a positive attempt reduces the balance, a
// negative refund or chargeback reopens it.
func (i *Invoice) Balance() decimal.Decimal {
	balance := decimal.Zero
	for _, item := range i.LineItems {
		balance = balance.Add(item.Amount)
	}
	for _, p := range i.Payments {
		balance = balance.Sub(p.Amount)
	}
	return balance
}

// CBAAmount is the sum of this invoice's CREDIT_BALANCE_ADJ line item
// amounts. Stored negative values reduce the account's available credit.
func (i *Invoice) CBAAmount() decimal.Decimal {
	cba := decimal.Zero
	for _, item := range i.LineItems {
		if item.Type == types.InvoiceLineItemTypeCreditBalanceAdj {
			cba = cba.Add(item.Amount)
		}
	}
	return cba
}

// AddLineItems attaches line items, stamping the owning invoice id
func (i *Invoice) AddLineItems(items ...*InvoiceLineItem) {
	for _, item := range items {
		item.InvoiceID = i.ID
		i.LineItems = append(i.LineItems, item)
	}
}

// AddPayments attaches payments, stamping the owning invoice id
func (i *Invoice) AddPayments(payments ...*InvoicePayment) {
	for _, p := range payments {
		p.InvoiceID = i.ID
		i.Payments = append(i.Payments, p)
	}
}

// LineItemsOfType returns the line items of the given type in order
func (i *Invoice) LineItemsOfType(t types.InvoiceLineItemType) []*InvoiceLineItem {
	var out []*InvoiceLineItem
	for _, item := range i.LineItems {
		if item.Type == t {
			out = append(out, item)
		}
	}
	return out
}

// Validate validates the invoice and its attached children
func (i *Invoice) Validate() error {
	if i.CustomerID == "" {
		return ierr.NewError("invoice validation failed").
			WithHint("customer_id is required").
			Mark(ierr.ErrValidation)
	}
	if i.Currency == "" {
		return ierr.NewError("invoice validation failed").
			WithHint("currency is required").
			Mark(ierr.ErrValidation)
	}

	for _, item := range i.LineItems {
		if item.InvoiceID != i.ID {
			return ierr.NewError("invoice validation failed").
				WithHint("line item does not reference its owning invoice").
				WithReportableDetails(map[string]any{
					"invoice_id": i.ID,
					"item_id":    item.ID,
				}).
				Mark(ierr.ErrValidation)
		}
		if err := item.Validate(); err != nil {
			return err
		}
	}

	for _, p := range i.Payments {
		if p.InvoiceID != i.ID {
			return ierr.NewError("invoice validation failed").
				WithHint("payment does not reference its owning invoice").
				WithReportableDetails(map[string]any{
					"invoice_id": i.ID,
					"payment_id": p.ID,
				}).
				Mark(ierr.ErrValidation)
		}
		if err := p.Validate(); err != nil {
			return err
		}
	}

	return nil
}
