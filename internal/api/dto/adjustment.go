package dto

import (
	"time"

	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/shopspring/decimal"
)

// RefundRequest asks for a refund against an external payment. Amount is
// optional; when absent the full original payment amount is refunded.
// PaymentCookieID is the caller's idempotency key: retrying with the same
// cookie returns the refund created by the first call.
type RefundRequest struct {
	PaymentID       string           `json:"payment_id" validate:"required"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	AdjustInvoice   bool             `json:"adjust_invoice"`
	PaymentCookieID string           `json:"payment_cookie_id" validate:"required"`
}

func (r *RefundRequest) Validate() error {
	if r.PaymentID == "" {
		return ierr.NewError("payment_id is required").
			WithHint("Refunds must reference the external payment id").
			Mark(ierr.ErrValidation)
	}
	if r.PaymentCookieID == "" {
		return ierr.NewError("payment_cookie_id is required").
			WithHint("Refunds must carry an idempotency cookie").
			Mark(ierr.ErrValidation)
	}
	if r.Amount != nil && !r.Amount.IsPositive() {
		return ierr.NewError("amount must be positive").
			WithHint("Refund amounts are requested as positive values").
			WithReportableDetails(map[string]any{
				"amount": r.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ChargebackRequest posts a chargeback against an invoice payment row.
// Amount is optional; when absent the remaining amount paid is charged back.
// Amount-bound violations surface from the service, not from Validate, so
// the derived default flows through the same checks as an explicit amount.
type ChargebackRequest struct {
	InvoicePaymentID string           `json:"invoice_payment_id" validate:"required"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
}

func (r *ChargebackRequest) Validate() error {
	if r.InvoicePaymentID == "" {
		return ierr.NewError("invoice_payment_id is required").
			WithHint("Chargebacks must reference the invoice payment").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CreditRequest issues an account credit. When InvoiceID is absent a new
// empty invoice dated at EffectiveDate is created to carry the credit.
type CreditRequest struct {
	CustomerID    string          `json:"customer_id" validate:"required"`
	InvoiceID     *string         `json:"invoice_id,omitempty"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	EffectiveDate time.Time       `json:"effective_date"`
	Currency      string          `json:"currency" validate:"required"`
}

func (r *CreditRequest) Validate() error {
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
	if !r.Amount.IsPositive() {
		return ierr.NewError("amount must be positive").
			WithHint("Credits are requested as positive values").
			WithReportableDetails(map[string]any{
				"amount": r.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
