package invoice

import (
	"context"
	"time"

	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InvoicePayment is a signed payment row on an invoice: positive for money
// received, negative for refunds and chargebacks.
type InvoicePayment struct {
	ID          string                   `json:"id"`
	InvoiceID   string                   `json:"invoice_id"`
	PaymentType types.InvoicePaymentType `json:"payment_type"`
	// PaymentID is the external payment system's attempt id
	PaymentID   *string         `json:"payment_id,omitempty"`
	PaymentDate time.Time       `json:"payment_date"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	// PaymentCookieID is the client-supplied idempotency key for refunds
	PaymentCookieID *string `json:"payment_cookie_id,omitempty"`
	// LinkedPaymentID back-references the original payment a refund or
	// chargeback adjusts
	LinkedPaymentID *string `json:"linked_payment_id,omitempty"`
	EnvironmentID   string  `json:"environment_id"`

	types.BaseModel
}

// NewPaymentAttempt records money received against an invoice
func NewPaymentAttempt(ctx context.Context, invoiceID, paymentID string,
	amount decimal.Decimal, currency string, paymentDate time.Time) *InvoicePayment {
	return &InvoicePayment{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_PAYMENT),
		InvoiceID:     invoiceID,
		PaymentType:   types.InvoicePaymentTypeAttempt,
		PaymentID:     lo.ToPtr(paymentID),
		PaymentDate:   paymentDate,
		Amount:        amount,
		Currency:      currency,
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

// NewRefund builds a REFUND row against this payment. The positive requested
// amount is negated on the way in.
func (p *InvoicePayment) NewRefund(ctx context.Context, requestedPositiveAmount decimal.Decimal,
	paymentCookieID string, paymentDate time.Time) *InvoicePayment {
	return &InvoicePayment{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_PAYMENT),
		InvoiceID:       p.InvoiceID,
		PaymentType:     types.InvoicePaymentTypeRefund,
		PaymentID:       p.PaymentID,
		PaymentDate:     paymentDate,
		Amount:          requestedPositiveAmount.Neg(),
		Currency:        p.Currency,
		PaymentCookieID: lo.ToPtr(paymentCookieID),
		LinkedPaymentID: lo.ToPtr(p.ID),
		EnvironmentID:   types.GetEnvironmentID(ctx),
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
}

// NewChargeback builds a CHARGED_BACK row against this payment. Chargebacks
// carry no external payment id and no idempotency cookie.
func (p *InvoicePayment) NewChargeback(ctx context.Context, requestedPositiveAmount decimal.Decimal,
	paymentDate time.Time) *InvoicePayment {
	return &InvoicePayment{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_PAYMENT),
		InvoiceID:       p.InvoiceID,
		PaymentType:     types.InvoicePaymentTypeChargeback,
		PaymentDate:     paymentDate,
		Amount:          requestedPositiveAmount.Neg(),
		Currency:        p.Currency,
		LinkedPaymentID: lo.ToPtr(p.ID),
		EnvironmentID:   types.GetEnvironmentID(ctx),
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
}

// Validate validates the invoice payment
func (p *InvoicePayment) Validate() error {
	if p.InvoiceID == "" {
		return ierr.NewError("invoice payment validation failed").
			WithHint("invoice_id is required").
			Mark(ierr.ErrValidation)
	}
	if p.Currency == "" {
		return ierr.NewError("invoice payment validation failed").
			WithHint("currency is required").
			Mark(ierr.ErrValidation)
	}

	switch p.PaymentType {
	case types.InvoicePaymentTypeRefund, types.InvoicePaymentTypeChargeback:
		if p.Amount.IsPositive() {
			return ierr.NewError("invoice payment validation failed").
				WithHint("refund and chargeback amounts must not be positive").
				WithReportableDetails(map[string]any{
					"payment_type": string(p.PaymentType),
					"amount":       p.Amount.String(),
				}).
				Mark(ierr.ErrValidation)
		}
		if lo.FromPtr(p.LinkedPaymentID) == "" {
			return ierr.NewError("invoice payment validation failed").
				WithHint("refunds and chargebacks must link the original payment").
				Mark(ierr.ErrValidation)
		}
	case types.InvoicePaymentTypeAttempt:
		// attempts may legitimately be zero when recording a failed capture
	default:
		return ierr.NewError("invoice payment validation failed").
			WithHint("unknown payment type").
			WithReportableDetails(map[string]any{
				"payment_type": string(p.PaymentType),
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}
