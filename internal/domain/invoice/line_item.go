package invoice

import (
	"context"
	"time"

	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InvoiceLineItem represents a single line item in an invoice. Charges carry
// positive amounts; credits and adjustments carry negative amounts.
type InvoiceLineItem struct {
	ID            string                    `json:"id"`
	InvoiceID     string                    `json:"invoice_id"`
	CustomerID    string                    `json:"customer_id"`
	Type          types.InvoiceLineItemType `json:"type"`
	Amount        decimal.Decimal           `json:"amount"`
	Currency      string                    `json:"currency"`
	EffectiveDate time.Time                 `json:"effective_date"`

	// Recurring fields
	SubscriptionID  *string    `json:"subscription_id,omitempty"`
	PlanDisplayName *string    `json:"plan_display_name,omitempty"`
	PeriodStart     *time.Time `json:"period_start,omitempty"`
	PeriodEnd       *time.Time `json:"period_end,omitempty"`

	Metadata      types.Metadata `json:"metadata,omitempty"`
	EnvironmentID string         `json:"environment_id"`

	types.BaseModel
}

// NewRecurringLineItem creates a subscription billing-period charge
func NewRecurringLineItem(ctx context.Context, customerID, subscriptionID, planDisplayName string,
	amount decimal.Decimal, currency string, periodStart time.Time, periodEnd *time.Time) *InvoiceLineItem {
	return &InvoiceLineItem{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
		CustomerID:      customerID,
		Type:            types.InvoiceLineItemTypeRecurring,
		Amount:          amount,
		Currency:        currency,
		EffectiveDate:   periodStart,
		SubscriptionID:  lo.ToPtr(subscriptionID),
		PlanDisplayName: lo.ToPtr(planDisplayName),
		PeriodStart:     lo.ToPtr(periodStart),
		PeriodEnd:       periodEnd,
		EnvironmentID:   types.GetEnvironmentID(ctx),
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
}

// NewFixedLineItem creates a one-off fixed charge
func NewFixedLineItem(ctx context.Context, customerID string, amount decimal.Decimal,
	currency string, effectiveDate time.Time) *InvoiceLineItem {
	return &InvoiceLineItem{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
		CustomerID:    customerID,
		Type:          types.InvoiceLineItemTypeFixed,
		Amount:        amount,
		Currency:      currency,
		EffectiveDate: effectiveDate,
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

// NewCreditLineItem creates a CREDIT_ADJ item. The amount is expected to be
// negative (a credit reduces what is owed).
func NewCreditLineItem(ctx context.Context, invoiceID, customerID string, amount decimal.Decimal,
	currency string, effectiveDate time.Time) *InvoiceLineItem {
	return &InvoiceLineItem{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
		InvoiceID:     invoiceID,
		CustomerID:    customerID,
		Type:          types.InvoiceLineItemTypeCreditAdj,
		Amount:        amount,
		Currency:      currency,
		EffectiveDate: effectiveDate,
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

// NewCreditBalanceLineItem creates a CREDIT_BALANCE_ADJ item. Positive
// amounts grow the account credit pool, negative amounts consume it.
func NewCreditBalanceLineItem(ctx context.Context, invoiceID, customerID string, amount decimal.Decimal,
	currency string, effectiveDate time.Time) *InvoiceLineItem {
	return &InvoiceLineItem{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
		InvoiceID:     invoiceID,
		CustomerID:    customerID,
		Type:          types.InvoiceLineItemTypeCreditBalanceAdj,
		Amount:        amount,
		Currency:      currency,
		EffectiveDate: effectiveDate,
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

// NewRefundAdjLineItem creates a REFUND_ADJ item writing an invoice down
// after a refund. The amount is expected to be negative.
func NewRefundAdjLineItem(ctx context.Context, invoiceID, customerID string, amount decimal.Decimal,
	currency string, effectiveDate time.Time) *InvoiceLineItem {
	return &InvoiceLineItem{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
		InvoiceID:     invoiceID,
		CustomerID:    customerID,
		Type:          types.InvoiceLineItemTypeRefundAdj,
		Amount:        amount,
		Currency:      currency,
		EffectiveDate: effectiveDate,
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

// Validate validates the invoice line item
func (i *InvoiceLineItem) Validate() error {
	if i.Currency == "" {
		return ierr.NewError("invoice line item validation failed").
			WithHint("currency is required").
			Mark(ierr.ErrValidation)
	}

	switch i.Type {
	case types.InvoiceLineItemTypeRecurring:
		if lo.FromPtr(i.SubscriptionID) == "" {
			return ierr.NewError("invoice line item validation failed").
				WithHint("recurring items must reference a subscription").
				Mark(ierr.ErrValidation)
		}
		if i.PeriodStart != nil && i.PeriodEnd != nil && i.PeriodEnd.Before(*i.PeriodStart) {
			return ierr.NewError("invoice line item validation failed").
				WithHint("period_end must be after period_start").
				Mark(ierr.ErrValidation)
		}
	case types.InvoiceLineItemTypeCreditAdj, types.InvoiceLineItemTypeRefundAdj:
		if i.Amount.IsPositive() {
			return ierr.NewError("invoice line item validation failed").
				WithHint("credit and refund adjustments must not be positive").
				WithReportableDetails(map[string]any{
					"type":   string(i.Type),
					"amount": i.Amount.String(),
				}).
				Mark(ierr.ErrValidation)
		}
	case types.InvoiceLineItemTypeCreditBalanceAdj, types.InvoiceLineItemTypeFixed:
		// any sign
	default:
		return ierr.NewError("invoice line item validation failed").
			WithHint("unknown line item type").
			WithReportableDetails(map[string]any{
				"type": string(i.Type),
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}
