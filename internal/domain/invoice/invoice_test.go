package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/billcraft/billcraft/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	ctx := types.SetTenantID(context.Background(), types.DefaultTenantID)
	return types.SetEnvironmentID(ctx, types.DefaultEnvironmentID)
}

func TestInvoiceBalanceEmpty(t *testing.T) {
	ctx := testContext()
	inv := New(ctx, "cust-1", time.Now(), time.Now(), "USD")
	assert.True(t, inv.Balance().IsZero())
	assert.True(t, inv.CBAAmount().IsZero())
}

func TestInvoiceBalanceSignedSum(t *testing.T) {
	ctx := testContext()
	now := time.Now().UTC()
	inv := New(ctx, "cust-1", now, now, "USD")

	inv.AddLineItems(
		NewFixedLineItem(ctx, "cust-1", decimal.NewFromInt(100), "USD", now),
		NewCreditLineItem(ctx, inv.ID, "cust-1", decimal.NewFromInt(-20), "USD", now),
	)
	assert.Equal(t, "80", inv.Balance().String())

	attempt := NewPaymentAttempt(ctx, inv.ID, "pay-1", decimal.NewFromInt(80), "USD", now)
	inv.AddPayments(attempt)
	assert.True(t, inv.Balance().IsZero())

	// A refund reopens the balance
	inv.AddPayments(attempt.NewRefund(ctx, decimal.NewFromInt(30), "cookie-1", now))
	assert.Equal(t, "30", inv.Balance().String())

	// A chargeback does the same
	inv.AddPayments(attempt.NewChargeback(ctx, decimal.NewFromInt(50), now))
	assert.Equal(t, "80", inv.Balance().String())
}

func TestInvoiceCBAAmount(t *testing.T) {
	ctx := testContext()
	now := time.Now().UTC()
	inv := New(ctx, "cust-1", now, now, "USD")

	inv.AddLineItems(
		NewFixedLineItem(ctx, "cust-1", decimal.NewFromInt(100), "USD", now),
		NewCreditBalanceLineItem(ctx, inv.ID, "cust-1", decimal.NewFromInt(30), "USD", now),
		NewCreditBalanceLineItem(ctx, inv.ID, "cust-1", decimal.NewFromInt(-10), "USD", now),
	)
	assert.Equal(t, "20", inv.CBAAmount().String())
}

func TestAddChildrenStampsInvoiceID(t *testing.T) {
	ctx := testContext()
	now := time.Now().UTC()
	inv := New(ctx, "cust-1", now, now, "USD")

	item := NewFixedLineItem(ctx, "cust-1", decimal.NewFromInt(10), "USD", now)
	inv.AddLineItems(item)
	assert.Equal(t, inv.ID, item.InvoiceID)

	p := NewPaymentAttempt(ctx, "", "pay-1", decimal.NewFromInt(10), "USD", now)
	inv.AddPayments(p)
	assert.Equal(t, inv.ID, p.InvoiceID)

	require.NoError(t, inv.Validate())
}

func TestRefundConstructor(t *testing.T) {
	ctx := testContext()
	now := time.Now().UTC()

	attempt := NewPaymentAttempt(ctx, "inv-1", "pay-1", decimal.NewFromInt(100), "USD", now)
	refund := attempt.NewRefund(ctx, decimal.NewFromInt(40), "cookie-1", now)

	assert.Equal(t, types.InvoicePaymentTypeRefund, refund.PaymentType)
	assert.Equal(t, "-40", refund.Amount.String())
	assert.Equal(t, "pay-1", lo.FromPtr(refund.PaymentID))
	assert.Equal(t, attempt.ID, lo.FromPtr(refund.LinkedPaymentID))
	assert.Equal(t, "cookie-1", lo.FromPtr(refund.PaymentCookieID))
	require.NoError(t, refund.Validate())
}

func TestChargebackConstructor(t *testing.T) {
	ctx := testContext()
	now := time.Now().UTC()

	attempt := NewPaymentAttempt(ctx, "inv-1", "pay-1", decimal.NewFromInt(100), "USD", now)
	chargeback := attempt.NewChargeback(ctx, decimal.NewFromInt(100), now)

	assert.Equal(t, types.InvoicePaymentTypeChargeback, chargeback.PaymentType)
	assert.Equal(t, "-100", chargeback.Amount.String())
	assert.Nil(t, chargeback.PaymentID)
	assert.Nil(t, chargeback.PaymentCookieID)
	assert.Equal(t, attempt.ID, lo.FromPtr(chargeback.LinkedPaymentID))
	require.NoError(t, chargeback.Validate())
}

func TestLineItemValidation(t *testing.T) {
	ctx := testContext()
	now := time.Now().UTC()

	t.Run("recurring requires subscription", func(t *testing.T) {
		item := NewRecurringLineItem(ctx, "cust-1", "", "Gold", decimal.NewFromInt(10), "USD", now, nil)
		assert.Error(t, item.Validate())
	})

	t.Run("positive credit rejected", func(t *testing.T) {
		item := NewCreditLineItem(ctx, "inv-1", "cust-1", decimal.NewFromInt(10), "USD", now)
		assert.Error(t, item.Validate())
	})

	t.Run("positive refund adjustment rejected", func(t *testing.T) {
		item := NewRefundAdjLineItem(ctx, "inv-1", "cust-1", decimal.NewFromInt(10), "USD", now)
		assert.Error(t, item.Validate())
	})

	t.Run("negative cba allowed", func(t *testing.T) {
		item := NewCreditBalanceLineItem(ctx, "inv-1", "cust-1", decimal.NewFromInt(-10), "USD", now)
		assert.NoError(t, item.Validate())
	})
}

func TestPaymentValidation(t *testing.T) {
	ctx := testContext()
	now := time.Now().UTC()

	t.Run("positive refund rejected", func(t *testing.T) {
		p := &InvoicePayment{
			ID:              "p1",
			InvoiceID:       "inv-1",
			PaymentType:     types.InvoicePaymentTypeRefund,
			Amount:          decimal.NewFromInt(10),
			Currency:        "USD",
			PaymentDate:     now,
			LinkedPaymentID: lo.ToPtr("p0"),
		}
		assert.Error(t, p.Validate())
	})

	t.Run("reversal must link original", func(t *testing.T) {
		p := &InvoicePayment{
			ID:          "p1",
			InvoiceID:   "inv-1",
			PaymentType: types.InvoicePaymentTypeChargeback,
			Amount:      decimal.NewFromInt(-10),
			Currency:    "USD",
			PaymentDate: now,
		}
		assert.Error(t, p.Validate())
	})

	t.Run("zero attempt allowed", func(t *testing.T) {
		p := NewPaymentAttempt(ctx, "inv-1", "pay-1", decimal.Zero, "USD", now)
		assert.NoError(t, p.Validate())
	})
}
