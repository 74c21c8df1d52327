package service

import (
	"testing"

	"github.com/billcraft/billcraft/internal/api/dto"
	"github.com/billcraft/billcraft/internal/domain/invoice"
	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/testutil"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type AdjustmentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        AdjustmentService
	invoiceService InvoiceService
	params         ServiceParams
}

func TestAdjustmentService(t *testing.T) {
	suite.Run(t, new(AdjustmentServiceSuite))
}

func (s *AdjustmentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		InvoiceRepo:      s.GetStores().InvoiceRepo,
		TagRepo:          s.GetStores().TagRepo,
		Notifier:         s.GetNotifier(),
		WebhookPublisher: s.GetWebhookPublisher(),
		Clock:            s.GetClock(),
	}
	s.service = NewAdjustmentService(s.params)
	s.invoiceService = NewInvoiceService(s.params)
}

// createPaidInvoice creates an invoice with a single fixed charge and a full
// payment against it
func (s *AdjustmentServiceSuite) createPaidInvoice(customerID, paymentID string, amount decimal.Decimal) *dto.InvoiceResponse {
	resp, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: customerID,
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: amount},
		},
	})
	s.Require().NoError(err)

	_, err = s.invoiceService.NotifyOfPayment(s.GetContext(), dto.PaymentRequest{
		InvoiceID: resp.ID,
		PaymentID: paymentID,
		Amount:    amount,
	})
	s.Require().NoError(err)
	return resp
}

func (s *AdjustmentServiceSuite) getInvoice(id string) *dto.InvoiceResponse {
	resp, err := s.invoiceService.GetInvoice(s.GetContext(), id)
	s.Require().NoError(err)
	return resp
}

func (s *AdjustmentServiceSuite) TestCreateRefundFullAmount() {
	inv := s.createPaidInvoice("cust-1", "pay-1", decimal.NewFromInt(100))
	s.Equal("0", s.getInvoice(inv.ID).Balance.String())

	refund, err := s.service.CreateRefund(s.GetContext(), dto.RefundRequest{
		PaymentID:       "pay-1",
		PaymentCookieID: "cookie-1",
	})
	s.NoError(err)
	s.Equal(types.InvoicePaymentTypeRefund, refund.PaymentType)
	s.Equal("-100", refund.Amount.String())
	s.Equal("cookie-1", lo.FromPtr(refund.PaymentCookieID))
	s.Equal("pay-1", lo.FromPtr(refund.PaymentID))
	s.NotEmpty(lo.FromPtr(refund.LinkedPaymentID))

	// Without invoice adjustment the refund reopens the balance
	s.Equal("100", s.getInvoice(inv.ID).Balance.String())
}

func (s *AdjustmentServiceSuite) TestCreateRefundWithInvoiceAdjustment() {
	inv := s.createPaidInvoice("cust-1", "pay-1", decimal.NewFromInt(100))

	refund, err := s.service.CreateRefund(s.GetContext(), dto.RefundRequest{
		PaymentID:       "pay-1",
		AdjustInvoice:   true,
		PaymentCookieID: "cookie-1",
	})
	s.NoError(err)
	s.Equal("-100", refund.Amount.String())

	// The write-down restores the invoice to zero
	got := s.getInvoice(inv.ID)
	s.Equal("0", got.Balance.String())

	adjustments := lo.Filter(got.LineItems, func(item *invoice.InvoiceLineItem, _ int) bool {
		return item.Type == types.InvoiceLineItemTypeRefundAdj
	})
	s.Require().Len(adjustments, 1)
	s.Equal("-100", adjustments[0].Amount.String())
}

func (s *AdjustmentServiceSuite) TestCreateRefundPartialWithAdjustment() {
	inv := s.createPaidInvoice("cust-1", "pay-1", decimal.NewFromInt(100))

	refund, err := s.service.CreateRefund(s.GetContext(), dto.RefundRequest{
		PaymentID:       "pay-1",
		Amount:          lo.ToPtr(decimal.NewFromInt(30)),
		AdjustInvoice:   true,
		PaymentCookieID: "cookie-1",
	})
	s.NoError(err)
	s.Equal("-30", refund.Amount.String())
	s.Equal("0", s.getInvoice(inv.ID).Balance.String())
}

func (s *AdjustmentServiceSuite) TestCreateRefundRetrySameCookie() {
	s.createPaidInvoice("cust-1", "pay-1", decimal.NewFromInt(100))

	first, err := s.service.CreateRefund(s.GetContext(), dto.RefundRequest{
		PaymentID:       "pay-1",
		Amount:          lo.ToPtr(decimal.NewFromInt(30)),
		PaymentCookieID: "cookie-1",
	})
	s.Require().NoError(err)

	paymentRows := s.GetStores().InvoiceRepo.PaymentCount()
	itemRows := s.GetStores().InvoiceRepo.LineItemCount()

	second, err := s.service.CreateRefund(s.GetContext(), dto.RefundRequest{
		PaymentID:       "pay-1",
		Amount:          lo.ToPtr(decimal.NewFromInt(30)),
		PaymentCookieID: "cookie-1",
	})
	s.NoError(err)
	s.Equal(first.ID, second.ID)

	// Retry writes nothing
	s.Equal(paymentRows, s.GetStores().InvoiceRepo.PaymentCount())
	s.Equal(itemRows, s.GetStores().InvoiceRepo.LineItemCount())
}

func (s *AdjustmentServiceSuite) TestCreateRefundAmountTooHigh() {
	s.createPaidInvoice("cust-1", "pay-1", decimal.NewFromInt(100))

	_, err := s.service.CreateRefund(s.GetContext(), dto.RefundRequest{
		PaymentID:       "pay-1",
		Amount:          lo.ToPtr(decimal.NewFromInt(150)),
		PaymentCookieID: "cookie-1",
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *AdjustmentServiceSuite) TestCreateRefundBoundCheckedBeforeRetryLookup() {
	s.createPaidInvoice("cust-1", "pay-1", decimal.NewFromInt(100))

	_, err := s.service.CreateRefund(s.GetContext(), dto.RefundRequest{
		PaymentID:       "pay-1",
		Amount:          lo.ToPtr(decimal.NewFromInt(30)),
		PaymentCookieID: "cookie-1",
	})
	s.Require().NoError(err)

	// An over-bound retry fails even though the cookie already has a refund
	_, err = s.service.CreateRefund(s.GetContext(), dto.RefundRequest{
		PaymentID:       "pay-1",
		Amount:          lo.ToPtr(decimal.NewFromInt(150)),
		PaymentCookieID: "cookie-1",
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *AdjustmentServiceSuite) TestCreateRefundMissingPayment() {
	_, err := s.service.CreateRefund(s.GetContext(), dto.RefundRequest{
		PaymentID:       "pay-missing",
		PaymentCookieID: "cookie-1",
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *AdjustmentServiceSuite) TestCreateRefundConsumesAccountCredit() {
	// Park 30 of credit on the account
	_, err := s.service.InsertCredit(s.GetContext(), dto.CreditRequest{
		CustomerID: "cust-1",
		Amount:     decimal.NewFromInt(30),
		Currency:   "USD",
	})
	s.Require().NoError(err)

	inv := s.createPaidInvoice("cust-1", "pay-1", decimal.NewFromInt(100))

	refund, err := s.service.CreateRefund(s.GetContext(), dto.RefundRequest{
		PaymentID:       "pay-1",
		Amount:          lo.ToPtr(decimal.NewFromInt(50)),
		AdjustInvoice:   true,
		PaymentCookieID: "cookie-1",
	})
	s.NoError(err)
	s.Equal("-50", refund.Amount.String())

	got := s.getInvoice(inv.ID)

	// The credit pool absorbs 30 of the refund
	cbaItems := lo.Filter(got.LineItems, func(item *invoice.InvoiceLineItem, _ int) bool {
		return item.Type == types.InvoiceLineItemTypeCreditBalanceAdj
	})
	s.Require().Len(cbaItems, 1)
	s.Equal("-30", cbaItems[0].Amount.String())

	// Only the uncovered 20 is written down
	adjustments := lo.Filter(got.LineItems, func(item *invoice.InvoiceLineItem, _ int) bool {
		return item.Type == types.InvoiceLineItemTypeRefundAdj
	})
	s.Require().Len(adjustments, 1)
	s.Equal("-20", adjustments[0].Amount.String())

	s.Equal("0", got.Balance.String())

	// The account credit is spent
	balanceService := NewBalanceService(s.params)
	cba, err := balanceService.GetAccountCBA(s.GetContext(), "cust-1")
	s.NoError(err)
	s.Equal("0", cba.String())
}

func (s *AdjustmentServiceSuite) TestCreateRefundValidation() {
	s.Run("missing cookie", func() {
		_, err := s.service.CreateRefund(s.GetContext(), dto.RefundRequest{
			PaymentID: "pay-1",
		})
		s.Error(err)
		s.True(ierr.IsValidation(err))
	})

	s.Run("non-positive amount", func() {
		_, err := s.service.CreateRefund(s.GetContext(), dto.RefundRequest{
			PaymentID:       "pay-1",
			Amount:          lo.ToPtr(decimal.Zero),
			PaymentCookieID: "cookie-1",
		})
		s.Error(err)
		s.True(ierr.IsValidation(err))
	})
}

func (s *AdjustmentServiceSuite) TestPostChargebackFullAmount() {
	inv := s.createPaidInvoice("cust-1", "pay-1", decimal.NewFromInt(100))
	attempt, err := s.GetStores().InvoiceRepo.GetPaymentByPaymentID(s.GetContext(), "pay-1")
	s.Require().NoError(err)

	chargeback, err := s.service.PostChargeback(s.GetContext(), dto.ChargebackRequest{
		InvoicePaymentID: attempt.ID,
	})
	s.NoError(err)
	s.Equal(types.InvoicePaymentTypeChargeback, chargeback.PaymentType)
	s.Equal("-100", chargeback.Amount.String())
	s.Equal(attempt.ID, lo.FromPtr(chargeback.LinkedPaymentID))

	// Chargebacks carry no external id and no retry cookie
	s.Nil(chargeback.PaymentID)
	s.Nil(chargeback.PaymentCookieID)

	// The full payment is clawed back, the invoice owes again
	s.Equal("100", s.getInvoice(inv.ID).Balance.String())

	remaining, err := s.GetStores().InvoiceRepo.GetRemainingAmountPaid(s.GetContext(), attempt.ID)
	s.NoError(err)
	s.Equal("0", remaining.String())
}

func (s *AdjustmentServiceSuite) TestPostChargebackCappedAtRemaining() {
	s.createPaidInvoice("cust-1", "pay-1", decimal.NewFromInt(100))
	attempt, err := s.GetStores().InvoiceRepo.GetPaymentByPaymentID(s.GetContext(), "pay-1")
	s.Require().NoError(err)

	_, err = s.service.PostChargeback(s.GetContext(), dto.ChargebackRequest{
		InvoicePaymentID: attempt.ID,
		Amount:           lo.ToPtr(decimal.NewFromInt(60)),
	})
	s.Require().NoError(err)

	// Only 40 remains on the payment
	_, err = s.service.PostChargeback(s.GetContext(), dto.ChargebackRequest{
		InvoicePaymentID: attempt.ID,
		Amount:           lo.ToPtr(decimal.NewFromInt(60)),
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	_, err = s.service.PostChargeback(s.GetContext(), dto.ChargebackRequest{
		InvoicePaymentID: attempt.ID,
		Amount:           lo.ToPtr(decimal.NewFromInt(40)),
	})
	s.NoError(err)
}

func (s *AdjustmentServiceSuite) TestPostChargebackMissingPayment() {
	// The amount bound is checked before existence: a missing payment has
	// nothing remaining, so an explicit amount is over the bound
	_, err := s.service.PostChargeback(s.GetContext(), dto.ChargebackRequest{
		InvoicePaymentID: "pay-missing",
		Amount:           lo.ToPtr(decimal.NewFromInt(10)),
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	// Without an amount the derived default of zero fails the positive check
	_, err = s.service.PostChargeback(s.GetContext(), dto.ChargebackRequest{
		InvoicePaymentID: "pay-missing",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *AdjustmentServiceSuite) TestInsertCreditWithoutInvoice() {
	credit, err := s.service.InsertCredit(s.GetContext(), dto.CreditRequest{
		CustomerID: "cust-1",
		Amount:     decimal.NewFromInt(30),
		Currency:   "USD",
	})
	s.NoError(err)
	s.Equal(types.InvoiceLineItemTypeCreditAdj, credit.Type)
	s.Equal("-30", credit.Amount.String())
	s.NotEmpty(credit.InvoiceID)

	// The carrier invoice nets to zero and the credit lands in the pool
	got := s.getInvoice(credit.InvoiceID)
	s.Equal("0", got.Balance.String())
	s.Equal("30", got.CBAAmount.String())

	balanceService := NewBalanceService(s.params)
	cba, err := balanceService.GetAccountCBA(s.GetContext(), "cust-1")
	s.NoError(err)
	s.Equal("30", cba.String())
}

func (s *AdjustmentServiceSuite) TestInsertCreditOnExistingInvoice() {
	resp, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(100)},
		},
	})
	s.Require().NoError(err)

	credit, err := s.service.InsertCredit(s.GetContext(), dto.CreditRequest{
		CustomerID: "cust-1",
		InvoiceID:  lo.ToPtr(resp.ID),
		Amount:     decimal.NewFromInt(40),
		Currency:   "USD",
	})
	s.NoError(err)
	s.Equal(resp.ID, credit.InvoiceID)

	// A credit smaller than the owed amount never touches the pool
	got := s.getInvoice(resp.ID)
	s.Equal("60", got.Balance.String())
	s.Equal("0", got.CBAAmount.String())
}

func (s *AdjustmentServiceSuite) TestInsertCreditOvershoot() {
	resp, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(20)},
		},
	})
	s.Require().NoError(err)

	_, err = s.service.InsertCredit(s.GetContext(), dto.CreditRequest{
		CustomerID: "cust-1",
		InvoiceID:  lo.ToPtr(resp.ID),
		Amount:     decimal.NewFromInt(50),
		Currency:   "USD",
	})
	s.NoError(err)

	// Exactly one CBA item zeroes the invoice; the excess 30 becomes credit
	got := s.getInvoice(resp.ID)
	s.Equal("0", got.Balance.String())

	cbaItems := lo.Filter(got.LineItems, func(item *invoice.InvoiceLineItem, _ int) bool {
		return item.Type == types.InvoiceLineItemTypeCreditBalanceAdj
	})
	s.Require().Len(cbaItems, 1)
	s.Equal("30", cbaItems[0].Amount.String())
}

func (s *AdjustmentServiceSuite) TestInsertCreditCurrencyMismatch() {
	resp, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(20)},
		},
	})
	s.Require().NoError(err)

	itemRows := s.GetStores().InvoiceRepo.LineItemCount()

	_, err = s.service.InsertCredit(s.GetContext(), dto.CreditRequest{
		CustomerID: "cust-1",
		InvoiceID:  lo.ToPtr(resp.ID),
		Amount:     decimal.NewFromInt(10),
		Currency:   "EUR",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
	s.Equal(itemRows, s.GetStores().InvoiceRepo.LineItemCount())
}

func (s *AdjustmentServiceSuite) TestInsertCreditValidation() {
	_, err := s.service.InsertCredit(s.GetContext(), dto.CreditRequest{
		CustomerID: "cust-1",
		Amount:     decimal.NewFromInt(-5),
		Currency:   "USD",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
