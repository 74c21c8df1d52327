package service

import (
	"testing"

	"github.com/billcraft/billcraft/internal/api/dto"
	"github.com/billcraft/billcraft/internal/testutil"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type BalanceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        BalanceService
	invoiceService InvoiceService
	adjustments    AdjustmentService
	params         ServiceParams
}

func TestBalanceService(t *testing.T) {
	suite.Run(t, new(BalanceServiceSuite))
}

func (s *BalanceServiceSuite) SetupTest() {
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
	s.service = NewBalanceService(s.params)
	s.invoiceService = NewInvoiceService(s.params)
	s.adjustments = NewAdjustmentService(s.params)
}

func (s *BalanceServiceSuite) TestAccountBalanceEmptyAccount() {
	balance, err := s.service.GetAccountBalance(s.GetContext(), "cust-none")
	s.NoError(err)
	s.True(balance.IsZero())

	cba, err := s.service.GetAccountCBA(s.GetContext(), "cust-none")
	s.NoError(err)
	s.True(cba.IsZero())
}

func (s *BalanceServiceSuite) TestAccountBalanceAcrossInvoices() {
	_, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(100)},
		},
	})
	s.Require().NoError(err)

	partial, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(80)},
		},
	})
	s.Require().NoError(err)
	_, err = s.invoiceService.NotifyOfPayment(s.GetContext(), dto.PaymentRequest{
		InvoiceID: partial.ID,
		PaymentID: "pay-1",
		Amount:    decimal.NewFromInt(30),
	})
	s.Require().NoError(err)

	// Other customers never leak into the rollup
	_, err = s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-2",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(999)},
		},
	})
	s.Require().NoError(err)

	balance, err := s.service.GetAccountBalance(s.GetContext(), "cust-1")
	s.NoError(err)
	s.Equal("150", balance.String())
}

func (s *BalanceServiceSuite) TestAccountBalanceExcludesCreditPool() {
	// Credit only: the carrier invoice nets to zero, the pool holds 30
	_, err := s.adjustments.InsertCredit(s.GetContext(), dto.CreditRequest{
		CustomerID: "cust-1",
		Amount:     decimal.NewFromInt(30),
		Currency:   "USD",
	})
	s.Require().NoError(err)

	cba, err := s.service.GetAccountCBA(s.GetContext(), "cust-1")
	s.NoError(err)
	s.Equal("30", cba.String())

	// The account owes nothing and holds 30 of credit
	balance, err := s.service.GetAccountBalance(s.GetContext(), "cust-1")
	s.NoError(err)
	s.Equal("-30", balance.String())
}

func (s *BalanceServiceSuite) TestAccountCBAAfterRefundConsumption() {
	_, err := s.adjustments.InsertCredit(s.GetContext(), dto.CreditRequest{
		CustomerID: "cust-1",
		Amount:     decimal.NewFromInt(30),
		Currency:   "USD",
	})
	s.Require().NoError(err)

	inv, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(100)},
		},
	})
	s.Require().NoError(err)
	_, err = s.invoiceService.NotifyOfPayment(s.GetContext(), dto.PaymentRequest{
		InvoiceID: inv.ID,
		PaymentID: "pay-1",
		Amount:    decimal.NewFromInt(100),
	})
	s.Require().NoError(err)

	_, err = s.adjustments.CreateRefund(s.GetContext(), dto.RefundRequest{
		PaymentID:       "pay-1",
		Amount:          lo.ToPtr(decimal.NewFromInt(50)),
		AdjustInvoice:   true,
		PaymentCookieID: "cookie-1",
	})
	s.Require().NoError(err)

	cba, err := s.service.GetAccountCBA(s.GetContext(), "cust-1")
	s.NoError(err)
	s.Equal("0", cba.String())
}
