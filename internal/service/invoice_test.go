package service

import (
	"testing"
	"time"

	"github.com/billcraft/billcraft/internal/api/dto"
	"github.com/billcraft/billcraft/internal/domain/invoice"
	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/testutil"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service InvoiceService
	params  ServiceParams
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
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
	s.service = NewInvoiceService(s.params)
}

func (s *InvoiceServiceSuite) TestCreateInvoice() {
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(100)},
		},
	})
	s.NoError(err)
	s.NotEmpty(resp.ID)
	s.Equal("cust-1", resp.CustomerID)
	s.Equal("100", resp.Balance.String())
	s.Require().NotNil(resp.InvoiceNumber)
	s.Equal(int64(1), *resp.InvoiceNumber)

	// Numbers are sequential in creation order
	second, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
	})
	s.NoError(err)
	s.Require().NotNil(second.InvoiceNumber)
	s.Equal(int64(2), *second.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceDefaultsDatesFromClock() {
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
	})
	s.NoError(err)
	s.True(resp.InvoiceDate.Equal(s.GetClock().Now()))
	s.True(resp.TargetDate.Equal(s.GetClock().Now()))
}

func (s *InvoiceServiceSuite) TestCreateInvoiceIdempotent() {
	req := dto.CreateInvoiceRequest{
		ID:         lo.ToPtr("inv_fixed_id"),
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(100)},
		},
	}

	first, err := s.service.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)

	itemRows := s.GetStores().InvoiceRepo.LineItemCount()

	second, err := s.service.CreateInvoice(s.GetContext(), req)
	s.NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal(itemRows, s.GetStores().InvoiceRepo.LineItemCount())
}

func (s *InvoiceServiceSuite) TestCreateInvoiceSchedulesBillingNotification() {
	periodStart := time.Date(2012, 5, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2012, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID:      "cust-1",
		Currency:        "USD",
		BillCycleDayUTC: 1,
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{
				Type:           types.InvoiceLineItemTypeRecurring,
				Amount:         decimal.NewFromInt(100),
				SubscriptionID: lo.ToPtr("sub-1"),
				PeriodStart:    lo.ToPtr(periodStart),
				PeriodEnd:      lo.ToPtr(periodEnd),
			},
		},
	})
	s.NoError(err)

	scheduled := s.GetNotifier().Scheduled()
	s.Require().Len(scheduled, 1)
	s.Equal("cust-1", scheduled[0].CustomerID)
	s.Equal("sub-1", scheduled[0].SubscriptionID)

	// Clock is 2012-05-15 10:30 UTC with BCD 1, so the next cycle is June 1
	// carrying the time of day
	s.Equal(time.Date(2012, 6, 1, 10, 30, 0, 0, time.UTC), scheduled[0].NotifyAt)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceSkipsNotificationWithoutRecurring() {
	_, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(100)},
		},
	})
	s.NoError(err)
	s.Empty(s.GetNotifier().Scheduled())
}

func (s *InvoiceServiceSuite) TestCreateInvoiceSkipsNotificationForNegativeRecurring() {
	periodStart := time.Date(2012, 5, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2012, 6, 1, 0, 0, 0, 0, time.UTC)

	// A repair item (negative recurring) does not drive the next cycle
	_, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{
				Type:           types.InvoiceLineItemTypeRecurring,
				Amount:         decimal.NewFromInt(-25),
				SubscriptionID: lo.ToPtr("sub-1"),
				PeriodStart:    lo.ToPtr(periodStart),
				PeriodEnd:      lo.ToPtr(periodEnd),
			},
		},
	})
	s.NoError(err)
	s.Empty(s.GetNotifier().Scheduled())
}

func (s *InvoiceServiceSuite) TestNotifyOfPayment() {
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(100)},
		},
	})
	s.Require().NoError(err)

	payment, err := s.service.NotifyOfPayment(s.GetContext(), dto.PaymentRequest{
		InvoiceID: resp.ID,
		PaymentID: "pay-1",
		Amount:    decimal.NewFromInt(60),
	})
	s.NoError(err)
	s.Equal(types.InvoicePaymentTypeAttempt, payment.PaymentType)
	s.Equal("USD", payment.Currency)

	got, err := s.service.GetInvoice(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Equal("40", got.Balance.String())
}

func (s *InvoiceServiceSuite) TestNotifyOfPaymentMissingInvoice() {
	_, err := s.service.NotifyOfPayment(s.GetContext(), dto.PaymentRequest{
		InvoiceID: "inv_missing",
		PaymentID: "pay-1",
		Amount:    decimal.NewFromInt(10),
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestGetInvoiceByNumber() {
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
	})
	s.Require().NoError(err)

	got, err := s.service.GetInvoiceByNumber(s.GetContext(), *resp.InvoiceNumber)
	s.NoError(err)
	s.Equal(resp.ID, got.ID)

	_, err = s.service.GetInvoiceByNumber(s.GetContext(), 999)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestListInvoicesBySubscription() {
	periodStart := time.Date(2012, 5, 1, 0, 0, 0, 0, time.UTC)

	withSub, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{
				Type:           types.InvoiceLineItemTypeRecurring,
				Amount:         decimal.NewFromInt(100),
				SubscriptionID: lo.ToPtr("sub-1"),
				PeriodStart:    lo.ToPtr(periodStart),
			},
		},
	})
	s.Require().NoError(err)

	_, err = s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
	})
	s.Require().NoError(err)

	resp, err := s.service.ListInvoicesBySubscription(s.GetContext(), "sub-1")
	s.NoError(err)
	s.Require().Len(resp.Items, 1)
	s.Equal(withSub.ID, resp.Items[0].ID)
}

func (s *InvoiceServiceSuite) TestListInvoicesAfter() {
	older, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		TargetDate: time.Date(2012, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)

	newer, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		TargetDate: time.Date(2012, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)

	resp, err := s.service.ListInvoicesAfter(s.GetContext(), "cust-1",
		time.Date(2012, 4, 1, 0, 0, 0, 0, time.UTC))
	s.NoError(err)
	s.Require().Len(resp.Items, 1)
	s.Equal(newer.ID, resp.Items[0].ID)
	s.NotEqual(older.ID, resp.Items[0].ID)
}

func (s *InvoiceServiceSuite) TestGetUnpaidInvoices() {
	unpaid, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		TargetDate: time.Date(2012, 5, 1, 0, 0, 0, 0, time.UTC),
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(100)},
		},
	})
	s.Require().NoError(err)

	paid, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(50)},
		},
	})
	s.Require().NoError(err)
	_, err = s.service.NotifyOfPayment(s.GetContext(), dto.PaymentRequest{
		InvoiceID: paid.ID,
		PaymentID: "pay-1",
		Amount:    decimal.NewFromInt(50),
	})
	s.Require().NoError(err)

	late, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		TargetDate: time.Date(2012, 8, 1, 0, 0, 0, 0, time.UTC),
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(5)},
		},
	})
	s.Require().NoError(err)

	s.Run("no cutoff", func() {
		resp, err := s.service.GetUnpaidInvoices(s.GetContext(), "cust-1", nil)
		s.NoError(err)
		s.Len(resp.Items, 2)
		ids := lo.Map(resp.Items, func(item *dto.InvoiceResponse, _ int) string { return item.ID })
		s.Contains(ids, unpaid.ID)
		s.Contains(ids, late.ID)
		s.NotContains(ids, paid.ID)
	})

	s.Run("with cutoff", func() {
		cutoff := time.Date(2012, 6, 1, 0, 0, 0, 0, time.UTC)
		resp, err := s.service.GetUnpaidInvoices(s.GetContext(), "cust-1", &cutoff)
		s.NoError(err)
		s.Require().Len(resp.Items, 1)
		s.Equal(unpaid.ID, resp.Items[0].ID)
	})
}

func (s *InvoiceServiceSuite) TestPaymentLookups() {
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(100)},
		},
	})
	s.Require().NoError(err)

	payment, err := s.service.NotifyOfPayment(s.GetContext(), dto.PaymentRequest{
		InvoiceID: resp.ID,
		PaymentID: "pay-1",
		Amount:    decimal.NewFromInt(100),
	})
	s.Require().NoError(err)

	invoiceID, err := s.service.GetInvoiceIDByPaymentID(s.GetContext(), "pay-1")
	s.NoError(err)
	s.Equal(resp.ID, invoiceID)

	customerID, err := s.service.GetCustomerIDFromPaymentID(s.GetContext(), payment.ID)
	s.NoError(err)
	s.Equal("cust-1", customerID)

	got, err := s.service.GetPaymentByPaymentID(s.GetContext(), "pay-1")
	s.NoError(err)
	s.Equal(payment.ID, got.ID)

	_, err = s.service.GetInvoiceIDByPaymentID(s.GetContext(), "pay-missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestChargebackQueries() {
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(100)},
		},
	})
	s.Require().NoError(err)
	payment, err := s.service.NotifyOfPayment(s.GetContext(), dto.PaymentRequest{
		InvoiceID: resp.ID,
		PaymentID: "pay-1",
		Amount:    decimal.NewFromInt(100),
	})
	s.Require().NoError(err)

	adjustments := NewAdjustmentService(s.params)
	chargeback, err := adjustments.PostChargeback(s.GetContext(), dto.ChargebackRequest{
		InvoicePaymentID: payment.ID,
		Amount:           lo.ToPtr(decimal.NewFromInt(40)),
	})
	s.Require().NoError(err)

	byCustomer, err := s.service.ListChargebacksByCustomer(s.GetContext(), "cust-1")
	s.NoError(err)
	s.Require().Len(byCustomer, 1)
	s.Equal(chargeback.ID, byCustomer[0].ID)

	byPayment, err := s.service.ListChargebacksByPaymentID(s.GetContext(), "pay-1")
	s.NoError(err)
	s.Require().Len(byPayment, 1)
	s.Equal(chargeback.ID, byPayment[0].ID)

	got, err := s.service.GetChargebackByID(s.GetContext(), chargeback.ID)
	s.NoError(err)
	s.Equal("-40", got.Amount.String())
}

func (s *InvoiceServiceSuite) TestGetCreditByID() {
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{Type: types.InvoiceLineItemTypeFixed, Amount: decimal.NewFromInt(100)},
		},
	})
	s.Require().NoError(err)

	adjustments := NewAdjustmentService(s.params)
	credit, err := adjustments.InsertCredit(s.GetContext(), dto.CreditRequest{
		CustomerID: "cust-1",
		InvoiceID:  lo.ToPtr(resp.ID),
		Amount:     decimal.NewFromInt(10),
		Currency:   "USD",
	})
	s.Require().NoError(err)

	got, err := s.service.GetCreditByID(s.GetContext(), credit.ID)
	s.NoError(err)
	s.Equal("-10", got.Amount.String())

	// A non-credit line item is not addressable as a credit
	items, err := s.GetStores().InvoiceRepo.GetLineItemsByInvoice(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	fixed, found := lo.Find(items, func(item *invoice.InvoiceLineItem) bool {
		return item.Type == types.InvoiceLineItemTypeFixed
	})
	s.Require().True(found)
	_, err = s.service.GetCreditByID(s.GetContext(), fixed.ID)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestWrittenOffTag() {
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Currency:   "USD",
	})
	s.Require().NoError(err)

	written, err := s.service.IsWrittenOff(s.GetContext(), resp.ID)
	s.NoError(err)
	s.False(written)

	s.NoError(s.service.SetWrittenOff(s.GetContext(), resp.ID))
	// Tagging twice is a no-op
	s.NoError(s.service.SetWrittenOff(s.GetContext(), resp.ID))

	written, err = s.service.IsWrittenOff(s.GetContext(), resp.ID)
	s.NoError(err)
	s.True(written)

	s.NoError(s.service.RemoveWrittenOff(s.GetContext(), resp.ID))
	written, err = s.service.IsWrittenOff(s.GetContext(), resp.ID)
	s.NoError(err)
	s.False(written)

	// Tagging a missing invoice fails
	err = s.service.SetWrittenOff(s.GetContext(), "inv_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
