package service

import (
	"context"
	"time"

	"github.com/billcraft/billcraft/internal/api/dto"
	"github.com/billcraft/billcraft/internal/domain/invoice"
	"github.com/billcraft/billcraft/internal/domain/tag"
	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/samber/lo"
)

// InvoiceService owns invoice creation, payment notifications, the query
// surface and the written-off control tag.
type InvoiceService interface {
	// CreateInvoice persists an invoice with its children atomically and
	// schedules the next billing notification for recurring items. When the
	// request carries an id that already exists the call is a no-op and the
	// existing invoice is returned.
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	// NotifyOfPayment records an external payment attempt against an invoice
	NotifyOfPayment(ctx context.Context, req dto.PaymentRequest) (*invoice.InvoicePayment, error)

	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	GetInvoiceByNumber(ctx context.Context, number int64) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, customerID string) (*dto.ListInvoicesResponse, error)
	// ListInvoicesAfter returns the customer's invoices with a target date
	// on or after from
	ListInvoicesAfter(ctx context.Context, customerID string, from time.Time) (*dto.ListInvoicesResponse, error)
	ListInvoicesBySubscription(ctx context.Context, subscriptionID string) (*dto.ListInvoicesResponse, error)
	// GetUnpaidInvoices returns invoices with a strictly positive balance,
	// optionally capped at a target date
	GetUnpaidInvoices(ctx context.Context, customerID string, upTo *time.Time) (*dto.ListInvoicesResponse, error)

	GetInvoiceIDByPaymentID(ctx context.Context, paymentID string) (string, error)
	GetCustomerIDFromPaymentID(ctx context.Context, invoicePaymentID string) (string, error)
	GetPaymentByPaymentID(ctx context.Context, paymentID string) (*invoice.InvoicePayment, error)
	GetChargebackByID(ctx context.Context, invoicePaymentID string) (*invoice.InvoicePayment, error)
	ListChargebacksByCustomer(ctx context.Context, customerID string) ([]*invoice.InvoicePayment, error)
	ListChargebacksByPaymentID(ctx context.Context, paymentID string) ([]*invoice.InvoicePayment, error)
	GetCreditByID(ctx context.Context, creditID string) (*invoice.InvoiceLineItem, error)

	// SetWrittenOff tags the invoice as written off so collection stops
	// treating it as receivable; RemoveWrittenOff clears the tag
	SetWrittenOff(ctx context.Context, invoiceID string) error
	RemoveWrittenOff(ctx context.Context, invoiceID string) error
	IsWrittenOff(ctx context.Context, invoiceID string) (bool, error)
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{ServiceParams: params}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var inv *invoice.Invoice
	var created bool

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if id := lo.FromPtr(req.ID); id != "" {
			existing, err := s.getInvoiceWithChildren(ctx, id)
			if err == nil {
				inv = existing
				return nil
			}
			if !ierr.IsNotFound(err) {
				return err
			}
		}

		inv = req.ToInvoice(ctx, s.now().Now())
		if err := inv.Validate(); err != nil {
			return err
		}

		if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
			return err
		}
		if len(inv.LineItems) > 0 {
			if err := s.InvoiceRepo.CreateLineItems(ctx, inv.LineItems); err != nil {
				return err
			}
		}

		if err := s.notifyOfFutureBillingEvents(ctx, inv, req.BillCycleDayUTC); err != nil {
			return err
		}

		for _, p := range inv.Payments {
			if err := s.InvoiceRepo.CreatePayment(ctx, p); err != nil {
				return err
			}
		}

		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.Logger.Infow("invoice created",
			"invoice_id", inv.ID,
			"customer_id", inv.CustomerID,
			"currency", inv.Currency,
			"line_items", len(inv.LineItems))
		s.publishWebhookEvent(ctx, types.WebhookEventInvoiceCreated, inv)
	}

	return dto.NewInvoiceResponse(inv), nil
}

// notifyOfFutureBillingEvents schedules the next billing run when the
// invoice carries a recurring charge with a closed period. Phase changes and
// other mid-cycle events are the entitlement system's problem; only the bill
// cycle day needs a notification from here.
func (s *invoiceService) notifyOfFutureBillingEvents(ctx context.Context, inv *invoice.Invoice, billCycleDayUTC int) error {
	var subscriptionID string
	for _, item := range inv.LineItemsOfType(types.InvoiceLineItemTypeRecurring) {
		if item.PeriodEnd != nil && !item.Amount.IsNegative() {
			subscriptionID = lo.FromPtr(item.SubscriptionID)
			break
		}
	}
	if subscriptionID == "" {
		return nil
	}

	if billCycleDayUTC == 0 {
		billCycleDayUTC = s.Config.Billing.DefaultBillCycleDayUTC
	}

	// Anchored at the current time rather than midnight to spread the load
	// of notification processing across the day. The notifier drops
	// duplicates for the same (customer, subscription, date).
	at := types.NextBillingCycleDate(s.now().Now(), billCycleDayUTC)
	return s.Notifier.ScheduleNextBillingNotification(ctx, inv.CustomerID, subscriptionID, at)
}

func (s *invoiceService) NotifyOfPayment(ctx context.Context, req dto.PaymentRequest) (*invoice.InvoicePayment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var payment *invoice.InvoicePayment

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
		if err != nil {
			return err
		}

		date := lo.FromPtrOr(req.PaymentDate, s.now().Now())
		payment = invoice.NewPaymentAttempt(ctx, inv.ID, req.PaymentID, req.Amount, inv.Currency, date)
		return s.InvoiceRepo.CreatePayment(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("payment recorded",
		"invoice_payment_id", payment.ID,
		"invoice_id", req.InvoiceID,
		"payment_id", req.PaymentID,
		"amount", payment.Amount.String())
	s.publishWebhookEvent(ctx, types.WebhookEventInvoicePaymentReceived, payment)

	return payment, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	var inv *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.getInvoiceWithChildren(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) GetInvoiceByNumber(ctx context.Context, number int64) (*dto.InvoiceResponse, error) {
	var inv *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.InvoiceRepo.GetByNumber(ctx, number)
		if err != nil {
			return err
		}
		return s.populateChildren(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, customerID string) (*dto.ListInvoicesResponse, error) {
	return s.listWithChildren(ctx, func(ctx context.Context) ([]*invoice.Invoice, error) {
		return s.InvoiceRepo.ListByCustomer(ctx, customerID)
	})
}

func (s *invoiceService) ListInvoicesAfter(ctx context.Context, customerID string, from time.Time) (*dto.ListInvoicesResponse, error) {
	return s.listWithChildren(ctx, func(ctx context.Context) ([]*invoice.Invoice, error) {
		return s.InvoiceRepo.ListByCustomerAfter(ctx, customerID, from)
	})
}

func (s *invoiceService) ListInvoicesBySubscription(ctx context.Context, subscriptionID string) (*dto.ListInvoicesResponse, error) {
	return s.listWithChildren(ctx, func(ctx context.Context) ([]*invoice.Invoice, error) {
		return s.InvoiceRepo.ListBySubscription(ctx, subscriptionID)
	})
}

func (s *invoiceService) GetUnpaidInvoices(ctx context.Context, customerID string, upTo *time.Time) (*dto.ListInvoicesResponse, error) {
	resp, err := s.listWithChildren(ctx, func(ctx context.Context) ([]*invoice.Invoice, error) {
		return s.InvoiceRepo.ListByCustomer(ctx, customerID)
	})
	if err != nil {
		return nil, err
	}

	unpaid := lo.Filter(resp.Items, func(item *dto.InvoiceResponse, _ int) bool {
		if !item.Balance.IsPositive() {
			return false
		}
		return upTo == nil || !item.TargetDate.After(*upTo)
	})
	return &dto.ListInvoicesResponse{Items: unpaid, Total: len(unpaid)}, nil
}

func (s *invoiceService) listWithChildren(ctx context.Context, list func(ctx context.Context) ([]*invoice.Invoice, error)) (*dto.ListInvoicesResponse, error) {
	var invoices []*invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		invoices, err = list(ctx)
		if err != nil {
			return err
		}
		return s.populateChildrenAll(ctx, invoices)
	})
	if err != nil {
		return nil, err
	}
	return dto.NewListInvoicesResponse(invoices), nil
}

func (s *invoiceService) GetInvoiceIDByPaymentID(ctx context.Context, paymentID string) (string, error) {
	return s.InvoiceRepo.GetInvoiceIDByPaymentID(ctx, paymentID)
}

func (s *invoiceService) GetCustomerIDFromPaymentID(ctx context.Context, invoicePaymentID string) (string, error) {
	return s.InvoiceRepo.GetCustomerIDByPaymentID(ctx, invoicePaymentID)
}

func (s *invoiceService) GetPaymentByPaymentID(ctx context.Context, paymentID string) (*invoice.InvoicePayment, error) {
	return s.InvoiceRepo.GetPaymentByPaymentID(ctx, paymentID)
}

func (s *invoiceService) GetChargebackByID(ctx context.Context, invoicePaymentID string) (*invoice.InvoicePayment, error) {
	return s.InvoiceRepo.GetPayment(ctx, invoicePaymentID)
}

func (s *invoiceService) ListChargebacksByCustomer(ctx context.Context, customerID string) ([]*invoice.InvoicePayment, error) {
	return s.InvoiceRepo.ListChargebacksByCustomer(ctx, customerID)
}

func (s *invoiceService) ListChargebacksByPaymentID(ctx context.Context, paymentID string) ([]*invoice.InvoicePayment, error) {
	return s.InvoiceRepo.ListChargebacksByPaymentID(ctx, paymentID)
}

func (s *invoiceService) GetCreditByID(ctx context.Context, creditID string) (*invoice.InvoiceLineItem, error) {
	item, err := s.InvoiceRepo.GetLineItem(ctx, creditID)
	if err != nil {
		return nil, err
	}
	if item.Type != types.InvoiceLineItemTypeCreditAdj {
		return nil, ierr.NewError("credit not found").
			WithHint("Line item exists but is not a credit").
			WithReportableDetails(map[string]any{
				"line_item_id": creditID,
				"type":         string(item.Type),
			}).
			Mark(ierr.ErrNotFound)
	}
	return item, nil
}

func (s *invoiceService) SetWrittenOff(ctx context.Context, invoiceID string) error {
	if _, err := s.InvoiceRepo.Get(ctx, invoiceID); err != nil {
		return err
	}
	return s.TagRepo.AddTag(ctx, types.EntityTypeInvoice, invoiceID, types.ControlTagWrittenOff)
}

func (s *invoiceService) RemoveWrittenOff(ctx context.Context, invoiceID string) error {
	return s.TagRepo.RemoveTag(ctx, types.EntityTypeInvoice, invoiceID, types.ControlTagWrittenOff)
}

func (s *invoiceService) IsWrittenOff(ctx context.Context, invoiceID string) (bool, error) {
	tags, err := s.TagRepo.ListByEntity(ctx, types.EntityTypeInvoice, invoiceID)
	if err != nil {
		return false, err
	}
	return lo.ContainsBy(tags, func(t *tag.Tag) bool {
		return t.TagName == types.ControlTagWrittenOff
	}), nil
}
