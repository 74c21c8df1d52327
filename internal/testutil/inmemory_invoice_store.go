package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/billcraft/billcraft/internal/domain/invoice"
	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	invoices *InMemoryStore[*invoice.Invoice]
	items    *InMemoryStore[*invoice.InvoiceLineItem]
	payments *InMemoryStore[*invoice.InvoicePayment]

	mu         sync.Mutex
	nextNumber int64
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		invoices: NewInMemoryStore[*invoice.Invoice](),
		items:    NewInMemoryStore[*invoice.InvoiceLineItem](),
		payments: NewInMemoryStore[*invoice.InvoicePayment](),
	}
}

// Clear drops all stored rows
func (s *InMemoryInvoiceStore) Clear() {
	s.invoices.Clear()
	s.items.Clear()
	s.payments.Clear()
	s.mu.Lock()
	s.nextNumber = 0
	s.mu.Unlock()
}

// LineItemCount reports stored line item rows, used to assert idempotency
func (s *InMemoryInvoiceStore) LineItemCount() int {
	return s.items.Count()
}

// PaymentCount reports stored payment rows
func (s *InMemoryInvoiceStore) PaymentCount() int {
	return s.payments.Count()
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	copied := *inv
	copied.LineItems = nil
	copied.Payments = nil
	if inv.InvoiceNumber != nil {
		copied.InvoiceNumber = lo.ToPtr(*inv.InvoiceNumber)
	}
	return &copied
}

func copyLineItem(item *invoice.InvoiceLineItem) *invoice.InvoiceLineItem {
	if item == nil {
		return nil
	}
	copied := *item
	return &copied
}

func copyPayment(p *invoice.InvoicePayment) *invoice.InvoicePayment {
	if p == nil {
		return nil
	}
	copied := *p
	return &copied
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			WithHint("Invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	s.nextNumber++
	inv.InvoiceNumber = lo.ToPtr(s.nextNumber)
	s.mu.Unlock()

	return s.invoices.Create(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("invoice not found").
			WithHint("Invoice does not exist").
			WithReportableDetails(map[string]any{
				"invoice_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) GetByNumber(ctx context.Context, number int64) (*invoice.Invoice, error) {
	matches := s.invoices.List(ctx, func(_ context.Context, inv *invoice.Invoice) bool {
		return inv.InvoiceNumber != nil && *inv.InvoiceNumber == number
	})
	if len(matches) == 0 {
		return nil, ierr.NewError("invoice not found").
			WithHint("No invoice carries this number").
			WithReportableDetails(map[string]any{
				"invoice_number": number,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(matches[0]), nil
}

func (s *InMemoryInvoiceStore) ListByCustomer(ctx context.Context, customerID string) ([]*invoice.Invoice, error) {
	matches := s.invoices.List(ctx, func(_ context.Context, inv *invoice.Invoice) bool {
		return inv.CustomerID == customerID
	})
	return lo.Map(matches, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return copyInvoice(inv)
	}), nil
}

func (s *InMemoryInvoiceStore) ListByCustomerAfter(ctx context.Context, customerID string, from time.Time) ([]*invoice.Invoice, error) {
	matches := s.invoices.List(ctx, func(_ context.Context, inv *invoice.Invoice) bool {
		return inv.CustomerID == customerID && !inv.TargetDate.Before(from)
	})
	return lo.Map(matches, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return copyInvoice(inv)
	}), nil
}

func (s *InMemoryInvoiceStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*invoice.Invoice, error) {
	withSubscription := make(map[string]bool)
	for _, item := range s.items.List(ctx, nil) {
		if lo.FromPtr(item.SubscriptionID) == subscriptionID {
			withSubscription[item.InvoiceID] = true
		}
	}
	matches := s.invoices.List(ctx, func(_ context.Context, inv *invoice.Invoice) bool {
		return withSubscription[inv.ID]
	})
	return lo.Map(matches, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return copyInvoice(inv)
	}), nil
}

func (s *InMemoryInvoiceStore) CreateLineItems(ctx context.Context, items []*invoice.InvoiceLineItem) error {
	for _, item := range items {
		if err := s.CreateLineItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemoryInvoiceStore) CreateLineItem(ctx context.Context, item *invoice.InvoiceLineItem) error {
	if item == nil {
		return ierr.NewError("line item cannot be nil").
			WithHint("Line item cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.items.Create(ctx, item.ID, copyLineItem(item))
}

func (s *InMemoryInvoiceStore) GetLineItem(ctx context.Context, id string) (*invoice.InvoiceLineItem, error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("invoice line item not found").
			WithHint("Line item does not exist").
			WithReportableDetails(map[string]any{
				"line_item_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyLineItem(item), nil
}

func (s *InMemoryInvoiceStore) GetLineItemsByInvoice(ctx context.Context, invoiceID string) ([]*invoice.InvoiceLineItem, error) {
	matches := s.items.List(ctx, func(_ context.Context, item *invoice.InvoiceLineItem) bool {
		return item.InvoiceID == invoiceID
	})
	return lo.Map(matches, func(item *invoice.InvoiceLineItem, _ int) *invoice.InvoiceLineItem {
		return copyLineItem(item)
	}), nil
}

func (s *InMemoryInvoiceStore) CreatePayment(ctx context.Context, p *invoice.InvoicePayment) error {
	if p == nil {
		return ierr.NewError("payment cannot be nil").
			WithHint("Payment cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.payments.Create(ctx, p.ID, copyPayment(p))
}

func (s *InMemoryInvoiceStore) GetPayment(ctx context.Context, id string) (*invoice.InvoicePayment, error) {
	p, err := s.payments.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("invoice payment not found").
			WithHint("Payment record does not exist").
			WithReportableDetails(map[string]any{
				"invoice_payment_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyPayment(p), nil
}

func (s *InMemoryInvoiceStore) GetPaymentByPaymentID(ctx context.Context, paymentID string) (*invoice.InvoicePayment, error) {
	matches := s.payments.List(ctx, func(_ context.Context, p *invoice.InvoicePayment) bool {
		return p.PaymentType == types.InvoicePaymentTypeAttempt && lo.FromPtr(p.PaymentID) == paymentID
	})
	if len(matches) == 0 {
		return nil, ierr.NewError("invoice payment not found").
			WithHint("No payment attempt carries this payment id").
			WithReportableDetails(map[string]any{
				"payment_id": paymentID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyPayment(matches[0]), nil
}

func (s *InMemoryInvoiceStore) GetPaymentByCookie(ctx context.Context, paymentCookieID string) (*invoice.InvoicePayment, error) {
	matches := s.payments.List(ctx, func(_ context.Context, p *invoice.InvoicePayment) bool {
		return lo.FromPtr(p.PaymentCookieID) == paymentCookieID
	})
	if len(matches) == 0 {
		return nil, ierr.NewError("invoice payment not found").
			WithHint("No payment carries this cookie").
			WithReportableDetails(map[string]any{
				"payment_cookie_id": paymentCookieID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyPayment(matches[0]), nil
}

func (s *InMemoryInvoiceStore) GetPaymentsByInvoice(ctx context.Context, invoiceID string) ([]*invoice.InvoicePayment, error) {
	matches := s.payments.List(ctx, func(_ context.Context, p *invoice.InvoicePayment) bool {
		return p.InvoiceID == invoiceID
	})
	return lo.Map(matches, func(p *invoice.InvoicePayment, _ int) *invoice.InvoicePayment {
		return copyPayment(p)
	}), nil
}

func (s *InMemoryInvoiceStore) GetRemainingAmountPaid(ctx context.Context, invoicePaymentID string) (decimal.Decimal, error) {
	remaining := decimal.Zero
	for _, p := range s.payments.List(ctx, nil) {
		if p.ID == invoicePaymentID || lo.FromPtr(p.LinkedPaymentID) == invoicePaymentID {
			remaining = remaining.Add(p.Amount)
		}
	}
	return remaining, nil
}

func (s *InMemoryInvoiceStore) GetInvoiceIDByPaymentID(ctx context.Context, paymentID string) (string, error) {
	p, err := s.GetPaymentByPaymentID(ctx, paymentID)
	if err != nil {
		return "", err
	}
	return p.InvoiceID, nil
}

func (s *InMemoryInvoiceStore) GetCustomerIDByPaymentID(ctx context.Context, invoicePaymentID string) (string, error) {
	p, err := s.GetPayment(ctx, invoicePaymentID)
	if err != nil {
		return "", err
	}
	inv, err := s.Get(ctx, p.InvoiceID)
	if err != nil {
		return "", err
	}
	return inv.CustomerID, nil
}

func (s *InMemoryInvoiceStore) ListChargebacksByCustomer(ctx context.Context, customerID string) ([]*invoice.InvoicePayment, error) {
	byCustomer := make(map[string]bool)
	for _, inv := range s.invoices.List(ctx, nil) {
		if inv.CustomerID == customerID {
			byCustomer[inv.ID] = true
		}
	}
	matches := s.payments.List(ctx, func(_ context.Context, p *invoice.InvoicePayment) bool {
		return p.PaymentType == types.InvoicePaymentTypeChargeback && byCustomer[p.InvoiceID]
	})
	return lo.Map(matches, func(p *invoice.InvoicePayment, _ int) *invoice.InvoicePayment {
		return copyPayment(p)
	}), nil
}

func (s *InMemoryInvoiceStore) ListChargebacksByPaymentID(ctx context.Context, paymentID string) ([]*invoice.InvoicePayment, error) {
	attempts := make(map[string]bool)
	for _, p := range s.payments.List(ctx, nil) {
		if p.PaymentType == types.InvoicePaymentTypeAttempt && lo.FromPtr(p.PaymentID) == paymentID {
			attempts[p.ID] = true
		}
	}
	matches := s.payments.List(ctx, func(_ context.Context, p *invoice.InvoicePayment) bool {
		return p.PaymentType == types.InvoicePaymentTypeChargeback && attempts[lo.FromPtr(p.LinkedPaymentID)]
	})
	return lo.Map(matches, func(p *invoice.InvoicePayment, _ int) *invoice.InvoicePayment {
		return copyPayment(p)
	}), nil
}
