package service

import (
	"context"
	"encoding/json"

	"github.com/billcraft/billcraft/internal/clock"
	"github.com/billcraft/billcraft/internal/config"
	"github.com/billcraft/billcraft/internal/domain/invoice"
	"github.com/billcraft/billcraft/internal/domain/notification"
	"github.com/billcraft/billcraft/internal/domain/tag"
	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/logger"
	"github.com/billcraft/billcraft/internal/postgres"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/billcraft/billcraft/internal/webhook/publisher"
	"github.com/shopspring/decimal"
)

// ServiceParams bundles the dependencies shared by all services. Services
// embed it so construction stays uniform and tests can swap any collaborator.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	InvoiceRepo invoice.Repository
	TagRepo     tag.Repository
	Notifier    notification.BillingCycleNotifier

	WebhookPublisher publisher.WebhookPublisher
	Clock            clock.Clock
}

// now returns the injected clock's time, falling back to a real clock so a
// zero-value params struct stays usable in scripts
func (p ServiceParams) now() clock.Clock {
	if p.Clock != nil {
		return p.Clock
	}
	return clock.New()
}

// getInvoiceWithChildren loads an invoice row and attaches its line items
// and payments. Services never hand out a bare invoice: balance and CBA are
// only meaningful on the full aggregate.
func (p ServiceParams) getInvoiceWithChildren(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := p.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.populateChildren(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (p ServiceParams) populateChildren(ctx context.Context, inv *invoice.Invoice) error {
	items, err := p.InvoiceRepo.GetLineItemsByInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	payments, err := p.InvoiceRepo.GetPaymentsByInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	inv.LineItems = items
	inv.Payments = payments
	return nil
}

func (p ServiceParams) populateChildrenAll(ctx context.Context, invoices []*invoice.Invoice) error {
	for _, inv := range invoices {
		if err := p.populateChildren(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}

// accountCBA is the account-wide credit balance: the sum of every
// CREDIT_BALANCE_ADJ item across the customer's invoices. Positive means
// credit is available to consume.
func (p ServiceParams) accountCBA(ctx context.Context, customerID string) (decimal.Decimal, error) {
	invoices, err := p.InvoiceRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	cba := decimal.Zero
	for _, inv := range invoices {
		items, err := p.InvoiceRepo.GetLineItemsByInvoice(ctx, inv.ID)
		if err != nil {
			return decimal.Zero, err
		}
		for _, item := range items {
			if item.Type == types.InvoiceLineItemTypeCreditBalanceAdj {
				cba = cba.Add(item.Amount)
			}
		}
	}
	return cba, nil
}

// publishWebhookEvent publishes a webhook after the surrounding transaction
// has committed. Publish failures are logged, never surfaced: the mutation
// already happened.
func (p ServiceParams) publishWebhookEvent(ctx context.Context, eventName string, payload any) {
	if p.WebhookPublisher == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.Logger.Errorw("failed to marshal webhook payload",
			"event_name", eventName,
			"error", err)
		return
	}

	event := &types.WebhookEvent{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName:     eventName,
		TenantID:      types.GetTenantID(ctx),
		EnvironmentID: types.GetEnvironmentID(ctx),
		UserID:        types.GetUserID(ctx),
		Timestamp:     p.now().Now(),
		Payload:       data,
	}

	if err := p.WebhookPublisher.PublishWebhook(ctx, event); err != nil {
		p.Logger.Errorw("failed to publish webhook event",
			"event_name", eventName,
			"event_id", event.ID,
			"error", err)
	}
}

// validateCurrencyMatch rejects cross-currency mutations against an invoice
func validateCurrencyMatch(invoiceCurrency, requestCurrency string) error {
	if requestCurrency != "" && requestCurrency != invoiceCurrency {
		return ierr.NewError("currency mismatch").
			WithHint("Request currency must match the invoice currency").
			WithReportableDetails(map[string]any{
				"invoice_currency": invoiceCurrency,
				"request_currency": requestCurrency,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
