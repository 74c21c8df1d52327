package types

import (
	"encoding/json"
	"time"
)

// Webhook event names published by the invoicing services
const (
	WebhookEventInvoiceCreated           = "invoice.created"
	WebhookEventInvoicePaymentReceived   = "invoice.payment.received"
	WebhookEventInvoiceRefundCreated     = "invoice.payment.refund.created"
	WebhookEventInvoiceChargebackCreated = "invoice.payment.chargeback.created"
	WebhookEventInvoiceCreditCreated     = "invoice.credit.created"
)

// WebhookEvent is the envelope handed to the webhook publisher
type WebhookEvent struct {
	ID            string          `json:"id"`
	EventName     string          `json:"event_name"`
	TenantID      string          `json:"tenant_id"`
	EnvironmentID string          `json:"environment_id"`
	UserID        string          `json:"user_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}
