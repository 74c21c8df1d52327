package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	baseMixin "github.com/billcraft/billcraft/ent/schema/mixin"
	"github.com/shopspring/decimal"
)

// InvoicePayment holds the schema definition for the InvoicePayment entity.
type InvoicePayment struct {
	ent.Schema
}

// Mixin of the InvoicePayment.
func (InvoicePayment) Mixin() []ent.Mixin {
	return []ent.Mixin{
		baseMixin.BaseMixin{},
		baseMixin.EnvironmentMixin{},
	}
}

// Fields of the InvoicePayment.
func (InvoicePayment) Fields() []ent.Field {
	return []ent.Field{
		// ID of the payment record
		field.String("id").
			SchemaType(map[string]string{
				"postgres": "varchar(50)",
			}).
			Unique().
			Immutable(),

		// Invoice the payment applies to
		field.String("invoice_id").
			SchemaType(map[string]string{
				"postgres": "varchar(50)",
			}).
			NotEmpty().
			Immutable(),

		// Kind of the record (ATTEMPT, REFUND, CHARGED_BACK)
		field.String("payment_type").
			SchemaType(map[string]string{
				"postgres": "varchar(30)",
			}).
			NotEmpty().
			Immutable(),

		// Identifier assigned by the external payment system
		field.String("payment_id").
			SchemaType(map[string]string{
				"postgres": "varchar(50)",
			}).
			Optional().
			Nillable(),

		// When the money moved
		field.Time("payment_date").
			Immutable(),

		// Signed amount, positive for attempts, negative for reversals
		field.Other("amount", decimal.Decimal{}).
			SchemaType(map[string]string{
				"postgres": "numeric(20,8)",
			}).
			Default(decimal.Zero),

		// ISO currency code, matches the owning invoice
		field.String("currency").
			SchemaType(map[string]string{
				"postgres": "varchar(10)",
			}).
			NotEmpty().
			Immutable(),

		// Caller supplied retry token, refunds only
		field.String("payment_cookie_id").
			SchemaType(map[string]string{
				"postgres": "varchar(255)",
			}).
			Optional().
			Nillable(),

		// Payment record a reversal points back to
		field.String("linked_invoice_payment_id").
			SchemaType(map[string]string{
				"postgres": "varchar(50)",
			}).
			Optional().
			Nillable(),
	}
}

// Edges of the InvoicePayment.
func (InvoicePayment) Edges() []ent.Edge {
	return nil
}

// Indexes of the InvoicePayment.
func (InvoicePayment) Indexes() []ent.Index {
	return []ent.Index{
		// Index for loading the payments of an invoice
		index.Fields("tenant_id", "environment_id", "invoice_id").
			StorageKey("idx_invoice_payments_tenant_env_invoice"),
		// Index for resolving a record from the external payment id
		index.Fields("tenant_id", "environment_id", "payment_id").
			StorageKey("idx_invoice_payments_tenant_env_payment_id"),
		// Index for refund retry lookups
		index.Fields("tenant_id", "environment_id", "payment_cookie_id").
			StorageKey("idx_invoice_payments_tenant_env_cookie"),
		// Index for walking reversals of a payment
		index.Fields("tenant_id", "environment_id", "linked_invoice_payment_id").
			StorageKey("idx_invoice_payments_tenant_env_linked"),
	}
}
