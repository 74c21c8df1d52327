package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	baseMixin "github.com/billcraft/billcraft/ent/schema/mixin"
	"github.com/shopspring/decimal"
)

// InvoiceItem holds the schema definition for the InvoiceItem entity.
type InvoiceItem struct {
	ent.Schema
}

// Annotations of the InvoiceItem.
func (InvoiceItem) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "invoice_line_items"},
	}
}

// Mixin of the InvoiceItem.
func (InvoiceItem) Mixin() []ent.Mixin {
	return []ent.Mixin{
		baseMixin.BaseMixin{},
		baseMixin.EnvironmentMixin{},
	}
}

// Fields of the InvoiceItem.
func (InvoiceItem) Fields() []ent.Field {
	return []ent.Field{
		// ID of the invoice item
		field.String("id").
			SchemaType(map[string]string{
				"postgres": "varchar(50)",
			}).
			Unique().
			Immutable(),

		// Invoice the item belongs to
		field.String("invoice_id").
			SchemaType(map[string]string{
				"postgres": "varchar(50)",
			}).
			NotEmpty().
			Immutable(),

		// Customer the owning invoice belongs to, denormalized for account rollups
		field.String("customer_id").
			SchemaType(map[string]string{
				"postgres": "varchar(50)",
			}).
			NotEmpty().
			Immutable(),

		// Kind of the item (RECURRING, FIXED, CREDIT_ADJ, CREDIT_BALANCE_ADJ, REFUND_ADJ)
		field.String("item_type").
			SchemaType(map[string]string{
				"postgres": "varchar(30)",
			}).
			NotEmpty().
			Immutable(),

		// Subscription that produced the item, recurring items only
		field.String("subscription_id").
			SchemaType(map[string]string{
				"postgres": "varchar(50)",
			}).
			Optional().
			Nillable(),

		// Plan name that produced the item, recurring items only
		field.String("plan_name").
			SchemaType(map[string]string{
				"postgres": "varchar(255)",
			}).
			Optional().
			Nillable(),

		// Start of the service period covered by the item
		field.Time("start_date").
			Immutable(),

		// End of the service period, recurring items only
		field.Time("end_date").
			Optional().
			Nillable().
			Immutable(),

		// Signed item amount
		field.Other("amount", decimal.Decimal{}).
			SchemaType(map[string]string{
				"postgres": "numeric(20,8)",
			}).
			Default(decimal.Zero),

		// Unit rate for recurring items
		field.Other("rate", decimal.Decimal{}).
			SchemaType(map[string]string{
				"postgres": "numeric(20,8)",
			}).
			Optional().
			Default(decimal.Zero),

		// ISO currency code, matches the owning invoice
		field.String("currency").
			SchemaType(map[string]string{
				"postgres": "varchar(10)",
			}).
			NotEmpty().
			Immutable(),
	}
}

// Edges of the InvoiceItem.
func (InvoiceItem) Edges() []ent.Edge {
	return nil
}

// Indexes of the InvoiceItem.
func (InvoiceItem) Indexes() []ent.Index {
	return []ent.Index{
		// Index for loading the items of an invoice
		index.Fields("tenant_id", "environment_id", "invoice_id").
			StorageKey("idx_invoice_items_tenant_env_invoice"),
		// Index for account level credit rollups
		index.Fields("tenant_id", "environment_id", "customer_id", "item_type").
			StorageKey("idx_invoice_items_tenant_env_customer_type"),
	}
}
