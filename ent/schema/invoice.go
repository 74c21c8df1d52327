package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	baseMixin "github.com/billcraft/billcraft/ent/schema/mixin"
)

// Invoice holds the schema definition for the Invoice entity.
type Invoice struct {
	ent.Schema
}

// Mixin of the Invoice.
func (Invoice) Mixin() []ent.Mixin {
	return []ent.Mixin{
		baseMixin.BaseMixin{},
		baseMixin.EnvironmentMixin{},
	}
}

// Fields of the Invoice.
func (Invoice) Fields() []ent.Field {
	return []ent.Field{
		// ID of the invoice
		field.String("id").
			SchemaType(map[string]string{
				"postgres": "varchar(50)",
			}).
			Unique().
			Immutable(),

		// Human facing sequential number, assigned by the database
		field.Int64("invoice_number").
			SchemaType(map[string]string{
				"postgres": "bigserial",
			}).
			Optional().
			Nillable().
			Immutable(),

		// Customer the invoice belongs to
		field.String("customer_id").
			SchemaType(map[string]string{
				"postgres": "varchar(50)",
			}).
			NotEmpty().
			Immutable(),

		// ISO currency code shared by all children of the invoice
		field.String("currency").
			SchemaType(map[string]string{
				"postgres": "varchar(10)",
			}).
			NotEmpty().
			Immutable(),

		// Date the invoice was generated
		field.Time("invoice_date").
			Immutable(),

		// Date up to which charges were computed
		field.Time("target_date").
			Immutable(),
	}
}

// Edges of the Invoice.
func (Invoice) Edges() []ent.Edge {
	return nil
}

// Indexes of the Invoice.
func (Invoice) Indexes() []ent.Index {
	return []ent.Index{
		// Index for listing invoices of a customer
		index.Fields("tenant_id", "environment_id", "customer_id").
			StorageKey("idx_invoices_tenant_env_customer"),
		// Index for range queries over target dates
		index.Fields("tenant_id", "environment_id", "customer_id", "target_date").
			StorageKey("idx_invoices_tenant_env_customer_target_date"),
	}
}
