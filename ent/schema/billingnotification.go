package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	baseMixin "github.com/billcraft/billcraft/ent/schema/mixin"
)

// BillingNotification holds the schema definition for the BillingNotification entity.
type BillingNotification struct {
	ent.Schema
}

// Mixin of the BillingNotification.
func (BillingNotification) Mixin() []ent.Mixin {
	return []ent.Mixin{
		baseMixin.BaseMixin{},
		baseMixin.EnvironmentMixin{},
	}
}

// Fields of the BillingNotification.
func (BillingNotification) Fields() []ent.Field {
	return []ent.Field{
		// ID of the scheduled notification
		field.String("id").
			SchemaType(map[string]string{
				"postgres": "varchar(50)",
			}).
			Unique().
			Immutable(),

		// Customer the next billing run is for
		field.String("customer_id").
			SchemaType(map[string]string{
				"postgres": "varchar(50)",
			}).
			NotEmpty().
			Immutable(),

		// Subscription that triggered the schedule
		field.String("subscription_id").
			SchemaType(map[string]string{
				"postgres": "varchar(50)",
			}).
			NotEmpty().
			Immutable(),

		// When the next billing run should fire
		field.Time("notify_at").
			Immutable(),
	}
}

// Edges of the BillingNotification.
func (BillingNotification) Edges() []ent.Edge {
	return nil
}

// Indexes of the BillingNotification.
func (BillingNotification) Indexes() []ent.Index {
	return []ent.Index{
		// One pending notification per customer, subscription and date
		index.Fields("tenant_id", "environment_id", "customer_id", "subscription_id", "notify_at").
			Unique().
			StorageKey("idx_billing_notifications_tenant_env_customer_sub_at"),
	}
}
