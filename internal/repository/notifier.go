package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/billcraft/billcraft/internal/domain/notification"
	"github.com/billcraft/billcraft/internal/idempotency"
	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/logger"
	"github.com/billcraft/billcraft/internal/postgres"
	"github.com/billcraft/billcraft/internal/types"
)

type billingCycleNotifier struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewBillingCycleNotifier persists scheduled billing notifications. The
// unique index on (customer, subscription, notify_at) drops duplicates, so
// retried invoice creation never double-schedules a billing run.
func NewBillingCycleNotifier(db postgres.IClient, log *logger.Logger) notification.BillingCycleNotifier {
	return &billingCycleNotifier{db: db, logger: log}
}

func (n *billingCycleNotifier) ScheduleNextBillingNotification(ctx context.Context, customerID, subscriptionID string, at time.Time) error {
	// Deterministic id: retried scheduling produces the same row, and the
	// unique index turns the retry into a no-op.
	generator := idempotency.NewGenerator()
	id := fmt.Sprintf("%s_%s", types.UUID_PREFIX_BILLING_NOTIFICATION,
		generator.GenerateKey(idempotency.ScopeBillingNotify, map[string]interface{}{
			"tenant_id":       types.GetTenantID(ctx),
			"environment_id":  types.GetEnvironmentID(ctx),
			"customer_id":     customerID,
			"subscription_id": subscriptionID,
			"notify_at":       at.UTC(),
		}))
	base := types.GetDefaultBaseModel(ctx)

	res, err := n.db.Querier(ctx).ExecContext(ctx, `
		INSERT INTO billing_notifications (id, customer_id, subscription_id, notify_at,
			tenant_id, environment_id, status, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tenant_id, environment_id, customer_id, subscription_id, notify_at) DO NOTHING`,
		id, customerID, subscriptionID, at,
		base.TenantID, types.GetEnvironmentID(ctx), string(base.Status),
		base.CreatedAt, base.UpdatedAt, base.CreatedBy, base.UpdatedBy)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to schedule billing notification").
			WithReportableDetails(map[string]any{
				"customer_id":     customerID,
				"subscription_id": subscriptionID,
				"notify_at":       at,
			}).
			Mark(ierr.ErrDatabase)
	}

	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		n.logger.Debugw("billing notification scheduled",
			"customer_id", customerID,
			"subscription_id", subscriptionID,
			"notify_at", at)
	}
	return nil
}
