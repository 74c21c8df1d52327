package notification

import (
	"context"
	"time"
)

// BillingCycleNotifier schedules the next billing-cycle notification for a
// subscription. Implementations must be idempotent on
// (customer, subscription, date): duplicate requests for the same triple are
// suppressed by the notifier, not by the invoicing engine.
type BillingCycleNotifier interface {
	ScheduleNextBillingNotification(ctx context.Context, customerID, subscriptionID string, at time.Time) error
}
