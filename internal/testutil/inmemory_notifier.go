package testutil

import (
	"context"
	"sync"
	"time"
)

// ScheduledNotification records a billing notification request made by the
// invoicing engine during a test.
type ScheduledNotification struct {
	CustomerID     string
	SubscriptionID string
	NotifyAt       time.Time
}

// InMemoryBillingNotifier implements notification.BillingCycleNotifier,
// dropping duplicates for the same (customer, subscription, date) just like
// the persistent notifier does.
type InMemoryBillingNotifier struct {
	mu       sync.Mutex
	seen     map[ScheduledNotification]bool
	Requests []ScheduledNotification
}

func NewInMemoryBillingNotifier() *InMemoryBillingNotifier {
	return &InMemoryBillingNotifier{
		seen: make(map[ScheduledNotification]bool),
	}
}

func (n *InMemoryBillingNotifier) ScheduleNextBillingNotification(_ context.Context, customerID, subscriptionID string, at time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	req := ScheduledNotification{
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		NotifyAt:       at,
	}
	if n.seen[req] {
		return nil
	}
	n.seen[req] = true
	n.Requests = append(n.Requests, req)
	return nil
}

// Scheduled returns the accepted notifications in order
func (n *InMemoryBillingNotifier) Scheduled() []ScheduledNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]ScheduledNotification, len(n.Requests))
	copy(out, n.Requests)
	return out
}

// Clear drops recorded notifications
func (n *InMemoryBillingNotifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = make(map[ScheduledNotification]bool)
	n.Requests = nil
}
