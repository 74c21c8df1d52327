package postgres

import (
	"context"
	"errors"
	"fmt"

	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/lib/pq"
)

// lockTimeoutCode is the Postgres class 55 code raised when lock_timeout
// expires while waiting on pg_advisory_xact_lock
const lockTimeoutCode = "55P03"

// LockKey takes a transaction-scoped advisory lock on the request key.
// Postgres releases it with the surrounding commit or rollback, so there is
// no unlock path. A non-positive timeout means fail fast instead of waiting.
func (c *Client) LockKey(ctx context.Context, req types.LockRequest) error {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return ierr.NewError("advisory lock requested outside a transaction").
			WithHint("LockKey requires an open transaction").
			Mark(ierr.ErrInternal)
	}

	timeout := req.GetTimeout()
	if timeout <= 0 {
		held, err := c.TryLockKey(ctx, req.Key)
		if err != nil {
			return err
		}
		if !held {
			return ierr.NewError("lock already held").
				WithHint("Another request is mutating the same resource").
				WithReportableDetails(map[string]any{"lock_key": req.Key}).
				Mark(ierr.ErrInvalidOperation)
		}
		return nil
	}

	// SET LOCAL is transaction-scoped, so the session's lock_timeout is
	// untouched once the transaction ends
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", timeout.Milliseconds())); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to set lock timeout").
			Mark(ierr.ErrDatabase)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, req.Key); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == lockTimeoutCode {
			return ierr.WithError(err).
				WithHintf("Could not acquire lock within %s", timeout).
				WithReportableDetails(map[string]any{"lock_key": req.Key}).
				Mark(ierr.ErrInvalidOperation)
		}
		return ierr.WithError(err).
			WithHint("Failed to acquire advisory lock").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

// TryLockKey attempts the lock without waiting and reports whether it was
// acquired. Must run inside a transaction like LockKey.
func (c *Client) TryLockKey(ctx context.Context, key string) (bool, error) {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return false, ierr.NewError("advisory lock requested outside a transaction").
			WithHint("TryLockKey requires an open transaction").
			Mark(ierr.ErrInternal)
	}

	var held bool
	if err := tx.QueryRowContext(ctx, `SELECT pg_try_advisory_xact_lock(hashtext($1))`, key).Scan(&held); err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to try advisory lock").
			Mark(ierr.ErrDatabase)
	}
	return held, nil
}
