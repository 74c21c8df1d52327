package types

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// LockScope represents the scope of a database advisory lock
type LockScope string

const (
	// LockScopeInvoicePayment serializes refund/chargeback mutations that
	// race on the same payment or idempotency cookie
	LockScopeInvoicePayment LockScope = "invoice_payment"
)

// DefaultLockTimeout is applied when a LockRequest carries no timeout
const DefaultLockTimeout = 30 * time.Second

// LockRequest describes an advisory lock to take inside a transaction
type LockRequest struct {
	Key     string
	Timeout *time.Duration
}

func (r LockRequest) GetTimeout() time.Duration {
	if r.Timeout == nil {
		return DefaultLockTimeout
	}
	return *r.Timeout
}

// GenerateLockKey generates a lock key from a scope and parameters.
// Automatically extracts tenant_id and environment_id from context and includes them in the key.
// The key is a deterministic string that Postgres will hash internally.
func GenerateLockKey(ctx context.Context, scope LockScope, params map[string]interface{}) string {
	tenantID := GetTenantID(ctx)
	environmentID := GetEnvironmentID(ctx)

	// User-provided params override context values if the same key is provided
	mergedParams := make(map[string]interface{})
	if tenantID != "" {
		mergedParams["tenant_id"] = tenantID
	}
	if environmentID != "" {
		mergedParams["environment_id"] = environmentID
	}
	for k, v := range params {
		mergedParams[k] = v
	}

	// Sort params for consistent ordering
	keys := make([]string, 0, len(mergedParams))
	for k := range mergedParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Build string in format: scope:key1=value1:key2=value2:...
	// Not hashed here, Postgres hashtext() hashes it internally.
	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, mergedParams[k]))
	}

	return b.String()
}
