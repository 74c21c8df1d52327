// Package idempotency generates deterministic keys for operations that may
// be retried. The same scope and parameters always produce the same key.
package idempotency

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Scope namespaces idempotency keys per operation kind
type Scope string

const (
	ScopePaymentRefund  Scope = "payment_refund"
	ScopeInvoicePayment Scope = "invoice_payment"
	ScopeBillingNotify  Scope = "billing_notify"
	ScopeOneOffInvoice  Scope = "oneoff_invoice"
)

// Generator generates idempotency keys
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateKey builds a deterministic key from a scope and parameters.
// Parameters are sorted by name so map iteration order never changes the key.
func (g *Generator) GenerateKey(scope Scope, params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
