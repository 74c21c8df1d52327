package types

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_INVOICE              = "inv"
	UUID_PREFIX_INVOICE_LINE_ITEM    = "inv_line"
	UUID_PREFIX_INVOICE_PAYMENT      = "inv_pay"
	UUID_PREFIX_TAG                  = "tag"
	UUID_PREFIX_WEBHOOK_EVENT        = "webhook_evt"
	UUID_PREFIX_BILLING_NOTIFICATION = "bill_notif"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with an entity prefix, ex inv_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}
