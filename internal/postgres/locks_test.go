package postgres

import (
	"context"
	"testing"

	"github.com/billcraft/billcraft/internal/config"
	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/logger"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	log, err := logger.NewLogger(config.GetDefaultConfig())
	require.NoError(t, err)
	return NewClientFromDB(nil, log)
}

func TestLockKeyRequiresTransaction(t *testing.T) {
	c := newTestClient(t)

	err := c.LockKey(context.Background(), types.LockRequest{Key: "lock-1"})
	assert.True(t, ierr.IsInternal(err))
}

func TestTryLockKeyRequiresTransaction(t *testing.T) {
	c := newTestClient(t)

	held, err := c.TryLockKey(context.Background(), "lock-1")
	assert.False(t, held)
	assert.True(t, ierr.IsInternal(err))
}
