package testutil

import (
	"context"

	"github.com/billcraft/billcraft/internal/postgres"
	"github.com/billcraft/billcraft/internal/types"
)

// TestDBClient is a postgres.IClient for service tests backed by in-memory
// stores. WithTx just runs fn: the fakes are not transactional, tests assert
// on end state. LockKey is a no-op since there is nothing to serialize.
type TestDBClient struct{}

func NewTestDBClient() *TestDBClient {
	return &TestDBClient{}
}

func (c *TestDBClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (c *TestDBClient) Querier(_ context.Context) postgres.Querier {
	return nil
}

func (c *TestDBClient) LockKey(_ context.Context, _ types.LockRequest) error {
	return nil
}
