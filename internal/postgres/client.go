package postgres

import (
	"context"
	"database/sql"

	"github.com/billcraft/billcraft/internal/config"
	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/logger"
	"github.com/billcraft/billcraft/internal/types"
	_ "github.com/lib/pq"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories only ever talk to a Querier, so the same method joins the
// caller's transaction when one is carried by the context.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// IClient is the database client handed to repositories and services
type IClient interface {
	// WithTx runs fn inside a transaction. The transaction handle travels in
	// the derived context; nested calls join the same transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// Querier returns the transaction from ctx when present, else the pool
	Querier(ctx context.Context) Querier
	// LockKey acquires an advisory lock scoped to the current transaction
	LockKey(ctx context.Context, req types.LockRequest) error
}

// Client implements IClient over database/sql with the lib/pq driver
type Client struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewClient opens a connection pool from configuration
func NewClient(cfg *config.Configuration, log *logger.Logger) (*Client, error) {
	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to open postgres connection").
			Mark(ierr.ErrDatabase)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)

	return &Client{db: db, logger: log}, nil
}

// NewClientFromDB wraps an existing pool, used by tests and scripts
func NewClientFromDB(db *sql.DB, log *logger.Logger) *Client {
	return &Client{db: db, logger: log}
}

// TxFromContext returns the transaction carried by ctx, or nil
func (c *Client) TxFromContext(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(types.CtxDBTransaction).(*sql.Tx); ok {
		return tx
	}
	return nil
}

func (c *Client) Querier(ctx context.Context) Querier {
	if tx := c.TxFromContext(ctx); tx != nil {
		return tx
	}
	return c.db
}

func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested WithTx joins the ongoing transaction instead of opening a new one
	if tx := c.TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to begin transaction").
			Mark(ierr.ErrDatabase)
	}

	txCtx := context.WithValue(ctx, types.CtxDBTransaction, tx)

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Errorw("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit transaction").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

// Close closes the underlying pool
func (c *Client) Close() error {
	return c.db.Close()
}
