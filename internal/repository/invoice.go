package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/billcraft/billcraft/internal/domain/invoice"
	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/logger"
	"github.com/billcraft/billcraft/internal/postgres"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/shopspring/decimal"
)

type invoiceRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewInvoiceRepository builds the ledger store over the shared database
// client. Every query joins the transaction carried by ctx when one is open.
func NewInvoiceRepository(db postgres.IClient, log *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: log}
}

const invoiceColumns = `id, invoice_number, customer_id, currency, invoice_date, target_date,
	tenant_id, environment_id, status, created_at, updated_at, created_by, updated_by`

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	q := r.db.Querier(ctx)

	// invoice_number comes back from the sequence so callers see the
	// assigned ordinal immediately
	err := q.QueryRowContext(ctx, `
		INSERT INTO invoices (id, customer_id, currency, invoice_date, target_date,
			tenant_id, environment_id, status, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING invoice_number`,
		inv.ID, inv.CustomerID, inv.Currency, inv.InvoiceDate, inv.TargetDate,
		inv.TenantID, inv.EnvironmentID, string(inv.Status),
		inv.CreatedAt, inv.UpdatedAt, inv.CreatedBy, inv.UpdatedBy,
	).Scan(&inv.InvoiceNumber)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create invoice").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	row := r.db.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id = $1 AND tenant_id = $2 AND environment_id = $3`,
		id, types.GetTenantID(ctx), types.GetEnvironmentID(ctx))

	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("invoice not found").
				WithHint("Invoice does not exist").
				WithReportableDetails(map[string]any{
					"invoice_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}
	return inv, nil
}

func (r *invoiceRepository) GetByNumber(ctx context.Context, number int64) (*invoice.Invoice, error) {
	row := r.db.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE invoice_number = $1 AND tenant_id = $2 AND environment_id = $3`,
		number, types.GetTenantID(ctx), types.GetEnvironmentID(ctx))

	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("invoice not found").
				WithHint("No invoice carries this number").
				WithReportableDetails(map[string]any{
					"invoice_number": number,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice by number").
			Mark(ierr.ErrDatabase)
	}
	return inv, nil
}

func (r *invoiceRepository) ListByCustomer(ctx context.Context, customerID string) ([]*invoice.Invoice, error) {
	return r.listInvoices(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE customer_id = $1 AND tenant_id = $2 AND environment_id = $3
		ORDER BY invoice_number`,
		customerID, types.GetTenantID(ctx), types.GetEnvironmentID(ctx))
}

func (r *invoiceRepository) ListByCustomerAfter(ctx context.Context, customerID string, from time.Time) ([]*invoice.Invoice, error) {
	return r.listInvoices(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE customer_id = $1 AND tenant_id = $2 AND environment_id = $3
			AND target_date >= $4
		ORDER BY invoice_number`,
		customerID, types.GetTenantID(ctx), types.GetEnvironmentID(ctx), from)
}

func (r *invoiceRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*invoice.Invoice, error) {
	return r.listInvoices(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE tenant_id = $2 AND environment_id = $3
			AND id IN (
				SELECT DISTINCT invoice_id FROM invoice_line_items
				WHERE subscription_id = $1 AND tenant_id = $2 AND environment_id = $3
			)
		ORDER BY invoice_number`,
		subscriptionID, types.GetTenantID(ctx), types.GetEnvironmentID(ctx))
}

func (r *invoiceRepository) listInvoices(ctx context.Context, query string, args ...any) ([]*invoice.Invoice, error) {
	rows, err := r.db.Querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan invoice row").
				Mark(ierr.ErrDatabase)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	return invoices, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanInvoice(row scannable) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	var status string
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.Currency,
		&inv.InvoiceDate, &inv.TargetDate,
		&inv.TenantID, &inv.EnvironmentID, &status,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.CreatedBy, &inv.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	inv.Status = types.Status(status)
	return &inv, nil
}

const lineItemColumns = `id, invoice_id, customer_id, item_type, subscription_id, plan_name,
	start_date, end_date, amount, currency,
	tenant_id, environment_id, status, created_at, updated_at, created_by, updated_by`

func (r *invoiceRepository) CreateLineItems(ctx context.Context, items []*invoice.InvoiceLineItem) error {
	for _, item := range items {
		if err := r.CreateLineItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *invoiceRepository) CreateLineItem(ctx context.Context, item *invoice.InvoiceLineItem) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		INSERT INTO invoice_line_items (id, invoice_id, customer_id, item_type,
			subscription_id, plan_name, start_date, end_date, amount, currency,
			tenant_id, environment_id, status, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		item.ID, item.InvoiceID, item.CustomerID, string(item.Type),
		item.SubscriptionID, item.PlanDisplayName, item.EffectiveDate, item.PeriodEnd,
		item.Amount, item.Currency,
		item.TenantID, item.EnvironmentID, string(item.Status),
		item.CreatedAt, item.UpdatedAt, item.CreatedBy, item.UpdatedBy)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create invoice line item").
			WithReportableDetails(map[string]any{
				"line_item_id": item.ID,
				"invoice_id":   item.InvoiceID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) GetLineItem(ctx context.Context, id string) (*invoice.InvoiceLineItem, error) {
	row := r.db.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+lineItemColumns+`
		FROM invoice_line_items
		WHERE id = $1 AND tenant_id = $2 AND environment_id = $3`,
		id, types.GetTenantID(ctx), types.GetEnvironmentID(ctx))

	item, err := scanLineItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("invoice line item not found").
				WithHint("Line item does not exist").
				WithReportableDetails(map[string]any{
					"line_item_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice line item").
			Mark(ierr.ErrDatabase)
	}
	return item, nil
}

func (r *invoiceRepository) GetLineItemsByInvoice(ctx context.Context, invoiceID string) ([]*invoice.InvoiceLineItem, error) {
	rows, err := r.db.Querier(ctx).QueryContext(ctx, `
		SELECT `+lineItemColumns+`
		FROM invoice_line_items
		WHERE invoice_id = $1 AND tenant_id = $2 AND environment_id = $3
		ORDER BY created_at, id`,
		invoiceID, types.GetTenantID(ctx), types.GetEnvironmentID(ctx))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoice line items").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var items []*invoice.InvoiceLineItem
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan line item row").
				Mark(ierr.ErrDatabase)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoice line items").
			Mark(ierr.ErrDatabase)
	}
	return items, nil
}

func scanLineItem(row scannable) (*invoice.InvoiceLineItem, error) {
	var item invoice.InvoiceLineItem
	var itemType, status string
	err := row.Scan(
		&item.ID, &item.InvoiceID, &item.CustomerID, &itemType,
		&item.SubscriptionID, &item.PlanDisplayName,
		&item.EffectiveDate, &item.PeriodEnd, &item.Amount, &item.Currency,
		&item.TenantID, &item.EnvironmentID, &status,
		&item.CreatedAt, &item.UpdatedAt, &item.CreatedBy, &item.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	item.Type = types.InvoiceLineItemType(itemType)
	item.Status = types.Status(status)
	if item.Type == types.InvoiceLineItemTypeRecurring {
		start := item.EffectiveDate
		item.PeriodStart = &start
	}
	return &item, nil
}

const paymentColumns = `id, invoice_id, payment_type, payment_id, payment_date, amount, currency,
	payment_cookie_id, linked_invoice_payment_id,
	tenant_id, environment_id, status, created_at, updated_at, created_by, updated_by`

func (r *invoiceRepository) CreatePayment(ctx context.Context, p *invoice.InvoicePayment) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		INSERT INTO invoice_payments (id, invoice_id, payment_type, payment_id,
			payment_date, amount, currency, payment_cookie_id, linked_invoice_payment_id,
			tenant_id, environment_id, status, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		p.ID, p.InvoiceID, string(p.PaymentType), p.PaymentID,
		p.PaymentDate, p.Amount, p.Currency, p.PaymentCookieID, p.LinkedPaymentID,
		p.TenantID, p.EnvironmentID, string(p.Status),
		p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create invoice payment").
			WithReportableDetails(map[string]any{
				"invoice_payment_id": p.ID,
				"invoice_id":         p.InvoiceID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) GetPayment(ctx context.Context, id string) (*invoice.InvoicePayment, error) {
	row := r.db.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM invoice_payments
		WHERE id = $1 AND tenant_id = $2 AND environment_id = $3`,
		id, types.GetTenantID(ctx), types.GetEnvironmentID(ctx))
	return r.scanPaymentNotFound(row, map[string]any{"invoice_payment_id": id})
}

func (r *invoiceRepository) GetPaymentByPaymentID(ctx context.Context, paymentID string) (*invoice.InvoicePayment, error) {
	row := r.db.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM invoice_payments
		WHERE payment_id = $1 AND payment_type = $2
			AND tenant_id = $3 AND environment_id = $4`,
		paymentID, string(types.InvoicePaymentTypeAttempt),
		types.GetTenantID(ctx), types.GetEnvironmentID(ctx))
	return r.scanPaymentNotFound(row, map[string]any{"payment_id": paymentID})
}

func (r *invoiceRepository) GetPaymentByCookie(ctx context.Context, paymentCookieID string) (*invoice.InvoicePayment, error) {
	row := r.db.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM invoice_payments
		WHERE payment_cookie_id = $1 AND tenant_id = $2 AND environment_id = $3`,
		paymentCookieID, types.GetTenantID(ctx), types.GetEnvironmentID(ctx))
	return r.scanPaymentNotFound(row, map[string]any{"payment_cookie_id": paymentCookieID})
}

func (r *invoiceRepository) scanPaymentNotFound(row scannable, details map[string]any) (*invoice.InvoicePayment, error) {
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("invoice payment not found").
				WithHint("Payment record does not exist").
				WithReportableDetails(details).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice payment").
			Mark(ierr.ErrDatabase)
	}
	return p, nil
}

func (r *invoiceRepository) GetPaymentsByInvoice(ctx context.Context, invoiceID string) ([]*invoice.InvoicePayment, error) {
	return r.listPayments(ctx, `
		SELECT `+paymentColumns+`
		FROM invoice_payments
		WHERE invoice_id = $1 AND tenant_id = $2 AND environment_id = $3
		ORDER BY created_at, id`,
		invoiceID, types.GetTenantID(ctx), types.GetEnvironmentID(ctx))
}

func (r *invoiceRepository) listPayments(ctx context.Context, query string, args ...any) ([]*invoice.InvoicePayment, error) {
	rows, err := r.db.Querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoice payments").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var payments []*invoice.InvoicePayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan payment row").
				Mark(ierr.ErrDatabase)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoice payments").
			Mark(ierr.ErrDatabase)
	}
	return payments, nil
}

func scanPayment(row scannable) (*invoice.InvoicePayment, error) {
	var p invoice.InvoicePayment
	var paymentType, status string
	err := row.Scan(
		&p.ID, &p.InvoiceID, &paymentType, &p.PaymentID,
		&p.PaymentDate, &p.Amount, &p.Currency,
		&p.PaymentCookieID, &p.LinkedPaymentID,
		&p.TenantID, &p.EnvironmentID, &status,
		&p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	p.PaymentType = types.InvoicePaymentType(paymentType)
	p.Status = types.Status(status)
	return &p, nil
}

func (r *invoiceRepository) GetRemainingAmountPaid(ctx context.Context, invoicePaymentID string) (decimal.Decimal, error) {
	// Signed amounts, so the attempt plus its reversals sums to what still
	// stands. Missing payment sums to zero.
	var remaining decimal.Decimal
	err := r.db.Querier(ctx).QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM invoice_payments
		WHERE (id = $1 OR linked_invoice_payment_id = $1)
			AND tenant_id = $2 AND environment_id = $3`,
		invoicePaymentID, types.GetTenantID(ctx), types.GetEnvironmentID(ctx)).Scan(&remaining)
	if err != nil {
		return decimal.Zero, ierr.WithError(err).
			WithHint("Failed to compute remaining amount paid").
			WithReportableDetails(map[string]any{
				"invoice_payment_id": invoicePaymentID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return remaining, nil
}

func (r *invoiceRepository) GetInvoiceIDByPaymentID(ctx context.Context, paymentID string) (string, error) {
	var invoiceID string
	err := r.db.Querier(ctx).QueryRowContext(ctx, `
		SELECT invoice_id
		FROM invoice_payments
		WHERE payment_id = $1 AND payment_type = $2
			AND tenant_id = $3 AND environment_id = $4`,
		paymentID, string(types.InvoicePaymentTypeAttempt),
		types.GetTenantID(ctx), types.GetEnvironmentID(ctx)).Scan(&invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ierr.NewError("invoice payment not found").
				WithHint("No payment attempt carries this payment id").
				WithReportableDetails(map[string]any{
					"payment_id": paymentID,
				}).
				Mark(ierr.ErrNotFound)
		}
		return "", ierr.WithError(err).
			WithHint("Failed to resolve invoice from payment").
			Mark(ierr.ErrDatabase)
	}
	return invoiceID, nil
}

func (r *invoiceRepository) GetCustomerIDByPaymentID(ctx context.Context, invoicePaymentID string) (string, error) {
	var customerID string
	err := r.db.Querier(ctx).QueryRowContext(ctx, `
		SELECT i.customer_id
		FROM invoices i
		JOIN invoice_payments p ON p.invoice_id = i.id
		WHERE p.id = $1 AND p.tenant_id = $2 AND p.environment_id = $3`,
		invoicePaymentID, types.GetTenantID(ctx), types.GetEnvironmentID(ctx)).Scan(&customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ierr.NewError("invoice payment not found").
				WithHint("Payment record does not exist").
				WithReportableDetails(map[string]any{
					"invoice_payment_id": invoicePaymentID,
				}).
				Mark(ierr.ErrNotFound)
		}
		return "", ierr.WithError(err).
			WithHint("Failed to resolve customer from payment").
			Mark(ierr.ErrDatabase)
	}
	return customerID, nil
}

func (r *invoiceRepository) ListChargebacksByCustomer(ctx context.Context, customerID string) ([]*invoice.InvoicePayment, error) {
	return r.listPayments(ctx, `
		SELECT `+chargebackColumns+`
		FROM invoice_payments p
		JOIN invoices i ON p.invoice_id = i.id
		WHERE i.customer_id = $1 AND p.payment_type = $2
			AND p.tenant_id = $3 AND p.environment_id = $4
		ORDER BY p.created_at, p.id`,
		customerID, string(types.InvoicePaymentTypeChargeback),
		types.GetTenantID(ctx), types.GetEnvironmentID(ctx))
}

func (r *invoiceRepository) ListChargebacksByPaymentID(ctx context.Context, paymentID string) ([]*invoice.InvoicePayment, error) {
	return r.listPayments(ctx, `
		SELECT `+chargebackColumns+`
		FROM invoice_payments p
		JOIN invoice_payments a ON p.linked_invoice_payment_id = a.id
		WHERE a.payment_id = $1 AND p.payment_type = $2
			AND p.tenant_id = $3 AND p.environment_id = $4
		ORDER BY p.created_at, p.id`,
		paymentID, string(types.InvoicePaymentTypeChargeback),
		types.GetTenantID(ctx), types.GetEnvironmentID(ctx))
}

const chargebackColumns = `p.id, p.invoice_id, p.payment_type, p.payment_id, p.payment_date,
	p.amount, p.currency, p.payment_cookie_id, p.linked_invoice_payment_id,
	p.tenant_id, p.environment_id, p.status, p.created_at, p.updated_at, p.created_by, p.updated_by`
