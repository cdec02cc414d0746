package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fixwala-backend/internal/database"
	"fixwala-backend/internal/models"
	"fixwala-backend/internal/timeutil"
)

var _ InvoiceStore = (*InvoiceRepository)(nil)

const uniqueViolation = "23505"

const invoiceColumns = `id, invoice_number, customer_name, issue_date, due_date,
	total, amount_paid, balance_due, status, is_archived, created_at, updated_at`

// InvoiceRepository stores invoices in PostgreSQL
type InvoiceRepository struct {
	DB *pgxpool.Pool
}

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{DB: db}
}

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	var status string
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.CustomerName, &inv.IssueDate, &inv.DueDate,
		&inv.Total, &inv.AmountPaid, &inv.BalanceDue, &status, &inv.IsArchived,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrInvoiceNotFound
		}
		return nil, err
	}
	inv.Status = models.InvoiceStatus(status)
	inv.IssueDate = inv.IssueDate.UTC()
	inv.DueDate = inv.DueDate.UTC()
	inv.CreatedAt = inv.CreatedAt.UTC()
	inv.UpdatedAt = inv.UpdatedAt.UTC()
	return &inv, nil
}

// Create inserts the invoice and its line items in one transaction
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice, items []*models.LineItem) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO invoices(id, invoice_number, customer_name, issue_date, due_date,
			total, amount_paid, balance_due, status, is_archived, created_at, updated_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		inv.ID, inv.InvoiceNumber, inv.CustomerName, inv.IssueDate, inv.DueDate,
		inv.Total, inv.AmountPaid, inv.BalanceDue, string(inv.Status), inv.IsArchived,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.ErrDuplicateInvoiceNumber
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	for _, item := range items {
		_, err = tx.Exec(ctx,
			`INSERT INTO invoice_lines(id, invoice_id, description, quantity, unit_price, line_total, created_at)
			 VALUES($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, inv.ID, item.Description, item.Quantity, item.UnitPrice, item.LineTotal, item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert line item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Get retrieves an invoice by ID
func (r *InvoiceRepository) Get(ctx context.Context, id string) (*models.Invoice, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

// List returns active or archived invoices, newest first
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE is_archived = $1
		 ORDER BY created_at DESC, id DESC`,
		filter.Archived,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []*models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) GetLineItems(ctx context.Context, invoiceID string) ([]*models.LineItem, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, invoice_id, description, quantity, unit_price, line_total, created_at
		 FROM invoice_lines WHERE invoice_id = $1
		 ORDER BY created_at, id`,
		invoiceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*models.LineItem{}
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description,
			&item.Quantity, &item.UnitPrice, &item.LineTotal, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		items = append(items, &item)
	}
	return items, rows.Err()
}

// GetPayments returns payments for an invoice, latest payment date first
func (r *InvoiceRepository) GetPayments(ctx context.Context, invoiceID string) ([]*models.Payment, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, invoice_id, amount, payment_date, created_at
		 FROM payments WHERE invoice_id = $1
		 ORDER BY payment_date DESC, created_at DESC`,
		invoiceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []*models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaymentDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.PaymentDate = p.PaymentDate.UTC()
		p.CreatedAt = p.CreatedAt.UTC()
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}

// SetArchived flips the archive flag. updated_at only moves on a real change.
func (r *InvoiceRepository) SetArchived(ctx context.Context, id string, archived bool) (*models.Invoice, error) {
	row := r.DB.QueryRow(ctx,
		`UPDATE invoices
		 SET updated_at = CASE WHEN is_archived = $2 THEN updated_at ELSE $3 END,
		     is_archived = $2
		 WHERE id = $1
		 RETURNING `+invoiceColumns,
		id, archived, timeutil.Now(),
	)
	return scanInvoice(row)
}

// ApplyPayment debits the balance with a conditional update so concurrent
// payments can never drive balance_due below zero. The payment row is written
// in the same transaction.
func (r *InvoiceRepository) ApplyPayment(ctx context.Context, payment *models.Payment, rejectArchived bool) (*models.Invoice, error) {
	if err := models.ValidatePaymentAmount(&payment.Amount); err != nil {
		return nil, err
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`UPDATE invoices
		 SET amount_paid = amount_paid + $2,
		     balance_due = balance_due - $2,
		     status = CASE WHEN balance_due - $2 = 0 THEN $3 ELSE status END,
		     updated_at = $4
		 WHERE id = $1
		   AND balance_due >= $2
		   AND (NOT $5 OR is_archived = FALSE)
		 RETURNING `+invoiceColumns,
		payment.InvoiceID, payment.Amount, string(models.InvoiceStatusPaid), timeutil.Now(), rejectArchived,
	)
	inv, err := scanInvoice(row)
	if errors.Is(err, models.ErrInvoiceNotFound) {
		return nil, r.explainRejectedPayment(ctx, tx, payment, rejectArchived)
	}
	if err != nil {
		return nil, fmt.Errorf("apply payment: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO payments(id, invoice_id, amount, payment_date, created_at)
		 VALUES($1, $2, $3, $4, $5)`,
		payment.ID, payment.InvoiceID, payment.Amount, payment.PaymentDate, payment.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return inv, nil
}

// explainRejectedPayment works out why the conditional update matched no row
func (r *InvoiceRepository) explainRejectedPayment(ctx context.Context, tx pgx.Tx, payment *models.Payment, rejectArchived bool) error {
	var balance decimal.Decimal
	var archived bool
	err := tx.QueryRow(ctx,
		`SELECT balance_due, is_archived FROM invoices WHERE id = $1`,
		payment.InvoiceID,
	).Scan(&balance, &archived)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrInvoiceNotFound
	}
	if err != nil {
		return err
	}
	if rejectArchived && archived {
		return models.ErrArchivedPayment
	}
	return models.NewOverpaymentError(balance)
}

// Reset empties every invoice table. Used by seed --reset and tests.
func (r *InvoiceRepository) Reset(ctx context.Context) error {
	_, err := r.DB.Exec(ctx, `TRUNCATE payments, invoice_lines, invoices`)
	return err
}

func (r *InvoiceRepository) Migrate(ctx context.Context) error {
	return database.NewMigrator(r.DB).RunMigrations(ctx)
}

func (r *InvoiceRepository) Ping(ctx context.Context) error {
	return r.DB.Ping(ctx)
}

func (r *InvoiceRepository) Close(context.Context) error {
	r.DB.Close()
	return nil
}
