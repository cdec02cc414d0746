package repositories

import (
	"context"

	"fixwala-backend/internal/models"
)

// InvoiceStore persists invoices together with their line items and
// payments. Implementations must make Create and ApplyPayment atomic.
type InvoiceStore interface {
	// Create stores the invoice and all of its line items, or nothing.
	Create(ctx context.Context, inv *models.Invoice, items []*models.LineItem) error
	Get(ctx context.Context, id string) (*models.Invoice, error)
	// List filters strictly on the archive flag, newest first with ties
	// broken by descending id.
	List(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error)
	GetLineItems(ctx context.Context, invoiceID string) ([]*models.LineItem, error)
	// GetPayments returns payments ordered by payment date, newest first.
	GetPayments(ctx context.Context, invoiceID string) ([]*models.Payment, error)
	SetArchived(ctx context.Context, id string, archived bool) (*models.Invoice, error)
	// ApplyPayment records the payment and moves its amount from balance due
	// to amount paid in one step. It returns models.ErrInvoiceNotFound, an
	// overpayment *models.ValidationError or models.ErrArchivedPayment.
	ApplyPayment(ctx context.Context, payment *models.Payment, rejectArchived bool) (*models.Invoice, error)
	// Reset removes every invoice, line item and payment.
	Reset(ctx context.Context) error

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
