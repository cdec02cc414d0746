package memory

import (
	"context"
	"sort"
	"sync"

	"fixwala-backend/internal/models"
	"fixwala-backend/internal/repositories"
	"fixwala-backend/internal/timeutil"
)

var _ repositories.InvoiceStore = (*InvoiceRepository)(nil)

// InvoiceRepository keeps everything in process. Used when no database is
// configured and as the fake store in tests.
type InvoiceRepository struct {
	mu sync.RWMutex

	invoices  map[string]*models.Invoice
	numbers   map[string]string
	lineItems map[string][]*models.LineItem
	payments  map[string][]*models.Payment
}

func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{
		invoices:  make(map[string]*models.Invoice),
		numbers:   make(map[string]string),
		lineItems: make(map[string][]*models.LineItem),
		payments:  make(map[string][]*models.Payment),
	}
}

func (r *InvoiceRepository) Create(_ context.Context, inv *models.Invoice, items []*models.LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.numbers[inv.InvoiceNumber]; exists {
		return models.ErrDuplicateInvoiceNumber
	}

	r.invoices[inv.ID] = inv.Clone()
	r.numbers[inv.InvoiceNumber] = inv.ID
	stored := make([]*models.LineItem, len(items))
	for i, item := range items {
		c := *item
		stored[i] = &c
	}
	r.lineItems[inv.ID] = stored
	return nil
}

func (r *InvoiceRepository) Get(_ context.Context, id string) (*models.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invoices[id]
	if !ok {
		return nil, models.ErrInvoiceNotFound
	}
	return inv.Clone(), nil
}

func (r *InvoiceRepository) List(_ context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		if inv.IsArchived == filter.Archived {
			result = append(result, inv.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *InvoiceRepository) GetLineItems(_ context.Context, invoiceID string) ([]*models.LineItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.lineItems[invoiceID]
	result := make([]*models.LineItem, len(items))
	for i, item := range items {
		c := *item
		result[i] = &c
	}
	return result, nil
}

func (r *InvoiceRepository) GetPayments(_ context.Context, invoiceID string) ([]*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payments := r.payments[invoiceID]
	result := make([]*models.Payment, len(payments))
	// reversed so equal payment dates list the latest recorded first
	for i, p := range payments {
		c := *p
		result[len(payments)-1-i] = &c
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PaymentDate.After(result[j].PaymentDate)
	})
	return result, nil
}

func (r *InvoiceRepository) SetArchived(_ context.Context, id string, archived bool) (*models.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invoices[id]
	if !ok {
		return nil, models.ErrInvoiceNotFound
	}
	inv.SetArchived(archived, timeutil.Now())
	return inv.Clone(), nil
}

func (r *InvoiceRepository) ApplyPayment(_ context.Context, payment *models.Payment, rejectArchived bool) (*models.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invoices[payment.InvoiceID]
	if !ok {
		return nil, models.ErrInvoiceNotFound
	}

	updated := inv.Clone()
	if err := updated.ApplyPayment(payment.Amount, rejectArchived, timeutil.Now()); err != nil {
		return nil, err
	}

	c := *payment
	r.payments[payment.InvoiceID] = append(r.payments[payment.InvoiceID], &c)
	r.invoices[payment.InvoiceID] = updated
	return updated.Clone(), nil
}

func (r *InvoiceRepository) Reset(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.invoices = make(map[string]*models.Invoice)
	r.numbers = make(map[string]string)
	r.lineItems = make(map[string][]*models.LineItem)
	r.payments = make(map[string][]*models.Payment)
	return nil
}

func (r *InvoiceRepository) Migrate(context.Context) error { return nil }

func (r *InvoiceRepository) Ping(context.Context) error { return nil }

func (r *InvoiceRepository) Close(context.Context) error { return nil }
