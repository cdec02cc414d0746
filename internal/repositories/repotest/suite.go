// Package repotest holds the behaviour every InvoiceRepository backend must
// share. Backends call Run from their own tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixwala-backend/internal/models"
	"fixwala-backend/internal/repositories"
	"fixwala-backend/internal/timeutil"
)

// Run exercises repo. The repository is reset before each subtest.
func Run(t *testing.T, repo repositories.InvoiceStore) {
	ctx := context.Background()
	require.NoError(t, repo.Migrate(ctx))

	tests := []struct {
		name string
		fn   func(t *testing.T, repo repositories.InvoiceStore)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"DuplicateInvoiceNumber", testDuplicateInvoiceNumber},
		{"GetUnknown", testGetUnknown},
		{"ListFiltersOnArchiveFlag", testListFiltersOnArchiveFlag},
		{"ListOrdersSameInstantByID", testListOrdersSameInstantByID},
		{"ArchiveRestore", testArchiveRestore},
		{"ApplyPaymentScenario", testApplyPaymentScenario},
		{"ApplyPaymentUnknownInvoice", testApplyPaymentUnknownInvoice},
		{"ApplyPaymentArchivedGuard", testApplyPaymentArchivedGuard},
		{"PaymentsNewestFirst", testPaymentsNewestFirst},
		{"ConcurrentPaymentsNeverOverdraw", testConcurrentPayments},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, repo.Reset(ctx))
			tt.fn(t, repo)
		})
	}
}

func newID() string { return uuid.NewString() }

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// SeedInvoice stores an invoice with a single line worth total
func SeedInvoice(t *testing.T, repo repositories.InvoiceStore, number, total string, createdAt time.Time) *models.Invoice {
	t.Helper()
	req := &models.CreateInvoiceRequest{
		InvoiceNumber: number,
		CustomerName:  "Test Customer",
		IssueDate:     models.NewDate(createdAt),
		DueDate:       models.NewDate(createdAt.AddDate(0, 0, 30)),
		LineItems: []models.CreateLineItemRequest{
			{Description: "Service visit", Quantity: amount("1"), UnitPrice: amount(total)},
		},
	}
	inv, items := models.BuildInvoice(req, newID, createdAt)
	require.NoError(t, repo.Create(context.Background(), inv, items))
	return inv
}

func newPayment(invoiceID, value string, at time.Time) *models.Payment {
	return &models.Payment{
		ID:          newID(),
		InvoiceID:   invoiceID,
		Amount:      amount(value),
		PaymentDate: at,
		CreatedAt:   at,
	}
}

func testCreateAndGet(t *testing.T, repo repositories.InvoiceStore) {
	ctx := context.Background()
	now := timeutil.Now()
	req := &models.CreateInvoiceRequest{
		InvoiceNumber: "INV-100",
		CustomerName:  "Meera",
		IssueDate:     models.NewDate(now),
		DueDate:       models.NewDate(now.AddDate(0, 0, 14)),
		LineItems: []models.CreateLineItemRequest{
			{Description: "AC service", Quantity: amount("2"), UnitPrice: amount("10")},
			{Description: "Filter", Quantity: amount("1"), UnitPrice: amount("5")},
		},
	}
	inv, items := models.BuildInvoice(req, newID, now)
	require.NoError(t, repo.Create(ctx, inv, items))

	got, err := repo.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-100", got.InvoiceNumber)
	assert.True(t, got.Total.Equal(amount("25")))
	assert.True(t, got.BalanceDue.Equal(amount("25")))
	assert.True(t, got.AmountPaid.IsZero())
	assert.Equal(t, models.InvoiceStatusUnpaid, got.Status)
	assert.True(t, got.IssueDate.Equal(inv.IssueDate))

	lines, err := repo.GetLineItems(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	sum := decimal.Zero
	for _, l := range lines {
		assert.Equal(t, inv.ID, l.InvoiceID)
		assert.True(t, l.LineTotal.Equal(l.Quantity.Mul(l.UnitPrice)))
		sum = sum.Add(l.LineTotal)
	}
	assert.True(t, sum.Equal(got.Total))
}

func testDuplicateInvoiceNumber(t *testing.T, repo repositories.InvoiceStore) {
	now := timeutil.Now()
	SeedInvoice(t, repo, "INV-DUP", "10", now)

	inv, items := models.BuildInvoice(&models.CreateInvoiceRequest{InvoiceNumber: "INV-DUP"}, newID, now)
	err := repo.Create(context.Background(), inv, items)
	assert.ErrorIs(t, err, models.ErrDuplicateInvoiceNumber)

	_, err = repo.Get(context.Background(), inv.ID)
	assert.ErrorIs(t, err, models.ErrInvoiceNotFound)
}

func testGetUnknown(t *testing.T, repo repositories.InvoiceStore) {
	_, err := repo.Get(context.Background(), newID())
	assert.ErrorIs(t, err, models.ErrInvoiceNotFound)

	_, err = repo.SetArchived(context.Background(), newID(), true)
	assert.ErrorIs(t, err, models.ErrInvoiceNotFound)
}

func testListFiltersOnArchiveFlag(t *testing.T, repo repositories.InvoiceStore) {
	ctx := context.Background()
	base := timeutil.Now().Add(-time.Hour)
	first := SeedInvoice(t, repo, "INV-1", "10", base)
	second := SeedInvoice(t, repo, "INV-2", "20", base.Add(time.Minute))
	archived := SeedInvoice(t, repo, "INV-3", "30", base.Add(2*time.Minute))
	_, err := repo.SetArchived(ctx, archived.ID, true)
	require.NoError(t, err)

	active, err := repo.List(ctx, models.InvoiceFilter{Archived: false})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, second.ID, active[0].ID)
	assert.Equal(t, first.ID, active[1].ID)

	onlyArchived, err := repo.List(ctx, models.InvoiceFilter{Archived: true})
	require.NoError(t, err)
	require.Len(t, onlyArchived, 1)
	assert.Equal(t, archived.ID, onlyArchived[0].ID)
	assert.True(t, onlyArchived[0].IsArchived)
}

func testListOrdersSameInstantByID(t *testing.T, repo repositories.InvoiceStore) {
	at := timeutil.Now().Add(-time.Hour)
	var ids []string
	for _, number := range []string{"INV-T1", "INV-T2", "INV-T3", "INV-T4"} {
		ids = append(ids, SeedInvoice(t, repo, number, "10", at).ID)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	for i := 0; i < 3; i++ {
		got, err := repo.List(context.Background(), models.InvoiceFilter{})
		require.NoError(t, err)
		require.Len(t, got, len(ids))
		for j, inv := range got {
			assert.Equal(t, ids[j], inv.ID)
		}
	}
}

func testArchiveRestore(t *testing.T, repo repositories.InvoiceStore) {
	ctx := context.Background()
	inv := SeedInvoice(t, repo, "INV-A", "10", timeutil.Now())

	for i := 0; i < 2; i++ {
		got, err := repo.SetArchived(ctx, inv.ID, true)
		require.NoError(t, err)
		assert.True(t, got.IsArchived)
	}
	for i := 0; i < 2; i++ {
		got, err := repo.SetArchived(ctx, inv.ID, false)
		require.NoError(t, err)
		assert.False(t, got.IsArchived)
	}
}

func testApplyPaymentScenario(t *testing.T, repo repositories.InvoiceStore) {
	ctx := context.Background()
	now := timeutil.Now()
	inv := SeedInvoice(t, repo, "INV-P", "100", now)

	got, err := repo.ApplyPayment(ctx, newPayment(inv.ID, "40", now), false)
	require.NoError(t, err)
	assert.True(t, got.AmountPaid.Equal(amount("40")))
	assert.True(t, got.BalanceDue.Equal(amount("60")))
	assert.Equal(t, models.InvoiceStatusUnpaid, got.Status)

	got, err = repo.ApplyPayment(ctx, newPayment(inv.ID, "60", now), false)
	require.NoError(t, err)
	assert.True(t, got.BalanceDue.IsZero())
	assert.Equal(t, models.InvoiceStatusPaid, got.Status)

	_, err = repo.ApplyPayment(ctx, newPayment(inv.ID, "1", now), false)
	ve, ok := models.IsValidation(err)
	require.True(t, ok, "expected overpayment, got %v", err)
	require.NotNil(t, ve.BalanceDue)
	assert.True(t, ve.BalanceDue.IsZero())

	payments, err := repo.GetPayments(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	stored, err := repo.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.AmountPaid.Equal(amount("100")))
}

func testApplyPaymentUnknownInvoice(t *testing.T, repo repositories.InvoiceStore) {
	_, err := repo.ApplyPayment(context.Background(), newPayment(newID(), "5", timeutil.Now()), false)
	assert.ErrorIs(t, err, models.ErrInvoiceNotFound)
}

func testApplyPaymentArchivedGuard(t *testing.T, repo repositories.InvoiceStore) {
	ctx := context.Background()
	inv := SeedInvoice(t, repo, "INV-ARCH", "50", timeutil.Now())
	_, err := repo.SetArchived(ctx, inv.ID, true)
	require.NoError(t, err)

	_, err = repo.ApplyPayment(ctx, newPayment(inv.ID, "10", timeutil.Now()), true)
	assert.ErrorIs(t, err, models.ErrArchivedPayment)

	got, err := repo.ApplyPayment(ctx, newPayment(inv.ID, "10", timeutil.Now()), false)
	require.NoError(t, err)
	assert.True(t, got.BalanceDue.Equal(amount("40")))
}

func testPaymentsNewestFirst(t *testing.T, repo repositories.InvoiceStore) {
	ctx := context.Background()
	now := timeutil.Now()
	inv := SeedInvoice(t, repo, "INV-ORD", "100", now)

	older := newPayment(inv.ID, "10", now.AddDate(0, 0, -2))
	newer := newPayment(inv.ID, "20", now)
	middle := newPayment(inv.ID, "30", now.AddDate(0, 0, -1))
	for _, p := range []*models.Payment{older, newer, middle} {
		_, err := repo.ApplyPayment(ctx, p, false)
		require.NoError(t, err)
	}

	payments, err := repo.GetPayments(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, payments, 3)
	assert.Equal(t, newer.ID, payments[0].ID)
	assert.Equal(t, middle.ID, payments[1].ID)
	assert.Equal(t, older.ID, payments[2].ID)
}

func testConcurrentPayments(t *testing.T, repo repositories.InvoiceStore) {
	ctx := context.Background()
	inv := SeedInvoice(t, repo, "INV-RACE", "100", timeutil.Now())

	const workers = 25
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ApplyPayment(ctx, newPayment(inv.ID, "10", timeutil.Now()), false)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	got, err := repo.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.BalanceDue.IsZero())
	assert.True(t, got.AmountPaid.Equal(amount("100")))
	assert.Equal(t, models.InvoiceStatusPaid, got.Status)

	payments, err := repo.GetPayments(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 10)
}
