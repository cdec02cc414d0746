package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixwala-backend/internal/repositories/repotest"
	"fixwala-backend/internal/timeutil"
)

func TestInvoiceRepository(t *testing.T) {
	repotest.Run(t, NewInvoiceRepository())
}

func TestReturnedInvoicesAreCopies(t *testing.T) {
	repo := NewInvoiceRepository()
	inv := repotest.SeedInvoice(t, repo, "INV-COPY", "10", timeutil.Now())

	got, err := repo.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	got.IsArchived = true
	inv.CustomerName = "changed"

	again, err := repo.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.False(t, again.IsArchived)
	assert.Equal(t, "Test Customer", again.CustomerName)
}
