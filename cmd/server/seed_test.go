package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixwala-backend/internal/models"
	"fixwala-backend/internal/repositories/memory"
	"fixwala-backend/internal/timeutil"
)

func TestSeedInvoices(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInvoiceRepository()

	created, err := seedInvoices(ctx, store, timeutil.Now())
	require.NoError(t, err)
	assert.Equal(t, len(sampleInvoices), created)

	active, err := store.List(ctx, models.InvoiceFilter{Archived: false})
	require.NoError(t, err)
	assert.Len(t, active, 3)

	archived, err := store.List(ctx, models.InvoiceFilter{Archived: true})
	require.NoError(t, err)
	assert.Len(t, archived, 1)

	for _, inv := range active {
		if inv.InvoiceNumber == "FW-1002" {
			assert.Equal(t, models.InvoiceStatusPaid, inv.Status)
			assert.True(t, inv.BalanceDue.IsZero())
		}
		if inv.InvoiceNumber == "FW-1001" {
			assert.Equal(t, "1199", inv.BalanceDue.String())
		}
	}

	again, err := seedInvoices(ctx, store, timeutil.Now())
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestConfirmReset(t *testing.T) {
	var out strings.Builder
	assert.True(t, confirmReset(strings.NewReader("yes\n"), &out))
	assert.Contains(t, out.String(), "Type 'yes' to confirm")

	assert.False(t, confirmReset(strings.NewReader("no\n"), &out))
	assert.False(t, confirmReset(strings.NewReader(""), &out))
}
