package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"fixwala-backend/internal/repositories/repotest"
)

func TestDecimal128RoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.75", "123456789.0123", "100"} {
		d := decimal.RequireFromString(s)
		v, err := toDecimal128(d)
		require.NoError(t, err)
		back, err := fromDecimal128(v)
		require.NoError(t, err)
		assert.True(t, d.Equal(back), "%s came back as %s", s, back)
	}
}

func TestMigrationIndexesIncludeUniqueInvoiceNumber(t *testing.T) {
	idx := migrationIndexes()[colInvoices]
	require.NotEmpty(t, idx)
	assert.NotNil(t, idx[0].Options)
}

// Needs a scratch server: TEST_MONGODB_URI=mongodb://localhost:27017
func TestMongoInvoiceRepository(t *testing.T) {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx, nil))

	repo := NewInvoiceRepository(client, "fixwala_test")
	t.Cleanup(func() {
		_ = repo.Reset(context.Background())
		_ = repo.Close(context.Background())
	})

	repotest.Run(t, repo)
}
