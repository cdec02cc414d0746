package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3StoreRequiresCredentials(t *testing.T) {
	_, err := NewS3Store(context.Background(), Options{Bucket: "b"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "INV-7", SafeName("INV-7"))
	assert.Equal(t, "INV_7_", SafeName(`INV "7"`))
	assert.Equal(t, "a_b", SafeName("a\r\nb"))
}

func TestInvoicePDFName(t *testing.T) {
	at := time.Date(2024, 1, 5, 10, 15, 0, 0, time.UTC)
	assert.Equal(t, "INV-001_20240105_101500.pdf", InvoicePDFName("INV-001", at))
	assert.Equal(t, "INV_2024_7_20240105_101500.pdf", InvoicePDFName("INV/2024 7", at))
}

func TestPutUploadsToBucket(t *testing.T) {
	var gotPath, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewS3Store(context.Background(), Options{
		Endpoint:  srv.URL,
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "fixwala",
		Prefix:    "invoices",
	})
	require.NoError(t, err)

	key, err := store.Put(context.Background(), "INV-1.pdf", []byte("%PDF-1.3"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "invoices/INV-1.pdf", key)
	assert.Equal(t, "/fixwala/invoices/INV-1.pdf", gotPath)
	assert.Equal(t, "application/pdf", gotType)
	assert.Contains(t, string(gotBody), "%PDF-1.3")
}
