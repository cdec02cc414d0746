package events

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixwala-backend/internal/models"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Count() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestPublishReachesSubscribers(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitForSubscribers(t, hub, 2)

	inv := &models.Invoice{
		ID:            "inv-1",
		InvoiceNumber: "INV-1",
		Status:        models.InvoiceStatusPaid,
		Total:         decimal.NewFromInt(100),
		AmountPaid:    decimal.NewFromInt(100),
		BalanceDue:    decimal.Zero,
	}
	amt := decimal.NewFromInt(60)
	ev := NewInvoiceEvent(PaymentApplied, inv, time.Now().UTC())
	ev.Amount = &amt
	hub.Publish(ev)

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got Event
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, PaymentApplied, got.Type)
		assert.Equal(t, "inv-1", got.InvoiceID)
		assert.Equal(t, models.InvoiceStatusPaid, got.Status)
		require.NotNil(t, got.Amount)
		assert.True(t, got.Amount.Equal(amt))
	}
}

func TestDisconnectRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)
	waitForSubscribers(t, hub, 1)

	conn.Close()
	waitForSubscribers(t, hub, 0)
}

func TestCloseRefusesNewSubscribers(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	dial(t, srv)
	waitForSubscribers(t, hub, 1)
	hub.Close()
	assert.Equal(t, 0, hub.Count())

	dial(t, srv)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, hub.Count())
}
