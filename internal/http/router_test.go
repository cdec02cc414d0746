package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixwala-backend/internal/auth"
	"fixwala-backend/internal/cache"
	"fixwala-backend/internal/handlers"
	"fixwala-backend/internal/health"
	"fixwala-backend/internal/middleware"
	"fixwala-backend/internal/models"
	"fixwala-backend/internal/repositories/memory"
	"fixwala-backend/internal/services"
)

type testServer struct {
	handler http.Handler
}

func newTestServer(t *testing.T, mutate func(*RouterDeps)) *testServer {
	t.Helper()
	repo := memory.NewInvoiceRepository()
	svc := services.NewInvoiceService(repo, nil, false)
	deps := RouterDeps{
		Invoices: handlers.NewInvoiceHandler(svc, services.NewInvoicePDFService(svc, nil)),
		Health:   handlers.NewHealthHandler(health.NewHealthChecker(repo, "memory", nil), nil),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &testServer{handler: NewRouter(deps)}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createInvoice(t *testing.T, number string) models.Invoice {
	t.Helper()
	body := `{
		"invoiceNumber": "` + number + `",
		"customerName": "Anita",
		"issueDate": "2024-03-01",
		"dueDate": "2024-03-31",
		"lineItems": [
			{"description": "AC service", "quantity": 2, "unitPrice": 30},
			{"description": "Gas refill", "quantity": 1, "unitPrice": 40}
		]
	}`
	rec := s.do(t, http.MethodPost, "/api/invoices", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var inv models.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	return inv
}

type errorBody struct {
	Message    string           `json:"message"`
	BalanceDue *decimal.Decimal `json:"balanceDue"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWelcomeAndHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to Fixwala API"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/health", "")
	assert.JSONEq(t, `{"status":"OK","message":"Server is running"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = s.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndGetInvoice(t *testing.T) {
	s := newTestServer(t, nil)
	inv := s.createInvoice(t, "INV-2001")

	assert.True(t, inv.Total.Equal(decimal.NewFromInt(100)))
	assert.True(t, inv.BalanceDue.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, models.InvoiceStatusUnpaid, inv.Status)

	rec := s.do(t, http.MethodGet, "/api/invoices/"+inv.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var details models.InvoiceDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	assert.Equal(t, inv.ID, details.Invoice.ID)
	assert.Len(t, details.LineItems, 2)
	assert.Empty(t, details.Payments)
	assert.True(t, details.BalanceDue.Equal(decimal.NewFromInt(100)))
}

func TestCreateInvoiceErrors(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/invoices", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeError(t, rec).Message)

	rec = s.do(t, http.MethodPost, "/api/invoices", `{"customerName":"A","issueDate":"2024-01-01","dueDate":"2024-01-02"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invoice number is required", decodeError(t, rec).Message)

	s.createInvoice(t, "INV-DUP")
	rec = s.do(t, http.MethodPost, "/api/invoices",
		`{"invoiceNumber":"INV-DUP","customerName":"A","issueDate":"2024-01-01","dueDate":"2024-01-02"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invoice number already exists", decodeError(t, rec).Message)
}

func TestGetInvoiceNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	for _, id := range []string{uuid.NewString(), "not-an-id"} {
		rec := s.do(t, http.MethodGet, "/api/invoices/"+id, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Invoice not found", decodeError(t, rec).Message)
	}
}

func TestPaymentFlow(t *testing.T) {
	s := newTestServer(t, nil)
	inv := s.createInvoice(t, "INV-PAY")
	path := "/api/invoices/" + inv.ID + "/payments"

	rec := s.do(t, http.MethodPost, path, `{"amount": 40}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result models.PaymentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Invoice.BalanceDue.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, models.InvoiceStatusUnpaid, result.Invoice.Status)
	assert.True(t, result.Payment.Amount.Equal(decimal.NewFromInt(40)))

	rec = s.do(t, http.MethodPost, path, `{"amount": 60, "paymentDate": "2024-03-10T09:30:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Invoice.BalanceDue.IsZero())
	assert.Equal(t, models.InvoiceStatusPaid, result.Invoice.Status)
	assert.Equal(t, time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC), result.Payment.PaymentDate.UTC())

	rec = s.do(t, http.MethodPost, path, `{"amount": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "Payment amount cannot exceed balance due", body.Message)
	require.NotNil(t, body.BalanceDue)
	assert.True(t, body.BalanceDue.IsZero())

	rec = s.do(t, http.MethodGet, "/api/invoices/"+inv.ID, "")
	var details models.InvoiceDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	assert.Len(t, details.Payments, 2)
	assert.True(t, details.AmountPaid.Equal(decimal.NewFromInt(100)))
}

func TestMoneyIsWrittenAsJSONNumbers(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"invoiceNumber":"INV-WIRE","customerName":"A","issueDate":"2024-01-01","dueDate":"2024-01-02",
		"lineItems":[{"description":"Visit","quantity":1,"unitPrice":100}]}`
	rec := s.do(t, http.MethodPost, "/api/invoices", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total":100`)
	assert.Contains(t, rec.Body.String(), `"balanceDue":100`)

	var inv models.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	path := "/api/invoices/" + inv.ID + "/payments"

	rec = s.do(t, http.MethodPost, path, `{"amount": 100}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"amount":100`)

	rec = s.do(t, http.MethodPost, path, `{"amount": 5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balanceDue":0`)
}

func TestPaymentValidation(t *testing.T) {
	s := newTestServer(t, nil)
	inv := s.createInvoice(t, "INV-VAL")

	tests := []struct {
		name string
		path string
		body string
		code int
		msg  string
	}{
		{"missing amount", inv.ID, `{}`, http.StatusBadRequest, "Amount must be greater than 0"},
		{"zero amount", inv.ID, `{"amount": 0}`, http.StatusBadRequest, "Amount must be greater than 0"},
		{"negative amount", inv.ID, `{"amount": -5}`, http.StatusBadRequest, "Amount must be greater than 0"},
		{"bad amount on unknown invoice", uuid.NewString(), `{"amount": 0}`, http.StatusBadRequest, "Amount must be greater than 0"},
		{"unknown invoice", uuid.NewString(), `{"amount": 5}`, http.StatusNotFound, "Invoice not found"},
		{"bad body", inv.ID, `[`, http.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/invoices/"+tt.path+"/payments", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.msg, decodeError(t, rec).Message)
		})
	}
}

func TestArchiveRestoreAndList(t *testing.T) {
	s := newTestServer(t, nil)
	first := s.createInvoice(t, "INV-L1")
	second := s.createInvoice(t, "INV-L2")

	rec := s.do(t, http.MethodPost, "/api/invoices/"+first.ID+"/archive", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var archived struct {
		Message string         `json:"message"`
		Invoice models.Invoice `json:"invoice"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &archived))
	assert.Equal(t, "Invoice archived successfully", archived.Message)
	assert.True(t, archived.Invoice.IsArchived)

	list := func(query string) []models.Invoice {
		rec := s.do(t, http.MethodGet, "/api/invoices"+query, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var out []models.Invoice
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}

	active := list("")
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
	assert.Len(t, list("?archived=false"), 1)
	assert.Len(t, list("?archived=yes"), 1)

	onlyArchived := list("?archived=true")
	require.Len(t, onlyArchived, 1)
	assert.Equal(t, first.ID, onlyArchived[0].ID)

	rec = s.do(t, http.MethodPost, "/api/invoices/"+first.ID+"/restore", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invoice restored successfully")
	assert.Len(t, list(""), 2)
	assert.Empty(t, list("?archived=true"))

	rec = s.do(t, http.MethodPost, "/api/invoices/"+uuid.NewString()+"/archive", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPDFRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	inv := s.createInvoice(t, "INV-PDF")

	rec := s.do(t, http.MethodGet, "/api/invoices/"+inv.ID+"/pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
	assert.Equal(t, `attachment; filename="invoice-INV-PDF.pdf"`, rec.Header().Get("Content-Disposition"))

	quoted := s.createInvoice(t, `INV \"7\"`)
	rec = s.do(t, http.MethodGet, "/api/invoices/"+quoted.ID+"/pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="invoice-INV_7_.pdf"`, rec.Header().Get("Content-Disposition"))

	rec = s.do(t, http.MethodPost, "/api/invoices/"+inv.ID+"/pdf/export", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWriteRateLimit(t *testing.T) {
	s := newTestServer(t, func(d *RouterDeps) {
		limiter := cache.NewMemoryLimiter()
		d.APILimiter = middleware.NewRateLimiter(limiter, "api", 100, time.Minute)
		d.WriteLimiter = middleware.NewRateLimiter(limiter, "write", 1, time.Minute, http.MethodPost)
	})
	inv := s.createInvoice(t, "INV-RL")

	rec := s.do(t, http.MethodPost, "/api/invoices/"+inv.ID+"/payments", `{"amount": 1}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests from this IP, please try again later.", decodeError(t, rec).Message)

	rec = s.do(t, http.MethodGet, "/api/invoices/"+inv.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "97", rec.Header().Get("RateLimit-Remaining"))
}

func TestWriteRoutesRequireTokenWhenConfigured(t *testing.T) {
	jm := auth.NewJWTManager("test-secret", "fixwala-backend", time.Hour)
	s := newTestServer(t, func(d *RouterDeps) {
		d.Auth = middleware.NewAuthMiddleware(jm, auth.ScopeInvoicesWrite)
	})

	body := `{"invoiceNumber":"INV-AUTH","customerName":"A","issueDate":"2024-01-01","dueDate":"2024-01-02"}`
	rec := s.do(t, http.MethodPost, "/api/invoices", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	readOnly, err := jm.GenerateToken("ops", "invoices:read")
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/api/invoices", body, "Authorization", "Bearer "+readOnly)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	token, err := jm.GenerateToken("ops", auth.ScopeInvoicesWrite)
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/api/invoices", body, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/invoices", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
