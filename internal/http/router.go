package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fixwala-backend/internal/handlers"
	"fixwala-backend/internal/middleware"
)

// RouterDeps collects everything NewRouter mounts. The limiters, Auth and
// CORS are optional.
type RouterDeps struct {
	Invoices *handlers.InvoiceHandler
	Health   *handlers.HealthHandler
	Events   http.Handler

	APILimiter   *middleware.RateLimiter
	WriteLimiter *middleware.RateLimiter
	Auth         *middleware.AuthMiddleware
	CORS         func(http.Handler) http.Handler
}

// NewRouter builds the API router wrapped in the request-wide middleware
func NewRouter(d RouterDeps) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	// write routes need a bearer token only when a JWT secret is configured
	protect := func(h http.HandlerFunc) http.Handler {
		if d.Auth == nil {
			return h
		}
		return d.Auth.Authenticate(h)
	}

	api := r.PathPrefix("/api").Subrouter()
	if d.APILimiter != nil {
		api.Use(d.APILimiter.Handler)
	}
	if d.WriteLimiter != nil {
		api.Use(d.WriteLimiter.Handler)
	}

	api.HandleFunc("", d.Health.Welcome).Methods("GET")
	api.HandleFunc("/health", d.Health.APIHealth).Methods("GET")

	// Invoices
	if d.Events != nil {
		api.Handle("/invoices/events", d.Events).Methods("GET")
	}
	api.HandleFunc("/invoices", d.Invoices.ListInvoices).Methods("GET")
	api.Handle("/invoices", protect(d.Invoices.CreateInvoice)).Methods("POST")
	api.HandleFunc("/invoices/{id}", d.Invoices.GetInvoice).Methods("GET")
	api.Handle("/invoices/{id}/payments", protect(d.Invoices.AddPayment)).Methods("POST")
	api.Handle("/invoices/{id}/archive", protect(d.Invoices.ArchiveInvoice)).Methods("POST")
	api.Handle("/invoices/{id}/restore", protect(d.Invoices.RestoreInvoice)).Methods("POST")
	api.HandleFunc("/invoices/{id}/pdf", d.Invoices.DownloadPDF).Methods("GET")
	api.Handle("/invoices/{id}/pdf/export", protect(d.Invoices.ExportPDF)).Methods("POST")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", d.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", d.Health.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", d.Health.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = r
	if d.CORS != nil {
		handler = d.CORS(handler)
	}
	return middleware.AccessLog(middleware.PanicRecovery(handler))
}
