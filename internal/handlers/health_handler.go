package handlers

import (
	"net/http"

	"fixwala-backend/internal/health"
	"fixwala-backend/internal/monitoring"
	"fixwala-backend/pkg/utils"
)

type HealthHandler struct {
	checker  *health.HealthChecker
	watchdog *monitoring.Watchdog
}

// NewHealthHandler wires the probes. watchdog may be nil.
func NewHealthHandler(checker *health.HealthChecker, watchdog *monitoring.Watchdog) *HealthHandler {
	return &HealthHandler{checker: checker, watchdog: watchdog}
}

type apiHealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *HealthHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	utils.Message(w, http.StatusOK, "Welcome to Fixwala API")
}

func (h *HealthHandler) APIHealth(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, apiHealthResponse{Status: "OK", Message: "Server is running"})
}

// BasicHealth - for Kubernetes liveness probe
func (h *HealthHandler) BasicHealth(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadinessHealth - for Kubernetes readiness probe
func (h *HealthHandler) ReadinessHealth(w http.ResponseWriter, r *http.Request) {
	status := h.checker.CheckBasic(r.Context())

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	utils.JSON(w, code, status)
}

// DetailedHealth adds host stats and recent watchdog alerts
func (h *HealthHandler) DetailedHealth(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, h.checker.CheckDetailed(r.Context(), h.watchdog))
}
