package handlers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"fixwala-backend/internal/logger"
	"fixwala-backend/internal/models"
	"fixwala-backend/internal/storage"
	"fixwala-backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

type validationResponse struct {
	Message    string           `json:"message"`
	BalanceDue *decimal.Decimal `json:"balanceDue,omitempty"`
}

// respondError maps service errors onto status codes. Unknown errors are
// logged and reported without detail.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := models.IsValidation(err); ok {
		utils.JSON(w, http.StatusBadRequest, validationResponse{
			Message:    ve.Message,
			BalanceDue: ve.BalanceDue,
		})
		return
	}

	switch {
	case models.IsNotFound(err):
		utils.Message(w, http.StatusNotFound, "Invoice not found")
	case errors.Is(err, storage.ErrNotConfigured):
		utils.Message(w, http.StatusServiceUnavailable, "Object storage is not configured")
	default:
		logger.FromContext(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		utils.Message(w, http.StatusInternalServerError, "Internal server error")
	}
}
