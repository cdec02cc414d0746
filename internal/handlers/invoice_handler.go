package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"fixwala-backend/internal/models"
	"fixwala-backend/internal/services"
	"fixwala-backend/internal/storage"
	"fixwala-backend/pkg/utils"
)

type InvoiceHandler struct {
	Service    *services.InvoiceService
	PDFService *services.InvoicePDFService
}

func NewInvoiceHandler(s *services.InvoiceService, pdf *services.InvoicePDFService) *InvoiceHandler {
	return &InvoiceHandler{Service: s, PDFService: pdf}
}

type archiveResponse struct {
	Message string          `json:"message"`
	Invoice *models.Invoice `json:"invoice"`
}

type exportResponse struct {
	Key string `json:"key"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.Message(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// ListInvoices returns archived invoices for ?archived=true and active ones otherwise
func (h *InvoiceHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	archived := r.URL.Query().Get("archived") == "true"

	invoices, err := h.Service.ListInvoices(r.Context(), archived)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, invoices)
}

// CreateInvoice creates a new invoice with its line items
func (h *InvoiceHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInvoiceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	invoice, err := h.Service.CreateInvoice(r.Context(), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, invoice)
}

// GetInvoice returns the invoice with its line items and payments
func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	details, err := h.Service.GetInvoice(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, details)
}

// AddPayment applies a payment against the invoice balance
func (h *InvoiceHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	var req models.AddPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.Service.AddPayment(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, result)
}

func (h *InvoiceHandler) ArchiveInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.Service.ArchiveInvoice(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, archiveResponse{
		Message: "Invoice archived successfully",
		Invoice: invoice,
	})
}

func (h *InvoiceHandler) RestoreInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.Service.RestoreInvoice(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, archiveResponse{
		Message: "Invoice restored successfully",
		Invoice: invoice,
	})
}

// DownloadPDF renders the invoice as a PDF attachment
func (h *InvoiceHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	details, pdf, err := h.PDFService.GeneratePDF(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, storage.SafeName(details.Invoice.InvoiceNumber)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// ExportPDF uploads the rendered PDF to object storage
func (h *InvoiceHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	key, err := h.PDFService.ExportPDF(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, exportResponse{Key: key})
}
