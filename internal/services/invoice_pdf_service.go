package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"

	"fixwala-backend/internal/logger"
	"fixwala-backend/internal/models"
	"fixwala-backend/internal/storage"
	"fixwala-backend/internal/timeutil"
)

// ObjectStore keeps exported documents
type ObjectStore interface {
	Put(ctx context.Context, name string, body []byte, contentType string) (string, error)
}

type InvoicePDFService struct {
	invoices *InvoiceService
	store    ObjectStore
}

// NewInvoicePDFService renders invoices read through invoices. store may be
// nil, in which case ExportPDF reports storage.ErrNotConfigured.
func NewInvoicePDFService(invoices *InvoiceService, store ObjectStore) *InvoicePDFService {
	return &InvoicePDFService{invoices: invoices, store: store}
}

// GeneratePDF renders the invoice with its line items and payment history
func (s *InvoicePDFService) GeneratePDF(ctx context.Context, id string) (*models.InvoiceDetails, []byte, error) {
	details, err := s.invoices.GetInvoice(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := RenderInvoicePDF(details)
	if err != nil {
		return nil, nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return details, data, nil
}

// ExportPDF renders the invoice and uploads it, returning the object key
func (s *InvoicePDFService) ExportPDF(ctx context.Context, id string) (string, error) {
	if s.store == nil {
		return "", storage.ErrNotConfigured
	}

	details, data, err := s.GeneratePDF(ctx, id)
	if err != nil {
		return "", err
	}

	name := storage.InvoicePDFName(details.Invoice.InvoiceNumber, timeutil.Now())
	key, err := s.store.Put(ctx, name, data, "application/pdf")
	if err != nil {
		return "", err
	}

	logger.FromContext(ctx).Info().
		Str("invoice_id", id).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Invoice PDF exported")
	return key, nil
}

func money(d decimal.Decimal) string {
	return "Rs. " + d.StringFixed(2)
}

// truncate shortens s to n characters for fixed-width cells
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// RenderInvoicePDF lays out a single A4 invoice
func RenderInvoicePDF(d *models.InvoiceDetails) ([]byte, error) {
	inv := d.Invoice

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetTitle("Invoice "+inv.InvoiceNumber, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Fixwala - Invoice", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.Now().Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Invoice information
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Invoice Information", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, tr("Invoice #: "+inv.InvoiceNumber), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Status: "+string(inv.Status), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, tr("Customer: "+truncate(inv.CustomerName, 40)), "LB", 0, "L", false, 0, "")
	archived := "No"
	if inv.IsArchived {
		archived = "Yes"
	}
	pdf.CellFormat(95, 7, "Archived: "+archived, "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Issue date: "+timeutil.FormatDisplay(inv.IssueDate), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Due date: "+timeutil.FormatDisplay(inv.DueDate), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Line items
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Line Items", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(85, 7, "Description", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Unit Price", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Line Total", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	if len(d.LineItems) == 0 {
		pdf.CellFormat(190, 6, "No line items", "1", 1, "C", false, 0, "")
	}
	for _, item := range d.LineItems {
		pdf.CellFormat(85, 6, tr(truncate(item.Description, 45)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, item.Quantity.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, money(item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, money(item.LineTotal), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	// Summary
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Summary", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(63, 8, "Total: "+money(d.Total), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, "Paid: "+money(d.AmountPaid), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, "Balance: "+money(d.BalanceDue), "1", 1, "C", false, 0, "")

	if d.BalanceDue.IsPositive() {
		pdf.SetFillColor(255, 200, 200)
	} else {
		pdf.SetFillColor(200, 255, 200)
	}
	pdf.SetFont("Arial", "B", 14)
	balanceText := "PAID IN FULL"
	if d.BalanceDue.IsPositive() {
		balanceText = "BALANCE DUE: " + money(d.BalanceDue)
	}
	pdf.CellFormat(190, 10, balanceText, "1", 1, "C", true, 0, "")

	// Payment history
	if len(d.Payments) > 0 {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 12)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(190, 8, "Payment History", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(95, 7, "Date", "1", 0, "C", true, 0, "")
		pdf.CellFormat(95, 7, "Amount", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, p := range d.Payments {
			pdf.CellFormat(95, 6, p.PaymentDate.Format("02-Jan-2006"), "1", 0, "C", false, 0, "")
			pdf.CellFormat(95, 6, money(p.Amount), "1", 1, "R", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
