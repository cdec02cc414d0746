package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// money goes over the wire as JSON numbers
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// InvoiceStatus is the payment state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusUnpaid InvoiceStatus = "UNPAID"
	InvoiceStatusPaid   InvoiceStatus = "PAID"
)

// Invoice is the aggregate root owning line items and payments by foreign key
type Invoice struct {
	ID            string          `json:"_id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	CustomerName  string          `json:"customerName"`
	IssueDate     time.Time       `json:"issueDate"`
	DueDate       time.Time       `json:"dueDate"`
	Total         decimal.Decimal `json:"total"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	BalanceDue    decimal.Decimal `json:"balanceDue"`
	Status        InvoiceStatus   `json:"status"`
	IsArchived    bool            `json:"isArchived"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// LineItem is one billed item attached to an invoice
type LineItem struct {
	ID          string          `json:"_id"`
	InvoiceID   string          `json:"invoiceId"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Payment is a recorded reduction of an invoice's balance due
type Payment struct {
	ID          string          `json:"_id"`
	InvoiceID   string          `json:"invoiceId"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"paymentDate"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// CreateLineItemRequest is one proposed line of a new invoice
type CreateLineItemRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// CreateInvoiceRequest represents the request to create an invoice
type CreateInvoiceRequest struct {
	InvoiceNumber string                  `json:"invoiceNumber"`
	CustomerName  string                  `json:"customerName"`
	IssueDate     Date                    `json:"issueDate"`
	DueDate       Date                    `json:"dueDate"`
	LineItems     []CreateLineItemRequest `json:"lineItems"`
}

// AddPaymentRequest represents the request to apply a payment.
// Amount is a pointer so a missing amount can be told apart from zero.
type AddPaymentRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	PaymentDate *Timestamp       `json:"paymentDate"`
}

// InvoiceDetails is the read-time join of an invoice with its children
type InvoiceDetails struct {
	Invoice    *Invoice        `json:"invoice"`
	LineItems  []*LineItem     `json:"lineItems"`
	Payments   []*Payment      `json:"payments"`
	Total      decimal.Decimal `json:"total"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	BalanceDue decimal.Decimal `json:"balanceDue"`
}

// PaymentSummary is the slice of invoice state returned after a payment
type PaymentSummary struct {
	AmountPaid decimal.Decimal `json:"amountPaid"`
	BalanceDue decimal.Decimal `json:"balanceDue"`
	Status     InvoiceStatus   `json:"status"`
}

// PaymentResult is the outcome of a successful payment application
type PaymentResult struct {
	Payment *Payment       `json:"payment"`
	Invoice PaymentSummary `json:"invoice"`
}

// InvoiceFilter selects invoices for listing
type InvoiceFilter struct {
	Archived bool
}

// NewInvoiceDetails assembles the detail view; nil slices become empty lists.
func NewInvoiceDetails(inv *Invoice, items []*LineItem, payments []*Payment) *InvoiceDetails {
	if items == nil {
		items = []*LineItem{}
	}
	if payments == nil {
		payments = []*Payment{}
	}
	return &InvoiceDetails{
		Invoice:    inv,
		LineItems:  items,
		Payments:   payments,
		Total:      inv.Total,
		AmountPaid: inv.AmountPaid,
		BalanceDue: inv.BalanceDue,
	}
}

// Summary returns the payment-facing fields of the invoice
func (inv *Invoice) Summary() PaymentSummary {
	return PaymentSummary{
		AmountPaid: inv.AmountPaid,
		BalanceDue: inv.BalanceDue,
		Status:     inv.Status,
	}
}

// BuildInvoice applies the totals rule to a creation request. Every line total
// is quantity times unit price, the invoice total is their sum and the whole
// total is still due.
func BuildInvoice(req *CreateInvoiceRequest, newID func() string, now time.Time) (*Invoice, []*LineItem) {
	inv := &Invoice{
		ID:            newID(),
		InvoiceNumber: req.InvoiceNumber,
		CustomerName:  req.CustomerName,
		IssueDate:     req.IssueDate.Time(),
		DueDate:       req.DueDate.Time(),
		Total:         decimal.Zero,
		AmountPaid:    decimal.Zero,
		BalanceDue:    decimal.Zero,
		Status:        InvoiceStatusUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	items := make([]*LineItem, 0, len(req.LineItems))
	for _, line := range req.LineItems {
		item := &LineItem{
			ID:          newID(),
			InvoiceID:   inv.ID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.Quantity.Mul(line.UnitPrice),
			CreatedAt:   now,
		}
		inv.Total = inv.Total.Add(item.LineTotal)
		items = append(items, item)
	}
	inv.BalanceDue = inv.Total

	return inv, items
}

// ApplyPayment moves amount from balance due to amount paid. The invoice is
// left untouched when the payment is rejected.
func (inv *Invoice) ApplyPayment(amount decimal.Decimal, rejectArchived bool, now time.Time) error {
	if err := ValidatePaymentAmount(&amount); err != nil {
		return err
	}
	if rejectArchived && inv.IsArchived {
		return ErrArchivedPayment
	}
	if amount.GreaterThan(inv.BalanceDue) {
		return NewOverpaymentError(inv.BalanceDue)
	}

	inv.AmountPaid = inv.AmountPaid.Add(amount)
	inv.BalanceDue = inv.Total.Sub(inv.AmountPaid)
	if inv.BalanceDue.IsZero() {
		inv.Status = InvoiceStatusPaid
	}
	inv.UpdatedAt = now
	return nil
}

// SetArchived toggles the soft-hide flag. Repeating a transition is a no-op.
func (inv *Invoice) SetArchived(archived bool, now time.Time) {
	if inv.IsArchived == archived {
		return
	}
	inv.IsArchived = archived
	inv.UpdatedAt = now
}

// Clone returns a copy that shares no mutable state with inv
func (inv *Invoice) Clone() *Invoice {
	c := *inv
	return &c
}
