package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ValidatePaymentAmount rejects a missing, zero or negative amount
func ValidatePaymentAmount(amount *decimal.Decimal) error {
	if amount == nil || !amount.IsPositive() {
		return ErrAmountRequired
	}
	return nil
}

// Validate checks a creation request before any totals are computed
func (req *CreateInvoiceRequest) Validate() error {
	req.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)
	req.CustomerName = strings.TrimSpace(req.CustomerName)

	switch {
	case req.InvoiceNumber == "":
		return &ValidationError{Field: "invoiceNumber", Message: "Invoice number is required"}
	case req.CustomerName == "":
		return &ValidationError{Field: "customerName", Message: "Customer name is required"}
	case req.IssueDate.IsZero():
		return &ValidationError{Field: "issueDate", Message: "Issue date is required"}
	case req.DueDate.IsZero():
		return &ValidationError{Field: "dueDate", Message: "Due date is required"}
	}

	for i := range req.LineItems {
		if err := req.LineItems[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a single proposed line item
func (l *CreateLineItemRequest) Validate() error {
	l.Description = strings.TrimSpace(l.Description)
	switch {
	case l.Description == "":
		return &ValidationError{Field: "lineItems.description", Message: "Description is required"}
	case !l.Quantity.IsPositive():
		return &ValidationError{Field: "lineItems.quantity", Message: "Quantity must be greater than 0"}
	case l.UnitPrice.IsNegative():
		return &ValidationError{Field: "lineItems.unitPrice", Message: "Unit price cannot be negative"}
	}
	return nil
}
