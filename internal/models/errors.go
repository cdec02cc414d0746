package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvoiceNotFound = errors.New("invoice not found")

	ErrAmountRequired = &ValidationError{
		Field:   "amount",
		Message: "Amount must be greater than 0",
	}
	ErrArchivedPayment = &ValidationError{
		Field:   "invoice",
		Message: "Cannot add payment to an archived invoice",
	}
	ErrDuplicateInvoiceNumber = &ValidationError{
		Field:   "invoiceNumber",
		Message: "Invoice number already exists",
	}
)

// ValidationError is a client-caused rejection. BalanceDue is set when the
// caller tried to pay more than is owed.
type ValidationError struct {
	Field      string
	Message    string
	BalanceDue *decimal.Decimal
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewOverpaymentError reports the balance that a payment exceeded
func NewOverpaymentError(balanceDue decimal.Decimal) *ValidationError {
	return &ValidationError{
		Field:      "amount",
		Message:    "Payment amount cannot exceed balance due",
		BalanceDue: &balanceDue,
	}
}

// IsValidation returns the validation error wrapped in err, if any
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsNotFound returns true if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInvoiceNotFound)
}
