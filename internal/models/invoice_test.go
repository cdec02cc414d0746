package models

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestInvoice(total string) *Invoice {
	req := &CreateInvoiceRequest{
		InvoiceNumber: "INV-1",
		CustomerName:  "Asha",
		IssueDate:     NewDate(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		DueDate:       NewDate(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)),
		LineItems: []CreateLineItemRequest{
			{Description: "Service", Quantity: d("1"), UnitPrice: d(total)},
		},
	}
	inv, _ := BuildInvoice(req, sequentialIDs(), time.Now())
	return inv
}

func TestBuildInvoiceTotals(t *testing.T) {
	req := &CreateInvoiceRequest{
		InvoiceNumber: "INV-1",
		CustomerName:  "Asha",
		LineItems: []CreateLineItemRequest{
			{Description: "AC repair", Quantity: d("2"), UnitPrice: d("10")},
			{Description: "Gas refill", Quantity: d("1"), UnitPrice: d("5")},
		},
	}

	inv, items := BuildInvoice(req, sequentialIDs(), time.Now())

	require.Len(t, items, 2)
	assert.True(t, items[0].LineTotal.Equal(d("20")))
	assert.True(t, items[1].LineTotal.Equal(d("5")))
	assert.True(t, inv.Total.Equal(d("25")))
	assert.True(t, inv.BalanceDue.Equal(d("25")))
	assert.True(t, inv.AmountPaid.IsZero())
	assert.Equal(t, InvoiceStatusUnpaid, inv.Status)
	assert.False(t, inv.IsArchived)
	for _, item := range items {
		assert.Equal(t, inv.ID, item.InvoiceID)
	}
}

func TestBuildInvoiceWithoutLineItems(t *testing.T) {
	inv, items := BuildInvoice(&CreateInvoiceRequest{InvoiceNumber: "INV-2"}, sequentialIDs(), time.Now())

	assert.Empty(t, items)
	assert.True(t, inv.Total.IsZero())
	assert.True(t, inv.BalanceDue.IsZero())
}

func TestBuildInvoiceFractionalQuantity(t *testing.T) {
	req := &CreateInvoiceRequest{
		LineItems: []CreateLineItemRequest{
			{Description: "Labour", Quantity: d("1.5"), UnitPrice: d("0.10")},
			{Description: "Parts", Quantity: d("3"), UnitPrice: d("0.20")},
		},
	}
	inv, _ := BuildInvoice(req, sequentialIDs(), time.Now())

	assert.Equal(t, "0.75", inv.Total.String())
}

func TestApplyPayment(t *testing.T) {
	tests := []struct {
		name        string
		amount      string
		wantErr     bool
		wantPaid    string
		wantBalance string
		wantStatus  InvoiceStatus
	}{
		{"partial", "40", false, "40", "60", InvoiceStatusUnpaid},
		{"exact", "100", false, "100", "0", InvoiceStatusPaid},
		{"zero", "0", true, "0", "100", InvoiceStatusUnpaid},
		{"negative", "-5", true, "0", "100", InvoiceStatusUnpaid},
		{"overpayment", "100.01", true, "0", "100", InvoiceStatusUnpaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newTestInvoice("100")

			err := inv.ApplyPayment(d(tt.amount), false, time.Now())

			if tt.wantErr {
				_, ok := IsValidation(err)
				assert.True(t, ok, "expected validation error, got %v", err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, d(tt.wantPaid).String(), inv.AmountPaid.String())
			assert.Equal(t, d(tt.wantBalance).String(), inv.BalanceDue.String())
			assert.Equal(t, tt.wantStatus, inv.Status)
			assert.True(t, inv.BalanceDue.Equal(inv.Total.Sub(inv.AmountPaid)))
		})
	}
}

func TestApplyPaymentOverpaymentReportsBalance(t *testing.T) {
	inv := newTestInvoice("100")
	require.NoError(t, inv.ApplyPayment(d("30"), false, time.Now()))

	err := inv.ApplyPayment(d("80"), false, time.Now())

	ve, ok := IsValidation(err)
	require.True(t, ok)
	require.NotNil(t, ve.BalanceDue)
	assert.True(t, ve.BalanceDue.Equal(d("70")))
	assert.Equal(t, "Payment amount cannot exceed balance due", ve.Message)
}

func TestApplyPaymentArchivedGuard(t *testing.T) {
	inv := newTestInvoice("100")
	inv.SetArchived(true, time.Now())

	assert.NoError(t, inv.Clone().ApplyPayment(d("10"), false, time.Now()))
	assert.ErrorIs(t, inv.ApplyPayment(d("10"), true, time.Now()), ErrArchivedPayment)
	assert.True(t, inv.AmountPaid.IsZero())
}

func TestPaymentScenario(t *testing.T) {
	inv := newTestInvoice("100")

	require.NoError(t, inv.ApplyPayment(d("40"), false, time.Now()))
	assert.Equal(t, "60", inv.BalanceDue.String())
	assert.Equal(t, InvoiceStatusUnpaid, inv.Status)

	require.NoError(t, inv.ApplyPayment(d("60"), false, time.Now()))
	assert.True(t, inv.BalanceDue.IsZero())
	assert.Equal(t, InvoiceStatusPaid, inv.Status)

	err := inv.ApplyPayment(d("1"), false, time.Now())
	ve, ok := IsValidation(err)
	require.True(t, ok)
	assert.True(t, ve.BalanceDue.IsZero())
	assert.Equal(t, "100", inv.AmountPaid.String())
}

func TestSetArchivedIsIdempotent(t *testing.T) {
	inv := newTestInvoice("10")

	inv.SetArchived(true, time.Now())
	inv.SetArchived(true, time.Now())
	assert.True(t, inv.IsArchived)

	inv.SetArchived(false, time.Now())
	inv.SetArchived(false, time.Now())
	assert.False(t, inv.IsArchived)
}

func TestCreateInvoiceRequestValidate(t *testing.T) {
	valid := func() CreateInvoiceRequest {
		return CreateInvoiceRequest{
			InvoiceNumber: " INV-9 ",
			CustomerName:  "Ravi",
			IssueDate:     NewDate(time.Now()),
			DueDate:       NewDate(time.Now()),
			LineItems:     []CreateLineItemRequest{{Description: "Fan", Quantity: d("1"), UnitPrice: d("0")}},
		}
	}

	req := valid()
	require.NoError(t, req.Validate())
	assert.Equal(t, "INV-9", req.InvoiceNumber)

	cases := map[string]func(r *CreateInvoiceRequest){
		"invoiceNumber":         func(r *CreateInvoiceRequest) { r.InvoiceNumber = " " },
		"customerName":          func(r *CreateInvoiceRequest) { r.CustomerName = "" },
		"issueDate":             func(r *CreateInvoiceRequest) { r.IssueDate = Date{} },
		"dueDate":               func(r *CreateInvoiceRequest) { r.DueDate = Date{} },
		"lineItems.description": func(r *CreateInvoiceRequest) { r.LineItems[0].Description = "" },
		"lineItems.quantity":    func(r *CreateInvoiceRequest) { r.LineItems[0].Quantity = d("0") },
		"lineItems.unitPrice":   func(r *CreateInvoiceRequest) { r.LineItems[0].UnitPrice = d("-1") },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			r := valid()
			mutate(&r)
			ve, ok := IsValidation(r.Validate())
			require.True(t, ok)
			assert.Equal(t, field, ve.Field)
		})
	}
}

func TestDateJSON(t *testing.T) {
	var req CreateInvoiceRequest
	body := `{"issueDate":"2024-05-10","dueDate":"2024-06-09T18:30:00Z"}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), req.IssueDate.Time())
	assert.Equal(t, time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), req.DueDate.Time())

	out, err := json.Marshal(req.IssueDate)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-05-10"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"issueDate":"10/05/2024"}`), &req))
}

func TestNewInvoiceDetailsEmptyChildren(t *testing.T) {
	inv := newTestInvoice("10")
	details := NewInvoiceDetails(inv, nil, nil)

	out, err := json.Marshal(details)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"lineItems":[]`)
	assert.Contains(t, string(out), `"payments":[]`)
}

func TestInvoiceMoneyEncodesAsNumbers(t *testing.T) {
	inv := newTestInvoice("100.50")

	raw, err := json.Marshal(inv)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"total":100.5`)
	assert.Contains(t, string(raw), `"amountPaid":0`)
	assert.Contains(t, string(raw), `"balanceDue":100.5`)
}
