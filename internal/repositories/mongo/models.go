package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"fixwala-backend/internal/models"
)

type invoiceModel struct {
	ID            string          `bson:"_id"`
	InvoiceNumber string          `bson:"invoice_number"`
	CustomerName  string          `bson:"customer_name"`
	IssueDate     time.Time       `bson:"issue_date"`
	DueDate       time.Time       `bson:"due_date"`
	Total         bson.Decimal128 `bson:"total"`
	AmountPaid    bson.Decimal128 `bson:"amount_paid"`
	BalanceDue    bson.Decimal128 `bson:"balance_due"`
	Status        string          `bson:"status"`
	IsArchived    bool            `bson:"is_archived"`
	CreatedAt     time.Time       `bson:"created_at"`
	UpdatedAt     time.Time       `bson:"updated_at"`
}

type lineItemModel struct {
	ID          string          `bson:"_id"`
	InvoiceID   string          `bson:"invoice_id"`
	Description string          `bson:"description"`
	Quantity    bson.Decimal128 `bson:"quantity"`
	UnitPrice   bson.Decimal128 `bson:"unit_price"`
	LineTotal   bson.Decimal128 `bson:"line_total"`
	CreatedAt   time.Time       `bson:"created_at"`
}

type paymentModel struct {
	ID          string          `bson:"_id"`
	InvoiceID   string          `bson:"invoice_id"`
	Amount      bson.Decimal128 `bson:"amount"`
	PaymentDate time.Time       `bson:"payment_date"`
	CreatedAt   time.Time       `bson:"created_at"`
}

// toDecimal128 converts a decimal for storage. Values that do not fit in
// 34 significant digits are rejected rather than rounded.
func toDecimal128(d decimal.Decimal) (bson.Decimal128, error) {
	v, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, fmt.Errorf("convert %s to decimal128: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v bson.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("convert decimal128 %s: %w", v.String(), err)
	}
	return d, nil
}

func toInvoiceModel(inv *models.Invoice) (*invoiceModel, error) {
	total, err := toDecimal128(inv.Total)
	if err != nil {
		return nil, err
	}
	paid, err := toDecimal128(inv.AmountPaid)
	if err != nil {
		return nil, err
	}
	balance, err := toDecimal128(inv.BalanceDue)
	if err != nil {
		return nil, err
	}
	return &invoiceModel{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerName:  inv.CustomerName,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		Total:         total,
		AmountPaid:    paid,
		BalanceDue:    balance,
		Status:        string(inv.Status),
		IsArchived:    inv.IsArchived,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}, nil
}

func fromInvoiceModel(m *invoiceModel) (*models.Invoice, error) {
	total, err := fromDecimal128(m.Total)
	if err != nil {
		return nil, err
	}
	paid, err := fromDecimal128(m.AmountPaid)
	if err != nil {
		return nil, err
	}
	balance, err := fromDecimal128(m.BalanceDue)
	if err != nil {
		return nil, err
	}
	return &models.Invoice{
		ID:            m.ID,
		InvoiceNumber: m.InvoiceNumber,
		CustomerName:  m.CustomerName,
		IssueDate:     m.IssueDate.UTC(),
		DueDate:       m.DueDate.UTC(),
		Total:         total,
		AmountPaid:    paid,
		BalanceDue:    balance,
		Status:        models.InvoiceStatus(m.Status),
		IsArchived:    m.IsArchived,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}, nil
}

func toLineItemModel(item *models.LineItem) (*lineItemModel, error) {
	qty, err := toDecimal128(item.Quantity)
	if err != nil {
		return nil, err
	}
	price, err := toDecimal128(item.UnitPrice)
	if err != nil {
		return nil, err
	}
	lineTotal, err := toDecimal128(item.LineTotal)
	if err != nil {
		return nil, err
	}
	return &lineItemModel{
		ID:          item.ID,
		InvoiceID:   item.InvoiceID,
		Description: item.Description,
		Quantity:    qty,
		UnitPrice:   price,
		LineTotal:   lineTotal,
		CreatedAt:   item.CreatedAt,
	}, nil
}

func fromLineItemModel(m *lineItemModel) (*models.LineItem, error) {
	qty, err := fromDecimal128(m.Quantity)
	if err != nil {
		return nil, err
	}
	price, err := fromDecimal128(m.UnitPrice)
	if err != nil {
		return nil, err
	}
	lineTotal, err := fromDecimal128(m.LineTotal)
	if err != nil {
		return nil, err
	}
	return &models.LineItem{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		Description: m.Description,
		Quantity:    qty,
		UnitPrice:   price,
		LineTotal:   lineTotal,
		CreatedAt:   m.CreatedAt.UTC(),
	}, nil
}

func toPaymentModel(p *models.Payment) (*paymentModel, error) {
	amt, err := toDecimal128(p.Amount)
	if err != nil {
		return nil, err
	}
	return &paymentModel{
		ID:          p.ID,
		InvoiceID:   p.InvoiceID,
		Amount:      amt,
		PaymentDate: p.PaymentDate,
		CreatedAt:   p.CreatedAt,
	}, nil
}

func fromPaymentModel(m *paymentModel) (*models.Payment, error) {
	amt, err := fromDecimal128(m.Amount)
	if err != nil {
		return nil, err
	}
	return &models.Payment{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		Amount:      amt,
		PaymentDate: m.PaymentDate.UTC(),
		CreatedAt:   m.CreatedAt.UTC(),
	}, nil
}
