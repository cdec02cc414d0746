// Package mongo stores invoices in MongoDB. Money is kept as Decimal128 and
// payments are applied with a filtered pipeline update so the balance check
// and the debit happen in one server-side step.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"fixwala-backend/internal/logger"
	"fixwala-backend/internal/models"
	"fixwala-backend/internal/repositories"
	"fixwala-backend/internal/timeutil"
)

// Collection name constants.
const (
	colInvoices  = "invoices"
	colLineItems = "invoice_lines"
	colPayments  = "payments"
)

// compile-time interface check
var _ repositories.InvoiceStore = (*InvoiceRepository)(nil)

// InvoiceRepository implements repositories.InvoiceStore on MongoDB.
type InvoiceRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewInvoiceRepository uses the named database on an already connected client.
func NewInvoiceRepository(client *mongo.Client, database string) *InvoiceRepository {
	return &InvoiceRepository{
		client: client,
		db:     client.Database(database),
	}
}

func (r *InvoiceRepository) invoices() *mongo.Collection  { return r.db.Collection(colInvoices) }
func (r *InvoiceRepository) lineItems() *mongo.Collection { return r.db.Collection(colLineItems) }
func (r *InvoiceRepository) payments() *mongo.Collection  { return r.db.Collection(colPayments) }

// Migrate creates indexes for all invoice collections.
func (r *InvoiceRepository) Migrate(ctx context.Context) error {
	for col, idx := range migrationIndexes() {
		if len(idx) == 0 {
			continue
		}
		if _, err := r.db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (r *InvoiceRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (r *InvoiceRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// Create inserts the invoice first so the unique index on invoice_number
// decides duplicates, then its line items. A failed line insert removes
// whatever was written.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice, items []*models.LineItem) error {
	m, err := toInvoiceModel(inv)
	if err != nil {
		return err
	}

	lines := make([]any, 0, len(items))
	for _, item := range items {
		lm, err := toLineItemModel(item)
		if err != nil {
			return err
		}
		lines = append(lines, lm)
	}

	if _, err := r.invoices().InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicateInvoiceNumber
		}
		return fmt.Errorf("mongo: create invoice: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}
	if _, err := r.lineItems().InsertMany(ctx, lines); err != nil {
		r.undoCreate(inv.ID)
		return fmt.Errorf("mongo: create line items: %w", err)
	}
	return nil
}

// undoCreate runs on a fresh context so a cancelled request still cleans up.
func (r *InvoiceRepository) undoCreate(invoiceID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := logger.WithComponent("mongo")
	if _, err := r.lineItems().DeleteMany(ctx, bson.M{"invoice_id": invoiceID}); err != nil {
		log.Error().Err(err).Str("invoice_id", invoiceID).Msg("Failed to remove partial line items")
	}
	if _, err := r.invoices().DeleteOne(ctx, bson.M{"_id": invoiceID}); err != nil {
		log.Error().Err(err).Str("invoice_id", invoiceID).Msg("Failed to remove partial invoice")
	}
}

func (r *InvoiceRepository) Get(ctx context.Context, id string) (*models.Invoice, error) {
	var m invoiceModel
	err := r.invoices().FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, models.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("mongo: get invoice: %w", err)
	}
	return fromInvoiceModel(&m)
}

func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	cursor, err := r.invoices().Find(ctx,
		bson.M{"is_archived": filter.Archived},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: list invoices: %w", err)
	}

	var ms []invoiceModel
	if err := cursor.All(ctx, &ms); err != nil {
		return nil, fmt.Errorf("mongo: list invoices: %w", err)
	}

	result := make([]*models.Invoice, 0, len(ms))
	for i := range ms {
		inv, err := fromInvoiceModel(&ms[i])
		if err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, nil
}

func (r *InvoiceRepository) GetLineItems(ctx context.Context, invoiceID string) ([]*models.LineItem, error) {
	cursor, err := r.lineItems().Find(ctx,
		bson.M{"invoice_id": invoiceID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: get line items: %w", err)
	}

	var ms []lineItemModel
	if err := cursor.All(ctx, &ms); err != nil {
		return nil, fmt.Errorf("mongo: get line items: %w", err)
	}

	result := make([]*models.LineItem, 0, len(ms))
	for i := range ms {
		item, err := fromLineItemModel(&ms[i])
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, nil
}

func (r *InvoiceRepository) GetPayments(ctx context.Context, invoiceID string) ([]*models.Payment, error) {
	cursor, err := r.payments().Find(ctx,
		bson.M{"invoice_id": invoiceID},
		options.Find().SetSort(bson.D{{Key: "payment_date", Value: -1}, {Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: get payments: %w", err)
	}

	var ms []paymentModel
	if err := cursor.All(ctx, &ms); err != nil {
		return nil, fmt.Errorf("mongo: get payments: %w", err)
	}

	result := make([]*models.Payment, 0, len(ms))
	for i := range ms {
		p, err := fromPaymentModel(&ms[i])
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// SetArchived sets the flag and only bumps updated_at when it changes.
func (r *InvoiceRepository) SetArchived(ctx context.Context, id string, archived bool) (*models.Invoice, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "updated_at", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$is_archived", archived}}},
				"$updated_at",
				timeutil.Now(),
			}}}},
			{Key: "is_archived", Value: bson.D{{Key: "$literal", Value: archived}}},
		}}},
	}

	var m invoiceModel
	err := r.invoices().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, models.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("mongo: set archived: %w", err)
	}
	return fromInvoiceModel(&m)
}

// ApplyPayment debits the invoice only if balance_due still covers the
// amount, then records the payment. If the payment insert fails the debit is
// reversed.
func (r *InvoiceRepository) ApplyPayment(ctx context.Context, payment *models.Payment, rejectArchived bool) (*models.Invoice, error) {
	if err := models.ValidatePaymentAmount(&payment.Amount); err != nil {
		return nil, err
	}

	amt, err := toDecimal128(payment.Amount)
	if err != nil {
		return nil, err
	}
	pm, err := toPaymentModel(payment)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"_id":         payment.InvoiceID,
		"balance_due": bson.M{"$gte": amt},
	}
	if rejectArchived {
		filter["is_archived"] = false
	}

	var m invoiceModel
	err = r.invoices().FindOneAndUpdate(ctx,
		filter,
		debitPipeline(amt, timeutil.Now()),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, r.explainRejectedPayment(ctx, payment.InvoiceID, rejectArchived)
		}
		return nil, fmt.Errorf("mongo: apply payment: %w", err)
	}

	if _, err := r.payments().InsertOne(ctx, pm); err != nil {
		r.undoDebit(payment.InvoiceID, amt)
		return nil, fmt.Errorf("mongo: record payment: %w", err)
	}
	return fromInvoiceModel(&m)
}

// debitPipeline moves amt from balance_due to amount_paid and marks the
// invoice PAID once nothing is owed.
func debitPipeline(amt bson.Decimal128, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "amount_paid", Value: bson.D{{Key: "$add", Value: bson.A{"$amount_paid", amt}}}},
			{Key: "balance_due", Value: bson.D{{Key: "$subtract", Value: bson.A{"$balance_due", amt}}}},
			{Key: "updated_at", Value: now},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "status", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$balance_due", 0}}},
				string(models.InvoiceStatusPaid),
				"$status",
			}}}},
		}}},
	}
}

func (r *InvoiceRepository) undoDebit(invoiceID string, amt bson.Decimal128) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "amount_paid", Value: bson.D{{Key: "$subtract", Value: bson.A{"$amount_paid", amt}}}},
			{Key: "balance_due", Value: bson.D{{Key: "$add", Value: bson.A{"$balance_due", amt}}}},
			{Key: "status", Value: string(models.InvoiceStatusUnpaid)},
		}}},
	}
	if _, err := r.invoices().UpdateOne(ctx, bson.M{"_id": invoiceID}, update); err != nil {
		lg := logger.WithComponent("mongo")
		lg.Error().Err(err).
			Str("invoice_id", invoiceID).
			Str("amount", amt.String()).
			Msg("Failed to reverse payment debit")
	}
}

func (r *InvoiceRepository) explainRejectedPayment(ctx context.Context, invoiceID string, rejectArchived bool) error {
	inv, err := r.Get(ctx, invoiceID)
	if err != nil {
		return err
	}
	if rejectArchived && inv.IsArchived {
		return models.ErrArchivedPayment
	}
	return models.NewOverpaymentError(inv.BalanceDue)
}

// Reset deletes every document in the invoice collections.
func (r *InvoiceRepository) Reset(ctx context.Context) error {
	for _, col := range []string{colPayments, colLineItems, colInvoices} {
		if _, err := r.db.Collection(col).DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("mongo: reset %s: %w", col, err)
		}
	}
	return nil
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all invoice collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colInvoices: {
			{
				Keys:    bson.D{{Key: "invoice_number", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "is_archived", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colLineItems: {
			{Keys: bson.D{{Key: "invoice_id", Value: 1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "invoice_id", Value: 1}, {Key: "payment_date", Value: -1}}},
		},
	}
}
