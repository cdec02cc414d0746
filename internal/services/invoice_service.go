package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"fixwala-backend/internal/events"
	"fixwala-backend/internal/logger"
	"fixwala-backend/internal/metrics"
	"fixwala-backend/internal/models"
	"fixwala-backend/internal/repositories"
	"fixwala-backend/internal/timeutil"
)

// Notifier receives invoice events after a change has been stored
type Notifier interface {
	Publish(ev events.Event)
}

type noopNotifier struct{}

func (noopNotifier) Publish(events.Event) {}

type InvoiceService struct {
	Repo repositories.InvoiceStore

	notifier               Notifier
	rejectArchivedPayments bool
	newID                  func() string
	now                    func() time.Time
}

// NewInvoiceService wires the invoice rules to a store. notifier may be nil.
// When rejectArchivedPayments is false archived invoices still accept
// payments, matching how the archive flag has always behaved.
func NewInvoiceService(repo repositories.InvoiceStore, notifier Notifier, rejectArchivedPayments bool) *InvoiceService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &InvoiceService{
		Repo:                   repo,
		notifier:               notifier,
		rejectArchivedPayments: rejectArchivedPayments,
		newID:                  uuid.NewString,
		now:                    timeutil.Now,
	}
}

// isValidID reports whether id could have been issued by this service.
// Anything else cannot exist and is treated as not found.
func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CreateInvoice validates the request, applies the totals rule and stores the
// invoice with its line items as one unit.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req *models.CreateInvoiceRequest) (*models.Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv, items := models.BuildInvoice(req, s.newID, s.now())
	if err := s.Repo.Create(ctx, inv, items); err != nil {
		return nil, err
	}

	metrics.InvoicesCreated.Inc()
	s.notifier.Publish(events.NewInvoiceEvent(events.InvoiceCreated, inv, inv.CreatedAt))
	logger.FromContext(ctx).Info().
		Str("invoice_id", inv.ID).
		Str("invoice_number", inv.InvoiceNumber).
		Int("line_items", len(items)).
		Str("total", inv.Total.String()).
		Msg("Invoice created")
	return inv, nil
}

// GetInvoice returns the invoice together with its line items and payments
func (s *InvoiceService) GetInvoice(ctx context.Context, id string) (*models.InvoiceDetails, error) {
	if !isValidID(id) {
		return nil, models.ErrInvoiceNotFound
	}

	inv, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.Repo.GetLineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.Repo.GetPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.NewInvoiceDetails(inv, items, payments), nil
}

// ListInvoices returns archived invoices when archived is true and active
// ones otherwise, newest first.
func (s *InvoiceService) ListInvoices(ctx context.Context, archived bool) ([]*models.Invoice, error) {
	invoices, err := s.Repo.List(ctx, models.InvoiceFilter{Archived: archived})
	if err != nil {
		return nil, err
	}
	if invoices == nil {
		invoices = []*models.Invoice{}
	}
	return invoices, nil
}

// AddPayment applies a payment. The amount is checked before the invoice is
// looked up; the balance check and the debit happen atomically in the store.
func (s *InvoiceService) AddPayment(ctx context.Context, id string, req *models.AddPaymentRequest) (*models.PaymentResult, error) {
	if err := models.ValidatePaymentAmount(req.Amount); err != nil {
		metrics.PaymentsRejected.WithLabelValues("invalid_amount").Inc()
		return nil, err
	}
	if !isValidID(id) {
		return nil, models.ErrInvoiceNotFound
	}

	now := s.now()
	paymentDate := now
	if req.PaymentDate != nil && !req.PaymentDate.IsZero() {
		paymentDate = req.PaymentDate.Time()
	}

	payment := &models.Payment{
		ID:          s.newID(),
		InvoiceID:   id,
		Amount:      *req.Amount,
		PaymentDate: paymentDate,
		CreatedAt:   now,
	}

	inv, err := s.Repo.ApplyPayment(ctx, payment, s.rejectArchivedPayments)
	if err != nil {
		s.recordRejection(ctx, id, err)
		return nil, err
	}

	metrics.PaymentsApplied.Inc()
	metrics.PaymentAmountApplied.Add(payment.Amount.InexactFloat64())

	ev := events.NewInvoiceEvent(events.PaymentApplied, inv, now)
	ev.Amount = &payment.Amount
	s.notifier.Publish(ev)

	logger.FromContext(ctx).Info().
		Str("invoice_id", id).
		Str("amount", payment.Amount.String()).
		Str("balance_due", inv.BalanceDue.String()).
		Str("status", string(inv.Status)).
		Msg("Payment applied")

	return &models.PaymentResult{Payment: payment, Invoice: inv.Summary()}, nil
}

func (s *InvoiceService) recordRejection(ctx context.Context, id string, err error) {
	reason := "internal"
	switch {
	case models.IsNotFound(err):
		reason = "not_found"
	case errors.Is(err, models.ErrArchivedPayment):
		reason = "archived"
	default:
		if _, ok := models.IsValidation(err); ok {
			reason = "overpayment"
		}
	}
	metrics.PaymentsRejected.WithLabelValues(reason).Inc()

	if reason == "overpayment" || reason == "archived" {
		logger.FromContext(ctx).Info().Str("invoice_id", id).Str("reason", reason).Msg("Payment rejected")
	}
}

// ArchiveInvoice hides the invoice from the default listing. Archiving an
// archived invoice succeeds without changing it.
func (s *InvoiceService) ArchiveInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	return s.setArchived(ctx, id, true)
}

// RestoreInvoice reverses ArchiveInvoice
func (s *InvoiceService) RestoreInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	return s.setArchived(ctx, id, false)
}

func (s *InvoiceService) setArchived(ctx context.Context, id string, archived bool) (*models.Invoice, error) {
	if !isValidID(id) {
		return nil, models.ErrInvoiceNotFound
	}

	inv, err := s.Repo.SetArchived(ctx, id, archived)
	if err != nil {
		return nil, err
	}

	action, eventType := "restore", events.InvoiceRestored
	if archived {
		action, eventType = "archive", events.InvoiceArchived
	}
	metrics.InvoiceArchiveChanges.WithLabelValues(action).Inc()
	s.notifier.Publish(events.NewInvoiceEvent(eventType, inv, s.now()))
	return inv, nil
}
