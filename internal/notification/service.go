package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-reconciliation/internal/logger"
	"ms-reconciliation/internal/models"
	"ms-reconciliation/internal/platform"
)

const (
	defaultResolveAttempts = 7
	defaultResolveDelay    = time.Second
)

// Validator rejects notifications before any store access. A non-empty
// return is the human-readable rejection reason.
type Validator interface {
	Validate(n *models.Notification) string
}

// OutcomePublisher receives one event per processed notification.
type OutcomePublisher interface {
	PublishReconciled(event models.ReconciliationEvent) error
}

// ReconciliationService reconciles provider notifications against the
// payment store. Validator and Publisher may be nil; the resolve knobs
// default to the provider's documented budget (7 attempts, 1s apart).
type ReconciliationService struct {
	Store     platform.Store
	Validator Validator
	Publisher OutcomePublisher
	Logger    *logger.Logger
	Planner   PlannerConfig

	ResolveAttempts int
	ResolveDelay    time.Duration
}

func NewReconciliationService(store platform.Store, validator Validator, publisher OutcomePublisher, log *logger.Logger, planner PlannerConfig) *ReconciliationService {
	return &ReconciliationService{
		Store:           store,
		Validator:       validator,
		Publisher:       publisher,
		Logger:          log,
		Planner:         planner,
		ResolveAttempts: defaultResolveAttempts,
		ResolveDelay:    defaultResolveDelay,
	}
}

// ProcessNotification runs the full reconciliation for one notification:
// validate, resolve, plan, apply. Every outcome is logged and published
// here; the returned error is for callers that surface results directly
// (the admin replay endpoint). Notifications processed concurrently do not
// affect each other — all coordination happens through the store's version
// check.
func (s *ReconciliationService) ProcessNotification(ctx context.Context, n *models.Notification) error {
	payment, err := s.reconcile(ctx, n)
	s.report(n, payment, err)
	return err
}

func (s *ReconciliationService) reconcile(ctx context.Context, n *models.Notification) (*models.Payment, error) {
	if s.Validator != nil {
		if msg := s.Validator.Validate(n); msg != "" {
			s.Logger.LogSecurity("NOTIFICATION", fmt.Sprintf("dropped %s: %s", n.PSPReference, msg))
			return nil, &ValidationError{Message: msg}
		}
	}

	payment, err := s.resolveWithRetry(ctx, n)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: merchant reference %q, psp reference %q",
			ErrNotFound, n.MerchantReference, n.PSPReference)
	}

	if !isPaymentReady(payment) {
		// Record the delivery on the payment anyway so nothing is lost,
		// but report the reconciliation as failed.
		if applyErr := s.applyUpdates(ctx, payment, n); applyErr != nil {
			s.Logger.Warn("RECONCILE",
				fmt.Sprintf("could not record interaction on payment %s: %v", payment.ID, applyErr))
		}
		return payment, fmt.Errorf("payment %s: %w", payment.ID, ErrNotPaymentReady)
	}

	if err := s.applyUpdates(ctx, payment, n); err != nil {
		return payment, err
	}
	return payment, nil
}

func isPaymentReady(p *models.Payment) bool {
	return p.HasCustomField(models.FieldMakePaymentRequest) &&
		p.HasCustomField(models.FieldMakePaymentResponse)
}

func (s *ReconciliationService) report(n *models.Notification, payment *models.Payment, err error) {
	if err == nil {
		s.Logger.LogNotification(n.EventCode, n.PSPReference, "reconciled")
	} else {
		s.Logger.Error("RECONCILE", fmt.Sprintf("[%s] %s - %v", n.EventCode, n.PSPReference, err))
	}

	if s.Publisher == nil {
		return
	}
	event := models.ReconciliationEvent{
		ID:                uuid.New().String(),
		PSPReference:      n.PSPReference,
		MerchantReference: n.MerchantReference,
		EventCode:         n.EventCode,
		Success:           n.Success.Bool(),
		Status:            models.ReconciliationProcessed,
		Timestamp:         time.Now().UTC(),
	}
	if payment != nil {
		event.PaymentID = payment.ID
	}
	if err != nil {
		event.Status = models.ReconciliationFailed
		event.Error = err.Error()
	}
	if perr := s.Publisher.PublishReconciled(event); perr != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish reconciliation event for %s: %v", n.PSPReference, perr))
	}
}
