package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	domainerrors "github.com/wekeepgrowing/jobportal-payment/internal/domain/errors"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/repository"
	pkgerrors "github.com/wekeepgrowing/jobportal-payment/pkg/errors"
	"go.uber.org/zap"
)

// Webhook outcomes, also used as metric labels
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// WebhookOutcome is what happened to one delivery
type WebhookOutcome struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Outcome   string `json:"outcome"`
}

// Reconciler stores verified vendor notifications and applies them to
// payments and subscriptions
type Reconciler struct {
	providers     *provider.Registry
	events        repository.WebhookEventRepository
	payments      repository.PaymentRepository
	subscriptions repository.SubscriptionRepository
	plans         repository.PlanRepository
	metrics       MetricsRecorder
	tx            *transitioner
	logger        *zap.Logger
}

func NewReconciler(
	providers *provider.Registry,
	events repository.WebhookEventRepository,
	payments repository.PaymentRepository,
	subscriptions repository.SubscriptionRepository,
	plans repository.PlanRepository,
	publisher EventPublisher,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		providers:     providers,
		events:        events,
		payments:      payments,
		subscriptions: subscriptions,
		plans:         plans,
		metrics:       metrics,
		tx: &transitioner{
			payments:  payments,
			publisher: publisher,
			metrics:   metrics,
			logger:    logger,
		},
		logger: logger,
	}
}

// HandleWebhook verifies, stores and applies one delivery. Storage failures
// are returned so the vendor redelivers; apply failures are kept for the
// retry worker and acknowledged.
func (r *Reconciler) HandleWebhook(ctx context.Context, providerType model.ProviderType, payload []byte, header http.Header) (*WebhookOutcome, error) {
	p, err := r.providers.Get(providerType)
	if err != nil {
		return nil, pkgerrors.NotFound(fmt.Sprintf("no %s webhook endpoint configured", providerType))
	}

	ev, err := p.ParseWebhook(ctx, payload, header)
	if err != nil {
		r.metrics.RecordWebhook(providerType, OutcomeRejected)
		if errors.Is(err, provider.ErrInvalidSignature) {
			r.logger.Warn("Rejected webhook with invalid signature",
				zap.String("provider", string(providerType)),
				zap.Error(err))
			return nil, pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, "invalid webhook signature", err)
		}
		if provider.KindOf(err) != "" {
			return nil, toAppError(err)
		}
		return nil, pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, "malformed webhook payload", err)
	}

	normalized, err := model.ToJSONB(ev)
	if err != nil {
		return nil, toAppError(fmt.Errorf("failed to encode webhook event: %w", err))
	}

	stored := &model.WebhookEvent{
		Provider:  providerType,
		EventID:   ev.ID,
		EventType: ev.Type,
		Status:    model.WebhookStatusPending,
		Payload:   normalized,
	}
	if !ev.CreatedAt.IsZero() {
		created := ev.CreatedAt
		stored.VendorCreatedAt = &created
	}

	inserted, err := r.events.Save(ctx, stored)
	if err != nil {
		return nil, toAppError(err)
	}

	outcome := &WebhookOutcome{EventID: ev.ID, EventType: ev.Type}
	if !inserted && stored.Status == model.WebhookStatusCompleted {
		r.logger.Debug("Duplicate webhook delivery",
			zap.String("provider", string(providerType)),
			zap.String("event_id", ev.ID))
		outcome.Outcome = OutcomeDuplicate
		r.metrics.RecordWebhook(providerType, outcome.Outcome)
		return outcome, nil
	}

	outcome.Outcome = r.process(ctx, stored, ev)
	return outcome, nil
}

// Due lists stored events ready for another attempt
func (r *Reconciler) Due(ctx context.Context, limit int) ([]*model.WebhookEvent, error) {
	return r.events.ListDue(ctx, limit)
}

// Process re-applies a stored event by id
func (r *Reconciler) Process(ctx context.Context, id int64) (string, error) {
	stored, err := r.events.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if stored.Status == model.WebhookStatusCompleted {
		return OutcomeDuplicate, nil
	}

	var ev provider.WebhookEvent
	if err := stored.Payload.Decode(&ev); err != nil {
		// an undecodable row can never succeed; park it with the error
		if markErr := r.events.MarkFailed(ctx, id, err); markErr != nil {
			return "", markErr
		}
		return OutcomeFailed, nil
	}

	return r.process(ctx, stored, &ev), nil
}

func (r *Reconciler) process(ctx context.Context, stored *model.WebhookEvent, ev *provider.WebhookEvent) string {
	log := r.logger.With(
		zap.String("provider", string(stored.Provider)),
		zap.String("event_id", stored.EventID),
		zap.String("event_type", stored.EventType))

	claimed, err := r.events.Claim(ctx, stored.ID)
	if err != nil {
		log.Error("Failed to claim webhook event", zap.Error(err))
		return OutcomeFailed
	}
	if !claimed {
		log.Debug("Webhook event held by another worker")
		r.metrics.RecordWebhook(stored.Provider, OutcomeDuplicate)
		return OutcomeDuplicate
	}

	outcome, err := r.apply(ctx, ev)
	if err != nil {
		log.Warn("Failed to apply webhook event, will retry",
			zap.Int("attempts", stored.ProcessingAttempts+1),
			zap.Error(err))
		if markErr := r.events.MarkFailed(ctx, stored.ID, err); markErr != nil {
			log.Error("Failed to mark webhook event failed", zap.Error(markErr))
		}
		r.metrics.RecordWebhook(stored.Provider, OutcomeFailed)
		return OutcomeFailed
	}

	if err := r.events.MarkProcessed(ctx, stored.ID); err != nil {
		log.Error("Failed to mark webhook event processed", zap.Error(err))
	}
	r.metrics.RecordWebhook(stored.Provider, outcome)
	log.Info("Webhook event processed", zap.String("outcome", outcome))
	return outcome
}

func (r *Reconciler) apply(ctx context.Context, ev *provider.WebhookEvent) (string, error) {
	outcome := OutcomeIgnored

	if ev.Payment != nil {
		applied, err := r.applyPayment(ctx, ev.Provider, ev.Payment)
		if err != nil {
			return "", err
		}
		if applied {
			outcome = OutcomeApplied
		}
	}

	if ev.Subscription != nil {
		applied, err := r.applySubscription(ctx, ev.Provider, ev.Subscription)
		if err != nil {
			return "", err
		}
		if applied {
			outcome = OutcomeApplied
		}
	}

	return outcome, nil
}

func (r *Reconciler) applyPayment(ctx context.Context, providerType model.ProviderType, update *provider.PaymentUpdate) (bool, error) {
	payment, err := r.locate(ctx, providerType, update)
	if errors.Is(err, domainerrors.ErrPaymentNotFound) {
		r.logger.Warn("Webhook refers to an unknown payment",
			zap.String("provider", string(providerType)),
			zap.String("payment_id", update.PaymentID),
			zap.String("provider_ref", update.ProviderRef),
			zap.String("capture_ref", update.CaptureRef))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	_, changed, err := r.tx.advance(ctx, payment, update.Status, repository.TransitionUpdate{
		CaptureRef:     update.CaptureRef,
		FailureCode:    update.FailureCode,
		FailureMessage: update.FailureMessage,
	})
	if errors.Is(err, domainerrors.ErrInvalidTransition) {
		// the vendor contradicts a terminal state we hold; retrying cannot fix that
		r.logger.Warn("Ignoring conflicting payment event",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
			zap.String("event_status", string(update.Status)),
			zap.Error(err))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return changed, nil
}

// locate tries the local id first, then the session/order id, then the capture id
func (r *Reconciler) locate(ctx context.Context, providerType model.ProviderType, update *provider.PaymentUpdate) (*model.Payment, error) {
	if update.PaymentID != "" {
		if id, err := uuid.Parse(update.PaymentID); err == nil {
			payment, err := r.payments.GetByID(ctx, id)
			if !errors.Is(err, domainerrors.ErrPaymentNotFound) {
				return payment, err
			}
		}
	}
	if update.ProviderRef != "" {
		payment, err := r.payments.GetByProviderRef(ctx, providerType, update.ProviderRef)
		if !errors.Is(err, domainerrors.ErrPaymentNotFound) {
			return payment, err
		}
	}
	if update.CaptureRef != "" {
		return r.payments.GetByCaptureRef(ctx, providerType, update.CaptureRef)
	}
	return nil, domainerrors.ErrPaymentNotFound
}

func (r *Reconciler) applySubscription(ctx context.Context, providerType model.ProviderType, update *provider.SubscriptionUpdate) (bool, error) {
	sub := &model.Subscription{
		CustomerID:             update.CustomerID,
		PlanID:                 update.PlanID,
		Provider:               providerType,
		ProviderSubscriptionID: update.ProviderSubscriptionID,
		Amount:                 update.Amount,
		Currency:               update.Currency,
		Status:                 update.Status,
		StartDate:              update.StartDate,
		EndDate:                update.EndDate,
		TrialStart:             update.TrialStart,
		TrialEnd:               update.TrialEnd,
		CancelAtPeriodEnd:      update.CancelAtPeriodEnd,
		CancelledAt:            update.CancelledAt,
	}

	plan, err := r.resolvePlan(ctx, providerType, update)
	if err != nil {
		return false, err
	}
	if plan != nil {
		sub.PlanID = plan.ID
		sub.PlanName = plan.Name
		if sub.Currency == "" {
			sub.Amount = plan.Amount
			sub.Currency = plan.Currency
		}
	}

	if sub.CustomerID == "" {
		existing, err := r.subscriptions.GetByProviderID(ctx, providerType, update.ProviderSubscriptionID)
		if errors.Is(err, domainerrors.ErrSubscriptionNotFound) {
			r.logger.Warn("Subscription event without a customer for an unknown subscription",
				zap.String("provider", string(providerType)),
				zap.String("provider_subscription_id", update.ProviderSubscriptionID))
			return false, nil
		}
		if err != nil {
			return false, err
		}
		sub.CustomerID = existing.CustomerID
	}

	stored, err := r.subscriptions.Upsert(ctx, sub)
	if err != nil {
		return false, err
	}

	r.logger.Info("Subscription synchronized",
		zap.String("subscription_id", stored.ID.String()),
		zap.String("provider", string(providerType)),
		zap.String("customer_id", stored.CustomerID),
		zap.String("status", string(stored.Status)))
	return true, nil
}

func (r *Reconciler) resolvePlan(ctx context.Context, providerType model.ProviderType, update *provider.SubscriptionUpdate) (*model.PaymentPlan, error) {
	var (
		plan *model.PaymentPlan
		err  error
	)
	switch {
	case update.PlanID != "":
		plan, err = r.plans.GetByID(ctx, update.PlanID)
	case update.PriceRef != "":
		plan, err = r.plans.GetByProviderRef(ctx, providerType, update.PriceRef)
	default:
		return nil, nil
	}
	if errors.Is(err, domainerrors.ErrPlanNotFound) {
		return nil, nil
	}
	return plan, err
}
