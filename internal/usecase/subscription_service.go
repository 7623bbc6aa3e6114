package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	domainerrors "github.com/wekeepgrowing/jobportal-payment/internal/domain/errors"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/repository"
	pkgerrors "github.com/wekeepgrowing/jobportal-payment/pkg/errors"
	"go.uber.org/zap"
)

// SubscriptionInput asks for a recurring checkout of a catalogue plan
type SubscriptionInput struct {
	CustomerID     string
	PlanID         string
	Provider       model.ProviderType
	IdempotencyKey string
}

// SubscriptionService handles subscription checkouts, listing and cancellation
type SubscriptionService struct {
	subscriptions repository.SubscriptionRepository
	plans         repository.PlanRepository
	payments      *PaymentService
	logger        *zap.Logger
}

// NewSubscriptionService creates a new subscription service instance
func NewSubscriptionService(
	subscriptions repository.SubscriptionRepository,
	plans repository.PlanRepository,
	payments *PaymentService,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptions: subscriptions,
		plans:         plans,
		payments:      payments,
		logger:        logger,
	}
}

// Create starts a subscription checkout. Stripe checkouts are tracked as a
// payment of kind subscription; PayPal subscriptions only become visible
// once the vendor reports them active.
func (s *SubscriptionService) Create(ctx context.Context, in SubscriptionInput) (*CheckoutResult, error) {
	if in.CustomerID == "" {
		return nil, pkgerrors.InvalidArgument("customer id is required")
	}
	if !in.Provider.Valid() {
		return nil, pkgerrors.InvalidArgument(fmt.Sprintf("unsupported provider %q", in.Provider))
	}

	plan, err := s.plans.GetByID(ctx, in.PlanID)
	if err != nil {
		return nil, toAppError(err)
	}
	if !plan.IsActive {
		return nil, toAppError(fmt.Errorf("%w: %s is no longer offered", domainerrors.ErrPlanNotFound, plan.ID))
	}
	priceRef := plan.ProviderPriceRef(in.Provider)
	if plan.Kind != model.PaymentKindSubscription || priceRef == "" {
		return nil, toAppError(fmt.Errorf("%w: %s via %s", domainerrors.ErrPlanNotSubscribable, plan.ID, in.Provider))
	}

	p, err := s.payments.providers.Get(in.Provider)
	if err != nil {
		return nil, toAppError(err)
	}

	if in.Provider == model.ProviderPayPal {
		return s.createPayPal(ctx, p, in, priceRef)
	}

	candidate := s.payments.newPayment(in.Provider, in.CustomerID, in.IdempotencyKey)
	candidate.Kind = model.PaymentKindSubscription
	candidate.PlanID = &plan.ID
	candidate.Amount = plan.Amount
	candidate.Currency = plan.Currency

	payment, done, err := s.payments.begin(ctx, candidate, func(existing *model.Payment) bool {
		return existing.Kind == model.PaymentKindSubscription && deref(existing.PlanID) == plan.ID
	})
	if err != nil || done {
		return s.payments.result(payment), err
	}

	var checkout *provider.Checkout
	err = s.payments.policy.call(ctx, s.payments.metrics, p.Name(), "create_subscription", true, func(ctx context.Context) error {
		var callErr error
		checkout, callErr = p.CreateSubscription(ctx, &provider.SubscriptionRequest{
			PaymentID:      payment.ID.String(),
			CustomerID:     in.CustomerID,
			PlanID:         plan.ID,
			PriceRef:       priceRef,
			IdempotencyKey: *payment.IdempotencyKey,
		})
		return callErr
	})
	if err != nil {
		return nil, s.payments.failCreate(ctx, payment, err)
	}

	return s.payments.finishCreate(ctx, payment, checkout)
}

func (s *SubscriptionService) createPayPal(ctx context.Context, p provider.PaymentProvider, in SubscriptionInput, priceRef string) (*CheckoutResult, error) {
	var checkout *provider.Checkout
	err := s.payments.policy.call(ctx, s.payments.metrics, p.Name(), "create_subscription", in.IdempotencyKey != "", func(ctx context.Context) error {
		var callErr error
		checkout, callErr = p.CreateSubscription(ctx, &provider.SubscriptionRequest{
			CustomerID:     in.CustomerID,
			PlanID:         in.PlanID,
			PriceRef:       priceRef,
			IdempotencyKey: in.IdempotencyKey,
		})
		return callErr
	})
	if err != nil {
		s.logger.Warn("PayPal subscription creation failed",
			zap.String("customer_id", in.CustomerID),
			zap.String("plan_id", in.PlanID),
			zap.Error(err))
		return nil, toAppError(err)
	}

	s.logger.Info("PayPal subscription awaiting approval",
		zap.String("customer_id", in.CustomerID),
		zap.String("provider_subscription_id", checkout.ID))

	return &CheckoutResult{ProviderRef: checkout.ID, URL: checkout.URL}, nil
}

func (s *SubscriptionService) List(ctx context.Context, customerID string) ([]*model.Subscription, error) {
	if customerID == "" {
		return nil, pkgerrors.InvalidArgument("customer id is required")
	}
	subs, err := s.subscriptions.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, toAppError(err)
	}
	if subs == nil {
		subs = []*model.Subscription{}
	}
	return subs, nil
}

// GetCurrent returns the customer's active or trialing subscription
func (s *SubscriptionService) GetCurrent(ctx context.Context, customerID string) (*model.Subscription, error) {
	subs, err := s.List(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if sub.Status == model.SubscriptionStatusActive || sub.Status == model.SubscriptionStatusTrialing {
			return sub, nil
		}
	}
	return nil, toAppError(domainerrors.ErrSubscriptionNotFound)
}

// Cancel stops renewal: at period end on Stripe, immediately on PayPal
func (s *SubscriptionService) Cancel(ctx context.Context, id uuid.UUID, customerID string) (*model.Subscription, error) {
	sub, err := s.subscriptions.GetByID(ctx, id)
	if err != nil {
		return nil, toAppError(err)
	}
	if customerID != "" && sub.CustomerID != customerID {
		return nil, toAppError(domainerrors.ErrSubscriptionNotFound)
	}
	if sub.Status == model.SubscriptionStatusCancelled {
		return nil, toAppError(domainerrors.ErrSubscriptionCancelled)
	}
	if sub.CancelAtPeriodEnd {
		return sub, nil
	}

	p, err := s.payments.providers.Get(sub.Provider)
	if err != nil {
		return nil, toAppError(err)
	}

	var update *provider.SubscriptionUpdate
	err = s.payments.policy.call(ctx, s.payments.metrics, p.Name(), "cancel_subscription", true, func(ctx context.Context) error {
		var callErr error
		update, callErr = p.CancelSubscription(ctx, sub.ProviderSubscriptionID)
		return callErr
	})
	if err != nil {
		return nil, toAppError(err)
	}

	if update.Status.Valid() {
		sub.Status = update.Status
	}
	sub.CancelAtPeriodEnd = update.CancelAtPeriodEnd
	if update.CancelledAt != nil {
		sub.CancelledAt = update.CancelledAt
	}
	if update.EndDate != nil {
		sub.EndDate = update.EndDate
	}

	if err := s.subscriptions.Save(ctx, sub); err != nil {
		return nil, toAppError(err)
	}

	s.logger.Info("Subscription cancelled",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("provider", string(sub.Provider)),
		zap.Bool("cancel_at_period_end", sub.CancelAtPeriodEnd))

	return sub, nil
}
