package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainerrors "github.com/wekeepgrowing/jobportal-payment/internal/domain/errors"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/repository"
	"github.com/wekeepgrowing/jobportal-payment/internal/infrastructure/metrics"
	"github.com/wekeepgrowing/jobportal-payment/internal/usecase"
	pkgerrors "github.com/wekeepgrowing/jobportal-payment/pkg/errors"
)

type reconcilerFixture struct {
	events        *MockWebhookEventRepository
	payments      *MockPaymentRepository
	subscriptions *MockSubscriptionRepository
	plans         *MockPlanRepository
	stripe        *MockProvider
	publisher     *MockPublisher
	metrics       *metrics.Metrics
	reconciler    *usecase.Reconciler
}

func newReconcilerFixture() *reconcilerFixture {
	f := &reconcilerFixture{
		events:        new(MockWebhookEventRepository),
		payments:      new(MockPaymentRepository),
		subscriptions: new(MockSubscriptionRepository),
		plans:         new(MockPlanRepository),
		stripe:        newMockProvider(model.ProviderStripe),
		publisher:     new(MockPublisher),
		metrics:       metrics.New(),
	}
	f.reconciler = usecase.NewReconciler(
		provider.NewRegistry(f.stripe),
		f.events,
		f.payments,
		f.subscriptions,
		f.plans,
		f.publisher,
		f.metrics,
		zap.NewNop(),
	)
	return f
}

// stored makes Save behave like a fresh insert with the given row id
func stored(id int64, inserted bool, status model.WebhookStatus) func(mock.Arguments) {
	return func(args mock.Arguments) {
		ev := args.Get(1).(*model.WebhookEvent)
		ev.ID = id
		if !inserted {
			ev.Status = status
		}
	}
}

func completedEvent(sessionID string) *provider.WebhookEvent {
	return &provider.WebhookEvent{
		ID:        "evt_1",
		Type:      "checkout.session.completed",
		Provider:  model.ProviderStripe,
		CreatedAt: time.Unix(1700000000, 0).UTC(),
		Payment: &provider.PaymentUpdate{
			ProviderRef: sessionID,
			CaptureRef:  "pi_1",
			Status:      model.PaymentStatusSettled,
		},
	}
}

func TestReconciler_HandleWebhook_AppliesPaymentEvent(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	payment := &model.Payment{ID: uuid.New(), Provider: model.ProviderStripe, Status: model.PaymentStatusPending}

	f.stripe.On("ParseWebhook", mock.Anything, []byte("{}"), mock.Anything).Return(completedEvent("cs_test_1"), nil)
	f.events.On("Save", mock.Anything, mock.MatchedBy(func(ev *model.WebhookEvent) bool {
		return ev.EventID == "evt_1" && ev.Status == model.WebhookStatusPending && ev.VendorCreatedAt != nil
	})).Run(stored(7, true, "")).Return(true, nil)
	f.events.On("Claim", mock.Anything, int64(7)).Return(true, nil)
	f.payments.On("GetByProviderRef", mock.Anything, model.ProviderStripe, "cs_test_1").Return(payment, nil)
	f.payments.On("Transition", mock.Anything, payment.ID, model.PaymentStatusSettled, mock.MatchedBy(func(u repository.TransitionUpdate) bool {
		return u.CaptureRef == "pi_1"
	})).Return(appliedFrom(model.ProviderStripe, model.PaymentStatusPending), nil)
	f.publisher.On("PublishTransition", mock.Anything, mock.Anything, model.PaymentStatusPending).Return()
	f.events.On("MarkProcessed", mock.Anything, int64(7)).Return(nil)

	outcome, err := f.reconciler.HandleWebhook(ctx, model.ProviderStripe, []byte("{}"), http.Header{})

	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeApplied, outcome.Outcome)
	assert.Equal(t, "evt_1", outcome.EventID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Webhooks.WithLabelValues("stripe", usecase.OutcomeApplied)))
	f.events.AssertExpectations(t)
	f.payments.AssertExpectations(t)
}

func TestReconciler_HandleWebhook_Replay(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()

	f.stripe.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).Return(completedEvent("cs_test_1"), nil)
	f.events.On("Save", mock.Anything, mock.Anything).Run(stored(7, false, model.WebhookStatusCompleted)).Return(false, nil)

	outcome, err := f.reconciler.HandleWebhook(ctx, model.ProviderStripe, []byte("{}"), http.Header{})

	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeDuplicate, outcome.Outcome)
	f.events.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything)
	f.payments.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_HandleWebhook_StaleEventIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	payment := &model.Payment{ID: uuid.New(), Provider: model.ProviderStripe, Status: model.PaymentStatusRefunded}

	ev := completedEvent("cs_test_1")
	f.stripe.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).Return(ev, nil)
	f.events.On("Save", mock.Anything, mock.Anything).Run(stored(8, true, "")).Return(true, nil)
	f.events.On("Claim", mock.Anything, int64(8)).Return(true, nil)
	f.payments.On("GetByProviderRef", mock.Anything, model.ProviderStripe, "cs_test_1").Return(payment, nil)
	f.events.On("MarkProcessed", mock.Anything, int64(8)).Return(nil)

	outcome, err := f.reconciler.HandleWebhook(ctx, model.ProviderStripe, []byte("{}"), http.Header{})

	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeIgnored, outcome.Outcome)
	f.payments.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_HandleWebhook_ContradictionIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	payment := &model.Payment{ID: uuid.New(), Provider: model.ProviderStripe, Status: model.PaymentStatusFailed}

	ev := completedEvent("cs_test_1")
	f.stripe.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).Return(ev, nil)
	f.events.On("Save", mock.Anything, mock.Anything).Run(stored(9, true, "")).Return(true, nil)
	f.events.On("Claim", mock.Anything, int64(9)).Return(true, nil)
	f.payments.On("GetByProviderRef", mock.Anything, model.ProviderStripe, "cs_test_1").Return(payment, nil)
	f.events.On("MarkProcessed", mock.Anything, int64(9)).Return(nil)

	outcome, err := f.reconciler.HandleWebhook(ctx, model.ProviderStripe, []byte("{}"), http.Header{})

	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeIgnored, outcome.Outcome)
	f.events.AssertCalled(t, "MarkProcessed", mock.Anything, int64(9))
}

func TestReconciler_HandleWebhook_ApplyFailureIsKeptForRetry(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	dbErr := errors.New("connection reset")

	f.stripe.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).Return(completedEvent("cs_test_1"), nil)
	f.events.On("Save", mock.Anything, mock.Anything).Run(stored(10, true, "")).Return(true, nil)
	f.events.On("Claim", mock.Anything, int64(10)).Return(true, nil)
	f.payments.On("GetByProviderRef", mock.Anything, model.ProviderStripe, "cs_test_1").Return(nil, dbErr)
	f.events.On("MarkFailed", mock.Anything, int64(10), dbErr).Return(nil)

	outcome, err := f.reconciler.HandleWebhook(ctx, model.ProviderStripe, []byte("{}"), http.Header{})

	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeFailed, outcome.Outcome)
	f.events.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestReconciler_HandleWebhook_UnknownPayment(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	ev := completedEvent("cs_unknown")
	ev.Payment.PaymentID = uuid.NewString()

	f.stripe.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).Return(ev, nil)
	f.events.On("Save", mock.Anything, mock.Anything).Run(stored(11, true, "")).Return(true, nil)
	f.events.On("Claim", mock.Anything, int64(11)).Return(true, nil)
	f.payments.On("GetByID", mock.Anything, mock.Anything).Return(nil, domainerrors.ErrPaymentNotFound)
	f.payments.On("GetByProviderRef", mock.Anything, model.ProviderStripe, "cs_unknown").Return(nil, domainerrors.ErrPaymentNotFound)
	f.payments.On("GetByCaptureRef", mock.Anything, model.ProviderStripe, "pi_1").Return(nil, domainerrors.ErrPaymentNotFound)
	f.events.On("MarkProcessed", mock.Anything, int64(11)).Return(nil)

	outcome, err := f.reconciler.HandleWebhook(ctx, model.ProviderStripe, []byte("{}"), http.Header{})

	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeIgnored, outcome.Outcome)
	f.payments.AssertExpectations(t)
}

func TestReconciler_HandleWebhook_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("bad signature", func(t *testing.T) {
		f := newReconcilerFixture()
		f.stripe.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).Return(nil, provider.ErrInvalidSignature)

		_, err := f.reconciler.HandleWebhook(ctx, model.ProviderStripe, []byte("{}"), http.Header{})

		status, body := pkgerrors.ToErrorBody(err)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid webhook signature", body.Error)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Webhooks.WithLabelValues("stripe", usecase.OutcomeRejected)))
		f.events.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("malformed payload", func(t *testing.T) {
		f := newReconcilerFixture()
		f.stripe.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("unexpected end of JSON input"))

		_, err := f.reconciler.HandleWebhook(ctx, model.ProviderStripe, []byte("{"), http.Header{})
		assert.Equal(t, pkgerrors.ErrInvalidArgument, pkgerrors.CodeOf(err))
	})

	t.Run("provider not configured", func(t *testing.T) {
		f := newReconcilerFixture()

		_, err := f.reconciler.HandleWebhook(ctx, model.ProviderPayPal, []byte("{}"), http.Header{})
		assert.Equal(t, pkgerrors.ErrNotFound, pkgerrors.CodeOf(err))
	})

	t.Run("storage failure asks for redelivery", func(t *testing.T) {
		f := newReconcilerFixture()
		f.stripe.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).Return(completedEvent("cs_test_1"), nil)
		f.events.On("Save", mock.Anything, mock.Anything).Return(false, errors.New("database is down"))

		_, err := f.reconciler.HandleWebhook(ctx, model.ProviderStripe, []byte("{}"), http.Header{})
		status, _ := pkgerrors.ToErrorBody(err)
		assert.Equal(t, http.StatusInternalServerError, status)
	})
}

func TestReconciler_SubscriptionEvent(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	plan := &model.PaymentPlan{
		ID:       "pro_monthly",
		Name:     "Pro",
		Kind:     model.PaymentKindSubscription,
		Amount:   decimal.RequireFromString("29.00"),
		Currency: "USD",
		IsActive: true,
	}

	ev := &provider.WebhookEvent{
		ID:       "evt_sub",
		Type:     "customer.subscription.updated",
		Provider: model.ProviderStripe,
		Subscription: &provider.SubscriptionUpdate{
			ProviderSubscriptionID: "sub_1",
			PriceRef:               "price_pro",
			Status:                 model.SubscriptionStatusActive,
			StartDate:              &start,
		},
	}
	existing := &model.Subscription{ID: uuid.New(), CustomerID: "cust-1", ProviderSubscriptionID: "sub_1"}

	f.stripe.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).Return(ev, nil)
	f.events.On("Save", mock.Anything, mock.Anything).Run(stored(12, true, "")).Return(true, nil)
	f.events.On("Claim", mock.Anything, int64(12)).Return(true, nil)
	f.plans.On("GetByProviderRef", mock.Anything, model.ProviderStripe, "price_pro").Return(plan, nil)
	f.subscriptions.On("GetByProviderID", mock.Anything, model.ProviderStripe, "sub_1").Return(existing, nil)
	f.subscriptions.On("Upsert", mock.Anything, mock.MatchedBy(func(s *model.Subscription) bool {
		return s.CustomerID == "cust-1" &&
			s.PlanID == "pro_monthly" &&
			s.PlanName == "Pro" &&
			s.Currency == "USD" &&
			s.Amount.Equal(decimal.NewFromInt(29)) &&
			s.Status == model.SubscriptionStatusActive
	})).Return(existing, nil)
	f.events.On("MarkProcessed", mock.Anything, int64(12)).Return(nil)

	outcome, err := f.reconciler.HandleWebhook(ctx, model.ProviderStripe, []byte("{}"), http.Header{})

	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeApplied, outcome.Outcome)
	f.subscriptions.AssertExpectations(t)
}

func TestReconciler_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("re-applies a stored event", func(t *testing.T) {
		f := newReconcilerFixture()
		payload, err := model.ToJSONB(completedEvent("cs_test_1"))
		require.NoError(t, err)
		payment := &model.Payment{ID: uuid.New(), Provider: model.ProviderStripe, Status: model.PaymentStatusPending}

		f.events.On("GetByID", mock.Anything, int64(20)).Return(&model.WebhookEvent{
			ID:                 20,
			Provider:           model.ProviderStripe,
			EventID:            "evt_1",
			Status:             model.WebhookStatusFailed,
			ProcessingAttempts: 1,
			Payload:            payload,
		}, nil)
		f.events.On("Claim", mock.Anything, int64(20)).Return(true, nil)
		f.payments.On("GetByProviderRef", mock.Anything, model.ProviderStripe, "cs_test_1").Return(payment, nil)
		f.payments.On("Transition", mock.Anything, payment.ID, model.PaymentStatusSettled, mock.Anything).
			Return(appliedFrom(model.ProviderStripe, model.PaymentStatusPending), nil)
		f.publisher.On("PublishTransition", mock.Anything, mock.Anything, mock.Anything).Return()
		f.events.On("MarkProcessed", mock.Anything, int64(20)).Return(nil)

		outcome, err := f.reconciler.Process(ctx, 20)

		require.NoError(t, err)
		assert.Equal(t, usecase.OutcomeApplied, outcome)
	})

	t.Run("another worker holds it", func(t *testing.T) {
		f := newReconcilerFixture()
		payload, err := model.ToJSONB(completedEvent("cs_test_1"))
		require.NoError(t, err)

		f.events.On("GetByID", mock.Anything, int64(21)).Return(&model.WebhookEvent{ID: 21, Status: model.WebhookStatusPending, Payload: payload}, nil)
		f.events.On("Claim", mock.Anything, int64(21)).Return(false, nil)

		outcome, err := f.reconciler.Process(ctx, 21)

		require.NoError(t, err)
		assert.Equal(t, usecase.OutcomeDuplicate, outcome)
	})

	t.Run("completed events are skipped", func(t *testing.T) {
		f := newReconcilerFixture()
		f.events.On("GetByID", mock.Anything, int64(22)).Return(&model.WebhookEvent{ID: 22, Status: model.WebhookStatusCompleted}, nil)

		outcome, err := f.reconciler.Process(ctx, 22)

		require.NoError(t, err)
		assert.Equal(t, usecase.OutcomeDuplicate, outcome)
		f.events.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything)
	})

	t.Run("missing event", func(t *testing.T) {
		f := newReconcilerFixture()
		f.events.On("GetByID", mock.Anything, int64(23)).Return(nil, domainerrors.ErrEventNotFound)

		_, err := f.reconciler.Process(ctx, 23)
		assert.ErrorIs(t, err, domainerrors.ErrEventNotFound)
	})
}
