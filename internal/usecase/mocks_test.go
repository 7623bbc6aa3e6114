package usecase_test

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/repository"
)

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*model.Payment, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByProviderRef(ctx context.Context, p model.ProviderType, ref string) (*model.Payment, error) {
	args := m.Called(ctx, p, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByCaptureRef(ctx context.Context, p model.ProviderType, ref string) (*model.Payment, error) {
	args := m.Called(ctx, p, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByCustomer(ctx context.Context, filter repository.PaymentListFilter) ([]*model.Payment, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*model.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) ListStale(ctx context.Context, status model.PaymentStatus, olderThan time.Time, limit int) ([]*model.Payment, error) {
	args := m.Called(ctx, status, olderThan, limit)
	return args.Get(0).([]*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) MarkChecked(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	args := m.Called(ctx, ids, at)
	return args.Error(0)
}

func (m *MockPaymentRepository) AttachCheckout(ctx context.Context, id uuid.UUID, providerRef, approvalURL string) error {
	args := m.Called(ctx, id, providerRef, approvalURL)
	return args.Error(0)
}

func (m *MockPaymentRepository) Transition(ctx context.Context, id uuid.UUID, to model.PaymentStatus, update repository.TransitionUpdate) (*repository.TransitionResult, error) {
	args := m.Called(ctx, id, to, update)
	if fn, ok := args.Get(0).(func(uuid.UUID, model.PaymentStatus) *repository.TransitionResult); ok {
		return fn(id, to), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TransitionResult), args.Error(1)
}

// MockWebhookEventRepository is a mock implementation of WebhookEventRepository
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) Save(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookEventRepository) GetByID(ctx context.Context, id int64) (*model.WebhookEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepository) Claim(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookEventRepository) MarkProcessed(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockWebhookEventRepository) MarkFailed(ctx context.Context, id int64, cause error) error {
	return m.Called(ctx, id, cause).Error(0)
}

func (m *MockWebhookEventRepository) ListDue(ctx context.Context, limit int) ([]*model.WebhookEvent, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*model.WebhookEvent), args.Error(1)
}

// MockSubscriptionRepository is a mock implementation of SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Upsert(ctx context.Context, sub *model.Subscription) (*model.Subscription, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByProviderID(ctx context.Context, p model.ProviderType, id string) (*model.Subscription, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) ListByCustomer(ctx context.Context, customerID string) ([]*model.Subscription, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Save(ctx context.Context, sub *model.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

// MockPlanRepository is a mock implementation of PlanRepository
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) Upsert(ctx context.Context, plan *model.PaymentPlan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *MockPlanRepository) GetByID(ctx context.Context, id string) (*model.PaymentPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentPlan), args.Error(1)
}

func (m *MockPlanRepository) GetByProviderRef(ctx context.Context, p model.ProviderType, ref string) (*model.PaymentPlan, error) {
	args := m.Called(ctx, p, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentPlan), args.Error(1)
}

func (m *MockPlanRepository) ListActive(ctx context.Context) ([]*model.PaymentPlan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PaymentPlan), args.Error(1)
}

func (m *MockPlanRepository) Deactivate(ctx context.Context, keepIDs []string) (int64, error) {
	args := m.Called(ctx, keepIDs)
	return args.Get(0).(int64), args.Error(1)
}

// MockProvider is a mock implementation of PaymentProvider
type MockProvider struct {
	mock.Mock
	name model.ProviderType
}

func newMockProvider(name model.ProviderType) *MockProvider {
	return &MockProvider{name: name}
}

func (m *MockProvider) Name() model.ProviderType {
	return m.name
}

func (m *MockProvider) CreateCheckout(ctx context.Context, req *provider.CheckoutRequest) (*provider.Checkout, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Checkout), args.Error(1)
}

func (m *MockProvider) GetCheckout(ctx context.Context, providerRef string) (*provider.Checkout, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Checkout), args.Error(1)
}

func (m *MockProvider) Capture(ctx context.Context, req *provider.CaptureRequest) (*provider.CaptureResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CaptureResult), args.Error(1)
}

func (m *MockProvider) Refund(ctx context.Context, req *provider.RefundRequest) (*provider.RefundResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.RefundResult), args.Error(1)
}

func (m *MockProvider) CreateSubscription(ctx context.Context, req *provider.SubscriptionRequest) (*provider.Checkout, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Checkout), args.Error(1)
}

func (m *MockProvider) CancelSubscription(ctx context.Context, id string) (*provider.SubscriptionUpdate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.SubscriptionUpdate), args.Error(1)
}

func (m *MockProvider) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*provider.WebhookEvent, error) {
	args := m.Called(ctx, payload, header)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.WebhookEvent), args.Error(1)
}

// MockPublisher records published transitions
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishTransition(ctx context.Context, payment *model.Payment, from model.PaymentStatus) {
	m.Called(ctx, payment, from)
}
