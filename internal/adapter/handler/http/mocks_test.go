package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/entity"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/usecase"
)

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreateStripeCheckout(ctx context.Context, in usecase.CheckoutInput) (*usecase.CheckoutResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.CheckoutResult), args.Error(1)
}

func (m *MockPaymentService) CreatePayPalOrder(ctx context.Context, in usecase.OrderInput) (*usecase.CheckoutResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.CheckoutResult), args.Error(1)
}

func (m *MockPaymentService) Capture(ctx context.Context, providerType model.ProviderType, providerRef string) (*usecase.CaptureOutput, error) {
	args := m.Called(ctx, providerType, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.CaptureOutput), args.Error(1)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, id uuid.UUID, customerID string) (*model.Payment, error) {
	args := m.Called(ctx, id, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentService) ListPayments(ctx context.Context, customerID string, params entity.PaginationParams) (*entity.PaginatedPaymentsResponse, error) {
	args := m.Called(ctx, customerID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PaginatedPaymentsResponse), args.Error(1)
}

func (m *MockPaymentService) Refund(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentService) Refresh(ctx context.Context, id uuid.UUID, customerID string) (*model.Payment, error) {
	args := m.Called(ctx, id, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) Create(ctx context.Context, in usecase.SubscriptionInput) (*usecase.CheckoutResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.CheckoutResult), args.Error(1)
}

func (m *MockSubscriptionService) List(ctx context.Context, customerID string) ([]*model.Subscription, error) {
	args := m.Called(ctx, customerID)
	subs, _ := args.Get(0).([]*model.Subscription)
	return subs, args.Error(1)
}

func (m *MockSubscriptionService) GetCurrent(ctx context.Context, customerID string) (*model.Subscription, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) Cancel(ctx context.Context, id uuid.UUID, customerID string) (*model.Subscription, error) {
	args := m.Called(ctx, id, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

type MockPlanCatalogue struct {
	mock.Mock
}

func (m *MockPlanCatalogue) ListActive(ctx context.Context) ([]*model.PaymentPlan, error) {
	args := m.Called(ctx)
	plans, _ := args.Get(0).([]*model.PaymentPlan)
	return plans, args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) HandleWebhook(ctx context.Context, providerType model.ProviderType, payload []byte, header http.Header) (*usecase.WebhookOutcome, error) {
	args := m.Called(ctx, providerType, payload, header)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.WebhookOutcome), args.Error(1)
}
