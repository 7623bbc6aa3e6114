package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/entity"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/usecase"
)

// PaymentService is implemented by usecase.PaymentService
type PaymentService interface {
	CreateStripeCheckout(ctx context.Context, in usecase.CheckoutInput) (*usecase.CheckoutResult, error)
	CreatePayPalOrder(ctx context.Context, in usecase.OrderInput) (*usecase.CheckoutResult, error)
	Capture(ctx context.Context, providerType model.ProviderType, providerRef string) (*usecase.CaptureOutput, error)
	GetPayment(ctx context.Context, id uuid.UUID, customerID string) (*model.Payment, error)
	ListPayments(ctx context.Context, customerID string, params entity.PaginationParams) (*entity.PaginatedPaymentsResponse, error)
	Refund(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	Refresh(ctx context.Context, id uuid.UUID, customerID string) (*model.Payment, error)
}

// SubscriptionService is implemented by usecase.SubscriptionService
type SubscriptionService interface {
	Create(ctx context.Context, in usecase.SubscriptionInput) (*usecase.CheckoutResult, error)
	List(ctx context.Context, customerID string) ([]*model.Subscription, error)
	GetCurrent(ctx context.Context, customerID string) (*model.Subscription, error)
	Cancel(ctx context.Context, id uuid.UUID, customerID string) (*model.Subscription, error)
}

// PlanCatalogue is implemented by usecase.PlanSyncService
type PlanCatalogue interface {
	ListActive(ctx context.Context) ([]*model.PaymentPlan, error)
}

// WebhookReconciler is implemented by usecase.Reconciler
type WebhookReconciler interface {
	HandleWebhook(ctx context.Context, providerType model.ProviderType, payload []byte, header http.Header) (*usecase.WebhookOutcome, error)
}
