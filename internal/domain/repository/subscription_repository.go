package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
)

type SubscriptionRepository interface {
	// Upsert inserts or updates by (provider, provider subscription id) and
	// returns the stored row.
	Upsert(ctx context.Context, subscription *model.Subscription) (*model.Subscription, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	GetByProviderID(ctx context.Context, provider model.ProviderType, providerSubscriptionID string) (*model.Subscription, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*model.Subscription, error)
	Save(ctx context.Context, subscription *model.Subscription) error
}

type PlanRepository interface {
	Upsert(ctx context.Context, plan *model.PaymentPlan) error
	GetByID(ctx context.Context, id string) (*model.PaymentPlan, error)
	GetByProviderRef(ctx context.Context, provider model.ProviderType, ref string) (*model.PaymentPlan, error)
	ListActive(ctx context.Context) ([]*model.PaymentPlan, error)
	Deactivate(ctx context.Context, keepIDs []string) (int64, error)
}
