package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	domainerrors "github.com/wekeepgrowing/jobportal-payment/internal/domain/errors"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert keys on (provider, provider_subscription_id). Empty identity fields
// never overwrite stored ones since vendor events do not always carry them.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *model.Subscription) (*model.Subscription, error) {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}

	updates := []string{
		"status", "start_date", "end_date", "trial_start", "trial_end",
		"cancel_at_period_end", "cancelled_at", "provider_data", "updated_at",
	}
	if sub.CustomerID != "" {
		updates = append(updates, "customer_id")
	}
	if sub.PlanID != "" {
		updates = append(updates, "plan_id", "plan_name")
	}
	if !sub.Amount.IsZero() {
		updates = append(updates, "amount", "currency")
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_subscription_id"}},
			DoUpdates: clause.AssignmentColumns(updates),
		}).
		Create(sub).Error
	if err != nil {
		r.logger.Error("Failed to upsert subscription",
			zap.String("provider", string(sub.Provider)),
			zap.String("provider_subscription_id", sub.ProviderSubscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return r.GetByProviderID(ctx, sub.Provider, sub.ProviderSubscriptionID)
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *subscriptionRepository) GetByProviderID(ctx context.Context, provider model.ProviderType, providerSubscriptionID string) (*model.Subscription, error) {
	return r.first(ctx, "provider = ? AND provider_subscription_id = ?", provider, providerSubscriptionID)
}

func (r *subscriptionRepository) first(ctx context.Context, query string, args ...interface{}) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where(query, args...).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListByCustomer(ctx context.Context, customerID string) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		r.logger.Error("Failed to list subscriptions",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepository) Save(ctx context.Context, sub *model.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	if err := r.db.WithContext(ctx).Save(sub).Error; err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}
