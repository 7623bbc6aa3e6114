package repository

import (
	"context"
	"errors"
	"fmt"

	domainerrors "github.com/wekeepgrowing/jobportal-payment/internal/domain/errors"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type planRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *gorm.DB, logger *zap.Logger) repository.PlanRepository {
	return &planRepository{
		db:     db,
		logger: logger,
	}
}

func (r *planRepository) Upsert(ctx context.Context, plan *model.PaymentPlan) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "kind", "amount", "currency", "billing_interval", "stripe_price_id",
				"paypal_plan_id", "features", "sort_order", "is_active", "updated_at",
			}),
		}).
		Create(plan).Error
	if err != nil {
		r.logger.Error("Failed to upsert plan",
			zap.String("plan_id", plan.ID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert plan: %w", err)
	}
	return nil
}

func (r *planRepository) GetByID(ctx context.Context, id string) (*model.PaymentPlan, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *planRepository) GetByProviderRef(ctx context.Context, provider model.ProviderType, ref string) (*model.PaymentPlan, error) {
	switch provider {
	case model.ProviderStripe:
		return r.first(ctx, "stripe_price_id = ?", ref)
	case model.ProviderPayPal:
		return r.first(ctx, "paypal_plan_id = ?", ref)
	}
	return nil, domainerrors.ErrPlanNotFound
}

func (r *planRepository) first(ctx context.Context, query string, args ...interface{}) (*model.PaymentPlan, error) {
	var plan model.PaymentPlan
	err := r.db.WithContext(ctx).Where(query, args...).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

func (r *planRepository) ListActive(ctx context.Context) ([]*model.PaymentPlan, error) {
	var plans []*model.PaymentPlan
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// Deactivate hides every plan not listed in keepIDs.
func (r *planRepository) Deactivate(ctx context.Context, keepIDs []string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&model.PaymentPlan{}).Where("is_active = ?", true)
	if len(keepIDs) > 0 {
		query = query.Where("id NOT IN ?", keepIDs)
	}
	result := query.Update("is_active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to deactivate plans: %w", result.Error)
	}
	return result.RowsAffected, nil
}
