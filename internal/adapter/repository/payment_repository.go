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
)

// maxTransitionAttempts bounds the re-read loop when a concurrent writer wins the compare-and-set
const maxTransitionAttempts = 3

type paymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB, logger *zap.Logger) repository.PaymentRepository {
	return &paymentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.Status == "" {
		payment.Status = model.PaymentStatusCreated
	}

	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrDuplicatePayment
		}
		r.logger.Error("Failed to create payment",
			zap.String("payment_id", payment.ID.String()),
			zap.String("provider", string(payment.Provider)),
			zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *paymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*model.Payment, error) {
	return r.first(ctx, "idempotency_key = ?", key)
}

func (r *paymentRepository) GetByProviderRef(ctx context.Context, provider model.ProviderType, ref string) (*model.Payment, error) {
	return r.first(ctx, "provider = ? AND provider_ref = ?", provider, ref)
}

func (r *paymentRepository) GetByCaptureRef(ctx context.Context, provider model.ProviderType, captureRef string) (*model.Payment, error) {
	return r.first(ctx, "provider = ? AND provider_capture_ref = ?", provider, captureRef)
}

func (r *paymentRepository) first(ctx context.Context, query string, args ...interface{}) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).Where(query, args...).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) ListByCustomer(ctx context.Context, filter repository.PaymentListFilter) ([]*model.Payment, int64, error) {
	var (
		payments []*model.Payment
		total    int64
	)

	query := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("customer_id = ?", filter.CustomerID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	err := query.Order("created_at DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&payments).Error
	if err != nil {
		r.logger.Error("Failed to list payments",
			zap.String("customer_id", filter.CustomerID),
			zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, total, nil
}

func (r *paymentRepository) ListStale(ctx context.Context, status model.PaymentStatus, olderThan time.Time, limit int) ([]*model.Payment, error) {
	var payments []*model.Payment
	olderThan = olderThan.UTC()

	query := r.db.WithContext(ctx).
		Where("status = ? AND provider_ref IS NOT NULL AND updated_at < ?", status, olderThan).
		Where("(last_checked_at IS NULL OR last_checked_at < ?)", olderThan).
		Order("COALESCE(last_checked_at, updated_at) ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale payments: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) MarkChecked(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id IN ?", ids).
		UpdateColumn("last_checked_at", at.UTC()).Error
	if err != nil {
		return fmt.Errorf("failed to mark payments checked: %w", err)
	}
	return nil
}

func (r *paymentRepository) AttachCheckout(ctx context.Context, id uuid.UUID, providerRef, approvalURL string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"provider_ref": providerRef,
			"approval_url": approvalURL,
			"updated_at":   time.Now().UTC(),
		})

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: vendor reference %s already attached", domainerrors.ErrDuplicatePayment, providerRef)
		}
		return fmt.Errorf("failed to attach checkout: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrPaymentNotFound
	}
	return nil
}

func (r *paymentRepository) Transition(ctx context.Context, id uuid.UUID, to model.PaymentStatus, update repository.TransitionUpdate) (*repository.TransitionResult, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		res := &repository.TransitionResult{From: current.Status, To: to, Payment: current}
		if current.Status == to {
			return res, nil
		}
		if !current.Status.CanTransitionTo(to) {
			return res, fmt.Errorf("%w: %s -> %s", domainerrors.ErrInvalidTransition, current.Status, to)
		}

		now := time.Now().UTC()
		values := map[string]interface{}{
			"status":     to,
			"updated_at": now,
		}
		if col := model.StatusTimestampColumn(to); col != "" {
			values[col] = now
		}
		if update.CaptureRef != "" {
			values["provider_capture_ref"] = update.CaptureRef
		}
		if update.FailureCode != "" {
			values["failure_code"] = update.FailureCode
		}
		if update.FailureMessage != "" {
			values["failure_message"] = update.FailureMessage
		}
		if update.ProviderData != nil {
			values["provider_data"] = update.ProviderData
		}
		if update.Currency != "" {
			values["amount"] = update.Amount
			values["currency"] = update.Currency
		}

		// compare-and-set on the status we just read
		result := r.db.WithContext(ctx).
			Model(&model.Payment{}).
			Where("id = ? AND status = ?", id, current.Status).
			Updates(values)
		if result.Error != nil {
			r.logger.Error("Failed to transition payment",
				zap.String("payment_id", id.String()),
				zap.String("from", string(current.Status)),
				zap.String("to", string(to)),
				zap.Error(result.Error))
			return nil, fmt.Errorf("failed to transition payment: %w", result.Error)
		}

		if result.RowsAffected == 1 {
			fresh, err := r.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			res.Applied = true
			res.Payment = fresh
			return res, nil
		}

		r.logger.Debug("Lost payment status race, retrying",
			zap.String("payment_id", id.String()),
			zap.Int("attempt", attempt+1))
	}

	return nil, fmt.Errorf("failed to transition payment %s: status kept changing", id)
}
