package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainerrors "github.com/wekeepgrowing/jobportal-payment/internal/domain/errors"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// claimLease is how long a processing claim blocks other workers
const claimLease = 5 * time.Minute

type webhookRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookRepository creates a new webhook event repository
func NewWebhookRepository(db *gorm.DB, logger *zap.Logger) repository.WebhookEventRepository {
	return &webhookRepository{
		db:     db,
		logger: logger,
	}
}

// Save stores a new webhook event
func (r *webhookRepository) Save(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	if event.Status == "" {
		event.Status = model.WebhookStatusPending
	}

	// Use ON CONFLICT to handle duplicate deliveries
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if result.Error != nil {
		r.logger.Error("Failed to save webhook event",
			zap.String("provider", string(event.Provider)),
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to save webhook event: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var stored model.WebhookEvent
		err := r.db.WithContext(ctx).
			Where("provider = ? AND event_id = ?", event.Provider, event.EventID).
			First(&stored).Error
		if err != nil {
			return false, fmt.Errorf("failed to load duplicate webhook event: %w", err)
		}
		*event = stored
		return false, nil
	}

	return true, nil
}

func (r *webhookRepository) GetByID(ctx context.Context, id int64) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	err := r.db.WithContext(ctx).First(&event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}
	return &event, nil
}

// Claim takes a pending or failed event, or one whose previous claim expired.
func (r *webhookRepository) Claim(ctx context.Context, id int64) (bool, error) {
	now := time.Now().UTC()
	lease := now.Add(claimLease)

	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("id = ? AND (status IN ? OR (status = ? AND next_retry_at <= ?))",
			id,
			[]model.WebhookStatus{model.WebhookStatusPending, model.WebhookStatusFailed},
			model.WebhookStatusProcessing,
			now).
		Updates(map[string]interface{}{
			"status":        model.WebhookStatusProcessing,
			"next_retry_at": &lease,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim webhook event: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkProcessed marks a webhook event as processed
func (r *webhookRepository) MarkProcessed(ctx context.Context, id int64) error {
	now := time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.WebhookStatusCompleted,
			"processed_at":  &now,
			"next_retry_at": nil,
			"last_error":    nil,
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook as processed",
			zap.Int64("id", id),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook as processed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domainerrors.ErrEventNotFound
	}

	return nil
}

// MarkFailed records the error and schedules the next attempt with exponential backoff
func (r *webhookRepository) MarkFailed(ctx context.Context, id int64, cause error) error {
	event, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	nextRetry := time.Now().UTC().Add(model.RetryDelay(event.ProcessingAttempts))
	errorMsg := cause.Error()

	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              model.WebhookStatusFailed,
			"processing_attempts": event.ProcessingAttempts + 1,
			"last_error":          &errorMsg,
			"next_retry_at":       &nextRetry,
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook as failed",
			zap.Int64("id", id),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook as failed: %w", result.Error)
	}

	return nil
}

// ListDue retrieves webhook events ready for (re)processing
func (r *webhookRepository) ListDue(ctx context.Context, limit int) ([]*model.WebhookEvent, error) {
	var events []*model.WebhookEvent
	now := time.Now().UTC()

	query := r.db.WithContext(ctx).
		Where("(status IN ? AND (next_retry_at IS NULL OR next_retry_at <= ?)) OR (status = ? AND next_retry_at <= ?)",
			[]model.WebhookStatus{model.WebhookStatusPending, model.WebhookStatusFailed},
			now,
			model.WebhookStatusProcessing,
			now).
		Order("created_at ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&events).Error; err != nil {
		r.logger.Error("Failed to list due webhook events", zap.Error(err))
		return nil, fmt.Errorf("failed to list due webhook events: %w", err)
	}

	return events, nil
}
