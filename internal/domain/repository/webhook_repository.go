package repository

import (
	"context"

	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
)

// WebhookEventRepository is the durable log of verified vendor notifications.
type WebhookEventRepository interface {
	// Save stores the event unless (provider, event id) already exists.
	// inserted is false for a duplicate delivery; event.ID is then the stored row's id.
	Save(ctx context.Context, event *model.WebhookEvent) (inserted bool, err error)
	GetByID(ctx context.Context, id int64) (*model.WebhookEvent, error)

	// Claim marks the event processing if nobody else holds it.
	Claim(ctx context.Context, id int64) (bool, error)
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, cause error) error

	// ListDue returns pending and failed events whose retry time has come,
	// plus processing events whose claim expired.
	ListDue(ctx context.Context, limit int) ([]*model.WebhookEvent, error)
}
