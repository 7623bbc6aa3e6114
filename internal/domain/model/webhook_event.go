package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// WebhookStatus represents the processing status of a webhook
type WebhookStatus string

const (
	WebhookStatusPending    WebhookStatus = "pending"
	WebhookStatusProcessing WebhookStatus = "processing"
	WebhookStatusCompleted  WebhookStatus = "completed"
	WebhookStatusFailed     WebhookStatus = "failed"
)

// Scan implements sql.Scanner interface
func (w *WebhookStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*w = WebhookStatus(v)
	case []byte:
		*w = WebhookStatus(v)
	default:
		return fmt.Errorf("cannot scan %T into WebhookStatus", src)
	}
	return nil
}

// Value implements driver.Valuer interface
func (w WebhookStatus) Value() (driver.Value, error) {
	return string(w), nil
}

// WebhookEvent is one verified vendor notification, stored once per (provider, event id)
type WebhookEvent struct {
	ID                 int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider           ProviderType  `gorm:"type:payment_provider;not null;uniqueIndex:idx_webhook_events_provider_event,priority:1" json:"provider"`
	EventID            string        `gorm:"not null;size:255;uniqueIndex:idx_webhook_events_provider_event,priority:2" json:"event_id"`
	EventType          string        `gorm:"not null;size:100;index" json:"event_type"`
	Status             WebhookStatus `gorm:"type:webhook_status;not null;index" json:"status"`
	Payload            JSONB         `gorm:"type:jsonb;not null" json:"payload"`
	ProcessingAttempts int           `gorm:"not null;default:0" json:"processing_attempts"`
	LastError          *string       `json:"last_error,omitempty"`
	NextRetryAt        *time.Time    `gorm:"index" json:"next_retry_at,omitempty"`
	ProcessedAt        *time.Time    `json:"processed_at,omitempty"`
	VendorCreatedAt    *time.Time    `json:"vendor_created_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
}

// TableName specifies the table name for GORM
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// RetryDelay grows 5min * 2^attempts and is capped at 24h.
func RetryDelay(attempts int) time.Duration {
	const (
		base    = 5 * time.Minute
		ceiling = 24 * time.Hour
	)
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 9 {
		return ceiling
	}
	d := base * time.Duration(1<<uint(attempts))
	if d > ceiling {
		return ceiling
	}
	return d
}
