package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusTrialing  SubscriptionStatus = "trialing"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusCancelled, SubscriptionStatusPastDue:
		return true
	}
	return false
}

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		return fmt.Errorf("cannot scan %T into SubscriptionStatus", src)
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Subscription represents a customer's recurring plan at one vendor
type Subscription struct {
	ID                     uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID             string             `gorm:"size:100;not null;index" json:"customer_id"`
	PlanID                 string             `gorm:"size:100" json:"plan_id"`
	PlanName               string             `gorm:"size:200" json:"plan_name"`
	Provider               ProviderType       `gorm:"type:payment_provider;not null;uniqueIndex:idx_subscriptions_provider_ref,priority:1" json:"provider"`
	ProviderSubscriptionID string             `gorm:"size:255;not null;uniqueIndex:idx_subscriptions_provider_ref,priority:2" json:"provider_subscription_id"`
	Amount                 decimal.Decimal    `gorm:"type:numeric(18,4)" json:"amount"`
	Currency               string             `gorm:"size:3" json:"currency"`
	Status                 SubscriptionStatus `gorm:"type:subscription_status;not null" json:"status"`
	StartDate              *time.Time         `json:"start_date,omitempty"`
	EndDate                *time.Time         `json:"end_date,omitempty"`
	TrialStart             *time.Time         `json:"trial_start,omitempty"`
	TrialEnd               *time.Time         `json:"trial_end,omitempty"`
	CancelAtPeriodEnd      bool               `gorm:"not null" json:"cancel_at_period_end"`
	CancelledAt            *time.Time         `json:"cancelled_at,omitempty"`
	ProviderData           JSONB              `gorm:"type:jsonb" json:"-"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}
