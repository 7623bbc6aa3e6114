package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentPlan is one catalogue entry, purchasable once or as a subscription
type PaymentPlan struct {
	ID            string          `gorm:"primaryKey;size:100" json:"id"`
	Name          string          `gorm:"not null;size:200" json:"name"`
	Kind          PaymentKind     `gorm:"not null;size:20" json:"kind"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"amount"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	Interval      string          `gorm:"column:billing_interval;size:20" json:"interval,omitempty"` // month, year; empty for one_time
	StripePriceID *string         `gorm:"size:100" json:"-"`
	PayPalPlanID  *string         `gorm:"column:paypal_plan_id;size:100" json:"-"`
	Features      JSONB           `gorm:"type:jsonb" json:"features,omitempty"`
	SortOrder     int             `gorm:"not null" json:"sort_order"`
	IsActive      bool            `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time       `json:"-"`
	UpdatedAt     time.Time       `json:"-"`
}

// TableName specifies the table name for GORM
func (PaymentPlan) TableName() string {
	return "payment_plans"
}

// ProviderPriceRef returns the vendor-side identifier used to subscribe to this plan.
func (p *PaymentPlan) ProviderPriceRef(provider ProviderType) string {
	switch provider {
	case ProviderStripe:
		if p.StripePriceID != nil {
			return *p.StripePriceID
		}
	case ProviderPayPal:
		if p.PayPalPlanID != nil {
			return *p.PayPalPlanID
		}
	}
	return ""
}
