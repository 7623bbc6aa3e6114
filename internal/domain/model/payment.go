package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a checkout session or order
type PaymentStatus string

const (
	PaymentStatusCreated  PaymentStatus = "created"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusCaptured PaymentStatus = "captured"
	PaymentStatusSettled  PaymentStatus = "settled"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// pending may jump straight to settled: vendors do not order their webhooks.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusCreated:  {PaymentStatusPending, PaymentStatusFailed},
	PaymentStatusPending:  {PaymentStatusCaptured, PaymentStatusSettled, PaymentStatusFailed},
	PaymentStatusCaptured: {PaymentStatusSettled, PaymentStatusRefunded},
	PaymentStatusSettled:  {PaymentStatusRefunded},
	PaymentStatusFailed:   nil,
	PaymentStatusRefunded: nil,
}

// progress orders the successful path; failed sits beside pending.
var paymentProgress = map[PaymentStatus]int{
	PaymentStatusCreated:  0,
	PaymentStatusPending:  1,
	PaymentStatusCaptured: 2,
	PaymentStatusSettled:  3,
	PaymentStatusRefunded: 4,
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) IsTerminal() bool {
	return s.Valid() && len(paymentTransitions[s]) == 0
}

// CanTransitionTo reports whether next is a legal successor of s.
// A transition to the same state is not a transition.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Supersedes reports whether s is already at or beyond target, so an event
// asking for target is stale rather than contradictory.
func (s PaymentStatus) Supersedes(target PaymentStatus) bool {
	if s == target {
		return true
	}
	switch {
	case target == PaymentStatusFailed:
		return paymentProgress[s] >= paymentProgress[PaymentStatusCaptured]
	case s == PaymentStatusFailed:
		return target == PaymentStatusCreated || target == PaymentStatusPending
	}
	return paymentProgress[s] > paymentProgress[target]
}

// SourcesOf returns every state that may move to next.
func SourcesOf(next PaymentStatus) []PaymentStatus {
	var from []PaymentStatus
	for _, s := range []PaymentStatus{
		PaymentStatusCreated, PaymentStatusPending, PaymentStatusCaptured,
		PaymentStatusSettled, PaymentStatusFailed, PaymentStatusRefunded,
	} {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

// Scan implements sql.Scanner interface
func (s *PaymentStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = PaymentStatus(v)
	case []byte:
		*s = PaymentStatus(v)
	default:
		return fmt.Errorf("cannot scan %T into PaymentStatus", src)
	}
	return nil
}

// Value implements driver.Valuer interface
func (s PaymentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// LineItem is one price reference in a Stripe checkout
type LineItem struct {
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
}

// LineItems is stored as a JSON array
type LineItems []LineItem

// Value implements driver.Valuer interface
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner interface
func (l *LineItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into LineItems", src)
	}
}

// Payment mirrors one vendor checkout session (Stripe) or order (PayPal)
type Payment struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID         *string         `gorm:"size:100;index" json:"customer_id,omitempty"`
	Provider           ProviderType    `gorm:"type:payment_provider;not null;uniqueIndex:idx_payments_provider_ref,priority:1" json:"provider"`
	Kind               PaymentKind     `gorm:"size:20;not null" json:"kind"`
	PlanID             *string         `gorm:"size:100" json:"plan_id,omitempty"`
	ProviderRef        *string         `gorm:"size:255;uniqueIndex:idx_payments_provider_ref,priority:2" json:"provider_ref,omitempty"`
	ProviderCaptureRef *string         `gorm:"size:255;index" json:"provider_capture_ref,omitempty"`
	IdempotencyKey     *string         `gorm:"size:255;uniqueIndex" json:"-"`
	Amount             decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"amount"`
	Currency           string          `gorm:"size:3;not null" json:"currency"`
	LineItems          LineItems       `gorm:"type:jsonb" json:"line_items,omitempty"`
	ApprovalURL        string          `gorm:"size:2048" json:"approval_url,omitempty"`
	Status             PaymentStatus   `gorm:"type:payment_status;not null;index" json:"status"`
	FailureCode        *string         `gorm:"size:100" json:"failure_code,omitempty"`
	FailureMessage     *string         `json:"failure_message,omitempty"`
	ProviderData       JSONB           `gorm:"type:jsonb" json:"provider_data,omitempty"`
	PendingAt          *time.Time      `json:"pending_at,omitempty"`
	CapturedAt         *time.Time      `json:"captured_at,omitempty"`
	SettledAt          *time.Time      `json:"settled_at,omitempty"`
	FailedAt           *time.Time      `json:"failed_at,omitempty"`
	RefundedAt         *time.Time      `json:"refunded_at,omitempty"`
	LastCheckedAt      *time.Time      `json:"last_checked_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// StatusTimestampColumn names the column stamped when a payment enters s.
func StatusTimestampColumn(s PaymentStatus) string {
	switch s {
	case PaymentStatusPending:
		return "pending_at"
	case PaymentStatusCaptured:
		return "captured_at"
	case PaymentStatusSettled:
		return "settled_at"
	case PaymentStatusFailed:
		return "failed_at"
	case PaymentStatusRefunded:
		return "refunded_at"
	}
	return ""
}
