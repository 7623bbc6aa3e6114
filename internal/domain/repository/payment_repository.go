package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
)

// TransitionUpdate carries the columns written together with a status change.
// Empty fields are left untouched.
type TransitionUpdate struct {
	CaptureRef     string
	FailureCode    string
	FailureMessage string
	ProviderData   model.JSONB

	// Amount is written only together with a non-empty Currency
	Amount   decimal.Decimal
	Currency string
}

// TransitionResult reports what a compare-and-set transition did.
type TransitionResult struct {
	From    model.PaymentStatus
	To      model.PaymentStatus
	Applied bool
	Payment *model.Payment
}

// PaymentListFilter selects one page of a customer's payments. Empty
// Status and Provider match everything.
type PaymentListFilter struct {
	CustomerID string
	Status     model.PaymentStatus
	Provider   model.ProviderType
	Limit      int
	Offset     int
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*model.Payment, error)
	GetByProviderRef(ctx context.Context, provider model.ProviderType, ref string) (*model.Payment, error)
	GetByCaptureRef(ctx context.Context, provider model.ProviderType, captureRef string) (*model.Payment, error)
	ListByCustomer(ctx context.Context, filter PaymentListFilter) ([]*model.Payment, int64, error)

	// ListStale returns payments in status last changed and last checked
	// before olderThan, least recently looked at first.
	ListStale(ctx context.Context, status model.PaymentStatus, olderThan time.Time, limit int) ([]*model.Payment, error)

	// MarkChecked stamps last_checked_at without touching updated_at.
	MarkChecked(ctx context.Context, ids []uuid.UUID, at time.Time) error

	// AttachCheckout records the vendor session/order id and its redirect URL.
	AttachCheckout(ctx context.Context, id uuid.UUID, providerRef, approvalURL string) error

	// Transition moves the payment to the target status if the state machine
	// allows it. A transition to the current status is a no-op with Applied=false;
	// a forbidden one returns ErrInvalidTransition together with the current status.
	Transition(ctx context.Context, id uuid.UUID, to model.PaymentStatus, update TransitionUpdate) (*TransitionResult, error)
}
