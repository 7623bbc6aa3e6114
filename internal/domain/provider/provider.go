package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
)

// PaymentProvider defines the interface for payment vendors (Stripe, PayPal)
type PaymentProvider interface {
	// Name returns the provider type
	Name() model.ProviderType

	// CreateCheckout opens a hosted checkout (Stripe session, PayPal order)
	CreateCheckout(ctx context.Context, req *CheckoutRequest) (*Checkout, error)

	// GetCheckout reads the current vendor view of a checkout
	GetCheckout(ctx context.Context, providerRef string) (*Checkout, error)

	// Capture completes an approved checkout
	Capture(ctx context.Context, req *CaptureRequest) (*CaptureResult, error)

	// Refund returns the full captured amount
	Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error)

	// CreateSubscription opens a subscription checkout for a vendor plan/price
	CreateSubscription(ctx context.Context, req *SubscriptionRequest) (*Checkout, error)

	// CancelSubscription cancels a vendor subscription
	CancelSubscription(ctx context.Context, providerSubscriptionID string) (*SubscriptionUpdate, error)

	// ParseWebhook verifies and normalizes a vendor notification
	ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error)
}

// CheckoutRequest is a provider-agnostic checkout creation request.
// Stripe uses LineItems; PayPal uses Amount and Currency.
type CheckoutRequest struct {
	PaymentID      string            `json:"payment_id"`
	CustomerID     string            `json:"customer_id,omitempty"`
	IdempotencyKey string            `json:"idempotency_key"`
	LineItems      []model.LineItem  `json:"line_items,omitempty"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	Description    string            `json:"description,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Checkout is the vendor view of a checkout session or order
type Checkout struct {
	ID         string                 `json:"id"`
	URL        string                 `json:"url,omitempty"`
	Status     model.PaymentStatus    `json:"status"`
	CaptureRef string                 `json:"capture_ref,omitempty"`
	Amount     decimal.Decimal        `json:"amount"`
	Currency   string                 `json:"currency"`
	Raw        map[string]interface{} `json:"raw,omitempty"`
}

type CaptureRequest struct {
	PaymentID      string `json:"payment_id"`
	ProviderRef    string `json:"provider_ref"`
	IdempotencyKey string `json:"idempotency_key"`
}

// CaptureResult is returned to the client as-is under "data"
type CaptureResult struct {
	ID         string              `json:"id"`
	CaptureRef string              `json:"capture_ref,omitempty"`
	Status     model.PaymentStatus `json:"status"`

	// Set when the vendor declined the capture
	FailureCode    string `json:"failure_code,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`

	Raw map[string]interface{} `json:"raw,omitempty"`
}

type RefundRequest struct {
	PaymentID      string          `json:"payment_id"`
	ProviderRef    string          `json:"provider_ref"`
	CaptureRef     string          `json:"capture_ref"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type RefundResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type SubscriptionRequest struct {
	PaymentID      string `json:"payment_id,omitempty"`
	CustomerID     string `json:"customer_id"`
	PlanID         string `json:"plan_id"`
	PriceRef       string `json:"price_ref"` // Stripe price id or PayPal plan id
	IdempotencyKey string `json:"idempotency_key"`
}

// WebhookEvent is a verified notification reduced to what reconciliation needs.
// Events carrying neither update are stored and acknowledged but change nothing.
type WebhookEvent struct {
	ID           string              `json:"id"`
	Type         string              `json:"type"`
	Provider     model.ProviderType  `json:"provider"`
	CreatedAt    time.Time           `json:"created_at"`
	Payment      *PaymentUpdate      `json:"payment,omitempty"`
	Subscription *SubscriptionUpdate `json:"subscription,omitempty"`
}

// PaymentUpdate locates a payment and names the state the vendor reports
type PaymentUpdate struct {
	PaymentID      string              `json:"payment_id,omitempty"`
	ProviderRef    string              `json:"provider_ref,omitempty"`
	CaptureRef     string              `json:"capture_ref,omitempty"`
	Status         model.PaymentStatus `json:"status"`
	FailureCode    string              `json:"failure_code,omitempty"`
	FailureMessage string              `json:"failure_message,omitempty"`
}

// SubscriptionUpdate is the vendor view of a subscription mapped onto our enums
type SubscriptionUpdate struct {
	ProviderSubscriptionID string                   `json:"provider_subscription_id"`
	CustomerID             string                   `json:"customer_id,omitempty"`
	PlanID                 string                   `json:"plan_id,omitempty"`
	PriceRef               string                   `json:"price_ref,omitempty"`
	Status                 model.SubscriptionStatus `json:"status"`
	Amount                 decimal.Decimal          `json:"amount"`
	Currency               string                   `json:"currency,omitempty"`
	StartDate              *time.Time               `json:"start_date,omitempty"`
	EndDate                *time.Time               `json:"end_date,omitempty"`
	TrialStart             *time.Time               `json:"trial_start,omitempty"`
	TrialEnd               *time.Time               `json:"trial_end,omitempty"`
	CancelAtPeriodEnd      bool                     `json:"cancel_at_period_end"`
	CancelledAt            *time.Time               `json:"cancelled_at,omitempty"`
}
