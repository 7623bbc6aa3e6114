package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/money"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
	"go.uber.org/zap"
)

const (
	EnvironmentSandbox = "sandbox"
	EnvironmentLive    = "live"

	requestIDHeader = "PayPal-Request-Id"
	approveRel      = "approve"
)

// Config holds the REST app credentials and the checkout presentation
type Config struct {
	ClientID    string
	Secret      string
	WebhookID   string
	Environment string
	BrandName   string
	ReturnURL   string
	CancelURL   string

	// APIBase overrides the environment endpoint
	APIBase string
}

// PayPalProvider implements provider.PaymentProvider with Orders v2 and Subscriptions v1
type PayPalProvider struct {
	client *paypal.Client
	config Config
	logger *zap.Logger
}

var _ provider.PaymentProvider = (*PayPalProvider)(nil)

func NewPayPalProvider(cfg Config, logger *zap.Logger) (*PayPalProvider, error) {
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = paypal.APIBaseSandBox
		if cfg.Environment == EnvironmentLive {
			apiBase = paypal.APIBaseLive
		}
	}

	c, err := paypal.NewClient(cfg.ClientID, cfg.Secret, apiBase)
	if err != nil {
		return nil, fmt.Errorf("failed to create paypal client: %w", err)
	}

	return &PayPalProvider{
		client: c,
		config: cfg,
		logger: logger,
	}, nil
}

func (p *PayPalProvider) Name() model.ProviderType {
	return model.ProviderPayPal
}

type applicationContext struct {
	BrandName          string `json:"brand_name,omitempty"`
	ShippingPreference string `json:"shipping_preference,omitempty"`
	UserAction         string `json:"user_action,omitempty"`
	ReturnURL          string `json:"return_url,omitempty"`
	CancelURL          string `json:"cancel_url,omitempty"`
}

type purchaseUnitRequest struct {
	ReferenceID string                     `json:"reference_id,omitempty"`
	CustomID    string                     `json:"custom_id,omitempty"`
	Description string                     `json:"description,omitempty"`
	Amount      *paypal.PurchaseUnitAmount `json:"amount"`
}

type orderRequest struct {
	Intent             string                `json:"intent"`
	PurchaseUnits      []purchaseUnitRequest `json:"purchase_units"`
	ApplicationContext *applicationContext   `json:"application_context,omitempty"`
}

type captureDetail struct {
	ID            string                     `json:"id"`
	Status        string                     `json:"status"`
	CustomID      string                     `json:"custom_id,omitempty"`
	Amount        *paypal.PurchaseUnitAmount `json:"amount,omitempty"`
	StatusDetails *struct {
		Reason string `json:"reason"`
	} `json:"status_details,omitempty"`
}

type purchaseUnit struct {
	ReferenceID string                     `json:"reference_id,omitempty"`
	CustomID    string                     `json:"custom_id,omitempty"`
	Amount      *paypal.PurchaseUnitAmount `json:"amount,omitempty"`
	Payments    *struct {
		Captures []captureDetail `json:"captures"`
	} `json:"payments,omitempty"`
}

type orderResponse struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
	Links         []paypal.Link  `json:"links"`
}

func (o *orderResponse) approveURL() string {
	return findLink(o.Links, approveRel)
}

func (o *orderResponse) capture() *captureDetail {
	for _, unit := range o.PurchaseUnits {
		if unit.Payments != nil && len(unit.Payments.Captures) > 0 {
			return &unit.Payments.Captures[0]
		}
	}
	return nil
}

// status maps the order (and its first capture, once there is one) onto our states
func (o *orderResponse) status() model.PaymentStatus {
	if c := o.capture(); c != nil {
		switch c.Status {
		case "COMPLETED":
			return model.PaymentStatusSettled
		case "DECLINED", "FAILED":
			return model.PaymentStatusFailed
		case "REFUNDED":
			return model.PaymentStatusRefunded
		default:
			return model.PaymentStatusCaptured
		}
	}
	switch o.Status {
	case "COMPLETED":
		return model.PaymentStatusCaptured
	case "VOIDED":
		return model.PaymentStatusFailed
	default:
		// CREATED, SAVED, APPROVED, PAYER_ACTION_REQUIRED
		return model.PaymentStatusPending
	}
}

func (o *orderResponse) toCheckout(raw json.RawMessage) *provider.Checkout {
	checkout := &provider.Checkout{
		ID:     o.ID,
		URL:    o.approveURL(),
		Status: o.status(),
	}
	if len(o.PurchaseUnits) > 0 && o.PurchaseUnits[0].Amount != nil {
		amount := o.PurchaseUnits[0].Amount
		checkout.Currency = amount.Currency
		checkout.Amount, _ = decimal.NewFromString(amount.Value)
	}
	if c := o.capture(); c != nil {
		checkout.CaptureRef = c.ID
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &checkout.Raw)
	}
	return checkout
}

func findLink(links []paypal.Link, rel string) string {
	for _, l := range links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

// CreateCheckout creates a CAPTURE-intent order with a single purchase unit
func (p *PayPalProvider) CreateCheckout(ctx context.Context, req *provider.CheckoutRequest) (*provider.Checkout, error) {
	currency, err := money.ParseCurrency(req.Currency)
	if err != nil {
		return nil, provider.NewError(model.ProviderPayPal, provider.KindValidation, "", err.Error(), nil)
	}
	if err := money.Validate(req.Amount, currency); err != nil {
		return nil, provider.NewError(model.ProviderPayPal, provider.KindValidation, "", err.Error(), nil)
	}
	value, _ := money.Format(req.Amount, currency)

	body := orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnitRequest{{
			ReferenceID: "default",
			CustomID:    req.PaymentID,
			Description: req.Description,
			Amount: &paypal.PurchaseUnitAmount{
				Currency: currency,
				Value:    value,
			},
		}},
		ApplicationContext: &applicationContext{
			BrandName:          p.config.BrandName,
			ShippingPreference: "NO_SHIPPING",
			UserAction:         "PAY_NOW",
			ReturnURL:          p.config.ReturnURL,
			CancelURL:          p.config.CancelURL,
		},
	}

	var raw json.RawMessage
	if err := p.do(ctx, http.MethodPost, "/v2/checkout/orders", body, req.IdempotencyKey, &raw); err != nil {
		p.logger.Warn("PayPal order creation failed",
			zap.String("payment_id", req.PaymentID),
			zap.Error(err))
		return nil, err
	}

	var order orderResponse
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, provider.NewError(model.ProviderPayPal, provider.KindRejected, "", "unreadable order response", err)
	}
	if order.approveURL() == "" {
		return nil, provider.NewError(model.ProviderPayPal, provider.KindRejected, "NO_APPROVE_LINK", "order response has no approve link", nil)
	}

	p.logger.Info("PayPal order created",
		zap.String("payment_id", req.PaymentID),
		zap.String("order_id", order.ID))

	checkout := order.toCheckout(raw)
	if checkout.Currency == "" {
		checkout.Currency = currency
		checkout.Amount = req.Amount
	}
	return checkout, nil
}

func (p *PayPalProvider) GetCheckout(ctx context.Context, providerRef string) (*provider.Checkout, error) {
	var raw json.RawMessage
	if err := p.do(ctx, http.MethodGet, "/v2/checkout/orders/"+providerRef, nil, "", &raw); err != nil {
		return nil, err
	}

	var order orderResponse
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, provider.NewError(model.ProviderPayPal, provider.KindRejected, "", "unreadable order response", err)
	}
	return order.toCheckout(raw), nil
}

// Capture captures an approved order. The request id is derived from the order
// id so a retried capture is answered from PayPal's idempotency cache.
func (p *PayPalProvider) Capture(ctx context.Context, req *provider.CaptureRequest) (*provider.CaptureResult, error) {
	requestID := req.IdempotencyKey
	if requestID == "" {
		requestID = "capture-" + req.ProviderRef
	}

	var raw json.RawMessage
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", req.ProviderRef)
	if err := p.do(ctx, http.MethodPost, path, struct{}{}, requestID, &raw); err != nil {
		p.logger.Warn("PayPal capture failed",
			zap.String("order_id", req.ProviderRef),
			zap.Error(err))
		return nil, err
	}

	var order orderResponse
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, provider.NewError(model.ProviderPayPal, provider.KindRejected, "", "unreadable capture response", err)
	}

	result := &provider.CaptureResult{
		ID:     order.ID,
		Status: model.PaymentStatusCaptured,
	}
	if c := order.capture(); c != nil {
		result.CaptureRef = c.ID
		if c.Status == "DECLINED" || c.Status == "FAILED" {
			result.Status = model.PaymentStatusFailed
			result.FailureCode = c.Status
			if c.StatusDetails != nil {
				result.FailureMessage = c.StatusDetails.Reason
			}
		}
	}
	_ = json.Unmarshal(raw, &result.Raw)
	return result, nil
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Refund returns the full captured amount
func (p *PayPalProvider) Refund(ctx context.Context, req *provider.RefundRequest) (*provider.RefundResult, error) {
	if req.CaptureRef == "" {
		return nil, provider.NewError(model.ProviderPayPal, provider.KindValidation, "", "capture reference is required for refunds", nil)
	}

	var resp refundResponse
	path := fmt.Sprintf("/v2/payments/captures/%s/refund", req.CaptureRef)
	if err := p.do(ctx, http.MethodPost, path, struct{}{}, req.IdempotencyKey, &resp); err != nil {
		return nil, err
	}
	return &provider.RefundResult{ID: resp.ID, Status: resp.Status}, nil
}

type subscriptionRequest struct {
	PlanID             string              `json:"plan_id"`
	CustomID           string              `json:"custom_id,omitempty"`
	ApplicationContext *applicationContext `json:"application_context,omitempty"`
}

// CreateSubscription creates a billing subscription and returns its approve link
func (p *PayPalProvider) CreateSubscription(ctx context.Context, req *provider.SubscriptionRequest) (*provider.Checkout, error) {
	if req.PriceRef == "" {
		return nil, provider.NewError(model.ProviderPayPal, provider.KindValidation, "", "paypal plan id is required", nil)
	}

	body := subscriptionRequest{
		PlanID:   req.PriceRef,
		CustomID: req.CustomerID,
		ApplicationContext: &applicationContext{
			BrandName:          p.config.BrandName,
			ShippingPreference: "NO_SHIPPING",
			UserAction:         "SUBSCRIBE_NOW",
			ReturnURL:          p.config.ReturnURL,
			CancelURL:          p.config.CancelURL,
		},
	}

	var resp subscriptionResource
	if err := p.do(ctx, http.MethodPost, "/v1/billing/subscriptions", body, req.IdempotencyKey, &resp); err != nil {
		p.logger.Warn("PayPal subscription creation failed",
			zap.String("customer_id", req.CustomerID),
			zap.String("plan_id", req.PlanID),
			zap.Error(err))
		return nil, err
	}

	url := findLink(resp.Links, approveRel)
	if url == "" {
		return nil, provider.NewError(model.ProviderPayPal, provider.KindRejected, "NO_APPROVE_LINK", "subscription response has no approve link", nil)
	}
	return &provider.Checkout{ID: resp.ID, URL: url, Status: model.PaymentStatusPending}, nil
}

// CancelSubscription cancels immediately; PayPal has no period-end cancellation
func (p *PayPalProvider) CancelSubscription(ctx context.Context, providerSubscriptionID string) (*provider.SubscriptionUpdate, error) {
	body := map[string]string{"reason": "Cancelled by customer"}
	path := fmt.Sprintf("/v1/billing/subscriptions/%s/cancel", providerSubscriptionID)
	if err := p.do(ctx, http.MethodPost, path, body, "", nil); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &provider.SubscriptionUpdate{
		ProviderSubscriptionID: providerSubscriptionID,
		Status:                 model.SubscriptionStatusCancelled,
		CancelledAt:            &now,
	}, nil
}

func (p *PayPalProvider) do(ctx context.Context, method, path string, body interface{}, requestID string, out interface{}) error {
	req, err := p.client.NewRequest(ctx, method, p.client.APIBase+path, body)
	if err != nil {
		return fmt.Errorf("failed to build paypal request: %w", err)
	}
	if requestID != "" {
		req.Header.Set(requestIDHeader, requestID)
	}
	req.Header.Set("Prefer", "return=representation")

	if err := p.client.SendWithAuth(req, out); err != nil {
		return classify(err)
	}
	return nil
}
