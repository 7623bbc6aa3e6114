package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/money"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
	"go.uber.org/zap"
)

type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type refundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type subscriptionAPI interface {
	Update(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
}

// Config holds the credentials and redirect targets of the Stripe account
type Config struct {
	SecretKey          string
	WebhookSecret      string
	PaymentMethodTypes []string
	SuccessURL         string
	CancelURL          string
}

// StripeProvider implements provider.PaymentProvider with hosted Checkout Sessions
type StripeProvider struct {
	sessions      sessionAPI
	refunds       refundAPI
	subscriptions subscriptionAPI
	config        Config
	logger        *zap.Logger
}

var _ provider.PaymentProvider = (*StripeProvider)(nil)

// NewStripeProvider builds a per-process API client; the global stripe.Key is never set.
func NewStripeProvider(cfg Config, logger *zap.Logger) *StripeProvider {
	sc := client.New(cfg.SecretKey, nil)
	return newStripeProvider(cfg, sc.CheckoutSessions, sc.Refunds, sc.Subscriptions, logger)
}

func newStripeProvider(cfg Config, sessions sessionAPI, refunds refundAPI, subscriptions subscriptionAPI, logger *zap.Logger) *StripeProvider {
	if len(cfg.PaymentMethodTypes) == 0 {
		cfg.PaymentMethodTypes = []string{"card"}
	}
	return &StripeProvider{
		sessions:      sessions,
		refunds:       refunds,
		subscriptions: subscriptions,
		config:        cfg,
		logger:        logger,
	}
}

func (s *StripeProvider) Name() model.ProviderType {
	return model.ProviderStripe
}

// CreateCheckout opens a one-time payment session for the given line items
func (s *StripeProvider) CreateCheckout(ctx context.Context, req *provider.CheckoutRequest) (*provider.Checkout, error) {
	if len(req.LineItems) == 0 {
		return nil, provider.NewError(model.ProviderStripe, provider.KindValidation, "", "at least one line item is required", nil)
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(item.Price),
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	metadata := map[string]string{"payment_id": req.PaymentID}
	if req.CustomerID != "" {
		metadata["customer_id"] = req.CustomerID
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          lineItems,
		PaymentMethodTypes: stripe.StringSlice(s.config.PaymentMethodTypes),
		SuccessURL:         stripe.String(successURL(s.config.SuccessURL)),
		CancelURL:          stripe.String(s.config.CancelURL),
		ClientReferenceID:  stripe.String(req.PaymentID),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx
	params.Metadata = metadata
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	sess, err := s.sessions.New(params)
	if err != nil {
		s.logger.Warn("Stripe checkout session creation failed",
			zap.String("payment_id", req.PaymentID),
			zap.Error(err))
		return nil, classify(err)
	}

	s.logger.Info("Stripe checkout session created",
		zap.String("payment_id", req.PaymentID),
		zap.String("session_id", sess.ID))

	return toCheckout(sess), nil
}

func (s *StripeProvider) GetCheckout(ctx context.Context, providerRef string) (*provider.Checkout, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := s.sessions.Get(providerRef, params)
	if err != nil {
		return nil, classify(err)
	}
	return toCheckout(sess), nil
}

// Capture confirms that a payment-mode session has been paid. Checkout
// captures automatically, so there is nothing to request from Stripe.
func (s *StripeProvider) Capture(ctx context.Context, req *provider.CaptureRequest) (*provider.CaptureResult, error) {
	checkout, err := s.GetCheckout(ctx, req.ProviderRef)
	if err != nil {
		return nil, err
	}

	switch checkout.Status {
	case model.PaymentStatusCaptured:
		return &provider.CaptureResult{
			ID:         checkout.ID,
			CaptureRef: checkout.CaptureRef,
			Status:     model.PaymentStatusCaptured,
			Raw:        checkout.Raw,
		}, nil
	case model.PaymentStatusFailed:
		return nil, provider.NewError(model.ProviderStripe, provider.KindConflict, "session_expired", "checkout session expired", nil)
	default:
		return nil, provider.NewError(model.ProviderStripe, provider.KindConflict, "session_unpaid", "checkout session has not been paid", nil)
	}
}

func (s *StripeProvider) Refund(ctx context.Context, req *provider.RefundRequest) (*provider.RefundResult, error) {
	if req.CaptureRef == "" {
		return nil, provider.NewError(model.ProviderStripe, provider.KindValidation, "", "payment intent reference is required for refunds", nil)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.CaptureRef),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.AddMetadata("payment_id", req.PaymentID)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	refund, err := s.refunds.New(params)
	if err != nil {
		return nil, classify(err)
	}

	return &provider.RefundResult{ID: refund.ID, Status: string(refund.Status)}, nil
}

// CreateSubscription opens a subscription-mode session for a recurring price
func (s *StripeProvider) CreateSubscription(ctx context.Context, req *provider.SubscriptionRequest) (*provider.Checkout, error) {
	if req.PriceRef == "" {
		return nil, provider.NewError(model.ProviderStripe, provider.KindValidation, "", "stripe price id is required", nil)
	}

	metadata := map[string]string{
		"customer_id": req.CustomerID,
		"plan_id":     req.PlanID,
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceRef),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL(s.config.SuccessURL)),
		CancelURL:  stripe.String(s.config.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if req.PaymentID != "" {
		params.ClientReferenceID = stripe.String(req.PaymentID)
		metadata["payment_id"] = req.PaymentID
	}
	params.Context = ctx
	params.Metadata = metadata
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	sess, err := s.sessions.New(params)
	if err != nil {
		s.logger.Warn("Stripe subscription session creation failed",
			zap.String("customer_id", req.CustomerID),
			zap.String("plan_id", req.PlanID),
			zap.Error(err))
		return nil, classify(err)
	}

	return toCheckout(sess), nil
}

// CancelSubscription schedules cancellation at the end of the current period
func (s *StripeProvider) CancelSubscription(ctx context.Context, providerSubscriptionID string) (*provider.SubscriptionUpdate, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	sub, err := s.subscriptions.Update(providerSubscriptionID, params)
	if err != nil {
		return nil, classify(err)
	}
	return toSubscriptionUpdate(sub), nil
}

func toCheckout(sess *stripe.CheckoutSession) *provider.Checkout {
	currency := strings.ToUpper(string(sess.Currency))
	checkout := &provider.Checkout{
		ID:       sess.ID,
		URL:      sess.URL,
		Status:   sessionStatus(sess),
		Amount:   money.FromMinor(sess.AmountTotal, currency),
		Currency: currency,
		Raw: map[string]interface{}{
			"id":             sess.ID,
			"status":         string(sess.Status),
			"payment_status": string(sess.PaymentStatus),
			"amount_total":   sess.AmountTotal,
			"currency":       currency,
		},
	}
	if sess.PaymentIntent != nil {
		checkout.CaptureRef = sess.PaymentIntent.ID
		checkout.Raw["payment_intent"] = sess.PaymentIntent.ID
	}
	return checkout
}

func sessionStatus(sess *stripe.CheckoutSession) model.PaymentStatus {
	switch {
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		return model.PaymentStatusFailed
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return model.PaymentStatusCaptured
	default:
		return model.PaymentStatusPending
	}
}

// successURL lets the frontend look the session up after the redirect.
func successURL(base string) string {
	if strings.Contains(base, "{CHECKOUT_SESSION_ID}") {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%ssession_id={CHECKOUT_SESSION_ID}", base, sep)
}
