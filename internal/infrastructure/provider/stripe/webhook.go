package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/money"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
	"go.uber.org/zap"
)

// SignatureHeader carries the Stripe webhook signature
const SignatureHeader = "Stripe-Signature"

// ParseWebhook verifies the signature and reduces the event to a payment or subscription update
func (s *StripeProvider) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*provider.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		header.Get(SignatureHeader),
		s.config.WebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidSignature, err)
	}

	out := &provider.WebhookEvent{
		ID:        event.ID,
		Type:      string(event.Type),
		Provider:  model.ProviderStripe,
		CreatedAt: time.Unix(event.Created, 0).UTC(),
	}
	if event.Data == nil {
		return out, nil
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		out.Payment = sessionUpdate(event.Type, &sess)

	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("failed to decode payment intent: %w", err)
		}
		out.Payment = paymentIntentUpdate(event.Type, &pi)

	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return nil, fmt.Errorf("failed to decode charge: %w", err)
		}
		// partial refunds keep the payment settled
		if charge.Refunded && charge.PaymentIntent != nil {
			out.Payment = &provider.PaymentUpdate{
				PaymentID:  charge.Metadata["payment_id"],
				CaptureRef: charge.PaymentIntent.ID,
				Status:     model.PaymentStatusRefunded,
			}
		}

	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscription: %w", err)
		}
		out.Subscription = toSubscriptionUpdate(&sub)

	default:
		s.logger.Debug("Ignoring Stripe event type",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}

	return out, nil
}

func sessionUpdate(eventType stripe.EventType, sess *stripe.CheckoutSession) *provider.PaymentUpdate {
	update := &provider.PaymentUpdate{
		PaymentID:   sess.ClientReferenceID,
		ProviderRef: sess.ID,
	}
	if sess.PaymentIntent != nil {
		update.CaptureRef = sess.PaymentIntent.ID
	}

	switch eventType {
	case stripe.EventTypeCheckoutSessionCompleted:
		// delayed-notification methods complete unpaid and report later
		update.Status = sessionStatus(sess)
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		update.Status = model.PaymentStatusCaptured
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		update.Status = model.PaymentStatusFailed
		update.FailureCode = "async_payment_failed"
		update.FailureMessage = "delayed payment method failed"
	case stripe.EventTypeCheckoutSessionExpired:
		update.Status = model.PaymentStatusFailed
		update.FailureCode = "checkout_expired"
		update.FailureMessage = "checkout session expired before payment"
	}
	return update
}

// paymentIntentUpdate ignores intents we did not create, such as subscription invoices.
func paymentIntentUpdate(eventType stripe.EventType, pi *stripe.PaymentIntent) *provider.PaymentUpdate {
	paymentID := pi.Metadata["payment_id"]
	if paymentID == "" {
		return nil
	}

	update := &provider.PaymentUpdate{
		PaymentID:  paymentID,
		CaptureRef: pi.ID,
		Status:     model.PaymentStatusSettled,
	}
	if eventType == stripe.EventTypePaymentIntentPaymentFailed {
		update.Status = model.PaymentStatusFailed
		if pi.LastPaymentError != nil {
			update.FailureCode = string(pi.LastPaymentError.Code)
			update.FailureMessage = pi.LastPaymentError.Msg
		}
	}
	return update
}

func toSubscriptionUpdate(sub *stripe.Subscription) *provider.SubscriptionUpdate {
	update := &provider.SubscriptionUpdate{
		ProviderSubscriptionID: sub.ID,
		CustomerID:             sub.Metadata["customer_id"],
		PlanID:                 sub.Metadata["plan_id"],
		Status:                 subscriptionStatus(sub.Status),
		StartDate:              unixTime(sub.CurrentPeriodStart),
		EndDate:                unixTime(sub.CurrentPeriodEnd),
		TrialStart:             unixTime(sub.TrialStart),
		TrialEnd:               unixTime(sub.TrialEnd),
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		CancelledAt:            unixTime(sub.CanceledAt),
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			currency := strings.ToUpper(string(item.Price.Currency))
			quantity := item.Quantity
			if quantity == 0 {
				quantity = 1
			}
			update.PriceRef = item.Price.ID
			update.Currency = currency
			update.Amount = money.FromMinor(item.Price.UnitAmount*quantity, currency)
		}
	}
	return update
}

// subscriptionStatus folds Stripe's statuses into our closed set
func subscriptionStatus(status stripe.SubscriptionStatus) model.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive:
		return model.SubscriptionStatusActive
	case stripe.SubscriptionStatusTrialing:
		return model.SubscriptionStatusTrialing
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return model.SubscriptionStatusCancelled
	default:
		// past_due, unpaid, incomplete, paused
		return model.SubscriptionStatusPastDue
	}
}

func unixTime(v int64) *time.Time {
	if v == 0 {
		return nil
	}
	t := time.Unix(v, 0).UTC()
	return &t
}
