package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
	"go.uber.org/zap"
)

// Transmission headers PayPal signs every webhook delivery with
const (
	HeaderAuthAlgo         = "Paypal-Auth-Algo"
	HeaderCertURL          = "Paypal-Cert-Url"
	HeaderTransmissionID   = "Paypal-Transmission-Id"
	HeaderTransmissionSig  = "Paypal-Transmission-Sig"
	HeaderTransmissionTime = "Paypal-Transmission-Time"
)

type verifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type verifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

type webhookEnvelope struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type"`
	CreateTime   time.Time       `json:"create_time"`
	Resource     json.RawMessage `json:"resource"`
}

type captureResource struct {
	ID                string        `json:"id"`
	Status            string        `json:"status"`
	CustomID          string        `json:"custom_id"`
	Links             []paypal.Link `json:"links"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
	StatusDetails struct {
		Reason string `json:"reason"`
	} `json:"status_details"`
}

type subscriptionResource struct {
	ID               string        `json:"id"`
	Status           string        `json:"status"`
	PlanID           string        `json:"plan_id"`
	CustomID         string        `json:"custom_id"`
	StartTime        *time.Time    `json:"start_time"`
	StatusUpdateTime *time.Time    `json:"status_update_time"`
	Links            []paypal.Link `json:"links"`
	BillingInfo      *struct {
		NextBillingTime *time.Time `json:"next_billing_time"`
		LastPayment     *struct {
			Amount *paypal.Money `json:"amount"`
		} `json:"last_payment"`
	} `json:"billing_info"`
}

// ParseWebhook verifies the delivery with PayPal and reduces it to a payment or subscription update
func (p *PayPalProvider) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*provider.WebhookEvent, error) {
	if err := p.verify(ctx, payload, header); err != nil {
		return nil, err
	}

	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to decode paypal webhook: %w", err)
	}

	out := &provider.WebhookEvent{
		ID:        env.ID,
		Type:      env.EventType,
		Provider:  model.ProviderPayPal,
		CreatedAt: env.CreateTime.UTC(),
	}

	switch {
	case env.EventType == "CHECKOUT.ORDER.APPROVED" || env.EventType == "CHECKOUT.ORDER.COMPLETED":
		var order orderResponse
		if err := json.Unmarshal(env.Resource, &order); err != nil {
			return nil, fmt.Errorf("failed to decode order resource: %w", err)
		}
		update := &provider.PaymentUpdate{
			ProviderRef: order.ID,
			Status:      model.PaymentStatusPending,
		}
		if env.EventType == "CHECKOUT.ORDER.COMPLETED" {
			update.Status = model.PaymentStatusCaptured
		}
		if len(order.PurchaseUnits) > 0 {
			update.PaymentID = order.PurchaseUnits[0].CustomID
		}
		if c := order.capture(); c != nil {
			update.CaptureRef = c.ID
		}
		out.Payment = update

	case strings.HasPrefix(env.EventType, "PAYMENT.CAPTURE."):
		var capture captureResource
		if err := json.Unmarshal(env.Resource, &capture); err != nil {
			return nil, fmt.Errorf("failed to decode capture resource: %w", err)
		}
		out.Payment = captureUpdate(env.EventType, &capture)

	case strings.HasPrefix(env.EventType, "BILLING.SUBSCRIPTION."):
		var sub subscriptionResource
		if err := json.Unmarshal(env.Resource, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscription resource: %w", err)
		}
		out.Subscription = subscriptionUpdate(&sub)

	default:
		p.logger.Debug("Ignoring PayPal event type",
			zap.String("event_id", env.ID),
			zap.String("event_type", env.EventType))
	}

	return out, nil
}

func (p *PayPalProvider) verify(ctx context.Context, payload []byte, header http.Header) error {
	if p.config.WebhookID == "" {
		return fmt.Errorf("%w: paypal webhook id not configured", provider.ErrInvalidSignature)
	}
	if header.Get(HeaderTransmissionSig) == "" {
		return fmt.Errorf("%w: missing transmission signature", provider.ErrInvalidSignature)
	}

	body := verifyRequest{
		AuthAlgo:         header.Get(HeaderAuthAlgo),
		CertURL:          header.Get(HeaderCertURL),
		TransmissionID:   header.Get(HeaderTransmissionID),
		TransmissionSig:  header.Get(HeaderTransmissionSig),
		TransmissionTime: header.Get(HeaderTransmissionTime),
		WebhookID:        p.config.WebhookID,
		WebhookEvent:     json.RawMessage(payload),
	}

	var resp verifyResponse
	if err := p.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", body, "", &resp); err != nil {
		return err
	}
	if resp.VerificationStatus != "SUCCESS" {
		return fmt.Errorf("%w: verification status %s", provider.ErrInvalidSignature, resp.VerificationStatus)
	}
	return nil
}

func captureUpdate(eventType string, capture *captureResource) *provider.PaymentUpdate {
	update := &provider.PaymentUpdate{
		PaymentID:   capture.CustomID,
		ProviderRef: capture.SupplementaryData.RelatedIDs.OrderID,
		CaptureRef:  capture.ID,
	}

	switch eventType {
	case "PAYMENT.CAPTURE.COMPLETED":
		update.Status = model.PaymentStatusSettled
	case "PAYMENT.CAPTURE.DENIED", "PAYMENT.CAPTURE.DECLINED":
		update.Status = model.PaymentStatusFailed
		update.FailureCode = capture.Status
		update.FailureMessage = capture.StatusDetails.Reason
	case "PAYMENT.CAPTURE.REFUNDED":
		// the resource is the refund; its "up" link points at the capture
		update.Status = model.PaymentStatusRefunded
		update.CaptureRef = ""
		if up := findLink(capture.Links, "up"); up != "" {
			update.CaptureRef = up[strings.LastIndex(up, "/")+1:]
		}
	default:
		// PENDING, REVERSED: nothing to reconcile
		return nil
	}
	return update
}

// subscriptionUpdate returns nil for statuses outside our closed set (APPROVAL_PENDING, APPROVED)
func subscriptionUpdate(sub *subscriptionResource) *provider.SubscriptionUpdate {
	var status model.SubscriptionStatus
	switch sub.Status {
	case "ACTIVE":
		status = model.SubscriptionStatusActive
	case "SUSPENDED":
		status = model.SubscriptionStatusPastDue
	case "CANCELLED", "EXPIRED":
		status = model.SubscriptionStatusCancelled
	default:
		return nil
	}

	update := &provider.SubscriptionUpdate{
		ProviderSubscriptionID: sub.ID,
		CustomerID:             sub.CustomID,
		PriceRef:               sub.PlanID,
		Status:                 status,
		StartDate:              sub.StartTime,
	}
	if status == model.SubscriptionStatusCancelled {
		update.CancelledAt = sub.StatusUpdateTime
	}
	if sub.BillingInfo != nil {
		update.EndDate = sub.BillingInfo.NextBillingTime
		if lp := sub.BillingInfo.LastPayment; lp != nil && lp.Amount != nil {
			update.Currency = lp.Amount.Currency
			update.Amount, _ = decimal.NewFromString(lp.Amount.Value)
		}
	}
	return update
}
