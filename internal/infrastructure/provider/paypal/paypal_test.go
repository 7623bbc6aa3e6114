package paypal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
	"go.uber.org/zap"
)

const testOrderID = "5O190127TN364715T"

// fakePayPal records requests and answers like the sandbox REST API
type fakePayPal struct {
	mu       sync.Mutex
	bodies   map[string][]byte
	headers  map[string]http.Header
	tokenHit int
}

func (f *fakePayPal) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.bodies[r.URL.Path] = body
		f.headers[r.URL.Path] = r.Header.Clone()
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/v1/oauth2/token":
			f.mu.Lock()
			f.tokenHit++
			f.mu.Unlock()
			_, _ = io.WriteString(w, `{"access_token":"A21AAFake","token_type":"Bearer","expires_in":32400}`)

		case r.URL.Path == "/v2/checkout/orders" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"`+testOrderID+`","status":"CREATED",
				"purchase_units":[{"reference_id":"default","amount":{"currency_code":"USD","value":"9.99"}}],
				"links":[
					{"href":"https://api-m.sandbox.paypal.com/v2/checkout/orders/`+testOrderID+`","rel":"self","method":"GET"},
					{"href":"https://www.sandbox.paypal.com/checkoutnow?token=`+testOrderID+`","rel":"approve","method":"GET"},
					{"href":"https://api-m.sandbox.paypal.com/v2/checkout/orders/`+testOrderID+`/capture","rel":"capture","method":"POST"}
				]}`)

		case r.URL.Path == "/v2/checkout/orders/NOAPPROVE" && r.Method == http.MethodGet:
			_, _ = io.WriteString(w, `{"id":"NOAPPROVE","status":"APPROVED","links":[]}`)

		case r.URL.Path == "/v2/checkout/orders/"+testOrderID+"/capture":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"`+testOrderID+`","status":"COMPLETED",
				"purchase_units":[{"reference_id":"default","payments":{"captures":[{"id":"3C679366HH908993F","status":"COMPLETED","amount":{"currency_code":"USD","value":"9.99"}}]}}]}`)

		case r.URL.Path == "/v2/checkout/orders/DECLINED/capture":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"DECLINED","status":"COMPLETED",
				"purchase_units":[{"reference_id":"default","payments":{"captures":[{"id":"2GG279541U471931P","status":"DECLINED",
					"status_details":{"reason":"DECLINED_BY_RISK_FRAUD_CONTROLS"}}]}}]}`)

		case r.URL.Path == "/v2/checkout/orders/ALREADY/capture":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"name":"UNPROCESSABLE_ENTITY","message":"The requested action could not be performed.",
				"details":[{"issue":"ORDER_ALREADY_CAPTURED","description":"Order already captured."}]}`)

		case r.URL.Path == "/v2/checkout/orders/MISSING/capture":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"name":"RESOURCE_NOT_FOUND","message":"The specified resource does not exist.",
				"details":[{"issue":"INVALID_RESOURCE_ID","description":"Specified resource ID does not exist."}]}`)

		case r.URL.Path == "/v2/checkout/orders/BUSY/capture":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"name":"SERVICE_UNAVAILABLE","message":"try later"}`)

		case r.URL.Path == "/v2/payments/captures/3C679366HH908993F/refund":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"1JU08902781691411","status":"COMPLETED"}`)

		case r.URL.Path == "/v1/billing/subscriptions":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"I-BW452GLLEP1G","status":"APPROVAL_PENDING",
				"links":[{"href":"https://www.sandbox.paypal.com/webapps/billing/subscriptions?ba_token=BA-1","rel":"approve","method":"GET"}]}`)

		case r.URL.Path == "/v1/billing/subscriptions/I-BW452GLLEP1G/cancel":
			w.WriteHeader(http.StatusNoContent)

		case r.URL.Path == "/v1/notifications/verify-webhook-signature":
			var req verifyRequest
			require.NoError(t, json.Unmarshal(body, &req))
			status := "FAILURE"
			if req.TransmissionSig == "good-signature" && req.WebhookID == "WH-TEST" {
				status = "SUCCESS"
			}
			_, _ = io.WriteString(w, `{"verification_status":"`+status+`"}`)

		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"name":"RESOURCE_NOT_FOUND","message":"unknown path"}`)
		}
	}
}

func newTestProvider(t *testing.T) (*PayPalProvider, *fakePayPal) {
	t.Helper()

	fake := &fakePayPal{bodies: map[string][]byte{}, headers: map[string]http.Header{}}
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	p, err := NewPayPalProvider(Config{
		ClientID:  "client-id",
		Secret:    "secret",
		WebhookID: "WH-TEST",
		BrandName: "Job Portal",
		ReturnURL: "https://portal.example.com/payment/success",
		CancelURL: "https://portal.example.com/payment/cancel",
		APIBase:   server.URL,
	}, zap.NewNop())
	require.NoError(t, err)
	return p, fake
}

func TestNewPayPalProvider_Environment(t *testing.T) {
	live, err := NewPayPalProvider(Config{ClientID: "id", Secret: "s", Environment: EnvironmentLive}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "https://api-m.paypal.com", live.client.APIBase)

	sandbox, err := NewPayPalProvider(Config{ClientID: "id", Secret: "s"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "https://api-m.sandbox.paypal.com", sandbox.client.APIBase)

	_, err = NewPayPalProvider(Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestCreateCheckout(t *testing.T) {
	p, fake := newTestProvider(t)

	checkout, err := p.CreateCheckout(context.Background(), &provider.CheckoutRequest{
		PaymentID:      "pay-1",
		IdempotencyKey: "idem-1",
		Amount:         decimal.RequireFromString("9.99"),
		Currency:       "usd",
	})
	require.NoError(t, err)

	assert.Equal(t, testOrderID, checkout.ID)
	assert.True(t, strings.HasPrefix(checkout.URL, "https://www.sandbox.paypal.com/"))
	assert.Equal(t, model.PaymentStatusPending, checkout.Status)
	assert.Equal(t, "USD", checkout.Currency)

	var sent orderRequest
	require.NoError(t, json.Unmarshal(fake.bodies["/v2/checkout/orders"], &sent))
	assert.Equal(t, "CAPTURE", sent.Intent)
	require.Len(t, sent.PurchaseUnits, 1)
	assert.Equal(t, "pay-1", sent.PurchaseUnits[0].CustomID)
	assert.Equal(t, "9.99", sent.PurchaseUnits[0].Amount.Value)
	assert.Equal(t, "USD", sent.PurchaseUnits[0].Amount.Currency)
	assert.Equal(t, "Job Portal", sent.ApplicationContext.BrandName)
	assert.Equal(t, "idem-1", fake.headers["/v2/checkout/orders"].Get(requestIDHeader))
	assert.Equal(t, "Bearer A21AAFake", fake.headers["/v2/checkout/orders"].Get("Authorization"))
}

func TestCreateCheckout_InvalidAmount(t *testing.T) {
	p, _ := newTestProvider(t)

	for _, tc := range []struct{ amount, currency string }{
		{"0", "USD"},
		{"9.999", "USD"},
		{"10.5", "JPY"},
		{"10", "DOLLARS"},
	} {
		_, err := p.CreateCheckout(context.Background(), &provider.CheckoutRequest{
			PaymentID: "pay-x",
			Amount:    decimal.RequireFromString(tc.amount),
			Currency:  tc.currency,
		})
		assert.Equal(t, provider.KindValidation, provider.KindOf(err), tc)
	}
}

func TestGetCheckout_NoApproveLink(t *testing.T) {
	p, _ := newTestProvider(t)

	checkout, err := p.GetCheckout(context.Background(), "NOAPPROVE")
	require.NoError(t, err)
	assert.Empty(t, checkout.URL)
	assert.Equal(t, model.PaymentStatusPending, checkout.Status)
}

func TestCapture(t *testing.T) {
	p, fake := newTestProvider(t)

	res, err := p.Capture(context.Background(), &provider.CaptureRequest{ProviderRef: testOrderID})
	require.NoError(t, err)
	assert.Equal(t, testOrderID, res.ID)
	assert.Equal(t, "3C679366HH908993F", res.CaptureRef)
	assert.Equal(t, model.PaymentStatusCaptured, res.Status)
	assert.Equal(t, "COMPLETED", res.Raw["status"])
	assert.Equal(t, "capture-"+testOrderID, fake.headers["/v2/checkout/orders/"+testOrderID+"/capture"].Get(requestIDHeader))
}

func TestCapture_Declined(t *testing.T) {
	p, _ := newTestProvider(t)

	res, err := p.Capture(context.Background(), &provider.CaptureRequest{ProviderRef: "DECLINED"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, res.Status)
	assert.Equal(t, "2GG279541U471931P", res.CaptureRef)
	assert.Equal(t, "DECLINED", res.FailureCode)
	assert.Equal(t, "DECLINED_BY_RISK_FRAUD_CONTROLS", res.FailureMessage)
}

func TestCapture_Errors(t *testing.T) {
	p, _ := newTestProvider(t)

	tests := []struct {
		orderID string
		kind    provider.ErrorKind
		code    string
	}{
		{"ALREADY", provider.KindConflict, "ORDER_ALREADY_CAPTURED"},
		{"MISSING", provider.KindNotFound, "INVALID_RESOURCE_ID"},
		{"BUSY", provider.KindUnavailable, "SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.orderID, func(t *testing.T) {
			_, err := p.Capture(context.Background(), &provider.CaptureRequest{ProviderRef: tt.orderID})
			require.Error(t, err)

			var pe *provider.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, tt.code, pe.Code)
		})
	}
}

func TestRefund(t *testing.T) {
	p, fake := newTestProvider(t)

	res, err := p.Refund(context.Background(), &provider.RefundRequest{
		PaymentID:      "pay-1",
		CaptureRef:     "3C679366HH908993F",
		IdempotencyKey: "refund-pay-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "1JU08902781691411", res.ID)
	assert.Equal(t, "refund-pay-1", fake.headers["/v2/payments/captures/3C679366HH908993F/refund"].Get(requestIDHeader))
}

func TestSubscriptionLifecycle(t *testing.T) {
	p, fake := newTestProvider(t)

	checkout, err := p.CreateSubscription(context.Background(), &provider.SubscriptionRequest{
		CustomerID: "cust-1",
		PlanID:     "pro-monthly",
		PriceRef:   "P-5ML4271244454362WXNWU5NQ",
	})
	require.NoError(t, err)
	assert.Equal(t, "I-BW452GLLEP1G", checkout.ID)
	assert.Contains(t, checkout.URL, "ba_token=BA-1")

	var sent subscriptionRequest
	require.NoError(t, json.Unmarshal(fake.bodies["/v1/billing/subscriptions"], &sent))
	assert.Equal(t, "P-5ML4271244454362WXNWU5NQ", sent.PlanID)
	assert.Equal(t, "cust-1", sent.CustomID)

	update, err := p.CancelSubscription(context.Background(), "I-BW452GLLEP1G")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusCancelled, update.Status)
	assert.NotNil(t, update.CancelledAt)
}

func signedHeaders(sig string) http.Header {
	h := http.Header{}
	h.Set(HeaderAuthAlgo, "SHA256withRSA")
	h.Set(HeaderCertURL, "https://api.sandbox.paypal.com/v1/notifications/certs/CERT-360caa42")
	h.Set(HeaderTransmissionID, "69cd13f0-d67a-11e5-baa3-778b53f4ae55")
	h.Set(HeaderTransmissionSig, sig)
	h.Set(HeaderTransmissionTime, "2026-10-18T10:00:00Z")
	return h
}

func TestParseWebhook(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		payload string
		check   func(t *testing.T, ev *provider.WebhookEvent)
	}{
		{
			name: "order approved",
			payload: `{"id":"WH-1","event_type":"CHECKOUT.ORDER.APPROVED","create_time":"2026-10-18T10:00:00Z","resource_type":"checkout-order",
				"resource":{"id":"` + testOrderID + `","status":"APPROVED","purchase_units":[{"reference_id":"default","custom_id":"pay-1"}]}}`,
			check: func(t *testing.T, ev *provider.WebhookEvent) {
				require.NotNil(t, ev.Payment)
				assert.Equal(t, model.PaymentStatusPending, ev.Payment.Status)
				assert.Equal(t, "pay-1", ev.Payment.PaymentID)
				assert.Equal(t, testOrderID, ev.Payment.ProviderRef)
			},
		},
		{
			name: "capture completed settles",
			payload: `{"id":"WH-2","event_type":"PAYMENT.CAPTURE.COMPLETED","create_time":"2026-10-18T10:00:00Z","resource_type":"capture",
				"resource":{"id":"3C679366HH908993F","status":"COMPLETED","custom_id":"pay-1","supplementary_data":{"related_ids":{"order_id":"` + testOrderID + `"}}}}`,
			check: func(t *testing.T, ev *provider.WebhookEvent) {
				assert.Equal(t, model.PaymentStatusSettled, ev.Payment.Status)
				assert.Equal(t, testOrderID, ev.Payment.ProviderRef)
				assert.Equal(t, "3C679366HH908993F", ev.Payment.CaptureRef)
			},
		},
		{
			name: "capture denied fails",
			payload: `{"id":"WH-3","event_type":"PAYMENT.CAPTURE.DENIED","create_time":"2026-10-18T10:00:00Z","resource_type":"capture",
				"resource":{"id":"CAP-3","status":"DECLINED","custom_id":"pay-3","status_details":{"reason":"DECLINED_BY_RISK_FRAUD_FILTERS"}}}`,
			check: func(t *testing.T, ev *provider.WebhookEvent) {
				assert.Equal(t, model.PaymentStatusFailed, ev.Payment.Status)
				assert.Equal(t, "DECLINED_BY_RISK_FRAUD_FILTERS", ev.Payment.FailureMessage)
			},
		},
		{
			name: "refund resolves the capture from its up link",
			payload: `{"id":"WH-4","event_type":"PAYMENT.CAPTURE.REFUNDED","create_time":"2026-10-18T10:00:00Z","resource_type":"refund",
				"resource":{"id":"1JU08902781691411","status":"COMPLETED","custom_id":"pay-1",
				"links":[{"href":"https://api-m.sandbox.paypal.com/v2/payments/captures/3C679366HH908993F","rel":"up","method":"GET"}]}}`,
			check: func(t *testing.T, ev *provider.WebhookEvent) {
				assert.Equal(t, model.PaymentStatusRefunded, ev.Payment.Status)
				assert.Equal(t, "3C679366HH908993F", ev.Payment.CaptureRef)
			},
		},
		{
			name: "subscription suspended",
			payload: `{"id":"WH-5","event_type":"BILLING.SUBSCRIPTION.SUSPENDED","create_time":"2026-10-18T10:00:00Z","resource_type":"subscription",
				"resource":{"id":"I-BW452GLLEP1G","status":"SUSPENDED","plan_id":"P-PRO","custom_id":"cust-1",
				"billing_info":{"next_billing_time":"2026-11-18T10:00:00Z","last_payment":{"amount":{"currency_code":"USD","value":"29.00"}}}}}`,
			check: func(t *testing.T, ev *provider.WebhookEvent) {
				require.NotNil(t, ev.Subscription)
				assert.Equal(t, model.SubscriptionStatusPastDue, ev.Subscription.Status)
				assert.Equal(t, "cust-1", ev.Subscription.CustomerID)
				assert.Equal(t, "P-PRO", ev.Subscription.PriceRef)
				assert.True(t, decimal.NewFromInt(29).Equal(ev.Subscription.Amount))
			},
		},
		{
			name: "subscription awaiting approval is ignored",
			payload: `{"id":"WH-6","event_type":"BILLING.SUBSCRIPTION.CREATED","create_time":"2026-10-18T10:00:00Z","resource_type":"subscription",
				"resource":{"id":"I-NEW","status":"APPROVAL_PENDING","plan_id":"P-PRO"}}`,
			check: func(t *testing.T, ev *provider.WebhookEvent) {
				assert.Nil(t, ev.Subscription)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := p.ParseWebhook(ctx, []byte(tt.payload), signedHeaders("good-signature"))
			require.NoError(t, err)
			assert.Equal(t, model.ProviderPayPal, ev.Provider)
			tt.check(t, ev)
		})
	}
}

func TestParseWebhook_Rejected(t *testing.T) {
	p, _ := newTestProvider(t)
	payload := []byte(`{"id":"WH-X","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{}}`)

	_, err := p.ParseWebhook(context.Background(), payload, signedHeaders("forged"))
	assert.ErrorIs(t, err, provider.ErrInvalidSignature)

	_, err = p.ParseWebhook(context.Background(), payload, http.Header{})
	assert.ErrorIs(t, err, provider.ErrInvalidSignature)
}
