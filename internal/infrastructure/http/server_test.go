package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/jobportal-payment/internal/config"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/entity"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/infrastructure/metrics"
	"github.com/wekeepgrowing/jobportal-payment/internal/usecase"
	"go.uber.org/zap"
)

// stubPayments answers every call with a fixed payment
type stubPayments struct {
	refunded bool
}

func (s *stubPayments) CreateStripeCheckout(ctx context.Context, in usecase.CheckoutInput) (*usecase.CheckoutResult, error) {
	return &usecase.CheckoutResult{Payment: &model.Payment{ID: uuid.New()}, ProviderRef: "cs_1", URL: "https://checkout.stripe.com/c/pay/cs_1"}, nil
}

func (s *stubPayments) CreatePayPalOrder(ctx context.Context, in usecase.OrderInput) (*usecase.CheckoutResult, error) {
	return &usecase.CheckoutResult{Payment: &model.Payment{ID: uuid.New()}, ProviderRef: "ORDER-1", URL: "https://www.sandbox.paypal.com/checkoutnow?token=ORDER-1"}, nil
}

func (s *stubPayments) Capture(ctx context.Context, providerType model.ProviderType, providerRef string) (*usecase.CaptureOutput, error) {
	return nil, nil
}

func (s *stubPayments) GetPayment(ctx context.Context, id uuid.UUID, customerID string) (*model.Payment, error) {
	return &model.Payment{ID: id, CustomerID: &customerID}, nil
}

func (s *stubPayments) ListPayments(ctx context.Context, customerID string, params entity.PaginationParams) (*entity.PaginatedPaymentsResponse, error) {
	return &entity.PaginatedPaymentsResponse{Data: []*model.Payment{}}, nil
}

func (s *stubPayments) Refund(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	s.refunded = true
	return &model.Payment{ID: id, Status: model.PaymentStatusRefunded}, nil
}

func (s *stubPayments) Refresh(ctx context.Context, id uuid.UUID, customerID string) (*model.Payment, error) {
	return &model.Payment{ID: id}, nil
}

type stubPlans struct{}

func (stubPlans) ListActive(ctx context.Context) ([]*model.PaymentPlan, error) {
	return []*model.PaymentPlan{}, nil
}

func newTestServer(t *testing.T) (*Server, *stubPayments) {
	t.Helper()
	cfg := &config.Config{
		Service:  config.ServiceConfig{Name: "payment", Version: "test"},
		JWT:      config.JWTConfig{Secret: "secret", AdminRole: "admin"},
		Checkout: config.CheckoutConfig{ClientURL: "https://jobs.example.com"},
	}
	payments := &stubPayments{}
	srv := NewServer(cfg, zap.NewNop(), Services{Payments: payments, Plans: stubPlans{}}, metrics.New())
	return srv, payments
}

func bearer(t *testing.T, sub, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return "Bearer " + signed
}

func serve(srv *Server, method, path, body, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func TestServer_PublicRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"payment","version":"test"}`, rec.Body.String())

	rec = serve(srv, http.MethodGet, "/api/v1/plans", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(srv, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `payment_http_requests_total{method="GET",path="/api/v1/plans",status_code="200"} 1`)
}

func TestServer_LegacyRoutesAllowAnonymous(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/stripe/create-checkout-session", "/payments/stripe/create-checkout-session"} {
		rec := serve(srv, http.MethodPost, path, `{"items":[{"price":"price_basic","quantity":1}]}`, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), `"url":"https://checkout.stripe.com/c/pay/cs_1"`)
	}

	rec := serve(srv, http.MethodPost, "/paypal/create-paypal-order", `{"amount":"9.99","currency":"USD"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// a token that is present must still be valid
	rec = serve(srv, http.MethodPost, "/paypal/create-paypal-order", `{"amount":"9.99","currency":"USD"}`, "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_ProtectedRoutes(t *testing.T) {
	srv, payments := newTestServer(t)
	id := uuid.New().String()

	rec := serve(srv, http.MethodGet, "/api/v1/payments/"+id, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(srv, http.MethodGet, "/api/v1/payments/"+id, "", bearer(t, "cust-1", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"customer_id":"cust-1"`)

	rec = serve(srv, http.MethodPost, "/api/v1/payments/"+id+"/refund", "", bearer(t, "cust-1", ""))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, payments.refunded)

	rec = serve(srv, http.MethodPost, "/api/v1/payments/"+id+"/refund", "", bearer(t, "ops", "admin"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, payments.refunded)
}

func TestServer_UnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/nope", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}
