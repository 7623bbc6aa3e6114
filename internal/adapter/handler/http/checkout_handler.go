package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/middleware/auth"
	"github.com/wekeepgrowing/jobportal-payment/internal/usecase"
	pkgerrors "github.com/wekeepgrowing/jobportal-payment/pkg/errors"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader lets clients retry a create without a second vendor call
const IdempotencyKeyHeader = "Idempotency-Key"

// CheckoutHandler serves the routes the job portal frontend already calls
type CheckoutHandler struct {
	payments PaymentService
	logger   *zap.Logger
}

func NewCheckoutHandler(payments PaymentService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		payments: payments,
		logger:   logger,
	}
}

type LineItemRequest struct {
	Price    string `json:"price" validate:"required"`
	Quantity int64  `json:"quantity" validate:"required,min=1"`
}

type CreateCheckoutRequest struct {
	Items []LineItemRequest `json:"items" validate:"required,min=1,dive"`
}

type CreateCheckoutResponse struct {
	URL       string `json:"url"`
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
}

// CreateOrderRequest accepts the amount as a JSON number or string
type CreateOrderRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"required"`
}

type CreateOrderResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	PaymentID string `json:"payment_id"`
}

type CaptureOrderRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

// CaptureEnvelope is the {success, data} shape of the capture route
type CaptureEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func (h *CheckoutHandler) CreateStripeCheckout(c echo.Context) error {
	var req CreateCheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return pkgerrors.JSON(c, err)
	}

	items := make([]model.LineItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = model.LineItem{Price: item.Price, Quantity: item.Quantity}
	}

	result, err := h.payments.CreateStripeCheckout(c.Request().Context(), usecase.CheckoutInput{
		CustomerID:     auth.CustomerID(c),
		IdempotencyKey: c.Request().Header.Get(IdempotencyKeyHeader),
		Items:          items,
	})
	if err != nil {
		h.logger.Warn("Stripe checkout failed",
			zap.Int("items", len(items)),
			zap.String("code", pkgerrors.CodeOf(err)),
			zap.Error(err))
		return pkgerrors.JSON(c, err)
	}

	return c.JSON(http.StatusOK, CreateCheckoutResponse{
		URL:       result.URL,
		ID:        result.ProviderRef,
		PaymentID: result.Payment.ID.String(),
	})
}

func (h *CheckoutHandler) CreatePayPalOrder(c echo.Context) error {
	var req CreateOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return pkgerrors.JSON(c, err)
	}

	result, err := h.payments.CreatePayPalOrder(c.Request().Context(), usecase.OrderInput{
		CustomerID:     auth.CustomerID(c),
		IdempotencyKey: c.Request().Header.Get(IdempotencyKeyHeader),
		Amount:         req.Amount,
		Currency:       req.Currency,
	})
	if err != nil {
		h.logger.Warn("PayPal order creation failed",
			zap.String("amount", req.Amount.String()),
			zap.String("currency", req.Currency),
			zap.String("code", pkgerrors.CodeOf(err)),
			zap.Error(err))
		return pkgerrors.JSON(c, err)
	}

	return c.JSON(http.StatusOK, CreateOrderResponse{
		ID:        result.ProviderRef,
		URL:       result.URL,
		PaymentID: result.Payment.ID.String(),
	})
}

func (h *CheckoutHandler) CapturePayPalOrder(c echo.Context) error {
	var req CaptureOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return captureFailure(c, err)
	}

	out, err := h.payments.Capture(c.Request().Context(), model.ProviderPayPal, req.OrderID)
	if err != nil {
		h.logger.Warn("PayPal capture failed",
			zap.String("order_id", req.OrderID),
			zap.String("code", pkgerrors.CodeOf(err)),
			zap.Error(err))
		return captureFailure(c, err)
	}

	h.logger.Info("PayPal order captured",
		zap.String("order_id", req.OrderID),
		zap.String("payment_id", out.Payment.ID.String()),
		zap.String("status", string(out.Payment.Status)))

	return c.JSON(http.StatusOK, CaptureEnvelope{Success: true, Data: out.Capture})
}

func captureFailure(c echo.Context, err error) error {
	status, body := pkgerrors.ToErrorBody(err)
	return c.JSON(status, CaptureEnvelope{Success: false, Error: body.Error, Code: body.Code})
}
