package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/entity"
	"github.com/wekeepgrowing/jobportal-payment/internal/middleware/auth"
	pkgerrors "github.com/wekeepgrowing/jobportal-payment/pkg/errors"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	payments  PaymentService
	adminRole string
	logger    *zap.Logger
}

func NewPaymentHandler(payments PaymentService, adminRole string, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments:  payments,
		adminRole: adminRole,
		logger:    logger,
	}
}

func (h *PaymentHandler) GetPayment(c echo.Context) error {
	id, err := paymentID(c)
	if err != nil {
		return pkgerrors.JSON(c, err)
	}

	payment, err := h.payments.GetPayment(c.Request().Context(), id, h.scope(c))
	if err != nil {
		return pkgerrors.JSON(c, err)
	}
	return c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) ListPayments(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return pkgerrors.JSON(c, pkgerrors.NewAppError(pkgerrors.ErrUnauthenticated, "authentication required", err))
	}

	var params entity.PaginationParams
	if err := c.Bind(&params); err != nil {
		return pkgerrors.JSON(c, pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, "invalid pagination parameters", err))
	}

	page, err := h.payments.ListPayments(c.Request().Context(), user.CustomerID, params)
	if err != nil {
		h.logger.Error("Failed to list payments",
			zap.String("customer_id", user.CustomerID),
			zap.Error(err))
		return pkgerrors.JSON(c, err)
	}

	h.logger.Debug("Listed payments",
		zap.String("customer_id", user.CustomerID),
		zap.Int("count", len(page.Data)),
		zap.Int64("total", page.Pagination.Total))

	return c.JSON(http.StatusOK, page)
}

// Refund is mounted behind auth.RequireRole
func (h *PaymentHandler) Refund(c echo.Context) error {
	id, err := paymentID(c)
	if err != nil {
		return pkgerrors.JSON(c, err)
	}

	payment, err := h.payments.Refund(c.Request().Context(), id)
	if err != nil {
		h.logger.Warn("Refund failed",
			zap.String("payment_id", id.String()),
			zap.String("admin", auth.CustomerID(c)),
			zap.Error(err))
		return pkgerrors.JSON(c, err)
	}

	h.logger.Info("Refund issued",
		zap.String("payment_id", id.String()),
		zap.String("admin", auth.CustomerID(c)))

	return c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) Refresh(c echo.Context) error {
	id, err := paymentID(c)
	if err != nil {
		return pkgerrors.JSON(c, err)
	}

	payment, err := h.payments.Refresh(c.Request().Context(), id, h.scope(c))
	if err != nil {
		return pkgerrors.JSON(c, err)
	}
	return c.JSON(http.StatusOK, payment)
}

// scope limits reads to the caller's own payments unless they are an admin
func (h *PaymentHandler) scope(c echo.Context) string {
	if auth.IsAdmin(c, h.adminRole) {
		return ""
	}
	return auth.CustomerID(c)
}

func paymentID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, "payment id must be a UUID", err)
	}
	return id, nil
}
