package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/middleware/auth"
	"github.com/wekeepgrowing/jobportal-payment/internal/usecase"
	pkgerrors "github.com/wekeepgrowing/jobportal-payment/pkg/errors"
	"go.uber.org/zap"
)

type SubscriptionHandler struct {
	subscriptions SubscriptionService
	logger        *zap.Logger
}

func NewSubscriptionHandler(subscriptions SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		logger:        logger,
	}
}

type CreateSubscriptionRequest struct {
	PlanID   string `json:"plan_id" validate:"required"`
	Provider string `json:"provider" validate:"required"`
}

type CreateSubscriptionResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	PaymentID string `json:"payment_id,omitempty"`
}

func (h *SubscriptionHandler) CreateSubscription(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return pkgerrors.JSON(c, pkgerrors.NewAppError(pkgerrors.ErrUnauthenticated, "authentication required", err))
	}

	var req CreateSubscriptionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return pkgerrors.JSON(c, err)
	}
	providerType, err := model.ParseProviderType(req.Provider)
	if err != nil {
		return pkgerrors.JSON(c, pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, "provider must be one of: stripe paypal", err))
	}

	h.logger.Info("Creating subscription",
		zap.String("customer_id", user.CustomerID),
		zap.String("plan_id", req.PlanID),
		zap.String("provider", string(providerType)))

	result, err := h.subscriptions.Create(c.Request().Context(), usecase.SubscriptionInput{
		CustomerID:     user.CustomerID,
		PlanID:         req.PlanID,
		Provider:       providerType,
		IdempotencyKey: c.Request().Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		h.logger.Warn("Subscription checkout failed",
			zap.String("customer_id", user.CustomerID),
			zap.String("plan_id", req.PlanID),
			zap.Error(err))
		return pkgerrors.JSON(c, err)
	}

	resp := CreateSubscriptionResponse{ID: result.ProviderRef, URL: result.URL}
	if result.Payment != nil {
		resp.PaymentID = result.Payment.ID.String()
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *SubscriptionHandler) ListSubscriptions(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return pkgerrors.JSON(c, pkgerrors.NewAppError(pkgerrors.ErrUnauthenticated, "authentication required", err))
	}

	subs, err := h.subscriptions.List(c.Request().Context(), user.CustomerID)
	if err != nil {
		return pkgerrors.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"subscriptions": subs})
}

// GetCurrentSubscription answers 204 when the customer has no live subscription
func (h *SubscriptionHandler) GetCurrentSubscription(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return pkgerrors.JSON(c, pkgerrors.NewAppError(pkgerrors.ErrUnauthenticated, "authentication required", err))
	}

	sub, err := h.subscriptions.GetCurrent(c.Request().Context(), user.CustomerID)
	if err != nil {
		var appErr *pkgerrors.AppError
		if errors.As(err, &appErr) && appErr.Code() == pkgerrors.ErrNotFound {
			return c.NoContent(http.StatusNoContent)
		}
		h.logger.Error("Failed to get current subscription",
			zap.String("customer_id", user.CustomerID),
			zap.Error(err))
		return pkgerrors.JSON(c, err)
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) CancelSubscription(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return pkgerrors.JSON(c, pkgerrors.NewAppError(pkgerrors.ErrUnauthenticated, "authentication required", err))
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return pkgerrors.JSON(c, pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, "subscription id must be a UUID", err))
	}

	sub, err := h.subscriptions.Cancel(c.Request().Context(), id, user.CustomerID)
	if err != nil {
		h.logger.Warn("Subscription cancel failed",
			zap.String("subscription_id", id.String()),
			zap.String("customer_id", user.CustomerID),
			zap.Error(err))
		return pkgerrors.JSON(c, err)
	}

	return c.JSON(http.StatusOK, sub)
}
