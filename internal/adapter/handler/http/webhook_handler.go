package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	pkgerrors "github.com/wekeepgrowing/jobportal-payment/pkg/errors"
	"go.uber.org/zap"
)

// maxWebhookBody is well above the largest Stripe or PayPal event
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	reconciler WebhookReconciler
	logger     *zap.Logger
}

func NewWebhookHandler(reconciler WebhookReconciler, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

func (h *WebhookHandler) HandleStripe(c echo.Context) error {
	return h.handle(c, model.ProviderStripe)
}

func (h *WebhookHandler) HandlePayPal(c echo.Context) error {
	return h.handle(c, model.ProviderPayPal)
}

// handle answers 2xx once the event is stored, even if applying it failed;
// the retry worker owns it from there
func (h *WebhookHandler) handle(c echo.Context, providerType model.ProviderType) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		h.logger.Error("Error reading webhook body", zap.Error(err))
		return pkgerrors.JSON(c, pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, "error reading request body", err))
	}
	if len(body) > maxWebhookBody {
		return pkgerrors.JSON(c, pkgerrors.InvalidArgument("webhook payload too large"))
	}

	outcome, err := h.reconciler.HandleWebhook(c.Request().Context(), providerType, body, c.Request().Header)
	if err != nil {
		return pkgerrors.JSON(c, err)
	}

	h.logger.Info("Webhook event received",
		zap.String("provider", string(providerType)),
		zap.String("event_id", outcome.EventID),
		zap.String("type", outcome.EventType),
		zap.String("outcome", outcome.Outcome))

	return c.JSON(http.StatusOK, echo.Map{
		"received": true,
		"outcome":  outcome.Outcome,
	})
}
