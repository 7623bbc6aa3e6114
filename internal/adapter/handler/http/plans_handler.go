package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	pkgerrors "github.com/wekeepgrowing/jobportal-payment/pkg/errors"
	"go.uber.org/zap"
)

type PlansHandler struct {
	plans  PlanCatalogue
	logger *zap.Logger
}

func NewPlansHandler(plans PlanCatalogue, logger *zap.Logger) *PlansHandler {
	return &PlansHandler{plans: plans, logger: logger}
}

func (h *PlansHandler) GetPlans(c echo.Context) error {
	plans, err := h.plans.ListActive(c.Request().Context())
	if err != nil {
		h.logger.Error("Error fetching plans", zap.Error(err))
		return pkgerrors.JSON(c, err)
	}

	h.logger.Debug("Plans fetched", zap.Int("active_plans", len(plans)))

	return c.JSON(http.StatusOK, echo.Map{
		"plans": plans,
	})
}
