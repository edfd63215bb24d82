package handlers

import (
	"net/http"

	"precinctwatch/internal/compliance"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/services"

	"github.com/labstack/echo/v4"
)

type DashboardHandlers struct {
	dashboardService services.DashboardService
	execService      services.ExecService
	log              logger.Logger
}

func NewDashboardHandlers(dashboardService services.DashboardService, execService services.ExecService, log logger.Logger) *DashboardHandlers {
	return &DashboardHandlers{
		dashboardService: dashboardService,
		execService:      execService,
		log:              log,
	}
}

// Dashboard serves the operational overview: KPIs, worst precincts, riskiest stores
// and recent audits.
func (h *DashboardHandlers) Dashboard(c echo.Context) error {
	payload, err := h.dashboardService.GetDashboard(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, "Dashboard", err)
	}
	return c.JSON(http.StatusOK, payload)
}

// Exec serves the executive view. ?timeframe accepts 30, 90 or 180 days.
func (h *DashboardHandlers) Exec(c echo.Context) error {
	days := compliance.ParseTimeframe(c.QueryParam("timeframe"))
	payload, err := h.execService.GetExecDashboard(c.Request().Context(), days)
	if err != nil {
		return writeError(c, h.log, "Executive dashboard", err)
	}
	return c.JSON(http.StatusOK, payload)
}
