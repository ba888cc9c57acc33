package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tutorbase/tutor-api/internal/service"
	"github.com/tutorbase/tutor-api/pkg/response"
)

// DashboardHandler exposes the month overview endpoint.
type DashboardHandler struct {
	dashboard *service.DashboardService
	metrics   *service.MetricsService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService, metrics *service.MetricsService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, metrics: metrics}
}

// Overview godoc
// @Summary Month overview with tuition, attendance and payroll totals
// @Tags Dashboard
// @Produce json
// @Param month query int false "Month (1-12, defaults to current)"
// @Param year query int false "Year (defaults to current)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/overview [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	now := time.Now()
	month := int(now.Month())
	year := now.Year()
	if v, err := strconv.Atoi(c.Query("month")); err == nil && v != 0 {
		month = v
	}
	if v, err := strconv.Atoi(c.Query("year")); err == nil && v != 0 {
		year = v
	}
	overview, err := h.dashboard.Overview(c.Request.Context(), month, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// System godoc
// @Summary Runtime metrics snapshot
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/system [get]
func (h *DashboardHandler) System(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
