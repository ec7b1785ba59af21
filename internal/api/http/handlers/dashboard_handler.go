package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/service"
)

// DashboardHandler serves the aggregate snapshot.
type DashboardHandler struct {
	reports *service.ReportService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(reports *service.ReportService) *DashboardHandler {
	return &DashboardHandler{reports: reports}
}

// Dashboard GET /dashboard.
func (h *DashboardHandler) Dashboard(c *fiber.Ctx) error {
	report, err := h.reports.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dashboardResponse(report)})
}
