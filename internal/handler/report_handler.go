package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hosteldesk/hostel-api/internal/service"
	appErrors "github.com/hosteldesk/hostel-api/pkg/errors"
	"github.com/hosteldesk/hostel-api/pkg/response"
)

// ReportHandler exposes reporting endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Occupancy godoc
// @Summary Room occupancy report
// @Tags Reports
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Param block query string false "Filter by block"
// @Param type query string false "Filter by room type"
// @Success 200 "Report file"
// @Router /reports/occupancy [get]
func (h *ReportHandler) Occupancy(c *gin.Context) {
	filter := roomFilterFromQuery(c)
	format := c.DefaultQuery("format", "csv")

	var (
		payload []byte
		mime    string
		err     error
	)
	switch format {
	case "csv":
		payload, err = h.reports.OccupancyCSV(c.Request.Context(), filter)
		mime = "text/csv"
	case "pdf":
		payload, err = h.reports.OccupancyPDF(c.Request.Context(), filter)
		mime = "application/pdf"
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("occupancy-%s.%s", time.Now().UTC().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, mime, payload)
}
