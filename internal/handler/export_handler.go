// internal/handler/export_handler.go
package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"macscan/internal/service"
	"macscan/internal/utils"
)

// ExportHandler serves consistent registry snapshots to exporters
type ExportHandler struct {
	exportService *service.ExportService
	logger        *utils.ServiceLogger
}

// NewExportHandler creates a new export handler
func NewExportHandler(exportService *service.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
		logger:        utils.NewServiceLogger(logger, "export-handler"),
	}
}

// ExportJSON returns export rows as JSON
// @Summary Export records as JSON
// @Description Get an ordered, point-in-time consistent sequence of export rows
// @Tags Export
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]model.ExportRow} "Export rows retrieved successfully"
// @Router /export [get]
func (h *ExportHandler) ExportJSON(c *gin.Context) {
	rows := h.exportService.Rows(nil)
	utils.SuccessResponse(c, http.StatusOK, "Export rows retrieved successfully", rows)
}

// ExportCSV streams export rows as a CSV attachment
// @Summary Export records as CSV
// @Description Download an ordered, point-in-time consistent CSV of all records
// @Tags Export
// @Produce text/csv
// @Success 200 {string} string "CSV file"
// @Router /export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	rows := h.exportService.Rows(nil)

	filename := fmt.Sprintf("macscan-%s.csv", time.Now().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.exportService.WriteCSV(c.Writer, rows); err != nil {
		// Headers may already be out; log and abort the stream.
		h.logger.Error("CSV export failed", zap.Error(err))
		c.Abort()
	}
}
