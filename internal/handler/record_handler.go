// internal/handler/record_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"macscan/internal/service"
	"macscan/internal/utils"
)

// RecordHandler handles record query and lifecycle HTTP requests
type RecordHandler struct {
	monitorService *service.MonitorService
	logger         *utils.ServiceLogger
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(monitorService *service.MonitorService, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{
		monitorService: monitorService,
		logger:         utils.NewServiceLogger(logger, "record-handler"),
	}
}

// ListRecords lists scan records with filtering
// @Summary List scan records
// @Description Get scan records with optional status and free-text filtering
// @Tags Records
// @Accept json
// @Produce json
// @Param status query string false "Comma-separated status filter" Enums(PENDING, READING, SUCCESS, FAILED, REMOVED)
// @Param q query string false "Free-text match against port ID, MAC and status"
// @Success 200 {object} utils.APIResponse{data=[]model.Record} "Records retrieved successfully"
// @Failure 400 {object} utils.APIResponse "Invalid filter"
// @Router /records [get]
func (h *RecordHandler) ListRecords(c *gin.Context) {
	records, err := h.monitorService.ListRecords(c.Query("status"), c.Query("q"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Records retrieved successfully", records)
}

// GetRecord returns a single record by port ID
// @Summary Get one scan record
// @Description Get the scan record for a specific port
// @Tags Records
// @Accept json
// @Produce json
// @Param port_id path string true "Port identity"
// @Success 200 {object} utils.APIResponse{data=model.Record} "Record retrieved successfully"
// @Failure 404 {object} utils.APIResponse "Record not found"
// @Router /records/{port_id} [get]
func (h *RecordHandler) GetRecord(c *gin.Context) {
	portID := c.Param("port_id")

	rec := h.monitorService.GetRecord(portID)
	if rec == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Record not found", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Record retrieved successfully", rec)
}

// ResetRecord resets a record and forces re-identification
// @Summary Reset a scan record
// @Description Discard a record's outcome (including a confirmed MAC) and re-identify on the next tick
// @Tags Records
// @Accept json
// @Produce json
// @Param port_id path string true "Port identity"
// @Success 200 {object} utils.APIResponse{data=model.Record} "Record reset successfully"
// @Failure 404 {object} utils.APIResponse "Record not found"
// @Router /records/{port_id}/reset [post]
func (h *RecordHandler) ResetRecord(c *gin.Context) {
	portID := c.Param("port_id")

	rec, err := h.monitorService.ResetRecord(portID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Record not found", err)
		return
	}

	h.logger.Info("Record reset requested", zap.String("port_id", portID))
	utils.SuccessResponse(c, http.StatusOK, "Record reset successfully", rec)
}

// ClearRecords removes all settled records
// @Summary Clear all records
// @Description Remove all settled records from the registry; in-flight identifications are kept
// @Tags Records
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse "Records cleared"
// @Router /records [delete]
func (h *RecordHandler) ClearRecords(c *gin.Context) {
	removed := h.monitorService.ClearAll(c.Request.Context())

	h.logger.Info("Records cleared", zap.Int("removed", removed))
	utils.SuccessResponse(c, http.StatusOK, "Records cleared", gin.H{"removed": removed})
}

// ClearFailedRecords removes settled records without a MAC
// @Summary Clear failed records
// @Description Remove settled records that never produced a MAC
// @Tags Records
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse "Failed records cleared"
// @Router /records/failed [delete]
func (h *RecordHandler) ClearFailedRecords(c *gin.Context) {
	removed := h.monitorService.ClearFailed(c.Request.Context())

	h.logger.Info("Failed records cleared", zap.Int("removed", removed))
	utils.SuccessResponse(c, http.StatusOK, "Failed records cleared", gin.H{"removed": removed})
}
