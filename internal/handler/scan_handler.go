// internal/handler/scan_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"macscan/internal/service"
	"macscan/internal/utils"
)

// ScanHandler controls the discovery loop over HTTP
type ScanHandler struct {
	monitorService *service.MonitorService
	logger         *utils.ServiceLogger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(monitorService *service.MonitorService, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{
		monitorService: monitorService,
		logger:         utils.NewServiceLogger(logger, "scan-handler"),
	}
}

// StartScan resumes the discovery loop
// @Summary Start scanning
// @Description Resume the periodic port discovery loop
// @Tags Scan
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.ScanStatus} "Scanning started"
// @Failure 409 {object} utils.APIResponse "Already scanning"
// @Router /scan/start [post]
func (h *ScanHandler) StartScan(c *gin.Context) {
	if !h.monitorService.StartScanning() {
		utils.ErrorResponse(c, http.StatusConflict, "Already scanning", nil)
		return
	}

	h.logger.Info("Scanning started via API")
	utils.SuccessResponse(c, http.StatusOK, "Scanning started", h.monitorService.Status())
}

// StopScan pauses the discovery loop
// @Summary Stop scanning
// @Description Pause the periodic port discovery loop; in-flight identifications finish
// @Tags Scan
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.ScanStatus} "Scanning stopped"
// @Failure 409 {object} utils.APIResponse "Not scanning"
// @Router /scan/stop [post]
func (h *ScanHandler) StopScan(c *gin.Context) {
	if !h.monitorService.StopScanning() {
		utils.ErrorResponse(c, http.StatusConflict, "Not scanning", nil)
		return
	}

	h.logger.Info("Scanning stopped via API")
	utils.SuccessResponse(c, http.StatusOK, "Scanning stopped", h.monitorService.Status())
}

// ScanStatus reports discovery loop state and counters
// @Summary Scan status
// @Description Get discovery loop state, record count and in-flight attempts
// @Tags Scan
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.ScanStatus} "Status retrieved successfully"
// @Router /scan/status [get]
func (h *ScanHandler) ScanStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Status retrieved successfully", h.monitorService.Status())
}
