// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"macscan/internal/config"
	"macscan/internal/database"
	"macscan/internal/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db        *database.DB
	config    *config.Config
	logger    *utils.ServiceLogger
	startTime time.Time
}

// HealthResponse is the health endpoint payload
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult is one named health check outcome
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// NewHealthHandler creates a new health handler. db may be nil when the
// audit store is disabled.
func NewHealthHandler(db *database.DB, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		config:    config,
		logger:    utils.NewServiceLogger(logger, "health-handler"),
		startTime: time.Now(),
	}
}

// HealthCheck performs general health check
// @Summary Health check
// @Description Get overall service health including audit store connectivity
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Failure 503 {object} HealthResponse "Service is unhealthy"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startTime).String(),
		Checks:    make(map[string]CheckResult),
	}

	if h.db != nil {
		if err := h.db.HealthCheck(); err != nil {
			health.Status = "unhealthy"
			health.Checks["database"] = CheckResult{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			stats := h.db.GetStats()
			health.Checks["database"] = CheckResult{
				Status: "healthy",
				Data: map[string]interface{}{
					"open_connections": stats.OpenConnections,
					"in_use":           stats.InUse,
					"idle":             stats.Idle,
				},
			}
		}
	} else {
		health.Checks["database"] = CheckResult{
			Status:  "healthy",
			Message: "Audit store disabled",
		}
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health)
}

// DatabaseHealthCheck checks audit store connectivity
// @Summary Database health check
// @Description Check audit store connectivity
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse "Database is healthy"
// @Failure 503 {object} utils.APIResponse "Database is unhealthy"
// @Router /health/db [get]
func (h *HealthHandler) DatabaseHealthCheck(c *gin.Context) {
	if h.db == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Audit store disabled", nil)
		return
	}

	if err := h.db.HealthCheck(); err != nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Database is unhealthy", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Database is healthy", nil)
}

// ReadinessCheck reports whether the service can take traffic
// @Summary Readiness check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Ready"
// @Router /ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// LivenessCheck reports whether the process is alive
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Alive"
// @Router /live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
