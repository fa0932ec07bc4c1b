// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"macscan/internal/config"
	"macscan/internal/database"
	"macscan/internal/handler"
	"macscan/internal/middleware"
	"macscan/internal/service"
	"macscan/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config         *config.Config
	logger         *zap.Logger
	db             *database.DB
	monitorService *service.MonitorService
	exportService  *service.ExportService
}

// NewRouter creates a new router instance. db may be nil when the audit
// store is disabled.
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	db *database.DB,
	monitorService *service.MonitorService,
	exportService *service.ExportService,
) *Router {
	return &Router{
		config:         config,
		logger:         logger,
		db:             db,
		monitorService: monitorService,
		exportService:  exportService,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.db, r.config, r.logger)
	recordHandler := handler.NewRecordHandler(r.monitorService, r.logger)
	scanHandler := handler.NewScanHandler(r.monitorService, r.logger)
	exportHandler := handler.NewExportHandler(r.exportService, r.logger)
	wsHandler := handler.NewWebSocketHandler(r.monitorService, r.logger)

	r.addHealthRoutes(router, healthHandler)

	apiV1 := router.Group("/api/v1")
	r.addRecordRoutes(apiV1, recordHandler)
	r.addScanRoutes(apiV1, scanHandler)
	r.addExportRoutes(apiV1, exportHandler)

	r.addWebSocketRoutes(router, wsHandler)
	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	router.GET("/health", handler.HealthCheck)
	router.GET("/health/db", handler.DatabaseHealthCheck)
	router.GET("/ready", handler.ReadinessCheck)
	router.GET("/live", handler.LivenessCheck)
}

// addRecordRoutes sets up record query and lifecycle routes
func (r *Router) addRecordRoutes(api *gin.RouterGroup, handler *handler.RecordHandler) {
	records := api.Group("/records")
	{
		records.GET("", handler.ListRecords)
		records.DELETE("", handler.ClearRecords)
		records.DELETE("/failed", handler.ClearFailedRecords)

		record := records.Group("/:port_id")
		{
			record.GET("", handler.GetRecord)
			record.POST("/reset", handler.ResetRecord)
		}
	}
}

// addScanRoutes sets up scan control routes
func (r *Router) addScanRoutes(api *gin.RouterGroup, handler *handler.ScanHandler) {
	scan := api.Group("/scan")
	{
		scan.POST("/start", handler.StartScan)
		scan.POST("/stop", handler.StopScan)
		scan.GET("/status", handler.ScanStatus)
	}
}

// addExportRoutes sets up export routes
func (r *Router) addExportRoutes(api *gin.RouterGroup, handler *handler.ExportHandler) {
	export := api.Group("/export")
	{
		export.GET("", handler.ExportJSON)
		export.GET("/csv", handler.ExportCSV)
	}
}

// addWebSocketRoutes sets up WebSocket routes
func (r *Router) addWebSocketRoutes(router *gin.Engine, handler *handler.WebSocketHandler) {
	ws := router.Group("/ws")
	{
		ws.GET("/events", handler.HandleEventConnection)
	}
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
