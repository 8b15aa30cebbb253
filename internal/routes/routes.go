// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"pyrometer-service/internal/config"
	"pyrometer-service/internal/database"
	"pyrometer-service/internal/handler"
	"pyrometer-service/internal/middleware"
	"pyrometer-service/internal/service"
	"pyrometer-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config           *config.Config
	logger           *zap.Logger
	db               *database.DB
	pyrometerService *service.PyrometerService
	operationService *service.OperationService
	discoveryService *service.DiscoveryService
	eventBus         *service.EventBus
	wsHandler        *handler.WebSocketHandler
}

// NewRouter creates a new router instance. db may be nil.
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	db *database.DB,
	pyrometerService *service.PyrometerService,
	operationService *service.OperationService,
	discoveryService *service.DiscoveryService,
	eventBus *service.EventBus,
) *Router {
	return &Router{
		config:           config,
		logger:           logger,
		db:               db,
		pyrometerService: pyrometerService,
		operationService: operationService,
		discoveryService: discoveryService,
		eventBus:         eventBus,
		wsHandler:        handler.NewWebSocketHandler(pyrometerService, eventBus, config.Security.AllowedOrigins, logger),
	}
}

// WebSocketHandler returns the handler whose Run loop feeds WebSocket clients
func (r *Router) WebSocketHandler() *handler.WebSocketHandler {
	return r.wsHandler
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	// Set Gin mode
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if r.config.App.Environment == "test" {
		gin.SetMode(gin.TestMode)
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
	// Recovery middleware
	router.Use(middleware.RecoveryMiddleware(r.logger))

	// Request ID middleware
	router.Use(middleware.RequestIDMiddleware())

	// Logging middleware
	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	// CORS middleware
	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.db, r.pyrometerService, r.config, r.logger)
	deviceHandler := handler.NewDeviceHandler(r.pyrometerService, r.logger)
	operationHandler := handler.NewOperationHandler(r.operationService, r.logger)
	discoveryHandler := handler.NewDiscoveryHandler(r.discoveryService, r.logger)

	// Health check routes
	healthHandler.RegisterRoutes(router.Group(""))

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	deviceHandler.RegisterRoutes(apiV1)
	operationHandler.RegisterRoutes(apiV1)
	discoveryHandler.RegisterRoutes(apiV1)

	// WebSocket routes
	r.wsHandler.RegisterRoutes(router.Group("/ws"))

	// Documentation routes
	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	// Swagger redirect for convenience
	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
