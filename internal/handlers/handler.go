package handlers

import (
	"net/http"

	"kiln_controller/internal/logger"
	"kiln_controller/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	hub      *Hub
	metrics  http.Handler
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler. hub and metrics may be nil.
func NewHandler(services *service.Service, hub *Hub, metrics http.Handler, log *logger.Logger) *Handler {
	return &Handler{services: services, hub: hub, metrics: metrics, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	h.registerAPIRoutes(router)

	// live status and controller events on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerKilnRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerKilnRoutes(api *gin.RouterGroup) {
	k := api.Group("/kiln")
	{
		// Body: {"segments":[{"target_c":100,"rate_c_per_hour":100,"hold_min":15}, ...x4]}
		k.POST("/firing", h.startFiring)
		k.DELETE("/firing", h.cancelFiring)
		k.GET("/status", h.getStatus)
		k.GET("/profile", h.getProfile)
		k.POST("/estimate", h.estimate)
		k.GET("/history", h.getHistory)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
	}
}
