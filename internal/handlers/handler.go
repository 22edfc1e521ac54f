package handlers

import (
	"net/http"
	"time"

	"smart_environment/internal/logger"
	"smart_environment/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "smart_environment/docs"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services    *service.Service
	log         *logger.Logger
	metrics     http.Handler
	metricsPath string

	installTimeout time.Duration
}

// Option customizes a Handler.
type Option func(*Handler)

// WithMetrics exposes h (usually promhttp) at path.
func WithMetrics(path string, h http.Handler) Option {
	return func(hd *Handler) {
		hd.metricsPath = path
		hd.metrics = h
	}
}

// WithInstallTimeout bounds POST /api/v1/cache/install. Non-positive values
// keep the default.
func WithInstallTimeout(d time.Duration) Option {
	return func(hd *Handler) {
		if d > 0 {
			hd.installTimeout = d
		}
	}
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{services: services, log: log, installTimeout: defaultInstallTimeout}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	if h.metrics != nil {
		router.GET(h.metricsPath, gin.WrapH(h.metrics))
	}

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Dashboard stream (HTTP upgrade) on the same port
	router.GET("/ws", h.wsConnect)

	// Everything else is a dashboard asset, served cache first.
	router.NoRoute(h.serveAsset)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerDashboardRoutes(api)

		protected := api.Group("", h.operatorIdentity)
		protected.GET("/operator", h.whoAmI)
		h.registerPollingRoutes(protected)
		h.registerLogRoutes(protected)
		h.registerCacheRoutes(protected)
	}
}

func (h *Handler) registerDashboardRoutes(api *gin.RouterGroup) {
	api.GET("/dashboard", h.getDashboard)
	api.GET("/sample", h.getSample)
	api.GET("/insight", h.getInsight)
	api.GET("/chart", h.getChart)
	api.GET("/chart.png", h.getChartPNG)
	api.GET("/status", h.getStatus)
	api.POST("/refresh", h.refresh)
}

func (h *Handler) registerPollingRoutes(api *gin.RouterGroup) {
	polling := api.Group("/polling")
	{
		// Body example: {"interval":"5s"}
		polling.POST("/start", h.startPolling)
		polling.POST("/stop", h.stopPolling)
		// Body example: {"mode":"simulated"}
		polling.POST("/mode", h.setMode)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}

func (h *Handler) registerCacheRoutes(api *gin.RouterGroup) {
	cache := api.Group("/cache")
	{
		cache.GET("/", h.getCache)
		cache.POST("/install", h.installCache)
	}
}
