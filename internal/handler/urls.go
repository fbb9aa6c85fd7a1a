package handlers

import (
	"EcoWatch/internal/models"
	"EcoWatch/internal/services"
	"EcoWatch/pkg/metrics"
	"EcoWatch/pkg/middleware"
	"EcoWatch/pkg/response"
	"EcoWatch/pkg/storage"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Options struct {
	APIPrefix    string
	APISecretKey string
	SignMaxSkew  time.Duration
	Store        storage.Store
	Limiter      *middleware.RateLimiter
	Geo          *middleware.GeoLocator
	Metrics      *metrics.Metrics
	IdemStore    middleware.IdemStore
}

type Handlers struct {
	db   *gorm.DB
	svc  *services.Services
	opts Options
}

func NewHandlers(db *gorm.DB, svc *services.Services, opts Options) *Handlers {
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api"
	}
	if opts.SignMaxSkew <= 0 {
		opts.SignMaxSkew = 5 * time.Minute
	}
	return &Handlers{db: db, svc: svc, opts: opts}
}

// Register 会话中间件需要在 engine 上先行注册
func (h *Handlers) Register(engine *gin.Engine) {
	r := engine.Group(h.opts.APIPrefix)

	// Register Global Singleton DB
	r.Use(middleware.InjectDB(h.db))
	// Register System Module Routes
	h.registerSystemRoutes(r)

	// Register Business Module Routes
	h.registerAuthRoutes(r)
	h.registerEnvironmentRoutes(r)
	h.registerAlertRoutes(r)
	h.registerProfileRoutes(r)
}

func (h *Handlers) signed() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.SignVerifyMiddleware(h.opts.APISecretKey, h.opts.SignMaxSkew),
		middleware.IdempotencyMiddleware(middleware.IdempotencyConfig{
			HeaderName: "Signature",
			TTL:        2 * h.opts.SignMaxSkew,
			Store:      h.opts.IdemStore,
		}),
	}
}

// User Module
func (h *Handlers) registerAuthRoutes(r *gin.RouterGroup) {
	auth := r.Group("auth")
	{
		auth.POST("/register", h.handleUserSignup)

		auth.POST("/login", h.handleUserSignin)

		auth.GET("/logout", models.AuthRequired, h.handleUserLogout)

		auth.GET("/info", models.AuthRequired, h.handleUserInfo)
	}
}

func (h *Handlers) registerEnvironmentRoutes(r *gin.RouterGroup) {
	r.GET("/home", h.handleHome)

	r.PUT("/water-levels/:id", append(h.signed(), h.handleUpdateWaterLevel)...)

	env := r.Group("")
	env.Use(models.AuthRequired)
	{
		env.GET("/dashboard", h.handleDashboard)

		env.GET("/dashboard-data", h.handleDashboardData)

		env.GET("/weather", h.handleWeatherDetails)

		env.GET("/air-quality", h.handleAirQualityDetails)

		env.GET("/water-levels", h.handleWaterLevels)

		env.GET("/eco-tips", h.handleEcoTips)

		env.GET("/eco-tips/search", h.handleSearchTips)

		env.GET("/community/reports", h.handleCommunityReports)
	}
}

func (h *Handlers) registerAlertRoutes(r *gin.RouterGroup) {
	alerts := r.Group("alerts")
	alerts.Use(models.RequireUser(response.AbortWithResult))
	{
		alerts.GET("", h.handleListAlerts)

		alerts.Any("/:id/read", middleware.ActivityLogMiddleware(h.db, h.opts.Geo), h.handleMarkAlertRead)
	}
}

func (h *Handlers) registerProfileRoutes(r *gin.RouterGroup) {
	profile := r.Group("profile")
	profile.Use(models.AuthRequired)
	{
		profile.GET("", h.handleGetProfile)

		profile.PUT("", h.handleUpdateProfile)

		profile.POST("/avatar", h.handleUploadAvatar)
	}
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("system")
	{
		system.POST("/rate-limiter/config", append(h.signed(), h.UpdateRateLimiterConfig)...)

		system.GET("/health", h.HealthCheck)

		system.GET("/docs", h.handleDocs)
	}
}
