package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/csvshare-backend/internal/http/handlers"
	httpMW "github.com/yungbote/csvshare-backend/internal/http/middleware"
	"github.com/yungbote/csvshare-backend/internal/observability"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	AllowedOrigins []string
	ServiceName    string
	TracingEnabled bool

	AuthMiddleware *httpMW.AuthMiddleware
	LoginLimiter   *httpMW.IPRateLimiter

	HealthHandler   *httpH.HealthHandler
	AuthHandler     *httpH.AuthHandler
	CSVHandler      *httpH.CSVHandler
	AdminHandler    *httpH.AdminHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.Root)
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	// Notification channel (unauthenticated)
	if cfg.RealtimeHandler != nil {
		r.GET("/ws", cfg.RealtimeHandler.Stream)
	}

	api := r.Group("/api")

	// Auth (public)
	if cfg.AuthHandler != nil {
		auth := api.Group("/auth")
		auth.POST("/signup", cfg.AuthHandler.Signup)
		if cfg.LoginLimiter != nil {
			auth.POST("/login", cfg.LoginLimiter.Middleware(), cfg.AuthHandler.Login)
		} else {
			auth.POST("/login", cfg.AuthHandler.Login)
		}
	}

	if cfg.AuthMiddleware == nil {
		return r
	}

	// CSV (any authenticated user)
	if cfg.CSVHandler != nil {
		csv := api.Group("/csv", cfg.AuthMiddleware.RequireAuth())
		csv.GET("", cfg.CSVHandler.List)
		csv.GET("/:id", cfg.CSVHandler.Content)
		csv.GET("/:id/download", cfg.CSVHandler.Download)
		csv.GET("/:id/chart.png", cfg.CSVHandler.Chart)
	}

	// Admin
	if cfg.AdminHandler != nil {
		admin := api.Group("/admin", cfg.AuthMiddleware.RequireAuth(), cfg.AuthMiddleware.RequireAdmin())
		admin.POST("/csv/upload", cfg.AdminHandler.UploadCSV)
		admin.GET("/csv", cfg.AdminHandler.ListCSV)
		admin.DELETE("/csv/:id", cfg.AdminHandler.DeleteCSV)
		admin.GET("/users", cfg.AdminHandler.ListUsers)
		admin.DELETE("/users/:id", cfg.AdminHandler.DeleteUser)
	}

	return r
}
