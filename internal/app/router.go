package app

import (
	httpserver "github.com/yungbote/csvshare-backend/internal/http"
	"github.com/yungbote/csvshare-backend/internal/observability"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *httpserver.Server {
	log.Info("Wiring router...")
	return httpserver.NewServer(httpserver.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		AllowedOrigins:  cfg.AllowedOrigins,
		ServiceName:     cfg.Otel.ServiceName,
		TracingEnabled:  cfg.Otel.Enabled,
		AuthMiddleware:  middleware.Auth,
		LoginLimiter:    middleware.LoginLimiter,
		HealthHandler:   handlers.Health,
		AuthHandler:     handlers.Auth,
		CSVHandler:      handlers.CSV,
		AdminHandler:    handlers.Admin,
		RealtimeHandler: handlers.Realtime,
	})
}
