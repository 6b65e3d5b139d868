package app

import (
	httpMW "github.com/yungbote/csvshare-backend/internal/http/middleware"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

type Middleware struct {
	Auth         *httpMW.AuthMiddleware
	LoginLimiter *httpMW.IPRateLimiter
}

func wireMiddleware(log *logger.Logger, cfg Config, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:         httpMW.NewAuthMiddleware(log, services.Auth),
		LoginLimiter: httpMW.NewIPRateLimiter(cfg.Auth.LoginRatePerMinute),
	}
}
