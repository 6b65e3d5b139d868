package app

import (
	httpH "github.com/yungbote/csvshare-backend/internal/http/handlers"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
	"github.com/yungbote/csvshare-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	CSV      *httpH.CSVHandler
	Admin    *httpH.AdminHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services, endpoint *realtime.Endpoint) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(cfg.Version),
		Auth:     httpH.NewAuthHandler(services.Auth),
		CSV:      httpH.NewCSVHandler(log, services.CSV, services.Chart),
		Admin:    httpH.NewAdminHandler(log, services.CSV, services.User),
		Realtime: httpH.NewRealtimeHandler(endpoint),
	}
}
