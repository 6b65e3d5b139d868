package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/csvshare-backend/internal/platform/cache"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
	"github.com/yungbote/csvshare-backend/internal/platform/storage"
	"github.com/yungbote/csvshare-backend/internal/realtime"
	"github.com/yungbote/csvshare-backend/internal/services"
)

type Services struct {
	Auth  services.AuthService
	User  services.UserService
	CSV   services.CSVService
	Chart services.ChartService
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	repos Repos,
	store storage.FileStore,
	contentCache cache.CSVCache,
	broadcaster *realtime.Broadcaster,
) (Services, error) {
	log.Info("Wiring services...")
	authService := services.NewAuthService(db, log, repos.User, cfg.Auth.JWTSecretKey, cfg.Auth.AccessTokenTTL)
	userService := services.NewUserService(db, log, repos.User)
	csvService := services.NewCSVService(db, log, repos.CSVFile, store, contentCache, broadcaster, cfg.MaxUploadBytes)
	chartService, err := services.NewChartService(log, csvService, cfg.ChartFont)
	if err != nil {
		return Services{}, fmt.Errorf("init chart service: %w", err)
	}
	return Services{
		Auth:  authService,
		User:  userService,
		CSV:   csvService,
		Chart: chartService,
	}, nil
}
