package storage

import (
	"context"

	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

// New builds the FileStore selected by cfg.Mode.
func New(ctx context.Context, log *logger.Logger, cfg Config) (FileStore, error) {
	cfg, err := ResolveMode(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == ModeLocal {
		return NewLocalStore(log, cfg.UploadDir)
	}
	return NewGCSStore(ctx, log, cfg)
}
