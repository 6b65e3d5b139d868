package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/csvshare-backend/internal/data/db"
	"github.com/yungbote/csvshare-backend/internal/domain"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := defaultConfig()
	cfg.Port = "127.0.0.1:0"
	cfg.LogMode = "development"
	cfg.Auth.JWTSecretKey = "app-test-secret"
	cfg.Database.Driver = db.DriverSQLite
	cfg.Database.SQLitePath = filepath.Join(dir, "app.db")
	cfg.Storage.Mode = "local"
	cfg.Storage.UploadDir = filepath.Join(dir, "uploads")
	return cfg
}

func TestNewWithConfigWiresEverything(t *testing.T) {
	a, err := NewWithConfig(logger.Nop(), testConfig(t))
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	defer a.Close()

	if a.Server == nil || a.Registry == nil || a.Broadcaster == nil {
		t.Fatalf("app missing components: %+v", a)
	}
	if a.Services.Auth == nil || a.Services.CSV == nil || a.Services.Chart == nil || a.Services.User == nil {
		t.Fatalf("services not wired: %+v", a.Services)
	}
	if a.Metrics != nil {
		t.Fatalf("metrics disabled by default: want=nil")
	}

	u, err := a.Services.Auth.CreateUser(context.Background(), "admin", "admin123", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	got, err := a.Repos.User.GetByUsername(context.Background(), nil, "admin")
	if err != nil || got == nil || got.ID != u.ID {
		t.Fatalf("GetByUsername: want id=%d got=%v err=%v", u.ID, got, err)
	}
}

func TestNewWithConfigRejectsBadStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Mode = "ftp"
	if _, err := NewWithConfig(logger.Nop(), cfg); err == nil {
		t.Fatalf("expected storage mode error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a, err := NewWithConfig(logger.Nop(), testConfig(t))
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: want=nil got=%v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
