package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/csvshare-backend/internal/data/db"
	"github.com/yungbote/csvshare-backend/internal/domain"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

var dbSeq atomic.Uint64

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("failed to init logger: %v", err)
	}
	return log
}

// DB opens a fresh, migrated in-memory sqlite database private to the test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	theDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := theDB.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(theDB); err != nil {
		tb.Fatalf("automigrate: %v", err)
	}
	return theDB
}

func SeedUser(tb testing.TB, theDB *gorm.DB, username string, role domain.Role) *domain.User {
	tb.Helper()
	u := &domain.User{Username: username, PasswordHash: "x", Role: role}
	if err := theDB.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCSVFile(tb testing.TB, theDB *gorm.DB, uploaderID uint, filename, key string, uploaded time.Time) *domain.CSVFile {
	tb.Helper()
	f := &domain.CSVFile{
		Filename:   filename,
		StorageKey: key,
		Size:       10,
		UploaderID: uploaderID,
		UploadDate: uploaded.UTC(),
	}
	if err := theDB.Create(f).Error; err != nil {
		tb.Fatalf("seed csv file: %v", err)
	}
	return f
}
