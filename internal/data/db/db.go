package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/csvshare-backend/internal/domain"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresName     string
	PostgresSSLMode  string

	SQLitePath string
	Verbose    bool
}

func (c Config) DSN() string {
	switch strings.ToLower(c.Driver) {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return "file::memory:?cache=shared"
		}
		return c.SQLitePath
	default:
		sslMode := c.PostgresSSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresName, sslMode)
	}
}

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func Open(cfg Config, log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DBService", "driver", cfg.Driver)

	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN())
	case DriverPostgres, "":
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	}
	if cfg.Verbose {
		gcfg.Logger = gormLogger.Default.LogMode(gormLogger.Info)
	}

	serviceLog.Info("Connecting to database...")
	theDB, err := gorm.Open(dialector, gcfg)
	if err != nil {
		serviceLog.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("connect to %s: %w", cfg.Driver, err)
	}
	if strings.EqualFold(cfg.Driver, DriverSQLite) {
		// A single connection keeps an in-memory database alive and serializes writers.
		if sqlDB, err := theDB.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	return &Service{db: theDB, log: serviceLog}, nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrate(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}

func (s *Service) DB() *gorm.DB {
	return s.db
}

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func AutoMigrate(theDB *gorm.DB) error {
	return theDB.AutoMigrate(
		&domain.User{},
		&domain.CSVFile{},
	)
}
