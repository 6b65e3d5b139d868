package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/csvshare-backend/internal/data/db"
	"github.com/yungbote/csvshare-backend/internal/observability"
	"github.com/yungbote/csvshare-backend/internal/platform/envutil"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
	"github.com/yungbote/csvshare-backend/internal/platform/storage"
)

const defaultJWTSecret = "defaultsecret"

type Config struct {
	Port    string `yaml:"port"`
	LogMode string `yaml:"log_mode"`
	Version string `yaml:"version"`

	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Otel     OtelConfig     `yaml:"otel"`

	AllowedOrigins []string `yaml:"allowed_origins"`
	ChartFont      string   `yaml:"chart_font"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

type AuthConfig struct {
	JWTSecretKey       string        `yaml:"jwt_secret_key"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl"`
	LoginRatePerMinute int           `yaml:"login_rate_per_minute"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	SSLMode    string `yaml:"sslmode"`
	SQLitePath string `yaml:"sqlite_path"`
	Verbose    bool   `yaml:"verbose"`
}

type StorageConfig struct {
	Mode         string `yaml:"mode"`
	UploadDir    string `yaml:"upload_dir"`
	Bucket       string `yaml:"bucket"`
	EmulatorHost string `yaml:"emulator_host"`
}

type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

type RealtimeConfig struct {
	SendTimeout    time.Duration `yaml:"send_timeout"`
	PongWait       time.Duration `yaml:"pong_wait"`
	MaxConnections int           `yaml:"max_connections"`
	MaxParallel    int           `yaml:"max_parallel"`
	QueueSize      int           `yaml:"queue_size"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Environment string  `yaml:"environment"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

func defaultConfig() Config {
	return Config{
		Port:    "8000",
		LogMode: "development",
		Version: "1.0.0",
		Auth: AuthConfig{
			JWTSecretKey:       defaultJWTSecret,
			AccessTokenTTL:     30 * time.Minute,
			LoginRatePerMinute: 10,
		},
		Database: DatabaseConfig{
			Driver:     db.DriverPostgres,
			Host:       "localhost",
			Port:       "5432",
			User:       "postgres",
			Password:   "postgres",
			Name:       "csvshare",
			SSLMode:    "disable",
			SQLitePath: "csvshare.db",
		},
		Storage: StorageConfig{
			UploadDir: "uploads",
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Realtime: RealtimeConfig{
			SendTimeout: 5 * time.Second,
			PongWait:    60 * time.Second,
			MaxParallel: 64,
			QueueSize:   256,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Otel: OtelConfig{
			ServiceName: "csvshare-backend",
			Environment: "development",
			SampleRatio: 1,
		},
		MaxUploadBytes: 50 << 20,
	}
}

// LoadConfig applies defaults, then the YAML file named by CONFIG_FILE, then
// environment overrides.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, err
		}
		log.Info("Loaded config file", "path", path)
	}
	applyEnv(&cfg)

	if cfg.Auth.JWTSecretKey == defaultJWTSecret {
		log.Warn("JWT_SECRET_KEY is not set, using the insecure default")
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.Version = envutil.String("APP_VERSION", cfg.Version)

	cfg.Auth.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.Auth.JWTSecretKey)
	cfg.Auth.AccessTokenTTL = envutil.Duration("ACCESS_TOKEN_TTL", cfg.Auth.AccessTokenTTL)
	cfg.Auth.LoginRatePerMinute = envutil.Int("LOGIN_RATE_PER_MINUTE", cfg.Auth.LoginRatePerMinute)

	cfg.Database.Driver = strings.ToLower(envutil.String("DB_DRIVER", cfg.Database.Driver))
	cfg.Database.Host = envutil.String("POSTGRES_HOST", cfg.Database.Host)
	cfg.Database.Port = envutil.String("POSTGRES_PORT", cfg.Database.Port)
	cfg.Database.User = envutil.String("POSTGRES_USER", cfg.Database.User)
	cfg.Database.Password = envutil.String("POSTGRES_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = envutil.String("POSTGRES_DB", cfg.Database.Name)
	cfg.Database.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.SQLitePath = envutil.String("SQLITE_PATH", cfg.Database.SQLitePath)
	cfg.Database.Verbose = envutil.Bool("DB_VERBOSE", cfg.Database.Verbose)

	cfg.Storage.Mode = envutil.String("OBJECT_STORAGE_MODE", cfg.Storage.Mode)
	cfg.Storage.UploadDir = envutil.String("UPLOAD_DIR", cfg.Storage.UploadDir)
	cfg.Storage.Bucket = envutil.String("CSV_GCS_BUCKET_NAME", cfg.Storage.Bucket)
	cfg.Storage.EmulatorHost = envutil.String("STORAGE_EMULATOR_HOST", cfg.Storage.EmulatorHost)

	cfg.Cache.RedisAddr = envutil.String("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.TTL = envutil.Duration("CSV_CACHE_TTL", cfg.Cache.TTL)

	cfg.Realtime.SendTimeout = envutil.Duration("REALTIME_SEND_TIMEOUT", cfg.Realtime.SendTimeout)
	cfg.Realtime.PongWait = envutil.Duration("REALTIME_PONG_WAIT", cfg.Realtime.PongWait)
	cfg.Realtime.MaxConnections = envutil.Int("REALTIME_MAX_CONNECTIONS", cfg.Realtime.MaxConnections)
	cfg.Realtime.MaxParallel = envutil.Int("REALTIME_MAX_PARALLEL", cfg.Realtime.MaxParallel)
	cfg.Realtime.QueueSize = envutil.Int("REALTIME_QUEUE_SIZE", cfg.Realtime.QueueSize)

	cfg.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Addr = envutil.String("METRICS_ADDR", cfg.Metrics.Addr)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
	cfg.Otel.Environment = envutil.String("OTEL_ENVIRONMENT", cfg.Otel.Environment)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
	cfg.Otel.SampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", cfg.Otel.SampleRatio)

	cfg.AllowedOrigins = envutil.List("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.ChartFont = envutil.String("CHART_FONT", cfg.ChartFont)
	cfg.MaxUploadBytes = int64(envutil.Int("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
}

func (c Config) DBConfig() db.Config {
	return db.Config{
		Driver:           c.Database.Driver,
		PostgresHost:     c.Database.Host,
		PostgresPort:     c.Database.Port,
		PostgresUser:     c.Database.User,
		PostgresPassword: c.Database.Password,
		PostgresName:     c.Database.Name,
		PostgresSSLMode:  c.Database.SSLMode,
		SQLitePath:       c.Database.SQLitePath,
		Verbose:          c.Database.Verbose,
	}
}

func (c Config) StorageConfig() storage.Config {
	return storage.Config{
		Mode:         storage.Mode(strings.ToLower(strings.TrimSpace(c.Storage.Mode))),
		UploadDir:    c.Storage.UploadDir,
		Bucket:       c.Storage.Bucket,
		EmulatorHost: c.Storage.EmulatorHost,
	}
}

func (c Config) ObservabilityOtel() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.Otel.Enabled,
		ServiceName: c.Otel.ServiceName,
		Environment: c.Otel.Environment,
		Version:     c.Version,
		Endpoint:    c.Otel.Endpoint,
		Insecure:    c.Otel.Insecure,
		SampleRatio: c.Otel.SampleRatio,
	}
}

func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
