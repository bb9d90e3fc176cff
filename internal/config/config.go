package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	ListenAddr  string `env:"LISTEN_ADDR,default=:8080"`
	ServiceName string `env:"SERVICE_NAME,default=barangay-reports"`

	DBDriver          string        `env:"DB_DRIVER,default=sqlite"`
	DBDSN             string        `env:"DB_DSN"`
	DBPath            string        `env:"APP_DB_PATH,default=./data/barangay.db"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=8"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=4"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`

	SessionCookieName      string        `env:"SESSION_COOKIE_NAME,default=barangay_session"`
	CSRFCookieName         string        `env:"CSRF_COOKIE_NAME,default=barangay_csrf"`
	SessionIdleTimeout     time.Duration `env:"SESSION_IDLE_TIMEOUT,default=30m"`
	SessionAbsoluteTimeout time.Duration `env:"SESSION_ABSOLUTE_TIMEOUT,default=24h"`
	CookieSecure           bool          `env:"COOKIE_SECURE,default=false"`
	TrustProxy             bool          `env:"TRUST_PROXY,default=false"`
	CORSAllowedOrigins     []string      `env:"CORS_ALLOWED_ORIGINS"`

	LoginRateLimit int `env:"LOGIN_RATE_LIMIT_PER_MIN,default=20"`
	APIRateLimit   int `env:"API_RATE_LIMIT_PER_MIN,default=600"`

	LogQueryDefaultLimit int `env:"LOG_QUERY_DEFAULT_LIMIT,default=100"`
	LogQueryMaxLimit     int `env:"LOG_QUERY_MAX_LIMIT,default=1000"`

	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT,default=10s"`
	HTTPReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT,default=5s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT,default=30s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT,default=60s"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	BootstrapAdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Load reads the configuration from the process environment.
func Load(ctx context.Context) (Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DBDriver {
	case "sqlite":
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("APP_DB_PATH is required when DB_DRIVER=sqlite")
		}
	case "mysql", "pgx":
		if strings.TrimSpace(c.DBDSN) == "" {
			return fmt.Errorf("DB_DSN is required when DB_DRIVER=%s", c.DBDriver)
		}
	default:
		return fmt.Errorf("DB_DRIVER must be one of: sqlite, mysql, pgx")
	}
	if c.DBMaxOpenConns <= 0 || c.DBMaxIdleConns < 0 {
		return fmt.Errorf("invalid DB pool config")
	}
	if c.SessionIdleTimeout <= 0 || c.SessionAbsoluteTimeout <= 0 {
		return fmt.Errorf("session timeouts must be positive")
	}
	if c.SessionIdleTimeout > c.SessionAbsoluteTimeout {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must not exceed SESSION_ABSOLUTE_TIMEOUT")
	}
	if c.SessionCookieName == "" || c.CSRFCookieName == "" || c.SessionCookieName == c.CSRFCookieName {
		return fmt.Errorf("session and csrf cookie names must be set and distinct")
	}
	if !c.CookieSecure && !isLocalListen(c.ListenAddr) {
		return fmt.Errorf("COOKIE_SECURE=false is allowed only for local listen addresses")
	}
	if c.LoginRateLimit <= 0 || c.APIRateLimit <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.LogQueryDefaultLimit <= 0 || c.LogQueryMaxLimit < c.LogQueryDefaultLimit {
		return fmt.Errorf("log query limits must satisfy 0 < default <= max")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	if (c.BootstrapAdminUsername == "") != (c.BootstrapAdminPassword == "") {
		return fmt.Errorf("BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	return nil
}

func isLocalListen(addr string) bool {
	a := strings.ToLower(strings.TrimSpace(addr))
	return strings.Contains(a, "127.0.0.1") || strings.Contains(a, "localhost") || strings.Contains(a, "[::1]") || strings.HasPrefix(a, ":")
}
