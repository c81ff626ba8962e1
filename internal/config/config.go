// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for links in e-mails.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	// Empty means debug in development and info in production.
	LogLevel string

	// FailureRedirectURL is where the browser is sent when a flow cannot
	// continue (missing challenge, invalid session, unexpected errors).
	FailureRedirectURL string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Auth holds session and credential settings.
	Auth AuthConfig

	// Hydra holds Authorization Backend settings.
	Hydra HydraConfig

	// Mail holds outgoing e-mail settings.
	Mail MailConfig

	// RateLimit holds per-IP limits for form submissions.
	RateLimit RateLimitConfig

	// TrustedProxies are the CIDR ranges whose X-Forwarded-For and
	// X-Real-IP headers are believed.
	TrustedProxies []string
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so
// container orchestrators can manage each independently.
// If DATABASE_URL is set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	User     string
	Password string
	Name     string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	// golang-migrate sends each migration file as one statement batch.
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
// Allows users to set DB_HOST=mydb (gets :3306) or DB_HOST=mydb:3307 (as-is).
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AuthConfig holds credential and session settings.
type AuthConfig struct {
	// SecretKey keys the password hash and signs the session cookie.
	SecretKey string

	// RememberFor is how long the Authorization Backend should skip the
	// login/consent prompts for a subject. The local session cookie lives
	// exactly as long.
	RememberFor time.Duration

	// AllowedReturnHosts lists the hosts edit-profile may redirect back to.
	AllowedReturnHosts []string
}

// HydraConfig holds Authorization Backend settings.
type HydraConfig struct {
	// URL is the base URL of the backend admin API.
	URL string

	// Timeout bounds every backend call.
	Timeout time.Duration

	// TrustedClientIDs are clients that never see the consent prompt.
	TrustedClientIDs []string
}

// MailConfig holds SMTP settings. An empty Host selects the log transport,
// which writes messages to the application log instead of sending them.
type MailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Encryption  string // "starttls", "ssl" or "none"
	FromName    string
	FromAddress string
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	// FormPosts is the number of POSTs allowed per IP per Window on the
	// credential-bearing forms.
	FormPosts int
	Window    time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{
		Env:                getEnv("ENV", "development"),
		Port:               getEnvInt("PORT", 8080),
		BaseURL:            strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		LogLevel:           getEnv("LOG_LEVEL", ""),
		FailureRedirectURL: getEnv("FAILURE_REDIRECT_URL", ""),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "identity"),
			Password:        getEnv("DB_PASSWORD", "identity"),
			Name:            getEnv("DB_NAME", "identity"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath:  getEnv("MIGRATIONS_PATH", "db/migrations"),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			SecretKey:          getEnv("SECRET_KEY", ""),
			RememberFor:        getEnvDuration("REMEMBER_FOR", time.Hour),
			AllowedReturnHosts: getEnvList("ALLOWED_RETURN_HOSTS"),
		},

		Hydra: HydraConfig{
			URL:              strings.TrimRight(getEnv("HYDRA_URL", "http://localhost:4445"), "/"),
			Timeout:          getEnvDuration("HYDRA_TIMEOUT", 10*time.Second),
			TrustedClientIDs: getEnvList("TRUSTED_CLIENT_IDS"),
		},

		Mail: MailConfig{
			Host:        getEnv("SMTP_HOST", ""),
			Port:        getEnvInt("SMTP_PORT", 587),
			Username:    getEnv("SMTP_USERNAME", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			Encryption:  getEnv("SMTP_ENCRYPTION", "starttls"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Identity"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@localhost"),
		},

		RateLimit: RateLimitConfig{
			FormPosts: getEnvInt("RATE_LIMIT_LOGIN", 10),
			Window:    time.Minute,
		},

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	if !cfg.IsDevelopment() {
		if cfg.Auth.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY is required in production")
		}
		if len(cfg.Auth.SecretKey) < 32 {
			return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
		if _, ok := os.LookupEnv("HYDRA_URL"); !ok {
			return nil, fmt.Errorf("HYDRA_URL is required in production")
		}
		if cfg.FailureRedirectURL == "" {
			return nil, fmt.Errorf("FAILURE_REDIRECT_URL is required in production")
		}
	}

	// Provide dev-only defaults so local dev works without .env.
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = "dev-secret-key-do-not-use-in-production!!"
	}
	if cfg.FailureRedirectURL == "" {
		cfg.FailureRedirectURL = cfg.BaseURL + "/terms"
	}

	if cfg.TrustedProxies == nil {
		cfg.TrustedProxies = []string{"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "::1/128", "fd00::/8"}
	}

	if cfg.Auth.RememberFor <= 0 {
		return nil, fmt.Errorf("REMEMBER_FOR must be positive")
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "720h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var. Blank entries are dropped.
func getEnvList(key string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
