package config

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverREST     = "rest"
	DriverMemory   = "memory"
)

// Config centralises runtime configuration.
type Config struct {
	HTTPPort        string   `env:"HTTP_PORT"`
	Port            string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins  []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	ReadTimeoutSec  int      `env:"HTTP_READ_TIMEOUT" envDefault:"15"`
	WriteTimeoutSec int      `env:"HTTP_WRITE_TIMEOUT" envDefault:"15"`
	IdleTimeoutSec  int      `env:"HTTP_IDLE_TIMEOUT" envDefault:"60"`

	JWT       JWTConfig       `envPrefix:"JWT_"`
	Store     StoreConfig
	Log       LogConfig       `envPrefix:"LOG_"`
	Telemetry TelemetryConfig `envPrefix:"OTEL_"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
}

// JWTConfig configures session token signing.
type JWTConfig struct {
	Secret string        `env:"SECRET"`
	Issuer string        `env:"ISSUER" envDefault:"doccrm"`
	TTL    time.Duration `env:"TTL" envDefault:"1h"`
}

// StoreConfig selects and configures the credential store backend.
type StoreConfig struct {
	Driver     string        `env:"STORE_DRIVER" envDefault:"postgres"`
	SQLitePath string        `env:"SQLITE_PATH" envDefault:"doccrm.db"`
	URL        string        `env:"STORE_URL"`
	APIKey     string        `env:"STORE_API_KEY"`
	Timeout    time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// DatabaseURL is resolved from DATABASE_URL and its PG* fallbacks.
	DatabaseURL string
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Endpoint string `env:"ENDPOINT"`
	Enabled  bool   `env:"ENABLED" envDefault:"true"`
}

// Load reads configuration from .env and environment variables.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path. Variables already present in
// the environment win over the file. A missing file is not an error.
func LoadFrom(envFile string) (Config, error) {
	if envFile != "" {
		if err := loadDotEnv(envFile); err != nil {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.HTTPPort == "" {
		cfg.HTTPPort = cfg.Port
	}
	cfg.AllowedOrigins = splitCSV(strings.Join(cfg.AllowedOrigins, ","))
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Store.DatabaseURL = resolveDatabaseURL()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that would stop the gateway from
// starting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWT.TTL)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.Store.Timeout)
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("database configuration missing: provide DATABASE_URL or PG* env vars")
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite store")
		}
	case DriverREST:
		if c.Store.URL == "" {
			return errors.New("STORE_URL is required for the rest store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	return nil
}

func splitCSV(value string) []string {
	parts := []string{}
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return []string{"*"}
	}
	return parts
}

// resolveDatabaseURL returns the first postgres URL found in the usual
// variables, then in *_FILE indirections, then assembles one from PG* parts.
// It returns "" when no host or user is configured.
func resolveDatabaseURL() string {
	for _, key := range []string{"DATABASE_URL", "POSTGRES_URL", "PGURL"} {
		if coerced := coerceDatabaseURL(os.Getenv(key)); coerced != "" {
			return coerced
		}
	}
	for _, key := range []string{"DATABASE_URL_FILE", "PGURL_FILE"} {
		if coerced := coerceDatabaseURL(readEnvFile(key)); coerced != "" {
			return coerced
		}
	}

	host := firstEnv("PGHOST", "POSTGRES_HOST", "DATABASE_HOST")
	user := firstEnv("PGUSER", "POSTGRES_USER", "DATABASE_USER")
	if host == "" || user == "" {
		return ""
	}
	password := firstEnv("PGPASSWORD", "POSTGRES_PASSWORD", "DATABASE_PASSWORD")
	database := firstNonEmpty(firstEnv("PGDATABASE", "POSTGRES_DB", "DATABASE_NAME"), user)
	port := firstNonEmpty(firstEnv("PGPORT", "POSTGRES_PORT", "DATABASE_PORT"), "5432")
	sslMode := firstNonEmpty(firstEnv("PGSSLMODE", "POSTGRES_SSL_MODE"), "require")

	dsn := &neturl.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + database,
		User:   neturl.User(user),
	}
	if password != "" {
		dsn.User = neturl.UserPassword(user, password)
	}
	query := dsn.Query()
	query.Set("sslmode", sslMode)
	dsn.RawQuery = query.Encode()

	return dsn.String()
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func normalisePostgresScheme(url string) string {
	if strings.HasPrefix(url, "postgresql://") {
		return "postgres://" + strings.TrimPrefix(url, "postgresql://")
	}
	return url
}

func coerceDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return normalisePostgresScheme(raw)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func readEnvFile(key string) string {
	path := os.Getenv(key)
	if path == "" {
		return ""
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func loadDotEnv(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf(".env line %d: missing '='", lineNum)
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if key == "" {
			return fmt.Errorf(".env line %d: empty key", lineNum)
		}

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf(".env line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return nil
}
