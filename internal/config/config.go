package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gastos/pkg/ledger"
)

// DefaultSessionSecret is used when no secret is configured. Production
// deployments must override it.
const DefaultSessionSecret = "symbiot-gastos-secret-2024"

// Config holds the runtime settings of the server.
type Config struct {
	// HTTP server
	Port   int
	Host   string
	WebDir string
	Env    string

	// AllowedOrigins lists cross-origin callers allowed to use the API with
	// the session cookie. Empty means same-origin only.
	AllowedOrigins []string

	// Database
	DBDriver       string
	DBHost         string
	DBPort         int
	DBName         string
	DBUser         string
	DBPassword     string
	DBMaxOpenConns int
	DBConnLifetime time.Duration
	SQLitePath     string
	SkipMigrations bool

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Logging
	LogDir    string
	LogLevel  string
	LogFormat string
}

// LoadDotEnv loads variables from a .env file in the working directory when
// one exists. Variables already set in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Port:   getEnvInt("PORT", 3000),
		Host:   getEnv("HOST", "0.0.0.0"),
		WebDir: getEnv("WEB_DIR", ""),
		Env:    getEnv("APP_ENV", getEnv("NODE_ENV", "development")),

		AllowedOrigins: getEnvList("CORS_ORIGINS"),

		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", ledger.DriverMySQL)),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnvInt("DB_PORT", 3306),
		DBName:         getEnv("DB_DATABASE", "gastos_app_db"),
		DBUser:         getEnv("DB_USERNAME", "gastos_user"),
		DBPassword:     getEnv("DB_PASSWORD", "Gastos2025!"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBConnLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		SQLitePath:     getEnv("SQLITE_PATH", "./data/gastos.db"),
		SkipMigrations: getEnvBool("DB_SKIP_MIGRATIONS", false),

		SessionSecret: getEnv("SESSION_SECRET", getEnv("JWT_SECRET", DefaultSessionSecret)),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LogDir:    getEnv("LOG_DIR", "./logs"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Port))
	}

	switch c.DBDriver {
	case ledger.DriverMySQL:
		if c.DBHost == "" {
			problems = append(problems, "DB_HOST cannot be empty when using mysql")
		}
		if c.DBName == "" {
			problems = append(problems, "DB_DATABASE cannot be empty when using mysql")
		}
		if c.DBPort < 1 || c.DBPort > 65535 {
			problems = append(problems, fmt.Sprintf("invalid DB_PORT %d", c.DBPort))
		}
	case ledger.DriverSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH cannot be empty when using sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid DB_DRIVER '%s': must be one of [mysql sqlite]", c.DBDriver))
	}

	if c.DBMaxOpenConns < 1 {
		problems = append(problems, fmt.Sprintf("invalid DB_MAX_OPEN_CONNS %d: must be positive", c.DBMaxOpenConns))
	}
	if c.SessionSecret == "" {
		problems = append(problems, "SESSION_SECRET cannot be empty")
	}
	if c.IsProduction() && c.SessionSecret == DefaultSessionSecret {
		problems = append(problems, "SESSION_SECRET must be changed in production")
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			problems = append(problems, "CORS_ORIGINS cannot contain '*' because the API uses cookie sessions")
		}
	}
	if c.SessionTTL <= 0 {
		problems = append(problems, "SESSION_TTL must be positive")
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed: " + strings.Join(problems, "; "))
	}
	return nil
}

// LedgerOptions returns the options for opening the ledger database.
func (c *Config) LedgerOptions(logger *slog.Logger) ledger.Options {
	opts := ledger.Options{
		Driver:          c.DBDriver,
		MaxOpenConns:    c.DBMaxOpenConns,
		ConnMaxLifetime: c.DBConnLifetime,
		Logger:          logger,
		SkipMigrations:  c.SkipMigrations,
	}
	if c.DBDriver == ledger.DriverSQLite {
		opts.DBPath = c.SQLitePath
	} else {
		opts.DSN = ledger.MySQLDSN(c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
	}
	return opts
}

// LogValue hides credentials when the config is logged.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("port", c.Port),
		slog.String("env", c.Env),
		slog.String("db_driver", c.DBDriver),
		slog.String("db_host", c.DBHost),
		slog.String("db_name", c.DBName),
		slog.Bool("redis_sessions", c.RedisAddr != ""),
		slog.String("web_dir", c.WebDir),
		slog.Any("cors_origins", c.AllowedOrigins),
	)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
