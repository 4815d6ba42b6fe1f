package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"gastos/pkg/ledger"
)

var configEnvKeys = []string{
	"PORT", "HOST", "WEB_DIR", "APP_ENV", "NODE_ENV",
	"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_DATABASE", "DB_USERNAME", "DB_PASSWORD",
	"DB_MAX_OPEN_CONNS", "DB_CONN_MAX_LIFETIME", "SQLITE_PATH", "DB_SKIP_MIGRATIONS",
	"SESSION_SECRET", "JWT_SECRET", "SESSION_TTL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"LOG_DIR", "LOG_LEVEL", "LOG_FORMAT", "CORS_ORIGINS",
}

// clearEnv blanks every variable Load reads. getEnv treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.Port != 3000 {
		t.Fatalf("expected port 3000, got %d", cfg.Port)
	}
	if cfg.Env != "development" || cfg.IsProduction() {
		t.Fatalf("expected development env, got %q", cfg.Env)
	}
	if cfg.DBDriver != ledger.DriverMySQL {
		t.Fatalf("expected mysql driver, got %q", cfg.DBDriver)
	}
	if cfg.DBHost != "localhost" || cfg.DBPort != 3306 || cfg.DBName != "gastos_app_db" || cfg.DBUser != "gastos_user" {
		t.Fatalf("unexpected database defaults: %+v", cfg)
	}
	if cfg.DBMaxOpenConns != 10 {
		t.Fatalf("expected pool of 10, got %d", cfg.DBMaxOpenConns)
	}
	if cfg.SessionSecret != DefaultSessionSecret {
		t.Fatalf("expected default secret, got %q", cfg.SessionSecret)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("expected 24h session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected no redis by default, got %q", cfg.RedisAddr)
	}
	if cfg.LogDir != "./logs" {
		t.Fatalf("expected ./logs, got %q", cfg.LogDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8088")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "data", "gastos.db"))
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("DB_SKIP_MIGRATIONS", "true")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("REDIS_DB", "3")

	cfg := Load()
	if cfg.Port != 8088 {
		t.Fatalf("expected port 8088, got %d", cfg.Port)
	}
	if cfg.DBDriver != ledger.DriverSQLite {
		t.Fatalf("expected driver to be lowercased, got %q", cfg.DBDriver)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("expected 2h ttl, got %s", cfg.SessionTTL)
	}
	if !cfg.SkipMigrations {
		t.Fatalf("expected migrations to be skipped")
	}
	if cfg.RedisAddr != "127.0.0.1:6379" || cfg.RedisDB != 3 {
		t.Fatalf("unexpected redis settings: %q db %d", cfg.RedisAddr, cfg.RedisDB)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadLegacyFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "legacy-secret")
	t.Setenv("NODE_ENV", "production")

	cfg := Load()
	if cfg.SessionSecret != "legacy-secret" {
		t.Fatalf("expected JWT_SECRET fallback, got %q", cfg.SessionSecret)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected NODE_ENV fallback to production, got %q", cfg.Env)
	}

	t.Setenv("SESSION_SECRET", "primary-secret")
	t.Setenv("APP_ENV", "staging")
	cfg = Load()
	if cfg.SessionSecret != "primary-secret" || cfg.Env != "staging" {
		t.Fatalf("primary variables should win: secret %q env %q", cfg.SessionSecret, cfg.Env)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "abc")
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("DB_SKIP_MIGRATIONS", "maybe")

	cfg := Load()
	if cfg.Port != 3000 {
		t.Fatalf("expected fallback port, got %d", cfg.Port)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("expected fallback ttl, got %s", cfg.SessionTTL)
	}
	if cfg.SkipMigrations {
		t.Fatalf("expected fallback false")
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Port = 70000 }, "invalid port"},
		{"driver", func(c *Config) { c.DBDriver = "postgres" }, "invalid DB_DRIVER"},
		{"mysql host", func(c *Config) { c.DBHost = "" }, "DB_HOST"},
		{"mysql database", func(c *Config) { c.DBName = "" }, "DB_DATABASE"},
		{"sqlite path", func(c *Config) { c.DBDriver = ledger.DriverSQLite; c.SQLitePath = "" }, "SQLITE_PATH"},
		{"pool", func(c *Config) { c.DBMaxOpenConns = 0 }, "DB_MAX_OPEN_CONNS"},
		{"empty secret", func(c *Config) { c.SessionSecret = "" }, "SESSION_SECRET cannot be empty"},
		{"production secret", func(c *Config) { c.Env = "production" }, "must be changed in production"},
		{"ttl", func(c *Config) { c.SessionTTL = 0 }, "SESSION_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	clearEnv(t)
	cfg := Load()
	cfg.Port = 0
	cfg.SessionTTL = -time.Second

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "invalid port") || !strings.Contains(err.Error(), "SESSION_TTL") {
		t.Fatalf("expected both problems, got %q", err.Error())
	}
}

func TestValidateHasNoSideEffects(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "nested", "data")
	cfg := Load()
	cfg.DBDriver = ledger.DriverSQLite
	cfg.SQLitePath = filepath.Join(dir, "gastos.db")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be left alone, stat err=%v", dir, err)
	}
}

func TestLoadAllowedOrigins(t *testing.T) {
	clearEnv(t)
	if cfg := Load(); len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("expected no origins by default, got %v", cfg.AllowedOrigins)
	}

	t.Setenv("CORS_ORIGINS", " https://app.symbiot.com.mx, ,http://localhost:5173 ")
	cfg := Load()
	want := []string{"https://app.symbiot.com.mx", "http://localhost:5173"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.AllowedOrigins)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, cfg.AllowedOrigins)
		}
	}
}

func TestValidateRejectsWildcardOrigin(t *testing.T) {
	clearEnv(t)
	cfg := Load()
	cfg.AllowedOrigins = []string{"https://app.symbiot.com.mx", "*"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "CORS_ORIGINS") {
		t.Fatalf("expected CORS_ORIGINS problem, got %v", err)
	}
}

func TestLedgerOptions(t *testing.T) {
	clearEnv(t)

	t.Run("mysql", func(t *testing.T) {
		cfg := Load()
		cfg.DBHost = "db.internal"
		cfg.DBPort = 3307
		cfg.DBPassword = "s3cret"

		opts := cfg.LedgerOptions(nil)
		if opts.Driver != ledger.DriverMySQL || opts.DBPath != "" {
			t.Fatalf("unexpected options: %+v", opts)
		}
		parsed, err := mysql.ParseDSN(opts.DSN)
		if err != nil {
			t.Fatalf("parse dsn: %v", err)
		}
		if parsed.Addr != "db.internal:3307" || parsed.User != "gastos_user" || parsed.Passwd != "s3cret" || parsed.DBName != "gastos_app_db" {
			t.Fatalf("unexpected dsn: %+v", parsed)
		}
		if opts.MaxOpenConns != 10 || opts.ConnMaxLifetime != 5*time.Minute {
			t.Fatalf("unexpected pool settings: %+v", opts)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := Load()
		cfg.DBDriver = ledger.DriverSQLite
		cfg.SQLitePath = "/tmp/gastos.db"

		opts := cfg.LedgerOptions(nil)
		if opts.Driver != ledger.DriverSQLite || opts.DBPath != "/tmp/gastos.db" || opts.DSN != "" {
			t.Fatalf("unexpected options: %+v", opts)
		}
	})
}

func TestLogValueHidesSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PASSWORD", "very-private")
	t.Setenv("SESSION_SECRET", "also-private")

	rendered := Load().LogValue().String()
	if strings.Contains(rendered, "very-private") || strings.Contains(rendered, "also-private") {
		t.Fatalf("secrets leaked into log value: %s", rendered)
	}
	if !strings.Contains(rendered, "gastos_app_db") {
		t.Fatalf("expected database name in log value: %s", rendered)
	}
}
