package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

const defaultMaxOpenConns = 10

// Options controls Core initialization.
type Options struct {
	// Driver is DriverMySQL or DriverSQLite. Defaults to DriverSQLite when
	// DBPath is set and DSN is empty.
	Driver string
	// DSN is the MySQL data source name. See MySQLDSN.
	DSN string
	// DBPath is the SQLite database file.
	DBPath string

	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	Logger          *slog.Logger
	// SkipMigrations leaves the schema untouched on open.
	SkipMigrations bool
}

// Core provides access to the ledger business logic and storage.
type Core struct {
	db        *sql.DB
	driver    string
	logger    *slog.Logger
	companies *companiesCache
}

// Open initializes a Core using the provided options.
func Open(opts Options) (*Core, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	driver := opts.Driver
	if driver == "" && opts.DSN == "" && opts.DBPath != "" {
		driver = DriverSQLite
	}

	var dsn string
	switch driver {
	case DriverSQLite:
		if opts.DBPath == "" {
			return nil, errors.New("db path is required")
		}
		dsn = filepath.Clean(opts.DBPath)
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	case DriverMySQL:
		if opts.DSN == "" {
			return nil, errors.New("dsn is required")
		}
		dsn = opts.DSN
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	if !opts.SkipMigrations {
		if err := runMigrations(driver, dsn); err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite performs best with a single writer.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			logger.Warn("pragma busy_timeout failed", "err", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			logger.Warn("pragma foreign_keys failed", "err", err)
		}
	} else {
		maxOpen := defaultInt(opts.MaxOpenConns, defaultMaxOpenConns)
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
		db.SetConnMaxLifetime(defaultDuration(opts.ConnMaxLifetime, 5*time.Minute))
	}

	c := &Core{
		db:        db,
		driver:    driver,
		logger:    logger,
		companies: newCompaniesCache(),
	}
	if !opts.SkipMigrations {
		if n, err := c.backfillPartnerSearch(context.Background()); err != nil {
			logger.Warn("partner search backfill failed", "err", err)
		} else if n > 0 {
			logger.Info("partner search backfilled", "rows", n)
		}
	}
	return c, nil
}

// MySQLDSN builds a MySQL data source name for the ledger schema.
func MySQLDSN(host string, port int, user, password, database string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", host, port)
	cfg.DBName = database
	cfg.Collation = "utf8mb4_unicode_ci"
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	// UPDATE reports matched rows, so an unchanged owned row is not taken for a missing one.
	cfg.ClientFoundRows = true
	cfg.Timeout = 10 * time.Second
	return cfg.FormatDSN()
}

// Close releases database resources.
func (c *Core) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Driver returns the database driver name.
func (c *Core) Driver() string {
	return c.driver
}

// Logger returns the logger the core writes to.
func (c *Core) Logger() *slog.Logger {
	return c.logger
}

// Probe reports whether the database answers a trivial round trip.
func (c *Core) Probe(ctx context.Context) bool {
	var one int
	if err := c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		c.logger.Warn("database probe failed", "err", err)
		return false
	}
	return one == 1
}

// TablesReady reports whether the transactions table can be read.
func (c *Core) TablesReady(ctx context.Context) bool {
	var n int64
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		c.logger.Warn("transactions table not readable", "err", err)
		return false
	}
	return true
}

func defaultDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
