// Package repository persists source files, extract jobs, and decoded
// tickets in the archive store. The store runs on an embedded SQLite file
// by default and on Postgres when a shared archive is configured.
package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/devinhayward/concrete-tickets/internal/common"
)

// Supported archive drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB bundles the database/sql handle with the pgx pool backing it when the
// archive runs on Postgres. Pool is nil for SQLite.
type DB struct {
	SQL    *sql.DB
	Pool   *pgxpool.Pool
	driver string
}

// Driver reports which archive driver this handle was opened with.
func (d *DB) Driver() string { return d.driver }

// bind rewrites '?' placeholders to $N for Postgres. Queries in this package
// are written with '?' and never contain a literal question mark.
func (d *DB) bind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Open connects to the archive store configured in cfg.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case DriverSQLite, "":
		return openSQLite(cfg.SQLitePath, logger)
	default:
		return nil, common.NewAppError("DB_OPEN", "unsupported archive driver: "+cfg.Driver, common.ErrInvalidInput)
	}
}

// openPostgres creates a pgx pool and wraps it as database/sql.
func openPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", DriverPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewAppError("DB_OPEN", err.Error(), common.ErrDatabase)
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "concrete-tickets"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewAppError("DB_OPEN", err.Error(), common.ErrDatabase)
	}

	db := stdlib.OpenDBFromPool(pool)

	logger.Info("successfully connected to database")
	return &DB{SQL: db, Pool: pool, driver: DriverPostgres}, nil
}

// openSQLite opens the embedded archive file. WAL keeps readers unblocked
// while a page is being archived; busy_timeout covers the watcher and a CLI
// run sharing one file.
func openSQLite(path string, logger *slog.Logger) (*DB, error) {
	if path == "" {
		path = "./tickets.db"
	}
	logger.Info("connecting to database", "driver", DriverSQLite, "path", path)

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewAppError("DB_OPEN", err.Error(), common.ErrDatabase)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	logger.Info("successfully connected to database")
	return &DB{SQL: db, driver: DriverSQLite}, nil
}

// Close closes the database connections gracefully.
func Close(d *DB, logger *slog.Logger) {
	if d == nil {
		return
	}
	logger.Info("closing database connections")
	if d.SQL != nil {
		if err := d.SQL.Close(); err != nil {
			logger.Error("failed to close sql handle", "error", err)
		}
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the archive store to catch DSN issues early.
func HealthCheck(ctx context.Context, d *DB, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var err error
	if d.Pool != nil {
		err = d.Pool.Ping(ctx)
	} else {
		err = d.SQL.PingContext(ctx)
	}
	if err != nil {
		logger.Error("database ping failed", "error", err)
		return common.NewAppError("DB_HEALTH", err.Error(), common.ErrDatabase)
	}
	logger.Debug("database ping successful")
	return nil
}
