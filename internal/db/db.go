package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL flavour behind a connection. Values match goose dialect names.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// DialectFor maps a configured driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite":
		return DialectSQLite, nil
	case "mysql":
		return DialectMySQL, nil
	case "pgx":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported db driver %q", driver)
}

type Options struct {
	Driver      string
	DSN         string
	Path        string
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

// Open connects with the configured driver and verifies the connection.
func Open(ctx context.Context, opts Options) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(opts.Driver)
	if err != nil {
		return nil, "", err
	}
	var sqdb *sql.DB
	switch dialect {
	case DialectSQLite:
		sqdb, err = openSQLite(opts.Path)
	case DialectMySQL:
		sqdb, err = openMySQL(opts.DSN)
	case DialectPostgres:
		sqdb, err = sql.Open("pgx", opts.DSN)
	}
	if err != nil {
		return nil, "", err
	}
	sqdb.SetMaxOpenConns(opts.MaxOpen)
	sqdb.SetMaxIdleConns(opts.MaxIdle)
	sqdb.SetConnMaxLifetime(opts.MaxLifetime)
	if err := sqdb.PingContext(ctx); err != nil {
		_ = sqdb.Close()
		return nil, "", fmt.Errorf("ping %s: %w", dialect, err)
	}
	return sqdb, dialect, nil
}

// OpenSQLite opens a file-backed SQLite database, creating its directory.
func OpenSQLite(path string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sql.DB, error) {
	sqdb, _, err := Open(context.Background(), Options{
		Driver:      "sqlite",
		Path:        path,
		MaxOpen:     maxOpen,
		MaxIdle:     maxIdle,
		MaxLifetime: maxLifetime,
	})
	return sqdb, err
}

func openSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite", path)
	return sql.Open("sqlite", dsn)
}

// openMySQL forces the DSN options the store relies on: DATETIME columns
// scan into time.Time in UTC, and UPDATE reports matched rather than changed rows.
func openMySQL(dsn string) (*sql.DB, error) {
	mcfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	mcfg.ParseTime = true
	mcfg.ClientFoundRows = true
	mcfg.Loc = time.UTC
	connector, err := mysql.NewConnector(mcfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}
