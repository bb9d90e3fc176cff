package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations
var migrations embed.FS

var migrationDirs = map[Dialect]string{
	DialectSQLite:   "migrations/sqlite",
	DialectMySQL:    "migrations/mysql",
	DialectPostgres: "migrations/postgres",
}

// Migrate applies the embedded schema migrations for the dialect.
func Migrate(ctx context.Context, sqdb *sql.DB, dialect Dialect, logger *zap.Logger) error {
	dir, ok := migrationDirs[dialect]
	if !ok {
		return fmt.Errorf("no migrations for dialect %q", dialect)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{l: logger.Named("migrate").Sugar()})
	if err := goose.SetDialect(string(dialect)); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, sqdb, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// SchemaVersion reports the latest applied migration version.
func SchemaVersion(ctx context.Context, sqdb *sql.DB, dialect Dialect) (int64, error) {
	if err := goose.SetDialect(string(dialect)); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, sqdb)
}

type gooseLogger struct {
	l *zap.SugaredLogger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.l.Infof(strings.TrimSpace(format), v...)
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.l.Fatalf(strings.TrimSpace(format), v...)
}
