package sqlstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/employee-portal/db"
	"github.com/frahmantamala/employee-portal/internal"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const migrationTable = "schema_migrations"

// DB is an open local storage database. SQL and Gorm share one pool.
type DB struct {
	SQL    *sqlx.DB
	Gorm   *gorm.DB
	driver string
}

func driverName(driver string) (sqlDriver, gooseDialect string, err error) {
	switch driver {
	case "sqlite":
		return "sqlite3", "sqlite3", nil
	case "postgres":
		return "pgx", "postgres", nil
	default:
		return "", "", fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// Connect opens the configured database without touching its schema.
func Connect(ctx context.Context, cfg internal.StorageConfig) (*DB, error) {
	sqlDriver, _, err := driverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sqlx.ConnectContext(ctx, sqlDriver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s storage: %w", cfg.Driver, err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == "sqlite" {
		// one writer, and each :memory: connection is its own database
		maxOpen = 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}

	return &DB{SQL: sqlDB, driver: cfg.Driver}, nil
}

// Open connects to the configured database and brings its schema up to
// date.
func Open(ctx context.Context, cfg internal.StorageConfig, logger *slog.Logger) (*DB, error) {
	d, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := d.Migrate(ctx, false); err != nil {
		d.Close()
		return nil, err
	}

	var dialector gorm.Dialector
	if cfg.Driver == "sqlite" {
		dialector = sqlite.New(sqlite.Config{Conn: d.SQL.DB})
	} else {
		dialector = postgres.New(postgres.Config{Conn: d.SQL.DB})
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}
	d.Gorm = gormDB

	logger.Debug("local storage ready", "driver", cfg.Driver)
	return d, nil
}

// Migrate applies the embedded migrations, or rolls back the latest one.
func (d *DB) Migrate(ctx context.Context, rollback bool) error {
	_, dialect, err := driverName(d.driver)
	if err != nil {
		return err
	}

	goose.SetBaseFS(db.Migrations)
	goose.SetTableName(migrationTable)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose: %w", err)
	}

	if rollback {
		if err := goose.DownContext(ctx, d.SQL.DB, db.MigrationsDir); err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
		return nil
	}
	if err := goose.UpContext(ctx, d.SQL.DB, db.MigrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Version reports the applied schema version.
func (d *DB) Version(ctx context.Context) (int64, error) {
	_, dialect, err := driverName(d.driver)
	if err != nil {
		return 0, err
	}
	goose.SetTableName(migrationTable)
	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("goose: %w", err)
	}
	return goose.GetDBVersionContext(ctx, d.SQL.DB)
}

func (d *DB) Ping(ctx context.Context) error {
	return d.SQL.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.SQL.Close()
}
