package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/jyouni2001/LodgingSimulator-sub001/common/config"
)

// DriverName the name lib/pq registers with database/sql
const DriverName = "postgres"

// NewPostgresDB opens the world object database and pings it within ctx.
// The pool is closed again if the ping fails
func NewPostgresDB(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	return open(ctx, DriverName, cfg.GetDSN(), cfg)
}

func open(ctx context.Context, driver, dsn string, cfg *config.DatabaseConfig) (*sql.DB, error) {
	target := fmt.Sprintf("%s@%s:%d", cfg.Database, cfg.Host, cfg.Port)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", target, err)
	}
	configurePool(db, cfg)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", target, err)
	}
	return db, nil
}

// configurePool applies the non-zero pool limits of cfg
func configurePool(db *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

// Close closes db; nil is ignored
func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
