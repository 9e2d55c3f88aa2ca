package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/l1jgo/tickrun/internal/config"
	"go.uber.org/zap"
)

// applicationName tags journal connections in pg_stat_activity unless the
// DSN sets its own.
const applicationName = "tickrun-journal"

// DB wraps the pgx pool the run journal writes through.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// OpenJournalDB connects, applies pending journal migrations and returns the
// ready pool. The pool is closed again if migrating fails.
func OpenJournalDB(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (*DB, error) {
	db, err := NewDB(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func NewDB(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to journal db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping journal db: %w", err)
	}

	log.Info("journal database connected",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return &DB{Pool: pool, log: log}, nil
}

// poolConfig maps the journal section onto a pool config. Zero values keep
// pgx's defaults; idle connections never exceed the connection cap.
func poolConfig(cfg config.JournalConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse journal dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = min(int32(cfg.MaxIdleConns), poolCfg.MaxConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	return poolCfg, nil
}

// Migrate applies pending journal migrations and returns the schema version.
func (db *DB) Migrate(ctx context.Context) (int64, error) {
	return RunMigrations(ctx, db.Pool, db.log)
}

func (db *DB) Close() {
	db.Pool.Close()
}
