// Package pg implementa store.Store sobre PostgreSQL usando pgxpool.
// El pool se construye una vez en el entry point y se inyecta al ledger.
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dropDatabas3/hellogate/internal/store"
)

// Defaults del pool: 5 conexiones, 30s de timeout por operación.
const (
	DefaultMaxConns  = 5
	DefaultOpTimeout = 30 * time.Second
)

// Config tuning opcional del pool.
type Config struct {
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	OpTimeout       time.Duration
}

type Store struct {
	pool      *pgxpool.Pool
	log       *zap.Logger
	opTimeout time.Duration
}

// New parsea el DSN, arma el pool y hace un ping no bloqueante: si el
// backend está caído el proceso igual arranca (remember-me degradado).
func New(ctx context.Context, dsn string, cfg Config, log *zap.Logger) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	} else {
		pcfg.MaxConns = DefaultMaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
		pcfg.MaxConnIdleTime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	s := &Store{pool: pool, log: log, opTimeout: cfg.OpTimeout}
	if s.opTimeout <= 0 {
		s.opTimeout = DefaultOpTimeout
	}

	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg_pool_startup_ping_failed", zap.Error(err))
	} else {
		log.Info("pg_pool_ready", zap.Int32("max_conns", pcfg.MaxConns))
	}

	return s, nil
}

// Pool expone el pool interno (metrics/migraciones).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// PoolStats snapshot del estado del pool (nil si no está inicializado).
func (s *Store) PoolStats() *pgxpool.Stat {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Stat()
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return store.ErrUnavailable
	}
	return nil
}

// Close cierra el pool subyacente (idempotente). pgxpool drena las
// operaciones en vuelo antes de cerrar.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// opCtx acota cada operación al timeout configurado.
func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// opErr mapea errores del driver a la taxonomía del paquete store.
func opErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return &store.OpError{Op: op, Err: err}
}
