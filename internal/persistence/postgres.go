package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/meditrack/staffcore/internal/config"
	apperrors "github.com/meditrack/staffcore/pkg/util"
)

// ErrPoolNotInitialized is wrapped by Acquire when no pool exists.
var ErrPoolNotInitialized = errors.New("connection pool is not initialized")

// Conn is an exclusive connection checked out of the pool.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Release()
}

// Acquirer hands out pooled connections.
type Acquirer interface {
	Initialize(ctx context.Context) error
	Acquire(ctx context.Context) (Conn, error)
	Release(conn Conn)
}

// PoolStats mirrors the interesting parts of pgxpool.Stat.
type PoolStats struct {
	MaxConns             int32 `json:"max_conns"`
	TotalConns           int32 `json:"total_conns"`
	IdleConns            int32 `json:"idle_conns"`
	AcquiredConns        int32 `json:"acquired_conns"`
	AcquireCount         int64 `json:"acquire_count"`
	EmptyAcquireCount    int64 `json:"empty_acquire_count"`
	CanceledAcquireCount int64 `json:"canceled_acquire_count"`
}

var _ Acquirer = (*Postgres)(nil)

// Postgres owns the lifecycle of a bounded pgx connection pool.
type Postgres struct {
	cfg    config.PostgresConfig
	logger *zap.Logger

	mu   sync.RWMutex
	pool *pgxpool.Pool
}

// NewPostgres builds the manager. No connection is made until Initialize.
func NewPostgres(cfg config.PostgresConfig, logger *zap.Logger) *Postgres {
	return &Postgres{cfg: cfg, logger: logger.Named("postgres")}
}

// Initialize creates the pool and verifies connectivity. Calling it while a pool exists is a no-op.
func (p *Postgres) Initialize(ctx context.Context) error {
	if p.handle() != nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		return nil
	}

	poolCfg, err := pgxpool.ParseConfig(p.cfg.ConnString())
	if err != nil {
		return apperrors.NewConnectionError(fmt.Errorf("parse postgres config: %w", err))
	}

	if p.cfg.MaxConns > 0 {
		poolCfg.MaxConns = p.cfg.MaxConns
	}
	poolCfg.MinConns = 0
	if p.cfg.IdleTimeout > 0 {
		poolCfg.MaxConnIdleTime = p.cfg.IdleTimeout
	}
	if p.cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = p.cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return apperrors.NewConnectionError(fmt.Errorf("open connection pool: %w", err))
	}

	pingCtx := ctx
	if p.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, p.cfg.ConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return apperrors.NewConnectionError(fmt.Errorf("ping postgres: %w", err))
	}

	p.pool = pool
	p.logger.Info("postgres connection pool created",
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Duration("idle_timeout", poolCfg.MaxConnIdleTime),
		zap.Duration("connect_timeout", poolCfg.ConnConfig.ConnectTimeout),
	)
	return nil
}

// Acquire checks out a connection, waiting at most the configured acquire timeout.
func (p *Postgres) Acquire(ctx context.Context) (Conn, error) {
	pool := p.handle()
	if pool == nil {
		return nil, apperrors.NewConnectionError(ErrPoolNotInitialized)
	}

	acquireCtx := ctx
	if p.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	conn, err := pool.Acquire(acquireCtx)
	if err != nil {
		stat := pool.Stat()
		saturated := stat.AcquiredConns() >= stat.MaxConns()
		return nil, classifyAcquireError(ctx, p.cfg.AcquireTimeout, saturated, err)
	}
	return &pooledConn{Conn: conn}, nil
}

// Release returns conn to the pool. Releasing the same handle twice is harmless.
func (p *Postgres) Release(conn Conn) {
	if conn != nil {
		conn.Release()
	}
}

// Close drains the pool. It is safe to call on a manager that was never initialized.
func (p *Postgres) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool == nil {
		return
	}
	p.pool.Close()
	p.pool = nil
	p.logger.Info("postgres connection pool closed")
}

// Ping verifies connectivity of the current pool.
func (p *Postgres) Ping(ctx context.Context) error {
	pool := p.handle()
	if pool == nil {
		return ErrPoolNotInitialized
	}
	return pool.Ping(ctx)
}

// Stats reports pool occupancy. The zero value is returned when no pool exists.
func (p *Postgres) Stats() PoolStats {
	pool := p.handle()
	if pool == nil {
		return PoolStats{}
	}
	s := pool.Stat()
	return PoolStats{
		MaxConns:             s.MaxConns(),
		TotalConns:           s.TotalConns(),
		IdleConns:            s.IdleConns(),
		AcquiredConns:        s.AcquiredConns(),
		AcquireCount:         s.AcquireCount(),
		EmptyAcquireCount:    s.EmptyAcquireCount(),
		CanceledAcquireCount: s.CanceledAcquireCount(),
	}
}

// PoolHandle returns the underlying pgx pool, or nil before Initialize.
func (p *Postgres) PoolHandle() *pgxpool.Pool {
	return p.handle()
}

func (p *Postgres) handle() *pgxpool.Pool {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pool
}

// classifyAcquireError separates "pool stayed full past the timeout" from the
// caller giving up or the transport failing. A deadline hit while the pool
// still had free slots means dialing was slow, which is a transport failure.
func classifyAcquireError(parent context.Context, timeout time.Duration, saturated bool, err error) error {
	if parent.Err() != nil {
		return apperrors.NewConnectionError(fmt.Errorf("acquire connection: %w", err))
	}
	if errors.Is(err, context.DeadlineExceeded) && saturated {
		return apperrors.NewPoolExhausted(fmt.Errorf("no connection available within %s: %w", timeout, err))
	}
	return apperrors.NewConnectionError(fmt.Errorf("acquire connection: %w", err))
}

type pooledConn struct {
	*pgxpool.Conn
	once sync.Once
}

func (c *pooledConn) Release() {
	c.once.Do(c.Conn.Release)
}
