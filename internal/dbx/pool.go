package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"golang.org/x/sync/semaphore"
)

// PoolConfig bounds a Pool.
//
//   - MaxConns: maximum number of connections checked out at once (>= 1).
//   - MaxIdleConns: connections kept open while idle; zero means MaxConns.
//   - AcquireTimeout: how long Acquire waits for a free slot; zero means a
//     single non-blocking attempt.
type PoolConfig struct {
	MaxConns       int
	MaxIdleConns   int
	AcquireTimeout time.Duration
}

// Pool hands out connections of a *sql.DB one operation at a time. Unlike
// database/sql, which queues callers without limit, Acquire gives up with
// common.ErrPoolExhausted once AcquireTimeout has passed.
type Pool struct {
	db      *sql.DB
	sem     *semaphore.Weighted
	timeout time.Duration
}

// Open opens driverName/dsn, checks connectivity and wraps it in a Pool.
func Open(ctx context.Context, driverName, dsn string, cfg PoolConfig) (*Pool, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	p := NewPool(db, cfg)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return p, nil
}

// NewPool wraps an already opened *sql.DB and applies cfg to it.
func NewPool(db *sql.DB, cfg PoolConfig) *Pool {
	if cfg.MaxConns < 1 {
		cfg.MaxConns = 1
	}
	if cfg.MaxIdleConns <= 0 || cfg.MaxIdleConns > cfg.MaxConns {
		cfg.MaxIdleConns = cfg.MaxConns
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	return &Pool{
		db:      db,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConns)),
		timeout: cfg.AcquireTimeout,
	}
}

// DB exposes the underlying handle for startup tasks such as migrations.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Close closes every connection of the pool.
func (p *Pool) Close() error {
	return p.db.Close()
}

func (p *Pool) reserve(ctx context.Context) error {
	if p.timeout <= 0 {
		if !p.sem.TryAcquire(1) {
			return common.ErrPoolExhausted
		}
		return nil
	}

	actx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.sem.Acquire(actx, 1); err != nil {
		// the caller gave up, not the pool
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return common.ErrPoolExhausted
	}
	return nil
}

// Acquire checks out a dedicated connection. The caller must Release it.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if err := p.reserve(ctx); err != nil {
		return nil, err
	}

	c, err := p.db.Conn(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	return &Conn{conn: c, pool: p}, nil
}

// WithConn runs fn on a freshly acquired connection and releases it on every
// exit path, panics included.
func (p *Pool) WithConn(ctx context.Context, fn func(ctx context.Context, db DBTX) error) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Release()

	return fn(ctx, c)
}

// WithTx runs fn inside a transaction on a freshly acquired connection.
// The transaction is committed or rolled back before the connection is
// released.
func (p *Pool) WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Release()

	return WithTx(ctx, c, nil, fn)
}

// Ping verifies that a connection can be checked out and reaches the server.
func (p *Pool) Ping(ctx context.Context) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Release()

	return c.conn.PingContext(ctx)
}

// Conn is a connection checked out of a Pool.
type Conn struct {
	conn *sql.Conn
	pool *Pool
	once sync.Once
}

func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.conn.ExecContext(ctx, query, args...)
}

func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

func (c *Conn) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return c.conn.BeginTx(ctx, opts)
}

// Release returns the connection to the pool. Calling it twice is safe.
func (c *Conn) Release() {
	c.once.Do(func() {
		_ = c.conn.Close()
		c.pool.sem.Release(1)
	})
}
