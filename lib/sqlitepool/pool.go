// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// DefaultPoolSize is used when Config.PoolSize is not positive.
const DefaultPoolSize = 4

// Config holds the parameters for Open.
type Config struct {
	// Path is the database file. It is created if missing; the parent
	// directory must exist.
	Path string

	// PoolSize is the number of connections.
	PoolSize int

	// Migrations are applied in order; see the package comment.
	Migrations []string

	// Logger receives open/close/migration messages. Nil discards.
	Logger *slog.Logger
}

// Pool is a fixed-size set of SQLite connections. Safe for concurrent
// use; individual connections are not.
type Pool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// Open creates the pool and brings the schema up to date.
func Open(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitepool: Path is required")
	}
	size := cfg.PoolSize
	if size <= 0 {
		size = DefaultPoolSize
	}
	p := &Pool{path: cfg.Path, logger: cfg.Logger}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}

	var err error
	p.inner, err = sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{PoolSize: size, PrepareConn: configure})
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: opening %s: %w", cfg.Path, err)
	}
	from, err := p.migrate(ctx, cfg.Migrations)
	if err != nil {
		p.inner.Close()
		return nil, err
	}
	p.logger.Info("sqlite pool opened",
		"path", cfg.Path,
		"pool_size", size,
		"schema_version", len(cfg.Migrations),
		"migrations_applied", len(cfg.Migrations)-from,
	)
	return p, nil
}

// Take borrows a connection, waiting for one to come free until ctx
// ends. Statements on it are interrupted when ctx is done.
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: take: %w", err)
	}
	return conn, nil
}

// Put hands conn back. Put(nil) does nothing.
func (p *Pool) Put(conn *sqlite.Conn) {
	if conn == nil {
		return
	}
	p.inner.Put(conn)
}

// Read calls fn with a borrowed connection and no transaction.
func (p *Pool) Read(ctx context.Context, fn func(*sqlite.Conn) error) error {
	conn, err := p.Take(ctx)
	if err != nil {
		return err
	}
	defer p.Put(conn)
	return fn(conn)
}

// Write calls fn inside BEGIN IMMEDIATE, committing when fn returns nil
// and rolling back otherwise.
func (p *Pool) Write(ctx context.Context, fn func(*sqlite.Conn) error) error {
	return p.Read(ctx, func(conn *sqlite.Conn) (err error) {
		end, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return fmt.Errorf("sqlitepool: begin: %w", err)
		}
		defer end(&err)
		return fn(conn)
	})
}

// Close closes the pool once every borrowed connection is back.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("sqlite pool close error", "path", p.path, "error", err)
		return fmt.Errorf("sqlitepool: closing %s: %w", p.path, err)
	}
	p.logger.Info("sqlite pool closed", "path", p.path)
	return nil
}

// migrate runs the migrations past the stored user_version and returns
// the version it started from.
func (p *Pool) migrate(ctx context.Context, migrations []string) (int, error) {
	var from int
	err := p.Write(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.ExecuteTransient(conn, "PRAGMA user_version", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				from = stmt.ColumnInt(0)
				return nil
			},
		}); err != nil {
			return fmt.Errorf("sqlitepool: reading user_version: %w", err)
		}
		switch {
		case from > len(migrations):
			return fmt.Errorf("sqlitepool: %s has schema version %d, this build knows %d", p.path, from, len(migrations))
		case from == len(migrations):
			return nil
		}
		for version := from + 1; version <= len(migrations); version++ {
			if err := sqlitex.ExecuteScript(conn, migrations[version-1], nil); err != nil {
				return fmt.Errorf("sqlitepool: migration %d: %w", version, err)
			}
		}
		return sqlitex.ExecuteTransient(conn, fmt.Sprintf("PRAGMA user_version = %d", len(migrations)), nil)
	})
	if err != nil {
		return 0, err
	}
	return from, nil
}

// connectionPragmas run on every new connection. FULL sync makes a
// committed block durable before the commit returns.
var connectionPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=FULL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
	"PRAGMA temp_store=MEMORY",
}

func configure(conn *sqlite.Conn) error {
	for _, pragma := range connectionPragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlitepool: %s: %w", pragma, err)
		}
	}
	return nil
}
