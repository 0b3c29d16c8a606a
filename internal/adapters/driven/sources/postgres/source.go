// Package postgres provides a catalog source backed by PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/federa/internal/adapters/driven/sources/sqlquery"
	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driven"
	"github.com/custodia-labs/federa/internal/logger"
)

// Schema creates the items and item_owners tables if missing.
//
//go:embed schema.sql
var Schema string

// DefaultTable is the items table queried when none is configured.
const DefaultTable = "items"

// Querier is the subset of *pgxpool.Pool used by Source.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Ensure Source implements the interface.
var _ driven.Source = (*Source)(nil)

// Source serves federation queries from a PostgreSQL items table.
type Source struct {
	desc  domain.SourceDescriptor
	db    Querier
	table string
	pool  *pgxpool.Pool
}

// NewSource creates a source over db. An empty table means DefaultTable.
func NewSource(desc domain.SourceDescriptor, db Querier, table string) *Source {
	if table == "" {
		table = DefaultTable
	}
	s := &Source{desc: desc, db: db, table: pgx.Identifier{table}.Sanitize()}
	if pool, ok := db.(*pgxpool.Pool); ok {
		s.pool = pool
	}
	return s
}

// Connect opens a connection pool for dsn and verifies it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Debug("Connected to postgres %s/%s", cfg.ConnConfig.Host, cfg.ConnConfig.Database)
	return pool, nil
}

// EnsureSchema creates the catalog tables on pool.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create postgres schema: %w", err)
	}
	return nil
}

// Key returns the source key.
func (s *Source) Key() string { return s.desc.Key }

// Descriptor returns the routing descriptor.
func (s *Source) Descriptor() domain.SourceDescriptor { return s.desc }

// Fetch runs q against the items table.
func (s *Source) Fetch(ctx context.Context, q domain.Query) ([]domain.Item, error) {
	st, err := sqlquery.Build(sqlquery.Postgres, s.table, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []domain.Item
	for rows.Next() {
		it, err := sqlquery.ScanItem(sqlquery.Postgres, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Close releases the pool if the source owns one.
func (s *Source) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
