// Package sources builds federated sources from configuration entries.
//
// Each source type lives in its own subpackage; Build maps a
// file.SourceConfig onto the matching adapter.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/federa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/federa/internal/adapters/driven/sources/github"
	"github.com/custodia-labs/federa/internal/adapters/driven/sources/graphql"
	"github.com/custodia-labs/federa/internal/adapters/driven/sources/memory"
	"github.com/custodia-labs/federa/internal/adapters/driven/sources/postgres"
	"github.com/custodia-labs/federa/internal/adapters/driven/sources/sqlite"
	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driven"
	"github.com/custodia-labs/federa/internal/logger"
)

// Set is a built source list together with the resources it holds open.
type Set struct {
	Sources []driven.Source

	mu      sync.Mutex
	closers []io.Closer
}

// Close releases every source holding a connection or file.
// Calling it again is a no-op.
func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Builder creates sources from configuration entries.
type Builder struct {
	// BaseDir resolves relative file paths. Empty means the working directory.
	BaseDir string

	// Getenv reads credentials named by *_env options. Defaults to os.Getenv.
	Getenv func(string) string
}

// Build creates one source per entry, in order. On error every source
// already opened is closed.
func (b *Builder) Build(ctx context.Context, cfgs []file.SourceConfig) (*Set, error) {
	set := &Set{Sources: make([]driven.Source, 0, len(cfgs))}
	for _, cfg := range cfgs {
		src, err := b.build(ctx, cfg)
		if err != nil {
			_ = set.Close()
			return nil, fmt.Errorf("source %s: %w", cfg.Key, err)
		}
		set.Sources = append(set.Sources, src)
		if c, ok := src.(io.Closer); ok {
			set.closers = append(set.closers, c)
		}
		logger.Debug("Built %s source %s", cfg.Type, cfg.Key)
	}
	return set, nil
}

func (b *Builder) build(ctx context.Context, cfg file.SourceConfig) (driven.Source, error) {
	desc := cfg.Descriptor()

	switch cfg.Type {
	case file.TypeMemory:
		if cfg.Memory == nil {
			return nil, missingSection(cfg)
		}
		return memory.LoadFile(desc, b.path(cfg.Memory.ItemsFile))

	case file.TypeSQLite:
		if cfg.SQLite == nil {
			return nil, missingSection(cfg)
		}
		store, err := sqlite.Open(b.path(cfg.SQLite.Path))
		if err != nil {
			return nil, err
		}
		return sqlite.NewSource(desc, store), nil

	case file.TypePostgres:
		if cfg.Postgres == nil {
			return nil, missingSection(cfg)
		}
		dsn := cfg.Postgres.DSN
		if cfg.Postgres.DSNEnv != "" {
			dsn = b.getenv(cfg.Postgres.DSNEnv)
		}
		if dsn == "" {
			return nil, &domain.ConfigurationError{SourceKey: cfg.Key, Reason: "postgres dsn is empty"}
		}
		pool, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return postgres.NewSource(desc, pool, cfg.Postgres.Table), nil

	case file.TypeGraphQL:
		if cfg.GraphQL == nil {
			return nil, missingSection(cfg)
		}
		g := cfg.GraphQL
		opts := graphql.Options{
			Endpoint:          g.Endpoint,
			Table:             g.Table,
			Query:             g.Query,
			OperationName:     g.OperationName,
			ItemsPath:         g.ItemsPath,
			Columns:           g.Columns,
			RequireOwnerForID: g.RequireOwnerForID,
			Limiter:           graphql.NewLimiter(g.Rate, g.Burst),
		}
		if g.TokenEnv != "" {
			if token := b.getenv(g.TokenEnv); token != "" {
				opts.HTTPClient = graphql.NewHTTPClient(ctx, token)
			}
		}
		return graphql.NewSource(desc, opts)

	case file.TypeGitHub:
		opts := github.ClientOptions{}
		if g := cfg.GitHub; g != nil {
			opts.BaseURL = g.BaseURL
			opts.Rate = g.Rate
			if g.TokenEnv != "" {
				opts.Token = b.getenv(g.TokenEnv)
			}
		}
		client, err := github.NewClient(ctx, opts)
		if err != nil {
			return nil, err
		}
		return github.NewSource(desc, client), nil
	}
	return nil, &domain.ConfigurationError{SourceKey: cfg.Key, Reason: fmt.Sprintf("unknown type %q", cfg.Type)}
}

func (b *Builder) getenv(name string) string {
	if b.Getenv != nil {
		return b.Getenv(name)
	}
	return os.Getenv(name)
}

// path expands a leading ~/ and resolves relative paths against BaseDir.
func (b *Builder) path(p string) string {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	if filepath.IsAbs(p) || b.BaseDir == "" {
		return p
	}
	return filepath.Join(b.BaseDir, p)
}

func missingSection(cfg file.SourceConfig) error {
	return &domain.ConfigurationError{SourceKey: cfg.Key, Reason: fmt.Sprintf("missing [sources.%s] section", cfg.Type)}
}
