package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/federa/internal/core/domain"
)

// Source types understood by the source factory.
const (
	TypeMemory   = "memory"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeGraphQL  = "graphql"
	TypeGitHub   = "github"
)

// SourceTypes lists the supported source types.
var SourceTypes = []string{TypeMemory, TypeSQLite, TypePostgres, TypeGraphQL, TypeGitHub}

// Config is the federa configuration file.
type Config struct {
	Federation FederationConfig `toml:"federation"`
	Server     ServerConfig     `toml:"server"`
	Sources    []SourceConfig   `toml:"sources"`
}

// FederationConfig holds query behaviour settings.
type FederationConfig struct {
	// FailurePolicy is "fail" (default) or "partial".
	FailurePolicy string `toml:"failure_policy,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `toml:"addr,omitempty"`
}

// SourceConfig declares one federated source.
type SourceConfig struct {
	Key        string   `toml:"key"`
	Type       string   `toml:"type"`
	Namespaces []string `toml:"namespaces,omitempty"`
	Wildcard   bool     `toml:"wildcard,omitempty"`
	Exclude    []string `toml:"exclude,omitempty"`

	Memory   *MemoryConfig   `toml:"memory,omitempty"`
	SQLite   *SQLiteConfig   `toml:"sqlite,omitempty"`
	Postgres *PostgresConfig `toml:"postgres,omitempty"`
	GraphQL  *GraphQLConfig  `toml:"graphql,omitempty"`
	GitHub   *GitHubConfig   `toml:"github,omitempty"`
}

// Descriptor returns the routing descriptor of the source.
func (s SourceConfig) Descriptor() domain.SourceDescriptor {
	d := domain.NewSourceDescriptor(s.Key, s.Namespaces, s.Exclude...)
	if s.Wildcard {
		d.Wildcard = true
	}
	return d
}

// MemoryConfig configures an in-process catalog loaded from a JSON file.
type MemoryConfig struct {
	ItemsFile string `toml:"items_file"`
}

// SQLiteConfig configures a local SQLite catalog.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// PostgresConfig configures a PostgreSQL catalog.
// DSNEnv names an environment variable holding the DSN and wins over DSN.
type PostgresConfig struct {
	DSN    string `toml:"dsn,omitempty"`
	DSNEnv string `toml:"dsn_env,omitempty"`
	Table  string `toml:"table,omitempty"`
}

// GraphQLConfig configures a Hasura-style GraphQL indexer.
type GraphQLConfig struct {
	Endpoint      string `toml:"endpoint"`
	TokenEnv      string `toml:"token_env,omitempty"`
	Table         string `toml:"table,omitempty"`
	Query         string `toml:"query,omitempty"`
	OperationName string `toml:"operation_name,omitempty"`
	ItemsPath     string `toml:"items_path,omitempty"`

	// Columns maps item fields (id, namespace, item, createdAt, issuer,
	// owner, mimeType, name, description, uri) to dotted response paths.
	Columns map[string]string `toml:"columns,omitempty"`

	// RequireOwnerForID rejects identifier lookups without an owner selector.
	RequireOwnerForID bool `toml:"require_owner_for_id,omitempty"`

	Rate  float64 `toml:"rate,omitempty"`
	Burst int     `toml:"burst,omitempty"`
}

// GitHubConfig configures the GitHub repository source.
type GitHubConfig struct {
	TokenEnv string  `toml:"token_env,omitempty"`
	BaseURL  string  `toml:"base_url,omitempty"`
	Rate     float64 `toml:"rate,omitempty"`
}

// DefaultPath returns ~/.federa/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".federa", "config.toml"), nil
}

// Load reads and validates the configuration at path.
// A missing file yields an empty configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates TOML configuration. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, &domain.ConfigurationError{Reason: strict.String()}
		}
		return nil, &domain.ConfigurationError{Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path with restricted permissions.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks the configuration without contacting any source.
func (c *Config) Validate() error {
	switch c.Federation.FailurePolicy {
	case "", "fail", "partial":
	default:
		return &domain.ConfigurationError{
			Reason: fmt.Sprintf("unknown failure_policy %q", c.Federation.FailurePolicy),
		}
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if src.Key == "" {
			return &domain.ConfigurationError{Reason: fmt.Sprintf("sources[%d]: missing key", i)}
		}
		if seen[src.Key] {
			return &domain.ConfigurationError{SourceKey: src.Key, Reason: "duplicate source key"}
		}
		seen[src.Key] = true

		if err := src.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s SourceConfig) validate() error {
	fail := func(format string, args ...any) error {
		return &domain.ConfigurationError{SourceKey: s.Key, Reason: fmt.Sprintf(format, args...)}
	}

	if !slices.Contains(SourceTypes, s.Type) {
		return fail("unknown type %q", s.Type)
	}
	if err := s.Descriptor().Validate(); err != nil {
		return err
	}

	switch s.Type {
	case TypeMemory:
		if s.Memory == nil || s.Memory.ItemsFile == "" {
			return fail("memory.items_file is required")
		}
	case TypeSQLite:
		if s.SQLite == nil || s.SQLite.Path == "" {
			return fail("sqlite.path is required")
		}
	case TypePostgres:
		if s.Postgres == nil || (s.Postgres.DSN == "" && s.Postgres.DSNEnv == "") {
			return fail("postgres.dsn or postgres.dsn_env is required")
		}
	case TypeGraphQL:
		if s.GraphQL == nil || s.GraphQL.Endpoint == "" {
			return fail("graphql.endpoint is required")
		}
		if s.GraphQL.Rate < 0 || s.GraphQL.Burst < 0 {
			return fail("graphql.rate and graphql.burst must not be negative")
		}
	case TypeGitHub:
		if slices.Contains(s.Namespaces, domain.NamespaceWildcard) || s.Wildcard {
			return fail("github sources cannot be wildcards")
		}
		if len(s.Namespaces) == 0 {
			return fail("github sources need at least one owner namespace")
		}
	}
	return nil
}
