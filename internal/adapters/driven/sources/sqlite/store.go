package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/federa/internal/adapters/driven/sources/sqlite/migrations"
	"github.com/custodia-labs/federa/internal/adapters/driven/sources/sqlquery"
	"github.com/custodia-labs/federa/internal/core/domain"
)

// Store is a SQLite item catalog.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns ~/.federa/data/catalog.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".federa", "data", "catalog.db"), nil
}

// Open opens or creates the catalog at path and applies pending migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL for concurrent readers; foreign keys on every pooled connection.
	db, err := sql.Open("sqlite",
		path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Put inserts or replaces items and their owner rows in one transaction.
func (s *Store) Put(ctx context.Context, items ...domain.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, it := range items {
		ns, item, err := domain.ParseCanonicalID(string(it.ID))
		if err != nil {
			return err
		}
		owners, attrs, err := sqlquery.EncodeItem(it)
		if err != nil {
			return fmt.Errorf("encoding item %s: %w", it.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO items (namespace, item, created_at, issuer, mime_type, name, description, uri, owners, attributes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(namespace, item) DO UPDATE SET
				created_at = excluded.created_at,
				issuer = excluded.issuer,
				mime_type = excluded.mime_type,
				name = excluded.name,
				description = excluded.description,
				uri = excluded.uri,
				owners = excluded.owners,
				attributes = excluded.attributes
		`, ns, item, it.CreatedAt.UnixMilli(), it.Issuer, it.MimeType,
			it.Name, it.Description, it.URI, owners, attrs); err != nil {
			return fmt.Errorf("saving item %s: %w", it.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM item_owners WHERE namespace = ? AND item = ?`, ns, item); err != nil {
			return fmt.Errorf("clearing owners of %s: %w", it.ID, err)
		}
		for _, owner := range it.Owners {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO item_owners (namespace, item, owner) VALUES (?, ?, ?)`,
				ns, item, owner); err != nil {
				return fmt.Errorf("saving owner of %s: %w", it.ID, err)
			}
		}
	}
	return tx.Commit()
}

// Delete removes an item. Returns domain.ErrNotFound if it does not exist.
func (s *Store) Delete(ctx context.Context, id domain.CanonicalID) error {
	ns, item, err := domain.ParseCanonicalID(string(id))
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE namespace = ? AND item = ?`, ns, item)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the number of stored items.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// Namespaces returns the distinct namespaces present in the catalog.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT namespace FROM items ORDER BY namespace`)
	if err != nil {
		return nil, fmt.Errorf("listing namespaces: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}

// query runs a scoped query against the catalog.
func (s *Store) query(ctx context.Context, q domain.Query) ([]domain.Item, error) {
	st, err := sqlquery.Build(sqlquery.SQLite, "items", q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var out []domain.Item
	for rows.Next() {
		it, err := sqlquery.ScanItem(sqlquery.SQLite, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_items.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

// errClosed reports use of a closed store.
var errClosed = errors.New("sqlite catalog is closed")
