package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/federa/internal/core/domain"
)

// fakeRows implements pgx.Rows over in-memory values.
type fakeRows struct {
	rows [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.rows[r.pos-1], nil }

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *any:
			*p = row[i]
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

// fakeQuerier records the last statement and returns canned rows.
type fakeQuerier struct {
	sql  string
	args []any
	rows *fakeRows
	err  error
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql = sql
	q.args = args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func row(ns, item string, created time.Time, owners string) []any {
	return []any{ns, item, created, "tz1artist", "image/png", "name", "", "ipfs://x", owners, ""}
}

func TestSource_Fetch(t *testing.T) {
	created := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	db := &fakeQuerier{rows: &fakeRows{rows: [][]any{
		row("KT1", "7", created, `["tz1a","tz1b"]`),
		row("KT1", "6", created.Add(-time.Hour), `[]`),
	}}}
	src := NewSource(domain.NewSourceDescriptor("pg", []string{"KT1"}), db, "tokens")

	q := domain.Query{Limit: 2, Sort: domain.DefaultSort()}.WithFilter(domain.FieldOwner, domain.Eq("tz1a"))
	items, err := src.Fetch(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, domain.CanonicalID("KT1:7"), items[0].ID)
	assert.Equal(t, []string{"tz1a", "tz1b"}, items[0].Owners)
	assert.True(t, items[0].CreatedAt.Equal(created))
	assert.Nil(t, items[1].Owners)

	assert.Contains(t, db.sql, `FROM "tokens" i`)
	assert.Contains(t, db.sql, "o.owner IN ($1)")
	assert.Contains(t, db.sql, "LIMIT $2")
	assert.Equal(t, []any{"tz1a", 2}, db.args)
}

func TestSource_FetchErrors(t *testing.T) {
	src := NewSource(domain.NewSourceDescriptor("pg", nil), &fakeQuerier{err: errors.New("connection refused")}, "")
	_, err := src.Fetch(context.Background(), domain.Query{Limit: 1})
	assert.ErrorContains(t, err, "connection refused")
	assert.ErrorContains(t, err, `"items"`)

	bad := &fakeQuerier{rows: &fakeRows{rows: [][]any{
		{"KT1", "1", "not a time", "", "", "", "", "", "[]", ""},
	}}}
	src = NewSource(domain.NewSourceDescriptor("pg", nil), bad, "")
	_, err = src.Fetch(context.Background(), domain.Query{Limit: 1})
	assert.Error(t, err)

	failing := &fakeQuerier{rows: &fakeRows{err: errors.New("stream reset")}}
	src = NewSource(domain.NewSourceDescriptor("pg", nil), failing, "")
	_, err = src.Fetch(context.Background(), domain.Query{Limit: 1})
	assert.ErrorContains(t, err, "stream reset")
}

func TestSource_FetchRejectsMalformedID(t *testing.T) {
	db := &fakeQuerier{rows: &fakeRows{}}
	src := NewSource(domain.NewSourceDescriptor("pg", nil), db, "")

	_, err := src.Fetch(context.Background(), domain.Query{Limit: 1}.WithFilter(domain.FieldID, domain.Eq("nocolon")))
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, db.sql, "no statement is sent")
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, Schema, "CREATE TABLE IF NOT EXISTS items")
	assert.Contains(t, Schema, "item_owners")
}
