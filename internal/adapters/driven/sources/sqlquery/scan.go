package sqlquery

import (
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/federa/internal/core/domain"
)

// Scanner is satisfied by *sql.Rows, *sql.Row and pgx.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanItem reads one row selected with Columns.
func ScanItem(d Dialect, row Scanner) (domain.Item, error) {
	var (
		ns, item, owners, attrs string
		createdAt               any
		it                      domain.Item
	)
	if err := row.Scan(&ns, &item, &createdAt, &it.Issuer, &it.MimeType,
		&it.Name, &it.Description, &it.URI, &owners, &attrs); err != nil {
		return domain.Item{}, fmt.Errorf("scan item: %w", err)
	}

	ts, err := d.ParseTime(createdAt)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item %s:%s: %w", ns, item, err)
	}
	it.ID = domain.NewCanonicalID(ns, item)
	it.CreatedAt = ts

	if owners != "" {
		if err := json.Unmarshal([]byte(owners), &it.Owners); err != nil {
			return domain.Item{}, fmt.Errorf("item %s: owners: %w", it.ID, err)
		}
		if len(it.Owners) == 0 {
			it.Owners = nil
		}
	}
	if attrs != "" {
		if err := json.Unmarshal([]byte(attrs), &it.Attributes); err != nil {
			return domain.Item{}, fmt.Errorf("item %s: attributes: %w", it.ID, err)
		}
	}
	return it, nil
}

// EncodeItem returns the owners and attributes columns of it.
func EncodeItem(it domain.Item) (owners, attrs string, err error) {
	ob, err := json.Marshal(nonNil(it.Owners))
	if err != nil {
		return "", "", err
	}
	if len(it.Attributes) == 0 {
		return string(ob), "", nil
	}
	ab, err := json.Marshal(it.Attributes)
	if err != nil {
		return "", "", err
	}
	return string(ob), string(ab), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
