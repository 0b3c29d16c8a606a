package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/federa/internal/core/domain"
)

var (
	queryIDs     []string
	queryIssuers []string
	queryOwners  []string
	queryMimes   []string
	queryAfter   string
	queryBefore  string
	queryLimit   int
	queryOrder   string
	queryCursor  string
	queryFilter  string
	queryJSON    bool
	queryAll     bool
	queryPages   int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query items across all sources",
	Long: `Query the federated catalog.

Repeated flags match any of their values. --filter takes a raw JSON filter
for selectors the flags cannot express, such as {"owner":{"$neq":"tz1..."}};
flags are applied on top of it.

Examples:
  federa query --owner tz1abc --limit 10
  federa query --id KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton:42
  federa query --filter '{"mimeType":{"$in":["image/png","image/gif"]}}' --json
  federa query --owner tz1abc --cursor <cursor from previous page>`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.StringArrayVar(&queryIDs, "id", nil, "canonical item id namespace:item (repeatable)")
	f.StringArrayVar(&queryIssuers, "issuer", nil, "issuer address (repeatable)")
	f.StringArrayVar(&queryOwners, "owner", nil, "owner address (repeatable)")
	f.StringArrayVar(&queryMimes, "mime", nil, "MIME type (repeatable)")
	f.StringVar(&queryAfter, "after", "", "only items created after this RFC3339 time")
	f.StringVar(&queryBefore, "before", "", "only items created before this RFC3339 time")
	f.IntVarP(&queryLimit, "limit", "n", 0, "page size (default 50)")
	f.StringVar(&queryOrder, "order", "", "creation time order: desc, asc or none")
	f.StringVar(&queryCursor, "cursor", "", "resume cursor from a previous page")
	f.StringVar(&queryFilter, "filter", "", "raw JSON filter")
	f.BoolVar(&queryJSON, "json", false, "output pages as JSON")
	f.BoolVar(&queryAll, "all", false, "follow the cursor until every source is exhausted")
	f.IntVar(&queryPages, "max-pages", 0, "stop --all after this many pages (0 = no limit)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, _ []string) error {
	raw, err := buildFilter()
	if err != nil {
		return err
	}
	cursor, err := domain.DecodeResumeCursor(queryCursor)
	if err != nil {
		return err
	}

	svc, err := federationService(cmd)
	if err != nil {
		return err
	}

	out := newPrinter(cmd)
	ctx := commandContext(cmd)
	for pages := 1; ; pages++ {
		if cursor.Exhausted() {
			out.done()
			return nil
		}
		page, err := svc.Query(ctx, raw, cursor)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}

		next := ""
		if len(page.Cursor) > 0 {
			if next, err = page.Cursor.Encode(); err != nil {
				return err
			}
		}
		if queryJSON {
			if err := out.pageJSON(page, next); err != nil {
				return err
			}
		} else {
			out.page(page, next)
		}

		if !queryAll || next == "" || (queryPages > 0 && pages >= queryPages) {
			return nil
		}
		cursor = page.Cursor
	}
}

// buildFilter merges --filter with the field flags.
func buildFilter() (domain.RawFilter, error) {
	raw := domain.RawFilter{}
	if queryFilter != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(queryFilter)))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse --filter: %w", err)
		}
	}

	setValues(raw, string(domain.FieldID), queryIDs)
	setValues(raw, string(domain.FieldIssuer), queryIssuers)
	setValues(raw, string(domain.FieldOwner), queryOwners)
	setValues(raw, string(domain.FieldMimeType), queryMimes)

	if queryAfter != "" {
		raw["after"] = queryAfter
	}
	if queryBefore != "" {
		raw["before"] = queryBefore
	}
	if queryLimit != 0 {
		raw["limit"] = queryLimit
	}
	switch queryOrder {
	case "":
	case "none":
		delete(raw, "sort")
		raw["orderBy"] = map[string]any{}
	default:
		delete(raw, "sort")
		raw["orderBy"] = queryOrder
	}
	return raw, nil
}

// setValues sets a flag's values on raw: one value as a scalar, several as
// an array. The tid alias is dropped when id is set.
func setValues(raw domain.RawFilter, key string, values []string) {
	switch len(values) {
	case 0:
		return
	case 1:
		raw[key] = values[0]
	default:
		raw[key] = values
	}
	if key == string(domain.FieldID) {
		delete(raw, string(domain.FieldTID))
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
