// Package sqlquery translates scoped federation queries into SQL for the
// relational catalog sources (sqlite, postgres).
//
// Both catalogs share one logical schema:
//
//	items(namespace, item, created_at, issuer, mime_type, name,
//	      description, uri, owners, attributes)
//	item_owners(namespace, item, owner)
//
// items.owners holds the owner list as a JSON array for reading;
// item_owners is the filterable projection of the same list.
package sqlquery
