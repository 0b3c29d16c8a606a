// Package domain defines the core federation types for federa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Selector: A single-field constraint (Eq, NotEq, In, NotIn)
//   - Query: The canonical federated query
//   - CanonicalID: The namespace:item identifier used for routing and dedup
//   - SourceDescriptor: The routing identity of a configured source
//   - ResumeCursor: Per-source continuation state
//   - Item, Page: Normalised records and query results
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
