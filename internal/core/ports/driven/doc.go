// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Source: Serves scoped queries against one indexer or catalog
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - FetchObserver: Receives per-source and per-query timings (metrics)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
