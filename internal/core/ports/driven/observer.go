package driven

import "time"

// FetchObserver receives timing and outcome of federated queries.
// Implementations must be safe for concurrent use.
type FetchObserver interface {
	// ObserveFetch records one source fetch.
	ObserveFetch(source string, elapsed time.Duration, items int, err error)

	// ObserveQuery records one federated query.
	ObserveQuery(elapsed time.Duration, items int, err error)
}
