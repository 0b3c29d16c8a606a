package graphql

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrMalformedResponse indicates a response body that could not be mapped to items.
var ErrMalformedResponse = errors.New("graphql: malformed response")

// APIError is a non-success HTTP status or a GraphQL errors payload.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graphql: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// RateLimitError reports an HTTP 429 from the indexer.
type RateLimitError struct {
	RetryAfter time.Duration
	URL        string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("graphql: rate limited by %s, retry after %s", e.URL, e.RetryAfter)
	}
	return fmt.Sprintf("graphql: rate limited by %s", e.URL)
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsQueryError checks if the indexer rejected the GraphQL document or variables.
func IsQueryError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusOK || apiErr.StatusCode == http.StatusBadRequest
	}
	return false
}
