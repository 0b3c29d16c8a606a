// Package github provides a catalog source over GitHub repositories.
//
// Namespaces are user or organisation logins, and each repository is an
// item with CanonicalID "owner:repo", created at the repository's creation
// time. Identifier lookups fetch repositories directly; other queries list
// the owners' repositories newest or oldest first and evaluate the
// remaining filters in process.
//
// Requests are throttled by a RateLimiter that combines a token bucket
// with the quota reported in GitHub's X-RateLimit headers.
package github
