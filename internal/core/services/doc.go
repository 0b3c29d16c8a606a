// Package services implements the driving port interfaces.
// Services contain the federation logic: query normalisation, namespace
// routing, concurrent fan-out to sources and result pagination.
//
// Services are pure Go with no CGO; the only external dependencies are
// errgroup for fan-out and uuid for query IDs.
package services
