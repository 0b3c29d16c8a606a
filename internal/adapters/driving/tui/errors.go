package tui

import "errors"

// ErrMissingFederationService is returned when the federation service is not provided.
var ErrMissingFederationService = errors.New("tui: federation service is required")

// ErrInvalidPorts is returned when no ports are given.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
