package browse

import "errors"

// ErrNoFederationService indicates that no federation service was provided.
var ErrNoFederationService = errors.New("federation service is required")
