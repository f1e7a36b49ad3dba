package aggregator

import "errors"

// Error kinds. Callers classify with errors.Is.
var (
	ErrClientInput      = errors.New("invalid request")
	ErrUpstreamProvider = errors.New("provider error")
	ErrInternal         = errors.New("internal error")
)
