package upstream

import "errors"

// ErrEmptyName is returned when a lookup is attempted without a name.
var ErrEmptyName = errors.New("pokemon name is required")

// Error is any failure to obtain an answer from the upstream: transport
// failures, non-2xx statuses, undecodable bodies and GraphQL errors. Its
// message is shown to the user as is.
type Error struct {
	// Op is the GraphQL operation name.
	Op string
	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }
