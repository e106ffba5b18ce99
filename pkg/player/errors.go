package player

import "errors"

// Request-level failures. Messages are written to be shown to callers as-is.
var (
	ErrEmptyInput       = errors.New("No data received")
	ErrMalformedJSON    = errors.New("JSON decode error")
	ErrNotArray         = errors.New("Expected JSON array, received something else")
	ErrWrongShape       = errors.New("JSON data format is invalid.")
	ErrUnknownOperation = errors.New("unexpected operation code")
)
