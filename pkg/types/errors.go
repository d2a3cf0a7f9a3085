package types

import "errors"

// Value validation errors
var (
	// ErrUnknownBackend is returned when a backend name is not one of the supported kinds
	ErrUnknownBackend = errors.New("unknown backend type")

	// ErrUnknownCategory is returned when a stats category name is not recognized
	ErrUnknownCategory = errors.New("unknown stats category")
)
