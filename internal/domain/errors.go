package domain

import "errors"

var (
	// ErrNotFound marks a lookup that matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrUnresolved marks an item whose generation attempts ran out; the
	// pipeline answers it with the placeholder.
	ErrUnresolved = errors.New("image unresolved")

	// ErrInvalidImage marks bytes that are not a usable image payload.
	ErrInvalidImage = errors.New("invalid image payload")
)
