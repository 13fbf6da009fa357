package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when a uniqueness constraint is violated
	// (payment intent id, vehicle number, discount code).
	ErrDuplicate = errors.New("duplicate entity")

	// ErrLimitReached is returned when a guarded counter update finds no
	// remaining headroom.
	ErrLimitReached = errors.New("usage limit reached")
)
