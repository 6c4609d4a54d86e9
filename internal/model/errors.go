package model

import "errors"

var (
	// ErrNotFound is returned by stores when no row matches the query.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned by stores when an insert violates a
	// uniqueness constraint.
	ErrDuplicate = errors.New("duplicate")
)
