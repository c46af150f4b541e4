package errors

import "errors"

var (
	ErrNotFound = errors.New("customer not found")

	ErrInvalidID = errors.New("invalid customer ID format")

	ErrDuplicatePhone = errors.New("customer phone already registered")
)
