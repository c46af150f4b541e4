package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrStatusChanged means a compare-and-set status write lost to a
	// concurrent transition.
	ErrStatusChanged = errors.New("booking status changed concurrently")

	ErrDuplicateCode = errors.New("booking code already exists")

	ErrTripNotFound = errors.New("trip not found")
)
