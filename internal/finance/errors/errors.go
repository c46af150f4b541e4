package errors

import "errors"

var (
	ErrChargeNotFound = errors.New("charge not found")

	ErrInvalidID = errors.New("invalid charge ID format")
)
