package errors

import "errors"

var (
	ErrVehicleNotFound = errors.New("vehicle not found")

	ErrDriverNotFound = errors.New("driver not found")

	ErrAssignmentNotFound = errors.New("assignment not found")

	ErrInvalidID = errors.New("invalid fleet ID format")

	ErrDuplicatePlate = errors.New("plate number already registered")

	// ErrDuplicateAssignment is raised by the live (tenant, vehicle, trip)
	// unique index.
	ErrDuplicateAssignment = errors.New("vehicle already assigned to trip")
)
