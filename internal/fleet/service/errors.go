package service

import (
	"context"
	"errors"

	bookingserrors "buscharter/internal/bookings/errors"
	fleeterrors "buscharter/internal/fleet/errors"
	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/logger"
	"buscharter/pkg/tenant"
)

// mapError converts repository sentinels. Anything it does not recognise is
// returned unchanged for fail to report as internal.
func mapError(err error, id string) error {
	switch {
	case err == nil:
		return nil
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, fleeterrors.ErrVehicleNotFound):
		return apperrors.NotFoundWithID("Vehicle", id)
	case errors.Is(err, fleeterrors.ErrDriverNotFound):
		return apperrors.NotFoundWithID("Driver", id)
	case errors.Is(err, fleeterrors.ErrAssignmentNotFound):
		return apperrors.NotFoundWithID("Assignment", id)
	case errors.Is(err, bookingserrors.ErrTripNotFound):
		return apperrors.NotFoundWithID("Trip", id)
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, fleeterrors.ErrInvalidID), errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid ID format: " + id)
	case errors.Is(err, fleeterrors.ErrDuplicatePlate):
		return apperrors.Conflict("Plate number is already registered")
	case errors.Is(err, tenant.ErrMissingScope):
		return apperrors.Unauthorized("Tenant scope is required")
	}
	return err
}

func fail(ctx context.Context, log *logger.Logger, err error, message string, attrs ...any) error {
	err = mapError(err, "")
	if apperrors.IsAppError(err) {
		log.WithScope(ctx).Warn(message, append(attrs, "error", err)...)
		return err
	}
	log.WithScope(ctx).Error(message, append(attrs, "error", err)...)
	return apperrors.Internal(message, err)
}
