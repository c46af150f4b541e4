package validator

import (
	"time"

	"buscharter/pkg/logger"
	"buscharter/pkg/model"
	"buscharter/pkg/validator"
)

type BookingValidator struct {
	*validator.Validator
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := &BookingValidator{Validator: validator.New(log)}
	log.Info("Booking validator initialized successfully")
	return v
}

func (v *BookingValidator) ValidateCreate(in *model.BookingCreate) error {
	return v.Struct(in)
}

func (v *BookingValidator) ValidateTrip(in *model.TripInput) error {
	return v.Struct(in)
}

func (v *BookingValidator) ValidateTransition(in *model.TransitionRequest) error {
	return v.Struct(in)
}

// ValidateTripUpdate checks the patch on its own, then the window the trip
// would have once the patch is applied.
func (v *BookingValidator) ValidateTripUpdate(update *model.TripUpdate, start, end time.Time) error {
	if err := v.Struct(update); err != nil {
		return err
	}
	if !end.After(start) {
		return validator.Field("end_time", "end_time must be after start_time")
	}
	return nil
}
