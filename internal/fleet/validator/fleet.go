package validator

import (
	"buscharter/pkg/logger"
	"buscharter/pkg/model"
	"buscharter/pkg/validator"
)

type FleetValidator struct {
	*validator.Validator
}

func NewFleetValidator(log *logger.Logger) *FleetValidator {
	v := &FleetValidator{Validator: validator.New(log)}
	log.Info("Fleet validator initialized successfully")
	return v
}

func (v *FleetValidator) ValidateVehicle(vehicle *model.Vehicle) error {
	return v.Struct(vehicle)
}

// ValidateVehicleUpdate checks the patch, then the vehicle it would produce so
// a partner vehicle cannot lose its vendor name.
func (v *FleetValidator) ValidateVehicleUpdate(update *model.VehicleUpdate, merged *model.Vehicle) error {
	if err := v.Struct(update); err != nil {
		return err
	}
	return v.Struct(merged)
}

func (v *FleetValidator) ValidateDriver(driver *model.Driver) error {
	return v.Struct(driver)
}

func (v *FleetValidator) ValidateAssign(req *model.AssignRequest) error {
	return v.Struct(req)
}
