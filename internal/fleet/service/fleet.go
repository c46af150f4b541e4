package service

import (
	"context"
	"time"

	"buscharter/internal/fleet/availability"
	"buscharter/internal/fleet/repository"
	fleetvalidator "buscharter/internal/fleet/validator"
	"buscharter/pkg/config"
	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/model"
	"buscharter/pkg/sanitizer"
	"buscharter/pkg/tenant"
	"buscharter/pkg/validator"

	"github.com/google/uuid"
)

type FleetService interface {
	CreateVehicle(ctx context.Context, vehicle *model.Vehicle) error
	GetVehicle(ctx context.Context, id string) (*model.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, update *model.VehicleUpdate) (*model.Vehicle, error)
	ListVehicles(ctx context.Context, filter model.VehicleFilter) ([]*model.Vehicle, error)
	ActivateVehicle(ctx context.Context, id string) error
	DeactivateVehicle(ctx context.Context, id string) error

	CreateDriver(ctx context.Context, driver *model.Driver) error
	GetDriver(ctx context.Context, id string) (*model.Driver, error)
	ListDrivers(ctx context.Context, activeOnly bool) ([]*model.Driver, error)
	DeactivateDriver(ctx context.Context, id string) error

	AvailableVehicles(ctx context.Context, start, end time.Time, category model.VehicleCategory) ([]*model.Vehicle, error)
	AvailableDrivers(ctx context.Context, start, end time.Time) ([]*model.Driver, error)
	AvailabilitySummary(ctx context.Context, start, end time.Time) (map[model.VehicleCategory]int, error)
}

type fleetService struct {
	vehicles  repository.VehicleRepository
	drivers   repository.DriverRepository
	engine    *availability.Engine
	validator *fleetvalidator.FleetValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewFleetService(
	vehicles repository.VehicleRepository,
	drivers repository.DriverRepository,
	engine *availability.Engine,
	validator *fleetvalidator.FleetValidator,
	cfg *config.Config,
) FleetService {
	return &fleetService{
		vehicles:  vehicles,
		drivers:   drivers,
		engine:    engine,
		validator: validator,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *fleetService) CreateVehicle(ctx context.Context, vehicle *model.Vehicle) error {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return apperrors.Unauthorized("Tenant scope is required")
	}

	now := s.now()
	vehicle.ID = uuid.NewString()
	vehicle.TenantID = scope.TenantID
	vehicle.Active = true
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now
	sanitizeVehicle(vehicle)

	if err := s.validator.ValidateVehicle(vehicle); err != nil {
		s.cfg.Log.WithScope(ctx).Warn("Vehicle validation failed", "plate_number", vehicle.PlateNumber, "error", err)
		return validator.ToAppError("Vehicle validation failed", err)
	}

	if err := s.vehicles.Create(ctx, vehicle); err != nil {
		return fail(ctx, s.cfg.Log, mapError(err, vehicle.ID), "Failed to create vehicle", "plate_number", vehicle.PlateNumber)
	}

	s.cfg.Log.WithScope(ctx).Info("Vehicle created successfully",
		"id", vehicle.ID,
		"plate_number", vehicle.PlateNumber,
		"category", vehicle.Category,
	)
	return nil
}

func (s *fleetService) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	vehicle, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, mapError(err, id), "Failed to get vehicle", "vehicle_id", id)
	}
	return vehicle, nil
}

func (s *fleetService) UpdateVehicle(ctx context.Context, id string, update *model.VehicleUpdate) (*model.Vehicle, error) {
	existing, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, mapError(err, id), "Failed to update vehicle", "vehicle_id", id)
	}

	sanitizeVehicleUpdate(update)
	merged := *existing
	mergeVehicleUpdate(&merged, update)
	if err := s.validator.ValidateVehicleUpdate(update, &merged); err != nil {
		s.cfg.Log.WithScope(ctx).Warn("Vehicle validation failed", "vehicle_id", id, "error", err)
		return nil, validator.ToAppError("Vehicle validation failed", err)
	}

	merged.UpdatedAt = s.now()
	if err := s.vehicles.Update(ctx, &merged); err != nil {
		return nil, fail(ctx, s.cfg.Log, mapError(err, id), "Failed to update vehicle", "vehicle_id", id)
	}

	s.cfg.Log.WithScope(ctx).Info("Vehicle updated successfully", "vehicle_id", id)
	return &merged, nil
}

func (s *fleetService) ListVehicles(ctx context.Context, filter model.VehicleFilter) ([]*model.Vehicle, error) {
	filter.Category = model.VehicleCategory(sanitizer.NormalizeCode(string(filter.Category)))
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, apperrors.InvalidInput("unknown vehicle category: " + string(filter.Category))
	}

	vehicles, err := s.vehicles.List(ctx, filter)
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, err, "Failed to list vehicles")
	}
	availability.SortVehicles(vehicles)
	if vehicles == nil {
		vehicles = []*model.Vehicle{}
	}
	return vehicles, nil
}

func (s *fleetService) ActivateVehicle(ctx context.Context, id string) error {
	return s.setVehicleActive(ctx, id, true)
}

// DeactivateVehicle keeps existing assignments. The vehicle only stops being
// offered for new ones.
func (s *fleetService) DeactivateVehicle(ctx context.Context, id string) error {
	return s.setVehicleActive(ctx, id, false)
}

func (s *fleetService) setVehicleActive(ctx context.Context, id string, active bool) error {
	if err := s.vehicles.SetActive(ctx, id, active); err != nil {
		return fail(ctx, s.cfg.Log, mapError(err, id), "Failed to change vehicle state", "vehicle_id", id)
	}
	s.cfg.Log.WithScope(ctx).Info("Vehicle state changed", "vehicle_id", id, "active", active)
	return nil
}

func (s *fleetService) CreateDriver(ctx context.Context, driver *model.Driver) error {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return apperrors.Unauthorized("Tenant scope is required")
	}

	now := s.now()
	driver.ID = uuid.NewString()
	driver.TenantID = scope.TenantID
	driver.Active = true
	driver.CreatedAt = now
	driver.UpdatedAt = now
	s.sanitizeDriver(driver)

	if err := s.validator.ValidateDriver(driver); err != nil {
		s.cfg.Log.WithScope(ctx).Warn("Driver validation failed", "full_name", driver.FullName, "error", err)
		return validator.ToAppError("Driver validation failed", err)
	}

	if err := s.drivers.Create(ctx, driver); err != nil {
		return fail(ctx, s.cfg.Log, mapError(err, driver.ID), "Failed to create driver")
	}

	s.cfg.Log.WithScope(ctx).Info("Driver created successfully", "id", driver.ID, "license_expiry", driver.LicenseExpiry)
	return nil
}

func (s *fleetService) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	driver, err := s.drivers.FindByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, mapError(err, id), "Failed to get driver", "driver_id", id)
	}
	return driver, nil
}

func (s *fleetService) ListDrivers(ctx context.Context, activeOnly bool) ([]*model.Driver, error) {
	drivers, err := s.drivers.List(ctx, activeOnly)
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, err, "Failed to list drivers")
	}
	if drivers == nil {
		drivers = []*model.Driver{}
	}
	return drivers, nil
}

func (s *fleetService) DeactivateDriver(ctx context.Context, id string) error {
	if err := s.drivers.SetActive(ctx, id, false); err != nil {
		return fail(ctx, s.cfg.Log, mapError(err, id), "Failed to deactivate driver", "driver_id", id)
	}
	s.cfg.Log.WithScope(ctx).Info("Driver deactivated", "driver_id", id)
	return nil
}

func (s *fleetService) AvailableVehicles(ctx context.Context, start, end time.Time, category model.VehicleCategory) ([]*model.Vehicle, error) {
	category = model.VehicleCategory(sanitizer.NormalizeCode(string(category)))
	if category != "" && !category.Valid() {
		return nil, apperrors.InvalidInput("unknown vehicle category: " + string(category))
	}
	vehicles, err := s.engine.Available(ctx, start, end, category)
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, err, "Failed to compute vehicle availability")
	}
	if vehicles == nil {
		vehicles = []*model.Vehicle{}
	}
	return vehicles, nil
}

func (s *fleetService) AvailableDrivers(ctx context.Context, start, end time.Time) ([]*model.Driver, error) {
	drivers, err := s.engine.DriversAvailable(ctx, start, end)
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, err, "Failed to compute driver availability")
	}
	if drivers == nil {
		drivers = []*model.Driver{}
	}
	return drivers, nil
}

func (s *fleetService) AvailabilitySummary(ctx context.Context, start, end time.Time) (map[model.VehicleCategory]int, error) {
	counts, err := s.engine.CountByCategory(ctx, start, end)
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, err, "Failed to compute availability summary")
	}
	return counts, nil
}

func sanitizeVehicle(v *model.Vehicle) {
	v.PlateNumber = sanitizer.NormalizePlate(v.PlateNumber)
	v.DisplayName = sanitizer.NormalizeName(v.DisplayName)
	v.Category = model.VehicleCategory(sanitizer.NormalizeCode(string(v.Category)))
	v.Ownership = model.Ownership(sanitizer.NormalizeCode(string(v.Ownership)))
	v.VendorName = sanitizer.NormalizeName(v.VendorName)
}

func sanitizeVehicleUpdate(u *model.VehicleUpdate) {
	if u.PlateNumber != nil {
		v := sanitizer.NormalizePlate(*u.PlateNumber)
		u.PlateNumber = &v
	}
	if u.DisplayName != nil {
		v := sanitizer.NormalizeName(*u.DisplayName)
		u.DisplayName = &v
	}
	if u.Category != nil {
		v := model.VehicleCategory(sanitizer.NormalizeCode(string(*u.Category)))
		u.Category = &v
	}
	if u.Ownership != nil {
		v := model.Ownership(sanitizer.NormalizeCode(string(*u.Ownership)))
		u.Ownership = &v
	}
	if u.VendorName != nil {
		v := sanitizer.NormalizeName(*u.VendorName)
		u.VendorName = &v
	}
}

func mergeVehicleUpdate(v *model.Vehicle, u *model.VehicleUpdate) {
	if u.PlateNumber != nil {
		v.PlateNumber = *u.PlateNumber
	}
	if u.DisplayName != nil {
		v.DisplayName = *u.DisplayName
	}
	if u.Category != nil {
		v.Category = *u.Category
	}
	if u.SeatCapacity != nil {
		v.SeatCapacity = *u.SeatCapacity
	}
	if u.Ownership != nil {
		v.Ownership = *u.Ownership
	}
	if u.VendorName != nil {
		v.VendorName = *u.VendorName
	}
}

// sanitizeDriver keeps the raw phone when it cannot be parsed so validation
// reports it.
func (s *fleetService) sanitizeDriver(d *model.Driver) {
	d.FullName = sanitizer.NormalizeName(d.FullName)
	d.Nickname = sanitizer.NormalizeName(d.Nickname)
	d.LicenseNumber = sanitizer.NormalizeCode(d.LicenseNumber)
	d.LicenseExpiry = d.LicenseExpiry.UTC()
	if phone := sanitizer.NormalizePhoneIn(d.Phone, s.cfg.PhoneRegion); phone != "" {
		d.Phone = phone
	}
}
