package service

import (
	"testing"

	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBus(plate, name string) *model.Vehicle {
	return &model.Vehicle{
		PlateNumber:  plate,
		DisplayName:  name,
		Category:     "big_bus",
		SeatCapacity: 45,
		Ownership:    "owned",
	}
}

func TestCreateVehicle(t *testing.T) {
	f := newFixture(t)

	v := newBus(" b-1234-xy ", "  Big   Blue ")
	require.NoError(t, f.fleet.CreateVehicle(f.ctx, v))
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "tenant-a", v.TenantID)
	assert.Equal(t, "B 1234 XY", v.PlateNumber)
	assert.Equal(t, "Big Blue", v.DisplayName)
	assert.Equal(t, model.CategoryBigBus, v.Category)
	assert.True(t, v.Active)

	err := f.fleet.CreateVehicle(f.ctx, newBus("B 1234 XY", "Copy"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestCreateVehicle_Validation(t *testing.T) {
	f := newFixture(t)

	partner := newBus("B 1 PT", "Rental")
	partner.Ownership = model.OwnershipPartner
	err := f.fleet.CreateVehicle(f.ctx, partner)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "partner vehicles need a vendor")

	odd := newBus("B 2 PT", "Odd")
	odd.Category = "TRAIN"
	err = f.fleet.CreateVehicle(f.ctx, odd)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestUpdateVehicle(t *testing.T) {
	f := newFixture(t)
	v := newBus("B 1 AA", "One")
	require.NoError(t, f.fleet.CreateVehicle(f.ctx, v))
	require.NoError(t, f.fleet.CreateVehicle(f.ctx, newBus("B 2 AA", "Two")))

	name := "Renamed"
	seats := 30
	updated, err := f.fleet.UpdateVehicle(f.ctx, v.ID, &model.VehicleUpdate{DisplayName: &name, SeatCapacity: &seats})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.DisplayName)
	assert.Equal(t, 30, updated.SeatCapacity)
	assert.Equal(t, "B 1 AA", updated.PlateNumber)

	partner := model.OwnershipPartner
	_, err = f.fleet.UpdateVehicle(f.ctx, v.ID, &model.VehicleUpdate{Ownership: &partner})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	taken := "b-2-aa"
	_, err = f.fleet.UpdateVehicle(f.ctx, v.ID, &model.VehicleUpdate{PlateNumber: &taken})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = f.fleet.UpdateVehicle(f.ctx, uuid.NewString(), &model.VehicleUpdate{DisplayName: &name})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestListVehicles_FiltersAndOrder(t *testing.T) {
	f := newFixture(t)
	hiace := newBus("B 3 HC", "Alpha")
	hiace.Category = model.CategoryHiace
	require.NoError(t, f.fleet.CreateVehicle(f.ctx, hiace))
	zulu := newBus("B 1 BB", "Zulu")
	require.NoError(t, f.fleet.CreateVehicle(f.ctx, zulu))
	require.NoError(t, f.fleet.CreateVehicle(f.ctx, newBus("B 2 BB", "Bravo")))
	require.NoError(t, f.fleet.DeactivateVehicle(f.ctx, zulu.ID))

	all, err := f.fleet.ListVehicles(f.ctx, model.VehicleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Bravo", all[0].DisplayName)
	assert.Equal(t, "Zulu", all[1].DisplayName)
	assert.Equal(t, "Alpha", all[2].DisplayName)

	active, err := f.fleet.ListVehicles(f.ctx, model.VehicleFilter{ActiveOnly: true, Category: "big_bus"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Bravo", active[0].DisplayName)

	_, err = f.fleet.ListVehicles(f.ctx, model.VehicleFilter{Category: "BOAT"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestDeactivateVehicle_RemovesFromAvailability(t *testing.T) {
	f := newFixture(t)
	v := newBus("B 9 ZZ", "Bus")
	require.NoError(t, f.fleet.CreateVehicle(f.ctx, v))

	free, err := f.fleet.AvailableVehicles(f.ctx, day(1), day(2), "")
	require.NoError(t, err)
	assert.Len(t, free, 1)

	require.NoError(t, f.fleet.DeactivateVehicle(f.ctx, v.ID))
	free, err = f.fleet.AvailableVehicles(f.ctx, day(1), day(2), "")
	require.NoError(t, err)
	assert.Empty(t, free)
	assert.NotNil(t, free)

	require.NoError(t, f.fleet.ActivateVehicle(f.ctx, v.ID))
	got, err := f.fleet.GetVehicle(f.ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)

	err = f.fleet.DeactivateVehicle(f.ctx, uuid.NewString())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestAvailability_ReflectsAssignments(t *testing.T) {
	f := newFixture(t)
	busy := f.vehicle(t, true)
	f.vehicle(t, true)
	budi := f.driver(t, "Budi", day(365))
	f.driver(t, "Agus", day(365))
	trip := f.trip(t, day(1), day(3))

	_, err := f.svc.Assign(f.ctx, &model.AssignRequest{TripID: trip.ID, VehicleID: busy.ID, DriverID: budi.ID})
	require.NoError(t, err)

	free, err := f.fleet.AvailableVehicles(f.ctx, day(2), day(4), model.CategoryBigBus)
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.NotEqual(t, busy.ID, free[0].ID)

	drivers, err := f.fleet.AvailableDrivers(f.ctx, day(2), day(4))
	require.NoError(t, err)
	require.Len(t, drivers, 1)
	assert.Equal(t, "Agus", drivers[0].FullName)

	counts, err := f.fleet.AvailabilitySummary(f.ctx, day(2), day(4))
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.CategoryBigBus])

	_, err = f.fleet.AvailableVehicles(f.ctx, day(4), day(2), "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = f.fleet.AvailableVehicles(f.ctx, day(1), day(2), "SUBMARINE")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestCreateDriver(t *testing.T) {
	f := newFixture(t)

	d := &model.Driver{
		FullName:      "  budi   santoso ",
		Phone:         "0812-3456-7890",
		LicenseNumber: "sim-001",
		LicenseExpiry: day(400),
	}
	require.NoError(t, f.fleet.CreateDriver(f.ctx, d))
	assert.Equal(t, "+6281234567890", d.Phone)
	assert.Equal(t, "SIM-001", d.LicenseNumber)
	assert.True(t, d.Active)

	got, err := f.fleet.GetDriver(f.ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.FullName, got.FullName)

	bad := &model.Driver{FullName: "Agus", Phone: "not a phone", LicenseNumber: "SIM-002", LicenseExpiry: day(400)}
	err = f.fleet.CreateDriver(f.ctx, bad)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestDeactivateDriver(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, "Budi", day(365))
	f.driver(t, "Agus", day(365))

	require.NoError(t, f.fleet.DeactivateDriver(f.ctx, d.ID))

	active, err := f.fleet.ListDrivers(f.ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Agus", active[0].FullName)

	all, err := f.fleet.ListDrivers(f.ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	trip := f.trip(t, day(1), day(2))
	v := f.vehicle(t, true)
	_, err = f.svc.Assign(f.ctx, &model.AssignRequest{TripID: trip.ID, VehicleID: v.ID, DriverID: d.ID})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}
