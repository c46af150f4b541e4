// Package availability answers which vehicles and drivers are free for a time
// window. A resource is busy when a live assignment of a committed booking
// overlaps the window, endpoints included.
package availability

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"buscharter/internal/fleet/repository"
	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/model"
)

type Engine struct {
	vehicles    repository.VehicleRepository
	drivers     repository.DriverRepository
	assignments repository.AssignmentRepository
}

func New(vehicles repository.VehicleRepository, drivers repository.DriverRepository, assignments repository.AssignmentRepository) *Engine {
	return &Engine{
		vehicles:    vehicles,
		drivers:     drivers,
		assignments: assignments,
	}
}

func CheckWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperrors.Validation("Window start and end are required", map[string]any{
			"start": start,
			"end":   end,
		})
	}
	if end.Before(start) {
		return apperrors.Validation("Window end must not be before its start", map[string]any{
			"start": start,
			"end":   end,
		})
	}
	return nil
}

// Available lists the active vehicles free for the whole window, optionally
// restricted to one category.
func (e *Engine) Available(ctx context.Context, start, end time.Time, category model.VehicleCategory) ([]*model.Vehicle, error) {
	if err := CheckWindow(start, end); err != nil {
		return nil, err
	}

	vehicles, err := e.vehicles.Active(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load active vehicles: %w", err)
	}
	busy, err := e.assignments.BusyVehicleIDs(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load busy vehicles: %w", err)
	}

	free := slices.DeleteFunc(vehicles, func(v *model.Vehicle) bool {
		return slices.Contains(busy, v.ID)
	})
	SortVehicles(free)
	return free, nil
}

// DriversAvailable counts co-drivers as busy too.
func (e *Engine) DriversAvailable(ctx context.Context, start, end time.Time) ([]*model.Driver, error) {
	if err := CheckWindow(start, end); err != nil {
		return nil, err
	}

	drivers, err := e.drivers.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active drivers: %w", err)
	}
	busy, err := e.assignments.BusyDriverIDs(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load busy drivers: %w", err)
	}

	free := slices.DeleteFunc(drivers, func(d *model.Driver) bool {
		return slices.Contains(busy, d.ID)
	})
	slices.SortFunc(free, func(a, b *model.Driver) int {
		if c := cmp.Compare(a.FullName, b.FullName); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return free, nil
}

// CountByCategory reports free vehicles per category. Every known category is
// present, with zero when none is free.
func (e *Engine) CountByCategory(ctx context.Context, start, end time.Time) (map[model.VehicleCategory]int, error) {
	free, err := e.Available(ctx, start, end, "")
	if err != nil {
		return nil, err
	}

	counts := make(map[model.VehicleCategory]int, len(model.VehicleCategories))
	for _, c := range model.VehicleCategories {
		counts[c] = 0
	}
	for _, v := range free {
		counts[v.Category]++
	}
	return counts, nil
}

// IsVehicleFree ignores the vehicle's own assignment to excludeTripID so a trip
// can be checked against everything but itself.
func (e *Engine) IsVehicleFree(ctx context.Context, vehicleID string, start, end time.Time, excludeTripID string) (bool, error) {
	if err := CheckWindow(start, end); err != nil {
		return false, err
	}

	conflicts, err := e.assignments.Overlapping(ctx, vehicleID, start, end, excludeTripID)
	if err != nil {
		return false, fmt.Errorf("failed to check vehicle overlap: %w", err)
	}
	return len(conflicts) == 0, nil
}

// SortVehicles orders by category rank, display name, then id.
func SortVehicles(vehicles []*model.Vehicle) {
	slices.SortFunc(vehicles, func(a, b *model.Vehicle) int {
		if c := cmp.Compare(a.Category.Rank(), b.Category.Rank()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.DisplayName, b.DisplayName); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
