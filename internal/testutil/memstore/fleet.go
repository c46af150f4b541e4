package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	fleeterrors "buscharter/internal/fleet/errors"
	"buscharter/internal/fleet/repository"
	mongotx "buscharter/pkg/db/mongo"
	"buscharter/pkg/model"

	"github.com/google/uuid"
)

func checkFleetID(id string) error {
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("%w: %s", fleeterrors.ErrInvalidID, id)
	}
	return nil
}

type vehicleRepo struct{ s *Store }

func (s *Store) Vehicles() repository.VehicleRepository { return &vehicleRepo{s} }

func (r *vehicleRepo) plateTaken(tenantID, plate, exceptID string) bool {
	for _, v := range r.s.data.vehicles {
		if v.TenantID == tenantID && v.PlateNumber == plate && v.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *vehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.plateTaken(tenantID, v.PlateNumber, "") {
		return fmt.Errorf("%w: %s", fleeterrors.ErrDuplicatePlate, v.PlateNumber)
	}
	r.s.data.vehicles[v.ID] = *v
	r.s.data.touch(v.ID)
	return nil
}

func (r *vehicleRepo) get(ctx context.Context, id string) (model.Vehicle, error) {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return model.Vehicle{}, err
	}
	v, ok := r.s.data.vehicles[id]
	if !ok || v.TenantID != tenantID {
		return model.Vehicle{}, fleeterrors.ErrVehicleNotFound
	}
	return v, nil
}

func (r *vehicleRepo) FindByID(ctx context.Context, id string) (*model.Vehicle, error) {
	if err := checkFleetID(id); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vehicleRepo) Update(ctx context.Context, v *model.Vehicle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, err := r.get(ctx, v.ID)
	if err != nil {
		return err
	}
	if r.plateTaken(existing.TenantID, v.PlateNumber, v.ID) {
		return fmt.Errorf("%w: %s", fleeterrors.ErrDuplicatePlate, v.PlateNumber)
	}
	updated := *v
	updated.Active = existing.Active
	r.s.data.vehicles[v.ID] = updated
	return nil
}

func (r *vehicleRepo) SetActive(ctx context.Context, id string, active bool) error {
	if err := checkFleetID(id); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, err := r.get(ctx, id)
	if err != nil {
		return err
	}
	v.Active = active
	r.s.data.vehicles[id] = v
	return nil
}

func (r *vehicleRepo) List(ctx context.Context, f model.VehicleFilter) ([]*model.Vehicle, error) {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Vehicle
	for _, v := range r.s.data.vehicles {
		if v.TenantID != tenantID {
			continue
		}
		if f.Category != "" && v.Category != f.Category {
			continue
		}
		if f.ActiveOnly && !v.Active {
			continue
		}
		v := v
		out = append(out, &v)
	}
	slices.SortFunc(out, func(a, b *model.Vehicle) int {
		if c := cmp.Compare(a.DisplayName, b.DisplayName); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *vehicleRepo) Active(ctx context.Context, category model.VehicleCategory) ([]*model.Vehicle, error) {
	return r.List(ctx, model.VehicleFilter{Category: category, ActiveOnly: true})
}

type driverRepo struct{ s *Store }

func (s *Store) Drivers() repository.DriverRepository { return &driverRepo{s} }

func (r *driverRepo) Create(ctx context.Context, d *model.Driver) error {
	if _, err := tenantOf(ctx); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.drivers[d.ID] = *d
	r.s.data.touch(d.ID)
	return nil
}

func (r *driverRepo) FindByID(ctx context.Context, id string) (*model.Driver, error) {
	if err := checkFleetID(id); err != nil {
		return nil, err
	}
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.data.drivers[id]
	if !ok || d.TenantID != tenantID {
		return nil, fleeterrors.ErrDriverNotFound
	}
	return &d, nil
}

func (r *driverRepo) SetActive(ctx context.Context, id string, active bool) error {
	if err := checkFleetID(id); err != nil {
		return err
	}
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.data.drivers[id]
	if !ok || d.TenantID != tenantID {
		return fleeterrors.ErrDriverNotFound
	}
	d.Active = active
	r.s.data.drivers[id] = d
	return nil
}

func (r *driverRepo) List(ctx context.Context, activeOnly bool) ([]*model.Driver, error) {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Driver
	for _, d := range r.s.data.drivers {
		if d.TenantID != tenantID || (activeOnly && !d.Active) {
			continue
		}
		d := d
		out = append(out, &d)
	}
	slices.SortFunc(out, func(a, b *model.Driver) int {
		if c := cmp.Compare(a.FullName, b.FullName); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *driverRepo) Active(ctx context.Context) ([]*model.Driver, error) {
	return r.List(ctx, true)
}

type assignmentRepo struct{ s *Store }

func (s *Store) Assignments() repository.AssignmentRepository { return &assignmentRepo{s} }

func (r *assignmentRepo) Create(ctx context.Context, a *model.Assignment) error {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("assignments.create"); err != nil {
		return err
	}
	if a.Live {
		for _, existing := range r.s.data.assignments {
			if existing.TenantID == tenantID && existing.Live &&
				existing.VehicleID == a.VehicleID && existing.TripID == a.TripID {
				return fmt.Errorf("%w: vehicle %s trip %s", fleeterrors.ErrDuplicateAssignment, a.VehicleID, a.TripID)
			}
		}
	}
	r.s.data.assignments[a.ID] = *a
	r.s.data.touch(a.ID)
	return nil
}

func (r *assignmentRepo) FindByID(ctx context.Context, id string) (*model.Assignment, error) {
	if err := checkFleetID(id); err != nil {
		return nil, err
	}
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.data.assignments[id]
	if !ok || a.TenantID != tenantID {
		return nil, fleeterrors.ErrAssignmentNotFound
	}
	return &a, nil
}

func (r *assignmentRepo) UpdateStatus(ctx context.Context, a *model.Assignment) error {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.data.assignments[a.ID]
	if !ok || existing.TenantID != tenantID {
		return fleeterrors.ErrAssignmentNotFound
	}
	existing.Status = a.Status
	existing.Live = a.Live
	existing.UpdatedAt = a.UpdatedAt
	if a.StartKm != nil {
		v := *a.StartKm
		existing.StartKm = &v
	}
	if a.EndKm != nil {
		v := *a.EndKm
		existing.EndKm = &v
	}
	r.s.data.assignments[a.ID] = existing
	return nil
}

// selectWhere returns copies of the tenant's assignments matching keep.
func (r *assignmentRepo) selectWhere(ctx context.Context, keep func(a model.Assignment) bool) ([]*model.Assignment, error) {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Assignment
	for _, a := range r.s.data.assignments {
		if a.TenantID == tenantID && keep(a) {
			a := a
			out = append(out, &a)
		}
	}
	slices.SortFunc(out, func(a, b *model.Assignment) int {
		if c := a.TripStart.Compare(b.TripStart); c != 0 {
			return c
		}
		return cmp.Compare(r.s.data.order[a.ID], r.s.data.order[b.ID])
	})
	return out, nil
}

func reserves(a model.Assignment) bool {
	return a.Live && a.BookingStatus.Committed()
}

func overlaps(a model.Assignment, start, end time.Time, excludeTripID string) bool {
	return reserves(a) &&
		(excludeTripID == "" || a.TripID != excludeTripID) &&
		model.WindowsOverlap(a.TripStart, a.TripEnd, start, end)
}

func (r *assignmentRepo) Overlapping(ctx context.Context, vehicleID string, start, end time.Time, excludeTripID string) ([]*model.Assignment, error) {
	return r.selectWhere(ctx, func(a model.Assignment) bool {
		return a.VehicleID == vehicleID && overlaps(a, start, end, excludeTripID)
	})
}

func (r *assignmentRepo) NearestBefore(ctx context.Context, vehicleID string, t time.Time, excludeTripID string) (*model.Assignment, error) {
	candidates, err := r.selectWhere(ctx, func(a model.Assignment) bool {
		return a.VehicleID == vehicleID && reserves(a) && a.TripEnd.Before(t) &&
			(excludeTripID == "" || a.TripID != excludeTripID)
	})
	if err != nil || len(candidates) == 0 {
		return nil, err
	}
	return slices.MaxFunc(candidates, func(a, b *model.Assignment) int {
		return a.TripEnd.Compare(b.TripEnd)
	}), nil
}

func (r *assignmentRepo) NearestAfter(ctx context.Context, vehicleID string, t time.Time, excludeTripID string) (*model.Assignment, error) {
	candidates, err := r.selectWhere(ctx, func(a model.Assignment) bool {
		return a.VehicleID == vehicleID && reserves(a) && a.TripStart.After(t) &&
			(excludeTripID == "" || a.TripID != excludeTripID)
	})
	if err != nil || len(candidates) == 0 {
		return nil, err
	}
	return candidates[0], nil
}

func (r *assignmentRepo) DriverOverlapping(ctx context.Context, driverID string, start, end time.Time, excludeTripID string) ([]*model.Assignment, error) {
	return r.selectWhere(ctx, func(a model.Assignment) bool {
		return a.UsesDriver(driverID) && overlaps(a, start, end, excludeTripID)
	})
}

func (r *assignmentRepo) BusyVehicleIDs(ctx context.Context, start, end time.Time) ([]string, error) {
	busy, err := r.selectWhere(ctx, func(a model.Assignment) bool { return overlaps(a, start, end, "") })
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, a := range busy {
		ids = append(ids, a.VehicleID)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (r *assignmentRepo) BusyDriverIDs(ctx context.Context, start, end time.Time) ([]string, error) {
	busy, err := r.selectWhere(ctx, func(a model.Assignment) bool { return overlaps(a, start, end, "") })
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, a := range busy {
		if a.DriverID != "" {
			ids = append(ids, a.DriverID)
		}
		if a.CoDriverID != "" {
			ids = append(ids, a.CoDriverID)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (r *assignmentRepo) SyncBookingStatus(ctx context.Context, bookingID string, status model.BookingStatus) error {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, a := range r.s.data.assignments {
		if a.TenantID == tenantID && a.BookingID == bookingID {
			a.BookingStatus = status
			r.s.data.assignments[id] = a
		}
	}
	return nil
}

func (r *assignmentRepo) CancelByBooking(ctx context.Context, bookingID string) (int64, error) {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return 0, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, a := range r.s.data.assignments {
		if a.TenantID == tenantID && a.BookingID == bookingID && a.Live {
			a.Status = model.AssignmentCancelled
			a.Live = false
			a.UpdatedAt = time.Now().UTC()
			r.s.data.assignments[id] = a
			n++
		}
	}
	return n, nil
}

func (r *assignmentRepo) ByTrip(ctx context.Context, tripID string) ([]*model.Assignment, error) {
	return r.selectWhere(ctx, func(a model.Assignment) bool { return a.TripID == tripID })
}

func (r *assignmentRepo) ByBooking(ctx context.Context, bookingID string) ([]*model.Assignment, error) {
	return r.selectWhere(ctx, func(a model.Assignment) bool { return a.BookingID == bookingID })
}

func (r *assignmentRepo) Dispatch(ctx context.Context, from, to time.Time) ([]*model.Assignment, error) {
	return r.selectWhere(ctx, func(a model.Assignment) bool {
		return a.Live && a.BookingStatus.Assignable() &&
			!a.TripStart.Before(from) && a.TripStart.Before(to)
	})
}

func (r *assignmentRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.s.ExecuteTransaction(ctx, fn)
}

type fenceRepo struct{ s *Store }

func (s *Store) Fences() repository.FenceRepository { return &fenceRepo{s} }

func (r *fenceRepo) Touch(ctx context.Context, vehicleID string) error {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.fences[tenantID+"|"+vehicleID]++
	return nil
}

// FenceCount reports how often a vehicle's fence was bumped by committed
// transactions.
func (s *Store) FenceCount(tenantID, vehicleID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.fences[tenantID+"|"+vehicleID]
}

// BookingFenceCount reports how often a booking was fenced by committed
// transactions.
func (s *Store) BookingFenceCount(bookingID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.fences["booking|"+bookingID]
}

type locker struct{ s *Store }

func (s *Store) Locker() repository.VehicleLocker { return &locker{s} }

func (l *locker) Acquire(ctx context.Context, vehicleID, owner string, ttl time.Duration) (bool, error) {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return false, err
	}

	l.s.lockMu.Lock()
	defer l.s.lockMu.Unlock()
	key := tenantID + "|" + vehicleID
	now := l.s.now()
	if held, ok := l.s.locks[key]; ok && now.Before(held.expiresAt) {
		return false, nil
	}
	l.s.locks[key] = lockEntry{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (l *locker) Release(ctx context.Context, vehicleID, owner string) error {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return err
	}

	l.s.lockMu.Lock()
	defer l.s.lockMu.Unlock()
	key := tenantID + "|" + vehicleID
	if held, ok := l.s.locks[key]; ok && held.owner == owner {
		delete(l.s.locks, key)
	}
	return nil
}
