package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"buscharter/internal/bookings/lifecycle"
	bookingsrepo "buscharter/internal/bookings/repository"
	fleeterrors "buscharter/internal/fleet/errors"
	"buscharter/internal/fleet/repository"
	fleetvalidator "buscharter/internal/fleet/validator"
	"buscharter/pkg/config"
	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/model"
	"buscharter/pkg/notify"
	"buscharter/pkg/tenant"
	"buscharter/pkg/validator"

	"github.com/google/uuid"
)

type AssignmentService interface {
	Assign(ctx context.Context, req *model.AssignRequest) (*model.AssignResult, error)
	Get(ctx context.Context, id string) (*model.Assignment, error)
	Start(ctx context.Context, id string, startKm int) (*model.Assignment, error)
	Complete(ctx context.Context, id string, endKm int) (*model.Assignment, error)
	Cancel(ctx context.Context, id string) (*model.Assignment, error)
	ListByTrip(ctx context.Context, tripID string) ([]*model.Assignment, error)
	DispatchBoard(ctx context.Context, from, to time.Time) ([]*model.Assignment, error)
}

// BookingApplier is the in-transaction half of the booking lifecycle.
type BookingApplier interface {
	Apply(ctx context.Context, booking *model.Booking, target model.BookingStatus) error
}

var assignmentTransitions = map[model.AssignmentStatus][]model.AssignmentStatus{
	model.AssignmentScheduled:  {model.AssignmentInProgress, model.AssignmentCancelled},
	model.AssignmentInProgress: {model.AssignmentCompleted},
}

func canMoveAssignment(from, to model.AssignmentStatus) bool {
	return slices.Contains(assignmentTransitions[from], to)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	fences      repository.FenceRepository
	locker      repository.VehicleLocker
	vehicles    repository.VehicleRepository
	drivers     repository.DriverRepository
	trips       bookingsrepo.TripRepository
	bookings    bookingsrepo.BookingRepository
	lifecycle   BookingApplier
	validator   *fleetvalidator.FleetValidator
	publisher   notify.Publisher
	cfg         *config.Config
	now         func() time.Time
}

func NewAssignmentService(
	assignments repository.AssignmentRepository,
	fences repository.FenceRepository,
	locker repository.VehicleLocker,
	vehicles repository.VehicleRepository,
	drivers repository.DriverRepository,
	trips bookingsrepo.TripRepository,
	bookings bookingsrepo.BookingRepository,
	lifecycle BookingApplier,
	validator *fleetvalidator.FleetValidator,
	publisher notify.Publisher,
	cfg *config.Config,
) AssignmentService {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &assignmentService{
		assignments: assignments,
		fences:      fences,
		locker:      locker,
		vehicles:    vehicles,
		drivers:     drivers,
		trips:       trips,
		bookings:    bookings,
		lifecycle:   lifecycle,
		validator:   validator,
		publisher:   publisher,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// assignTarget is everything Assign verified before taking the lock.
type assignTarget struct {
	trip     *model.Trip
	booking  *model.Booking
	vehicle  *model.Vehicle
	drivers  []*model.Driver
	request  *model.AssignRequest
	lockedBy string
}

func (s *assignmentService) Assign(ctx context.Context, req *model.AssignRequest) (*model.AssignResult, error) {
	req.TripID = strings.TrimSpace(req.TripID)
	req.VehicleID = strings.TrimSpace(req.VehicleID)
	req.DriverID = strings.TrimSpace(req.DriverID)
	req.CoDriverID = strings.TrimSpace(req.CoDriverID)
	if err := s.validator.ValidateAssign(req); err != nil {
		s.cfg.Log.WithScope(ctx).Warn("Assignment validation failed", "trip_id", req.TripID, "error", err)
		return nil, validator.ToAppError("Assignment validation failed", err)
	}

	target, err := s.loadTarget(ctx, req)
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, err, "Assignment rejected", "trip_id", req.TripID, "vehicle_id", req.VehicleID)
	}

	if err := s.lockVehicle(ctx, target.vehicle.ID, target.lockedBy); err != nil {
		return nil, fail(ctx, s.cfg.Log, err, "Failed to lock vehicle", "vehicle_id", target.vehicle.ID)
	}
	defer s.unlockVehicle(ctx, target.vehicle.ID, target.lockedBy)

	var result *model.AssignResult
	err = s.assignments.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		r, err := s.commit(txCtx, target)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, err, "Failed to assign vehicle",
			"trip_id", target.trip.ID,
			"vehicle_id", target.vehicle.ID,
		)
	}

	a := result.Assignment
	s.cfg.Log.WithScope(ctx).Info("Vehicle assigned",
		"assignment_id", a.ID,
		"trip_id", a.TripID,
		"vehicle_id", a.VehicleID,
		"driver_id", a.DriverID,
		"warnings", len(result.Warnings),
	)
	for _, w := range result.Warnings {
		s.cfg.Log.WithScope(ctx).Warn("Assignment warning",
			"assignment_id", a.ID,
			"kind", w.Kind,
			"neighbor_trip_id", w.NeighborTripID,
			"message", w.Message,
		)
	}

	notify.Emit(ctx, s.publisher, s.cfg.Log, notify.VehicleAssigned{
		AssignmentID: a.ID,
		BookingID:    a.BookingID,
		TripID:       a.TripID,
		VehicleID:    a.VehicleID,
		DriverID:     a.DriverID,
	})
	return result, nil
}

// loadTarget checks every precondition that does not need the vehicle lock.
func (s *assignmentService) loadTarget(ctx context.Context, req *model.AssignRequest) (*assignTarget, error) {
	trip, err := s.trips.FindByID(ctx, req.TripID)
	if err != nil {
		return nil, mapError(err, req.TripID)
	}
	booking, err := s.bookings.FindByID(ctx, trip.BookingID)
	if err != nil {
		return nil, lifecycle.MapError(err, trip.BookingID)
	}
	if !booking.Status.Assignable() {
		return nil, apperrors.Validation("booking is not in an assignable state", map[string]any{
			"booking_id": booking.ID,
			"status":     string(booking.Status),
		})
	}

	vehicle, err := s.vehicles.FindByID(ctx, req.VehicleID)
	if err != nil {
		return nil, mapError(err, req.VehicleID)
	}
	if !vehicle.Active {
		return nil, apperrors.Validation("Vehicle is not active", map[string]any{"vehicle_id": vehicle.ID})
	}

	target := &assignTarget{
		trip:     trip,
		booking:  booking,
		vehicle:  vehicle,
		request:  req,
		lockedBy: uuid.NewString(),
	}
	for _, id := range []string{req.DriverID, req.CoDriverID} {
		if id == "" {
			continue
		}
		driver, err := s.drivers.FindByID(ctx, id)
		if err != nil {
			return nil, mapError(err, id)
		}
		if !driver.Active {
			return nil, apperrors.Validation("Driver is not active", map[string]any{"driver_id": id})
		}
		if !driver.LicenseValidThrough(trip.EndTime) {
			return nil, apperrors.Validation("Driver licence expires before the trip ends", map[string]any{
				"driver_id":      id,
				"license_expiry": driver.LicenseExpiry,
				"trip_end":       trip.EndTime,
			})
		}
		target.drivers = append(target.drivers, driver)
	}
	return target, nil
}

func (s *assignmentService) lockVehicle(ctx context.Context, vehicleID, owner string) error {
	attempts := max(1, s.cfg.VehicleLockRetries)
	for i := range attempts {
		ok, err := s.locker.Acquire(ctx, vehicleID, owner, s.cfg.VehicleLockTTL)
		if err != nil {
			return apperrors.Unavailable("Vehicle lock", err)
		}
		if ok {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return apperrors.Timeout("Timed out waiting for the vehicle lock")
		case <-time.After(s.cfg.VehicleLockRetryDelay):
		}
	}
	return apperrors.Conflict("Vehicle is being assigned by another request. Please retry.")
}

func (s *assignmentService) unlockVehicle(ctx context.Context, vehicleID, owner string) {
	if err := s.locker.Release(context.WithoutCancel(ctx), vehicleID, owner); err != nil {
		s.cfg.Log.WithScope(ctx).Error("Failed to release vehicle lock", "vehicle_id", vehicleID, "error", err)
	}
}

// commit runs inside the assignment transaction. The fence writes come first
// so that two transactions on one vehicle always conflict, and so does an
// assignment racing a status change of its booking.
func (s *assignmentService) commit(ctx context.Context, t *assignTarget) (*model.AssignResult, error) {
	trip := t.trip
	if err := s.fences.Touch(ctx, t.vehicle.ID); err != nil {
		return nil, fmt.Errorf("failed to fence vehicle: %w", err)
	}
	if err := s.bookings.Fence(ctx, t.booking.ID); err != nil {
		return nil, lifecycle.MapError(err, t.booking.ID)
	}

	booking, err := s.bookings.FindByID(ctx, t.booking.ID)
	if err != nil {
		return nil, lifecycle.MapError(err, t.booking.ID)
	}
	if !booking.Status.Assignable() {
		return nil, apperrors.Validation("booking is not in an assignable state", map[string]any{
			"booking_id": booking.ID,
			"status":     string(booking.Status),
		})
	}

	conflicts, err := s.assignments.Overlapping(ctx, t.vehicle.ID, trip.StartTime, trip.EndTime, trip.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check vehicle overlap: %w", err)
	}
	if len(conflicts) > 0 {
		tripIDs := make([]string, 0, len(conflicts))
		for _, c := range conflicts {
			tripIDs = append(tripIDs, c.TripID)
		}
		return nil, apperrors.HardConflict("Vehicle is already booked for an overlapping trip", map[string]any{
			"vehicle_id":           t.vehicle.ID,
			"conflicting_trip_ids": tripIDs,
		})
	}

	warnings, err := s.bufferWarnings(ctx, t.vehicle.ID, trip)
	if err != nil {
		return nil, err
	}
	for _, d := range t.drivers {
		busy, err := s.assignments.DriverOverlapping(ctx, d.ID, trip.StartTime, trip.EndTime, trip.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check driver overlap: %w", err)
		}
		for _, b := range busy {
			warnings = append(warnings, model.Warning{
				Kind:           model.WarningDriverOverlap,
				NeighborTripID: b.TripID,
				Message:        fmt.Sprintf("driver %s is already assigned to an overlapping trip", d.FullName),
			})
		}
	}

	now := s.now()
	a := &model.Assignment{
		ID:            uuid.NewString(),
		TenantID:      booking.TenantID,
		TripID:        trip.ID,
		BookingID:     booking.ID,
		VehicleID:     t.vehicle.ID,
		DriverID:      t.request.DriverID,
		CoDriverID:    t.request.CoDriverID,
		Status:        model.AssignmentScheduled,
		Live:          true,
		TripStart:     trip.StartTime,
		TripEnd:       trip.EndTime,
		BookingStatus: booking.Status,
		CreatedBy:     tenant.Actor(ctx),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.assignments.Create(ctx, a); err != nil {
		if errors.Is(err, fleeterrors.ErrDuplicateAssignment) {
			return nil, apperrors.HardConflict("Vehicle is already assigned to this trip", map[string]any{
				"vehicle_id":           t.vehicle.ID,
				"conflicting_trip_ids": []string{trip.ID},
			})
		}
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	return &model.AssignResult{Assignment: a, Warnings: warnings}, nil
}

// bufferWarnings checks only the nearest reservation on each side.
func (s *assignmentService) bufferWarnings(ctx context.Context, vehicleID string, trip *model.Trip) ([]model.Warning, error) {
	warnings := []model.Warning{}
	minimum := s.cfg.MinBufferTime

	prev, err := s.assignments.NearestBefore(ctx, vehicleID, trip.StartTime, trip.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find previous assignment: %w", err)
	}
	if prev != nil {
		if gap := trip.StartTime.Sub(prev.TripEnd); gap < minimum {
			warnings = append(warnings, model.NewBufferWarning(model.WarningBufferBefore, gap, minimum, prev.TripID))
		}
	}

	next, err := s.assignments.NearestAfter(ctx, vehicleID, trip.EndTime, trip.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find next assignment: %w", err)
	}
	if next != nil {
		if gap := next.TripStart.Sub(trip.EndTime); gap < minimum {
			warnings = append(warnings, model.NewBufferWarning(model.WarningBufferAfter, gap, minimum, next.TripID))
		}
	}
	return warnings, nil
}

func (s *assignmentService) Get(ctx context.Context, id string) (*model.Assignment, error) {
	a, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, mapError(err, id), "Failed to get assignment", "assignment_id", id)
	}
	return a, nil
}

func (s *assignmentService) Start(ctx context.Context, id string, startKm int) (*model.Assignment, error) {
	if startKm < 0 {
		return nil, apperrors.Validation("Odometer reading cannot be negative", map[string]any{"start_km": startKm})
	}

	a, err := s.move(ctx, id, model.AssignmentInProgress, func(_ context.Context, a *model.Assignment) error {
		a.StartKm = &startKm
		return nil
	})
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, err, "Failed to start assignment", "assignment_id", id)
	}

	s.cfg.Log.WithScope(ctx).Info("Assignment started", "assignment_id", id, "start_km", startKm)
	return a, nil
}

// Complete records the closing odometer. When it completes the last open
// assignment of a fully paid booking, the booking is completed too.
func (s *assignmentService) Complete(ctx context.Context, id string, endKm int) (*model.Assignment, error) {
	var bookingCompleted bool
	a, err := s.move(ctx, id, model.AssignmentCompleted, func(txCtx context.Context, a *model.Assignment) error {
		if a.StartKm != nil && endKm < *a.StartKm {
			return apperrors.Validation("End odometer reading must not be below the start reading", map[string]any{
				"start_km": *a.StartKm,
				"end_km":   endKm,
			})
		}
		a.EndKm = &endKm
		done, err := s.completeBookingIfDone(txCtx, a)
		bookingCompleted = done
		return err
	})
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, err, "Failed to complete assignment", "assignment_id", id)
	}

	distance, _ := a.Distance()
	s.cfg.Log.WithScope(ctx).Info("Assignment completed",
		"assignment_id", id,
		"distance_km", distance,
		"booking_completed", bookingCompleted,
	)
	return a, nil
}

// completeBookingIfDone treats a as already completed. Every trip of the
// booking needs at least one live assignment and all of them must be done.
func (s *assignmentService) completeBookingIfDone(ctx context.Context, a *model.Assignment) (bool, error) {
	booking, err := s.bookings.FindByID(ctx, a.BookingID)
	if err != nil {
		return false, lifecycle.MapError(err, a.BookingID)
	}
	if booking.Status != model.StatusPaidInFull {
		return false, nil
	}

	all, err := s.assignments.ByBooking(ctx, booking.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load booking assignments: %w", err)
	}
	covered := map[string]bool{}
	for _, other := range all {
		if !other.Live {
			continue
		}
		status := other.Status
		if other.ID == a.ID {
			status = model.AssignmentCompleted
		}
		if status != model.AssignmentCompleted {
			return false, nil
		}
		covered[other.TripID] = true
	}
	for _, tripID := range booking.TripIDs {
		if !covered[tripID] {
			return false, nil
		}
	}

	if err := s.lifecycle.Apply(ctx, booking, model.StatusCompleted); err != nil {
		return false, err
	}
	a.BookingStatus = booking.Status
	return true, nil
}

func (s *assignmentService) Cancel(ctx context.Context, id string) (*model.Assignment, error) {
	a, err := s.move(ctx, id, model.AssignmentCancelled, func(_ context.Context, a *model.Assignment) error {
		a.Live = false
		return nil
	})
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, err, "Failed to cancel assignment", "assignment_id", id)
	}

	s.cfg.Log.WithScope(ctx).Info("Assignment cancelled", "assignment_id", id, "vehicle_id", a.VehicleID)
	return a, nil
}

// move applies one edge of the assignment status table in a transaction.
func (s *assignmentService) move(
	ctx context.Context,
	id string,
	to model.AssignmentStatus,
	mutate func(txCtx context.Context, a *model.Assignment) error,
) (*model.Assignment, error) {
	var updated *model.Assignment
	err := s.assignments.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		a, err := s.assignments.FindByID(txCtx, id)
		if err != nil {
			return mapError(err, id)
		}
		if !canMoveAssignment(a.Status, to) {
			return apperrors.Validation(fmt.Sprintf("Cannot move assignment from %s to %s", a.Status, to), map[string]any{
				"assignment_id": a.ID,
				"from":          string(a.Status),
				"to":            string(to),
			})
		}

		a.Status = to
		a.UpdatedAt = s.now()
		if err := mutate(txCtx, a); err != nil {
			return err
		}
		if err := s.assignments.UpdateStatus(txCtx, a); err != nil {
			return mapError(err, id)
		}
		updated = a
		return nil
	})
	return updated, err
}

func (s *assignmentService) ListByTrip(ctx context.Context, tripID string) ([]*model.Assignment, error) {
	if _, err := s.trips.FindByID(ctx, tripID); err != nil {
		return nil, fail(ctx, s.cfg.Log, mapError(err, tripID), "Failed to list assignments", "trip_id", tripID)
	}
	assignments, err := s.assignments.ByTrip(ctx, tripID)
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, err, "Failed to list assignments", "trip_id", tripID)
	}
	if assignments == nil {
		assignments = []*model.Assignment{}
	}
	return assignments, nil
}

// DispatchBoard lists what leaves in [from, to).
func (s *assignmentService) DispatchBoard(ctx context.Context, from, to time.Time) ([]*model.Assignment, error) {
	if !to.After(from) {
		return nil, apperrors.Validation("Dispatch window end must be after its start", map[string]any{
			"from": from,
			"to":   to,
		})
	}
	assignments, err := s.assignments.Dispatch(ctx, from, to)
	if err != nil {
		return nil, fail(ctx, s.cfg.Log, err, "Failed to load dispatch board")
	}
	if assignments == nil {
		assignments = []*model.Assignment{}
	}
	return assignments, nil
}
