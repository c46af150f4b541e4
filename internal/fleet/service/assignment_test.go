package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"buscharter/internal/bookings/lifecycle"
	"buscharter/internal/finance/ledger"
	"buscharter/internal/fleet/availability"
	"buscharter/internal/fleet/repository"
	fleetvalidator "buscharter/internal/fleet/validator"
	"buscharter/internal/testutil/memstore"
	"buscharter/pkg/config"
	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/logger"
	"buscharter/pkg/model"
	"buscharter/pkg/notify"
	"buscharter/pkg/tenant"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return day0.AddDate(0, 0, n) }

type fixture struct {
	store     *memstore.Store
	cfg       *config.Config
	lifecycle *lifecycle.Lifecycle
	svc       AssignmentService
	fleet     FleetService
	recorder  *notify.Recorder
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Output: io.Discard, Service: "test"})
	cfg := &config.Config{
		Log:                   log,
		MinBufferTime:         4 * time.Hour,
		VehicleLockTTL:        10 * time.Second,
		VehicleLockRetries:    1,
		VehicleLockRetryDelay: time.Millisecond,
		PhoneRegion:           "ID",
	}

	store := memstore.New()
	led := ledger.New(store.Charges(), store.Payments())
	lc := lifecycle.New(cfg, store.Bookings(), led, store.Assignments(), nil)
	recorder := notify.NewRecorder()
	v := fleetvalidator.NewFleetValidator(log)

	return &fixture{
		store:     store,
		cfg:       cfg,
		lifecycle: lc,
		svc: NewAssignmentService(
			store.Assignments(),
			store.Fences(),
			store.Locker(),
			store.Vehicles(),
			store.Drivers(),
			store.Trips(),
			store.Bookings(),
			lc,
			v,
			recorder,
			cfg,
		),
		fleet: NewFleetService(
			store.Vehicles(),
			store.Drivers(),
			availability.New(store.Vehicles(), store.Drivers(), store.Assignments()),
			v,
			cfg,
		),
		recorder: recorder,
		ctx:      tenant.WithScope(context.Background(), tenant.Scope{TenantID: "tenant-a", ActorID: "dispatcher"}),
	}
}

// booking seeds a booking with one trip per window.
func (f *fixture) booking(t *testing.T, status model.BookingStatus, windows ...[2]time.Time) (*model.Booking, []*model.Trip) {
	t.Helper()
	b := &model.Booking{
		ID:         uuid.NewString(),
		TenantID:   "tenant-a",
		CustomerID: uuid.NewString(),
		Code:       "BOOK/2025/06/" + uuid.NewString(),
		Status:     status,
	}
	trips := make([]*model.Trip, 0, len(windows))
	for _, w := range windows {
		trip := &model.Trip{
			ID:          uuid.NewString(),
			TenantID:    "tenant-a",
			BookingID:   b.ID,
			StartTime:   w[0],
			EndTime:     w[1],
			Pickup:      "Jakarta",
			Destination: "Bandung",
		}
		require.NoError(t, f.store.Trips().Create(f.ctx, trip))
		b.TripIDs = append(b.TripIDs, trip.ID)
		trips = append(trips, trip)
	}
	require.NoError(t, f.store.Bookings().Create(f.ctx, b))
	return b, trips
}

func (f *fixture) trip(t *testing.T, start, end time.Time) *model.Trip {
	t.Helper()
	_, trips := f.booking(t, model.StatusPaymentReceived, [2]time.Time{start, end})
	return trips[0]
}

func (f *fixture) vehicle(t *testing.T, active bool) *model.Vehicle {
	t.Helper()
	v := &model.Vehicle{
		ID:           uuid.NewString(),
		TenantID:     "tenant-a",
		PlateNumber:  "B " + uuid.NewString()[:6],
		DisplayName:  "Bus",
		Category:     model.CategoryBigBus,
		SeatCapacity: 45,
		Ownership:    model.OwnershipOwned,
		Active:       active,
	}
	require.NoError(t, f.store.Vehicles().Create(f.ctx, v))
	return v
}

func (f *fixture) driver(t *testing.T, name string, expiry time.Time) *model.Driver {
	t.Helper()
	d := &model.Driver{
		ID:            uuid.NewString(),
		TenantID:      "tenant-a",
		FullName:      name,
		Phone:         "+6281234567890",
		LicenseNumber: "SIM-" + name,
		LicenseExpiry: expiry,
		Active:        true,
	}
	require.NoError(t, f.store.Drivers().Create(f.ctx, d))
	return d
}

func (f *fixture) assign(trip *model.Trip, vehicle *model.Vehicle) (*model.AssignResult, error) {
	return f.svc.Assign(f.ctx, &model.AssignRequest{TripID: trip.ID, VehicleID: vehicle.ID})
}

func TestAssign_OverlapIsHardConflict(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, true)
	a := f.trip(t, day(1), day(3))
	b := f.trip(t, day(2), day(4))
	c := f.trip(t, day(10), day(12))

	res, err := f.assign(a, v)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentScheduled, res.Assignment.Status)
	assert.Equal(t, "dispatcher", res.Assignment.CreatedBy)
	assert.Empty(t, res.Warnings)

	_, err = f.assign(b, v)
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeHardConflict, appErr.Code)
	assert.Equal(t, v.ID, appErr.Details["vehicle_id"])
	assert.Equal(t, []string{a.ID}, appErr.Details["conflicting_trip_ids"])

	_, err = f.assign(c, v)
	require.NoError(t, err)

	assert.Len(t, f.recorder.OfType(notify.EventVehicleAssigned), 2)
	assert.Equal(t, int64(2), f.store.FenceCount("tenant-a", v.ID))
}

func TestAssign_SameTripTwiceIsHardConflict(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, true)
	trip := f.trip(t, day(1), day(2))

	_, err := f.assign(trip, v)
	require.NoError(t, err)

	_, err = f.assign(trip, v)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeHardConflict))

	all, err := f.svc.ListByTrip(f.ctx, trip.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAssign_BufferWarning(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, true)
	morning := f.trip(t, day(1).Add(6*time.Hour), day(1).Add(10*time.Hour))
	noon := f.trip(t, day(1).Add(12*time.Hour), day(1).Add(18*time.Hour))

	_, err := f.assign(morning, v)
	require.NoError(t, err)

	res, err := f.assign(noon, v)
	require.NoError(t, err, "a short gap is advisory only")
	require.Len(t, res.Warnings, 1)

	w := res.Warnings[0]
	assert.Equal(t, model.WarningBufferBefore, w.Kind)
	assert.Equal(t, morning.ID, w.NeighborTripID)
	assert.Equal(t, int64(120), w.GapMinutes)
	assert.Equal(t, int64(240), w.MinimumMinutes)
	assert.Contains(t, w.Message, "2h")
	assert.Contains(t, w.Message, "4h")
}

func TestAssign_BufferWarningAfter(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, true)
	later := f.trip(t, day(1).Add(13*time.Hour), day(1).Add(20*time.Hour))
	earlier := f.trip(t, day(1).Add(6*time.Hour), day(1).Add(12*time.Hour))

	_, err := f.assign(later, v)
	require.NoError(t, err)

	res, err := f.assign(earlier, v)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, model.WarningBufferAfter, res.Warnings[0].Kind)
	assert.Equal(t, int64(60), res.Warnings[0].GapMinutes)
}

func TestAssign_Preconditions(t *testing.T) {
	f := newFixture(t)
	active := f.vehicle(t, true)
	retired := f.vehicle(t, false)
	expired := f.driver(t, "Budi", day(2))

	_, quoted := f.booking(t, model.StatusQuotationSent, [2]time.Time{day(1), day(3)})
	trip := f.trip(t, day(1), day(3))

	tests := []struct {
		name string
		req  *model.AssignRequest
		code string
	}{
		{"booking not confirmed", &model.AssignRequest{TripID: quoted[0].ID, VehicleID: active.ID}, apperrors.CodeValidation},
		{"inactive vehicle", &model.AssignRequest{TripID: trip.ID, VehicleID: retired.ID}, apperrors.CodeValidation},
		{"licence expires mid trip", &model.AssignRequest{TripID: trip.ID, VehicleID: active.ID, DriverID: expired.ID}, apperrors.CodeValidation},
		{"unknown trip", &model.AssignRequest{TripID: uuid.NewString(), VehicleID: active.ID}, apperrors.CodeNotFound},
		{"unknown vehicle", &model.AssignRequest{TripID: trip.ID, VehicleID: uuid.NewString()}, apperrors.CodeNotFound},
		{"malformed id", &model.AssignRequest{TripID: "nope", VehicleID: active.ID}, apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Assign(f.ctx, tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}

	assert.Empty(t, f.recorder.OfType(notify.EventVehicleAssigned))
}

func TestAssign_DriverOverlapWarns(t *testing.T) {
	f := newFixture(t)
	first := f.vehicle(t, true)
	second := f.vehicle(t, true)
	budi := f.driver(t, "Budi", day(365))
	a := f.trip(t, day(1), day(3))
	b := f.trip(t, day(2), day(4))

	_, err := f.svc.Assign(f.ctx, &model.AssignRequest{TripID: a.ID, VehicleID: first.ID, DriverID: budi.ID})
	require.NoError(t, err)

	res, err := f.svc.Assign(f.ctx, &model.AssignRequest{TripID: b.ID, VehicleID: second.ID, CoDriverID: budi.ID})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, model.WarningDriverOverlap, res.Warnings[0].Kind)
	assert.Equal(t, a.ID, res.Warnings[0].NeighborTripID)
}

func TestAssign_LockHeldElsewhere(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, true)
	trip := f.trip(t, day(1), day(2))

	ok, err := f.store.Locker().Acquire(f.ctx, v.ID, "someone-else", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.assign(trip, v)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	require.NoError(t, f.store.Locker().Release(f.ctx, v.ID, "someone-else"))
	_, err = f.assign(trip, v)
	require.NoError(t, err)
}

func TestAssign_ReleasesLockOnFailure(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, true)
	trip := f.trip(t, day(1), day(2))

	f.store.InjectFault("assignments.create", assert.AnError)
	_, err := f.assign(trip, v)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	assert.Zero(t, f.store.FenceCount("tenant-a", v.ID), "fence write rolled back")

	_, err = f.assign(trip, v)
	require.NoError(t, err)
}

func (f *fixture) withLocker(locker repository.VehicleLocker) AssignmentService {
	return NewAssignmentService(
		f.store.Assignments(),
		f.store.Fences(),
		locker,
		f.store.Vehicles(),
		f.store.Drivers(),
		f.store.Trips(),
		f.store.Bookings(),
		f.lifecycle,
		fleetvalidator.NewFleetValidator(f.cfg.Log),
		f.recorder,
		f.cfg,
	)
}

// hookLocker runs beforeAcquire once, just before the first lock attempt.
// A non-nil failWith fails every attempt.
type hookLocker struct {
	repository.VehicleLocker
	beforeAcquire func(ctx context.Context)
	failWith      error
}

func (l *hookLocker) Acquire(ctx context.Context, vehicleID, owner string, ttl time.Duration) (bool, error) {
	if l.failWith != nil {
		return false, l.failWith
	}
	if hook := l.beforeAcquire; hook != nil {
		l.beforeAcquire = nil
		hook(ctx)
	}
	return l.VehicleLocker.Acquire(ctx, vehicleID, owner, ttl)
}

func TestAssign_BookingCancelledWhileWaitingForLock(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, true)
	booking, trips := f.booking(t, model.StatusPaymentReceived, [2]time.Time{day(1), day(2)})

	locker := &hookLocker{
		VehicleLocker: f.store.Locker(),
		beforeAcquire: func(ctx context.Context) {
			_, err := f.lifecycle.Transition(ctx, booking.ID, model.StatusCancelled)
			require.NoError(t, err)
		},
	}
	svc := f.withLocker(locker)

	_, err := svc.Assign(f.ctx, &model.AssignRequest{TripID: trips[0].ID, VehicleID: v.ID})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)

	stored, err := f.store.Bookings().FindByID(f.ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)

	assignments, err := f.store.Assignments().ByBooking(f.ctx, booking.ID)
	require.NoError(t, err)
	assert.Empty(t, assignments)
	assert.Zero(t, f.store.FenceCount("tenant-a", v.ID), "fence write rolled back")
	assert.Zero(t, f.store.BookingFenceCount(booking.ID))

	other := f.trip(t, day(1).Add(6*time.Hour), day(3))
	res, err := f.assign(other, v)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaymentReceived, res.Assignment.BookingStatus)
	assert.Equal(t, int64(1), f.store.BookingFenceCount(res.Assignment.BookingID))
}

func TestAssign_LockBackendDown(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, true)
	trip := f.trip(t, day(1), day(2))

	down := &hookLocker{VehicleLocker: f.store.Locker(), failWith: errors.New("dial tcp 10.0.0.7:6379: connection refused")}
	_, err := f.withLocker(down).Assign(f.ctx, &model.AssignRequest{TripID: trip.ID, VehicleID: v.ID})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable), "got %v", err)

	live, err := f.store.Assignments().ByTrip(f.ctx, trip.ID)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestAssign_ConcurrentRequestsForOneVehicle(t *testing.T) {
	f := newFixture(t)
	f.cfg.VehicleLockRetries = 200
	v := f.vehicle(t, true)

	const n = 8
	trips := make([]*model.Trip, n)
	for i := range trips {
		trips[i] = f.trip(t, day(1).Add(time.Duration(i)*time.Hour), day(3))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range trips {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.assign(trips[i], v)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperrors.HasCode(err, apperrors.CodeHardConflict) || apperrors.HasCode(err, apperrors.CodeConflict), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)

	live, err := f.store.Assignments().Overlapping(f.ctx, v.ID, day(1), day(3), "")
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

func TestAssignment_Lifecycle(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, true)
	booking, trips := f.booking(t, model.StatusPaidInFull, [2]time.Time{day(1), day(2)})

	res, err := f.assign(trips[0], v)
	require.NoError(t, err)
	id := res.Assignment.ID

	_, err = f.svc.Complete(f.ctx, id, 10)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "cannot complete before starting")

	started, err := f.svc.Start(f.ctx, id, 1200)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentInProgress, started.Status)

	_, err = f.svc.Complete(f.ctx, id, 1100)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	done, err := f.svc.Complete(f.ctx, id, 1450)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentCompleted, done.Status)
	distance, ok := done.Distance()
	assert.True(t, ok)
	assert.Equal(t, 250, distance)
	assert.Equal(t, model.StatusCompleted, done.BookingStatus)

	b, err := f.store.Bookings().FindByID(f.ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, b.Status)

	stored, err := f.svc.Get(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.BookingStatus)

	_, err = f.svc.Cancel(f.ctx, id)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestComplete_WaitsForEveryTrip(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, true)
	booking, trips := f.booking(t, model.StatusPaidInFull,
		[2]time.Time{day(1), day(2)},
		[2]time.Time{day(5), day(6)},
	)

	res, err := f.assign(trips[0], v)
	require.NoError(t, err)
	_, err = f.svc.Start(f.ctx, res.Assignment.ID, 0)
	require.NoError(t, err)
	_, err = f.svc.Complete(f.ctx, res.Assignment.ID, 300)
	require.NoError(t, err)

	b, err := f.store.Bookings().FindByID(f.ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaidInFull, b.Status, "second trip has no assignment yet")
}

func TestComplete_NotPaidInFull(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, true)
	booking, trips := f.booking(t, model.StatusPaymentReceived, [2]time.Time{day(1), day(2)})

	res, err := f.assign(trips[0], v)
	require.NoError(t, err)
	_, err = f.svc.Start(f.ctx, res.Assignment.ID, 0)
	require.NoError(t, err)
	_, err = f.svc.Complete(f.ctx, res.Assignment.ID, 50)
	require.NoError(t, err)

	b, err := f.store.Bookings().FindByID(f.ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaymentReceived, b.Status)
}

func TestCancel_FreesVehicle(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, true)
	a := f.trip(t, day(1), day(3))
	b := f.trip(t, day(2), day(4))

	res, err := f.assign(a, v)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(f.ctx, res.Assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentCancelled, cancelled.Status)

	_, err = f.assign(b, v)
	require.NoError(t, err)

	_, err = f.assign(a, v)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeHardConflict))
}

func TestListByTrip_UnknownTrip(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ListByTrip(f.ctx, uuid.NewString())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestDispatchBoard(t *testing.T) {
	f := newFixture(t)
	first := f.vehicle(t, true)
	second := f.vehicle(t, true)
	inWindow := f.trip(t, day(1).Add(8*time.Hour), day(1).Add(20*time.Hour))
	outside := f.trip(t, day(3), day(4))

	_, err := f.assign(inWindow, first)
	require.NoError(t, err)
	_, err = f.assign(outside, second)
	require.NoError(t, err)

	board, err := f.svc.DispatchBoard(f.ctx, day(1), day(2))
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, inWindow.ID, board[0].TripID)

	_, err = f.svc.DispatchBoard(f.ctx, day(2), day(1))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestAssign_OtherTenantCannotSeeTrip(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, true)
	trip := f.trip(t, day(1), day(2))

	other := tenant.WithScope(context.Background(), tenant.Scope{TenantID: "tenant-b"})
	_, err := f.svc.Assign(other, &model.AssignRequest{TripID: trip.ID, VehicleID: v.ID})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
