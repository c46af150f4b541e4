package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "buscharter/internal/bookings/errors"
	"buscharter/internal/bookings/repository"
	"buscharter/pkg/config"
	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/model"
	"buscharter/pkg/notify"
	"buscharter/pkg/tenant"
)

// BalanceSource reports what a booking still owes. Negative means overpaid.
type BalanceSource interface {
	Outstanding(ctx context.Context, bookingID string) (int64, error)
}

// AssignmentSync keeps the booking status copied onto assignments current.
type AssignmentSync interface {
	SyncBookingStatus(ctx context.Context, bookingID string, status model.BookingStatus) error
	CancelByBooking(ctx context.Context, bookingID string) (int64, error)
}

type Lifecycle struct {
	cfg         *config.Config
	bookings    repository.BookingRepository
	balance     BalanceSource
	assignments AssignmentSync
	publisher   notify.Publisher
	now         func() time.Time
}

func New(
	cfg *config.Config,
	bookings repository.BookingRepository,
	balance BalanceSource,
	assignments AssignmentSync,
	publisher notify.Publisher,
) *Lifecycle {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &Lifecycle{
		cfg:         cfg,
		bookings:    bookings,
		balance:     balance,
		assignments: assignments,
		publisher:   publisher,
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Transition moves a booking to target in its own transaction and publishes
// BookingConfirmed once the booking has entered PAYMENT_RECEIVED.
func (l *Lifecycle) Transition(ctx context.Context, bookingID string, target model.BookingStatus) (*model.Booking, error) {
	if !target.Valid() {
		return nil, apperrors.Validation("Unknown booking status", map[string]any{"target": string(target)})
	}

	var booking *model.Booking
	err := l.bookings.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		b, err := l.bookings.FindByID(txCtx, bookingID)
		if err != nil {
			return MapError(err, bookingID)
		}
		if err := l.Apply(txCtx, b, target); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			l.cfg.Log.WithScope(ctx).Warn("Booking transition rejected",
				"booking_id", bookingID,
				"target", target,
				"error", err,
			)
			return nil, err
		}
		l.cfg.Log.WithScope(ctx).Error("Failed to transition booking", "booking_id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to transition booking", err)
	}

	l.cfg.Log.WithScope(ctx).Info("Booking transitioned",
		"booking_id", booking.ID,
		"code", booking.Code,
		"status", booking.Status,
	)

	if target == model.StatusPaymentReceived {
		notify.Emit(ctx, l.publisher, l.cfg.Log, Confirmed(booking))
	}
	return booking, nil
}

// Apply runs the guarded transition inside the caller's transaction and
// updates booking in place. It never publishes.
func (l *Lifecycle) Apply(ctx context.Context, booking *model.Booking, target model.BookingStatus) error {
	from := booking.Status
	if !CanTransition(from, target) {
		return apperrors.InvalidTransition(string(from), string(target), statusStrings(ValidTargets(from)))
	}

	if target == model.StatusPaidInFull {
		outstanding, err := l.balance.Outstanding(ctx, booking.ID)
		if err != nil {
			return fmt.Errorf("failed to read outstanding balance: %w", err)
		}
		if outstanding > 0 {
			return apperrors.OutstandingBalanceNotZero(outstanding)
		}
	}

	change := model.StatusChange{
		From: from,
		To:   target,
		By:   tenant.Actor(ctx),
		At:   l.now(),
	}
	if err := l.bookings.UpdateStatus(ctx, booking.ID, from, target, change); err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return apperrors.Conflict("Booking status was changed by another request. Please reload and retry.")
		}
		return MapError(err, booking.ID)
	}

	if l.assignments != nil {
		if target == model.StatusCancelled {
			n, err := l.assignments.CancelByBooking(ctx, booking.ID)
			if err != nil {
				return fmt.Errorf("failed to cancel assignments: %w", err)
			}
			if n > 0 {
				l.cfg.Log.WithScope(ctx).Info("Cancelled assignments of cancelled booking", "booking_id", booking.ID, "count", n)
			}
		}
		if err := l.assignments.SyncBookingStatus(ctx, booking.ID, target); err != nil {
			return fmt.Errorf("failed to sync assignment booking status: %w", err)
		}
	}

	booking.Status = target
	booking.UpdatedAt = change.At
	booking.History = append(booking.History, change)
	return nil
}

func Confirmed(b *model.Booking) notify.BookingConfirmed {
	return notify.BookingConfirmed{
		BookingID:  b.ID,
		Code:       b.Code,
		CustomerID: b.CustomerID,
		TripCount:  len(b.TripIDs),
	}
}

// MapError converts repository sentinels for a booking lookup. AppErrors pass
// through untouched.
func MapError(err error, bookingID string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", bookingID)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, tenant.ErrMissingScope):
		return apperrors.Unauthorized("Tenant scope is required")
	}
	return err
}
