package service

import (
	"context"
	"fmt"

	"buscharter/internal/bookings/lifecycle"
	bookingsrepo "buscharter/internal/bookings/repository"
	"buscharter/internal/finance/ledger"
	"buscharter/pkg/model"
)

// Applier is the in-transaction half of the booking lifecycle.
type Applier interface {
	Apply(ctx context.Context, booking *model.Booking, target model.BookingStatus) error
}

type Reconciliation struct {
	Totals  model.BookingTotals
	Changes []model.StatusChange
}

// EnteredPaymentReceived reports whether this reconciliation moved the booking
// into PAYMENT_RECEIVED, even if it continued on to PAID_IN_FULL.
func (r *Reconciliation) EnteredPaymentReceived() bool {
	for _, c := range r.Changes {
		if c.To == model.StatusPaymentReceived {
			return true
		}
	}
	return false
}

// Reconciler advances a booking from its payment state. It always runs inside
// the transaction of the charge or payment write that triggered it.
type Reconciler struct {
	bookings  bookingsrepo.BookingRepository
	ledger    *ledger.Ledger
	lifecycle Applier
}

func NewReconciler(bookings bookingsrepo.BookingRepository, ledger *ledger.Ledger, lifecycle Applier) *Reconciler {
	return &Reconciler{
		bookings:  bookings,
		ledger:    ledger,
		lifecycle: lifecycle,
	}
}

// Targets lists the automatic steps for a booking, in the order they apply.
// Settling a QUOTATION_SENT booking passes through PAYMENT_RECEIVED, and only
// when a payment exists.
func Targets(status model.BookingStatus, totals model.BookingTotals) []model.BookingStatus {
	paid := totals.TotalPayments > 0

	switch status {
	case model.StatusCompleted, model.StatusCancelled, model.StatusPaidInFull, model.StatusDraft:
		return nil
	case model.StatusQuotationSent:
		if !paid {
			return nil
		}
		if totals.Settled() {
			return []model.BookingStatus{model.StatusPaymentReceived, model.StatusPaidInFull}
		}
		return []model.BookingStatus{model.StatusPaymentReceived}
	case model.StatusPaymentReceived:
		if totals.Settled() {
			return []model.BookingStatus{model.StatusPaidInFull}
		}
	}
	return nil
}

// Reconcile recomputes totals, applies the automatic transitions and stores the
// totals snapshot on the booking. booking is updated in place.
func (r *Reconciler) Reconcile(ctx context.Context, booking *model.Booking) (*Reconciliation, error) {
	totals, err := r.ledger.Summary(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize booking: %w", err)
	}

	before := len(booking.History)
	for _, target := range Targets(booking.Status, totals) {
		if !lifecycle.CanTransition(booking.Status, target) {
			break
		}
		if err := r.lifecycle.Apply(ctx, booking, target); err != nil {
			return nil, err
		}
	}

	if err := r.bookings.SaveTotals(ctx, booking.ID, totals); err != nil {
		return nil, fmt.Errorf("failed to save totals: %w", err)
	}
	booking.Totals = totals

	changes := make([]model.StatusChange, len(booking.History)-before)
	copy(changes, booking.History[before:])
	return &Reconciliation{Totals: totals, Changes: changes}, nil
}
