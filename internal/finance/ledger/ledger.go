// Package ledger derives booking totals from charge and payment rows. Totals
// are recomputed from scratch on every call and never read from a cache.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"buscharter/internal/finance/repository"
	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/model"
)

type Summary = model.BookingTotals

// GrandTotal is PRIMARY plus ADDITIONAL minus DISCOUNT. Order does not matter.
// It fails with model.ErrAmountOverflow instead of wrapping.
func GrandTotal(charges []*model.Charge) (int64, error) {
	var total int64
	var err error
	for _, c := range charges {
		switch c.Kind {
		case model.ChargePrimary, model.ChargeAdditional:
			total, err = model.AddAmount(total, c.Total)
		case model.ChargeDiscount:
			total, err = subAmount(total, c.Total)
		}
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

func subtotalAndDiscount(charges []*model.Charge) (subtotal, discount int64, err error) {
	for _, c := range charges {
		if c.Kind == model.ChargeDiscount {
			discount, err = model.AddAmount(discount, c.Total)
		} else {
			subtotal, err = model.AddAmount(subtotal, c.Total)
		}
		if err != nil {
			return 0, 0, err
		}
	}
	return subtotal, discount, nil
}

func TotalPayments(payments []*model.Payment) (int64, error) {
	var total int64
	for _, p := range payments {
		var err error
		if total, err = model.AddAmount(total, p.Amount); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Outstanding goes negative on over-payment.
func Outstanding(grandTotal, paid int64) (int64, error) {
	return subAmount(grandTotal, paid)
}

func subAmount(a, b int64) (int64, error) {
	if b == math.MinInt64 {
		return 0, model.ErrAmountOverflow
	}
	return model.AddAmount(a, -b)
}

// PaymentPercentage is 100 for a zero grand total and is not capped.
func PaymentPercentage(grandTotal, paid int64) float64 {
	if grandTotal == 0 {
		return 100
	}
	return float64(paid) / float64(grandTotal) * 100
}

func Summarize(charges []*model.Charge, payments []*model.Payment) (Summary, error) {
	subtotal, discount, err := subtotalAndDiscount(charges)
	if err != nil {
		return Summary{}, err
	}
	grand, err := GrandTotal(charges)
	if err != nil {
		return Summary{}, err
	}
	paid, err := TotalPayments(payments)
	if err != nil {
		return Summary{}, err
	}
	outstanding, err := Outstanding(grand, paid)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Subtotal:          subtotal,
		Discount:          discount,
		GrandTotal:        grand,
		TotalPayments:     paid,
		Outstanding:       outstanding,
		PaymentPercentage: PaymentPercentage(grand, paid),
	}, nil
}

// Ledger reads a booking's rows and summarises them. It satisfies the
// lifecycle's BalanceSource.
type Ledger struct {
	charges  repository.ChargeRepository
	payments repository.PaymentRepository
	now      func() time.Time
}

func New(charges repository.ChargeRepository, payments repository.PaymentRepository) *Ledger {
	return &Ledger{
		charges:  charges,
		payments: payments,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (l *Ledger) Summary(ctx context.Context, bookingID string) (Summary, error) {
	charges, err := l.charges.ByBooking(ctx, bookingID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load charges: %w", err)
	}
	payments, err := l.payments.ByBooking(ctx, bookingID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load payments: %w", err)
	}

	s, err := Summarize(charges, payments)
	if errors.Is(err, model.ErrAmountOverflow) {
		return Summary{}, apperrors.Validation("Booking totals exceed the supported amount range", map[string]any{
			"booking_id": bookingID,
		})
	}
	if err != nil {
		return Summary{}, err
	}
	s.ComputedAt = l.now()
	return s, nil
}

func (l *Ledger) Outstanding(ctx context.Context, bookingID string) (int64, error) {
	s, err := l.Summary(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	return s.Outstanding, nil
}
