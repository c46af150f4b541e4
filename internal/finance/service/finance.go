package service

import (
	"context"
	"errors"
	"time"

	"buscharter/internal/bookings/lifecycle"
	bookingsrepo "buscharter/internal/bookings/repository"
	financeerrors "buscharter/internal/finance/errors"
	"buscharter/internal/finance/ledger"
	"buscharter/internal/finance/repository"
	financevalidator "buscharter/internal/finance/validator"
	"buscharter/pkg/config"
	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/model"
	"buscharter/pkg/notify"
	"buscharter/pkg/sanitizer"
	"buscharter/pkg/tenant"
	"buscharter/pkg/validator"

	"github.com/google/uuid"
)

type FinanceService interface {
	AddCharge(ctx context.Context, bookingID string, in *model.ChargeInput) (*model.Charge, error)
	UpdateCharge(ctx context.Context, chargeID string, in *model.ChargeInput) (*model.Charge, error)
	DeleteCharge(ctx context.Context, chargeID string) error
	ListCharges(ctx context.Context, bookingID string) ([]*model.Charge, error)
	RecordPayment(ctx context.Context, bookingID string, in *model.PaymentInput) (*model.PaymentResult, error)
	ListPayments(ctx context.Context, bookingID string) ([]*model.Payment, error)
	Summary(ctx context.Context, bookingID string) (*model.BookingTotals, error)
	Reconcile(ctx context.Context, bookingID string) (*model.Booking, error)
}

type financeService struct {
	bookings   bookingsrepo.BookingRepository
	charges    repository.ChargeRepository
	payments   repository.PaymentRepository
	ledger     *ledger.Ledger
	reconciler *Reconciler
	validator  *financevalidator.FinanceValidator
	publisher  notify.Publisher
	cfg        *config.Config
	now        func() time.Time
}

func NewFinanceService(
	bookings bookingsrepo.BookingRepository,
	charges repository.ChargeRepository,
	payments repository.PaymentRepository,
	ledger *ledger.Ledger,
	reconciler *Reconciler,
	validator *financevalidator.FinanceValidator,
	publisher notify.Publisher,
	cfg *config.Config,
) FinanceService {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &financeService{
		bookings:   bookings,
		charges:    charges,
		payments:   payments,
		ledger:     ledger,
		reconciler: reconciler,
		validator:  validator,
		publisher:  publisher,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *financeService) AddCharge(ctx context.Context, bookingID string, in *model.ChargeInput) (*model.Charge, error) {
	sanitizeCharge(in)
	if err := s.validator.ValidateCharge(in); err != nil {
		s.cfg.Log.WithScope(ctx).Warn("Charge validation failed", "booking_id", bookingID, "error", err)
		return nil, validator.ToAppError("Charge validation failed", err)
	}

	var charge *model.Charge
	booking, rec, err := s.editCharges(ctx, bookingID, func(txCtx context.Context, b *model.Booking) error {
		now := s.now()
		charge = &model.Charge{
			ID:          uuid.NewString(),
			TenantID:    b.TenantID,
			BookingID:   b.ID,
			Kind:        in.Kind,
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			CreatedBy:   tenant.Actor(txCtx),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := charge.ComputeTotal(); err != nil {
			return chargeOverflow(err)
		}
		return s.charges.Create(txCtx, charge)
	})
	if err != nil {
		return nil, s.fail(ctx, err, "Failed to add charge", "booking_id", bookingID)
	}

	s.cfg.Log.WithScope(ctx).Info("Charge added",
		"booking_id", bookingID,
		"charge_id", charge.ID,
		"kind", charge.Kind,
		"total", charge.Total,
		"grand_total", rec.Totals.GrandTotal,
	)
	s.emitConfirmation(ctx, booking, rec)
	return charge, nil
}

func (s *financeService) UpdateCharge(ctx context.Context, chargeID string, in *model.ChargeInput) (*model.Charge, error) {
	existing, err := s.charges.FindByID(ctx, chargeID)
	if err != nil {
		return nil, s.fail(ctx, mapChargeError(err, chargeID), "Failed to update charge", "charge_id", chargeID)
	}

	sanitizeCharge(in)
	if err := s.validator.ValidateCharge(in); err != nil {
		s.cfg.Log.WithScope(ctx).Warn("Charge validation failed", "charge_id", chargeID, "error", err)
		return nil, validator.ToAppError("Charge validation failed", err)
	}

	updated := *existing
	updated.Kind = in.Kind
	updated.Description = in.Description
	updated.Quantity = in.Quantity
	updated.UnitPrice = in.UnitPrice
	if err := updated.ComputeTotal(); err != nil {
		return nil, s.fail(ctx, chargeOverflow(err), "Failed to update charge", "charge_id", chargeID)
	}
	updated.UpdatedAt = s.now()

	booking, rec, err := s.editCharges(ctx, existing.BookingID, func(txCtx context.Context, _ *model.Booking) error {
		return mapChargeError(s.charges.Update(txCtx, &updated), chargeID)
	})
	if err != nil {
		return nil, s.fail(ctx, err, "Failed to update charge", "charge_id", chargeID)
	}

	s.cfg.Log.WithScope(ctx).Info("Charge updated",
		"booking_id", updated.BookingID,
		"charge_id", chargeID,
		"total", updated.Total,
		"grand_total", rec.Totals.GrandTotal,
	)
	s.emitConfirmation(ctx, booking, rec)
	return &updated, nil
}

func (s *financeService) DeleteCharge(ctx context.Context, chargeID string) error {
	existing, err := s.charges.FindByID(ctx, chargeID)
	if err != nil {
		return s.fail(ctx, mapChargeError(err, chargeID), "Failed to delete charge", "charge_id", chargeID)
	}

	booking, rec, err := s.editCharges(ctx, existing.BookingID, func(txCtx context.Context, _ *model.Booking) error {
		return mapChargeError(s.charges.Delete(txCtx, chargeID), chargeID)
	})
	if err != nil {
		return s.fail(ctx, err, "Failed to delete charge", "charge_id", chargeID)
	}

	s.cfg.Log.WithScope(ctx).Info("Charge deleted",
		"booking_id", existing.BookingID,
		"charge_id", chargeID,
		"grand_total", rec.Totals.GrandTotal,
	)
	s.emitConfirmation(ctx, booking, rec)
	return nil
}

// editCharges runs write and a reconciliation in one transaction, provided the
// booking still accepts charge changes.
func (s *financeService) editCharges(
	ctx context.Context,
	bookingID string,
	write func(txCtx context.Context, booking *model.Booking) error,
) (*model.Booking, *Reconciliation, error) {
	var booking *model.Booking
	var rec *Reconciliation
	err := s.bookings.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		b, err := s.bookings.FindByID(txCtx, bookingID)
		if err != nil {
			return lifecycle.MapError(err, bookingID)
		}
		if !b.Status.ChargesEditable() {
			return apperrors.Validation("Charges cannot be changed in the current booking status", map[string]any{
				"booking_id": b.ID,
				"status":     string(b.Status),
			})
		}
		if err := write(txCtx, b); err != nil {
			return err
		}
		r, err := s.reconciler.Reconcile(txCtx, b)
		if err != nil {
			return err
		}
		booking, rec = b, r
		return nil
	})
	return booking, rec, err
}

func (s *financeService) ListCharges(ctx context.Context, bookingID string) ([]*model.Charge, error) {
	if err := s.requireBooking(ctx, bookingID); err != nil {
		return nil, s.fail(ctx, err, "Failed to list charges", "booking_id", bookingID)
	}
	charges, err := s.charges.ByBooking(ctx, bookingID)
	if err != nil {
		return nil, s.fail(ctx, err, "Failed to list charges", "booking_id", bookingID)
	}
	if charges == nil {
		charges = []*model.Charge{}
	}
	return charges, nil
}

func (s *financeService) RecordPayment(ctx context.Context, bookingID string, in *model.PaymentInput) (*model.PaymentResult, error) {
	now := s.now()
	in.Reference = sanitizer.NormalizeText(in.Reference)
	in.Method = model.PaymentMethod(sanitizer.NormalizeCode(string(in.Method)))
	if err := s.validator.ValidatePayment(in, now); err != nil {
		s.cfg.Log.WithScope(ctx).Warn("Payment validation failed", "booking_id", bookingID, "error", err)
		return nil, validator.ToAppError("Payment validation failed", err)
	}

	var result *model.PaymentResult
	var rec *Reconciliation
	err := s.bookings.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		booking, err := s.bookings.FindByID(txCtx, bookingID)
		if err != nil {
			return lifecycle.MapError(err, bookingID)
		}
		if !booking.Status.AcceptsPayments() {
			return apperrors.Validation("Payments are not accepted in the current booking status", map[string]any{
				"booking_id": booking.ID,
				"status":     string(booking.Status),
			})
		}

		paidAt := now
		if in.PaidAt != nil {
			paidAt = in.PaidAt.UTC().Truncate(time.Millisecond)
		}
		payment := &model.Payment{
			ID:         uuid.NewString(),
			TenantID:   booking.TenantID,
			BookingID:  booking.ID,
			Amount:     in.Amount,
			Method:     in.Method,
			Reference:  in.Reference,
			PaidAt:     paidAt,
			RecordedBy: tenant.Actor(txCtx),
			CreatedAt:  now,
		}
		if err := s.payments.Create(txCtx, payment); err != nil {
			return err
		}

		rec, err = s.reconciler.Reconcile(txCtx, booking)
		if err != nil {
			return err
		}
		result = &model.PaymentResult{
			Payment: payment,
			Booking: booking,
			Totals:  rec.Totals,
			Changes: rec.Changes,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, err, "Failed to record payment", "booking_id", bookingID)
	}

	s.cfg.Log.WithScope(ctx).Info("Payment recorded",
		"booking_id", bookingID,
		"payment_id", result.Payment.ID,
		"amount", result.Payment.Amount,
		"outstanding", result.Totals.Outstanding,
		"status", result.Booking.Status,
	)
	if result.Totals.Overpaid() {
		s.cfg.Log.WithScope(ctx).Warn("Booking is overpaid", "booking_id", bookingID, "outstanding", result.Totals.Outstanding)
	}

	notify.Emit(ctx, s.publisher, s.cfg.Log, notify.PaymentReceived{
		PaymentID: result.Payment.ID,
		BookingID: result.Booking.ID,
		Amount:    result.Payment.Amount,
		Method:    string(result.Payment.Method),
	})
	s.emitConfirmation(ctx, result.Booking, rec)
	return result, nil
}

func (s *financeService) ListPayments(ctx context.Context, bookingID string) ([]*model.Payment, error) {
	if err := s.requireBooking(ctx, bookingID); err != nil {
		return nil, s.fail(ctx, err, "Failed to list payments", "booking_id", bookingID)
	}
	payments, err := s.payments.ByBooking(ctx, bookingID)
	if err != nil {
		return nil, s.fail(ctx, err, "Failed to list payments", "booking_id", bookingID)
	}
	if payments == nil {
		payments = []*model.Payment{}
	}
	return payments, nil
}

func (s *financeService) Summary(ctx context.Context, bookingID string) (*model.BookingTotals, error) {
	if err := s.requireBooking(ctx, bookingID); err != nil {
		return nil, s.fail(ctx, err, "Failed to summarize booking", "booking_id", bookingID)
	}
	summary, err := s.ledger.Summary(ctx, bookingID)
	if err != nil {
		return nil, s.fail(ctx, err, "Failed to summarize booking", "booking_id", bookingID)
	}
	return &summary, nil
}

// Reconcile re-runs the automatic transitions outside of any write, for
// bookings whose snapshot drifted.
func (s *financeService) Reconcile(ctx context.Context, bookingID string) (*model.Booking, error) {
	var booking *model.Booking
	var rec *Reconciliation
	err := s.bookings.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		b, err := s.bookings.FindByID(txCtx, bookingID)
		if err != nil {
			return lifecycle.MapError(err, bookingID)
		}
		r, err := s.reconciler.Reconcile(txCtx, b)
		if err != nil {
			return err
		}
		booking, rec = b, r
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, err, "Failed to reconcile booking", "booking_id", bookingID)
	}

	if len(rec.Changes) > 0 {
		s.cfg.Log.WithScope(ctx).Info("Booking reconciled", "booking_id", bookingID, "status", booking.Status)
	}
	s.emitConfirmation(ctx, booking, rec)
	return booking, nil
}

func (s *financeService) requireBooking(ctx context.Context, bookingID string) error {
	if _, err := s.bookings.FindByID(ctx, bookingID); err != nil {
		return lifecycle.MapError(err, bookingID)
	}
	return nil
}

func (s *financeService) emitConfirmation(ctx context.Context, booking *model.Booking, rec *Reconciliation) {
	if rec != nil && rec.EnteredPaymentReceived() {
		notify.Emit(ctx, s.publisher, s.cfg.Log, lifecycle.Confirmed(booking))
	}
}

// fail logs err and converts it to an AppError. AppErrors are rejections and
// only warrant a warning.
func (s *financeService) fail(ctx context.Context, err error, message string, attrs ...any) error {
	log := s.cfg.Log.WithScope(ctx)
	if apperrors.IsAppError(err) {
		log.Warn(message, append(attrs, "error", err)...)
		return err
	}
	if errors.Is(err, tenant.ErrMissingScope) {
		return apperrors.Unauthorized("Tenant scope is required")
	}
	log.Error(message, append(attrs, "error", err)...)
	return apperrors.Internal(message, err)
}

func mapChargeError(err error, chargeID string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, financeerrors.ErrChargeNotFound):
		return apperrors.NotFoundWithID("Charge", chargeID)
	case errors.Is(err, financeerrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid charge ID format")
	}
	return err
}

func chargeOverflow(err error) error {
	return apperrors.Validation("Charge total exceeds the supported amount range", map[string]any{
		"error": err.Error(),
	})
}

func sanitizeCharge(in *model.ChargeInput) {
	in.Kind = model.ChargeKind(sanitizer.NormalizeCode(string(in.Kind)))
	in.Description = sanitizer.NormalizeText(in.Description)
}
