package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingserrors "buscharter/internal/bookings/errors"
	"buscharter/internal/bookings/lifecycle"
	"buscharter/internal/bookings/repository"
	bookingvalidator "buscharter/internal/bookings/validator"
	customerserrors "buscharter/internal/customers/errors"
	"buscharter/pkg/config"
	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/model"
	"buscharter/pkg/sanitizer"
	"buscharter/pkg/tenant"
	"buscharter/pkg/validator"

	"github.com/google/uuid"
)

type BookingService interface {
	Create(ctx context.Context, in *model.BookingCreate) (*model.BookingDetail, error)
	GetByID(ctx context.Context, id string) (*model.BookingDetail, error)
	GetAll(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, int64, error)
	AddTrip(ctx context.Context, bookingID string, in *model.TripInput) (*model.Trip, error)
	UpdateTrip(ctx context.Context, tripID string, update *model.TripUpdate) (*model.Trip, error)
	Transition(ctx context.Context, bookingID string, target model.BookingStatus) (*model.BookingDetail, error)
	Transitions(ctx context.Context, bookingID string) (*model.BookingTransitions, error)
}

// CustomerFinder is the slice of the customer repository bookings depend on.
type CustomerFinder interface {
	FindByID(ctx context.Context, id string) (*model.Customer, error)
}

type Transitioner interface {
	Transition(ctx context.Context, bookingID string, target model.BookingStatus) (*model.Booking, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	trips     repository.TripRepository
	codes     repository.BookingCodeRepository
	customers CustomerFinder
	lifecycle Transitioner
	validator *bookingvalidator.BookingValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	trips repository.TripRepository,
	codes repository.BookingCodeRepository,
	customers CustomerFinder,
	lifecycle Transitioner,
	validator *bookingvalidator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		trips:     trips,
		codes:     codes,
		customers: customers,
		lifecycle: lifecycle,
		validator: validator,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *bookingService) Create(ctx context.Context, in *model.BookingCreate) (*model.BookingDetail, error) {
	s.sanitize(in)
	if err := s.validator.ValidateCreate(in); err != nil {
		s.cfg.Log.WithScope(ctx).Warn("Booking validation failed", "error", err)
		return nil, validator.ToAppError("Booking validation failed", err)
	}

	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, apperrors.Unauthorized("Tenant scope is required")
	}
	if _, err := s.customers.FindByID(ctx, in.CustomerID); err != nil {
		return nil, mapCustomerError(err, in.CustomerID)
	}

	now := s.now()
	booking := &model.Booking{
		ID:         uuid.NewString(),
		TenantID:   scope.TenantID,
		CustomerID: in.CustomerID,
		Status:     model.StatusDraft,
		Notes:      in.Notes,
		CreatedBy:  scope.ActorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	trips := make([]*model.Trip, 0, len(in.Trips))
	for i := range in.Trips {
		trip := newTrip(scope.TenantID, booking.ID, &in.Trips[i], now)
		trips = append(trips, trip)
		booking.TripIDs = append(booking.TripIDs, trip.ID)
	}

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		code, err := s.nextCode(txCtx, now)
		if err != nil {
			return err
		}
		booking.Code = code

		for _, trip := range trips {
			if err := s.trips.Create(txCtx, trip); err != nil {
				return fmt.Errorf("failed to create trip: %w", err)
			}
		}
		return s.repo.Create(txCtx, booking)
	})
	if err != nil {
		if errors.Is(err, bookingserrors.ErrDuplicateCode) {
			return nil, apperrors.Conflict("Booking code collision. Please try again.")
		}
		s.cfg.Log.WithScope(ctx).Error("Failed to create booking", "error", err)
		return nil, internalError("Failed to create booking", err)
	}

	s.cfg.Log.WithScope(ctx).Info("Booking created successfully",
		"id", booking.ID,
		"code", booking.Code,
		"customer_id", booking.CustomerID,
		"trips", len(trips),
	)
	return s.detail(booking, trips), nil
}

// nextCode formats PREFIX/yyyy/mm/nnn with a counter per tenant and month.
func (s *bookingService) nextCode(ctx context.Context, now time.Time) (string, error) {
	period := fmt.Sprintf("%s/%04d/%02d", s.cfg.BookingCodePrefix, now.Year(), int(now.Month()))
	seq, err := s.codes.NextSequence(ctx, period)
	if err != nil {
		return "", fmt.Errorf("failed to allocate booking code: %w", err)
	}
	return fmt.Sprintf("%s/%03d", period, seq), nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.BookingDetail, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapBookingError(ctx, err, id, "Failed to retrieve booking")
	}

	trips, err := s.trips.FindByBooking(ctx, booking.ID)
	if err != nil {
		s.cfg.Log.WithScope(ctx).Error("Failed to load trips", "booking_id", id, "error", err)
		return nil, internalError("Failed to retrieve booking", err)
	}
	return s.detail(booking, trips), nil
}

func (s *bookingService) GetAll(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("unknown booking status: %s", filter.Status))
	}
	filter.Limit = config.NormalizePaginationLimit(filter.Limit)
	filter.Offset = config.NormalizeOffset(filter.Offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.WithScope(ctx).Error("Failed to count bookings", "error", errCount)
			errCount = internalError("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.List(ctx, filter)
		if errFind != nil {
			s.cfg.Log.WithScope(ctx).Error("Failed to list bookings", "error", errFind)
			errFind = internalError("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}
	return bookings, count, nil
}

func (s *bookingService) AddTrip(ctx context.Context, bookingID string, in *model.TripInput) (*model.Trip, error) {
	sanitizeTrip(in)
	if err := s.validator.ValidateTrip(in); err != nil {
		s.cfg.Log.WithScope(ctx).Warn("Trip validation failed", "booking_id", bookingID, "error", err)
		return nil, validator.ToAppError("Trip validation failed", err)
	}

	var trip *model.Trip
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		booking, err := s.repo.FindByID(txCtx, bookingID)
		if err != nil {
			return s.mapBookingError(txCtx, err, bookingID, "Failed to add trip")
		}
		if err := requireEditableTrips(booking); err != nil {
			return err
		}

		trip = newTrip(booking.TenantID, booking.ID, in, s.now())
		if err := s.trips.Create(txCtx, trip); err != nil {
			return fmt.Errorf("failed to create trip: %w", err)
		}
		return s.repo.AppendTrip(txCtx, booking.ID, trip.ID)
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.cfg.Log.WithScope(ctx).Error("Failed to add trip", "booking_id", bookingID, "error", err)
		return nil, internalError("Failed to add trip", err)
	}

	s.cfg.Log.WithScope(ctx).Info("Trip added",
		"booking_id", bookingID,
		"trip_id", trip.ID,
		"start_time", trip.StartTime,
	)
	return trip, nil
}

func (s *bookingService) UpdateTrip(ctx context.Context, tripID string, update *model.TripUpdate) (*model.Trip, error) {
	if tripID == "" {
		return nil, apperrors.InvalidInput("Trip ID cannot be empty")
	}

	trip, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, s.mapTripError(ctx, err, tripID)
	}
	booking, err := s.repo.FindByID(ctx, trip.BookingID)
	if err != nil {
		return nil, s.mapBookingError(ctx, err, trip.BookingID, "Failed to update trip")
	}
	if err := requireEditableTrips(booking); err != nil {
		return nil, err
	}

	sanitizeTripUpdate(update)
	merged := *trip
	mergeTripUpdate(&merged, update)
	if err := s.validator.ValidateTripUpdate(update, merged.StartTime, merged.EndTime); err != nil {
		s.cfg.Log.WithScope(ctx).Warn("Trip validation failed", "trip_id", tripID, "error", err)
		return nil, validator.ToAppError("Trip validation failed", err)
	}

	merged.UpdatedAt = s.now()
	if err := s.trips.Update(ctx, &merged); err != nil {
		return nil, s.mapTripError(ctx, err, tripID)
	}

	s.cfg.Log.WithScope(ctx).Info("Trip updated successfully",
		"trip_id", tripID,
		"booking_id", merged.BookingID,
		"window_changed", update.ChangesWindow(),
	)
	return &merged, nil
}

func (s *bookingService) Transition(ctx context.Context, bookingID string, target model.BookingStatus) (*model.BookingDetail, error) {
	if err := s.validator.ValidateTransition(&model.TransitionRequest{Target: target}); err != nil {
		return nil, validator.ToAppError("Transition validation failed", err)
	}

	booking, err := s.lifecycle.Transition(ctx, bookingID, target)
	if err != nil {
		return nil, err
	}

	trips, err := s.trips.FindByBooking(ctx, booking.ID)
	if err != nil {
		return nil, internalError("Failed to retrieve booking", err)
	}
	return s.detail(booking, trips), nil
}

func (s *bookingService) Transitions(ctx context.Context, bookingID string) (*model.BookingTransitions, error) {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, s.mapBookingError(ctx, err, bookingID, "Failed to retrieve booking")
	}

	history := booking.History
	if history == nil {
		history = []model.StatusChange{}
	}
	return &model.BookingTransitions{
		Status:     booking.Status,
		NextStates: lifecycle.ValidTargets(booking.Status),
		History:    history,
	}, nil
}

func (s *bookingService) detail(booking *model.Booking, trips []*model.Trip) *model.BookingDetail {
	if trips == nil {
		trips = []*model.Trip{}
	}
	return &model.BookingDetail{
		Booking:    booking,
		Trips:      trips,
		NextStates: lifecycle.ValidTargets(booking.Status),
	}
}

// requireEditableTrips keeps trip windows frozen once assignments may exist.
func requireEditableTrips(b *model.Booking) error {
	if b.Status == model.StatusDraft || b.Status == model.StatusQuotationSent {
		return nil
	}
	return apperrors.Validation("Trips can only be changed before payment is received", map[string]any{
		"booking_id": b.ID,
		"status":     string(b.Status),
	})
}

func newTrip(tenantID, bookingID string, in *model.TripInput, now time.Time) *model.Trip {
	return &model.Trip{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		BookingID:         bookingID,
		StartTime:         in.StartTime.UTC(),
		EndTime:           in.EndTime.UTC(),
		Pickup:            in.Pickup,
		Destination:       in.Destination,
		RequestedCategory: in.RequestedCategory,
		Passengers:        in.Passengers,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func mergeTripUpdate(trip *model.Trip, u *model.TripUpdate) {
	if u.StartTime != nil {
		trip.StartTime = u.StartTime.UTC()
	}
	if u.EndTime != nil {
		trip.EndTime = u.EndTime.UTC()
	}
	if u.Pickup != nil {
		trip.Pickup = *u.Pickup
	}
	if u.Destination != nil {
		trip.Destination = *u.Destination
	}
	if u.RequestedCategory != nil {
		trip.RequestedCategory = *u.RequestedCategory
	}
	if u.Passengers != nil {
		trip.Passengers = *u.Passengers
	}
}

func (s *bookingService) sanitize(in *model.BookingCreate) {
	in.CustomerID = sanitizer.TrimAndNormalize(in.CustomerID)
	in.Notes = sanitizer.NormalizeText(in.Notes)
	for i := range in.Trips {
		sanitizeTrip(&in.Trips[i])
	}
}

func sanitizeTrip(in *model.TripInput) {
	in.Pickup = sanitizer.NormalizeText(in.Pickup)
	in.Destination = sanitizer.NormalizeText(in.Destination)
	in.RequestedCategory = model.VehicleCategory(sanitizer.NormalizeCode(string(in.RequestedCategory)))
}

func sanitizeTripUpdate(u *model.TripUpdate) {
	if u.Pickup != nil {
		v := sanitizer.NormalizeText(*u.Pickup)
		u.Pickup = &v
	}
	if u.Destination != nil {
		v := sanitizer.NormalizeText(*u.Destination)
		u.Destination = &v
	}
	if u.RequestedCategory != nil {
		v := model.VehicleCategory(sanitizer.NormalizeCode(string(*u.RequestedCategory)))
		u.RequestedCategory = &v
	}
}

func (s *bookingService) mapBookingError(ctx context.Context, err error, id, message string) error {
	mapped := lifecycle.MapError(err, id)
	if apperrors.IsAppError(mapped) {
		return mapped
	}
	s.cfg.Log.WithScope(ctx).Error(message, "booking_id", id, "error", err)
	return apperrors.Internal(message, err)
}

func (s *bookingService) mapTripError(ctx context.Context, err error, id string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrTripNotFound):
		return apperrors.NotFoundWithID("Trip", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid trip ID format")
	case errors.Is(err, tenant.ErrMissingScope):
		return apperrors.Unauthorized("Tenant scope is required")
	}
	s.cfg.Log.WithScope(ctx).Error("Trip operation failed", "trip_id", id, "error", err)
	return apperrors.Internal("Failed to process trip", err)
}

func mapCustomerError(err error, id string) error {
	switch {
	case errors.Is(err, customerserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Customer", id)
	case errors.Is(err, customerserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid customer ID format")
	case errors.Is(err, tenant.ErrMissingScope):
		return apperrors.Unauthorized("Tenant scope is required")
	}
	return apperrors.Internal("Failed to verify customer", err)
}

func internalError(message string, err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, tenant.ErrMissingScope) {
		return apperrors.Unauthorized("Tenant scope is required")
	}
	return apperrors.Internal(message, err)
}
