package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	bookingserrors "buscharter/internal/bookings/errors"
	"buscharter/internal/bookings/repository"
	mongotx "buscharter/pkg/db/mongo"
	"buscharter/pkg/model"

	"github.com/google/uuid"
)

type bookingRepo struct{ s *Store }

func (s *Store) Bookings() repository.BookingRepository { return &bookingRepo{s} }

func (r *bookingRepo) Create(ctx context.Context, b *model.Booking) error {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("bookings.create"); err != nil {
		return err
	}
	for _, existing := range r.s.data.bookings {
		if existing.TenantID == tenantID && existing.Code == b.Code {
			return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateCode, b.Code)
		}
	}
	stored := *b
	stored.TripIDs = slices.Clone(b.TripIDs)
	stored.History = slices.Clone(b.History)
	r.s.data.bookings[b.ID] = stored
	r.s.data.touch(b.ID)
	return nil
}

func (r *bookingRepo) get(ctx context.Context, id string) (model.Booking, error) {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	b, ok := r.s.data.bookings[id]
	if !ok || b.TenantID != tenantID {
		return model.Booking{}, bookingserrors.ErrNotFound
	}
	return b, nil
}

func (r *bookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	b.TripIDs = slices.Clone(b.TripIDs)
	b.History = slices.Clone(b.History)
	return &b, nil
}

func (r *bookingRepo) filtered(ctx context.Context, f model.BookingFilter) ([]*model.Booking, error) {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return nil, err
	}

	var out []*model.Booking
	for _, b := range r.s.data.bookings {
		if b.TenantID != tenantID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.CustomerID != "" && b.CustomerID != f.CustomerID {
			continue
		}
		b := b
		out = append(out, &b)
	}
	slices.SortFunc(out, func(a, b *model.Booking) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(r.s.data.order[b.ID] - r.s.data.order[a.ID])
	})
	return out, nil
}

func (r *bookingRepo) List(ctx context.Context, f model.BookingFilter) ([]*model.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all, err := r.filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	return page(all, f.Limit, f.Offset), nil
}

func (r *bookingRepo) Count(ctx context.Context, f model.BookingFilter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all, err := r.filtered(ctx, f)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

func (r *bookingRepo) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, change model.StatusChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("bookings.updatestatus"); err != nil {
		return err
	}

	b, err := r.get(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != from {
		return fmt.Errorf("%w: expected %s", bookingserrors.ErrStatusChanged, from)
	}
	b.Status = to
	b.UpdatedAt = change.At
	b.History = append(slices.Clone(b.History), change)
	r.s.data.bookings[id] = b
	return nil
}

func (r *bookingRepo) SaveTotals(ctx context.Context, id string, totals model.BookingTotals) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, err := r.get(ctx, id)
	if err != nil {
		return err
	}
	b.Totals = totals
	r.s.data.bookings[id] = b
	return nil
}

func (r *bookingRepo) Fence(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("bookings.fence"); err != nil {
		return err
	}

	b, err := r.get(ctx, id)
	if err != nil {
		return err
	}
	r.s.data.fences["booking|"+b.ID]++
	return nil
}

func (r *bookingRepo) AppendTrip(ctx context.Context, id string, tripID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, err := r.get(ctx, id)
	if err != nil {
		return err
	}
	if !slices.Contains(b.TripIDs, tripID) {
		b.TripIDs = append(slices.Clone(b.TripIDs), tripID)
	}
	b.UpdatedAt = time.Now().UTC()
	r.s.data.bookings[id] = b
	return nil
}

func (r *bookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.s.ExecuteTransaction(ctx, fn)
}

type tripRepo struct{ s *Store }

func (s *Store) Trips() repository.TripRepository { return &tripRepo{s} }

func (r *tripRepo) Create(ctx context.Context, t *model.Trip) error {
	if _, err := tenantOf(ctx); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.trips[t.ID] = *t
	r.s.data.touch(t.ID)
	return nil
}

func (r *tripRepo) FindByID(ctx context.Context, id string) (*model.Trip, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.data.trips[id]
	if !ok || t.TenantID != tenantID {
		return nil, bookingserrors.ErrTripNotFound
	}
	return &t, nil
}

func (r *tripRepo) FindByBooking(ctx context.Context, bookingID string) ([]*model.Trip, error) {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Trip
	for _, t := range r.s.data.trips {
		if t.TenantID == tenantID && t.BookingID == bookingID {
			t := t
			out = append(out, &t)
		}
	}
	slices.SortFunc(out, func(a, b *model.Trip) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *tripRepo) Update(ctx context.Context, t *model.Trip) error {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.data.trips[t.ID]
	if !ok || existing.TenantID != tenantID {
		return bookingserrors.ErrTripNotFound
	}
	r.s.data.trips[t.ID] = *t
	return nil
}

type codeRepo struct{ s *Store }

func (s *Store) BookingCodes() repository.BookingCodeRepository { return &codeRepo{s} }

func (r *codeRepo) NextSequence(ctx context.Context, period string) (int64, error) {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return 0, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := tenantID + "|" + period
	r.s.data.counters[key]++
	return r.s.data.counters[key], nil
}

func page[T any](all []T, limit int, offset int64) []T {
	if offset >= int64(len(all)) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}
