package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	financeerrors "buscharter/internal/finance/errors"
	"buscharter/internal/finance/repository"
	"buscharter/pkg/model"

	"github.com/google/uuid"
)

type chargeRepo struct{ s *Store }

func (s *Store) Charges() repository.ChargeRepository { return &chargeRepo{s} }

func (r *chargeRepo) Create(ctx context.Context, c *model.Charge) error {
	if _, err := tenantOf(ctx); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("charges.create"); err != nil {
		return err
	}
	r.s.data.charges[c.ID] = *c
	r.s.data.touch(c.ID)
	return nil
}

func (r *chargeRepo) FindByID(ctx context.Context, id string) (*model.Charge, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("%w: %s", financeerrors.ErrInvalidID, id)
	}
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.data.charges[id]
	if !ok || c.TenantID != tenantID {
		return nil, financeerrors.ErrChargeNotFound
	}
	return &c, nil
}

func (r *chargeRepo) Update(ctx context.Context, c *model.Charge) error {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.data.charges[c.ID]
	if !ok || existing.TenantID != tenantID {
		return financeerrors.ErrChargeNotFound
	}
	r.s.data.charges[c.ID] = *c
	return nil
}

func (r *chargeRepo) Delete(ctx context.Context, id string) error {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.data.charges[id]
	if !ok || existing.TenantID != tenantID {
		return financeerrors.ErrChargeNotFound
	}
	delete(r.s.data.charges, id)
	return nil
}

func (r *chargeRepo) ByBooking(ctx context.Context, bookingID string) ([]*model.Charge, error) {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Charge
	for _, c := range r.s.data.charges {
		if c.TenantID == tenantID && c.BookingID == bookingID {
			c := c
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *model.Charge) int {
		return cmp.Compare(r.s.data.order[a.ID], r.s.data.order[b.ID])
	})
	return out, nil
}

type paymentRepo struct{ s *Store }

func (s *Store) Payments() repository.PaymentRepository { return &paymentRepo{s} }

func (r *paymentRepo) Create(ctx context.Context, p *model.Payment) error {
	if _, err := tenantOf(ctx); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("payments.create"); err != nil {
		return err
	}
	r.s.data.payments[p.ID] = *p
	r.s.data.touch(p.ID)
	return nil
}

func (r *paymentRepo) ByBooking(ctx context.Context, bookingID string) ([]*model.Payment, error) {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Payment
	for _, p := range r.s.data.payments {
		if p.TenantID == tenantID && p.BookingID == bookingID {
			p := p
			out = append(out, &p)
		}
	}
	slices.SortFunc(out, func(a, b *model.Payment) int {
		if c := a.PaidAt.Compare(b.PaidAt); c != 0 {
			return c
		}
		return cmp.Compare(r.s.data.order[a.ID], r.s.data.order[b.ID])
	})
	return out, nil
}
