package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	customerserrors "buscharter/internal/customers/errors"
	"buscharter/internal/customers/repository"
	"buscharter/pkg/model"

	"github.com/google/uuid"
)

type customerRepo struct{ s *Store }

func (s *Store) Customers() repository.CustomerRepository { return &customerRepo{s} }

func (r *customerRepo) Create(ctx context.Context, c *model.Customer) error {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.customers {
		if existing.TenantID == tenantID && existing.Phone == c.Phone {
			return fmt.Errorf("%w: %s", customerserrors.ErrDuplicatePhone, c.Phone)
		}
	}
	r.s.data.customers[c.ID] = *c
	r.s.data.touch(c.ID)
	return nil
}

func (r *customerRepo) FindByID(ctx context.Context, id string) (*model.Customer, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("%w: %s", customerserrors.ErrInvalidID, id)
	}
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.data.customers[id]
	if !ok || c.TenantID != tenantID {
		return nil, customerserrors.ErrNotFound
	}
	return &c, nil
}

func (r *customerRepo) all(ctx context.Context) ([]*model.Customer, error) {
	tenantID, err := tenantOf(ctx)
	if err != nil {
		return nil, err
	}

	var out []*model.Customer
	for _, c := range r.s.data.customers {
		if c.TenantID == tenantID {
			c := c
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *model.Customer) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *customerRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	return page(all, limit, offset), nil
}

func (r *customerRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all, err := r.all(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}
