package service

import (
	"context"
	"errors"
	"time"

	customerserrors "buscharter/internal/customers/errors"
	"buscharter/internal/customers/repository"
	"buscharter/pkg/config"
	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/model"
	"buscharter/pkg/sanitizer"
	"buscharter/pkg/tenant"
	"buscharter/pkg/validator"

	"github.com/google/uuid"
)

type CustomerService interface {
	Create(ctx context.Context, customer *model.Customer) error
	GetByID(ctx context.Context, id string) (*model.Customer, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Customer, int64, error)
}

type customerService struct {
	repo      repository.CustomerRepository
	validator *validator.Validator
	cfg       *config.Config
	now       func() time.Time
}

func NewCustomerService(repo repository.CustomerRepository, validator *validator.Validator, cfg *config.Config) CustomerService {
	return &customerService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *customerService) Create(ctx context.Context, customer *model.Customer) error {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return apperrors.Unauthorized("Tenant scope is required")
	}

	customer.ID = uuid.NewString()
	customer.TenantID = scope.TenantID
	customer.CreatedAt = s.now()
	s.sanitize(customer)

	if err := s.validator.Struct(customer); err != nil {
		s.cfg.Log.WithScope(ctx).Warn("Customer validation failed", "name", customer.Name, "error", err)
		return validator.ToAppError("Customer validation failed", err)
	}

	if err := s.repo.Create(ctx, customer); err != nil {
		if errors.Is(err, customerserrors.ErrDuplicatePhone) {
			s.cfg.Log.WithScope(ctx).Warn("Duplicate customer phone", "phone", customer.Phone)
			return apperrors.Conflict("A customer with this phone number already exists")
		}
		s.cfg.Log.WithScope(ctx).Error("Failed to create customer", "error", err)
		return apperrors.Internal("Failed to create customer", err)
	}

	s.cfg.Log.WithScope(ctx).Info("Customer created successfully", "id", customer.ID, "kind", customer.Kind)
	return nil
}

func (s *customerService) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, customerserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Customer", id)
		case errors.Is(err, customerserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid ID format: " + id)
		case errors.Is(err, tenant.ErrMissingScope):
			return nil, apperrors.Unauthorized("Tenant scope is required")
		}
		s.cfg.Log.WithScope(ctx).Error("Failed to get customer", "customer_id", id, "error", err)
		return nil, apperrors.Internal("Failed to get customer", err)
	}
	return customer, nil
}

func (s *customerService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Customer, int64, error) {
	customers, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, s.listError(ctx, err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, s.listError(ctx, err)
	}
	if customers == nil {
		customers = []*model.Customer{}
	}
	return customers, total, nil
}

func (s *customerService) listError(ctx context.Context, err error) error {
	if errors.Is(err, tenant.ErrMissingScope) {
		return apperrors.Unauthorized("Tenant scope is required")
	}
	s.cfg.Log.WithScope(ctx).Error("Failed to list customers", "error", err)
	return apperrors.Internal("Failed to list customers", err)
}

func (s *customerService) sanitize(c *model.Customer) {
	c.Name = sanitizer.NormalizeName(c.Name)
	c.Kind = model.CustomerKind(sanitizer.NormalizeCode(string(c.Kind)))
	c.ContactPerson = sanitizer.NormalizeName(c.ContactPerson)
	c.Email = sanitizer.NormalizeEmail(c.Email)
	c.Address = sanitizer.NormalizeText(c.Address)
	if phone := sanitizer.NormalizePhoneIn(c.Phone, s.cfg.PhoneRegion); phone != "" {
		c.Phone = phone
	}
}
