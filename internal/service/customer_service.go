package service

import (
	"context"
	"fmt"

	"backend/internal/model"
	"backend/internal/rbac"
	"backend/internal/repository"
	"backend/internal/validation"

	"github.com/google/uuid"
)

// --- DTOs ---

type CustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Mobile  string `json:"mobile"`
	Address string `json:"address"`
}

type CustomerResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Mobile    string    `json:"mobile"`
	Address   string    `json:"address"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// --- Interface ---

type CustomerService interface {
	Create(ctx context.Context, actor *model.User, req CustomerRequest) (*CustomerResponse, error)
	Get(ctx context.Context, actor *model.User, id uuid.UUID) (*CustomerResponse, error)
	List(ctx context.Context, actor *model.User, page, limit int, search string) ([]CustomerResponse, int64, error)
	Update(ctx context.Context, actor *model.User, id uuid.UUID, req CustomerRequest) (*CustomerResponse, error)
	Delete(ctx context.Context, actor *model.User, id uuid.UUID) error
}

type customerService struct {
	customerRepo repository.CustomerRepository
	roleRepo     repository.RoleRepository
	userRepo     repository.UserRepository
}

func NewCustomerService(
	customerRepo repository.CustomerRepository,
	roleRepo repository.RoleRepository,
	userRepo repository.UserRepository,
) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		roleRepo:     roleRepo,
		userRepo:     userRepo,
	}
}

// --- Implementation ---

func toCustomerResponse(c *model.Customer) *CustomerResponse {
	return &CustomerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Mobile:    c.Mobile,
		Address:   c.Address,
		CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: c.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *customerService) validateCustomer(ctx context.Context, req CustomerRequest, excludeID *uuid.UUID) validation.Errors {
	errs := validation.Errors{}

	errs.Required("name", req.Name)
	errs.Required("email", req.Email)
	errs.Required("mobile", req.Mobile)
	errs.Email("email", req.Email)
	errs.Length("name", req.Name, 2, 100)

	if req.Email != "" {
		taken, err := s.customerRepo.FieldTaken(ctx, "email", req.Email, excludeID)
		if err == nil {
			errs.Unique("email", taken)
		}
	}
	if req.Mobile != "" {
		taken, err := s.customerRepo.FieldTaken(ctx, "mobile", req.Mobile, excludeID)
		if err == nil {
			errs.Unique("mobile", taken)
		}
	}
	return errs
}

func (s *customerService) Create(ctx context.Context, actor *model.User, req CustomerRequest) (*CustomerResponse, error) {
	errs := s.validateCustomer(ctx, req, nil)
	if !errs.Empty() {
		return nil, &ValidationError{Fields: errs}
	}

	customer := &model.Customer{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Mobile:  req.Mobile,
		Address: req.Address,
	}
	customer.Stamp(actor.ID)

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return toCustomerResponse(customer), nil
}

// Get applies the per-record gate even though the customer list is a
// shared directory; a single record is only served to its creator,
// that creator's reporting chain, or an admin.
func (s *customerService) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	gate, _, err := snapshotGate(ctx, s.roleRepo)
	if err != nil {
		return nil, err
	}
	if !gate.CanAccess(actor, recordView(ctx, s.userRepo, rbac.ResourceCustomer, customer.ID, customer.CreatedByID)) {
		return nil, ErrForbidden
	}
	return toCustomerResponse(customer), nil
}

func (s *customerService) List(ctx context.Context, actor *model.User, page, limit int, search string) ([]CustomerResponse, int64, error) {
	roles, err := s.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	scope := rbac.Visible(actor, rbac.ResourceCustomer, rbac.ActionRead, roles)
	customers, total, err := s.customerRepo.List(ctx, scope, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]CustomerResponse, 0, len(customers))
	for i := range customers {
		responses = append(responses, *toCustomerResponse(&customers[i]))
	}
	return responses, total, nil
}

func (s *customerService) Update(ctx context.Context, actor *model.User, id uuid.UUID, req CustomerRequest) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	gate, _, err := snapshotGate(ctx, s.roleRepo)
	if err != nil {
		return nil, err
	}
	if !gate.CanAccess(actor, recordView(ctx, s.userRepo, rbac.ResourceCustomer, customer.ID, customer.CreatedByID)) {
		return nil, ErrForbidden
	}

	errs := s.validateCustomer(ctx, req, &customer.ID)
	if !errs.Empty() {
		return nil, &ValidationError{Fields: errs}
	}

	customer.Name = req.Name
	customer.Email = req.Email
	customer.Phone = req.Phone
	customer.Mobile = req.Mobile
	customer.Address = req.Address
	customer.Touch(actor.ID)

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return toCustomerResponse(customer), nil
}

func (s *customerService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return err
	}

	gate, _, err := snapshotGate(ctx, s.roleRepo)
	if err != nil {
		return err
	}
	if !gate.CanAccess(actor, recordView(ctx, s.userRepo, rbac.ResourceCustomer, customer.ID, customer.CreatedByID)) {
		return ErrForbidden
	}

	return s.customerRepo.Delete(ctx, id)
}
