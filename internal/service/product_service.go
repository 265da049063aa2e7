package service

import (
	"context"
	"fmt"

	"backend/internal/model"
	"backend/internal/rbac"
	"backend/internal/repository"
	"backend/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type ProductRequest struct {
	Name        string           `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity"`
	Description string           `json:"description"`
}

type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Description string          `json:"description"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// --- Interface ---

type ProductService interface {
	Create(ctx context.Context, actor *model.User, req ProductRequest) (*ProductResponse, error)
	Get(ctx context.Context, actor *model.User, id uuid.UUID) (*ProductResponse, error)
	List(ctx context.Context, actor *model.User, page, limit int, search string) ([]ProductResponse, int64, error)
	Update(ctx context.Context, actor *model.User, id uuid.UUID, req ProductRequest) (*ProductResponse, error)
	Delete(ctx context.Context, actor *model.User, id uuid.UUID) error
}

// StockNotifier receives stock level changes after they commit.
type StockNotifier interface {
	NotifyStockChanged(productID uuid.UUID, name string, quantity int)
}

type productService struct {
	productRepo repository.ProductRepository
	roleRepo    repository.RoleRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	notifier    StockNotifier
}

func NewProductService(
	productRepo repository.ProductRepository,
	roleRepo repository.RoleRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier StockNotifier,
) ProductService {
	return &productService{
		productRepo: productRepo,
		roleRepo:    roleRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		notifier:    notifier,
	}
}

// --- Implementation ---

func toProductResponse(p *model.Product) *ProductResponse {
	return &ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Description: p.Description,
		CreatedAt:   p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *productService) validateProduct(ctx context.Context, req ProductRequest, excludeID *uuid.UUID) validation.Errors {
	errs := validation.Errors{}

	errs.Required("name", req.Name)
	errs.Length("name", req.Name, 2, 100)
	if req.Price == nil {
		errs.Add("price", "This field is required.")
	} else if req.Price.IsNegative() {
		errs.Add("price", "Must be a positive number.")
	}
	if req.Quantity == nil {
		errs.Add("quantity", "This field is required.")
	} else {
		errs.NonNegative("quantity", float64(*req.Quantity))
	}

	if req.Name != "" {
		taken, err := s.productRepo.NameTaken(ctx, req.Name, excludeID)
		if err == nil {
			errs.Unique("name", taken)
		}
	}
	return errs
}

func (s *productService) Create(ctx context.Context, actor *model.User, req ProductRequest) (*ProductResponse, error) {
	errs := s.validateProduct(ctx, req, nil)
	if !errs.Empty() {
		return nil, &ValidationError{Fields: errs}
	}

	product := &model.Product{
		Name:        req.Name,
		Price:       *req.Price,
		Quantity:    *req.Quantity,
		Description: req.Description,
	}
	product.Stamp(actor.ID)

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionCreateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    fmt.Sprintf(`{"quantity": %d}`, product.Quantity),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyStockChanged(product.ID, product.Name, product.Quantity)
	}
	return toProductResponse(product), nil
}

func (s *productService) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
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
	if !gate.CanAccess(actor, recordView(ctx, s.userRepo, rbac.ResourceProduct, product.ID, product.CreatedByID)) {
		return nil, ErrForbidden
	}
	return toProductResponse(product), nil
}

func (s *productService) List(ctx context.Context, actor *model.User, page, limit int, search string) ([]ProductResponse, int64, error) {
	roles, err := s.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	scope := rbac.Visible(actor, rbac.ResourceProduct, rbac.ActionRead, roles)
	products, total, err := s.productRepo.List(ctx, scope, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ProductResponse, 0, len(products))
	for i := range products {
		responses = append(responses, *toProductResponse(&products[i]))
	}
	return responses, total, nil
}

func (s *productService) Update(ctx context.Context, actor *model.User, id uuid.UUID, req ProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
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
	if !gate.CanAccess(actor, recordView(ctx, s.userRepo, rbac.ResourceProduct, product.ID, product.CreatedByID)) {
		return nil, ErrForbidden
	}

	errs := s.validateProduct(ctx, req, &product.ID)
	if !errs.Empty() {
		return nil, &ValidationError{Fields: errs}
	}

	stockChanged := product.Quantity != *req.Quantity
	product.Name = req.Name
	product.Price = *req.Price
	product.Quantity = *req.Quantity
	product.Description = req.Description
	product.Touch(actor.ID)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionUpdateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    fmt.Sprintf(`{"quantity": %d}`, product.Quantity),
		})
	})
	if err != nil {
		return nil, err
	}

	if stockChanged && s.notifier != nil {
		s.notifier.NotifyStockChanged(product.ID, product.Name, product.Quantity)
	}
	return toProductResponse(product), nil
}

// Delete refuses to remove a product that any invoice line references;
// historical invoices keep their product rows.
func (s *productService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
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
	if !gate.CanAccess(actor, recordView(ctx, s.userRepo, rbac.ResourceProduct, product.ID, product.CreatedByID)) {
		return ErrForbidden
	}

	referenced, err := s.productRepo.ReferencedByInvoice(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		errs := validation.Errors{}
		errs.Add("product", "Cannot delete a product referenced by invoices.")
		return &ValidationError{Fields: errs}
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionDeleteProduct,
			EntityID:   id.String(),
			EntityName: product.Name,
			Details:    `{"deleted": true}`,
		})
	})
}
