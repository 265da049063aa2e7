package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"backend/internal/model"
	"backend/internal/rbac"
	"backend/internal/repository"
	"backend/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type InvoiceItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CreateInvoiceRequest struct {
	CustomerID  string               `json:"customer_id"`
	InvoiceDate string               `json:"invoice_date"` // YYYY-MM-DD, defaults to today
	Items       []InvoiceItemRequest `json:"items"`
}

// UpdateInvoiceRequest carries the only mutable field of a stored
// invoice. Amounts and line items never change after creation.
type UpdateInvoiceRequest struct {
	Status string `json:"status"`
}

type InvoiceItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
}

type InvoiceResponse struct {
	ID           uuid.UUID             `json:"id"`
	CustomerID   uuid.UUID             `json:"customer_id"`
	CustomerName string                `json:"customer_name,omitempty"`
	InvoiceDate  string                `json:"invoice_date"`
	TotalAmount  decimal.Decimal       `json:"total_amount"`
	Status       string                `json:"status"`
	Items        []InvoiceItemResponse `json:"items"`
	CreatedAt    string                `json:"created_at"`
}

// --- Interface ---

type InvoiceService interface {
	Create(ctx context.Context, actor *model.User, req CreateInvoiceRequest) (*InvoiceResponse, error)
	Get(ctx context.Context, actor *model.User, id uuid.UUID) (*InvoiceResponse, error)
	List(ctx context.Context, actor *model.User, status string, page, limit int) ([]InvoiceResponse, int64, error)
	UpdateStatus(ctx context.Context, actor *model.User, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error)
	Delete(ctx context.Context, actor *model.User, id uuid.UUID) error
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	roleRepo     repository.RoleRepository
	userRepo     repository.UserRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	notifier     StockNotifier
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	roleRepo repository.RoleRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier StockNotifier,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		roleRepo:     roleRepo,
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		notifier:     notifier,
	}
}

// --- Implementation ---

func toInvoiceResponse(inv *model.Invoice) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:          inv.ID,
		CustomerID:  inv.CustomerID,
		TotalAmount: inv.TotalAmount,
		Status:      inv.Status,
		Items:       make([]InvoiceItemResponse, 0, len(inv.Items)),
		CreatedAt:   inv.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if inv.Customer != nil {
		resp.CustomerName = inv.Customer.Name
	}
	if inv.InvoiceDate != nil {
		resp.InvoiceDate = inv.InvoiceDate.Format("2006-01-02")
	}
	for _, item := range inv.Items {
		ir := InvoiceItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Amount:    item.Amount,
		}
		if item.Product != nil {
			ir.ProductName = item.Product.Name
		}
		resp.Items = append(resp.Items, ir)
	}
	return resp
}

type invoiceLine struct {
	productID uuid.UUID
	quantity  int
}

// validateInvoice checks payload shape only. Stock levels are checked
// again inside the transaction, under row locks.
func (s *invoiceService) validateInvoice(ctx context.Context, req CreateInvoiceRequest) (validation.Errors, uuid.UUID, []invoiceLine, *time.Time) {
	errs := validation.Errors{}

	var customerID uuid.UUID
	errs.Required("customer_id", req.CustomerID)
	if req.CustomerID != "" {
		parsed, err := uuid.Parse(req.CustomerID)
		if err != nil {
			errs.Add("customer_id", "Customer does not exist.")
		} else if _, err := s.customerRepo.FindByID(ctx, parsed); err != nil {
			errs.Add("customer_id", "Customer does not exist.")
		} else {
			customerID = parsed
		}
	}

	if len(req.Items) == 0 {
		errs.Add("items", "At least one item is required.")
	}
	lines := make([]invoiceLine, 0, len(req.Items))
	for i, item := range req.Items {
		field := fmt.Sprintf("items.%d", i)
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			errs.Add(field, "Product does not exist.")
			continue
		}
		if item.Quantity <= 0 {
			errs.Add(field, "Quantity must be greater than zero.")
			continue
		}
		lines = append(lines, invoiceLine{productID: productID, quantity: item.Quantity})
	}

	var invoiceDate *time.Time
	if req.InvoiceDate != "" {
		parsed, err := time.Parse("2006-01-02", req.InvoiceDate)
		if err != nil {
			errs.Add("invoice_date", "Invalid date format. Use YYYY-MM-DD.")
		} else {
			invoiceDate = &parsed
		}
	} else {
		today := time.Now().Truncate(24 * time.Hour)
		invoiceDate = &today
	}

	return errs, customerID, lines, invoiceDate
}

// Create runs the whole invoice build inside one transaction: every
// product row is locked, stock is re-checked under the lock, line
// amounts are computed from the price at this moment, stock is
// decremented and the total recorded. Any failure rolls every write
// back, including the stock decrements already applied.
func (s *invoiceService) Create(ctx context.Context, actor *model.User, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	errs, customerID, lines, invoiceDate := s.validateInvoice(ctx, req)
	if !errs.Empty() {
		return nil, &ValidationError{Fields: errs}
	}

	// Lock in a stable order so two concurrent invoices over the same
	// products cannot deadlock against each other.
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].productID.String() < lines[j].productID.String()
	})

	invoice := &model.Invoice{
		CustomerID:  customerID,
		InvoiceDate: invoiceDate,
		Status:      model.InvoiceStatusPending,
	}
	invoice.Stamp(actor.ID)

	type stockChange struct {
		id       uuid.UUID
		name     string
		quantity int
	}
	var changes []stockChange

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		total := decimal.Zero
		items := make([]model.InvoiceItem, 0, len(lines))

		for _, line := range lines {
			product, err := s.productRepo.FindByIDForUpdate(txCtx, line.productID)
			if err != nil {
				if isNotFound(err) {
					verrs := validation.Errors{}
					verrs.Add("items", "Product does not exist.")
					return &ValidationError{Fields: verrs}
				}
				return err
			}
			if product.Quantity < line.quantity {
				return &StockError{ProductName: product.Name, Available: product.Quantity}
			}

			amount := product.Price.Mul(decimal.NewFromInt(int64(line.quantity)))
			total = total.Add(amount)

			product.Quantity -= line.quantity
			product.Touch(actor.ID)
			if err := s.productRepo.Update(txCtx, product); err != nil {
				return fmt.Errorf("failed to decrement stock: %w", err)
			}
			changes = append(changes, stockChange{id: product.ID, name: product.Name, quantity: product.Quantity})

			item := model.InvoiceItem{
				ProductID: line.productID,
				Quantity:  line.quantity,
				Amount:    amount,
			}
			item.Stamp(actor.ID)
			items = append(items, item)
		}

		invoice.TotalAmount = total
		if err := s.invoiceRepo.Create(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		for i := range items {
			items[i].InvoiceID = invoice.ID
			if err := s.invoiceRepo.CreateItem(txCtx, &items[i]); err != nil {
				return fmt.Errorf("failed to create invoice item: %w", err)
			}
		}

		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionCreateInvoice,
			EntityID:   invoice.ID.String(),
			EntityName: fmt.Sprintf("invoice %s", invoice.ID),
			Details:    fmt.Sprintf(`{"total": %q, "items": %d}`, invoice.TotalAmount.String(), len(lines)),
		})
	})
	if err != nil {
		return nil, err
	}

	// Broadcasts go out only after the commit; a rolled-back invoice
	// must not announce stock that never moved.
	if s.notifier != nil {
		for _, c := range changes {
			s.notifier.NotifyStockChanged(c.id, c.name, c.quantity)
		}
	}

	reloaded, err := s.invoiceRepo.FindByIDWithItems(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(reloaded), nil
}

func (s *invoiceService) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDWithItems(ctx, id)
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
	if !gate.CanAccess(actor, recordView(ctx, s.userRepo, rbac.ResourceInvoice, invoice.ID, invoice.CreatedByID)) {
		return nil, ErrForbidden
	}
	return toInvoiceResponse(invoice), nil
}

func (s *invoiceService) List(ctx context.Context, actor *model.User, status string, page, limit int) ([]InvoiceResponse, int64, error) {
	roles, err := s.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	scope := rbac.Visible(actor, rbac.ResourceInvoice, rbac.ActionRead, roles)
	invoices, total, err := s.invoiceRepo.List(ctx, scope, status, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, *toInvoiceResponse(&invoices[i]))
	}
	return responses, total, nil
}

// canSetStatus mirrors the management rule for invoice settlement: the
// sentinel admin role, or any role whose name contains "sales manager",
// case-insensitively.
func canSetStatus(actor *model.User) bool {
	if actor == nil {
		return false
	}
	if actor.Superuser {
		return true
	}
	if actor.Role == nil {
		return false
	}
	name := strings.ToLower(actor.Role.Name)
	return name == model.AdminRoleName || strings.Contains(name, "sales manager")
}

// UpdateStatus is the only write an existing invoice accepts. Pending
// invoices can be settled to paid or refused by a manager; settled
// invoices never change again.
func (s *invoiceService) UpdateStatus(ctx context.Context, actor *model.User, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDWithItems(ctx, id)
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
	if !gate.CanAccess(actor, recordView(ctx, s.userRepo, rbac.ResourceInvoice, invoice.ID, invoice.CreatedByID)) {
		return nil, ErrForbidden
	}

	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status != model.InvoiceStatusPaid && status != model.InvoiceStatusRefused {
		errs := validation.Errors{}
		errs.Add("status", "Status must be paid or refused.")
		return nil, &ValidationError{Fields: errs}
	}
	if !canSetStatus(actor) {
		return nil, ErrForbidden
	}
	if invoice.Status != model.InvoiceStatusPending {
		errs := validation.Errors{}
		errs.Add("status", fmt.Sprintf("Cannot change status of a %s invoice.", invoice.Status))
		return nil, &ValidationError{Fields: errs}
	}

	previous := invoice.Status
	invoice.Status = status
	invoice.Items = nil
	invoice.Customer = nil
	invoice.Touch(actor.ID)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.invoiceRepo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionUpdateInvoice,
			EntityID:   invoice.ID.String(),
			EntityName: fmt.Sprintf("invoice %s", invoice.ID),
			Details:    fmt.Sprintf(`{"from": %q, "to": %q}`, previous, status),
		})
	})
	if err != nil {
		return nil, err
	}

	reloaded, err := s.invoiceRepo.FindByIDWithItems(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(reloaded), nil
}

func (s *invoiceService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
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
	if !gate.CanAccess(actor, recordView(ctx, s.userRepo, rbac.ResourceInvoice, invoice.ID, invoice.CreatedByID)) {
		return ErrForbidden
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.invoiceRepo.Delete(txCtx, id)
	})
}
