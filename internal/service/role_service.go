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

type PermissionInput struct {
	Resource  string `json:"resource"`
	CanCreate bool   `json:"create"`
	CanRead   bool   `json:"read"`
	CanUpdate bool   `json:"update"`
	CanDelete bool   `json:"delete"`
}

type CreateRoleRequest struct {
	Name        string            `json:"name"`
	Active      *bool             `json:"active"`
	Permissions []PermissionInput `json:"permissions"`
}

type UpdateRoleRequest struct {
	Name        string            `json:"name"`
	Active      *bool             `json:"active"`
	Permissions []PermissionInput `json:"permissions"`
}

type RoleResponse struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	ParentRoleID *uuid.UUID        `json:"parent_role_id"`
	Active       bool              `json:"active"`
	Permissions  []PermissionInput `json:"permissions"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
}

// --- Interface ---

type RoleService interface {
	Create(ctx context.Context, actor *model.User, req CreateRoleRequest) (*RoleResponse, error)
	Get(ctx context.Context, actor *model.User, id uuid.UUID) (*RoleResponse, error)
	List(ctx context.Context, actor *model.User, page, limit int) ([]RoleResponse, int64, error)
	Update(ctx context.Context, actor *model.User, id uuid.UUID, req UpdateRoleRequest) (*RoleResponse, error)
	Delete(ctx context.Context, actor *model.User, id uuid.UUID) error
}

type roleService struct {
	roleRepo  repository.RoleRepository
	userRepo  repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewRoleService(
	roleRepo repository.RoleRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) RoleService {
	return &roleService{
		roleRepo:  roleRepo,
		userRepo:  userRepo,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

// --- Implementation ---

func toRoleResponse(role *model.Role) *RoleResponse {
	perms := make([]PermissionInput, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		perms = append(perms, PermissionInput{
			Resource:  p.Resource,
			CanCreate: p.CanCreate,
			CanRead:   p.CanRead,
			CanUpdate: p.CanUpdate,
			CanDelete: p.CanDelete,
		})
	}
	return &RoleResponse{
		ID:           role.ID,
		Name:         role.Name,
		ParentRoleID: role.ParentRoleID,
		Active:       role.Active,
		Permissions:  perms,
		CreatedAt:    role.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    role.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func validatePermissions(inputs []PermissionInput) (validation.Errors, []model.Permission) {
	errs := validation.Errors{}
	perms := make([]model.Permission, 0, len(inputs))
	for _, in := range inputs {
		if _, ok := rbac.ParseResource(in.Resource); !ok {
			errs.Add("permissions", fmt.Sprintf("Unknown resource: %s.", in.Resource))
			continue
		}
		perms = append(perms, model.Permission{
			Resource:  in.Resource,
			CanCreate: in.CanCreate,
			CanRead:   in.CanRead,
			CanUpdate: in.CanUpdate,
			CanDelete: in.CanDelete,
		})
	}
	return errs, perms
}

// Create places the new role under the creator's own role. The parent
// is never taken from the payload, so nobody can grow the tree above
// their own position.
func (s *roleService) Create(ctx context.Context, actor *model.User, req CreateRoleRequest) (*RoleResponse, error) {
	errs := validation.Errors{}
	errs.Required("name", req.Name)
	errs.Length("name", req.Name, 2, 100)
	permErrs, perms := validatePermissions(req.Permissions)
	for field, msgs := range permErrs {
		for _, msg := range msgs {
			errs.Add(field, msg)
		}
	}
	if !errs.Empty() {
		return nil, &ValidationError{Fields: errs}
	}

	// Acyclicity is enforced here, where the tree is mutated, not just
	// guarded at traversal time. A fresh role can only hit this when the
	// stored parent chain above the creator is already broken.
	all, err := s.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	newID := uuid.New()
	if rbac.WouldCreateCycle(all, newID, actor.RoleID) {
		errs.Add("parent_role", "Parent chain would form a cycle.")
		return nil, &ValidationError{Fields: errs}
	}

	role := &model.Role{
		ID:           newID,
		Name:         req.Name,
		ParentRoleID: actor.RoleID,
		Active:       true,
	}
	if req.Active != nil {
		role.Active = *req.Active
	}
	role.Stamp(actor.ID)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roleRepo.Create(txCtx, role); err != nil {
			return fmt.Errorf("failed to create role: %w", err)
		}
		for i := range perms {
			perms[i].RoleID = role.ID
			perms[i].Stamp(actor.ID)
			if err := s.roleRepo.CreatePermission(txCtx, &perms[i]); err != nil {
				return fmt.Errorf("failed to create permission: %w", err)
			}
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionCreateRole,
			EntityID:   role.ID.String(),
			EntityName: role.Name,
			Details:    fmt.Sprintf(`{"permissions": %d}`, len(perms)),
		})
	})
	if err != nil {
		return nil, err
	}

	reloaded, err := s.roleRepo.FindByIDWithPermissions(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	return toRoleResponse(reloaded), nil
}

func (s *roleService) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*RoleResponse, error) {
	role, err := s.roleRepo.FindByIDWithPermissions(ctx, id)
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
	if !gate.CanAccess(actor, s.roleRecord(ctx, role)) {
		return nil, ErrForbidden
	}
	return toRoleResponse(role), nil
}

func (s *roleService) List(ctx context.Context, actor *model.User, page, limit int) ([]RoleResponse, int64, error) {
	roles, err := s.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	scope := rbac.Visible(actor, rbac.ResourceRole, rbac.ActionRead, roles)
	rows, total, err := s.roleRepo.List(ctx, scope, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]RoleResponse, 0, len(rows))
	for i := range rows {
		responses = append(responses, *toRoleResponse(&rows[i]))
	}
	return responses, total, nil
}

// Update renames a role and replaces its permission rows. The parent
// link is not updatable from the payload; reparenting would be the
// only way to introduce a cycle and the creation path always hangs a
// role under an existing one.
func (s *roleService) Update(ctx context.Context, actor *model.User, id uuid.UUID, req UpdateRoleRequest) (*RoleResponse, error) {
	role, err := s.roleRepo.FindByIDWithPermissions(ctx, id)
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
	if !gate.CanAccess(actor, s.roleRecord(ctx, role)) {
		return nil, ErrForbidden
	}

	errs := validation.Errors{}
	errs.Required("name", req.Name)
	errs.Length("name", req.Name, 2, 100)
	permErrs, perms := validatePermissions(req.Permissions)
	for field, msgs := range permErrs {
		for _, msg := range msgs {
			errs.Add(field, msg)
		}
	}
	if !errs.Empty() {
		return nil, &ValidationError{Fields: errs}
	}

	role.Name = req.Name
	if req.Active != nil {
		role.Active = *req.Active
	}
	role.Permissions = nil
	role.Touch(actor.ID)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roleRepo.Update(txCtx, role); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		for i := range perms {
			perms[i].Stamp(actor.ID)
		}
		return s.roleRepo.ReplacePermissions(txCtx, role.ID, perms)
	})
	if err != nil {
		return nil, err
	}

	reloaded, err := s.roleRepo.FindByIDWithPermissions(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	return toRoleResponse(reloaded), nil
}

func (s *roleService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	role, err := s.roleRepo.FindByID(ctx, id)
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
	if !gate.CanAccess(actor, s.roleRecord(ctx, role)) {
		return ErrForbidden
	}
	if role.IsAdmin() {
		return ErrForbidden
	}

	return s.roleRepo.Delete(ctx, id)
}

func (s *roleService) roleRecord(ctx context.Context, role *model.Role) rbac.Record {
	return recordView(ctx, s.userRepo, rbac.ResourceRole, role.ID, role.CreatedByID)
}
