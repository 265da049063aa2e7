package service

import (
	"context"
	"fmt"

	"backend/internal/model"
	"backend/internal/rbac"
	"backend/internal/repository"
	"backend/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// --- DTOs ---

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   string `json:"role_id"`
	Active   *bool  `json:"active"`
}

type UpdateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"` // optional: unchanged when empty
	RoleID   string `json:"role_id"`
	Active   *bool  `json:"active"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	RoleID    *string   `json:"role_id"`
	RoleName  *string   `json:"role_name,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// --- Interface ---

type UserService interface {
	Create(ctx context.Context, actor *model.User, req CreateUserRequest) (*UserResponse, error)
	Get(ctx context.Context, actor *model.User, id uuid.UUID) (*UserResponse, error)
	List(ctx context.Context, actor *model.User, page, limit int) ([]UserResponse, int64, error)
	Update(ctx context.Context, actor *model.User, id uuid.UUID, req UpdateUserRequest) (*UserResponse, error)
	Delete(ctx context.Context, actor *model.User, id uuid.UUID) error
}

type userService struct {
	userRepo  repository.UserRepository
	roleRepo  repository.RoleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewUserService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) UserService {
	return &userService{
		userRepo:  userRepo,
		roleRepo:  roleRepo,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

// --- Implementation ---

func toUserResponse(user *model.User) *UserResponse {
	resp := &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Active:    user.Active,
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if user.RoleID != nil {
		id := user.RoleID.String()
		resp.RoleID = &id
	}
	if user.Role != nil {
		resp.RoleName = &user.Role.Name
	}
	return resp
}

// validateUser collects every field problem before anything is written.
// On update, uniqueness excludes the record itself and the password is
// only checked when it is being changed.
func (s *userService) validateUser(ctx context.Context, name, email, password, roleID string, excludeID *uuid.UUID) (validation.Errors, *uuid.UUID) {
	errs := validation.Errors{}

	errs.Required("name", name)
	errs.Required("email", email)
	if excludeID == nil {
		errs.Required("password", password)
	}
	errs.Required("role_id", roleID)
	errs.Email("email", email)
	errs.Length("name", name, 3, 50)
	if password != "" {
		errs.Length("password", password, 6, 0)
	}

	if email != "" {
		taken, err := s.userRepo.EmailTaken(ctx, email, excludeID)
		if err == nil {
			errs.Unique("email", taken)
		}
	}

	var parsedRole *uuid.UUID
	if roleID != "" {
		parsed, err := uuid.Parse(roleID)
		if err != nil {
			errs.Add("role_id", "Role does not exist.")
		} else if _, err := s.roleRepo.FindByID(ctx, parsed); err != nil {
			errs.Add("role_id", "Role does not exist.")
		} else {
			parsedRole = &parsed
		}
	}
	return errs, parsedRole
}

func (s *userService) Create(ctx context.Context, actor *model.User, req CreateUserRequest) (*UserResponse, error) {
	errs, roleID := s.validateUser(ctx, req.Name, req.Email, req.Password, req.RoleID, nil)
	if !errs.Empty() {
		return nil, &ValidationError{Fields: errs}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		RoleID:   roleID,
		Active:   true,
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	user.Stamp(actor.ID)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionCreateUser,
			EntityID:   user.ID.String(),
			EntityName: user.Name,
			Details:    fmt.Sprintf(`{"email": %q}`, user.Email),
		})
	})
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

func (s *userService) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByIDWithRole(ctx, id)
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
	if !gate.CanAccess(actor, s.userRecord(ctx, user)) {
		return nil, ErrForbidden
	}
	return toUserResponse(user), nil
}

func (s *userService) List(ctx context.Context, actor *model.User, page, limit int) ([]UserResponse, int64, error) {
	roles, err := s.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	scope := rbac.Visible(actor, rbac.ResourceUser, rbac.ActionRead, roles)
	users, total, err := s.userRepo.List(ctx, scope, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *toUserResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) Update(ctx context.Context, actor *model.User, id uuid.UUID, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.userRepo.FindByIDWithRole(ctx, id)
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
	if !gate.CanAccess(actor, s.userRecord(ctx, user)) {
		return nil, ErrForbidden
	}

	errs, roleID := s.validateUser(ctx, req.Name, req.Email, req.Password, req.RoleID, &user.ID)
	if !errs.Empty() {
		return nil, &ValidationError{Fields: errs}
	}

	user.Name = req.Name
	user.Email = req.Email
	user.RoleID = roleID
	user.Role = nil
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = string(hashed)
	}
	user.Touch(actor.ID)

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	reloaded, err := s.userRepo.FindByIDWithRole(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return toUserResponse(reloaded), nil
}

func (s *userService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	user, err := s.userRepo.FindByIDWithRole(ctx, id)
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
	if !gate.CanAccess(actor, s.userRecord(ctx, user)) {
		return ErrForbidden
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionDeleteUser,
			EntityID:   id.String(),
			EntityName: user.Name,
			Details:    `{"deleted": true}`,
		})
	})
}

// userRecord tags a user row as a user-identity record so the gate
// applies the self/descendant-role clauses on top of the creator ones.
func (s *userService) userRecord(ctx context.Context, user *model.User) rbac.Record {
	rec := recordView(ctx, s.userRepo, rbac.ResourceUser, user.ID, user.CreatedByID)
	rec.RoleID = user.RoleID
	return rec
}
