package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// --- DTOs ---

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// PermissionGrant is one row of the flattened permission list shipped
// to the client on login, for client-side UI gating.
type PermissionGrant struct {
	Resource string `json:"model_name"`
	Read     bool   `json:"read"`
	Create   bool   `json:"create"`
	Update   bool   `json:"update"`
	Delete   bool   `json:"delete"`
}

type LoginUserData struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	RoleName    *string           `json:"role_name"`
	Permissions []PermissionGrant `json:"permissions"`
}

type TokenResponse struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refresh_token"`
	UserData     LoginUserData `json:"user_data"`
}

// --- Interface ---

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
}

type authService struct {
	userRepo repository.UserRepository
	secret   []byte
}

func NewAuthService(userRepo repository.UserRepository, secret []byte) AuthService {
	return &authService{userRepo: userRepo, secret: secret}
}

// --- Implementation ---

func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}
	if !user.Active {
		return nil, errors.New("account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}
	return s.issueTokens(ctx, user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	stored, err := s.userRepo.FindRefreshToken(ctx, refreshToken)
	if err != nil || time.Now().After(stored.ExpiresAt) {
		return nil, errors.New("invalid or expired refresh token")
	}

	user, err := s.userRepo.FindByIDWithRole(ctx, stored.UserID)
	if err != nil || !user.Active {
		return nil, errors.New("invalid or expired refresh token")
	}

	// Rotate: the used token is replaced by a fresh pair.
	if err := s.userRepo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.userRepo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	roleName := ""
	if user.Role != nil {
		roleName = strings.ToLower(user.Role.Name)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": roleName,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	})
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
	if err := s.userRepo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, err
	}

	return &TokenResponse{
		Token:        tokenString,
		RefreshToken: refresh.Token,
		UserData:     UserData(user),
	}, nil
}

// UserData flattens the actor's identity and permission table for
// the auth layer's payload contract.
func UserData(user *model.User) LoginUserData {
	data := LoginUserData{
		ID:          user.ID,
		Name:        user.Name,
		Permissions: []PermissionGrant{},
	}
	if user.Role != nil {
		lower := strings.ToLower(user.Role.Name)
		data.RoleName = &lower
		for _, p := range user.Role.Permissions {
			data.Permissions = append(data.Permissions, PermissionGrant{
				Resource: p.Resource,
				Read:     p.CanRead,
				Create:   p.CanCreate,
				Update:   p.CanUpdate,
				Delete:   p.CanDelete,
			})
		}
	}
	return data
}
