package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/proteinpath/protein-path-go/internal/apperr"
	"github.com/proteinpath/protein-path-go/internal/crypto"
	"github.com/proteinpath/protein-path-go/internal/model"
	"github.com/proteinpath/protein-path-go/internal/repository"
)

const minPasswordLength = 6

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperr.ErrAuth)
	ErrInvalidSession     = fmt.Errorf("%w: invalid or expired session", apperr.ErrAuth)
	ErrEmailRequired      = fmt.Errorf("%w: email is required", apperr.ErrValidation)
	ErrPasswordRequired   = fmt.Errorf("%w: password is required", apperr.ErrValidation)
	ErrPasswordTooShort   = fmt.Errorf("%w: password must be at least %d characters", apperr.ErrValidation, minPasswordLength)
	ErrEmailTaken         = fmt.Errorf("%w: email already taken", apperr.ErrValidation)
)

// AuthService handles authentication business logic.
type AuthService struct {
	repo      *repository.UserRepository
	jwtSecret string
	jwtExpiry time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo *repository.UserRepository, secret string, expiry time.Duration) *AuthService {
	return &AuthService{
		repo:      repo,
		jwtSecret: secret,
		jwtExpiry: expiry,
	}
}

// Register creates a new user account and returns an auth token.
func (s *AuthService) Register(ctx context.Context, req model.CreateUserRequest) (model.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return model.AuthResponse{}, ErrEmailRequired
	}
	if req.Password == "" {
		return model.AuthResponse{}, ErrPasswordRequired
	}
	if len(req.Password) < minPasswordLength {
		return model.AuthResponse{}, ErrPasswordTooShort
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return model.AuthResponse{}, err
	}

	user := &model.User{
		ID:       uuid.NewString(),
		Email:    email,
		AuthHash: hash,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.AuthResponse{}, ErrEmailTaken
		}
		return model.AuthResponse{}, storageError("create user", err)
	}

	slog.Info("user registered", "user_id", user.ID)
	return s.issue(user)
}

// Login authenticates a user and returns an auth token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return model.AuthResponse{}, ErrEmailRequired
	}
	if req.Password == "" {
		return model.AuthResponse{}, ErrPasswordRequired
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.AuthResponse{}, ErrInvalidCredentials
		}
		return model.AuthResponse{}, storageError("get user", err)
	}

	match, err := crypto.VerifyPassword(req.Password, user.AuthHash)
	if err != nil {
		return model.AuthResponse{}, err
	}
	if !match {
		return model.AuthResponse{}, ErrInvalidCredentials
	}

	if crypto.NeedsRehash(user.AuthHash) {
		if hash, err := crypto.HashPassword(req.Password); err == nil {
			if err := s.repo.UpdateAuthHash(ctx, user.ID, hash); err != nil {
				slog.Warn("rehashing password failed", "user_id", user.ID, "error", err)
			}
		}
	}

	return s.issue(user)
}

// Validate checks token and returns the identity it was issued to.
func (s *AuthService) Validate(ctx context.Context, token string) (model.Authenticated, error) {
	claims, err := crypto.ValidateToken(token, s.jwtSecret)
	if err != nil {
		return model.Authenticated{}, ErrInvalidSession
	}

	user, err := s.repo.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.Authenticated{}, ErrInvalidSession
		}
		return model.Authenticated{}, storageError("get user", err)
	}

	return model.Authenticated{
		Identity:  model.Identity{ID: user.ID, Email: user.Email},
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// RefreshToken issues a fresh token for the holder of a valid token.
func (s *AuthService) RefreshToken(ctx context.Context, token string) (model.AuthResponse, error) {
	a, err := s.Validate(ctx, token)
	if err != nil {
		return model.AuthResponse{}, err
	}

	user, err := s.repo.GetByID(ctx, a.Identity.ID)
	if err != nil {
		return model.AuthResponse{}, storageError("get user", err)
	}
	return s.issue(user)
}

// GetUser retrieves a user by ID and returns safe user data.
func (s *AuthService) GetUser(ctx context.Context, userID string) (model.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserResponse{}, ErrInvalidSession
		}
		return model.UserResponse{}, storageError("get user", err)
	}

	return toUserResponse(user), nil
}

// SignIn implements session.Authenticator.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (model.Authenticated, error) {
	resp, err := s.Login(ctx, model.LoginRequest{Email: email, Password: password})
	if err != nil {
		return model.Authenticated{}, err
	}
	return toAuthenticated(resp), nil
}

// SignUp implements session.Authenticator.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (model.Authenticated, error) {
	resp, err := s.Register(ctx, model.CreateUserRequest{Email: email, Password: password})
	if err != nil {
		return model.Authenticated{}, err
	}
	return toAuthenticated(resp), nil
}

// Restore implements session.Authenticator.
func (s *AuthService) Restore(ctx context.Context, token string) (model.Authenticated, error) {
	return s.Validate(ctx, token)
}

// Refresh implements session.Authenticator.
func (s *AuthService) Refresh(ctx context.Context, token string) (model.Authenticated, error) {
	resp, err := s.RefreshToken(ctx, token)
	if err != nil {
		return model.Authenticated{}, err
	}
	return toAuthenticated(resp), nil
}

func (s *AuthService) issue(user *model.User) (model.AuthResponse, error) {
	token, expiresAt, err := crypto.GenerateToken(user.ID, user.Email, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return model.AuthResponse{}, err
	}

	return model.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      toUserResponse(user),
	}, nil
}

func toUserResponse(user *model.User) model.UserResponse {
	return model.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

func toAuthenticated(resp model.AuthResponse) model.Authenticated {
	return model.Authenticated{
		Identity:  model.Identity{ID: resp.User.ID, Email: resp.User.Email},
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
