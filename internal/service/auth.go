package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/letieu/goldmines/internal/apperror"
	"github.com/letieu/goldmines/internal/auth"
	"github.com/letieu/goldmines/internal/model"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *model.UserProfile) error
	GetUserByEmail(ctx context.Context, email string) (*model.UserProfile, error)
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type AuthService struct {
	users     UserStore
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

func NewAuthService(users UserStore, passwords *auth.PasswordService, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, passwords: passwords, tokens: tokens, logger: logger}
}

// Signup creates a free-tier profile. A taken email is a Conflict.
func (s *AuthService) Signup(ctx context.Context, c Credentials) (*model.UserProfile, error) {
	if err := validateStruct(c); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(c.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	u := &model.UserProfile{
		ID:                 uuid.NewString(),
		Email:              c.Email,
		PasswordHash:       hash,
		SubscriptionStatus: "free",
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "an account with this email already exists",
				Field:   "email",
			}
		}
		return nil, err
	}

	s.logger.Info("user signed up", slog.String("user_id", u.ID))
	return u, nil
}

// Login returns a signed access token. Unknown emails and wrong passwords
// give the same answer.
func (s *AuthService) Login(ctx context.Context, c Credentials) (string, *model.UserProfile, error) {
	if c.Email == "" || c.Password == "" {
		return "", nil, apperror.ValidationFailed("email", "email and password are required")
	}

	u, err := s.users.GetUserByEmail(ctx, c.Email)
	if errors.Is(err, apperror.ErrNotFound) {
		return "", nil, apperror.Unauthorized("invalid email or password")
	}
	if err != nil {
		return "", nil, err
	}

	if err := s.passwords.Verify(u.PasswordHash, c.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return "", nil, apperror.Unauthorized("invalid email or password")
		}
		return "", nil, err
	}

	token, err := s.tokens.Generate(u.ID)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *AuthService) ParseToken(token string) (string, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return "", apperror.Unauthorized("invalid or expired token")
	}
	return userID, nil
}
