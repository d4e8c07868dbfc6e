package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/auth"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/exam-attempt-service/internal/validator"
	"github.com/google/uuid"
)

type authService struct {
	repo      repositories.Repository
	tokens    *auth.TokenManager
	validator *validator.Validator
	logger    *slog.Logger
}

func NewAuthService(repo repositories.Repository, tokens *auth.TokenManager, validator *validator.Validator, logger *slog.Logger) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		repo:      repo,
		tokens:    tokens,
		validator: validator,
		logger:    logger.With("service", "auth"),
	}
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, req.Email, req.Password, req.FullName, models.RoleStudent)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User registered", "user_id", user.ID)
	return &AuthResponse{User: user, Tokens: pair}, nil
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByEmail(ctx, nil, req.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, storageError("get user", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	now := time.Now().UTC()
	if err := s.repo.User().UpdateLastLogin(ctx, nil, user.ID, now); err != nil {
		s.logger.Warn("Failed to record last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, Tokens: pair}, nil
}

func (s *authService) Refresh(ctx context.Context, req *RefreshRequest) (*auth.TokenPair, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	token, err := s.tokens.Parse(req.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	var subject uuid.UUID
	switch t := token.(type) {
	case auth.RefreshToken:
		subject = t.Subject
	case auth.AccessToken:
		return nil, fmt.Errorf("%w: access token cannot be used to refresh", ErrUnauthorized)
	default:
		return nil, fmt.Errorf("%w: unexpected token %T", ErrUnauthorized, token)
	}

	// role changes and deactivation take effect on refresh
	user, err := s.Me(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return s.tokens.IssuePair(user.ID, user.Role)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, storageError("get user", err)
	}
	return user, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	fields := map[string]interface{}{}
	if req.FullName != nil {
		fields["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Password != nil {
		if err := auth.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
			if errors.Is(err, auth.ErrPasswordMismatch) {
				return nil, ErrInvalidCredentials
			}
			return nil, err
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		fields["hashed_password"] = hash
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.repo.User().Update(ctx, nil, userID, fields); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, storageError("update user", err)
	}
	s.logger.Info("Profile updated", "user_id", userID, "password_changed", req.Password != nil)
	return s.Me(ctx, userID)
}

func (s *authService) Deactivate(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.User().Update(ctx, nil, userID, map[string]interface{}{"is_active": false}); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return storageError("deactivate user", err)
	}
	s.logger.Info("User deactivated", "user_id", userID)
	return nil
}

func (s *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	_, err := s.repo.User().GetByEmail(ctx, nil, email)
	if err == nil {
		return nil
	}
	if !repositories.IsNotFoundError(err) {
		return storageError("get user", err)
	}

	user, err := s.createUser(ctx, email, password, "Administrator", models.RoleAdmin)
	if err != nil {
		// another instance created it first
		if errors.Is(err, ErrEmailTaken) {
			return nil
		}
		return err
	}
	s.logger.Info("Admin account created", "user_id", user.ID)
	return nil
}

func (s *authService) createUser(ctx context.Context, email, password, fullName string, role models.UserRole) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, storageError("create user", err)
	}
	return user, nil
}
