package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Miompolly/capstone/config"
	"github.com/Miompolly/capstone/internal/models"
	"github.com/Miompolly/capstone/internal/repository"
	"github.com/Miompolly/capstone/pkg/httpclient"
	"github.com/Miompolly/capstone/pkg/jwt"
	"github.com/Miompolly/capstone/pkg/logger"
	"github.com/Miompolly/capstone/pkg/metrics"
	"github.com/Miompolly/capstone/pkg/trigger"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("account is not yet verified")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

// AuthService handles registration, login and account verification
type AuthService struct {
	userRepo     repository.UserDataSource
	tokenManager *jwt.TokenManager
	triggers     config.EventTriggerFunctionsConfig
	httpClient   httpclient.Client
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserDataSource, tokenManager *jwt.TokenManager,
	triggers config.EventTriggerFunctionsConfig, httpClient httpclient.Client) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		tokenManager: tokenManager,
		triggers:     triggers,
		httpClient:   httpClient,
	}
}

// Register creates a new user account. Admin accounts are active immediately;
// mentors and mentees stay inactive until an admin verifies them.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		Role:         req.Role,
		IsActive:     req.Role == models.RoleAdmin,
		PasswordHash: string(hash),
		Bio:          req.Bio,
		Expertise:    req.Expertise,
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			metrics.UserRegistrations.WithLabelValues(req.Role, "duplicate").Inc()
			return nil, ErrEmailTaken
		}
		metrics.UserRegistrations.WithLabelValues(req.Role, "error").Inc()
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	metrics.UserRegistrations.WithLabelValues(req.Role, "success").Inc()
	logger.Info("User registered",
		zap.Int64("user_id", created.ID),
		zap.String("role", created.Role),
		zap.Bool("is_active", created.IsActive))

	return created, nil
}

// Login verifies credentials and returns the user with a session token
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a comparison so missing users cost the same as bad passwords
			_ = bcrypt.CompareHashAndPassword(
				[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"), []byte(req.Password))
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn("Failed login attempt", zap.Int64("user_id", user.ID))
		return nil, "", ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, "", ErrUserInactive
	}

	token, err := s.tokenManager.GenerateToken(user.ID, user.Email, user.Name, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session token: %w", err)
	}

	logger.Info("User logged in", zap.Int64("user_id", user.ID), zap.String("role", user.Role))

	return user, token, nil
}

// VerifyUser activates a pending account. Admin only.
func (s *AuthService) VerifyUser(ctx context.Context, session *models.UserSession, userID int64) (*models.User, error) {
	if session.Role != models.RoleAdmin {
		return nil, ErrAccessDenied
	}

	if err := s.userRepo.SetActive(ctx, userID, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to verify user: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load verified user: %w", err)
	}

	logger.Info("User verified",
		zap.Int64("user_id", userID),
		zap.Int64("verified_by", session.UserID))

	trigger.CallAsync(s.triggers.UserVerifiedTriggerURL, "user_verified", userID, s.httpClient)

	return user, nil
}

// GetUser fetches a user by ID
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers lists all users, optionally filtered by role. Admin only.
func (s *AuthService) ListUsers(ctx context.Context, session *models.UserSession, role string) (*models.UsersResponse, error) {
	if session.Role != models.RoleAdmin {
		return nil, ErrAccessDenied
	}

	users, err := s.userRepo.GetAll(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &models.UsersResponse{Users: users, Total: len(users)}, nil
}
