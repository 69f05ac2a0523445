package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/config"
	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/repositories"
	"github.com/groupdreaming/rosca-backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// Compile-time check to ensure AuthServiceImpl implements AuthService
var _ AuthService = (*AuthServiceImpl)(nil)

// ErrInvalidCredentials is returned for unknown emails and wrong
// passwords alike, so login failures do not leak which one it was.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthServiceImpl handles admin authentication
type AuthServiceImpl struct {
	adminUserRepo repositories.AdminUserRepository
	cfg           *config.Config
}

// NewAuthService creates a new AuthServiceImpl
func NewAuthService(adminUserRepo repositories.AdminUserRepository, cfg *config.Config) *AuthServiceImpl {
	return &AuthServiceImpl{adminUserRepo: adminUserRepo, cfg: cfg}
}

// Login verifies credentials and returns a signed token with its expiry
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	user, err := s.adminUserRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", time.Time{}, ErrInvalidCredentials
		}
		return "", time.Time{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), user.Role, s.cfg)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	expiresAt := time.Now().Add(time.Second * time.Duration(s.cfg.JWT.ExpiresIn))
	return token, expiresAt, nil
}

// CreateAdmin registers an admin operator account
func (s *AuthServiceImpl) CreateAdmin(ctx context.Context, email, password, role string) (*models.AdminUser, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.AdminUser{
		Email:    email,
		Password: string(hash),
		Role:     role,
	}
	if err := s.adminUserRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("email %s already registered: %w", email, models.ErrAlreadyMember)
		}
		return nil, err
	}
	slog.Info("Admin user created", "email", email, "role", role)
	return user, nil
}
