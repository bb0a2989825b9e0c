package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/repositories"
	"github.com/bluerally/buooy-backend/pkg/config"
)

const (
	AdminUserPageSize = 20

	adminSessionIssuer = "buooy-admin"
	minAdminPassword   = 8
)

// AdminService backs the server-rendered admin pages.
type AdminService struct {
	store *repositories.Store
	cfg   config.AdminConfig
	log   *zap.Logger
	now   func() time.Time
}

func NewAdminService(store *repositories.Store, cfg config.AdminConfig, log *zap.Logger) *AdminService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	return &AdminService{store: store, cfg: cfg, log: log.Named("admin"), now: time.Now}
}

// CreateAdmin stores a new admin with a bcrypt hashed password.
func (s *AdminService) CreateAdmin(ctx context.Context, username, password string) (*models.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, Invalid("username is required")
	}
	if len(password) < minAdminPassword {
		return nil, Invalid("password must be at least %d characters", minAdminPassword)
	}
	if _, err := s.store.Admins.GetAdminByUsername(ctx, username); err == nil {
		return nil, Conflict("admin %q already exists", username)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	admin := &models.AdminUser{Username: username, Password: string(hash)}
	if err := s.store.Admins.CreateAdmin(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("admin created", zap.String("username", username))
	return admin, nil
}

// Login checks the credentials and returns a signed session value for the
// admin cookie.
func (s *AdminService) Login(ctx context.Context, username, password string) (string, error) {
	admin, err := s.store.Admins.GetAdminByUsername(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", Unauthorized("invalid username or password")
	}
	if err != nil {
		return "", fmt.Errorf("load admin: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)) != nil {
		s.log.Warn("admin login failed", zap.String("username", username))
		return "", Unauthorized("invalid username or password")
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    adminSessionIssuer,
		Subject:   admin.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SessionSecret))
}

// ParseSession returns the admin username carried by a session value.
func (s *AdminService) ParseSession(session string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(session, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.SessionSecret), nil
	})
	if err != nil || !parsed.Valid || claims.Issuer != adminSessionIssuer || claims.Subject == "" {
		return "", Unauthorized("admin session expired")
	}
	return claims.Subject, nil
}

func (s *AdminService) SessionTTL() time.Duration { return s.cfg.SessionTTL }

func (s *AdminService) ListUsers(ctx context.Context, search string, page int) ([]models.User, int64, error) {
	if page < 1 {
		page = 1
	}
	users, total, err := s.store.Users.ListUsers(ctx, strings.TrimSpace(search), page, AdminUserPageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (s *AdminService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.store.Users.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return user, nil
}

// ToggleActive flips the user's active flag. Deactivated users lose every
// refresh token.
func (s *AdminService) ToggleActive(ctx context.Context, id uint) (bool, error) {
	var active bool
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		user, err := tx.Users.GetUserByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "user")
		}
		active = !user.IsActive
		if err := tx.Users.SetActive(ctx, id, active); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if !active {
			return tx.Tokens.DeactivateUserTokens(ctx, id)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	s.log.Info("user active flag changed", zap.Uint("user_id", id), zap.Bool("active", active))
	return active, nil
}
