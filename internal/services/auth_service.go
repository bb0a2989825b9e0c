package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/repositories"
	"github.com/bluerally/buooy-backend/internal/social"
	"github.com/bluerally/buooy-backend/pkg/cache"
	"github.com/bluerally/buooy-backend/pkg/config"
)

const (
	handoffKeyPrefix = "login:handoff:"
	stateKeyPrefix   = "login:state:"
)

// TokenPair is returned by every successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IsNewUser    bool   `json:"is_new_user"`
}

type AuthService struct {
	store     *repositories.Store
	providers *social.Registry
	cache     cache.Store
	cfg       config.JWTConfig
	log       *zap.Logger
	now       func() time.Time
}

func NewAuthService(store *repositories.Store, providers *social.Registry, c cache.Store, cfg config.JWTConfig, log *zap.Logger) *AuthService {
	return &AuthService{store: store, providers: providers, cache: c, cfg: cfg, log: log.Named("auth"), now: time.Now}
}

// RedirectURL starts a web login. The state value is remembered until the
// callback arrives.
func (s *AuthService) RedirectURL(ctx context.Context, platform string) (string, error) {
	p, err := s.provider(platform)
	if err != nil {
		return "", err
	}
	state := uuid.NewString()
	if err := s.cache.Set(ctx, stateKeyPrefix+state, platform, s.cfg.HandoffTTL); err != nil {
		return "", fmt.Errorf("store login state: %w", err)
	}
	u := p.AuthorizationURL(state)
	if u == "" {
		return "", Invalid("%s does not support web login", platform)
	}
	return u, nil
}

// CompleteWebLogin exchanges the callback code, issues tokens and parks them
// under a one-time hand-off id that the client redeems with RedeemHandoff.
func (s *AuthService) CompleteWebLogin(ctx context.Context, platform, code, state string) (string, error) {
	if state == "" {
		return "", Unauthorized("missing login state")
	}
	saved, err := s.cache.GetDel(ctx, stateKeyPrefix+state)
	if err != nil || saved != platform {
		return "", Unauthorized("login state mismatch")
	}

	p, err := s.provider(platform)
	if err != nil {
		return "", err
	}
	profile, err := p.ExchangeCode(ctx, code, state)
	if err != nil {
		return "", s.providerError(platform, err)
	}

	pair, err := s.login(ctx, profile)
	if err != nil {
		return "", err
	}

	handoff := uuid.NewString()
	if err := cache.SetJSON(ctx, s.cache, handoffKeyPrefix+handoff, pair, s.cfg.HandoffTTL); err != nil {
		return "", fmt.Errorf("store login hand-off: %w", err)
	}
	return handoff, nil
}

// RedeemHandoff returns the tokens parked by CompleteWebLogin. Each hand-off
// id can be used once.
func (s *AuthService) RedeemHandoff(ctx context.Context, handoff string) (*TokenPair, error) {
	var pair TokenPair
	err := cache.GetDelJSON(ctx, s.cache, handoffKeyPrefix+handoff, &pair)
	if errors.Is(err, cache.ErrMiss) {
		return nil, Unauthorized("login session expired or already used")
	}
	if err != nil {
		return nil, fmt.Errorf("load login hand-off: %w", err)
	}
	return &pair, nil
}

// LoginWithToken signs in a mobile client holding a provider token.
func (s *AuthService) LoginWithToken(ctx context.Context, platform, token string) (*TokenPair, error) {
	p, err := s.provider(platform)
	if err != nil {
		return nil, err
	}
	profile, err := p.VerifyToken(ctx, token)
	if err != nil {
		return nil, s.providerError(platform, err)
	}
	return s.login(ctx, profile)
}

// Refresh rotates a refresh token: the presented token is retired and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		stored, err := tx.Tokens.GetActiveToken(ctx, refreshToken, s.now().UTC())
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Unauthorized("invalid or expired refresh token")
		}
		if err != nil {
			return fmt.Errorf("load refresh token: %w", err)
		}
		user, err := tx.Users.GetUserByID(ctx, stored.UserID)
		if err != nil {
			return notFoundOr(err, "user")
		}
		if !user.IsActive {
			return Forbidden("account is deactivated")
		}
		if err := tx.Tokens.DeactivateToken(ctx, stored.ID); err != nil {
			return fmt.Errorf("retire refresh token: %w", err)
		}
		pair, err = s.issue(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout retires the given refresh token, or every token of the user when
// none is given.
func (s *AuthService) Logout(ctx context.Context, userID uint, refreshToken string) error {
	if refreshToken == "" {
		return s.store.Tokens.DeactivateUserTokens(ctx, userID)
	}
	stored, err := s.store.Tokens.GetActiveToken(ctx, refreshToken, s.now().UTC())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}
	if stored.UserID != userID {
		return Forbidden("refresh token belongs to another user")
	}
	return s.store.Tokens.DeactivateToken(ctx, stored.ID)
}

// IssueForUser mints tokens without a provider round trip. Only exposed
// outside production.
func (s *AuthService) IssueForUser(ctx context.Context, userID uint) (*TokenPair, error) {
	if _, err := s.store.Users.GetUserByID(ctx, userID); err != nil {
		return nil, notFoundOr(err, "user")
	}
	return s.issue(ctx, s.store, userID)
}

// ParseAccessToken validates an access token signed with the configured secret.
func (s *AuthService) ParseAccessToken(token string) (*models.JwtCustomClaims, error) {
	return ParseAccessToken(token, s.cfg.Secret)
}

func (s *AuthService) login(ctx context.Context, profile *social.Profile) (*TokenPair, error) {
	var pair *TokenPair
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		user, err := tx.Users.GetUserBySns(ctx, profile.Platform, profile.SnsID)
		isNew := false
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = &models.User{
				SnsID:         profile.SnsID,
				LoginPlatform: profile.Platform,
				Name:          profile.Name,
				Email:         profile.Email,
				ProfileImage:  profile.ProfileImage,
				IsActive:      true,
			}
			if err := tx.Users.CreateUser(ctx, user); err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			isNew = true
		case err != nil:
			return fmt.Errorf("load user: %w", err)
		case !user.IsActive:
			return Forbidden("account is deactivated")
		}

		pair, err = s.issue(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		pair.IsNewUser = isNew
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user signed in", zap.String("platform", profile.Platform), zap.Bool("new_user", pair.IsNewUser))
	return pair, nil
}

func (s *AuthService) issue(ctx context.Context, tx *repositories.Store, userID uint) (*TokenPair, error) {
	now := s.now()
	access, err := NewAccessToken(s.cfg.Secret, userID, now, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	err = tx.Tokens.CreateToken(ctx, &models.UserToken{
		UserID:       userID,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.cfg.RefreshTokenTTL).UTC(),
		IsActive:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) provider(platform string) (social.Provider, error) {
	p, err := s.providers.Get(platform)
	if err != nil {
		return nil, Invalid("unsupported login platform %q", platform)
	}
	return p, nil
}

func (s *AuthService) providerError(platform string, err error) error {
	if errors.Is(err, social.ErrInvalidCredential) {
		s.log.Warn("social login rejected", zap.String("platform", platform), zap.Error(err))
		return Unauthorized("%s login failed", platform)
	}
	if errors.Is(err, social.ErrUnsupported) {
		return Invalid("%s does not support this login flow", platform)
	}
	return fmt.Errorf("%s login: %w", platform, err)
}

// NewAccessToken signs an HS256 token carrying the user id.
func NewAccessToken(secret string, userID uint, now time.Time, ttl time.Duration) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAccessToken verifies signature and expiry and returns the claims.
func ParseAccessToken(token, secret string) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, Unauthorized("invalid token")
	}
	if claims.UserID == 0 {
		return nil, Unauthorized("invalid token")
	}
	return claims, nil
}

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
