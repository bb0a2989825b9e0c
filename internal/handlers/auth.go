package handlers

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/middleware"
	"github.com/bluerally/buooy-backend/internal/services"
)

// AuthHandler handles social login and token endpoints under /api/user.
type AuthHandler struct {
	auth           *services.AuthService
	clientURL      string
	allowTestToken bool
	log            *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. allowTestToken exposes the
// token minting endpoint and must be false in production.
func NewAuthHandler(auth *services.AuthService, clientURL string, allowTestToken bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, clientURL: clientURL, allowTestToken: allowTestToken, log: log.Named("auth")}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.GET("/auth/redirect-url/:platform", h.RedirectURL)
	g.POST("/auth/token", h.RedeemHandoff)
	g.POST("/auth/token/refresh", h.Refresh)
	g.POST("/auth/mobile/token", h.MobileLogin)
	g.POST("/auth/logout", h.Logout, requireAuth)
	g.GET("/auth/:platform", h.Callback)
	if h.allowTestToken {
		g.POST("/test/token", h.TestToken)
	}
}

type handoffRequest struct {
	UserUID string `json:"user_uid" validate:"required"`
}

type mobileLoginRequest struct {
	Platform string `json:"platform" validate:"required,oneof=google kakao naver firebase"`
	IDToken  string `json:"id_token" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type testTokenRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// RedirectURL returns the provider page the browser should open.
func (h *AuthHandler) RedirectURL(c echo.Context) error {
	u, err := h.auth.RedirectURL(c.Request().Context(), c.Param("platform"))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"redirect_url": u})
}

// Callback finishes a web login and sends the browser back to the client
// with a one-time hand-off id.
func (h *AuthHandler) Callback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing authorization code")
	}
	handoff, err := h.auth.CompleteWebLogin(c.Request().Context(), c.Param("platform"), code, c.QueryParam("state"))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}

	target, err := url.Parse(h.clientURL)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	q := target.Query()
	q.Set("user_uid", handoff)
	target.RawQuery = q.Encode()
	return c.Redirect(http.StatusFound, target.String())
}

func (h *AuthHandler) RedeemHandoff(c echo.Context) error {
	var req handoffRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	pair, err := h.auth.RedeemHandoff(c.Request().Context(), req.UserUID)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) MobileLogin(c echo.Context) error {
	var req mobileLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	pair, err := h.auth.LoginWithToken(c.Request().Context(), req.Platform, req.IDToken)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	pair, err := h.auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

// Logout retires the given refresh token, or all of the user's tokens when
// the body is empty.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
		}
	}
	if err := h.auth.Logout(c.Request().Context(), middleware.UserID(c), req.RefreshToken); err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out"})
}

func (h *AuthHandler) TestToken(c echo.Context) error {
	var req testTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	pair, err := h.auth.IssueForUser(c.Request().Context(), req.UserID)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusCreated, pair)
}
