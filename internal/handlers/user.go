package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/middleware"
	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/services"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	users   *services.UserService
	parties *services.PartyService
	log     *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users *services.UserService, parties *services.PartyService, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, parties: parties, log: log.Named("user")}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.GET("/me", h.GetMe, requireAuth)
	g.POST("/me", h.UpdateMe, requireAuth)
	g.POST("/me/profile-image", h.UploadProfileImage, requireAuth)
	g.GET("/profile/:user_id", h.GetProfile)
	g.GET("/sports", h.GetSports)
	g.GET("/certificates", h.GetCertificates)
	g.GET("/certificates/:certificate_id/levels", h.GetCertificateLevels)
	g.GET("/party/like", h.GetLikedParties, requireAuth)
	g.GET("/party/stats", h.GetPartyStats, requireAuth)
}

func (h *UserHandler) GetMe(c echo.Context) error {
	me, err := h.users.Me(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, me)
}

func (h *UserHandler) UpdateMe(c echo.Context) error {
	var req models.UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	me, err := h.users.UpdateMe(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusCreated, me)
}

// UploadProfileImage accepts a multipart "file" field.
func (h *UserHandler) UploadProfileImage(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing file")
	}
	upload, closeFn, err := openUpload(fh)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	defer closeFn()

	url, err := h.users.UploadProfileImage(c.Request().Context(), middleware.UserID(c), upload)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"profile_image": url})
}

// GetProfile returns another user's public profile.
func (h *UserHandler) GetProfile(c echo.Context) error {
	id, err := paramID(c, "user_id")
	if err != nil {
		return err
	}
	profile, err := h.users.Profile(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) GetSports(c echo.Context) error {
	sports, err := h.users.Sports(c.Request().Context())
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, sports)
}

// GetCertificates lists certificates, optionally for one sport_id.
func (h *UserHandler) GetCertificates(c echo.Context) error {
	var sportID uint
	if raw := c.QueryParam("sport_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid sport_id")
		}
		sportID = uint(id)
	}
	certs, err := h.users.Certificates(c.Request().Context(), sportID)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, certs)
}

func (h *UserHandler) GetCertificateLevels(c echo.Context) error {
	id, err := paramID(c, "certificate_id")
	if err != nil {
		return err
	}
	levels, err := h.users.CertificateLevels(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, levels)
}

func (h *UserHandler) GetLikedParties(c echo.Context) error {
	parties, err := h.parties.ListLiked(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, parties)
}

func (h *UserHandler) GetPartyStats(c echo.Context) error {
	stats, err := h.parties.Stats(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
