package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/middleware"
	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/services"
)

const (
	adminLoginPath     = "/admin/login"
	recentRequestLimit = 100
)

// RequestLogReader lists the newest stored requests.
type RequestLogReader interface {
	GetRecentLogs(ctx context.Context, limit int64) ([]models.RequestLog, error)
}

// AdminHandler serves the server-rendered back office.
type AdminHandler struct {
	admin         *services.AdminService
	feedback      *services.FeedbackService
	notifications *services.NotificationService
	requestLogs   RequestLogReader
	secureCookie  bool
	log           *zap.Logger
}

// NewAdminHandler creates the handler. requestLogs may be nil when no
// request log store is configured.
func NewAdminHandler(admin *services.AdminService, feedback *services.FeedbackService, notifications *services.NotificationService, requestLogs RequestLogReader, secureCookie bool, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		admin:         admin,
		feedback:      feedback,
		notifications: notifications,
		requestLogs:   requestLogs,
		secureCookie:  secureCookie,
		log:           log.Named("admin"),
	}
}

// RegisterAdminRoutes mounts the login pages on g and everything else
// behind the session cookie.
func (h *AdminHandler) RegisterAdminRoutes(g *echo.Group) {
	g.GET("/login", h.LoginPage)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)

	protected := g.Group("", middleware.AdminSessionMiddleware(h.admin, adminLoginPath))
	protected.GET("", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/admin/feedback")
	})
	protected.GET("/feedback", h.ListFeedback)
	protected.GET("/feedback/:id", h.GetFeedback)
	protected.POST("/feedback/:id/delete", h.DeleteFeedback)
	protected.GET("/users", h.ListUsers)
	protected.GET("/users/:id", h.GetUser)
	protected.POST("/users/:id/toggle-active", h.ToggleActive)
	protected.GET("/requests", h.RecentRequests)
	protected.GET("/announcements", h.AnnouncementPage)
	protected.POST("/announcements", h.Announce)
}

func (h *AdminHandler) LoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", echo.Map{"Username": "", "Error": ""})
}

func (h *AdminHandler) Login(c echo.Context) error {
	username := c.FormValue("username")
	session, err := h.admin.Login(c.Request().Context(), username, c.FormValue("password"))
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			return c.Render(http.StatusUnauthorized, "login.html", echo.Map{
				"Username": username,
				"Error":    "Invalid username or password",
			})
		}
		return toHTTPError(h.log, c, err)
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    session,
		Path:     "/admin",
		MaxAge:   int(h.admin.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	h.log.Info("admin signed in", zap.String("username", username))
	return c.Redirect(http.StatusSeeOther, "/admin/feedback")
}

func (h *AdminHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
	})
	return c.Redirect(http.StatusSeeOther, adminLoginPath)
}

func (h *AdminHandler) ListFeedback(c echo.Context) error {
	page := queryPage(c)
	items, total, err := h.feedback.List(c.Request().Context(), page)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.Render(http.StatusOK, "feedback_list.html", echo.Map{
		"Admin":   middleware.AdminUsername(c),
		"Items":   items,
		"Total":   total,
		"Page":    page,
		"HasNext": int64(page*services.FeedbackPageSize) < total,
	})
}

func (h *AdminHandler) GetFeedback(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	fb, err := h.feedback.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.Render(http.StatusOK, "feedback_detail.html", echo.Map{
		"Admin":    middleware.AdminUsername(c),
		"Feedback": fb,
	})
}

func (h *AdminHandler) DeleteFeedback(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.feedback.Delete(c.Request().Context(), id); err != nil {
		return toHTTPError(h.log, c, err)
	}
	h.log.Info("feedback deleted", zap.Uint("feedback_id", id), zap.String("admin", middleware.AdminUsername(c)))
	return c.Redirect(http.StatusSeeOther, "/admin/feedback")
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	page := queryPage(c)
	search := c.QueryParam("search")
	users, total, err := h.admin.ListUsers(c.Request().Context(), search, page)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.Render(http.StatusOK, "user_list.html", echo.Map{
		"Admin":   middleware.AdminUsername(c),
		"Items":   users,
		"Total":   total,
		"Search":  search,
		"Page":    page,
		"HasNext": int64(page*services.AdminUserPageSize) < total,
	})
}

func (h *AdminHandler) GetUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.admin.GetUser(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.Render(http.StatusOK, "user_detail.html", echo.Map{
		"Admin": middleware.AdminUsername(c),
		"User":  user,
	})
}

func (h *AdminHandler) ToggleActive(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	active, err := h.admin.ToggleActive(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	h.log.Info("user toggled", zap.Uint("user_id", id), zap.Bool("active", active), zap.String("admin", middleware.AdminUsername(c)))
	return c.Redirect(http.StatusSeeOther, "/admin/users/"+strconv.FormatUint(uint64(id), 10))
}

func (h *AdminHandler) RecentRequests(c echo.Context) error {
	data := echo.Map{
		"Admin":   middleware.AdminUsername(c),
		"Enabled": h.requestLogs != nil,
		"Items":   []models.RequestLog{},
	}
	if h.requestLogs != nil {
		logs, err := h.requestLogs.GetRecentLogs(c.Request().Context(), recentRequestLimit)
		if err != nil {
			return toHTTPError(h.log, c, err)
		}
		data["Items"] = logs
	}
	return c.Render(http.StatusOK, "request_logs.html", data)
}

func (h *AdminHandler) AnnouncementPage(c echo.Context) error {
	return c.Render(http.StatusOK, "announcement.html", echo.Map{
		"Admin":   middleware.AdminUsername(c),
		"Sent":    c.QueryParam("sent") != "",
		"Message": "",
		"Error":   "",
	})
}

// Announce sends a notice to every user.
func (h *AdminHandler) Announce(c echo.Context) error {
	message := c.FormValue("message")
	err := h.notifications.Broadcast(c.Request().Context(), models.ClassifyAnnouncement, message)
	if errors.Is(err, services.ErrInvalid) {
		return c.Render(http.StatusBadRequest, "announcement.html", echo.Map{
			"Admin":   middleware.AdminUsername(c),
			"Sent":    false,
			"Message": message,
			"Error":   "Message is required",
		})
	}
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	h.log.Info("announcement sent", zap.String("admin", middleware.AdminUsername(c)))
	return c.Redirect(http.StatusSeeOther, "/admin/announcements?sent=1")
}
