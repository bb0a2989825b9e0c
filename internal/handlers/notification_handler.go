package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/middleware"
	"github.com/bluerally/buooy-backend/internal/services"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifications *services.NotificationService
	loc           *time.Location
	log           *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *services.NotificationService, loc *time.Location, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, loc: loc, log: log.Named("notification")}
}

// RegisterNotificationRoutes registers notification routes on an
// authenticated group.
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("", h.GetNotifications)
	g.GET("/grouped", h.GetGroupedNotifications)
	g.GET("/count", h.GetUnreadCount)
	g.POST("/read", h.MarkAsRead)
}

type markReadRequest struct {
	ReadNotificationList []uint `json:"read_notification_list" validate:"required,min=1"`
}

// GetNotifications returns paginated notifications
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	page, err := h.notifications.List(c.Request().Context(), middleware.UserID(c), queryPage(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return paginated(c, "notifications", page.Notifications, page.Page, page.PageSize, page.Total)
}

// GetGroupedNotifications returns one page bucketed by age
func (h *NotificationHandler) GetGroupedNotifications(c echo.Context) error {
	userID := middleware.UserID(c)
	page, err := h.notifications.List(c.Request().Context(), userID, queryPage(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	unread, err := h.notifications.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return success(c, http.StatusOK, echo.Map{
		"notifications": services.GroupByAge(page.Notifications, time.Now(), h.loc),
		"unreadCount":   unread,
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	count, err := h.notifications.UnreadCount(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return success(c, http.StatusOK, echo.Map{"count": count})
}

// MarkAsRead marks the listed notifications as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	var req markReadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.notifications.MarkRead(c.Request().Context(), middleware.UserID(c), req.ReadNotificationList); err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.NoContent(http.StatusCreated)
}
