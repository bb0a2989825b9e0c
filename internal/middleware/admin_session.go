package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	AdminCookieName = "buooy_admin"
	adminKey        = "admin"
)

// AdminSessionParser validates the admin session cookie value.
type AdminSessionParser interface {
	ParseSession(session string) (string, error)
}

// AdminSessionMiddleware sends visitors without a valid session to loginPath.
func AdminSessionMiddleware(parser AdminSessionParser, loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(AdminCookieName)
			if err != nil || cookie.Value == "" {
				return c.Redirect(http.StatusSeeOther, loginPath)
			}
			username, err := parser.ParseSession(cookie.Value)
			if err != nil {
				return c.Redirect(http.StatusSeeOther, loginPath)
			}
			c.Set(adminKey, username)
			return next(c)
		}
	}
}

// AdminUsername returns the signed-in admin, or "".
func AdminUsername(c echo.Context) string {
	name, _ := c.Get(adminKey).(string)
	return name
}
