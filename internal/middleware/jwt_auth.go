package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/services"
)

// userKey is where the validated claims live on the echo context.
const userKey = "user"

// JWTAuthMiddleware rejects requests without a valid bearer access token.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c)
			if err != nil {
				return err
			}
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
			}

			claims, err := services.ParseAccessToken(token, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			c.Set(userKey, claims)
			return next(c)
		}
	}
}

// OptionalJWTAuthMiddleware attaches the user when a valid token is sent and
// lets anonymous requests through. A malformed or expired token is still an
// error so clients notice they must refresh.
func OptionalJWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c)
			if err != nil {
				return err
			}
			if token == "" {
				return next(c)
			}
			claims, err := services.ParseAccessToken(token, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			c.Set(userKey, claims)
			return next(c)
		}
	}
}

// Claims returns the claims set by the auth middleware, or nil.
func Claims(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get(userKey).(*models.JwtCustomClaims)
	return claims
}

// UserID is 0 for anonymous requests.
func UserID(c echo.Context) uint {
	if claims := Claims(c); claims != nil {
		return claims.UserID
	}
	return 0
}

func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", nil
	}
	// Expecting "Bearer <token>"
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
	}
	return parts[1], nil
}
