package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/services"
)

var validate = validator.New()

// bindAndValidate binds the request body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// toHTTPError maps service failures onto HTTP statuses. Unexpected errors
// are logged and hidden behind a 500.
func toHTTPError(log *zap.Logger, c echo.Context, err error) error {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		switch svcErr.Kind {
		case services.KindInvalid:
			return echo.NewHTTPError(http.StatusBadRequest, svcErr.Message)
		case services.KindUnauthorized:
			return echo.NewHTTPError(http.StatusUnauthorized, svcErr.Message)
		case services.KindForbidden:
			return echo.NewHTTPError(http.StatusForbidden, svcErr.Message)
		case services.KindNotFound:
			return echo.NewHTTPError(http.StatusNotFound, svcErr.Message)
		case services.KindConflict:
			return echo.NewHTTPError(http.StatusConflict, svcErr.Message)
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Resource not found")
	}

	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}

func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

func queryPage(c echo.Context) int {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	return page
}

func success(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

func paginated(c echo.Context, key string, items interface{}, page, perPage int, total int64) error {
	totalPages := 0
	if perPage > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(perPage)))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			key: items,
		},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      total,
			"itemsPerPage":    perPage,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}
