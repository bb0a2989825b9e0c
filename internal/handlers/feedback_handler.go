package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/services"
)

type FeedbackHandler struct {
	feedback *services.FeedbackService
	log      *zap.Logger
}

func NewFeedbackHandler(feedback *services.FeedbackService, log *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, log: log.Named("feedback")}
}

func (h *FeedbackHandler) RegisterFeedbackRoutes(g *echo.Group) {
	g.POST("", h.Submit)
}

// Submit accepts anonymous feedback.
func (h *FeedbackHandler) Submit(c echo.Context) error {
	var req models.FeedbackRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	fb, err := h.feedback.Submit(c.Request().Context(), req.Content)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return success(c, http.StatusCreated, fb)
}
