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

// PartyHandler serves /api/party: parties, participation, comments and likes.
type PartyHandler struct {
	parties       *services.PartyService
	participation *services.ParticipationService
	comments      *services.PartyCommentService
	log           *zap.Logger
}

func NewPartyHandler(parties *services.PartyService, participation *services.ParticipationService, comments *services.PartyCommentService, log *zap.Logger) *PartyHandler {
	return &PartyHandler{parties: parties, participation: participation, comments: comments, log: log.Named("party")}
}

// RegisterPartyRoutes expects g to carry optional authentication; routes
// that need a user add requireAuth.
func (h *PartyHandler) RegisterPartyRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.GET("/list", h.ListParties)
	g.GET("/sports", h.GetSports)
	g.GET("/details/:party_id", h.GetParty)
	g.GET("/me/organized", h.ListOrganized, requireAuth)
	g.GET("/me/participated", h.ListParticipated, requireAuth)

	g.POST("", h.CreateParty, requireAuth)
	g.POST("/:party_id", h.UpdateParty, requireAuth)
	g.DELETE("/:party_id", h.DeleteParty, requireAuth)
	g.POST("/:party_id/active", h.SetActive, requireAuth)

	g.POST("/:party_id/participate", h.Participate, requireAuth)
	g.POST("/organizer/:party_id/status-change/:participation_id", h.ChangeStatusByOrganizer, requireAuth)
	g.POST("/participants/:party_id/status-change", h.ChangeStatusByParticipant, requireAuth)

	g.GET("/:party_id/comment", h.ListComments)
	g.POST("/:party_id/comment", h.AddComment, requireAuth)
	g.PUT("/:party_id/comment/:comment_id", h.UpdateComment, requireAuth)
	g.DELETE("/:party_id/comment/:comment_id", h.DeleteComment, requireAuth)

	g.POST("/like/:party_id", h.LikeParty, requireAuth)
	g.DELETE("/like/:party_id", h.UnlikeParty, requireAuth)
}

func (h *PartyHandler) CreateParty(c echo.Context) error {
	var req models.CreatePartyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	party, err := h.parties.CreateParty(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"party_id": party.ID})
}

func (h *PartyHandler) UpdateParty(c echo.Context) error {
	partyID, err := paramID(c, "party_id")
	if err != nil {
		return err
	}
	var req models.UpdatePartyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	party, err := h.parties.UpdateParty(c.Request().Context(), partyID, middleware.UserID(c), req)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"party_id": party.ID})
}

func (h *PartyHandler) DeleteParty(c echo.Context) error {
	partyID, err := paramID(c, "party_id")
	if err != nil {
		return err
	}
	if err := h.parties.DeleteParty(c.Request().Context(), partyID, middleware.UserID(c)); err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (h *PartyHandler) SetActive(c echo.Context) error {
	partyID, err := paramID(c, "party_id")
	if err != nil {
		return err
	}
	var req setActiveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.parties.SetActive(c.Request().Context(), partyID, middleware.UserID(c), *req.IsActive); err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"party_id": partyID, "is_active": *req.IsActive})
}

func (h *PartyHandler) GetParty(c echo.Context) error {
	partyID, err := paramID(c, "party_id")
	if err != nil {
		return err
	}
	detail, err := h.parties.GetDetail(c.Request().Context(), partyID, middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// ListParties supports sport_id (repeatable), is_active, gather_date_min,
// gather_date_max, search_query and page.
func (h *PartyHandler) ListParties(c echo.Context) error {
	filter := models.PartyListFilter{
		Search: c.QueryParam("search_query"),
		Page:   queryPage(c),
	}
	for _, raw := range c.QueryParams()["sport_id"] {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid sport_id")
		}
		filter.SportIDs = append(filter.SportIDs, uint(id))
	}
	if raw := c.QueryParam("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid is_active")
		}
		filter.IsActive = &active
	}
	lo, hi, err := h.parties.DayRange(c.QueryParam("gather_date_min"), c.QueryParam("gather_date_max"))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	filter.GatherDateMin, filter.GatherDateMax = lo, hi

	items, total, err := h.parties.ListParties(c.Request().Context(), filter, middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return paginated(c, "parties", items, filter.Page, services.PartyPageSize, total)
}

func (h *PartyHandler) ListOrganized(c echo.Context) error {
	items, err := h.parties.ListOrganized(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *PartyHandler) ListParticipated(c echo.Context) error {
	items, err := h.parties.ListParticipated(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *PartyHandler) GetSports(c echo.Context) error {
	sports, err := h.parties.Sports(c.Request().Context())
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, sports)
}

func (h *PartyHandler) Participate(c echo.Context) error {
	partyID, err := paramID(c, "party_id")
	if err != nil {
		return err
	}
	p, err := h.participation.Participate(c.Request().Context(), partyID, middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"participation_id": p.ID, "status": p.Status})
}

func (h *PartyHandler) ChangeStatusByOrganizer(c echo.Context) error {
	partyID, err := paramID(c, "party_id")
	if err != nil {
		return err
	}
	participationID, err := paramID(c, "participation_id")
	if err != nil {
		return err
	}
	var req models.ChangeStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	p, err := h.participation.ChangeStatusByOrganizer(c.Request().Context(), partyID, participationID, middleware.UserID(c), req.NewStatus)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"participation_id": p.ID, "status": p.Status})
}

func (h *PartyHandler) ChangeStatusByParticipant(c echo.Context) error {
	partyID, err := paramID(c, "party_id")
	if err != nil {
		return err
	}
	var req models.ChangeStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	p, err := h.participation.CancelByParticipant(c.Request().Context(), partyID, middleware.UserID(c), req.NewStatus)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"participation_id": p.ID, "status": p.Status})
}

func (h *PartyHandler) ListComments(c echo.Context) error {
	partyID, err := paramID(c, "party_id")
	if err != nil {
		return err
	}
	comments, err := h.comments.ListComments(c.Request().Context(), partyID, middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, comments)
}

func (h *PartyHandler) AddComment(c echo.Context) error {
	partyID, err := paramID(c, "party_id")
	if err != nil {
		return err
	}
	var req models.CommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.AddComment(c.Request().Context(), partyID, middleware.UserID(c), req.Content)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusCreated, comment)
}

func (h *PartyHandler) UpdateComment(c echo.Context) error {
	partyID, err := paramID(c, "party_id")
	if err != nil {
		return err
	}
	commentID, err := paramID(c, "comment_id")
	if err != nil {
		return err
	}
	var req models.CommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.UpdateComment(c.Request().Context(), partyID, commentID, middleware.UserID(c), req.Content)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, comment)
}

func (h *PartyHandler) DeleteComment(c echo.Context) error {
	partyID, err := paramID(c, "party_id")
	if err != nil {
		return err
	}
	commentID, err := paramID(c, "comment_id")
	if err != nil {
		return err
	}
	if err := h.comments.DeleteComment(c.Request().Context(), partyID, commentID, middleware.UserID(c)); err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Comment deleted"})
}

func (h *PartyHandler) LikeParty(c echo.Context) error {
	partyID, err := paramID(c, "party_id")
	if err != nil {
		return err
	}
	if err := h.parties.LikeParty(c.Request().Context(), partyID, middleware.UserID(c)); err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Party liked"})
}

func (h *PartyHandler) UnlikeParty(c echo.Context) error {
	partyID, err := paramID(c, "party_id")
	if err != nil {
		return err
	}
	if err := h.parties.UnlikeParty(c.Request().Context(), partyID, middleware.UserID(c)); err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Party like cancelled"})
}
