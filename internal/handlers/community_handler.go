package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/middleware"
	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/repositories"
	"github.com/bluerally/buooy-backend/internal/services"
)

// CommunityHandler serves the community board under /api/community.
type CommunityHandler struct {
	community *services.CommunityService
	log       *zap.Logger
}

func NewCommunityHandler(community *services.CommunityService, log *zap.Logger) *CommunityHandler {
	return &CommunityHandler{community: community, log: log.Named("community")}
}

// RegisterCommunityRoutes expects g to carry optional authentication.
func (h *CommunityHandler) RegisterCommunityRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.GET("/post", h.ListPosts)
	g.POST("/post", h.CreatePost, requireAuth)
	g.GET("/post/:post_id", h.GetPost)
	g.PUT("/post/:post_id", h.UpdatePost, requireAuth)
	g.DELETE("/post/:post_id", h.DeletePost, requireAuth)
	g.POST("/post/:post_id/like", h.TogglePostLike, requireAuth)

	g.GET("/post/:post_id/comment", h.ListComments)
	g.POST("/post/:post_id/comment", h.AddComment, requireAuth)
	g.PUT("/post/:post_id/comment/:comment_id", h.UpdateComment, requireAuth)
	g.DELETE("/post/:post_id/comment/:comment_id", h.DeleteComment, requireAuth)
	g.POST("/post/:post_id/comment/:comment_id/reply", h.AddReply, requireAuth)
	g.POST("/post/:post_id/comment/:comment_id/like", h.ToggleCommentLike, requireAuth)
}

type contentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}

// CreatePost takes a multipart form: title, content, sport_id, repeated
// tags and up to four "images" files.
func (h *CommunityHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	var uploads []services.Upload
	if form, err := c.MultipartForm(); err == nil {
		files := form.File["images"]
		if len(files) > models.MaxPostImages {
			return echo.NewHTTPError(http.StatusBadRequest, "A post can have at most 4 images")
		}
		for _, fh := range files {
			upload, closeFn, err := openUpload(fh)
			if err != nil {
				return toHTTPError(h.log, c, err)
			}
			defer closeFn()
			uploads = append(uploads, upload)
		}
	}

	post, err := h.community.CreatePost(c.Request().Context(), middleware.UserID(c), req, uploads)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusCreated, post)
}

// ListPosts supports sport_id, author_id, tag, search and page.
func (h *CommunityHandler) ListPosts(c echo.Context) error {
	filter := repositories.PostListFilter{
		Tag:      c.QueryParam("tag"),
		Search:   c.QueryParam("search"),
		Page:     queryPage(c),
		PageSize: services.PostPageSize,
	}
	var err error
	if filter.SportID, err = queryUint(c, "sport_id"); err != nil {
		return err
	}
	if filter.AuthorID, err = queryUint(c, "author_id"); err != nil {
		return err
	}

	posts, total, err := h.community.ListPosts(c.Request().Context(), filter, middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return paginated(c, "posts", posts, filter.Page, filter.PageSize, total)
}

// GetPost returns the post and counts the view.
func (h *CommunityHandler) GetPost(c echo.Context) error {
	postID, err := paramID(c, "post_id")
	if err != nil {
		return err
	}
	post, err := h.community.GetPost(c.Request().Context(), postID, middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, post)
}

func (h *CommunityHandler) UpdatePost(c echo.Context) error {
	postID, err := paramID(c, "post_id")
	if err != nil {
		return err
	}
	var req models.UpdatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	post, err := h.community.UpdatePost(c.Request().Context(), postID, middleware.UserID(c), req)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, post)
}

func (h *CommunityHandler) DeletePost(c echo.Context) error {
	postID, err := paramID(c, "post_id")
	if err != nil {
		return err
	}
	if err := h.community.DeletePost(c.Request().Context(), postID, middleware.UserID(c)); err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CommunityHandler) TogglePostLike(c echo.Context) error {
	postID, err := paramID(c, "post_id")
	if err != nil {
		return err
	}
	liked, count, err := h.community.TogglePostLike(c.Request().Context(), postID, middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": liked, "like_count": count})
}

func (h *CommunityHandler) ListComments(c echo.Context) error {
	postID, err := paramID(c, "post_id")
	if err != nil {
		return err
	}
	comments, err := h.community.ListComments(c.Request().Context(), postID, middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, comments)
}

func (h *CommunityHandler) AddComment(c echo.Context) error {
	postID, err := paramID(c, "post_id")
	if err != nil {
		return err
	}
	var req models.CreatePostCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.community.AddComment(c.Request().Context(), postID, middleware.UserID(c), req)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusCreated, comment)
}

func (h *CommunityHandler) AddReply(c echo.Context) error {
	postID, err := paramID(c, "post_id")
	if err != nil {
		return err
	}
	parentID, err := paramID(c, "comment_id")
	if err != nil {
		return err
	}
	var req contentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	reply, err := h.community.AddComment(c.Request().Context(), postID, middleware.UserID(c), models.CreatePostCommentRequest{
		Content:  req.Content,
		ParentID: &parentID,
	})
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusCreated, reply)
}

func (h *CommunityHandler) UpdateComment(c echo.Context) error {
	postID, err := paramID(c, "post_id")
	if err != nil {
		return err
	}
	commentID, err := paramID(c, "comment_id")
	if err != nil {
		return err
	}
	var req contentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.community.UpdateComment(c.Request().Context(), postID, commentID, middleware.UserID(c), req.Content)
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, comment)
}

func (h *CommunityHandler) DeleteComment(c echo.Context) error {
	postID, err := paramID(c, "post_id")
	if err != nil {
		return err
	}
	commentID, err := paramID(c, "comment_id")
	if err != nil {
		return err
	}
	if err := h.community.DeleteComment(c.Request().Context(), postID, commentID, middleware.UserID(c)); err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Comment deleted"})
}

func (h *CommunityHandler) ToggleCommentLike(c echo.Context) error {
	postID, err := paramID(c, "post_id")
	if err != nil {
		return err
	}
	commentID, err := paramID(c, "comment_id")
	if err != nil {
		return err
	}
	liked, count, err := h.community.ToggleCommentLike(c.Request().Context(), postID, commentID, middleware.UserID(c))
	if err != nil {
		return toHTTPError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": liked, "like_count": count})
}

func queryUint(c echo.Context, name string) (uint, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(v), nil
}
