package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/repositories"
	"github.com/bluerally/buooy-backend/pkg/cache"
	"github.com/bluerally/buooy-backend/pkg/storage"
)

const (
	PostPageSize = 10

	// views are buffered in the cache and written to the database in batches
	viewFlushEvery = 10

	viewKeyPrefix = "post:views:"
	likeKeyPrefix = "post:likes:"
	likeCacheTTL  = time.Hour
)

type PostView struct {
	ID         uint               `json:"id"`
	Author     models.UserCompact `json:"author"`
	SportID    uint               `json:"sport_id"`
	Title      string             `json:"title"`
	Content    string             `json:"content"`
	ViewCount  int64              `json:"view_count"`
	LikeCount  int64              `json:"like_count"`
	IsLiked    bool               `json:"is_liked"`
	IsWriter   bool               `json:"is_writer"`
	Images     []string           `json:"images"`
	Tags       []string           `json:"tags"`
	PostedDate string             `json:"posted_date"`
}

type CommentView struct {
	ID         uint               `json:"id"`
	ParentID   *uint              `json:"parent_id,omitempty"`
	Author     models.UserCompact `json:"author"`
	Content    string             `json:"content"`
	LikeCount  int64              `json:"like_count"`
	IsLiked    bool               `json:"is_liked"`
	IsWriter   bool               `json:"is_writer"`
	PostedDate string             `json:"posted_date"`
	Replies    []CommentView      `json:"replies,omitempty"`
}

// CommunityService runs the community board.
type CommunityService struct {
	store   *repositories.Store
	cache   cache.Store
	storage storage.ObjectStorage
	log     *zap.Logger
	loc     *time.Location
}

func NewCommunityService(store *repositories.Store, c cache.Store, objects storage.ObjectStorage, log *zap.Logger, loc *time.Location) *CommunityService {
	if loc == nil {
		loc = time.UTC
	}
	return &CommunityService{store: store, cache: c, storage: objects, log: log.Named("community"), loc: loc}
}

func (s *CommunityService) ListPosts(ctx context.Context, f repositories.PostListFilter, viewerID uint) ([]PostView, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = PostPageSize
	}
	f.Tag = normalizeTag(f.Tag)

	posts, total, err := s.store.Posts.ListPosts(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	views := make([]PostView, 0, len(posts))
	for i := range posts {
		v, err := s.view(ctx, &posts[i], viewerID)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, *v)
	}
	return views, total, nil
}

// GetPost returns a post and counts one view.
func (s *CommunityService) GetPost(ctx context.Context, postID, viewerID uint) (*PostView, error) {
	post, err := s.store.Posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, notFoundOr(err, "post")
	}
	s.recordView(ctx, post)
	return s.view(ctx, post, viewerID)
}

func (s *CommunityService) CreatePost(ctx context.Context, authorID uint, req models.CreatePostRequest, images []Upload) (*PostView, error) {
	if len(images) > models.MaxPostImages {
		return nil, Invalid("a post can have at most %d images", models.MaxPostImages)
	}
	for _, img := range images {
		if err := checkImage(img); err != nil {
			return nil, err
		}
	}
	if _, err := s.store.Sports.GetSportByID(ctx, req.SportID); err != nil {
		return nil, notFoundOr(err, "sport")
	}

	urls := make([]string, 0, len(images))
	for _, img := range images {
		url, err := s.storage.Upload(ctx, storage.NewKey(fmt.Sprintf("posts/%d", authorID), img.Filename), img.Body, img.Size, img.ContentType)
		if err != nil {
			return nil, fmt.Errorf("upload post image: %w", err)
		}
		urls = append(urls, url)
	}

	post := &models.Post{AuthorID: authorID, SportID: req.SportID, Title: req.Title, Content: req.Content}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if err := tx.Posts.CreatePost(ctx, post, normalizeTags(req.Tags)); err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		return tx.Posts.AddImages(ctx, post.ID, urls)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("post created", zap.Uint("post_id", post.ID), zap.Int("images", len(urls)))
	return s.reload(ctx, post.ID, authorID)
}

func (s *CommunityService) UpdatePost(ctx context.Context, postID, userID uint, req models.UpdatePostRequest) (*PostView, error) {
	post, err := s.ownedPost(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if req.SportID != nil {
		if _, err := s.store.Sports.GetSportByID(ctx, *req.SportID); err != nil {
			return nil, notFoundOr(err, "sport")
		}
		post.SportID = *req.SportID
	}
	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	var tags []string
	if req.Tags != nil {
		tags = normalizeTags(req.Tags)
	}
	if err := s.store.Posts.UpdatePost(ctx, post, tags); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return s.reload(ctx, postID, userID)
}

func (s *CommunityService) DeletePost(ctx context.Context, postID, userID uint) error {
	if _, err := s.ownedPost(ctx, postID, userID); err != nil {
		return err
	}
	if err := s.flushViews(ctx, postID); err != nil {
		s.log.Warn("failed to flush views", zap.Uint("post_id", postID), zap.Error(err))
	}
	if err := s.store.Posts.SoftDeletePost(ctx, postID); err != nil {
		return notFoundOr(err, "post")
	}
	if err := s.cache.Delete(ctx, viewKey(postID), likeKey(postID)); err != nil {
		s.log.Warn("failed to clear post cache", zap.Uint("post_id", postID), zap.Error(err))
	}
	return nil
}

func (s *CommunityService) LikePost(ctx context.Context, postID, userID uint) (int64, error) {
	if _, err := s.store.Posts.GetPostByID(ctx, postID); err != nil {
		return 0, notFoundOr(err, "post")
	}
	liked, err := s.store.Likes.HasUserLikedPost(ctx, postID, userID)
	if err != nil {
		return 0, fmt.Errorf("load like: %w", err)
	}
	if liked {
		return 0, Conflict("post already liked")
	}
	if err := s.store.Likes.CreatePostLike(ctx, postID, userID); err != nil {
		return 0, conflictOr(err, "post already liked", "create like")
	}
	return s.syncLikes(ctx, postID)
}

func (s *CommunityService) UnlikePost(ctx context.Context, postID, userID uint) (int64, error) {
	err := s.store.Likes.DeletePostLike(ctx, postID, userID)
	if errors.Is(err, repositories.ErrLikeNotFound) {
		return 0, NotFound("like not found")
	}
	if err != nil {
		return 0, fmt.Errorf("delete like: %w", err)
	}
	return s.syncLikes(ctx, postID)
}

// TogglePostLike likes the post, or removes the like when it exists.
func (s *CommunityService) TogglePostLike(ctx context.Context, postID, userID uint) (bool, int64, error) {
	count, err := s.LikePost(ctx, postID, userID)
	if errors.Is(err, ErrConflict) {
		count, err = s.UnlikePost(ctx, postID, userID)
		return false, count, err
	}
	return err == nil, count, err
}

// flushViews writes buffered views of a post to the database.
func (s *CommunityService) flushViews(ctx context.Context, postID uint) error {
	raw, err := s.cache.GetDel(ctx, viewKey(postID))
	if errors.Is(err, cache.ErrMiss) {
		return nil
	}
	if err != nil {
		return err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return s.store.Posts.IncrementViews(ctx, postID, n)
}

func (s *CommunityService) ListComments(ctx context.Context, postID, viewerID uint) ([]CommentView, error) {
	if _, err := s.store.Posts.GetPostByID(ctx, postID); err != nil {
		return nil, notFoundOr(err, "post")
	}
	comments, err := s.store.Comments.GetCommentsByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	liked := map[uint]bool{}
	if viewerID != 0 && len(comments) > 0 {
		ids := make([]uint, 0, len(comments))
		for _, c := range comments {
			ids = append(ids, c.ID)
		}
		if liked, err = s.store.CommentLikes.GetLikedCommentIDs(ctx, viewerID, ids); err != nil {
			return nil, fmt.Errorf("load comment likes: %w", err)
		}
	}

	roots := make([]CommentView, 0)
	index := make(map[uint]int)
	for i := range comments {
		c := &comments[i]
		v := s.commentView(c, viewerID, liked[c.ID])
		if c.ParentID == nil {
			index[c.ID] = len(roots)
			roots = append(roots, v)
			continue
		}
		if at, ok := index[*c.ParentID]; ok {
			roots[at].Replies = append(roots[at].Replies, v)
		}
	}
	return roots, nil
}

// AddComment adds a comment, or a reply when ParentID names a top-level
// comment of the same post.
func (s *CommunityService) AddComment(ctx context.Context, postID, userID uint, req models.CreatePostCommentRequest) (*CommentView, error) {
	if _, err := s.store.Posts.GetPostByID(ctx, postID); err != nil {
		return nil, notFoundOr(err, "post")
	}
	if req.ParentID != nil {
		parent, err := s.store.Comments.GetCommentByID(ctx, postID, *req.ParentID)
		if err != nil {
			return nil, notFoundOr(err, "parent comment")
		}
		if parent.ParentID != nil {
			return nil, Invalid("replies cannot be nested")
		}
	}

	comment := &models.PostComment{PostID: postID, UserID: userID, ParentID: req.ParentID, Content: req.Content}
	if err := s.store.Comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	created, err := s.store.Comments.GetCommentByID(ctx, postID, comment.ID)
	if err != nil {
		return nil, fmt.Errorf("reload comment: %w", err)
	}
	v := s.commentView(created, userID, false)
	return &v, nil
}

func (s *CommunityService) UpdateComment(ctx context.Context, postID, commentID, userID uint, content string) (*CommentView, error) {
	comment, err := s.ownedComment(ctx, postID, commentID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Comments.UpdateContent(ctx, comment.ID, content); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	comment.Content = content
	v := s.commentView(comment, userID, false)
	return &v, nil
}

func (s *CommunityService) DeleteComment(ctx context.Context, postID, commentID, userID uint) error {
	comment, err := s.ownedComment(ctx, postID, commentID, userID)
	if err != nil {
		return err
	}
	return s.store.Comments.SoftDelete(ctx, comment.ID)
}

func (s *CommunityService) LikeComment(ctx context.Context, postID, commentID, userID uint) (int64, error) {
	if _, err := s.store.Comments.GetCommentByID(ctx, postID, commentID); err != nil {
		return 0, notFoundOr(err, "comment")
	}
	liked, err := s.store.CommentLikes.GetLikedCommentIDs(ctx, userID, []uint{commentID})
	if err != nil {
		return 0, fmt.Errorf("load comment like: %w", err)
	}
	if liked[commentID] {
		return 0, Conflict("comment already liked")
	}
	if err := s.store.CommentLikes.CreateCommentLike(ctx, commentID, userID); err != nil {
		return 0, conflictOr(err, "comment already liked", "create comment like")
	}
	return s.syncCommentLikes(ctx, commentID)
}

func (s *CommunityService) UnlikeComment(ctx context.Context, postID, commentID, userID uint) (int64, error) {
	if _, err := s.store.Comments.GetCommentByID(ctx, postID, commentID); err != nil {
		return 0, notFoundOr(err, "comment")
	}
	err := s.store.CommentLikes.DeleteCommentLike(ctx, commentID, userID)
	if errors.Is(err, repositories.ErrLikeNotFound) {
		return 0, NotFound("like not found")
	}
	if err != nil {
		return 0, fmt.Errorf("delete comment like: %w", err)
	}
	return s.syncCommentLikes(ctx, commentID)
}

// ToggleCommentLike likes the comment, or removes the like when it exists.
func (s *CommunityService) ToggleCommentLike(ctx context.Context, postID, commentID, userID uint) (bool, int64, error) {
	count, err := s.LikeComment(ctx, postID, commentID, userID)
	if errors.Is(err, ErrConflict) {
		count, err = s.UnlikeComment(ctx, postID, commentID, userID)
		return false, count, err
	}
	return err == nil, count, err
}

// recordView buffers one view and flushes the batch once it is full. When
// the cache is unavailable the view goes straight to the database.
func (s *CommunityService) recordView(ctx context.Context, post *models.Post) {
	n, err := s.cache.Incr(ctx, viewKey(post.ID))
	if err != nil {
		s.log.Warn("view buffer unavailable", zap.Uint("post_id", post.ID), zap.Error(err))
		if err := s.store.Posts.IncrementViews(ctx, post.ID, 1); err != nil {
			s.log.Error("failed to count view", zap.Uint("post_id", post.ID), zap.Error(err))
		}
		return
	}
	if n < viewFlushEvery {
		return
	}
	if _, err := s.cache.IncrBy(ctx, viewKey(post.ID), -n); err != nil {
		s.log.Warn("failed to drain view buffer", zap.Uint("post_id", post.ID), zap.Error(err))
		return
	}
	if err := s.store.Posts.IncrementViews(ctx, post.ID, n); err != nil {
		s.log.Error("failed to flush views", zap.Uint("post_id", post.ID), zap.Error(err))
		return
	}
	post.ViewCount += n
}

func (s *CommunityService) pendingViews(ctx context.Context, postID uint) int64 {
	raw, err := s.cache.Get(ctx, viewKey(postID))
	if err != nil {
		return 0
	}
	n, _ := strconv.ParseInt(raw, 10, 64)
	return n
}

func (s *CommunityService) likeCount(ctx context.Context, post *models.Post) int64 {
	raw, err := s.cache.Get(ctx, likeKey(post.ID))
	if err == nil {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	}
	return post.LikeCount
}

func (s *CommunityService) syncLikes(ctx context.Context, postID uint) (int64, error) {
	count, err := s.store.Likes.CountPostLikes(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	if err := s.store.Posts.SetLikeCount(ctx, postID, count); err != nil {
		return 0, fmt.Errorf("store like count: %w", err)
	}
	if err := s.cache.Set(ctx, likeKey(postID), strconv.FormatInt(count, 10), likeCacheTTL); err != nil {
		s.log.Warn("failed to cache like count", zap.Uint("post_id", postID), zap.Error(err))
	}
	return count, nil
}

func (s *CommunityService) syncCommentLikes(ctx context.Context, commentID uint) (int64, error) {
	count, err := s.store.CommentLikes.GetLikesCount(ctx, commentID)
	if err != nil {
		return 0, fmt.Errorf("count comment likes: %w", err)
	}
	if err := s.store.Comments.SetLikeCount(ctx, commentID, count); err != nil {
		return 0, fmt.Errorf("store comment like count: %w", err)
	}
	return count, nil
}

func (s *CommunityService) reload(ctx context.Context, postID, viewerID uint) (*PostView, error) {
	post, err := s.store.Posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, notFoundOr(err, "post")
	}
	return s.view(ctx, post, viewerID)
}

func (s *CommunityService) view(ctx context.Context, p *models.Post, viewerID uint) (*PostView, error) {
	v := &PostView{
		ID:         p.ID,
		Author:     p.Author.ToCompact(),
		SportID:    p.SportID,
		Title:      p.Title,
		Content:    p.Content,
		ViewCount:  p.ViewCount + s.pendingViews(ctx, p.ID),
		LikeCount:  s.likeCount(ctx, p),
		IsWriter:   viewerID != 0 && p.AuthorID == viewerID,
		Images:     make([]string, 0, len(p.Images)),
		Tags:       make([]string, 0, len(p.Tags)),
		PostedDate: p.CreatedAt.In(s.loc).Format(postedLayout),
	}
	for _, img := range p.Images {
		v.Images = append(v.Images, img.ImageURL)
	}
	for _, t := range p.Tags {
		v.Tags = append(v.Tags, t.Name)
	}
	if viewerID != 0 {
		liked, err := s.store.Likes.HasUserLikedPost(ctx, p.ID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("load like: %w", err)
		}
		v.IsLiked = liked
	}
	return v, nil
}

func (s *CommunityService) commentView(c *models.PostComment, viewerID uint, liked bool) CommentView {
	return CommentView{
		ID:         c.ID,
		ParentID:   c.ParentID,
		Author:     c.User.ToCompact(),
		Content:    c.Content,
		LikeCount:  c.LikeCount,
		IsLiked:    liked,
		IsWriter:   viewerID != 0 && c.UserID == viewerID,
		PostedDate: c.CreatedAt.In(s.loc).Format(postedLayout),
	}
}

func (s *CommunityService) ownedPost(ctx context.Context, postID, userID uint) (*models.Post, error) {
	post, err := s.store.Posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, notFoundOr(err, "post")
	}
	if post.AuthorID != userID {
		return nil, Forbidden("only the writer can change this post")
	}
	return post, nil
}

func (s *CommunityService) ownedComment(ctx context.Context, postID, commentID, userID uint) (*models.PostComment, error) {
	comment, err := s.store.Comments.GetCommentByID(ctx, postID, commentID)
	if err != nil {
		return nil, notFoundOr(err, "comment")
	}
	if comment.UserID != userID {
		return nil, Forbidden("only the writer can change this comment")
	}
	return comment, nil
}

func viewKey(postID uint) string { return viewKeyPrefix + strconv.FormatUint(uint64(postID), 10) }
func likeKey(postID uint) string { return likeKeyPrefix + strconv.FormatUint(uint64(postID), 10) }

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
}

// normalizeTags trims, lowercases and de-duplicates tags, keeping order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = normalizeTag(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
