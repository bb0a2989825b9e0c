package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
)

// PostListFilter narrows the community post list.
type PostListFilter struct {
	SportID  uint
	AuthorID uint
	Tag      string
	Search   string
	Page     int
	PageSize int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post, tagNames []string) error
	GetPostByID(ctx context.Context, id uint) (*models.Post, error)
	ListPosts(ctx context.Context, filter PostListFilter) ([]models.Post, int64, error)
	UpdatePost(ctx context.Context, post *models.Post, tagNames []string) error
	SoftDeletePost(ctx context.Context, id uint) error
	AddImages(ctx context.Context, postID uint, urls []string) error
	IncrementViews(ctx context.Context, id uint, delta int64) error
	SetLikeCount(ctx context.Context, id uint, count int64) error
}

// PostgresPostRepository implements PostRepository for PostgreSQL
type PostgresPostRepository struct {
	db *gorm.DB
}

// NewPostgresPostRepository creates a new PostgresPostRepository
func NewPostgresPostRepository(db *gorm.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

// CreatePost inserts the post and links its tags, creating unknown tags.
func (r *PostgresPostRepository) CreatePost(ctx context.Context, post *models.Post, tagNames []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := upsertTags(tx, tagNames)
		if err != nil {
			return err
		}
		post.Tags = tags
		return tx.Omit("Author", "Tags.*").Create(post).Error
	})
}

func upsertTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		var tag models.Tag
		if err := tx.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (r *PostgresPostRepository) GetPostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").Preload("Images").Preload("Tags").
		Where("id = ? AND is_deleted = ?", id, false).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostgresPostRepository) ListPosts(ctx context.Context, f PostListFilter) ([]models.Post, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("posts.is_deleted = ?", false)
	if f.SportID != 0 {
		q = q.Where("posts.sport_id = ?", f.SportID)
	}
	if f.AuthorID != 0 {
		q = q.Where("posts.author_id = ?", f.AuthorID)
	}
	if f.Tag != "" {
		q = q.Joins("JOIN post_tags pt ON pt.post_id = posts.id").
			Joins("JOIN tags t ON t.id = pt.tag_id").
			Where("t.name = ?", f.Tag)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("posts.title LIKE ? OR posts.content LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := q.Preload("Author").Preload("Images").Preload("Tags").
		Order("posts.id DESC").
		Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).
		Find(&posts).Error
	return posts, total, err
}

// UpdatePost saves scalar fields; tags are replaced when tagNames is non-nil.
func (r *PostgresPostRepository) UpdatePost(ctx context.Context, post *models.Post, tagNames []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Images", "Tags").Save(post).Error; err != nil {
			return err
		}
		if tagNames == nil {
			return nil
		}
		tags, err := upsertTags(tx, tagNames)
		if err != nil {
			return err
		}
		post.Tags = tags
		return tx.Model(post).Association("Tags").Replace(tags)
	})
}

func (r *PostgresPostRepository) SoftDeletePost(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *PostgresPostRepository) AddImages(ctx context.Context, postID uint, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	images := make([]models.PostImage, 0, len(urls))
	for _, u := range urls {
		images = append(images, models.PostImage{PostID: postID, ImageURL: u})
	}
	return r.db.WithContext(ctx).Create(&images).Error
}

func (r *PostgresPostRepository) IncrementViews(ctx context.Context, id uint, delta int64) error {
	return r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", delta)).Error
}

func (r *PostgresPostRepository) SetLikeCount(ctx context.Context, id uint, count int64) error {
	return r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("like_count", count).Error
}
