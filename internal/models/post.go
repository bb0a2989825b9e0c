package models

import "time"

// MaxPostImages bounds the images attached to one post.
const MaxPostImages = 4

// Post is a community board entry.
type Post struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	AuthorID  uint        `json:"author_id" gorm:"index"`
	Author    User        `json:"-" gorm:"foreignKey:AuthorID"`
	SportID   uint        `json:"sport_id" gorm:"index"`
	Title     string      `json:"title" gorm:"size:255"`
	Content   string      `json:"content"`
	ViewCount int64       `json:"view_count" gorm:"default:0"`
	LikeCount int64       `json:"like_count" gorm:"default:0"`
	IsDeleted bool        `json:"-" gorm:"default:false;index"`
	Images    []PostImage `json:"images,omitempty" gorm:"foreignKey:PostID"`
	Tags      []Tag       `json:"tags,omitempty" gorm:"many2many:post_tags"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type PostImage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    uint      `json:"post_id" gorm:"index"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

type Tag struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:50;uniqueIndex"`
}

// CreatePostRequest is bound from a multipart form; images arrive as files.
type CreatePostRequest struct {
	Title   string   `json:"title" form:"title" validate:"required,max=255"`
	Content string   `json:"content" form:"content" validate:"required,max=5000"`
	SportID uint     `json:"sport_id" form:"sport_id" validate:"required"`
	Tags    []string `json:"tags" form:"tags" validate:"max=10,dive,min=1,max=50"`
}

type UpdatePostRequest struct {
	Title   *string  `json:"title,omitempty" validate:"omitempty,max=255"`
	Content *string  `json:"content,omitempty" validate:"omitempty,max=5000"`
	SportID *uint    `json:"sport_id,omitempty"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,max=10,dive,min=1,max=50"`
}
