package models

import "time"

type PartyLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PartyID   uint      `json:"party_id" gorm:"uniqueIndex:idx_party_like_user"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_party_like_user"`
	CreatedAt time.Time `json:"created_at"`
}

type PostLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    uint      `json:"post_id" gorm:"uniqueIndex:idx_post_like_user"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_post_like_user"`
	CreatedAt time.Time `json:"created_at"`
}
