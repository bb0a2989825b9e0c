package models

import "time"

type Feedback struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type FeedbackRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}
