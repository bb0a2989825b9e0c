package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the relational repositories so a service can run several of
// them inside one transaction.
type Store struct {
	db *gorm.DB

	Users         UserRepository
	Tokens        TokenRepository
	Sports        SportRepository
	Parties       PartyRepository
	Participants  ParticipantRepository
	PartyComments PartyCommentRepository
	Likes         LikeRepository
	Notifications NotificationRepository
	Posts         PostRepository
	Comments      CommentRepository
	CommentLikes  CommentLikeRepository
	Feedback      FeedbackRepository
	Admins        AdminRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewPostgresUserRepository(db),
		Tokens:        NewPostgresTokenRepository(db),
		Sports:        NewPostgresSportRepository(db),
		Parties:       NewPostgresPartyRepository(db),
		Participants:  NewPostgresParticipantRepository(db),
		PartyComments: NewPostgresPartyCommentRepository(db),
		Likes:         NewPostgresLikeRepository(db),
		Notifications: NewPostgresNotificationRepository(db),
		Posts:         NewPostgresPostRepository(db),
		Comments:      NewPostgresCommentRepository(db),
		CommentLikes:  NewPostgresCommentLikeRepository(db),
		Feedback:      NewPostgresFeedbackRepository(db),
		Admins:        NewPostgresAdminRepository(db),
	}
}

// Transaction runs fn against a Store bound to a single database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB exposes the underlying handle for migrations and health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}
