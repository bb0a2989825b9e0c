package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/repositories"
)

const FeedbackPageSize = 20

// FeedbackService stores anonymous feedback and lets admins review it.
type FeedbackService struct {
	repo repositories.FeedbackRepository
	log  *zap.Logger
}

func NewFeedbackService(repo repositories.FeedbackRepository, log *zap.Logger) *FeedbackService {
	return &FeedbackService{repo: repo, log: log.Named("feedback")}
}

func (s *FeedbackService) Submit(ctx context.Context, content string) (*models.Feedback, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, Invalid("feedback must not be empty")
	}
	fb := &models.Feedback{Content: content}
	if err := s.repo.CreateFeedback(ctx, fb); err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	s.log.Info("feedback received", zap.Uint("feedback_id", fb.ID))
	return fb, nil
}

func (s *FeedbackService) List(ctx context.Context, page int) ([]models.Feedback, int64, error) {
	if page < 1 {
		page = 1
	}
	list, total, err := s.repo.ListFeedback(ctx, page, FeedbackPageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}
	return list, total, nil
}

func (s *FeedbackService) Get(ctx context.Context, id uint) (*models.Feedback, error) {
	fb, err := s.repo.GetFeedbackByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "feedback")
	}
	return fb, nil
}

func (s *FeedbackService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteFeedback(ctx, id)
}
