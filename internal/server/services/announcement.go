package services

import (
	"context"
	"fmt"

	"github.com/perfcanvas/scriptstore/internal/logging"
	"github.com/perfcanvas/scriptstore/internal/server/repositories/announcements"
)

// AnnouncementService manages the system-wide announcement banner.
type AnnouncementService struct {
	repo   announcements.Repository
	logger logging.Logger
}

func NewAnnouncementService(repo announcements.Repository, logger logging.Logger) *AnnouncementService {
	return &AnnouncementService{
		repo:   repo,
		logger: logger.With("module", "announcement_service"),
	}
}

// Get returns the current announcement content. A never-saved
// announcement reads as empty.
func (s *AnnouncementService) Get(ctx context.Context) (string, error) {
	a, err := s.repo.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("get announcement: %w", err)
	}
	return a.Content, nil
}

// Save replaces the announcement content.
func (s *AnnouncementService) Save(ctx context.Context, content string) error {
	if err := s.repo.Save(ctx, content); err != nil {
		return fmt.Errorf("save announcement: %w", err)
	}
	s.logger.Info(ctx, "announcement updated", "size", len(content))
	return nil
}
