package announcements

import (
	"context"

	"github.com/perfcanvas/scriptstore/internal/server/models"
)

// Repository persists the single system announcement.
type Repository interface {
	// Get returns the current announcement. A never-saved announcement is
	// returned as an empty one, not an error.
	Get(ctx context.Context) (*models.Announcement, error)

	// Save replaces the announcement content.
	Save(ctx context.Context, content string) error
}
