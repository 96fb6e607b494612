package announcements

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/perfcanvas/scriptstore/internal/dbx"
	"github.com/perfcanvas/scriptstore/internal/server/models"
)

// The announcement is a singleton; all queries address this row.
const announcementRowID = 1

// PostgresRepository implements announcement storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context) (*models.Announcement, error) {
	query := `SELECT content, updated_at FROM announcements WHERE id=$1`

	result := &models.Announcement{}
	err := r.db.QueryRowContext(ctx, query, announcementRowID).Scan(&result.Content, &result.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Announcement{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select announcement: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Save(ctx context.Context, content string) error {
	query := `
		INSERT INTO announcements (id, content, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id)
		DO UPDATE SET
			content = EXCLUDED.content,
			updated_at = EXCLUDED.updated_at;
	`
	res, err := r.db.ExecContext(ctx, query, announcementRowID, content)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}
