package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postwave/postwave/internal/models"
)

type TargetRepository interface {
	Create(ctx context.Context, tx *sql.Tx, t *models.Target) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.Target, error)
	MarkPublished(ctx context.Context, targetID int64, platformPostID string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, targetID int64, errorMessage string) error
}

type targetRepository struct {
	db *sql.DB
}

func NewTargetRepository(db *sql.DB) TargetRepository {
	return &targetRepository{db: db}
}

func (r *targetRepository) Create(ctx context.Context, tx *sql.Tx, t *models.Target) (int64, error) {
	// (post_id, account_id) carries a unique constraint so a post never
	// holds two targets for the same account.
	query := `
		INSERT INTO targets (post_id, account_id, status)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, t.PostID, t.AccountID, models.TargetStatusPending).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, t.PostID, t.AccountID, models.TargetStatusPending).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *targetRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.Target, error) {
	query := `
		SELECT id, post_id, account_id, status, platform_post_id, error_message, published_at, created_at, updated_at
		FROM targets WHERE post_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var targets []*models.Target
	for rows.Next() {
		var t models.Target
		var publishedAt sql.NullTime
		err := rows.Scan(&t.ID, &t.PostID, &t.AccountID, &t.Status, &t.PlatformPostID,
			&t.ErrorMessage, &publishedAt, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		if publishedAt.Valid {
			t.PublishedAt = &publishedAt.Time
		}
		targets = append(targets, &t)
	}
	return targets, rows.Err()
}

func (r *targetRepository) MarkPublished(ctx context.Context, targetID int64, platformPostID string, publishedAt time.Time) error {
	query := `
		UPDATE targets
		SET status = $1,
			platform_post_id = $2,
			error_message = '',
			published_at = $3,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.TargetStatusPublished, platformPostID, publishedAt, time.Now(), targetID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *targetRepository) MarkFailed(ctx context.Context, targetID int64, errorMessage string) error {
	query := `
		UPDATE targets
		SET status = $1,
			error_message = $2,
			published_at = NULL,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.TargetStatusFailed, errorMessage, time.Now(), targetID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
