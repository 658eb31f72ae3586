package videos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidvault/backend/internal/models"
)

// Repository handles video metadata persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a videos repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a new video row (original upload or transcoded variant).
func (r *Repository) Insert(ctx context.Context, v *models.Video) error {
	const q = `INSERT INTO videos (email, file_path, video_description, transcoded_path, quality, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, v.Email, v.FilePath, v.Description, v.TranscodedPath, v.Quality, v.Status).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

// ByID returns a video by ID, or nil if absent.
func (r *Repository) ByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	const q = `SELECT id, email, file_path, video_description, COALESCE(transcoded_path,''), COALESCE(quality,''), status, created_at, updated_at
		FROM videos WHERE id = $1`
	var v models.Video
	err := r.pool.QueryRow(ctx, q, id).Scan(&v.ID, &v.Email, &v.FilePath, &v.Description, &v.TranscodedPath, &v.Quality, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// BySourceKey returns the original upload row for a source key, or nil if
// absent. Transcoded variants share the source key, so the earliest row is the
// upload itself.
func (r *Repository) BySourceKey(ctx context.Context, sourceKey string) (*models.Video, error) {
	const q = `SELECT id, email, file_path, video_description, COALESCE(transcoded_path,''), COALESCE(quality,''), status, created_at, updated_at
		FROM videos WHERE file_path = $1 ORDER BY created_at ASC LIMIT 1`
	var v models.Video
	err := r.pool.QueryRow(ctx, q, sourceKey).Scan(&v.ID, &v.Email, &v.FilePath, &v.Description, &v.TranscodedPath, &v.Quality, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// ListByOwner returns all video rows for an owner, newest first.
func (r *Repository) ListByOwner(ctx context.Context, email string) ([]models.Video, error) {
	const q = `SELECT id, email, file_path, video_description, COALESCE(transcoded_path,''), COALESCE(quality,''), status, created_at, updated_at
		FROM videos WHERE email = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Video
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.Email, &v.FilePath, &v.Description, &v.TranscodedPath, &v.Quality, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// Delete removes a video row. Used only to compensate a partial upload
// registration; transcoded rows are never deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM videos WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
