package uploads

import (
	"context"
	"errors"
	"fmt"

	"admin-dashboard/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("upload not found")

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const columns = `id, profile, filename, content_type, width, height, size_bytes, status, bucket_name, object_name, thumbnail, created_at, updated_at`

func scanUpload(row pgx.Row) (*models.Upload, error) {
	var u models.Upload
	err := row.Scan(
		&u.ID,
		&u.Profile,
		&u.Filename,
		&u.ContentType,
		&u.Width,
		&u.Height,
		&u.SizeBytes,
		&u.Status,
		&u.BucketName,
		&u.ObjectName,
		&u.Thumbnail,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts u and fills CreatedAt/UpdatedAt from the database.
func (r *Repository) Create(ctx context.Context, u *models.Upload) error {
	query := `
		INSERT INTO uploads (id, profile, filename, content_type, width, height, size_bytes, status, bucket_name, object_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		u.ID, u.Profile, u.Filename, u.ContentType, u.Width, u.Height, u.SizeBytes, u.Status, u.BucketName, u.ObjectName,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	query := `SELECT ` + columns + ` FROM uploads WHERE id = $1`
	u, err := scanUpload(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return u, nil
}

// List returns uploads newest first. An empty profile matches every profile.
func (r *Repository) List(ctx context.Context, profile string, limit, offset int) ([]models.Upload, error) {
	query := `SELECT ` + columns + ` FROM uploads
		WHERE ($1::text = '' OR profile = $1::text)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, profile, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	out := make([]models.Upload, 0, limit)
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate uploads: %w", err)
	}
	return out, nil
}

func (r *Repository) Count(ctx context.Context, profile string) (int, error) {
	query := `SELECT COUNT(*) FROM uploads WHERE ($1::text = '' OR profile = $1::text)`
	var n int
	if err := r.db.QueryRow(ctx, query, profile).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count uploads: %w", err)
	}
	return n, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.UploadStatus) error {
	query := `UPDATE uploads SET status = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, "update status", query, status, id)
}

// CompleteThumbnail records the thumbnail object and marks the upload completed.
func (r *Repository) CompleteThumbnail(ctx context.Context, id uuid.UUID, thumbnail string) error {
	query := `UPDATE uploads SET status = $1, thumbnail = $2, updated_at = NOW() WHERE id = $3`
	return r.exec(ctx, "complete thumbnail", query, models.UploadStatusCompleted, thumbnail, id)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM uploads WHERE id = $1`
	return r.exec(ctx, "delete upload", query, id)
}

func (r *Repository) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
