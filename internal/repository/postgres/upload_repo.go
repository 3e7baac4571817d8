package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/repository"
)

const uploadColumns = `id, account_id, bucket_name, object_key, clean_key, status, size, etag, created_at`

// UploadRepository implements repository.UploadRepository over a DBTX.
type UploadRepository struct {
	db DBTX
}

func NewUploadRepository(db DBTX) *UploadRepository {
	return &UploadRepository{db: db}
}

func (r *UploadRepository) Create(ctx context.Context, upload *domain.Upload) (string, error) {
	if upload.AccountID == "" || upload.ObjectKey == "" || upload.CleanKey == "" {
		return "", errors.New("upload requires account_id, object_key and clean_key")
	}
	upload.ID = uuid.NewString()
	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now().UTC()
	}

	var size sql.NullInt64
	if upload.Size != nil {
		size = sql.NullInt64{Int64: *upload.Size, Valid: true}
	}

	query := `INSERT INTO uploads (` + uploadColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		upload.ID, upload.AccountID, upload.BucketName, upload.ObjectKey, upload.CleanKey,
		string(upload.Status), size, upload.ETag, upload.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return upload.ID, nil
}

func (r *UploadRepository) GetByIDForAccount(ctx context.Context, id, accountID string) (*domain.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = $1 AND account_id = $2`
	u, err := scanUpload(r.db.QueryRowContext(ctx, query, id, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *UploadRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE account_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to select uploads: %w", err)
	}
	defer rows.Close()

	uploads := []domain.Upload{}
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return uploads, nil
}

func (r *UploadRepository) DeleteForAccount(ctx context.Context, id, accountID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(row scanner) (*domain.Upload, error) {
	var (
		u      domain.Upload
		status string
		size   sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.AccountID, &u.BucketName, &u.ObjectKey, &u.CleanKey, &status, &size, &u.ETag, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Status = domain.UploadStatus(status)
	if size.Valid {
		u.Size = &size.Int64
	}
	return &u, nil
}
