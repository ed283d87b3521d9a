package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/forms-service/internal/domain"
)

// SubmissionFileRepository persists file references attached to submissions.
type SubmissionFileRepository interface {
	Create(ctx context.Context, file *domain.SubmissionFile) error
	GetByID(ctx context.Context, id int64) (*domain.SubmissionFile, error)
	ListBySubmission(ctx context.Context, submissionID int64) ([]domain.SubmissionFile, error)
	Delete(ctx context.Context, id int64) error
}

type submissionFileRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionFileRepository constructs repository.
func NewSubmissionFileRepository(pool *pgxpool.Pool) SubmissionFileRepository {
	return &submissionFileRepository{pool: pool}
}

func (r *submissionFileRepository) Create(ctx context.Context, file *domain.SubmissionFile) error {
	const query = `
        INSERT INTO submission_files (submission_id, field_key, storage_key, file_name, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		file.SubmissionID,
		file.FieldKey,
		file.StorageKey,
		file.FileName,
		file.MimeType,
		file.SizeBytes,
	).Scan(&file.ID, &file.CreatedAt)
}

func (r *submissionFileRepository) GetByID(ctx context.Context, id int64) (*domain.SubmissionFile, error) {
	const query = `
        SELECT id, submission_id, field_key, storage_key, file_name, mime_type, size_bytes, created_at
        FROM submission_files WHERE id=$1`
	var file domain.SubmissionFile
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&file.ID,
		&file.SubmissionID,
		&file.FieldKey,
		&file.StorageKey,
		&file.FileName,
		&file.MimeType,
		&file.SizeBytes,
		&file.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *submissionFileRepository) ListBySubmission(ctx context.Context, submissionID int64) ([]domain.SubmissionFile, error) {
	const query = `
        SELECT id, submission_id, field_key, storage_key, file_name, mime_type, size_bytes, created_at
        FROM submission_files WHERE submission_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SubmissionFile
	for rows.Next() {
		var file domain.SubmissionFile
		if err := rows.Scan(
			&file.ID,
			&file.SubmissionID,
			&file.FieldKey,
			&file.StorageKey,
			&file.FileName,
			&file.MimeType,
			&file.SizeBytes,
			&file.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, file)
	}
	return result, rows.Err()
}

func (r *submissionFileRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM submission_files WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
