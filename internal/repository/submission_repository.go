package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/forms-service/internal/domain"
)

// SubmissionFilter captures listing parameters.
type SubmissionFilter struct {
	FormID      int64
	IsComplete  *bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// SubmissionRepository encapsulates submission persistence. It also backs the
// continuation-token store: lookup by token value and the token write path.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *domain.Submission) error
	UpdatePayload(ctx context.Context, id int64, payload map[string]any) error
	MarkComplete(ctx context.Context, id int64, at time.Time) error
	GetByID(ctx context.Context, id int64) (*domain.Submission, error)
	GetByContinuationToken(ctx context.Context, value string) (*domain.Submission, error)
	SetContinuationToken(ctx context.Context, submissionID int64, token domain.ContinuationToken) error
	ListWithFilter(ctx context.Context, filter SubmissionFilter) ([]domain.Submission, error)
}

type submissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository instantiates repository.
func NewSubmissionRepository(pool *pgxpool.Pool) SubmissionRepository {
	return &submissionRepository{pool: pool}
}

const submissionColumns = `id, form_id, tenant_id, payload, is_complete,
        continuation_token, continuation_token_expires_at, created_at, updated_at, completed_at`

func (r *submissionRepository) Create(ctx context.Context, submission *domain.Submission) error {
	const query = `
        INSERT INTO submissions (form_id, tenant_id, payload, is_complete)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	if submission.Payload == nil {
		submission.Payload = map[string]any{}
	}
	return r.pool.QueryRow(ctx, query,
		submission.FormID,
		submission.TenantID,
		submission.Payload,
		submission.IsComplete,
	).Scan(&submission.ID, &submission.CreatedAt, &submission.UpdatedAt)
}

func (r *submissionRepository) UpdatePayload(ctx context.Context, id int64, payload map[string]any) error {
	const query = `UPDATE submissions SET payload=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, payload, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *submissionRepository) MarkComplete(ctx context.Context, id int64, at time.Time) error {
	const query = `
        UPDATE submissions SET is_complete=TRUE, completed_at=$1, updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id int64) (*domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *submissionRepository) GetByContinuationToken(ctx context.Context, value string) (*domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE continuation_token=$1`
	return r.fetchSingle(ctx, query, value)
}

func (r *submissionRepository) SetContinuationToken(ctx context.Context, submissionID int64, token domain.ContinuationToken) error {
	const query = `
        UPDATE submissions SET continuation_token=$1, continuation_token_expires_at=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, token.Value, token.ExpiresAt, submissionID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *submissionRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Submission, error) {
	submission, err := scanSubmission(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return submission, nil
}

func (r *submissionRepository) ListWithFilter(ctx context.Context, filter SubmissionFilter) ([]domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE form_id=$1`
	args := []any{filter.FormID}

	if filter.IsComplete != nil {
		args = append(args, *filter.IsComplete)
		query += fmt.Sprintf(" AND is_complete=$%d", len(args))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY created_at ASC LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Submission
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *submission)
	}
	return result, rows.Err()
}

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var (
		submission     domain.Submission
		tokenValue     *string
		tokenExpiresAt *time.Time
	)
	if err := row.Scan(
		&submission.ID,
		&submission.FormID,
		&submission.TenantID,
		&submission.Payload,
		&submission.IsComplete,
		&tokenValue,
		&tokenExpiresAt,
		&submission.CreatedAt,
		&submission.UpdatedAt,
		&submission.CompletedAt,
	); err != nil {
		return nil, err
	}
	if tokenValue != nil && tokenExpiresAt != nil {
		submission.Continuation = &domain.ContinuationToken{
			Value:     *tokenValue,
			ExpiresAt: *tokenExpiresAt,
		}
	}
	return &submission, nil
}
