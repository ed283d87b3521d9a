package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PasswordReset is a single-use reset request record.
type PasswordReset struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// PasswordResetRepository persists reset requests.
type PasswordResetRepository interface {
	Create(ctx context.Context, reset *PasswordReset) error
	GetByToken(ctx context.Context, token string) (*PasswordReset, error)
	MarkUsed(ctx context.Context, id int64) error
}

type passwordResetRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordResetRepository constructs repository.
func NewPasswordResetRepository(pool *pgxpool.Pool) PasswordResetRepository {
	return &passwordResetRepository{pool: pool}
}

func (r *passwordResetRepository) Create(ctx context.Context, reset *PasswordReset) error {
	const query = `
        INSERT INTO password_resets (user_id, token, expires_at)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, reset.UserID, reset.Token, reset.ExpiresAt).
		Scan(&reset.ID, &reset.CreatedAt)
}

func (r *passwordResetRepository) GetByToken(ctx context.Context, token string) (*PasswordReset, error) {
	const query = `
        SELECT id, user_id, token, expires_at, used_at, created_at
        FROM password_resets WHERE token=$1`
	var reset PasswordReset
	if err := r.pool.QueryRow(ctx, query, token).Scan(
		&reset.ID,
		&reset.UserID,
		&reset.Token,
		&reset.ExpiresAt,
		&reset.UsedAt,
		&reset.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *passwordResetRepository) MarkUsed(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE password_resets SET used_at=NOW() WHERE id=$1 AND used_at IS NULL`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
