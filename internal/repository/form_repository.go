package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/forms-service/internal/domain"
)

// FormFilter captures listing parameters.
type FormFilter struct {
	TenantID int64
	Statuses []domain.FormStatus
	Limit    int
	Offset   int
}

// FormRepository encapsulates form persistence.
type FormRepository interface {
	Create(ctx context.Context, form *domain.Form) error
	Update(ctx context.Context, form *domain.Form) error
	GetByID(ctx context.Context, id int64) (*domain.Form, error)
	ListByTenant(ctx context.Context, filter FormFilter) ([]domain.Form, error)
	Delete(ctx context.Context, id int64) error
}

type formRepository struct {
	pool *pgxpool.Pool
}

// NewFormRepository instantiates repository.
func NewFormRepository(pool *pgxpool.Pool) FormRepository {
	return &formRepository{pool: pool}
}

func (r *formRepository) Create(ctx context.Context, form *domain.Form) error {
	const query = `
        INSERT INTO forms (tenant_id, name, description, is_public, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		form.TenantID,
		form.Name,
		form.Description,
		form.IsPublic,
		form.Status,
	).Scan(&form.ID, &form.CreatedAt, &form.UpdatedAt)
}

func (r *formRepository) Update(ctx context.Context, form *domain.Form) error {
	const query = `
        UPDATE forms SET name=$1, description=$2, is_public=$3, status=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		form.Name,
		form.Description,
		form.IsPublic,
		form.Status,
		form.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *formRepository) GetByID(ctx context.Context, id int64) (*domain.Form, error) {
	const query = `
        SELECT id, tenant_id, name, description, is_public, status, created_at, updated_at
        FROM forms WHERE id=$1`
	var form domain.Form
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&form.ID,
		&form.TenantID,
		&form.Name,
		&form.Description,
		&form.IsPublic,
		&form.Status,
		&form.CreatedAt,
		&form.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &form, nil
}

func (r *formRepository) ListByTenant(ctx context.Context, filter FormFilter) ([]domain.Form, error) {
	query := `
        SELECT id, tenant_id, name, description, is_public, status, created_at, updated_at
        FROM forms WHERE tenant_id=$1`
	args := []any{filter.TenantID}
	if len(filter.Statuses) > 0 {
		query += " AND status = ANY($2)"
		statuses := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			statuses[i] = string(status)
		}
		args = append(args, statuses)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Form
	for rows.Next() {
		var form domain.Form
		if err := rows.Scan(
			&form.ID,
			&form.TenantID,
			&form.Name,
			&form.Description,
			&form.IsPublic,
			&form.Status,
			&form.CreatedAt,
			&form.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, form)
	}
	return result, rows.Err()
}

func (r *formRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM forms WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
