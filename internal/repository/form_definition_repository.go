package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/forms-service/internal/domain"
)

// FormDefinitionRepository persists versioned form field layouts.
type FormDefinitionRepository interface {
	Create(ctx context.Context, def *domain.FormDefinition) error
	GetByID(ctx context.Context, id int64) (*domain.FormDefinition, error)
	GetPublishedByForm(ctx context.Context, formID int64) (*domain.FormDefinition, error)
	ListByForm(ctx context.Context, formID int64) ([]domain.FormDefinition, error)
	Publish(ctx context.Context, formID int64, version int) error
}

type formDefinitionRepository struct {
	pool *pgxpool.Pool
}

// NewFormDefinitionRepository constructs repository.
func NewFormDefinitionRepository(pool *pgxpool.Pool) FormDefinitionRepository {
	return &formDefinitionRepository{pool: pool}
}

func (r *formDefinitionRepository) Create(ctx context.Context, def *domain.FormDefinition) error {
	const query = `
        INSERT INTO form_definitions (form_id, version, schema, published)
        VALUES ($1, COALESCE((SELECT MAX(version) FROM form_definitions WHERE form_id=$1), 0) + 1, $2, $3)
        RETURNING id, version, created_at`
	return r.pool.QueryRow(ctx, query,
		def.FormID,
		def.Schema,
		def.Published,
	).Scan(&def.ID, &def.Version, &def.CreatedAt)
}

func (r *formDefinitionRepository) GetByID(ctx context.Context, id int64) (*domain.FormDefinition, error) {
	const query = `
        SELECT id, form_id, version, schema, published, created_at
        FROM form_definitions WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *formDefinitionRepository) GetPublishedByForm(ctx context.Context, formID int64) (*domain.FormDefinition, error) {
	const query = `
        SELECT id, form_id, version, schema, published, created_at
        FROM form_definitions WHERE form_id=$1 AND published
        ORDER BY version DESC LIMIT 1`
	return r.fetchSingle(ctx, query, formID)
}

func (r *formDefinitionRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.FormDefinition, error) {
	var def domain.FormDefinition
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&def.ID,
		&def.FormID,
		&def.Version,
		&def.Schema,
		&def.Published,
		&def.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &def, nil
}

func (r *formDefinitionRepository) ListByForm(ctx context.Context, formID int64) ([]domain.FormDefinition, error) {
	const query = `
        SELECT id, form_id, version, schema, published, created_at
        FROM form_definitions WHERE form_id=$1 ORDER BY version DESC`
	rows, err := r.pool.Query(ctx, query, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FormDefinition
	for rows.Next() {
		var def domain.FormDefinition
		if err := rows.Scan(
			&def.ID,
			&def.FormID,
			&def.Version,
			&def.Schema,
			&def.Published,
			&def.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, def)
	}
	return result, rows.Err()
}

func (r *formDefinitionRepository) Publish(ctx context.Context, formID int64, version int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `UPDATE form_definitions SET published=FALSE WHERE form_id=$1`, formID); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `UPDATE form_definitions SET published=TRUE WHERE form_id=$1 AND version=$2`, formID, version)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}
