package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/forms-service/internal/domain"
)

// TenantRepository persists tenant accounts.
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id int64) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
}

type tenantRepository struct {
	pool *pgxpool.Pool
}

// NewTenantRepository instantiates repository.
func NewTenantRepository(pool *pgxpool.Pool) TenantRepository {
	return &tenantRepository{pool: pool}
}

func (r *tenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	const query = `
        INSERT INTO tenants (name, slug) VALUES ($1,$2)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, tenant.Name, tenant.Slug).
		Scan(&tenant.ID, &tenant.CreatedAt)
}

func (r *tenantRepository) GetByID(ctx context.Context, id int64) (*domain.Tenant, error) {
	const query = `SELECT id, name, slug, created_at FROM tenants WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *tenantRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	const query = `SELECT id, name, slug, created_at FROM tenants WHERE slug=$1`
	return r.fetchSingle(ctx, query, slug)
}

func (r *tenantRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Tenant, error) {
	var tenant domain.Tenant
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Slug,
		&tenant.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// TenantSettingsRepository persists per-tenant token policy.
type TenantSettingsRepository interface {
	GetByTenantID(ctx context.Context, tenantID int64) (*domain.TenantSettings, error)
	Upsert(ctx context.Context, settings *domain.TenantSettings) error
}

type tenantSettingsRepository struct {
	pool *pgxpool.Pool
}

// NewTenantSettingsRepository instantiates repository.
func NewTenantSettingsRepository(pool *pgxpool.Pool) TenantSettingsRepository {
	return &tenantSettingsRepository{pool: pool}
}

func (r *tenantSettingsRepository) GetByTenantID(ctx context.Context, tenantID int64) (*domain.TenantSettings, error) {
	const query = `
        SELECT tenant_id, submission_token_expiry_hours, submission_token_valid_after_completion, updated_at
        FROM tenant_settings WHERE tenant_id=$1`
	var settings domain.TenantSettings
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(
		&settings.TenantID,
		&settings.SubmissionTokenExpiryHours,
		&settings.SubmissionTokenValidAfterCompletion,
		&settings.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *tenantSettingsRepository) Upsert(ctx context.Context, settings *domain.TenantSettings) error {
	const query = `
        INSERT INTO tenant_settings (tenant_id, submission_token_expiry_hours, submission_token_valid_after_completion, updated_at)
        VALUES ($1,$2,$3,NOW())
        ON CONFLICT (tenant_id) DO UPDATE SET
            submission_token_expiry_hours=EXCLUDED.submission_token_expiry_hours,
            submission_token_valid_after_completion=EXCLUDED.submission_token_valid_after_completion,
            updated_at=NOW()
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		settings.TenantID,
		settings.SubmissionTokenExpiryHours,
		settings.SubmissionTokenValidAfterCompletion,
	).Scan(&settings.UpdatedAt)
}
