package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/forms-service/internal/domain"
)

// UserRepository persists accounts and their role assignments.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	AssignRole(ctx context.Context, userID int64, role domain.Role) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (tenant_id, name, email, password_hash, is_platform_admin, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	if err := r.pool.QueryRow(ctx, query,
		user.TenantID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsPlatformAdmin,
		user.Status,
	).Scan(&user.ID, &user.CreatedAt); err != nil {
		return err
	}
	for _, role := range user.Roles {
		if err := r.AssignRole(ctx, user.ID, role); err != nil {
			return err
		}
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
        SELECT id, tenant_id, name, email, password_hash, is_platform_admin, status, created_at
        FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, tenant_id, name, email, password_hash, is_platform_admin, status, created_at
        FROM users WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.TenantID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.IsPlatformAdmin,
		&user.Status,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	roles, err := r.loadRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return &user, nil
}

func (r *userRepository) loadRoles(ctx context.Context, userID int64) ([]domain.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id=$1 ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, passwordHash, id)
	return err
}

func (r *userRepository) AssignRole(ctx context.Context, userID int64, role domain.Role) error {
	const query = `
        INSERT INTO user_roles (user_id, role) VALUES ($1,$2)
        ON CONFLICT (user_id, role) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, userID, role)
	return err
}
