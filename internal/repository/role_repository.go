package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techmax/helpdesk-service/internal/domain"
)

// RoleRepository manages the fixed role records. Permission sets are written
// once at seed time and only read afterwards.
type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByName(ctx context.Context, name domain.RoleName) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository instantiates repository.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	const query = `
        INSERT INTO roles (name, description, permissions)
        VALUES ($1,$2,$3)
        ON CONFLICT (name) DO NOTHING
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		role.Name,
		role.Description,
		role.Permissions,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	if err == pgx.ErrNoRows {
		// role already seeded; load the existing record
		existing, getErr := r.GetByName(ctx, role.Name)
		if getErr != nil {
			return getErr
		}
		*role = *existing
		return nil
	}
	return err
}

func (r *roleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	const query = `
        SELECT id, name, description, permissions, created_at, updated_at
        FROM roles WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *roleRepository) GetByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	const query = `
        SELECT id, name, description, permissions, created_at, updated_at
        FROM roles WHERE name=$1`
	return r.fetchSingle(ctx, query, name)
}

func (r *roleRepository) List(ctx context.Context) ([]domain.Role, error) {
	const query = `
        SELECT id, name, description, permissions, created_at, updated_at
        FROM roles ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(
			&role.ID,
			&role.Name,
			&role.Description,
			&role.Permissions,
			&role.CreatedAt,
			&role.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	return result, rows.Err()
}

func (r *roleRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Role, error) {
	var role domain.Role
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&role.Permissions,
		&role.CreatedAt,
		&role.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &role, nil
}
