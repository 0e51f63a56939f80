package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techmax/helpdesk-service/internal/domain"
)

// UserFilter captures admin/supervisor listing parameters.
type UserFilter struct {
	RoleName   *domain.RoleName
	Department *string
	Status     *domain.UserStatus
	Limit      int
	Offset     int
}

// UserRepository defines persistence access for accounts. Reads resolve the
// assigned role so callers always see a complete identity.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsernameOrEmail(ctx context.Context, login string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `
        u.id, u.username, u.email, u.full_name, u.password_hash, u.role_id,
        u.department, u.phone, u.status, u.active, u.created_at, u.updated_at,
        r.id, r.name, r.description, r.permissions, r.created_at, r.updated_at`

const userFrom = ` FROM users u LEFT JOIN roles r ON r.id = u.role_id`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, full_name, password_hash, role_id, department, phone, status, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.RoleID,
		user.Department,
		user.Phone,
		user.Status,
		user.Active,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET username=$1, email=$2, full_name=$3, password_hash=$4, role_id=$5,
            department=$6, phone=$7, status=$8, active=$9, updated_at=NOW()
        WHERE id=$10`

	cmd, err := r.pool.Exec(ctx, query,
		user.Username,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.RoleID,
		user.Department,
		user.Phone,
		user.Status,
		user.Active,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT`+userColumns+userFrom+` WHERE u.id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT`+userColumns+userFrom+` WHERE u.email=$1`, email)
}

func (r *userRepository) GetByUsernameOrEmail(ctx context.Context, login string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT`+userColumns+userFrom+` WHERE u.username=$1 OR u.email=$1`, login)
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RoleName != nil {
		args = append(args, *filter.RoleName)
		clauses = append(clauses, fmt.Sprintf("r.name=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("u.department=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("u.status=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT%s%s WHERE %s ORDER BY u.created_at ASC LIMIT %d OFFSET %d`,
		userColumns, userFrom, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	return scanUser(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user      domain.User
		roleID    *string
		roleName  *string
		roleDesc  *string
		rolePerms []string
		roleCAt   *time.Time
		roleUAt   *time.Time
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.RoleID,
		&user.Department,
		&user.Phone,
		&user.Status,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
		&roleID,
		&roleName,
		&roleDesc,
		&rolePerms,
		&roleCAt,
		&roleUAt,
	); err != nil {
		return nil, err
	}
	if roleID != nil && roleName != nil {
		role := &domain.Role{
			ID:          *roleID,
			Name:        domain.RoleName(*roleName),
			Permissions: rolePerms,
		}
		if roleDesc != nil {
			role.Description = *roleDesc
		}
		if roleCAt != nil {
			role.CreatedAt = *roleCAt
		}
		if roleUAt != nil {
			role.UpdatedAt = *roleUAt
		}
		user.Role = role
	}
	return &user, nil
}
