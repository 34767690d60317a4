package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/marketplace-bot/internal/domain"
	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

// UserRepository defines persistence access for chat users.
type UserRepository interface {
	// Upsert inserts the user or refreshes its display name and handle. Role and CreatedAt are
	// read back from the stored row; the role is never changed here.
	Upsert(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// Promote sets the admin role. changed is false when the user already was an admin.
	Promote(ctx context.Context, id int64) (changed bool, err error)
	ListAdminIDs(ctx context.Context) ([]int64, error)
	CountByRole(ctx context.Context) (map[domain.Role]int, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, display_name, handle, role)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET display_name=EXCLUDED.display_name, handle=EXCLUDED.handle
        RETURNING role, created_at`

	if err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.DisplayName,
		user.Handle,
		domain.RoleUser,
	).Scan(&user.Role, &user.CreatedAt); err != nil {
		return fmt.Errorf("upsert user %d: %w", user.ID, err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
        SELECT id, display_name, handle, role, created_at
        FROM users WHERE id=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.DisplayName,
		&user.Handle,
		&user.Role,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

func (r *userRepository) Promote(ctx context.Context, id int64) (bool, error) {
	const query = `UPDATE users SET role=$2 WHERE id=$1 AND role<>$2`

	cmd, err := r.pool.Exec(ctx, query, id, domain.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("promote user %d: %w", id, err)
	}
	if cmd.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user %d: %w", id, err)
	}
	if !exists {
		return false, apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	return false, nil
}

func (r *userRepository) ListAdminIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users WHERE role=$1 ORDER BY id`, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *userRepository) CountByRole(ctx context.Context) (map[domain.Role]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	defer rows.Close()

	counts := map[domain.Role]int{}
	for rows.Next() {
		var (
			role  domain.Role
			count int
		)
		if err := rows.Scan(&role, &count); err != nil {
			return nil, err
		}
		counts[role] = count
	}
	return counts, rows.Err()
}
