package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kintai-works/kintai-backend-go/internal/domain/user"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/database"
)

type userRepositoryImpl struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) user.UserRepository {
	return &userRepositoryImpl{db: db}
}

// GetByID implements user.UserRepository.
func (r *userRepositoryImpl) GetByID(ctx context.Context, tenantID string, id string) (user.User, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, email, display_name, role, created_at, updated_at
		FROM users
		WHERE id = $1 AND tenant_id = $2
	`

	var u user.User
	err := q.QueryRow(ctx, query, id, tenantID).Scan(
		&u.ID,
		&u.TenantID,
		&u.Email,
		&u.DisplayName,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return u, nil
}

// ListProfiles implements user.UserRepository.
func (r *userRepositoryImpl) ListProfiles(ctx context.Context, tenantID string) (user.Directory, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT id, display_name, email FROM users WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user profiles: %w", err)
	}
	defer rows.Close()

	directory := make(user.Directory)
	for rows.Next() {
		var p user.Profile
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user profile: %w", err)
		}
		directory[p.UserID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user profiles: %w", err)
	}

	return directory, nil
}

// ListTenantIDs implements user.UserRepository.
func (r *userRepositoryImpl) ListTenantIDs(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT DISTINCT tenant_id FROM users ORDER BY tenant_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}

	tenantIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect tenants: %w", err)
	}
	return tenantIDs, nil
}
