package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kintai-works/kintai-backend-go/internal/domain/attendance"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/database"
)

type breakRepository struct {
	db *database.DB
}

// CreateBreak implements attendance.BreakRepository.
func (r *breakRepository) CreateBreak(ctx context.Context, b attendance.Break) (attendance.Break, error) {
	q := GetQuerier(ctx, r.db)

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.Break{}, fmt.Errorf("failed to generate break id: %w", err)
	}
	b.ID = id.String()

	query := `
		INSERT INTO attendance_breaks (id, tenant_id, attendance_id, user_id, start_time)
		VALUES ($1, $2, $3::uuid, $4, $5::time)
		RETURNING created_at
	`

	if err := q.QueryRow(ctx, query, b.ID, b.TenantID, b.AttendanceID, b.UserID, b.StartTime).Scan(&b.CreatedAt); err != nil {
		return attendance.Break{}, fmt.Errorf("failed to create break: %w", err)
	}

	return b, nil
}

// GetActiveBreak implements attendance.BreakRepository.
func (r *breakRepository) GetActiveBreak(ctx context.Context, tenantID string, attendanceID string) (*attendance.Break, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id::text, tenant_id, attendance_id::text, user_id,
			   to_char(start_time, 'HH24:MI:SS'), to_char(end_time, 'HH24:MI:SS'), created_at
		FROM attendance_breaks
		WHERE tenant_id = $1 AND attendance_id::text = $2 AND end_time IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	var b attendance.Break
	err := q.QueryRow(ctx, query, tenantID, attendanceID).Scan(
		&b.ID, &b.TenantID, &b.AttendanceID, &b.UserID,
		&b.StartTime, &b.EndTime, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active break: %w", err)
	}

	return &b, nil
}

// CloseBreak implements attendance.BreakRepository.
func (r *breakRepository) CloseBreak(ctx context.Context, tenantID string, breakID string, endTime string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`UPDATE attendance_breaks SET end_time = $1::time WHERE id::text = $2 AND tenant_id = $3 AND end_time IS NULL`,
		endTime, breakID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to close break: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrNotOnBreak
	}

	return nil
}

func NewBreakRepository(db *database.DB) attendance.BreakRepository {
	return &breakRepository{db: db}
}
