package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kintai-works/kintai-backend-go/internal/domain/attendance"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/database"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/validator"
)

// openShiftIndex allows one working or break shift per user and site.
const openShiftIndex = "attendances_open_idx"

// attendanceColumns must stay in the order scanAttendance reads them.
const attendanceColumns = `
	a.id::text, a.tenant_id, COALESCE(a.user_id, ''), a.site_name, to_char(a.date, 'YYYY-MM-DD'),
	to_char(a.start_time, 'HH24:MI:SS'), to_char(a.end_time, 'HH24:MI:SS'),
	a.break_minutes, a.status, a.working_minutes, a.overtime_minutes,
	a.is_night_work, a.night_work_type, a.is_holiday_work, a.special_work_type,
	a.notes, a.edit_history, a.created_at, a.updated_at,
	u.display_name`

const attendanceFrom = `
	FROM attendances a
	LEFT JOIN users u ON u.id = a.user_id AND u.tenant_id = a.tenant_id`

type attendanceRepository struct {
	db *database.DB
}

func scanAttendance(row pgx.Row) (attendance.Attendance, error) {
	var att attendance.Attendance
	err := row.Scan(
		&att.ID, &att.TenantID, &att.UserID, &att.SiteName, &att.Date,
		&att.StartTime, &att.EndTime,
		&att.BreakMinutes, &att.Status, &att.WorkingMinutes, &att.OvertimeMinutes,
		&att.IsNightWork, &att.NightWorkType, &att.IsHolidayWork, &att.SpecialWorkType,
		&att.Notes, &att.EditHistory, &att.CreatedAt, &att.UpdatedAt,
		&att.EmployeeName,
	)
	return att, err
}

func editHistory(att attendance.Attendance) []attendance.EditEntry {
	if att.EditHistory == nil {
		return []attendance.EditEntry{}
	}
	return att.EditHistory
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, newAttendance attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("failed to generate attendance id: %w", err)
	}
	newAttendance.ID = id.String()

	query := `
		INSERT INTO attendances (
			id, tenant_id, user_id, site_name, date, start_time, end_time,
			break_minutes, status, working_minutes, overtime_minutes,
			is_night_work, night_work_type, is_holiday_work, special_work_type,
			notes, edit_history
		) VALUES (
			$1, $2, NULLIF($3, ''), $4, $5::date, $6::time, $7::time, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		) RETURNING created_at, updated_at
	`

	err = q.QueryRow(ctx, query,
		newAttendance.ID,
		newAttendance.TenantID,
		newAttendance.UserID,
		newAttendance.SiteName,
		newAttendance.Date,
		newAttendance.StartTime,
		newAttendance.EndTime,
		newAttendance.BreakMinutes,
		newAttendance.Status,
		newAttendance.WorkingMinutes,
		newAttendance.OvertimeMinutes,
		newAttendance.IsNightWork,
		newAttendance.NightWorkType,
		newAttendance.IsHolidayWork,
		newAttendance.SpecialWorkType,
		newAttendance.Notes,
		editHistory(newAttendance),
	).Scan(&newAttendance.CreatedAt, &newAttendance.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch {
			case pgErr.Code == "23505" && pgErr.ConstraintName == openShiftIndex: // unique_violation
				return attendance.Attendance{}, attendance.ErrAlreadyWorkingAtSite
			}
		}
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return newAttendance, nil
}

// GetByID implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, tenantID string, id string) (attendance.Attendance, error) {
	if !validator.IsValidUUID(id) {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + attendanceFrom + `
		WHERE a.id = $1::uuid AND a.tenant_id = $2`

	att, err := scanAttendance(q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance by id: %w", err)
	}

	return att, nil
}

// Update implements attendance.AttendanceRepository.
func (a *attendanceRepository) Update(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	if !validator.IsValidUUID(att.ID) {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendances SET
			site_name = $1, date = $2::date, start_time = $3::time, end_time = $4::time,
			break_minutes = $5, status = $6, working_minutes = $7, overtime_minutes = $8,
			is_night_work = $9, night_work_type = $10, is_holiday_work = $11, special_work_type = $12,
			notes = $13, edit_history = $14, updated_at = now()
		WHERE id = $15::uuid AND tenant_id = $16 AND updated_at = $17
		RETURNING updated_at
	`

	err := q.QueryRow(ctx, query,
		att.SiteName, att.Date, att.StartTime, att.EndTime,
		att.BreakMinutes, att.Status, att.WorkingMinutes, att.OvertimeMinutes,
		att.IsNightWork, att.NightWorkType, att.IsHolidayWork, att.SpecialWorkType,
		att.Notes, editHistory(att),
		att.ID, att.TenantID, att.UpdatedAt,
	).Scan(&att.UpdatedAt)

	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, fmt.Errorf("failed to update attendance: %w", err)
		}

		exists, existsErr := a.exists(ctx, att.TenantID, att.ID)
		if existsErr != nil {
			return attendance.Attendance{}, existsErr
		}
		if exists {
			return attendance.Attendance{}, attendance.ErrConcurrentModification
		}
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}

	return att, nil
}

func (a *attendanceRepository) exists(ctx context.Context, tenantID string, id string) (bool, error) {
	q := GetQuerier(ctx, a.db)

	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM attendances WHERE id = $1::uuid AND tenant_id = $2)`,
		id, tenantID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check attendance existence: %w", err)
	}
	return exists, nil
}

// UpdateClassification implements attendance.AttendanceRepository. The row
// must still be open and unchanged since patch.UpdatedAt.
func (a *attendanceRepository) UpdateClassification(ctx context.Context, tenantID string, id string, patch attendance.ClassificationPatch) error {
	if !validator.IsValidUUID(id) {
		return attendance.ErrAttendanceNotFound
	}
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendances SET
			end_time = $1::time, status = $2, break_minutes = $3,
			working_minutes = $4, overtime_minutes = $5, is_night_work = $6,
			night_work_type = $7, is_holiday_work = $8, special_work_type = $9,
			updated_at = now()
		WHERE id = $10::uuid AND tenant_id = $11 AND updated_at = $12
			AND status IN ('working', 'break')
	`

	c := patch.Classification
	tag, err := q.Exec(ctx, query,
		patch.EndTime, patch.Status, patch.BreakMinutes,
		c.WorkingMinutes, c.OvertimeMinutes, c.IsNightWork,
		c.NightWorkType, c.IsHolidayWork, c.SpecialWorkType,
		id, tenantID, patch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance classification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		exists, err := a.exists(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if exists {
			return attendance.ErrConcurrentModification
		}
		return attendance.ErrAttendanceNotFound
	}

	return nil
}

// QueryByDateRange implements attendance.AttendanceRepository.
func (a *attendanceRepository) QueryByDateRange(ctx context.Context, tenantID string, startDate string, endDate string) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + attendanceFrom + `
		WHERE a.tenant_id = $1
		  AND a.date BETWEEN $2::date AND $3::date
		ORDER BY a.date, a.start_time NULLS LAST, a.created_at`

	rows, err := q.Query(ctx, query, tenantID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendances by date range: %w", err)
	}
	defer rows.Close()

	var attendances []attendance.Attendance
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		attendances = append(attendances, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendances: %w", err)
	}

	return attendances, nil
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, tenantID string, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, a.db)

	// Build WHERE clause
	baseWhere := "a.tenant_id = $1"
	args := []interface{}{tenantID}
	argIdx := 2

	if filter.UserID != nil && *filter.UserID != "" {
		baseWhere += fmt.Sprintf(" AND a.user_id = $%d", argIdx)
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.SiteName != nil && *filter.SiteName != "" {
		baseWhere += fmt.Sprintf(" AND a.site_name = $%d", argIdx)
		args = append(args, *filter.SiteName)
		argIdx++
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date >= $%d::date", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date <= $%d::date", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND a.status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM attendances a WHERE `+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	orderByField := "a.date"
	switch filter.SortBy {
	case "start_time":
		orderByField = "a.start_time"
	case "site_name":
		orderByField = "a.site_name"
	case "status":
		orderByField = "a.status"
	}
	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	selectQuery := fmt.Sprintf(`SELECT %s %s
		WHERE %s
		ORDER BY %s %s, a.created_at %s
		LIMIT $%d OFFSET $%d
	`, attendanceColumns, attendanceFrom, baseWhere, orderByField, sortOrder, sortOrder, argIdx, argIdx+1)

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query attendances: %w", err)
	}
	defer rows.Close()

	var attendances []attendance.Attendance
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance: %w", err)
		}
		attendances = append(attendances, att)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate attendances: %w", err)
	}

	return attendances, total, nil
}

// FindOpenAtSite implements attendance.AttendanceRepository.
func (a *attendanceRepository) FindOpenAtSite(ctx context.Context, tenantID string, userID string, siteName string) (*attendance.Attendance, error) {
	query := `SELECT ` + attendanceColumns + attendanceFrom + `
		WHERE a.tenant_id = $1 AND a.user_id = $2 AND a.site_name = $3
		  AND a.status IN ('working', 'break')
		ORDER BY a.created_at DESC
		LIMIT 1`

	return a.findOne(ctx, query, tenantID, userID, siteName)
}

// LastCompletedAtSite implements attendance.AttendanceRepository.
func (a *attendanceRepository) LastCompletedAtSite(ctx context.Context, tenantID string, userID string, siteName string) (*attendance.Attendance, error) {
	query := `SELECT ` + attendanceColumns + attendanceFrom + `
		WHERE a.tenant_id = $1 AND a.user_id = $2 AND a.site_name = $3
		  AND a.status = 'completed'
		ORDER BY a.updated_at DESC
		LIMIT 1`

	return a.findOne(ctx, query, tenantID, userID, siteName)
}

func (a *attendanceRepository) findOne(ctx context.Context, query string, args ...interface{}) (*attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	att, err := scanAttendance(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find attendance: %w", err)
	}
	return &att, nil
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{
		db: db,
	}
}
