package attendance

import (
	"context"
)

// AttendanceRepository defines data access methods for attendance records.
// All methods take tenantID so one tenant can never read another tenant's records.
type AttendanceRepository interface {
	// Create creates a new attendance record
	Create(ctx context.Context, attendance Attendance) (Attendance, error)

	// GetByID retrieves attendance by ID with tenant isolation
	GetByID(ctx context.Context, tenantID string, id string) (Attendance, error)

	// Update writes every mutable field. It fails with ErrConcurrentModification
	// when the stored row changed after attendance.UpdatedAt.
	Update(ctx context.Context, attendance Attendance) (Attendance, error)

	// UpdateClassification persists the clock-out result of one record
	UpdateClassification(ctx context.Context, tenantID string, id string, patch ClassificationPatch) error

	// QueryByDateRange returns every record whose date is within [startDate, endDate]
	QueryByDateRange(ctx context.Context, tenantID string, startDate string, endDate string) ([]Attendance, error)

	// List retrieves attendance records with filters and pagination
	List(ctx context.Context, tenantID string, filter AttendanceFilter) ([]Attendance, int64, error)

	// FindOpenAtSite returns the user's working/break shift at a site, nil when none
	FindOpenAtSite(ctx context.Context, tenantID string, userID string, siteName string) (*Attendance, error)

	// LastCompletedAtSite returns the most recently updated completed shift at a site, nil when none
	LastCompletedAtSite(ctx context.Context, tenantID string, userID string, siteName string) (*Attendance, error)
}

// BreakRepository stores the individual breaks of a shift.
type BreakRepository interface {
	CreateBreak(ctx context.Context, b Break) (Break, error)

	// GetActiveBreak returns the break without an end time, nil when none
	GetActiveBreak(ctx context.Context, tenantID string, attendanceID string) (*Break, error)

	CloseBreak(ctx context.Context, tenantID string, breakID string, endTime string) error
}
