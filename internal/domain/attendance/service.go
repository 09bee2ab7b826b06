package attendance

import (
	"context"
)

// AttendanceService defines business logic for attendance operations
type AttendanceService interface {
	// ClockIn opens a shift at a site for the authenticated user
	ClockIn(ctx context.Context, req ClockInRequest) (AttendanceResponse, error)

	// ClockOut closes an open shift and classifies it
	ClockOut(ctx context.Context, id string) (AttendanceResponse, error)

	StartBreak(ctx context.Context, id string) (AttendanceResponse, error)
	EndBreak(ctx context.Context, id string) (AttendanceResponse, error)

	// GetMyAttendance retrieves attendance records for the authenticated user
	GetMyAttendance(ctx context.Context, filter AttendanceFilter) (ListAttendanceResponse, error)

	// ListAttendance retrieves attendance records with filters (admin)
	ListAttendance(ctx context.Context, filter AttendanceFilter) (ListAttendanceResponse, error)

	// GetAttendance retrieves a single attendance record by ID (admin)
	GetAttendance(ctx context.Context, id string) (AttendanceResponse, error)

	// CreateRecord enters a worked day or a leave day by hand (admin)
	CreateRecord(ctx context.Context, req CreateRecordRequest) (AttendanceResponse, error)

	// UpdateAttendance edits a record and re-classifies it (admin)
	UpdateAttendance(ctx context.Context, req UpdateAttendanceRequest) (AttendanceResponse, error)
}

// SummaryInvalidator drops cached monthly summaries affected by a record change.
type SummaryInvalidator interface {
	InvalidateDate(ctx context.Context, tenantID string, date string) error
}
