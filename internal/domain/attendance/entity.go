package attendance

import (
	"time"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusWorking   Status = "working"
	StatusBreak     Status = "break"
	StatusCompleted Status = "completed"
)

type NightWorkType string

const (
	NightWorkNone         NightWorkType = "none"
	NightWorkNightOnly    NightWorkType = "night_only"
	NightWorkThroughNight NightWorkType = "through_night"
)

type SpecialWorkType string

const (
	WorkTypeNormal            SpecialWorkType = "normal"
	WorkTypeOvertime          SpecialWorkType = "overtime"
	WorkTypeNightOnly         SpecialWorkType = "night_only"
	WorkTypeThroughNight      SpecialWorkType = "through_night"
	WorkTypeHolidayWork       SpecialWorkType = "holiday_work"
	WorkTypePaidLeave         SpecialWorkType = "paid_leave"
	WorkTypeCompensatoryLeave SpecialWorkType = "compensatory_leave"
	WorkTypeAbsence           SpecialWorkType = "absence"
)

// IsLeave reports whether the type is a manually assigned leave or absence day.
func (t SpecialWorkType) IsLeave() bool {
	switch t {
	case WorkTypePaidLeave, WorkTypeCompensatoryLeave, WorkTypeAbsence:
		return true
	}
	return false
}

var SpecialWorkTypes = []string{
	string(WorkTypeNormal), string(WorkTypeOvertime), string(WorkTypeNightOnly),
	string(WorkTypeThroughNight), string(WorkTypeHolidayWork), string(WorkTypePaidLeave),
	string(WorkTypeCompensatoryLeave), string(WorkTypeAbsence),
}

type Attendance struct {
	ID              string
	TenantID        string
	UserID          string
	SiteName        string
	Date            string // YYYY-MM-DD, the day the shift is attributed to
	StartTime       *string
	EndTime         *string
	BreakMinutes    int
	Status          Status
	WorkingMinutes  int
	OvertimeMinutes int
	IsNightWork     bool
	NightWorkType   NightWorkType
	IsHolidayWork   bool
	SpecialWorkType SpecialWorkType
	Notes           string
	EditHistory     []EditEntry
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// DTO
	EmployeeName *string
}

// IsOpen reports whether the shift has not been clocked out yet.
func (a *Attendance) IsOpen() bool {
	return a.Status == StatusWorking || a.Status == StatusBreak
}

// Apply copies a classification onto the record.
func (a *Attendance) Apply(c Classification) {
	a.WorkingMinutes = c.WorkingMinutes
	a.OvertimeMinutes = c.OvertimeMinutes
	a.IsNightWork = c.IsNightWork
	a.NightWorkType = c.NightWorkType
	a.IsHolidayWork = c.IsHolidayWork
	a.SpecialWorkType = c.SpecialWorkType
}

// Classification is the derived part of a record.
type Classification struct {
	WorkingMinutes  int
	OvertimeMinutes int
	IsNightWork     bool
	NightWorkType   NightWorkType
	IsHolidayWork   bool
	SpecialWorkType SpecialWorkType
}

// ClassificationPatch is what the clock-out flow writes back to the store.
// UpdatedAt is the version of the open shift the patch was computed from.
type ClassificationPatch struct {
	EndTime        string
	Status         Status
	BreakMinutes   int
	Classification Classification
	UpdatedAt      time.Time
}

type EditEntry struct {
	EditedAt time.Time         `json:"edited_at"`
	EditedBy string            `json:"edited_by"`
	Reason   string            `json:"reason"`
	Changes  map[string]Change `json:"changes"`
}

type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

type Break struct {
	ID           string
	TenantID     string
	AttendanceID string
	UserID       string
	StartTime    string
	EndTime      *string
	CreatedAt    time.Time
}
