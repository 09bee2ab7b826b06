package attendance

import (
	"strings"

	"github.com/kintai-works/kintai-backend-go/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type ClockInRequest struct {
	SiteName         string `json:"site_name" validate:"required,max=100"`
	Notes            string `json:"notes" validate:"max=500"`
	ConfirmReclockIn bool   `json:"confirm_reclock_in"`
}

func (r *ClockInRequest) Validate() error {
	r.SiteName = strings.TrimSpace(r.SiteName)
	return validator.Struct(r)
}

type AttendanceResponse struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	EmployeeName    string      `json:"employee_name,omitempty"`
	SiteName        string      `json:"site_name"`
	Date            string      `json:"date"`
	StartTime       *string     `json:"start_time,omitempty"`
	EndTime         *string     `json:"end_time,omitempty"`
	BreakMinutes    int         `json:"break_minutes"`
	Status          string      `json:"status"`
	WorkingMinutes  int         `json:"working_minutes"`
	OvertimeMinutes int         `json:"overtime_minutes"`
	IsNightWork     bool        `json:"is_night_work"`
	NightWorkType   string      `json:"night_work_type"`
	IsHolidayWork   bool        `json:"is_holiday_work"`
	SpecialWorkType string      `json:"special_work_type"`
	Notes           string      `json:"notes,omitempty"`
	EditHistory     []EditEntry `json:"edit_history,omitempty"`
	CreatedAt       string      `json:"created_at"`
	UpdatedAt       string      `json:"updated_at"`
}

type AttendanceFilter struct {
	// Search & Filter
	UserID    *string `json:"user_id,omitempty"`
	SiteName  *string `json:"site_name,omitempty"`
	StartDate *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate   *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status    *string `json:"status,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	// Sorting
	SortBy    string `json:"sort_by"`    // date, start_time, site_name, status
	SortOrder string `json:"sort_order"` // asc, desc
}

func (f *AttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	// Page validation
	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1 // Default page
	}

	// Limit validation
	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20 // Default limit
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if f.Status != nil {
		validStatuses := []string{string(StatusWaiting), string(StatusWorking), string(StatusBreak), string(StatusCompleted)}
		if !validator.IsInSlice(*f.Status, validStatuses) {
			errs = append(errs, validator.ValidationError{
				Field:   "status",
				Message: "status must be one of: waiting, working, break, completed",
			})
		}
	}

	if f.StartDate != nil && *f.StartDate != "" {
		if _, valid := validator.IsValidDate(*f.StartDate); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}

	if f.EndDate != nil && *f.EndDate != "" {
		if _, valid := validator.IsValidDate(*f.EndDate); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}

	if f.SortBy != "" {
		validSortFields := []string{"date", "start_time", "site_name", "status"}
		if !validator.IsInSlice(f.SortBy, validSortFields) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_by",
				Message: "sort_by must be one of: date, start_time, site_name, status",
			})
		}
	} else {
		f.SortBy = "date"
	}

	if f.SortOrder != "" {
		f.SortOrder = strings.ToLower(f.SortOrder)
		if !validator.IsInSlice(f.SortOrder, []string{"asc", "desc"}) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_order",
				Message: "sort_order must be one of: asc, desc",
			})
		}
	} else {
		f.SortOrder = "desc" // newest first
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Showing     string               `json:"showing"`
	Attendances []AttendanceResponse `json:"attendances"`
}

// CreateRecordRequest enters a record by hand. Worked days carry start and end
// times; leave days carry only a leave kind in SpecialWorkType.
type CreateRecordRequest struct {
	UserID          string  `json:"user_id" validate:"required"`
	SiteName        string  `json:"site_name" validate:"max=100"`
	Date            string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       *string `json:"start_time,omitempty" validate:"omitempty,timeofday"`
	EndTime         *string `json:"end_time,omitempty" validate:"omitempty,timeofday"`
	BreakMinutes    int     `json:"break_minutes" validate:"gte=0,lte=1440"`
	SpecialWorkType string  `json:"special_work_type" validate:"omitempty,oneof=normal paid_leave compensatory_leave absence"`
	Notes           string  `json:"notes" validate:"max=500"`
}

func (r *CreateRecordRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}

	if SpecialWorkType(r.SpecialWorkType).IsLeave() {
		return nil
	}

	var errs validator.ValidationErrors
	if r.StartTime == nil || validator.IsEmpty(*r.StartTime) {
		errs = append(errs, validator.ValidationError{
			Field:   "start_time",
			Message: "start_time is required for worked records",
		})
	}
	if r.EndTime == nil || validator.IsEmpty(*r.EndTime) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_time",
			Message: "end_time is required for worked records",
		})
	}
	if validator.IsEmpty(r.SiteName) {
		errs = append(errs, validator.ValidationError{
			Field:   "site_name",
			Message: "site_name is required for worked records",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// UpdateAttendanceRequest lets an admin correct a record. Every change is
// recorded in the record's edit history together with Reason.
type UpdateAttendanceRequest struct {
	ID              string  `json:"-"`
	SiteName        *string `json:"site_name,omitempty" validate:"omitempty,max=100"`
	Date            *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartTime       *string `json:"start_time,omitempty" validate:"omitempty,timeofday"`
	EndTime         *string `json:"end_time,omitempty" validate:"omitempty,timeofday"`
	BreakMinutes    *int    `json:"break_minutes,omitempty" validate:"omitempty,gte=0,lte=1440"`
	SpecialWorkType *string `json:"special_work_type,omitempty" validate:"omitempty,oneof=normal paid_leave compensatory_leave absence"`
	Notes           *string `json:"notes,omitempty" validate:"omitempty,max=500"`
	Reason          string  `json:"reason" validate:"required,max=500"`
}

func (r *UpdateAttendanceRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	return validator.Struct(r)
}

// HasChanges reports whether the request touches any field.
func (r *UpdateAttendanceRequest) HasChanges() bool {
	return r.SiteName != nil || r.Date != nil || r.StartTime != nil || r.EndTime != nil ||
		r.BreakMinutes != nil || r.SpecialWorkType != nil || r.Notes != nil
}
