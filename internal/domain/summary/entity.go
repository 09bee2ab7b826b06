package summary

import "time"

// EmployeeMonthlySummary is one employee's totals for one payroll period.
// Hours are rounded to one decimal place.
type EmployeeMonthlySummary struct {
	UserID       string `json:"user_id"`
	EmployeeName string `json:"employee_name"`
	Email        string `json:"email"`

	NormalHours       float64 `json:"normal_hours"`
	NightOnlyHours    float64 `json:"night_only_hours"`
	ThroughNightHours float64 `json:"through_night_hours"`
	HolidayHours      float64 `json:"holiday_hours"`
	OvertimeHours     float64 `json:"overtime_hours"`
	BreakHours        float64 `json:"break_hours"`
	TotalHours        float64 `json:"total_hours"`

	WorkDays         int `json:"work_days"`
	HolidayWorkDays  int `json:"holiday_work_days"`
	NightWorkDays    int `json:"night_work_days"`
	ThroughNightDays int `json:"through_night_days"`
	AbsenceDays      int `json:"absence_days"`
	PaidLeaveDays    int `json:"paid_leave_days"`
	CompensatoryDays int `json:"compensatory_days"`
}

// Period is a payroll period running from the 21st of the previous month to
// the 20th of the named month, both inclusive.
type Period struct {
	YearMonth string `json:"year_month"` // YYYY-MM
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
	Label     string `json:"label"`
}

// Contains reports whether date (YYYY-MM-DD) falls inside the period.
func (p Period) Contains(date string) bool {
	return date >= p.StartDate && date <= p.EndDate
}

type PeriodOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type MonthlySummary struct {
	Period          Period                   `json:"period"`
	GeneratedAt     time.Time                `json:"generated_at"`
	Employees       []EmployeeMonthlySummary `json:"employees"`
	ExcludedRecords int                      `json:"excluded_records"`
	Cached          bool                     `json:"cached"`
}
