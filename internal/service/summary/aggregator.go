package summary

import (
	"sort"

	"github.com/kintai-works/kintai-backend-go/internal/domain/attendance"
	"github.com/kintai-works/kintai-backend-go/internal/domain/summary"
	"github.com/kintai-works/kintai-backend-go/internal/domain/user"
	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var minutesPerHour = decimal.NewFromInt(60)

// Filter narrows the records of a period before aggregation.
type Filter struct {
	EmployeeID string
	SiteName   string
}

// Apply keeps the records matching every non-empty field.
func (f Filter) Apply(records []attendance.Attendance) []attendance.Attendance {
	if f.EmployeeID == "" && f.SiteName == "" {
		return records
	}

	out := make([]attendance.Attendance, 0, len(records))
	for _, r := range records {
		if f.SiteName != "" && r.SiteName != f.SiteName {
			continue
		}
		if f.EmployeeID != "" && r.UserID != f.EmployeeID {
			continue
		}
		out = append(out, r)
	}
	return out
}

type AggregateResult struct {
	Summaries       []summary.EmployeeMonthlySummary
	ExcludedRecords int // records without a user ID
}

// minuteTotals holds one employee's running totals before conversion to hours.
type minuteTotals struct {
	normal       int
	nightOnly    int
	throughNight int
	holiday      int
	overtime     int
	breaks       int
}

// Aggregate folds classified records into one summary row per employee,
// sorted by employee name in Japanese collation order.
func Aggregate(records []attendance.Attendance, directory user.Directory) AggregateResult {
	var result AggregateResult

	grouped := make(map[string][]attendance.Attendance)
	var order []string
	for _, r := range records {
		if r.UserID == "" {
			result.ExcludedRecords++
			continue
		}
		if _, ok := grouped[r.UserID]; !ok {
			order = append(order, r.UserID)
		}
		grouped[r.UserID] = append(grouped[r.UserID], r)
	}

	result.Summaries = make([]summary.EmployeeMonthlySummary, 0, len(order))
	for _, userID := range order {
		result.Summaries = append(result.Summaries, aggregateEmployee(directory.Lookup(userID), grouped[userID]))
	}

	sortByName(result.Summaries)
	return result
}

func aggregateEmployee(profile user.Profile, records []attendance.Attendance) summary.EmployeeMonthlySummary {
	s := summary.EmployeeMonthlySummary{
		UserID:       profile.UserID,
		EmployeeName: profile.DisplayName,
		Email:        profile.Email,
	}

	var m minuteTotals
	for _, r := range records {
		switch r.SpecialWorkType {
		case attendance.WorkTypePaidLeave:
			s.PaidLeaveDays++
			continue
		case attendance.WorkTypeCompensatoryLeave:
			s.CompensatoryDays++
			continue
		case attendance.WorkTypeAbsence:
			s.AbsenceDays++
			continue
		}

		if r.WorkingMinutes == 0 {
			continue
		}

		s.WorkDays++
		m.breaks += r.BreakMinutes
		m.overtime += r.OvertimeMinutes
		base := r.WorkingMinutes - r.OvertimeMinutes

		switch {
		case r.IsHolidayWork:
			m.holiday += base
			s.HolidayWorkDays++
		case r.NightWorkType == attendance.NightWorkThroughNight:
			m.throughNight += base
			s.ThroughNightDays++
		case r.NightWorkType == attendance.NightWorkNightOnly || r.IsNightWork:
			m.nightOnly += base
			s.NightWorkDays++
		default:
			m.normal += base
		}
	}

	s.NormalHours = toHours(m.normal)
	s.NightOnlyHours = toHours(m.nightOnly)
	s.ThroughNightHours = toHours(m.throughNight)
	s.HolidayHours = toHours(m.holiday)
	s.OvertimeHours = toHours(m.overtime)
	s.BreakHours = toHours(m.breaks)
	s.TotalHours = toHours(m.normal + m.nightOnly + m.throughNight + m.holiday + m.overtime)

	return s
}

// toHours converts minutes to hours rounded half away from zero to one decimal.
func toHours(minutes int) float64 {
	return decimal.NewFromInt(int64(minutes)).Div(minutesPerHour).Round(1).InexactFloat64()
}

func sortByName(rows []summary.EmployeeMonthlySummary) {
	c := collate.New(language.Japanese)
	sort.SliceStable(rows, func(i, j int) bool {
		return c.CompareString(rows[i].EmployeeName, rows[j].EmployeeName) < 0
	})
}
