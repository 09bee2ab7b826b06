package summary

import (
	"fmt"
	"time"

	"github.com/kintai-works/kintai-backend-go/internal/domain/summary"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/clock"
)

// cutoffDay is the last day of a payroll period. From the next day on,
// dates belong to the following month's period.
const cutoffDay = 20

// PeriodFor returns the payroll period a calendar date belongs to.
func PeriodFor(date time.Time) summary.Period {
	year, month := date.Year(), date.Month()
	if date.Day() > cutoffDay {
		next := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
		year, month = next.Year(), next.Month()
	}
	return newPeriod(year, month)
}

// ParsePeriod builds the period named by a YYYY-MM string.
func ParsePeriod(yearMonth string) (summary.Period, error) {
	t, err := time.Parse("2006-01", yearMonth)
	if err != nil {
		return summary.Period{}, fmt.Errorf("%w: %q", summary.ErrInvalidPeriod, yearMonth)
	}
	return newPeriod(t.Year(), t.Month()), nil
}

// CurrentPeriod returns the YYYY-MM of the period containing today.
func CurrentPeriod(today time.Time) string {
	return PeriodFor(today).YearMonth
}

// RecentPeriods lists n periods ending with the current one, most recent first.
func RecentPeriods(today time.Time, n int) []summary.PeriodOption {
	current := PeriodFor(today)
	options := make([]summary.PeriodOption, 0, n)
	for i := 0; i < n; i++ {
		t := time.Date(current.Year, time.Month(current.Month)-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		p := newPeriod(t.Year(), t.Month())
		options = append(options, summary.PeriodOption{Value: p.YearMonth, Label: p.Label})
	}
	return options
}

func newPeriod(year int, month time.Month) summary.Period {
	end := time.Date(year, month, cutoffDay, 0, 0, 0, 0, time.UTC)
	start := time.Date(year, month-1, cutoffDay+1, 0, 0, 0, 0, time.UTC)

	return summary.Period{
		YearMonth: fmt.Sprintf("%04d-%02d", year, int(month)),
		Year:      year,
		Month:     int(month),
		StartDate: clock.FormatDate(start),
		EndDate:   clock.FormatDate(end),
		Label:     fmt.Sprintf("%d年%d月度 (%d/21-%d/20)", year, int(month), int(start.Month()), int(month)),
	}
}
