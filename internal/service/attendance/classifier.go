package attendance

import (
	"fmt"
	"time"

	"github.com/kintai-works/kintai-backend-go/internal/domain/attendance"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/clock"
)

const (
	// StandardWorkingMinutes is the statutory day; anything above it is overtime.
	StandardWorkingMinutes = 480

	nightStartHour    = 20 // a shift starting at or after 20:00 is a night start
	nightEndHour      = 22 // a shift ending at or after 22:00 is a night end
	earlyMorningLimit = 5  // hours before 05:00 count as night for both ends
)

type ClassifyInput struct {
	StartTime    string
	EndTime      string
	BreakMinutes int
	Date         string // YYYY-MM-DD
}

// WorkTimeClassifier derives worked minutes, overtime and the night/holiday
// categories of one completed shift. It holds no state besides the timezone.
type WorkTimeClassifier struct {
	loc *time.Location
}

func NewWorkTimeClassifier(loc *time.Location) *WorkTimeClassifier {
	if loc == nil {
		loc = time.UTC
	}
	return &WorkTimeClassifier{loc: loc}
}

func (c *WorkTimeClassifier) Classify(in ClassifyInput) (attendance.Classification, error) {
	start, err := clock.ToInstant(in.StartTime, in.Date, c.loc)
	if err != nil {
		return attendance.Classification{}, fmt.Errorf("failed to parse start time: %w", err)
	}
	end, err := clock.ToInstant(in.EndTime, in.Date, c.loc)
	if err != nil {
		return attendance.Classification{}, fmt.Errorf("failed to parse end time: %w", err)
	}

	total := clock.ElapsedMinutes(start, end)
	working := max(0, total-in.BreakMinutes)
	overtime := max(0, working-StandardWorkingMinutes)

	nightType := c.nightWorkType(start.Hour(), end.Hour())
	isHoliday := isHoliday(start)

	return attendance.Classification{
		WorkingMinutes:  working,
		OvertimeMinutes: overtime,
		IsNightWork:     nightType != attendance.NightWorkNone,
		NightWorkType:   nightType,
		IsHolidayWork:   isHoliday,
		SpecialWorkType: specialWorkType(isHoliday, nightType, overtime),
	}, nil
}

// nightWorkType looks only at the wall-clock hours of both ends. A night start
// with a day-time end still counts as night only.
func (c *WorkTimeClassifier) nightWorkType(startHour, endHour int) attendance.NightWorkType {
	startIsNight := startHour >= nightStartHour || startHour < earlyMorningLimit
	endIsNight := endHour >= nightEndHour || endHour < earlyMorningLimit

	switch {
	case startIsNight:
		return attendance.NightWorkNightOnly
	case endIsNight:
		return attendance.NightWorkThroughNight
	default:
		return attendance.NightWorkNone
	}
}

// isHoliday treats Saturday and Sunday as holidays. Public holidays are not observed.
func isHoliday(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func specialWorkType(isHoliday bool, nightType attendance.NightWorkType, overtime int) attendance.SpecialWorkType {
	switch {
	case isHoliday:
		return attendance.WorkTypeHolidayWork
	case nightType == attendance.NightWorkThroughNight:
		return attendance.WorkTypeThroughNight
	case nightType == attendance.NightWorkNightOnly:
		return attendance.WorkTypeNightOnly
	case overtime > 0:
		return attendance.WorkTypeOvertime
	default:
		return attendance.WorkTypeNormal
	}
}

// ManualClassification is the classification of a leave or absence day.
func ManualClassification(kind attendance.SpecialWorkType) (attendance.Classification, error) {
	if !kind.IsLeave() {
		return attendance.Classification{}, attendance.ErrNotManualWorkType
	}
	return attendance.Classification{
		NightWorkType:   attendance.NightWorkNone,
		SpecialWorkType: kind,
	}, nil
}
