package clock

import (
	"errors"
	"fmt"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04:05"
)

var (
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
	ErrInvalidDate      = errors.New("invalid date")
)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// ParseTimeOfDay accepts H:MM:SS, HH:MM:SS, H:MM and HH:MM.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{TimeOfDayLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
}

// ParseDate parses a YYYY-MM-DD string in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// ToInstant combines a work date with a wall-clock time.
func ToInstant(timeOfDay, referenceDate string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(referenceDate, loc)
	if err != nil {
		return time.Time{}, err
	}
	tod, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), tod.Hour, tod.Minute, tod.Second, 0, d.Location()), nil
}

// ElapsedMinutes returns whole minutes from start to end. An end at or before
// start is treated as falling on the next day, so the result is never negative.
func ElapsedMinutes(start, end time.Time) int {
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	return int(end.Sub(start) / time.Minute)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func FormatTimeOfDay(t time.Time) string {
	return t.Format(TimeOfDayLayout)
}
