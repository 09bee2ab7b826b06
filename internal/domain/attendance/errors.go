package attendance

import "errors"

// Attendance domain errors
var (
	// Clock-in errors
	ErrAlreadyWorkingAtSite = errors.New("you already have an open shift at this site")
	ErrRecentClockOut       = errors.New("you clocked out at this site less than an hour ago")

	// Open shift errors
	ErrShiftNotOpen      = errors.New("attendance is not an open shift")
	ErrAlreadyClockedOut = errors.New("you have already clocked out")
	ErrAlreadyOnBreak    = errors.New("you are already on a break")
	ErrNotOnBreak        = errors.New("you are not on a break")
	ErrNotRecordOwner    = errors.New("attendance record belongs to another user")

	// Classification errors
	ErrNotManualWorkType = errors.New("work type cannot be assigned manually")
	ErrMissingStartOrEnd = errors.New("start_time and end_time are required for worked records")

	// General errors
	ErrAttendanceNotFound     = errors.New("attendance record not found")
	ErrConcurrentModification = errors.New("attendance record was modified by someone else")
)
