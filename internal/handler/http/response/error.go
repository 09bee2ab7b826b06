package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kintai-works/kintai-backend-go/internal/domain/attendance"
	"github.com/kintai-works/kintai-backend-go/internal/domain/summary"
	"github.com/kintai-works/kintai-backend-go/internal/domain/user"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/clock"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/jwt"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Token errors
	case errors.Is(err, jwt.ErrInvalidToken),
		errors.Is(err, jwt.ErrMissingClaims),
		errors.Is(err, jwt.ErrTenantClaim),
		errors.Is(err, jwt.ErrUserClaim):
		Unauthorized(w, err.Error())

	// User domain errors
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")
	case errors.Is(err, user.ErrAdminPrivilegeRequired),
		errors.Is(err, user.ErrInsufficientPermissions),
		errors.Is(err, user.ErrTenantIDRequired):
		Forbidden(w, err.Error())

	// Attendance domain errors
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrNotRecordOwner):
		Forbidden(w, err.Error())
	case errors.Is(err, attendance.ErrAlreadyWorkingAtSite),
		errors.Is(err, attendance.ErrRecentClockOut),
		errors.Is(err, attendance.ErrShiftNotOpen),
		errors.Is(err, attendance.ErrAlreadyClockedOut),
		errors.Is(err, attendance.ErrAlreadyOnBreak),
		errors.Is(err, attendance.ErrNotOnBreak):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrConcurrentModification):
		Conflict(w, "Attendance record was modified by someone else, reload and try again")
	case errors.Is(err, attendance.ErrNotManualWorkType),
		errors.Is(err, attendance.ErrMissingStartOrEnd):
		BadRequest(w, err.Error(), nil)

	// Time parsing errors
	case errors.Is(err, clock.ErrInvalidTimeOfDay),
		errors.Is(err, clock.ErrInvalidDate):
		BadRequest(w, err.Error(), nil)

	// Summary domain errors
	case errors.Is(err, summary.ErrNothingToExport):
		NotFound(w, "No data to export")
	case errors.Is(err, summary.ErrInvalidPeriod),
		errors.Is(err, summary.ErrInvalidFormat):
		BadRequest(w, err.Error(), nil)

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
