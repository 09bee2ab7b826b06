package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kintai-works/kintai-backend-go/internal/domain/attendance"
	"github.com/kintai-works/kintai-backend-go/internal/domain/summary"
	"github.com/kintai-works/kintai-backend-go/internal/domain/user"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/clock"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/jwt"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", validator.ValidationErrors{{Field: "site_name", Message: "site_name is required"}}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"missing tenant", jwt.ErrTenantClaim, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"user not found", user.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"admin required", user.ErrAdminPrivilegeRequired, http.StatusForbidden, "FORBIDDEN"},
		{"record not found wrapped", fmt.Errorf("failed to get attendance: %w", attendance.ErrAttendanceNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"not owner", attendance.ErrNotRecordOwner, http.StatusForbidden, "FORBIDDEN"},
		{"already working", attendance.ErrAlreadyWorkingAtSite, http.StatusConflict, "CONFLICT"},
		{"recent clock out", attendance.ErrRecentClockOut, http.StatusConflict, "CONFLICT"},
		{"concurrent edit", attendance.ErrConcurrentModification, http.StatusConflict, "CONFLICT"},
		{"missing times", attendance.ErrMissingStartOrEnd, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad time", fmt.Errorf("%w: %q", clock.ErrInvalidTimeOfDay, "25:00"), http.StatusBadRequest, "BAD_REQUEST"},
		{"nothing to export", summary.ErrNothingToExport, http.StatusNotFound, "NOT_FOUND"},
		{"bad period", summary.ErrInvalidPeriod, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestHandleError_NothingToExportMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, summary.ErrNothingToExport)

	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "No data to export", body.Error.Message)
}

func TestHandleError_ValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, validator.ValidationErrors{{Field: "period", Message: "period must be in YYYY-MM format"}})

	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "period must be in YYYY-MM format", body.Error.Details["period"])
}
