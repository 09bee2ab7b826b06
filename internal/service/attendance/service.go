package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/kintai-works/kintai-backend-go/internal/domain/attendance"
	"github.com/kintai-works/kintai-backend-go/internal/domain/user"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/clock"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/database"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/jwt"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/validator"
)

// reclockInWindow is how long after a completed shift a new clock-in at the
// same site needs explicit confirmation.
const reclockInWindow = 60 * time.Minute

type AttendanceServiceImpl struct {
	tx database.Transactor
	attendance.AttendanceRepository
	attendance.BreakRepository
	user.UserRepository
	invalidator attendance.SummaryInvalidator
	classifier  *WorkTimeClassifier
	loc         *time.Location
	now         func() time.Time
}

// ClockIn implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ClockIn(ctx context.Context, req attendance.ClockInRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	nowLocal := a.now().In(a.loc)

	open, err := a.AttendanceRepository.FindOpenAtSite(ctx, claims.TenantID, claims.UserID, req.SiteName)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to check open shift: %w", err)
	}
	if open != nil {
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyWorkingAtSite
	}

	if !req.ConfirmReclockIn {
		last, err := a.AttendanceRepository.LastCompletedAtSite(ctx, claims.TenantID, claims.UserID, req.SiteName)
		if err != nil {
			return attendance.AttendanceResponse{}, fmt.Errorf("failed to get last completed shift: %w", err)
		}
		if last != nil {
			end, err := a.shiftEnd(*last)
			if err == nil && nowLocal.Sub(end) >= 0 && nowLocal.Sub(end) < reclockInWindow {
				return attendance.AttendanceResponse{}, attendance.ErrRecentClockOut
			}
		}
	}

	startTime := clock.FormatTimeOfDay(nowLocal)
	data := attendance.Attendance{
		TenantID:        claims.TenantID,
		UserID:          claims.UserID,
		SiteName:        req.SiteName,
		Date:            clock.FormatDate(nowLocal),
		StartTime:       &startTime,
		Status:          attendance.StatusWorking,
		NightWorkType:   attendance.NightWorkNone,
		SpecialWorkType: attendance.WorkTypeNormal,
		Notes:           req.Notes,
	}

	created, err := a.AttendanceRepository.Create(ctx, data)
	if err != nil {
		if errors.Is(err, attendance.ErrAlreadyWorkingAtSite) {
			return attendance.AttendanceResponse{}, attendance.ErrAlreadyWorkingAtSite
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to create attendance record: %w", err)
	}

	return mapAttendanceToResponse(created), nil
}

// shiftEnd returns the instant a completed shift ended, on the next day when
// the end time is not after the start time.
func (a *AttendanceServiceImpl) shiftEnd(att attendance.Attendance) (time.Time, error) {
	if att.StartTime == nil || att.EndTime == nil {
		return time.Time{}, attendance.ErrMissingStartOrEnd
	}
	start, err := clock.ToInstant(*att.StartTime, att.Date, a.loc)
	if err != nil {
		return time.Time{}, err
	}
	end, err := clock.ToInstant(*att.EndTime, att.Date, a.loc)
	if err != nil {
		return time.Time{}, err
	}
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	return end, nil
}

// getOwnOpenShift loads a shift the caller may clock and checks it is still open.
func (a *AttendanceServiceImpl) getOwnOpenShift(ctx context.Context, claims jwt.Claims, id string) (attendance.Attendance, error) {
	att, err := a.AttendanceRepository.GetByID(ctx, claims.TenantID, id)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.Attendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance: %w", err)
	}

	if att.UserID != claims.UserID && !claims.IsAdmin() {
		return attendance.Attendance{}, attendance.ErrNotRecordOwner
	}

	return att, nil
}

// breakMinutes returns the whole minutes between two wall-clock times of a
// shift date. Unlike a shift span, an end equal to the start is an empty
// break; only an end before the start crosses midnight.
func (a *AttendanceServiceImpl) breakMinutes(date, start, end string) (int, error) {
	s, err := clock.ToInstant(start, date, a.loc)
	if err != nil {
		return 0, err
	}
	e, err := clock.ToInstant(end, date, a.loc)
	if err != nil {
		return 0, err
	}
	if e.Before(s) {
		e = e.Add(24 * time.Hour)
	}
	return int(e.Sub(s) / time.Minute), nil
}

// StartBreak implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) StartBreak(ctx context.Context, id string) (attendance.AttendanceResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	att, err := a.getOwnOpenShift(ctx, claims, id)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if !att.IsOpen() {
		return attendance.AttendanceResponse{}, attendance.ErrShiftNotOpen
	}
	if att.Status == attendance.StatusBreak {
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyOnBreak
	}

	nowLocal := a.now().In(a.loc)

	var updated attendance.Attendance
	err = a.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, err := a.BreakRepository.CreateBreak(txCtx, attendance.Break{
			TenantID:     att.TenantID,
			AttendanceID: att.ID,
			UserID:       att.UserID,
			StartTime:    clock.FormatTimeOfDay(nowLocal),
		}); err != nil {
			return fmt.Errorf("failed to create break: %w", err)
		}

		att.Status = attendance.StatusBreak
		updated, err = a.AttendanceRepository.Update(txCtx, att)
		if err != nil {
			return fmt.Errorf("failed to update attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	return mapAttendanceToResponse(updated), nil
}

// EndBreak implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) EndBreak(ctx context.Context, id string) (attendance.AttendanceResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	att, err := a.getOwnOpenShift(ctx, claims, id)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if !att.IsOpen() {
		return attendance.AttendanceResponse{}, attendance.ErrShiftNotOpen
	}

	active, err := a.BreakRepository.GetActiveBreak(ctx, att.TenantID, att.ID)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get active break: %w", err)
	}
	if active == nil {
		return attendance.AttendanceResponse{}, attendance.ErrNotOnBreak
	}

	endTime := clock.FormatTimeOfDay(a.now().In(a.loc))
	minutes, err := a.breakMinutes(att.Date, active.StartTime, endTime)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to compute break duration: %w", err)
	}

	var updated attendance.Attendance
	err = a.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := a.BreakRepository.CloseBreak(txCtx, att.TenantID, active.ID, endTime); err != nil {
			return fmt.Errorf("failed to close break: %w", err)
		}

		att.BreakMinutes += minutes
		att.Status = attendance.StatusWorking
		updated, err = a.AttendanceRepository.Update(txCtx, att)
		if err != nil {
			return fmt.Errorf("failed to update attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	return mapAttendanceToResponse(updated), nil
}

// ClockOut implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ClockOut(ctx context.Context, id string) (attendance.AttendanceResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	att, err := a.getOwnOpenShift(ctx, claims, id)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if !att.IsOpen() {
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyClockedOut
	}
	if att.StartTime == nil {
		return attendance.AttendanceResponse{}, attendance.ErrMissingStartOrEnd
	}

	endTime := clock.FormatTimeOfDay(a.now().In(a.loc))

	err = a.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		active, err := a.BreakRepository.GetActiveBreak(txCtx, att.TenantID, att.ID)
		if err != nil {
			return fmt.Errorf("failed to get active break: %w", err)
		}
		if active != nil {
			if err := a.BreakRepository.CloseBreak(txCtx, att.TenantID, active.ID, endTime); err != nil {
				return fmt.Errorf("failed to close break: %w", err)
			}
			minutes, err := a.breakMinutes(att.Date, active.StartTime, endTime)
			if err != nil {
				return fmt.Errorf("failed to compute break duration: %w", err)
			}
			att.BreakMinutes += minutes
		}

		classification, err := a.classifier.Classify(ClassifyInput{
			StartTime:    *att.StartTime,
			EndTime:      endTime,
			BreakMinutes: att.BreakMinutes,
			Date:         att.Date,
		})
		if err != nil {
			return fmt.Errorf("failed to classify attendance: %w", err)
		}

		patch := attendance.ClassificationPatch{
			EndTime:        endTime,
			Status:         attendance.StatusCompleted,
			BreakMinutes:   att.BreakMinutes,
			Classification: classification,
			UpdatedAt:      att.UpdatedAt,
		}
		if err := a.AttendanceRepository.UpdateClassification(txCtx, att.TenantID, att.ID, patch); err != nil {
			return fmt.Errorf("failed to update attendance classification: %w", err)
		}

		att.EndTime = &endTime
		att.Status = attendance.StatusCompleted
		att.Apply(classification)
		return nil
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	a.invalidateSummary(ctx, att.TenantID, att.Date)

	return mapAttendanceToResponse(att), nil
}

// CreateRecord implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) CreateRecord(ctx context.Context, req attendance.CreateRecordRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	if _, err := a.UserRepository.GetByID(ctx, claims.TenantID, req.UserID); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return attendance.AttendanceResponse{}, user.ErrUserNotFound
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get user: %w", err)
	}

	data := attendance.Attendance{
		TenantID:     claims.TenantID,
		UserID:       req.UserID,
		SiteName:     req.SiteName,
		Date:         req.Date,
		BreakMinutes: req.BreakMinutes,
		Status:       attendance.StatusCompleted,
		Notes:        req.Notes,
	}
	if req.StartTime != nil {
		data.StartTime = normalizedTime(*req.StartTime)
	}
	if req.EndTime != nil {
		data.EndTime = normalizedTime(*req.EndTime)
	}

	classification, err := a.classifyRecord(data, attendance.SpecialWorkType(req.SpecialWorkType))
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	data.Apply(classification)

	created, err := a.AttendanceRepository.Create(ctx, data)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to create attendance record: %w", err)
	}

	a.invalidateSummary(ctx, created.TenantID, created.Date)

	return mapAttendanceToResponse(created), nil
}

// classifyRecord derives the classification of a completed record. Leave
// kinds are assigned as given; everything else comes from the shift times.
func (a *AttendanceServiceImpl) classifyRecord(att attendance.Attendance, kind attendance.SpecialWorkType) (attendance.Classification, error) {
	if kind.IsLeave() {
		return ManualClassification(kind)
	}

	if att.StartTime == nil || att.EndTime == nil {
		return attendance.Classification{}, attendance.ErrMissingStartOrEnd
	}

	return a.classifier.Classify(ClassifyInput{
		StartTime:    *att.StartTime,
		EndTime:      *att.EndTime,
		BreakMinutes: att.BreakMinutes,
		Date:         att.Date,
	})
}

// GetMyAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetMyAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	filter.UserID = &claims.UserID
	return a.list(ctx, claims.TenantID, filter)
}

// ListAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	return a.list(ctx, claims.TenantID, filter)
}

func (a *AttendanceServiceImpl) list(ctx context.Context, tenantID string, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	attendances, total, err := a.AttendanceRepository.List(ctx, tenantID, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendances: %w", err)
	}

	// Map to response
	responses := make([]attendance.AttendanceResponse, 0, len(attendances))
	for _, att := range attendances {
		responses = append(responses, mapAttendanceToResponse(att))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Attendances: responses,
	}, nil
}

// GetAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetAttendance(ctx context.Context, id string) (attendance.AttendanceResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	att, err := a.AttendanceRepository.GetByID(ctx, claims.TenantID, id)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.AttendanceResponse{}, attendance.ErrAttendanceNotFound
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get attendance: %w", err)
	}

	return mapAttendanceToResponse(att), nil
}

// UpdateAttendance implements attendance.AttendanceService.
// Admins use it to fix forgotten clock-outs and wrong times. The record is
// re-classified and the change is appended to its edit history.
func (a *AttendanceServiceImpl) UpdateAttendance(ctx context.Context, req attendance.UpdateAttendanceRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if !req.HasChanges() {
		return attendance.AttendanceResponse{}, validator.ValidationErrors{{
			Field:   "body",
			Message: "at least one field must be changed",
		}}
	}

	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	att, err := a.AttendanceRepository.GetByID(ctx, claims.TenantID, req.ID)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.AttendanceResponse{}, attendance.ErrAttendanceNotFound
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get attendance: %w", err)
	}

	oldDate := att.Date
	changes := applyUpdate(&att, req)

	kind := att.SpecialWorkType
	if req.SpecialWorkType != nil {
		kind = attendance.SpecialWorkType(*req.SpecialWorkType)
	}

	// an open shift is only classified once it has an end time or becomes a leave day
	if att.IsOpen() && (att.EndTime != nil || kind.IsLeave()) {
		changes["status"] = attendance.Change{From: att.Status, To: attendance.StatusCompleted}
		att.Status = attendance.StatusCompleted
	}
	if !att.IsOpen() {
		classification, err := a.classifyRecord(att, kind)
		if err != nil {
			return attendance.AttendanceResponse{}, err
		}
		att.Apply(classification)
	}

	att.EditHistory = append(att.EditHistory, attendance.EditEntry{
		EditedAt: a.now().UTC(),
		EditedBy: claims.UserID,
		Reason:   req.Reason,
		Changes:  changes,
	})

	updated, err := a.AttendanceRepository.Update(ctx, att)
	if err != nil {
		if errors.Is(err, attendance.ErrConcurrentModification) {
			return attendance.AttendanceResponse{}, attendance.ErrConcurrentModification
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to update attendance: %w", err)
	}

	a.invalidateSummary(ctx, updated.TenantID, oldDate)
	if updated.Date != oldDate {
		a.invalidateSummary(ctx, updated.TenantID, updated.Date)
	}

	return mapAttendanceToResponse(updated), nil
}

// applyUpdate copies the requested fields onto att and returns what changed.
func applyUpdate(att *attendance.Attendance, req attendance.UpdateAttendanceRequest) map[string]attendance.Change {
	changes := make(map[string]attendance.Change)

	if req.SiteName != nil && *req.SiteName != att.SiteName {
		changes["site_name"] = attendance.Change{From: att.SiteName, To: *req.SiteName}
		att.SiteName = *req.SiteName
	}
	if req.Date != nil && *req.Date != att.Date {
		changes["date"] = attendance.Change{From: att.Date, To: *req.Date}
		att.Date = *req.Date
	}
	if req.StartTime != nil && !equalTime(att.StartTime, *req.StartTime) {
		changes["start_time"] = attendance.Change{From: att.StartTime, To: *req.StartTime}
		att.StartTime = normalizedTime(*req.StartTime)
	}
	if req.EndTime != nil && !equalTime(att.EndTime, *req.EndTime) {
		changes["end_time"] = attendance.Change{From: att.EndTime, To: *req.EndTime}
		att.EndTime = normalizedTime(*req.EndTime)
	}
	if req.BreakMinutes != nil && *req.BreakMinutes != att.BreakMinutes {
		changes["break_minutes"] = attendance.Change{From: att.BreakMinutes, To: *req.BreakMinutes}
		att.BreakMinutes = *req.BreakMinutes
	}
	if req.SpecialWorkType != nil && attendance.SpecialWorkType(*req.SpecialWorkType) != att.SpecialWorkType {
		changes["special_work_type"] = attendance.Change{From: att.SpecialWorkType, To: *req.SpecialWorkType}
	}
	if req.Notes != nil && *req.Notes != att.Notes {
		changes["notes"] = attendance.Change{From: att.Notes, To: *req.Notes}
		att.Notes = *req.Notes
	}

	return changes
}

// normalizedTime stores a validated time of day as HH:MM:SS.
func normalizedTime(s string) *string {
	tod, err := clock.ParseTimeOfDay(s)
	if err != nil {
		return &s
	}
	v := tod.String()
	return &v
}

func equalTime(current *string, requested string) bool {
	return current != nil && *current == *normalizedTime(requested)
}

func (a *AttendanceServiceImpl) invalidateSummary(ctx context.Context, tenantID, date string) {
	if err := a.invalidator.InvalidateDate(ctx, tenantID, date); err != nil {
		slog.Warn("failed to invalidate monthly summary cache",
			"tenant_id", tenantID,
			"date", date,
			"error", err,
		)
	}
}

// mapAttendanceToResponse converts an Attendance entity to AttendanceResponse
func mapAttendanceToResponse(att attendance.Attendance) attendance.AttendanceResponse {
	var employeeName string
	if att.EmployeeName != nil {
		employeeName = *att.EmployeeName
	}

	return attendance.AttendanceResponse{
		ID:              att.ID,
		UserID:          att.UserID,
		EmployeeName:    employeeName,
		SiteName:        att.SiteName,
		Date:            att.Date,
		StartTime:       att.StartTime,
		EndTime:         att.EndTime,
		BreakMinutes:    att.BreakMinutes,
		Status:          string(att.Status),
		WorkingMinutes:  att.WorkingMinutes,
		OvertimeMinutes: att.OvertimeMinutes,
		IsNightWork:     att.IsNightWork,
		NightWorkType:   string(att.NightWorkType),
		IsHolidayWork:   att.IsHolidayWork,
		SpecialWorkType: string(att.SpecialWorkType),
		Notes:           att.Notes,
		EditHistory:     att.EditHistory,
		CreatedAt:       att.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:       att.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func NewAttendanceService(
	tx database.Transactor,
	attendanceRepo attendance.AttendanceRepository,
	breakRepo attendance.BreakRepository,
	userRepo user.UserRepository,
	invalidator attendance.SummaryInvalidator,
	classifier *WorkTimeClassifier,
	loc *time.Location,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		tx:                   tx,
		AttendanceRepository: attendanceRepo,
		BreakRepository:      breakRepo,
		UserRepository:       userRepo,
		invalidator:          invalidator,
		classifier:           classifier,
		loc:                  loc,
		now:                  time.Now,
	}
}
