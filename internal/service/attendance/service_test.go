package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/kintai-works/kintai-backend-go/internal/domain/attendance"
	"github.com/kintai-works/kintai-backend-go/internal/domain/user"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/jwt"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== FAKES =====

type fakeAttendanceRepo struct {
	mu      sync.Mutex
	seq     int
	records map[string]attendance.Attendance
	clock   time.Time
	// staleOnUpdate makes the next Update behave as if another writer got there first
	staleOnUpdate bool
	// beforeClassify runs ahead of UpdateClassification, standing in for a concurrent writer
	beforeClassify func()
	// hideOpen makes FindOpenAtSite miss, as when two clock-ins check at the same moment
	hideOpen bool
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{
		records: make(map[string]attendance.Attendance),
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeAttendanceRepo) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeAttendanceRepo) Create(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.IsOpen() {
		for _, other := range f.records {
			if other.TenantID == a.TenantID && other.UserID == a.UserID && other.SiteName == a.SiteName && other.IsOpen() {
				return attendance.Attendance{}, attendance.ErrAlreadyWorkingAtSite
			}
		}
	}
	f.seq++
	a.ID = fmt.Sprintf("att-%d", f.seq)
	a.CreatedAt = f.tick()
	a.UpdatedAt = a.CreatedAt
	f.records[a.ID] = a
	return a, nil
}

func (f *fakeAttendanceRepo) GetByID(ctx context.Context, tenantID string, id string) (attendance.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.records[id]
	if !ok || a.TenantID != tenantID {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	return a, nil
}

func (f *fakeAttendanceRepo) Update(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.records[a.ID]
	if !ok || stored.TenantID != a.TenantID {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	if f.staleOnUpdate || !stored.UpdatedAt.Equal(a.UpdatedAt) {
		f.staleOnUpdate = false
		return attendance.Attendance{}, attendance.ErrConcurrentModification
	}
	a.UpdatedAt = f.tick()
	f.records[a.ID] = a
	return a, nil
}

func (f *fakeAttendanceRepo) UpdateClassification(ctx context.Context, tenantID string, id string, patch attendance.ClassificationPatch) error {
	if hook := f.beforeClassify; hook != nil {
		f.beforeClassify = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.records[id]
	if !ok || a.TenantID != tenantID {
		return attendance.ErrAttendanceNotFound
	}
	if !a.UpdatedAt.Equal(patch.UpdatedAt) || !a.IsOpen() {
		return attendance.ErrConcurrentModification
	}
	end := patch.EndTime
	a.EndTime = &end
	a.Status = patch.Status
	a.BreakMinutes = patch.BreakMinutes
	a.Apply(patch.Classification)
	a.UpdatedAt = f.tick()
	f.records[id] = a
	return nil
}

func (f *fakeAttendanceRepo) QueryByDateRange(ctx context.Context, tenantID string, startDate string, endDate string) ([]attendance.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []attendance.Attendance
	for _, a := range f.records {
		if a.TenantID == tenantID && a.Date >= startDate && a.Date <= endDate {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttendanceRepo) List(ctx context.Context, tenantID string, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []attendance.Attendance
	for _, a := range f.records {
		if a.TenantID != tenantID {
			continue
		}
		if filter.UserID != nil && a.UserID != *filter.UserID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeAttendanceRepo) FindOpenAtSite(ctx context.Context, tenantID string, userID string, siteName string) (*attendance.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideOpen {
		return nil, nil
	}
	for _, a := range f.records {
		if a.TenantID == tenantID && a.UserID == userID && a.SiteName == siteName && a.IsOpen() {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeAttendanceRepo) LastCompletedAtSite(ctx context.Context, tenantID string, userID string, siteName string) (*attendance.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *attendance.Attendance
	for _, a := range f.records {
		if a.TenantID != tenantID || a.UserID != userID || a.SiteName != siteName || a.Status != attendance.StatusCompleted {
			continue
		}
		if last == nil || a.UpdatedAt.After(last.UpdatedAt) {
			found := a
			last = &found
		}
	}
	return last, nil
}

type fakeBreakRepo struct {
	seq    int
	breaks map[string]attendance.Break
}

func newFakeBreakRepo() *fakeBreakRepo {
	return &fakeBreakRepo{breaks: make(map[string]attendance.Break)}
}

func (f *fakeBreakRepo) CreateBreak(ctx context.Context, b attendance.Break) (attendance.Break, error) {
	f.seq++
	b.ID = fmt.Sprintf("brk-%d", f.seq)
	f.breaks[b.ID] = b
	return b, nil
}

func (f *fakeBreakRepo) GetActiveBreak(ctx context.Context, tenantID string, attendanceID string) (*attendance.Break, error) {
	for _, b := range f.breaks {
		if b.TenantID == tenantID && b.AttendanceID == attendanceID && b.EndTime == nil {
			found := b
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeBreakRepo) CloseBreak(ctx context.Context, tenantID string, breakID string, endTime string) error {
	b, ok := f.breaks[breakID]
	if !ok {
		return fmt.Errorf("break %s not found", breakID)
	}
	b.EndTime = &endTime
	f.breaks[breakID] = b
	return nil
}

type fakeUserRepo struct {
	users map[string]user.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, tenantID string, id string) (user.User, error) {
	u, ok := f.users[id]
	if !ok || u.TenantID != tenantID {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) ListProfiles(ctx context.Context, tenantID string) (user.Directory, error) {
	dir := make(user.Directory)
	for _, u := range f.users {
		if u.TenantID == tenantID {
			dir[u.ID] = user.Profile{UserID: u.ID, DisplayName: u.DisplayName, Email: u.Email}
		}
	}
	return dir, nil
}

func (f *fakeUserRepo) ListTenantIDs(ctx context.Context) ([]string, error) {
	return []string{"tenant-1"}, nil
}

type fakeInvalidator struct {
	dates []string
}

func (f *fakeInvalidator) InvalidateDate(ctx context.Context, tenantID string, date string) error {
	f.dates = append(f.dates, date)
	return nil
}

type noopTransactor struct{}

func (noopTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ===== HELPERS =====

type testEnv struct {
	svc         *AttendanceServiceImpl
	repo        *fakeAttendanceRepo
	breaks      *fakeBreakRepo
	invalidator *fakeInvalidator
	now         time.Time
	jwt         jwt.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	env := &testEnv{
		repo:        newFakeAttendanceRepo(),
		breaks:      newFakeBreakRepo(),
		invalidator: &fakeInvalidator{},
		now:         time.Date(2024, 1, 8, 9, 0, 0, 0, loc), // Monday
		jwt:         jwt.NewJWTService("test-secret", "1h"),
	}
	users := &fakeUserRepo{users: map[string]user.User{
		"emp-1": {ID: "emp-1", TenantID: "tenant-1", DisplayName: "山田太郎", Email: "yamada@example.com", Role: user.RoleEmployee},
		"emp-2": {ID: "emp-2", TenantID: "tenant-1", DisplayName: "佐藤花子", Email: "sato@example.com", Role: user.RoleEmployee},
	}}

	svc := NewAttendanceService(noopTransactor{}, env.repo, env.breaks, users, env.invalidator, NewWorkTimeClassifier(loc), loc)
	env.svc = svc.(*AttendanceServiceImpl)
	env.svc.now = func() time.Time { return env.now }
	return env
}

func (e *testEnv) ctxFor(t *testing.T, userID string, role user.Role) context.Context {
	t.Helper()
	tokenString, _, err := e.jwt.GenerateAccessToken(userID, userID+"@example.com", "tenant-1", role)
	require.NoError(t, err)
	token, err := jwtauth.VerifyToken(e.jwt.JWTAuth(), tokenString)
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

// ===== CLOCK IN / OUT =====

func TestClockIn_CreatesWorkingRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctxFor(t, "emp-1", user.RoleEmployee)

	res, err := env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: " 渋谷現場 ", Notes: "early"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "emp-1", res.UserID)
	assert.Equal(t, "渋谷現場", res.SiteName)
	assert.Equal(t, "2024-01-08", res.Date)
	require.NotNil(t, res.StartTime)
	assert.Equal(t, "09:00:00", *res.StartTime)
	assert.Nil(t, res.EndTime)
	assert.Equal(t, string(attendance.StatusWorking), res.Status)
}

func TestClockIn_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctxFor(t, "emp-1", user.RoleEmployee)

	_, err := env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "  "})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "site_name")
}

func TestClockIn_AlreadyWorkingAtSite(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctxFor(t, "emp-1", user.RoleEmployee)

	_, err := env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷"})
	require.NoError(t, err)

	_, err = env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷"})
	assert.ErrorIs(t, err, attendance.ErrAlreadyWorkingAtSite)

	// a different site is fine
	_, err = env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "新宿"})
	assert.NoError(t, err)
}

func TestClockIn_SimultaneousClockInRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctxFor(t, "emp-1", user.RoleEmployee)

	_, err := env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷"})
	require.NoError(t, err)

	// the open-shift lookup misses, so the insert itself has to refuse the second shift
	env.repo.hideOpen = true
	_, err = env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷"})
	assert.ErrorIs(t, err, attendance.ErrAlreadyWorkingAtSite)

	records, total, err := env.repo.List(context.Background(), "tenant-1", attendance.AttendanceFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, records, 1)
}

func TestClockIn_RecentClockOutNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctxFor(t, "emp-1", user.RoleEmployee)

	first, err := env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷"})
	require.NoError(t, err)
	env.advance(2 * time.Hour)
	_, err = env.svc.ClockOut(ctx, first.ID)
	require.NoError(t, err)

	env.advance(30 * time.Minute)
	_, err = env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷"})
	assert.ErrorIs(t, err, attendance.ErrRecentClockOut)

	_, err = env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷", ConfirmReclockIn: true})
	assert.NoError(t, err)
}

func TestClockIn_AfterWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctxFor(t, "emp-1", user.RoleEmployee)

	first, err := env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷"})
	require.NoError(t, err)
	env.advance(time.Hour)
	_, err = env.svc.ClockOut(ctx, first.ID)
	require.NoError(t, err)

	env.advance(61 * time.Minute)
	_, err = env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷"})
	assert.NoError(t, err)
}

func TestClockOut_ClassifiesAndInvalidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctxFor(t, "emp-1", user.RoleEmployee)

	in, err := env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷"})
	require.NoError(t, err)

	env.advance(3 * time.Hour) // 12:00
	_, err = env.svc.StartBreak(ctx, in.ID)
	require.NoError(t, err)

	env.advance(time.Hour) // 13:00
	afterBreak, err := env.svc.EndBreak(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, afterBreak.BreakMinutes)
	assert.Equal(t, string(attendance.StatusWorking), afterBreak.Status)

	env.advance(5*time.Hour + 30*time.Minute) // 18:30
	out, err := env.svc.ClockOut(ctx, in.ID)
	require.NoError(t, err)

	require.NotNil(t, out.EndTime)
	assert.Equal(t, "18:30:00", *out.EndTime)
	assert.Equal(t, string(attendance.StatusCompleted), out.Status)
	assert.Equal(t, 510, out.WorkingMinutes)
	assert.Equal(t, 30, out.OvertimeMinutes)
	assert.Equal(t, string(attendance.WorkTypeOvertime), out.SpecialWorkType)
	assert.Equal(t, []string{"2024-01-08"}, env.invalidator.dates)

	stored, err := env.repo.GetByID(context.Background(), "tenant-1", in.ID)
	require.NoError(t, err)
	assert.Equal(t, 510, stored.WorkingMinutes)
	assert.Equal(t, attendance.StatusCompleted, stored.Status)
}

func TestClockOut_ClosesActiveBreak(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctxFor(t, "emp-1", user.RoleEmployee)

	in, err := env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷"})
	require.NoError(t, err)
	env.advance(4 * time.Hour)
	_, err = env.svc.StartBreak(ctx, in.ID)
	require.NoError(t, err)
	env.advance(45 * time.Minute)

	out, err := env.svc.ClockOut(ctx, in.ID)
	require.NoError(t, err)

	assert.Equal(t, 45, out.BreakMinutes)
	assert.Equal(t, 240, out.WorkingMinutes)

	active, err := env.breaks.GetActiveBreak(context.Background(), "tenant-1", in.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestClockOut_ZeroLengthBreak(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctxFor(t, "emp-1", user.RoleEmployee)

	in, err := env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷"})
	require.NoError(t, err)

	env.advance(3 * time.Hour) // 12:00
	_, err = env.svc.StartBreak(ctx, in.ID)
	require.NoError(t, err)

	afterBreak, err := env.svc.EndBreak(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, afterBreak.BreakMinutes)

	env.advance(5 * time.Hour) // 17:00
	out, err := env.svc.ClockOut(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, out.BreakMinutes)
	assert.Equal(t, 480, out.WorkingMinutes)
	assert.Equal(t, 0, out.OvertimeMinutes)
}

func TestClockOut_ZeroLengthBreakAtClockOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctxFor(t, "emp-1", user.RoleEmployee)

	in, err := env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷"})
	require.NoError(t, err)

	env.advance(8 * time.Hour) // 17:00
	_, err = env.svc.StartBreak(ctx, in.ID)
	require.NoError(t, err)

	out, err := env.svc.ClockOut(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, out.BreakMinutes)
	assert.Equal(t, 480, out.WorkingMinutes)
}

func TestClockOut_ConcurrentWriteWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctxFor(t, "emp-1", user.RoleEmployee)

	in, err := env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷"})
	require.NoError(t, err)
	env.advance(4 * time.Hour) // 13:00

	// another device clocks the same shift out at 12:30 while this request is classifying
	env.repo.beforeClassify = func() {
		other, err := env.repo.GetByID(context.Background(), "tenant-1", in.ID)
		require.NoError(t, err)
		end := "12:30:00"
		other.EndTime = &end
		other.Status = attendance.StatusCompleted
		other.WorkingMinutes = 210
		_, err = env.repo.Update(context.Background(), other)
		require.NoError(t, err)
	}

	_, err = env.svc.ClockOut(ctx, in.ID)
	assert.ErrorIs(t, err, attendance.ErrConcurrentModification)
	assert.Empty(t, env.invalidator.dates)

	stored, err := env.repo.GetByID(context.Background(), "tenant-1", in.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.EndTime)
	assert.Equal(t, "12:30:00", *stored.EndTime)
	assert.Equal(t, 210, stored.WorkingMinutes)

	_, err = env.svc.ClockOut(ctx, in.ID)
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedOut)
}

func TestClockOut_Overnight(t *testing.T) {
	env := newTestEnv(t)
	env.now = time.Date(2024, 1, 8, 23, 0, 0, 0, env.svc.loc)
	ctx := env.ctxFor(t, "emp-1", user.RoleEmployee)

	in, err := env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "倉庫"})
	require.NoError(t, err)
	env.advance(7 * time.Hour)

	out, err := env.svc.ClockOut(ctx, in.ID)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-08", out.Date)
	assert.Equal(t, 420, out.WorkingMinutes)
	assert.Equal(t, string(attendance.NightWorkNightOnly), out.NightWorkType)
	assert.True(t, out.IsNightWork)
}

func TestClockOut_Errors(t *testing.T) {
	env := newTestEnv(t)
	owner := env.ctxFor(t, "emp-1", user.RoleEmployee)
	other := env.ctxFor(t, "emp-2", user.RoleEmployee)

	in, err := env.svc.ClockIn(owner, attendance.ClockInRequest{SiteName: "渋谷"})
	require.NoError(t, err)

	_, err = env.svc.ClockOut(other, in.ID)
	assert.ErrorIs(t, err, attendance.ErrNotRecordOwner)

	_, err = env.svc.ClockOut(owner, "missing")
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)

	env.advance(time.Hour)
	_, err = env.svc.ClockOut(owner, in.ID)
	require.NoError(t, err)

	_, err = env.svc.ClockOut(owner, in.ID)
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedOut)

	_, err = env.svc.StartBreak(owner, in.ID)
	assert.ErrorIs(t, err, attendance.ErrShiftNotOpen)
}

func TestBreaks_StateErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctxFor(t, "emp-1", user.RoleEmployee)

	in, err := env.svc.ClockIn(ctx, attendance.ClockInRequest{SiteName: "渋谷"})
	require.NoError(t, err)

	_, err = env.svc.EndBreak(ctx, in.ID)
	assert.ErrorIs(t, err, attendance.ErrNotOnBreak)

	_, err = env.svc.StartBreak(ctx, in.ID)
	require.NoError(t, err)

	_, err = env.svc.StartBreak(ctx, in.ID)
	assert.ErrorIs(t, err, attendance.ErrAlreadyOnBreak)
}

// ===== ADMIN ENTRY AND EDITS =====

func TestCreateRecord_Leave(t *testing.T) {
	env := newTestEnv(t)
	admin := env.ctxFor(t, "admin-1", user.RoleAdmin)

	res, err := env.svc.CreateRecord(admin, attendance.CreateRecordRequest{
		UserID:          "emp-1",
		Date:            "2024-01-09",
		SpecialWorkType: string(attendance.WorkTypePaidLeave),
	})
	require.NoError(t, err)

	assert.Equal(t, string(attendance.WorkTypePaidLeave), res.SpecialWorkType)
	assert.Zero(t, res.WorkingMinutes)
	assert.Equal(t, string(attendance.StatusCompleted), res.Status)
	assert.Equal(t, []string{"2024-01-09"}, env.invalidator.dates)
}

func TestCreateRecord_FixedTimes(t *testing.T) {
	env := newTestEnv(t)
	admin := env.ctxFor(t, "admin-1", user.RoleAdmin)
	start, end := "08:00", "17:00"

	res, err := env.svc.CreateRecord(admin, attendance.CreateRecordRequest{
		UserID:       "emp-2",
		SiteName:     "本社",
		Date:         "2024-01-06",
		StartTime:    &start,
		EndTime:      &end,
		BreakMinutes: 60,
	})
	require.NoError(t, err)

	assert.Equal(t, 480, res.WorkingMinutes)
	assert.True(t, res.IsHolidayWork)
	assert.Equal(t, string(attendance.WorkTypeHolidayWork), res.SpecialWorkType)
}

func TestCreateRecord_Errors(t *testing.T) {
	env := newTestEnv(t)
	admin := env.ctxFor(t, "admin-1", user.RoleAdmin)

	_, err := env.svc.CreateRecord(admin, attendance.CreateRecordRequest{UserID: "emp-1", SiteName: "本社", Date: "2024-01-09"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "start_time")
	assert.Contains(t, verrs.ToMap(), "end_time")

	_, err = env.svc.CreateRecord(admin, attendance.CreateRecordRequest{UserID: "ghost", Date: "2024-01-09", SpecialWorkType: "absence"})
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	negative := attendance.CreateRecordRequest{UserID: "emp-1", Date: "2024-01-09", SpecialWorkType: "absence", BreakMinutes: -5}
	_, err = env.svc.CreateRecord(admin, negative)
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "break_minutes")
}

func TestUpdateAttendance_ReclassifiesAndRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	employee := env.ctxFor(t, "emp-1", user.RoleEmployee)
	admin := env.ctxFor(t, "admin-1", user.RoleAdmin)

	in, err := env.svc.ClockIn(employee, attendance.ClockInRequest{SiteName: "渋谷"})
	require.NoError(t, err)
	env.advance(9 * time.Hour)
	_, err = env.svc.ClockOut(employee, in.ID)
	require.NoError(t, err)

	newEnd := "22:30"
	breakMinutes := 60
	res, err := env.svc.UpdateAttendance(admin, attendance.UpdateAttendanceRequest{
		ID:           in.ID,
		EndTime:      &newEnd,
		BreakMinutes: &breakMinutes,
		Reason:       "forgot to clock out",
	})
	require.NoError(t, err)

	require.NotNil(t, res.EndTime)
	assert.Equal(t, "22:30:00", *res.EndTime)
	assert.Equal(t, 750, res.WorkingMinutes)
	assert.Equal(t, 270, res.OvertimeMinutes)
	assert.Equal(t, string(attendance.NightWorkThroughNight), res.NightWorkType)
	assert.Equal(t, string(attendance.WorkTypeThroughNight), res.SpecialWorkType)

	require.Len(t, res.EditHistory, 1)
	entry := res.EditHistory[0]
	assert.Equal(t, "admin-1", entry.EditedBy)
	assert.Equal(t, "forgot to clock out", entry.Reason)
	assert.Contains(t, entry.Changes, "end_time")
	assert.Contains(t, entry.Changes, "break_minutes")
	assert.Equal(t, "22:30", entry.Changes["end_time"].To)
}

func TestUpdateAttendance_ToLeaveAndDateMove(t *testing.T) {
	env := newTestEnv(t)
	admin := env.ctxFor(t, "admin-1", user.RoleAdmin)
	start, end := "09:00:00", "18:00:00"

	created, err := env.svc.CreateRecord(admin, attendance.CreateRecordRequest{
		UserID: "emp-1", SiteName: "本社", Date: "2024-01-19", StartTime: &start, EndTime: &end, BreakMinutes: 60,
	})
	require.NoError(t, err)
	env.invalidator.dates = nil

	kind := string(attendance.WorkTypeAbsence)
	date := "2024-01-22"
	res, err := env.svc.UpdateAttendance(admin, attendance.UpdateAttendanceRequest{
		ID: created.ID, SpecialWorkType: &kind, Date: &date, Reason: "was absent",
	})
	require.NoError(t, err)

	assert.Equal(t, string(attendance.WorkTypeAbsence), res.SpecialWorkType)
	assert.Zero(t, res.WorkingMinutes)
	assert.False(t, res.IsHolidayWork)
	// both the old and the new period are affected
	assert.Equal(t, []string{"2024-01-19", "2024-01-22"}, env.invalidator.dates)
}

func TestUpdateAttendance_Errors(t *testing.T) {
	env := newTestEnv(t)
	admin := env.ctxFor(t, "admin-1", user.RoleAdmin)
	start, end := "09:00:00", "18:00:00"

	created, err := env.svc.CreateRecord(admin, attendance.CreateRecordRequest{
		UserID: "emp-1", SiteName: "本社", Date: "2024-01-09", StartTime: &start, EndTime: &end,
	})
	require.NoError(t, err)

	notes := "fixed"
	_, err = env.svc.UpdateAttendance(admin, attendance.UpdateAttendanceRequest{ID: created.ID, Notes: &notes})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "reason")

	_, err = env.svc.UpdateAttendance(admin, attendance.UpdateAttendanceRequest{ID: created.ID, Reason: "nothing"})
	require.ErrorAs(t, err, &verrs)

	_, err = env.svc.UpdateAttendance(admin, attendance.UpdateAttendanceRequest{ID: "missing", Notes: &notes, Reason: "x"})
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)

	env.repo.staleOnUpdate = true
	_, err = env.svc.UpdateAttendance(admin, attendance.UpdateAttendanceRequest{ID: created.ID, Notes: &notes, Reason: "x"})
	assert.ErrorIs(t, err, attendance.ErrConcurrentModification)
}

// ===== QUERIES =====

func TestGetMyAttendance_OnlyOwnRecords(t *testing.T) {
	env := newTestEnv(t)
	emp1 := env.ctxFor(t, "emp-1", user.RoleEmployee)
	emp2 := env.ctxFor(t, "emp-2", user.RoleEmployee)

	_, err := env.svc.ClockIn(emp1, attendance.ClockInRequest{SiteName: "渋谷"})
	require.NoError(t, err)
	_, err = env.svc.ClockIn(emp2, attendance.ClockInRequest{SiteName: "渋谷"})
	require.NoError(t, err)

	other := "emp-2"
	res, err := env.svc.GetMyAttendance(emp1, attendance.AttendanceFilter{UserID: &other})
	require.NoError(t, err)

	require.Len(t, res.Attendances, 1)
	assert.Equal(t, "emp-1", res.Attendances[0].UserID)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 20, res.Limit)
	assert.Equal(t, "1-1 of 1", res.Showing)

	all, err := env.svc.ListAttendance(emp1, attendance.AttendanceFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.TotalCount)
}

func TestListAttendance_InvalidFilter(t *testing.T) {
	env := newTestEnv(t)
	admin := env.ctxFor(t, "admin-1", user.RoleAdmin)

	status := "present"
	_, err := env.svc.ListAttendance(admin, attendance.AttendanceFilter{Status: &status, Limit: 500})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "status")
	assert.Contains(t, verrs.ToMap(), "limit")
}

func TestGetAttendance(t *testing.T) {
	env := newTestEnv(t)
	admin := env.ctxFor(t, "admin-1", user.RoleAdmin)

	_, err := env.svc.GetAttendance(admin, "missing")
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)

	_, err = env.svc.GetAttendance(context.Background(), "missing")
	assert.Error(t, err)
}
