package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kintai-works/kintai-backend-go/internal/domain/attendance"
	"github.com/kintai-works/kintai-backend-go/internal/domain/summary"
	"github.com/kintai-works/kintai-backend-go/internal/domain/user"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/clock"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/jwt"
)

const (
	defaultPeriodCount = 12
	maxPeriodCount     = 36

	csvContentType = "text/csv; charset=utf-8"
)

type SummaryServiceImpl struct {
	attendanceRepo attendance.AttendanceRepository
	userRepo       user.UserRepository
	codeRepo       user.EmployeeCodeRepository
	cacheRepo      summary.SummaryCacheRepository
	loc            *time.Location
	cacheTTL       time.Duration
	now            func() time.Time
}

func NewSummaryService(
	attendanceRepo attendance.AttendanceRepository,
	userRepo user.UserRepository,
	codeRepo user.EmployeeCodeRepository,
	cacheRepo summary.SummaryCacheRepository,
	loc *time.Location,
	cacheTTL time.Duration,
) summary.SummaryService {
	if loc == nil {
		loc = time.UTC
	}
	return &SummaryServiceImpl{
		attendanceRepo: attendanceRepo,
		userRepo:       userRepo,
		codeRepo:       codeRepo,
		cacheRepo:      cacheRepo,
		loc:            loc,
		cacheTTL:       cacheTTL,
		now:            time.Now,
	}
}

// GetMonthlySummary implements summary.SummaryService.
func (s *SummaryServiceImpl) GetMonthlySummary(ctx context.Context, req summary.MonthlySummaryRequest) (summary.MonthlySummary, error) {
	if err := req.Validate(); err != nil {
		return summary.MonthlySummary{}, err
	}

	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return summary.MonthlySummary{}, err
	}

	return s.monthlySummary(ctx, claims.TenantID, req)
}

// ExportCSV implements summary.SummaryService.
func (s *SummaryServiceImpl) ExportCSV(ctx context.Context, req summary.ExportRequest) (summary.ExportFile, error) {
	if err := req.Validate(); err != nil {
		return summary.ExportFile{}, err
	}

	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return summary.ExportFile{}, err
	}

	result, err := s.monthlySummary(ctx, claims.TenantID, req.MonthlySummaryRequest)
	if err != nil {
		return summary.ExportFile{}, err
	}

	var (
		data     []byte
		fileName string
	)
	switch req.Format {
	case summary.FormatPayroll:
		codes, err := s.codeRepo.ListCodes(ctx, claims.TenantID)
		if err != nil {
			return summary.ExportFile{}, fmt.Errorf("failed to list employee codes: %w", err)
		}
		data, err = PayrollCSV(result.Employees, codes)
		if err != nil {
			return summary.ExportFile{}, err
		}
		fileName = fmt.Sprintf("payroll_%s.csv", result.Period.YearMonth)
	default:
		data, err = GeneralCSV(result.Employees)
		if err != nil {
			return summary.ExportFile{}, err
		}
		fileName = fmt.Sprintf("monthly_summary_%s.csv", result.Period.YearMonth)
	}

	return summary.ExportFile{
		FileName:    fileName,
		ContentType: csvContentType,
		Data:        data,
	}, nil
}

// ListPeriods implements summary.SummaryService.
func (s *SummaryServiceImpl) ListPeriods(ctx context.Context, count int) (summary.PeriodListResponse, error) {
	if count <= 0 {
		count = defaultPeriodCount
	}
	if count > maxPeriodCount {
		count = maxPeriodCount
	}

	today := s.now().In(s.loc)
	return summary.PeriodListResponse{
		Current: CurrentPeriod(today),
		Periods: RecentPeriods(today, count),
	}, nil
}

// RefreshCurrentPeriod implements summary.SummaryService. A failing tenant
// does not stop the others; the errors are joined.
func (s *SummaryServiceImpl) RefreshCurrentPeriod(ctx context.Context) error {
	tenantIDs, err := s.userRepo.ListTenantIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	period := PeriodFor(s.now().In(s.loc))

	var errs []error
	for _, tenantID := range tenantIDs {
		if err := ctx.Err(); err != nil {
			return err
		}

		generation, err := s.cacheRepo.Generation(ctx, tenantID, period.YearMonth)
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: failed to read summary cache generation: %w", tenantID, err))
			continue
		}
		result, err := s.compute(ctx, tenantID, period, Filter{})
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
			continue
		}
		if err := s.store(ctx, tenantID, generation, result); err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: failed to store summary: %w", tenantID, err))
			continue
		}
		slog.Info("monthly summary refreshed", "tenant_id", tenantID, "period", period.YearMonth, "employees", len(result.Employees))
	}
	return errors.Join(errs...)
}

// InvalidateDate implements summary.SummaryService and attendance.SummaryInvalidator.
func (s *SummaryServiceImpl) InvalidateDate(ctx context.Context, tenantID string, date string) error {
	d, err := clock.ParseDate(date, s.loc)
	if err != nil {
		return err
	}

	if err := s.cacheRepo.Invalidate(ctx, tenantID, PeriodFor(d).YearMonth); err != nil {
		return fmt.Errorf("failed to invalidate summary cache: %w", err)
	}
	return nil
}

func (s *SummaryServiceImpl) monthlySummary(ctx context.Context, tenantID string, req summary.MonthlySummaryRequest) (summary.MonthlySummary, error) {
	period, err := s.resolvePeriod(req.Period)
	if err != nil {
		return summary.MonthlySummary{}, err
	}

	if req.IsFiltered() {
		return s.compute(ctx, tenantID, period, Filter{EmployeeID: req.EmployeeID, SiteName: req.SiteName})
	}

	cached, err := s.cacheRepo.Get(ctx, tenantID, period.YearMonth)
	switch {
	case err == nil && s.isFresh(cached):
		cached.Cached = true
		return cached, nil
	case err != nil && !errors.Is(err, summary.ErrSummaryCacheMiss):
		slog.Warn("failed to read summary cache", "tenant_id", tenantID, "period", period.YearMonth, "error", err)
	}

	generation, genErr := s.cacheRepo.Generation(ctx, tenantID, period.YearMonth)

	result, err := s.compute(ctx, tenantID, period, Filter{})
	if err != nil {
		return summary.MonthlySummary{}, err
	}

	if genErr != nil {
		slog.Warn("failed to read summary cache generation", "tenant_id", tenantID, "period", period.YearMonth, "error", genErr)
		return result, nil
	}
	if err := s.store(ctx, tenantID, generation, result); err != nil {
		slog.Warn("failed to store summary cache", "tenant_id", tenantID, "period", period.YearMonth, "error", err)
	}
	return result, nil
}

// store caches result unless the period was invalidated after generation was
// read, in which case result may predate the change and is dropped.
func (s *SummaryServiceImpl) store(ctx context.Context, tenantID string, generation int64, result summary.MonthlySummary) error {
	err := s.cacheRepo.Put(ctx, tenantID, generation, result)
	if errors.Is(err, summary.ErrSummaryCacheStale) {
		slog.Debug("records changed while computing summary, not cached", "tenant_id", tenantID, "period", result.Period.YearMonth)
		return nil
	}
	return err
}

// compute aggregates the records of one period. The site filter narrows the
// records before grouping and the employee filter picks rows afterwards, so
// ExcludedRecords always reflects the whole site selection.
func (s *SummaryServiceImpl) compute(ctx context.Context, tenantID string, period summary.Period, filter Filter) (summary.MonthlySummary, error) {
	records, err := s.attendanceRepo.QueryByDateRange(ctx, tenantID, period.StartDate, period.EndDate)
	if err != nil {
		return summary.MonthlySummary{}, fmt.Errorf("failed to query attendance records: %w", err)
	}

	directory, err := s.userRepo.ListProfiles(ctx, tenantID)
	if err != nil {
		return summary.MonthlySummary{}, fmt.Errorf("failed to list user profiles: %w", err)
	}

	records = Filter{SiteName: filter.SiteName}.Apply(records)
	result := Aggregate(records, directory)

	if result.ExcludedRecords > 0 {
		slog.Warn("attendance records without user id excluded from summary",
			"tenant_id", tenantID,
			"period", period.YearMonth,
			"excluded", result.ExcludedRecords,
		)
	}

	employees := result.Summaries
	if filter.EmployeeID != "" {
		employees = make([]summary.EmployeeMonthlySummary, 0, 1)
		for _, e := range result.Summaries {
			if e.UserID == filter.EmployeeID {
				employees = append(employees, e)
			}
		}
	}

	return summary.MonthlySummary{
		Period:          period,
		GeneratedAt:     s.now().UTC(),
		Employees:       employees,
		ExcludedRecords: result.ExcludedRecords,
	}, nil
}

func (s *SummaryServiceImpl) resolvePeriod(yearMonth string) (summary.Period, error) {
	if yearMonth == "" {
		return PeriodFor(s.now().In(s.loc)), nil
	}
	return ParsePeriod(yearMonth)
}

// isFresh reports whether a cached summary is still within the TTL. A zero
// TTL keeps entries until they are invalidated.
func (s *SummaryServiceImpl) isFresh(cached summary.MonthlySummary) bool {
	if s.cacheTTL <= 0 {
		return true
	}
	return s.now().Sub(cached.GeneratedAt) < s.cacheTTL
}
