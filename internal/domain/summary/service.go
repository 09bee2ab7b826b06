package summary

import "context"

// SummaryService builds monthly summaries and their CSV exports
type SummaryService interface {
	// GetMonthlySummary aggregates one payroll period of the caller's tenant
	GetMonthlySummary(ctx context.Context, req MonthlySummaryRequest) (MonthlySummary, error)

	// ExportCSV renders a monthly summary as a general or payroll CSV file
	ExportCSV(ctx context.Context, req ExportRequest) (ExportFile, error)

	// ListPeriods returns the most recent payroll periods for pickers
	ListPeriods(ctx context.Context, count int) (PeriodListResponse, error)

	// RefreshCurrentPeriod recomputes the cached summary of the current period for every tenant
	RefreshCurrentPeriod(ctx context.Context) error

	// InvalidateDate drops the cached summary of the period containing date
	InvalidateDate(ctx context.Context, tenantID string, date string) error
}
