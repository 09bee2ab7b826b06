package summary

import "errors"

var (
	ErrInvalidPeriod    = errors.New("period must be in YYYY-MM format")
	ErrInvalidFormat    = errors.New("export format must be general or payroll")
	ErrNothingToExport  = errors.New("no data to export")
	ErrSummaryCacheMiss = errors.New("summary cache entry not found")

	// ErrSummaryCacheStale means the records changed while the summary was computed
	ErrSummaryCacheStale = errors.New("summary cache generation changed")
)
