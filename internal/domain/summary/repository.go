package summary

import "context"

// SummaryCacheRepository persists computed monthly summaries per tenant and period.
type SummaryCacheRepository interface {
	// Get returns ErrSummaryCacheMiss when nothing is stored
	Get(ctx context.Context, tenantID string, yearMonth string) (MonthlySummary, error)

	// Generation returns the invalidation counter of a period, 0 when never invalidated.
	// Read it before the records a summary is computed from.
	Generation(ctx context.Context, tenantID string, yearMonth string) (int64, error)

	// Put stores s only while generation is still current and returns
	// ErrSummaryCacheStale otherwise
	Put(ctx context.Context, tenantID string, generation int64, s MonthlySummary) error

	// Invalidate drops the stored summary and advances the generation
	Invalidate(ctx context.Context, tenantID string, yearMonth string) error
}
