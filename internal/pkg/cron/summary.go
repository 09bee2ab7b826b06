package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/kintai-works/kintai-backend-go/internal/domain/summary"
)

type SummaryJobs struct {
	summaryService summary.SummaryService
}

func NewSummaryJobs(summaryService summary.SummaryService) *SummaryJobs {
	return &SummaryJobs{summaryService: summaryService}
}

func (j *SummaryJobs) RegisterJobs(scheduler *Scheduler, refreshSpec string) error {
	return scheduler.AddJob("refresh_monthly_summaries", refreshSpec, j.RefreshMonthlySummaries)
}

// RefreshMonthlySummaries recomputes the cached summary of the current payroll
// period for every tenant.
func (j *SummaryJobs) RefreshMonthlySummaries(ctx context.Context) error {
	start := time.Now()
	slog.Info("Cron: Starting monthly summary refresh job")

	if err := j.summaryService.RefreshCurrentPeriod(ctx); err != nil {
		return err
	}

	slog.Info("Cron: Monthly summary refresh completed", "duration", time.Since(start))
	return nil
}
