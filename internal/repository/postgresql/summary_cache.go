package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kintai-works/kintai-backend-go/internal/domain/summary"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/database"
)

type summaryCacheRepository struct {
	db *database.DB
}

// Get implements summary.SummaryCacheRepository.
func (r *summaryCacheRepository) Get(ctx context.Context, tenantID string, yearMonth string) (summary.MonthlySummary, error) {
	q := GetQuerier(ctx, r.db)

	var s summary.MonthlySummary
	err := q.QueryRow(ctx,
		`SELECT payload FROM monthly_summary_cache
		WHERE tenant_id = $1 AND year_month = $2 AND payload IS NOT NULL`,
		tenantID, yearMonth,
	).Scan(&s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return summary.MonthlySummary{}, summary.ErrSummaryCacheMiss
		}
		return summary.MonthlySummary{}, fmt.Errorf("failed to get cached summary: %w", err)
	}

	return s, nil
}

// Generation implements summary.SummaryCacheRepository.
func (r *summaryCacheRepository) Generation(ctx context.Context, tenantID string, yearMonth string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	var generation int64
	err := q.QueryRow(ctx,
		`SELECT generation FROM monthly_summary_cache WHERE tenant_id = $1 AND year_month = $2`,
		tenantID, yearMonth,
	).Scan(&generation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get summary cache generation: %w", err)
	}

	return generation, nil
}

// Put implements summary.SummaryCacheRepository.
func (r *summaryCacheRepository) Put(ctx context.Context, tenantID string, generation int64, s summary.MonthlySummary) error {
	q := GetQuerier(ctx, r.db)

	s.Cached = false
	query := `
		INSERT INTO monthly_summary_cache (tenant_id, year_month, generation, payload, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, year_month)
		DO UPDATE SET payload = EXCLUDED.payload, generated_at = EXCLUDED.generated_at
		WHERE monthly_summary_cache.generation = EXCLUDED.generation
	`
	tag, err := q.Exec(ctx, query, tenantID, s.Period.YearMonth, generation, s, s.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to store cached summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return summary.ErrSummaryCacheStale
	}

	return nil
}

// Invalidate implements summary.SummaryCacheRepository.
func (r *summaryCacheRepository) Invalidate(ctx context.Context, tenantID string, yearMonth string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO monthly_summary_cache (tenant_id, year_month, generation)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, year_month)
		DO UPDATE SET generation = monthly_summary_cache.generation + 1, payload = NULL, generated_at = NULL
	`
	if _, err := q.Exec(ctx, query, tenantID, yearMonth); err != nil {
		return fmt.Errorf("failed to invalidate cached summary: %w", err)
	}

	return nil
}

func NewSummaryCacheRepository(db *database.DB) summary.SummaryCacheRepository {
	return &summaryCacheRepository{db: db}
}
