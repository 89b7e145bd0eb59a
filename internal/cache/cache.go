package cache

import (
	"context"
	"time"

	"dominionseedstars/backend/internal/domain"
)

// SummaryCache stores the record-derived portion of a daily summary keyed by
// branch, date and record revision. Keying on the revision makes stale
// entries unreachable after any stage write, so entries never need explicit
// invalidation. Figures sourced outside the daily record (registers,
// remittance owing) are never cached.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.DailySummary, bool, error)
	Set(ctx context.Context, key string, value *domain.DailySummary, ttl time.Duration) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.DailySummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.DailySummary, _ time.Duration) error {
	return nil
}
