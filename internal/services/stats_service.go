// Package services – StatsService
//
// This file implements StatsService, which computes the per-owner cabinet
// statistics snapshot. All scalar counts are evaluated against one "now"
// captured at the start of the request, so total/expired/active cannot drift
// apart within a snapshot; consistency with the grouped-by-form query is
// read-committed, not transactional.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/avramid/go-medcab-backend/internal/cache"
	"github.com/avramid/go-medcab-backend/internal/clock"
)

// statsCacheOp is the cache operation key for statistics snapshots.
const statsCacheOp = "stats"

// StatsRepo defines the aggregate queries required by StatsService.
type StatsRepo interface {
	CountTotal(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	CountExpired(ctx context.Context, db *gorm.DB, userID string, now time.Time) (int64, error)
	CountAlerted(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	CountByForm(ctx context.Context, db *gorm.DB, userID string) (map[string]int64, error)
}

// Statistics is the derived, non-persisted snapshot returned to callers.
// Active is total minus expired by construction. ByForm omits forms with
// zero drugs; absence means zero.
type Statistics struct {
	Total      int64            `json:"total"`
	Expired    int64            `json:"expired"`
	Active     int64            `json:"active"`
	AlertsSent int64            `json:"alerts_sent"`
	ByForm     map[string]int64 `json:"by_form"`
}

// StatsService computes statistics snapshots with a short-TTL per-owner cache.
type StatsService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo supplies the aggregate queries.
	Repo StatsRepo
	// Clock supplies the expiry cutoff for the snapshot.
	Clock clock.Clock
	// Cache memoizes snapshots per owner. May be nil (every call recomputes).
	Cache *cache.Cache
}

// Snapshot returns the owner's statistics, freshly computed or from cache.
func (s *StatsService) Snapshot(ctx context.Context, userID string) (*Statistics, error) {
	tr := otel.Tracer("services/StatsService")
	ctx, span := tr.Start(ctx, "Snapshot",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	now := s.Clock.Now()

	if v, ok := s.Cache.Get(statsCacheOp, userID, now); ok {
		if st, ok := v.(*Statistics); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return st, nil
		}
	}

	total, err := s.Repo.CountTotal(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	expired, err := s.Repo.CountExpired(ctx, s.DB, userID, now)
	if err != nil {
		return nil, err
	}
	alerted, err := s.Repo.CountAlerted(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	byForm, err := s.Repo.CountByForm(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}

	st := &Statistics{
		Total:      total,
		Expired:    expired,
		Active:     total - expired,
		AlertsSent: alerted,
		ByForm:     byForm,
	}
	s.Cache.Set(statsCacheOp, userID, st, now)
	return st, nil
}
