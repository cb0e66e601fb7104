// Package services – AlertService
//
// This file implements the expiry alert sweep. One pass selects every drug
// whose expiration falls inside [now, now+horizon] and that has not been
// alerted yet, groups the rows by owner, sends one consolidated email per
// owner, and marks the included drugs alerted only after the send succeeds.
//
// Delivery semantics are at-least-once: a send failure (or timeout) leaves
// the owner's drugs unmarked so the next pass retries them; a failure for
// one owner never aborts the others. Passes never overlap — a trigger while
// a pass is running returns ErrSweepRunning.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/avramid/go-medcab-backend/internal/cache"
	"github.com/avramid/go-medcab-backend/internal/clock"
	"github.com/avramid/go-medcab-backend/internal/domain"
	"github.com/avramid/go-medcab-backend/internal/notify"
)

// AlertRepo defines the repository contract required by AlertService.
type AlertRepo interface {
	// FindDueForAlert returns unalerted drugs expiring inside the horizon,
	// owner preloaded, ordered by owner.
	FindDueForAlert(ctx context.Context, db *gorm.DB, now time.Time, horizon time.Duration) ([]domain.Drug, error)

	// MarkAlerted flags the given drugs as alerted and returns how many rows
	// changed.
	MarkAlerted(ctx context.Context, db *gorm.DB, ids []string, at time.Time) (int64, error)
}

// SweepSummary reports the outcome of one sweep pass. Partial failure is a
// normal outcome, not an error.
type SweepSummary struct {
	OwnersAttempted int   `json:"owners_attempted"`
	OwnersNotified  int   `json:"owners_notified"`
	DrugsMarked     int64 `json:"drugs_marked"`
	Failures        int   `json:"failures"`
}

// AlertService runs the expiry alert sweep.
type AlertService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo supplies selection and marking.
	Repo AlertRepo
	// Notifier delivers the per-owner email.
	Notifier notify.Notifier
	// Clock supplies the pass's single "now".
	Clock clock.Clock
	// Loc formats expiration dates in the email body.
	Loc *time.Location

	// Horizon is the forward window within which a drug counts as
	// "expiring soon".
	Horizon time.Duration
	// SendTimeout bounds each notification attempt; a timeout is a failure.
	SendTimeout time.Duration
	// Cache is invalidated for every owner whose drugs get marked. May be nil.
	Cache *cache.Cache

	// mu is the single-flight guard; Sweep refuses to overlap itself.
	mu sync.Mutex
}

// ownerGroup collects one owner's due drugs.
type ownerGroup struct {
	user  domain.User
	drugs []domain.Drug
}

// Sweep executes one pass. It returns ErrSweepRunning if another pass is in
// flight, a repository error if the selection query fails, and otherwise a
// summary — send failures are counted in the summary, never raised.
func (s *AlertService) Sweep(ctx context.Context) (*SweepSummary, error) {
	if !s.mu.TryLock() {
		return nil, ErrSweepRunning
	}
	defer s.mu.Unlock()

	tr := otel.Tracer("services/AlertService")
	ctx, span := tr.Start(ctx, "Sweep")
	defer span.End()

	now := s.Clock.Now()

	due, err := s.Repo.FindDueForAlert(ctx, s.DB, now, s.Horizon)
	if err != nil {
		return nil, err
	}

	groups := groupByOwner(due)
	summary := &SweepSummary{OwnersAttempted: len(groups)}

	for _, g := range groups {
		if err := s.notifyOwner(ctx, g, now); err != nil {
			summary.Failures++
			log.Warn().
				Err(err).
				Str("user_id", g.user.ID).
				Int("due_drugs", len(g.drugs)).
				Msg("alert sweep: owner notification failed, will retry next pass")
			continue
		}

		ids := make([]string, 0, len(g.drugs))
		for _, d := range g.drugs {
			ids = append(ids, d.ID)
		}
		marked, err := s.Repo.MarkAlerted(ctx, s.DB, ids, now)
		if err != nil {
			// Mail went out but the flags did not stick; the next pass may
			// resend. Acceptable: duplicates over missed alerts.
			summary.Failures++
			log.Error().
				Err(err).
				Str("user_id", g.user.ID).
				Msg("alert sweep: notified but failed to mark drugs")
			continue
		}

		summary.OwnersNotified++
		summary.DrugsMarked += marked
		s.Cache.InvalidateOwner(g.user.ID)
	}

	span.SetAttributes(
		attribute.Int("sweep.owners_attempted", summary.OwnersAttempted),
		attribute.Int("sweep.owners_notified", summary.OwnersNotified),
		attribute.Int64("sweep.drugs_marked", summary.DrugsMarked),
	)
	log.Info().
		Int("owners_attempted", summary.OwnersAttempted).
		Int("owners_notified", summary.OwnersNotified).
		Int64("drugs_marked", summary.DrugsMarked).
		Int("failures", summary.Failures).
		Msg("alert sweep finished")

	return summary, nil
}

// notifyOwner sends the consolidated email for one owner, bounded by
// SendTimeout.
func (s *AlertService) notifyOwner(ctx context.Context, g ownerGroup, now time.Time) error {
	if s.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.SendTimeout)
		defer cancel()
	}
	subject := fmt.Sprintf("%d of your medicines expire soon", len(g.drugs))
	return s.Notifier.Send(ctx, g.user.Email, subject, s.emailBody(g, now))
}

// emailBody renders one line per due drug.
func (s *AlertService) emailBody(g ownerGroup, now time.Time) string {
	loc := s.Loc
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nThe following medicines in your cabinet expire within the next %d days:\n\n",
		g.user.Username, int(s.Horizon.Hours()/24))
	for _, d := range g.drugs {
		fmt.Fprintf(&b, "  - %s (%s), expires %s\n",
			d.Name, domain.Form(d.Form).Label(), d.ExpirationDate.In(loc).Format("January 2006"))
	}
	b.WriteString("\nConsider replacing them soon.\n")
	return b.String()
}

// groupByOwner splits the owner-ordered selection into per-owner groups,
// preserving the query order within each group.
func groupByOwner(due []domain.Drug) []ownerGroup {
	var groups []ownerGroup
	for _, d := range due {
		if n := len(groups); n > 0 && groups[n-1].user.ID == d.UserID {
			groups[n-1].drugs = append(groups[n-1].drugs, d)
			continue
		}
		groups = append(groups, ownerGroup{user: d.User, drugs: []domain.Drug{d}})
	}
	return groups
}
