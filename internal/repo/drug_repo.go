// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Drug model,
// including the filtered/paged search query and the alert-sweep selection.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
//
// Query composition: applyFilter translates a validated search.Filter into
// conjunctive WHERE clauses. Sort columns come exclusively from the closed
// search.SortField enum, so no caller-supplied string ever reaches the ORDER
// BY clause.
//
// Error semantics:
//   - When a drug is not found (or not owned by the given user), functions
//     return ErrNotFound.
//   - On DB errors the raw gorm error is propagated; retries, if any, belong
//     to the storage layer, not here.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avramid/go-medcab-backend/internal/domain"
	"github.com/avramid/go-medcab-backend/internal/search"
)

// CreateDrug inserts a new Drug row owned by userID. The drug ID is a
// randomly generated UUID (string). The expiration date is stored as given;
// the service layer is responsible for end-of-month normalization.
func CreateDrug(ctx context.Context, db *gorm.DB, userID, name string, form domain.Form, expiration time.Time, description string) (*domain.Drug, error) {
	d := &domain.Drug{
		ID:             uuid.NewString(),
		UserID:         userID,
		Name:           name,
		Form:           form.String(),
		ExpirationDate: expiration,
		Description:    description,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// GetDrug fetches a single drug by its ID and owner (userID). If the record
// does not exist or belongs to another user, it returns ErrNotFound.
func GetDrug(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Drug, error) {
	var d domain.Drug
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDrug applies the given column updates to a drug identified by id and
// owned by userID, in a single UPDATE statement. The caller builds the update
// map; this is what lets an expiration-date change and its alert-state reset
// land atomically. If no rows are affected (drug missing or not owned by
// userID), it returns ErrNotFound.
func UpdateDrug(ctx context.Context, db *gorm.DB, id, userID string, updates map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Drug{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteDrug soft-deletes a drug identified by id and owned by userID.
// If no rows are affected, it returns ErrNotFound.
func DeleteDrug(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Drug{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountDrugs returns the number of drugs owned by userID matching the filter.
// Use together with ListDrugsPage for pagination metadata.
func CountDrugs(ctx context.Context, db *gorm.DB, userID string, f search.Filter) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Drug{}).Where("user_id = ?", userID)
	err := applyFilter(q, f).Count(&total).Error
	return total, err
}

// ListDrugsPage returns one page of drugs owned by userID matching the
// filter, ordered by the filter's validated sort specification.
func ListDrugsPage(ctx context.Context, db *gorm.DB, userID string, f search.Filter) ([]domain.Drug, error) {
	var out []domain.Drug
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	q = applyFilter(q, f)
	q = q.Order(orderClause(f.Sort)).Offset(f.Offset()).Limit(f.PageSize)
	err := q.Find(&out).Error
	return out, err
}

// FindDueForAlert selects, across all owners, the drugs whose expiration
// falls inside [now, now+horizon] and that have not been alerted yet.
// Already-expired drugs are excluded: they show up as "expired" in search
// and statistics instead of triggering a "expiring soon" mail.
//
// The owning User is preloaded (the sweep needs recipient addresses), and
// rows are ordered by owner so callers can group them in one pass.
func FindDueForAlert(ctx context.Context, db *gorm.DB, now time.Time, horizon time.Duration) ([]domain.Drug, error) {
	var out []domain.Drug
	err := db.WithContext(ctx).
		Preload("User").
		Where("expiration_date >= ? AND expiration_date <= ? AND alert_sent = ?", now, now.Add(horizon), false).
		Order("user_id, expiration_date").
		Find(&out).Error
	return out, err
}

// MarkAlerted sets alert_sent = true with the given timestamp on the drugs
// with the given IDs that are still unalerted, and returns how many rows were
// actually marked. The alert-sent guard makes a concurrent double-mark
// harmless.
func MarkAlerted(ctx context.Context, db *gorm.DB, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Drug{}).
		Where("id IN ? AND alert_sent = ?", ids, false).
		Updates(map[string]any{"alert_sent": true, "alert_sent_at": at})
	return res.RowsAffected, res.Error
}

// applyFilter adds the filter's conjunctive predicates to q. The expired
// predicate compares against the filter's captured Now, so every row in one
// request is judged against the same cutoff.
func applyFilter(q *gorm.DB, f search.Filter) *gorm.DB {
	if f.Name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(f.Name)+"%")
	}
	if f.Form != nil {
		q = q.Where("form = ?", f.Form.String())
	}
	if f.Expired != nil {
		if *f.Expired {
			q = q.Where("expiration_date < ?", f.Now)
		} else {
			q = q.Where("expiration_date >= ?", f.Now)
		}
	}
	if f.Until != nil {
		q = q.Where("expiration_date <= ?", *f.Until)
	}
	return q
}

// orderClause renders the validated sort specs as an ORDER BY expression.
// Inputs come from the closed SortField/Direction enums only.
func orderClause(specs []search.SortSpec) string {
	parts := make([]string, 0, len(specs))
	for _, s := range specs {
		parts = append(parts, s.Field.Column()+" "+string(s.Direction))
	}
	return strings.Join(parts, ", ")
}
