// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the scalar and grouped aggregate queries
// behind the statistics endpoint. Each function is context-aware and scoped
// to one owner; consistency across the individual queries is read-committed,
// the service layer passes a single "now" so total/expired/active line up.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/avramid/go-medcab-backend/internal/domain"
)

// CountTotal returns the total number of drugs owned by userID.
func CountTotal(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Drug{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}

// CountExpired returns the number of drugs owned by userID whose expiration
// date lies strictly before now.
func CountExpired(ctx context.Context, db *gorm.DB, userID string, now time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Drug{}).
		Where("user_id = ? AND expiration_date < ?", userID, now).
		Count(&n).Error
	return n, err
}

// CountAlerted returns the number of drugs owned by userID with
// alert_sent = true.
func CountAlerted(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Drug{}).
		Where("user_id = ? AND alert_sent = ?", userID, true).
		Count(&n).Error
	return n, err
}

// CountByForm returns drug counts grouped by pharmaceutical form for userID.
// Forms with zero drugs are absent from the map; absence means zero.
func CountByForm(ctx context.Context, db *gorm.DB, userID string) (map[string]int64, error) {
	var rows []struct {
		Form string
		N    int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Drug{}).
		Select("form, COUNT(*) AS n").
		Where("user_id = ?", userID).
		Group("form").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Form] = r.N
	}
	return out, nil
}
