// Package services – DrugService
//
// This file implements DrugService, which owns the drug lifecycle: create,
// read, update, delete, plus the filtered/paged search. It normalizes every
// expiration to the end of its (year, month) in the application time zone,
// enforces ownership, and resets alert state when an edit moves the
// expiration date — atomically, in the same UPDATE as the content change.
//
// Observability: search is OpenTelemetry-instrumented; spans carry the user
// id and pagination parameters.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/avramid/go-medcab-backend/internal/cache"
	"github.com/avramid/go-medcab-backend/internal/clock"
	"github.com/avramid/go-medcab-backend/internal/domain"
	"github.com/avramid/go-medcab-backend/internal/search"
)

const (
	maxNameRunes        = 120
	maxDescriptionRunes = 500
)

// DrugRepo defines the repository contract required by DrugService.
type DrugRepo interface {
	CreateDrug(ctx context.Context, db *gorm.DB, userID, name string, form domain.Form, expiration time.Time, description string) (*domain.Drug, error)
	GetDrug(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Drug, error)
	UpdateDrug(ctx context.Context, db *gorm.DB, id, userID string, updates map[string]any) error
	DeleteDrug(ctx context.Context, db *gorm.DB, id, userID string) error
	CountDrugs(ctx context.Context, db *gorm.DB, userID string, f search.Filter) (int64, error)
	ListDrugsPage(ctx context.Context, db *gorm.DB, userID string, f search.Filter) ([]domain.Drug, error)
}

// DrugInput carries the user-editable fields of a drug. Expiration arrives
// as the (year, month) printed on the package.
type DrugInput struct {
	Name            string
	Form            string
	ExpirationYear  int
	ExpirationMonth int
	Description     string
}

// DrugService provides drug CRUD and search on top of DrugRepo.
type DrugService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the drug repository used by this service.
	Repo DrugRepo
	// Clock supplies the expiry cutoff for search requests.
	Clock clock.Clock
	// Loc is the application time zone for expiration normalization.
	Loc *time.Location
	// Cache holds per-owner derived reads; every write here invalidates the
	// owner's entries. May be nil.
	Cache *cache.Cache
}

// validate checks a DrugInput and returns the normalized name, form, and
// end-of-month expiration instant.
func (s *DrugService) validate(in DrugInput) (string, domain.Form, time.Time, string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", "", time.Time{}, "", ErrNameRequired
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		return "", "", time.Time{}, "", ErrNameTooLong
	}

	form, ok := domain.ParseForm(in.Form)
	if !ok {
		return "", "", time.Time{}, "", ErrInvalidForm
	}

	if in.ExpirationYear < 1 || in.ExpirationYear > 9999 ||
		in.ExpirationMonth < 1 || in.ExpirationMonth > 12 {
		return "", "", time.Time{}, "", ErrInvalidExpiration
	}
	expiration := clock.EndOfMonth(in.ExpirationYear, time.Month(in.ExpirationMonth), s.Loc)

	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > maxDescriptionRunes {
		return "", "", time.Time{}, "", ErrDescriptionTooLong
	}

	return name, form, expiration, description, nil
}

// Create inserts a new drug owned by userID.
func (s *DrugService) Create(ctx context.Context, userID string, in DrugInput) (*domain.Drug, error) {
	name, form, expiration, description, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	d, err := s.Repo.CreateDrug(ctx, s.DB, userID, name, form, expiration, description)
	if err != nil {
		return nil, err
	}
	s.Cache.InvalidateOwner(userID)
	return d, nil
}

// Get fetches one drug, enforcing ownership.
func (s *DrugService) Get(ctx context.Context, userID, id string) (*domain.Drug, error) {
	d, err := s.Repo.GetDrug(ctx, s.DB, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDrugNotFound
		}
		return nil, err
	}
	return d, nil
}

// Update replaces the user-editable fields of a drug. When the edit changes
// the expiration date (in either direction), the alert-sent flag and
// timestamp are reset in the same UPDATE statement, so a sweep running
// concurrently can never observe the new date with the old alert state.
func (s *DrugService) Update(ctx context.Context, userID, id string, in DrugInput) (*domain.Drug, error) {
	name, form, expiration, description, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"name":            name,
		"form":            form.String(),
		"expiration_date": expiration,
		"description":     description,
	}
	if !expiration.Equal(existing.ExpirationDate) {
		updates["alert_sent"] = false
		updates["alert_sent_at"] = nil
	}

	if err := s.Repo.UpdateDrug(ctx, s.DB, id, userID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDrugNotFound
		}
		return nil, err
	}
	s.Cache.InvalidateOwner(userID)

	return s.Get(ctx, userID, id)
}

// Delete removes a drug, enforcing ownership.
func (s *DrugService) Delete(ctx context.Context, userID, id string) error {
	if err := s.Repo.DeleteDrug(ctx, s.DB, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDrugNotFound
		}
		return err
	}
	s.Cache.InvalidateOwner(userID)
	return nil
}

// Search validates raw filter parameters and returns one page of matching
// drugs plus the total match count. Validation always precedes repository
// access; on a validation failure the returned error is a
// *search.ValidationError listing every offending field.
func (s *DrugService) Search(ctx context.Context, userID string, raw search.RawFilter) ([]domain.Drug, int64, error) {
	return s.searchWithin(ctx, userID, raw, search.MaxPageSizeSearch)
}

// SearchForExport is Search with the export path's larger page-size cap.
func (s *DrugService) SearchForExport(ctx context.Context, userID string, raw search.RawFilter) ([]domain.Drug, int64, error) {
	return s.searchWithin(ctx, userID, raw, search.MaxPageSizeExport)
}

func (s *DrugService) searchWithin(ctx context.Context, userID string, raw search.RawFilter, maxPageSize int) ([]domain.Drug, int64, error) {
	tr := otel.Tracer("services/DrugService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("max_page_size", maxPageSize),
		),
	)
	defer span.End()

	f, err := search.BuildFilter(raw, s.Clock.Now(), s.Loc, maxPageSize)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.Repo.CountDrugs(ctx, s.DB, userID, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Drug{}, 0, nil
	}

	items, err := s.Repo.ListDrugsPage(ctx, s.DB, userID, f)
	return items, total, err
}
