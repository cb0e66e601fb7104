// Filter construction.
//
// BuildFilter turns free-form request parameters into a Filter the repository
// can execute safely. Every field is checked before any database access and
// all failures are reported together in one *ValidationError.
package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avramid/go-medcab-backend/internal/clock"
	"github.com/avramid/go-medcab-backend/internal/domain"
)

// Page-size policy. Values above the path's maximum are rejected, never
// silently clamped.
const (
	DefaultPageSize   = 20
	MaxPageSizeSearch = 100
	MaxPageSizeExport = 500
)

// RawFilter carries the untrusted request parameters, exactly as received.
// Empty strings mean "not provided".
type RawFilter struct {
	Name                 string   // substring match, case-insensitive
	Form                 string   // pharmaceutical form name
	Expired              string   // "true" | "false"
	ExpirationUntilYear  string   // must be paired with ...Month
	ExpirationUntilMonth string   // 1..12
	Sort                 []string // "field[,direction]" tokens
	Page                 string   // 1-based page number
	PageSize             string   // rows per page
}

// Filter is the validated, safe query descriptor handed to the repository.
// All predicates are conjunctive.
type Filter struct {
	Name    string       // non-empty => case-insensitive contains
	Form    *domain.Form // non-nil => equality
	Expired *bool        // non-nil => compare ExpirationDate against Now
	Until   *time.Time   // non-nil => inclusive upper bound (end of month)

	// Now is the expiry cutoff, captured once per request so every row in
	// the result set is judged against the same instant.
	Now time.Time

	Sort     []SortSpec // never empty; defaults to expirationDate ASC
	Page     int        // >= 1
	PageSize int        // 1..max for the calling path
}

// Offset returns the row offset for the filter's page.
func (f Filter) Offset() int { return (f.Page - 1) * f.PageSize }

// BuildFilter validates raw into a Filter. now is the request's expiry
// cutoff; loc interprets the expiration-until pair; maxPageSize is the
// calling path's limit (MaxPageSizeSearch or MaxPageSizeExport).
//
// On any failure it returns a *ValidationError listing every offending
// field; the repository is never touched with unvalidated input.
func BuildFilter(raw RawFilter, now time.Time, loc *time.Location, maxPageSize int) (Filter, error) {
	v := &ValidationError{}
	f := Filter{
		Name: strings.TrimSpace(raw.Name),
		Now:  now,
	}

	if s := strings.TrimSpace(raw.Form); s != "" {
		form, ok := domain.ParseForm(s)
		if !ok {
			v.add("form", CodeInvalidDrugForm, fmt.Sprintf("unknown pharmaceutical form %q", s))
		} else {
			f.Form = &form
		}
	}

	if s := strings.TrimSpace(raw.Expired); s != "" {
		switch strings.ToLower(s) {
		case "true":
			b := true
			f.Expired = &b
		case "false":
			b := false
			f.Expired = &b
		default:
			v.add("expired", CodeInvalidValue, "expired must be true or false")
		}
	}

	f.Until = parseUntil(v, raw.ExpirationUntilYear, raw.ExpirationUntilMonth, loc)

	f.Sort = parseSorts(v, raw.Sort)

	f.Page = parsePage(v, raw.Page)
	f.PageSize = parsePageSize(v, raw.PageSize, maxPageSize)

	if err := v.orNil(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// parseUntil validates the expiration-until (year, month) pair. The pair is
// all-or-nothing: a partial pair is an invalid date range.
func parseUntil(v *ValidationError, rawYear, rawMonth string, loc *time.Location) *time.Time {
	rawYear, rawMonth = strings.TrimSpace(rawYear), strings.TrimSpace(rawMonth)
	if rawYear == "" && rawMonth == "" {
		return nil
	}
	if rawYear == "" || rawMonth == "" {
		v.add("expiration_until", CodeInvalidDateRange,
			"expiration_until_year and expiration_until_month must be provided together")
		return nil
	}

	year, yerr := strconv.Atoi(rawYear)
	month, merr := strconv.Atoi(rawMonth)
	if yerr != nil || year < 1 || year > 9999 {
		v.add("expiration_until_year", CodeInvalidDateRange, "year must be a number between 1 and 9999")
		return nil
	}
	if merr != nil || month < 1 || month > 12 {
		v.add("expiration_until_month", CodeInvalidDateRange, "month must be a number between 1 and 12")
		return nil
	}

	t := clock.EndOfMonth(year, time.Month(month), loc)
	return &t
}

func parseSorts(v *ValidationError, tokens []string) []SortSpec {
	specs := make([]SortSpec, 0, len(tokens))
	for _, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		if spec, ok := parseSortToken(v, "sort", tok); ok {
			specs = append(specs, spec)
		}
	}
	if len(specs) == 0 {
		specs = append(specs, SortSpec{Field: SortByExpiration, Direction: Asc})
	}
	return specs
}

func parsePage(v *ValidationError, raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		v.add("page", CodeInvalidValue, "page must be a positive number")
		return 1
	}
	return n
}

func parsePageSize(v *ValidationError, raw string, max int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		v.add("page_size", CodeInvalidValue, "page_size must be a positive number")
		return DefaultPageSize
	}
	if n > max {
		v.add("page_size", CodePageSizeExceeded,
			fmt.Sprintf("page_size %d exceeds the maximum of %d", n, max))
		return DefaultPageSize
	}
	return n
}
