package search

import (
	"errors"
	"testing"
	"time"

	"github.com/avramid/go-medcab-backend/internal/domain"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func mustBuild(t *testing.T, raw RawFilter) Filter {
	t.Helper()
	f, err := BuildFilter(raw, testNow, time.UTC, MaxPageSizeSearch)
	if err != nil {
		t.Fatalf("BuildFilter(%+v): %v", raw, err)
	}
	return f
}

func asValidation(t *testing.T, err error) *ValidationError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}
	var v *ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	return v
}

func TestBuildFilter_Defaults(t *testing.T) {
	f := mustBuild(t, RawFilter{})

	if f.Name != "" || f.Form != nil || f.Expired != nil || f.Until != nil {
		t.Fatalf("empty raw filter should carry no predicates: %+v", f)
	}
	if !f.Now.Equal(testNow) {
		t.Fatalf("Now = %v, want %v", f.Now, testNow)
	}
	if len(f.Sort) != 1 || f.Sort[0].Field != SortByExpiration || f.Sort[0].Direction != Asc {
		t.Fatalf("default sort = %+v, want expirationDate ASC", f.Sort)
	}
	if f.Page != 1 || f.PageSize != DefaultPageSize {
		t.Fatalf("pagination defaults = (%d, %d), want (1, %d)", f.Page, f.PageSize, DefaultPageSize)
	}
}

func TestBuildFilter_AllPredicates(t *testing.T) {
	f := mustBuild(t, RawFilter{
		Name:                 "  aspirin ",
		Form:                 "PILLS",
		Expired:              "true",
		ExpirationUntilYear:  "2024",
		ExpirationUntilMonth: "3",
		Sort:                 []string{"name,desc", "form"},
		Page:                 "2",
		PageSize:             "50",
	})

	if f.Name != "aspirin" {
		t.Fatalf("Name = %q", f.Name)
	}
	if f.Form == nil || *f.Form != domain.FormPills {
		t.Fatalf("Form = %v, want pills", f.Form)
	}
	if f.Expired == nil || !*f.Expired {
		t.Fatalf("Expired = %v, want true", f.Expired)
	}
	// Combining expired=true with a past upper bound is legal; both simply apply.
	wantUntil := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
	if f.Until == nil || !f.Until.Equal(wantUntil) {
		t.Fatalf("Until = %v, want %v", f.Until, wantUntil)
	}
	want := []SortSpec{{SortByName, Desc}, {SortByForm, Asc}}
	if len(f.Sort) != 2 || f.Sort[0] != want[0] || f.Sort[1] != want[1] {
		t.Fatalf("Sort = %+v, want %+v", f.Sort, want)
	}
	if f.Page != 2 || f.PageSize != 50 || f.Offset() != 50 {
		t.Fatalf("pagination = (%d, %d, offset %d)", f.Page, f.PageSize, f.Offset())
	}
}

func TestBuildFilter_InvalidForm(t *testing.T) {
	_, err := BuildFilter(RawFilter{Form: "elixir"}, testNow, time.UTC, MaxPageSizeSearch)
	v := asValidation(t, err)
	if !v.Has(CodeInvalidDrugForm) {
		t.Fatalf("want %s, got %+v", CodeInvalidDrugForm, v.Fields)
	}
}

func TestBuildFilter_InvalidSortField(t *testing.T) {
	_, err := BuildFilter(RawFilter{Sort: []string{"bogusField,asc"}}, testNow, time.UTC, MaxPageSizeSearch)
	v := asValidation(t, err)
	if !v.Has(CodeInvalidSortField) {
		t.Fatalf("want %s, got %+v", CodeInvalidSortField, v.Fields)
	}
}

func TestBuildFilter_InvalidSortDirection(t *testing.T) {
	_, err := BuildFilter(RawFilter{Sort: []string{"name,sideways"}}, testNow, time.UTC, MaxPageSizeSearch)
	v := asValidation(t, err)
	if !v.Has(CodeInvalidSortDirection) {
		t.Fatalf("want %s, got %+v", CodeInvalidSortDirection, v.Fields)
	}
}

func TestBuildFilter_PartialUntilPair(t *testing.T) {
	for _, raw := range []RawFilter{
		{ExpirationUntilYear: "2025"},
		{ExpirationUntilMonth: "6"},
	} {
		_, err := BuildFilter(raw, testNow, time.UTC, MaxPageSizeSearch)
		v := asValidation(t, err)
		if !v.Has(CodeInvalidDateRange) {
			t.Fatalf("partial pair %+v: want %s, got %+v", raw, CodeInvalidDateRange, v.Fields)
		}
	}
}

func TestBuildFilter_UntilMonthOutOfRange(t *testing.T) {
	_, err := BuildFilter(RawFilter{ExpirationUntilYear: "2025", ExpirationUntilMonth: "13"},
		testNow, time.UTC, MaxPageSizeSearch)
	v := asValidation(t, err)
	if !v.Has(CodeInvalidDateRange) {
		t.Fatalf("want %s, got %+v", CodeInvalidDateRange, v.Fields)
	}
}

func TestBuildFilter_PageSizeBoundary(t *testing.T) {
	// max itself succeeds
	f := mustBuild(t, RawFilter{PageSize: "100"})
	if f.PageSize != 100 {
		t.Fatalf("PageSize = %d, want 100", f.PageSize)
	}

	// max+1 fails, not clamps
	_, err := BuildFilter(RawFilter{PageSize: "101"}, testNow, time.UTC, MaxPageSizeSearch)
	v := asValidation(t, err)
	if !v.Has(CodePageSizeExceeded) {
		t.Fatalf("want %s, got %+v", CodePageSizeExceeded, v.Fields)
	}

	// the export path allows more
	fe, err := BuildFilter(RawFilter{PageSize: "500"}, testNow, time.UTC, MaxPageSizeExport)
	if err != nil {
		t.Fatalf("export path: %v", err)
	}
	if fe.PageSize != 500 {
		t.Fatalf("export PageSize = %d, want 500", fe.PageSize)
	}
}

func TestBuildFilter_CollectsAllFieldErrors(t *testing.T) {
	_, err := BuildFilter(RawFilter{
		Form:     "elixir",
		Expired:  "maybe",
		Sort:     []string{"bogus,asc"},
		PageSize: "9999",
	}, testNow, time.UTC, MaxPageSizeSearch)
	v := asValidation(t, err)
	if len(v.Fields) != 4 {
		t.Fatalf("want 4 field errors, got %d: %+v", len(v.Fields), v.Fields)
	}
}
