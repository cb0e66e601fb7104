package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/avramid/go-medcab-backend/internal/domain"
	"github.com/avramid/go-medcab-backend/internal/search"
)

var drugTestNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// seedDrug inserts a drug with the given expiration for owner.
func seedDrug(t *testing.T, db *gorm.DB, owner, name string, form domain.Form, exp time.Time) *domain.Drug {
	t.Helper()
	d, err := CreateDrug(context.Background(), db, owner, name, form, exp, "")
	if err != nil {
		t.Fatalf("seed drug %s: %v", name, err)
	}
	return d
}

func TestCreateDrug_PersistsFields(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Drug{})
	u := seedUser(t, db, "a@example.com", "a")

	exp := time.Date(2026, 6, 30, 23, 59, 59, 0, time.UTC)
	d, err := CreateDrug(context.Background(), db, u.ID, "Aspirin", domain.FormPills, exp, "painkiller")
	if err != nil {
		t.Fatalf("CreateDrug: %v", err)
	}
	if d.ID == "" || d.UserID != u.ID || d.Name != "Aspirin" || d.Form != "pills" {
		t.Fatalf("unexpected Drug fields: %+v", d)
	}
	if d.AlertSent || d.AlertSentAt != nil {
		t.Fatalf("new drug must start unalerted: %+v", d)
	}
}

func TestGetDrug_OwnershipEnforced(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Drug{})
	owner := seedUser(t, db, "a@example.com", "a")
	other := seedUser(t, db, "b@example.com", "b")
	d := seedDrug(t, db, owner.ID, "Aspirin", domain.FormPills, drugTestNow.AddDate(1, 0, 0))

	if _, err := GetDrug(context.Background(), db, d.ID, owner.ID); err != nil {
		t.Fatalf("owner fetch: %v", err)
	}
	if _, err := GetDrug(context.Background(), db, d.ID, other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant fetch: want ErrNotFound, got %v", err)
	}
}

func TestUpdateDrug_AtomicAlertReset(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Drug{})
	u := seedUser(t, db, "a@example.com", "a")
	d := seedDrug(t, db, u.ID, "Aspirin", domain.FormPills, drugTestNow.AddDate(0, 1, 0))

	// Pretend the sweep already alerted this drug.
	if n, err := MarkAlerted(context.Background(), db, []string{d.ID}, drugTestNow); err != nil || n != 1 {
		t.Fatalf("MarkAlerted = (%d, %v)", n, err)
	}

	// An expiration-date edit resets alert state in the same UPDATE.
	newExp := drugTestNow.AddDate(1, 0, 0)
	err := UpdateDrug(context.Background(), db, d.ID, u.ID, map[string]any{
		"expiration_date": newExp,
		"alert_sent":      false,
		"alert_sent_at":   nil,
	})
	if err != nil {
		t.Fatalf("UpdateDrug: %v", err)
	}

	got, err := GetDrug(context.Background(), db, d.ID, u.ID)
	if err != nil {
		t.Fatalf("GetDrug: %v", err)
	}
	if got.AlertSent || got.AlertSentAt != nil {
		t.Fatalf("alert state not reset: %+v", got)
	}
	if !got.ExpirationDate.Equal(newExp) {
		t.Fatalf("expiration = %v, want %v", got.ExpirationDate, newExp)
	}
}

func TestUpdateDrug_NotFound(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Drug{})
	u := seedUser(t, db, "a@example.com", "a")

	err := UpdateDrug(context.Background(), db, "missing", u.ID, map[string]any{"name": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDeleteDrug(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Drug{})
	u := seedUser(t, db, "a@example.com", "a")
	d := seedDrug(t, db, u.ID, "Aspirin", domain.FormPills, drugTestNow.AddDate(1, 0, 0))

	if err := DeleteDrug(context.Background(), db, d.ID, u.ID); err != nil {
		t.Fatalf("DeleteDrug: %v", err)
	}
	if _, err := GetDrug(context.Background(), db, d.ID, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted drug still readable: %v", err)
	}
	if err := DeleteDrug(context.Background(), db, d.ID, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: want ErrNotFound, got %v", err)
	}
}

func TestListDrugsPage_FormAndExpiredFilter(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Drug{})
	u := seedUser(t, db, "a@example.com", "a")

	expiredPills := seedDrug(t, db, u.ID, "Old pills", domain.FormPills, drugTestNow.AddDate(0, -2, 0))
	activePills := seedDrug(t, db, u.ID, "Fresh pills", domain.FormPills, drugTestNow.AddDate(0, 6, 0))
	seedDrug(t, db, u.ID, "Cough syrup", domain.FormSyrup, drugTestNow.AddDate(0, 6, 0))

	form := domain.FormPills
	notExpired := false
	f := search.Filter{
		Form:     &form,
		Expired:  &notExpired,
		Now:      drugTestNow,
		Sort:     []search.SortSpec{{Field: search.SortByExpiration, Direction: search.Asc}},
		Page:     1,
		PageSize: 20,
	}

	items, err := ListDrugsPage(context.Background(), db, u.ID, f)
	if err != nil {
		t.Fatalf("ListDrugsPage: %v", err)
	}
	if len(items) != 1 || items[0].ID != activePills.ID {
		t.Fatalf("want exactly the active pills record %s, got %+v", activePills.ID, items)
	}
	_ = expiredPills

	total, err := CountDrugs(context.Background(), db, u.ID, f)
	if err != nil || total != 1 {
		t.Fatalf("CountDrugs = (%d, %v), want (1, nil)", total, err)
	}
}

func TestListDrugsPage_NameContainsCaseInsensitive(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Drug{})
	u := seedUser(t, db, "a@example.com", "a")
	seedDrug(t, db, u.ID, "Ibuprofen Forte", domain.FormTablets, drugTestNow.AddDate(1, 0, 0))
	seedDrug(t, db, u.ID, "Aspirin", domain.FormPills, drugTestNow.AddDate(1, 0, 0))

	f := search.Filter{
		Name:     "IBUPRO",
		Now:      drugTestNow,
		Sort:     []search.SortSpec{{Field: search.SortByName, Direction: search.Asc}},
		Page:     1,
		PageSize: 20,
	}
	items, err := ListDrugsPage(context.Background(), db, u.ID, f)
	if err != nil {
		t.Fatalf("ListDrugsPage: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Ibuprofen Forte" {
		t.Fatalf("name filter mismatch: %+v", items)
	}
}

func TestListDrugsPage_UntilBoundInclusive(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Drug{})
	u := seedUser(t, db, "a@example.com", "a")

	until := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond) // end of Sep 2025
	inside := seedDrug(t, db, u.ID, "Inside", domain.FormPills, until)
	seedDrug(t, db, u.ID, "Outside", domain.FormPills, until.Add(time.Hour))

	f := search.Filter{
		Until:    &until,
		Now:      drugTestNow,
		Sort:     []search.SortSpec{{Field: search.SortByExpiration, Direction: search.Asc}},
		Page:     1,
		PageSize: 20,
	}
	items, err := ListDrugsPage(context.Background(), db, u.ID, f)
	if err != nil {
		t.Fatalf("ListDrugsPage: %v", err)
	}
	if len(items) != 1 || items[0].ID != inside.ID {
		t.Fatalf("inclusive upper bound violated: %+v", items)
	}
}

func TestListDrugsPage_SortApplied(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Drug{})
	u := seedUser(t, db, "a@example.com", "a")
	seedDrug(t, db, u.ID, "Bravo", domain.FormPills, drugTestNow.AddDate(0, 2, 0))
	seedDrug(t, db, u.ID, "Alpha", domain.FormPills, drugTestNow.AddDate(0, 1, 0))

	f := search.Filter{
		Now:      drugTestNow,
		Sort:     []search.SortSpec{{Field: search.SortByName, Direction: search.Desc}},
		Page:     1,
		PageSize: 20,
	}
	items, err := ListDrugsPage(context.Background(), db, u.ID, f)
	if err != nil {
		t.Fatalf("ListDrugsPage: %v", err)
	}
	if len(items) != 2 || items[0].Name != "Bravo" || items[1].Name != "Alpha" {
		t.Fatalf("descending name sort not applied: %+v", items)
	}
}

func TestFindDueForAlert_WindowExcludesExpired(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Drug{})
	u := seedUser(t, db, "a@example.com", "a")

	horizon := 30 * 24 * time.Hour
	seedDrug(t, db, u.ID, "Expired", domain.FormPills, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC))
	due := seedDrug(t, db, u.ID, "Due soon", domain.FormSyrup, drugTestNow.Add(10*24*time.Hour))
	seedDrug(t, db, u.ID, "Far out", domain.FormGel, drugTestNow.Add(400*24*time.Hour))

	got, err := FindDueForAlert(context.Background(), db, drugTestNow, horizon)
	if err != nil {
		t.Fatalf("FindDueForAlert: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Fatalf("want exactly the 10-day drug, got %+v", got)
	}
	if got[0].User.Email != "a@example.com" {
		t.Fatalf("owner not preloaded: %+v", got[0].User)
	}
}

func TestFindDueForAlert_SkipsAlreadyAlerted(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Drug{})
	u := seedUser(t, db, "a@example.com", "a")
	d := seedDrug(t, db, u.ID, "Due soon", domain.FormPills, drugTestNow.Add(10*24*time.Hour))

	if n, err := MarkAlerted(context.Background(), db, []string{d.ID}, drugTestNow); err != nil || n != 1 {
		t.Fatalf("MarkAlerted = (%d, %v)", n, err)
	}

	got, err := FindDueForAlert(context.Background(), db, drugTestNow, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("FindDueForAlert: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("alerted drug selected again: %+v", got)
	}
}

func TestMarkAlerted_SecondPassMarksNothing(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Drug{})
	u := seedUser(t, db, "a@example.com", "a")
	d1 := seedDrug(t, db, u.ID, "One", domain.FormPills, drugTestNow.Add(5*24*time.Hour))
	d2 := seedDrug(t, db, u.ID, "Two", domain.FormPills, drugTestNow.Add(6*24*time.Hour))

	ids := []string{d1.ID, d2.ID}
	if n, err := MarkAlerted(context.Background(), db, ids, drugTestNow); err != nil || n != 2 {
		t.Fatalf("first MarkAlerted = (%d, %v), want (2, nil)", n, err)
	}
	if n, err := MarkAlerted(context.Background(), db, ids, drugTestNow); err != nil || n != 0 {
		t.Fatalf("second MarkAlerted = (%d, %v), want (0, nil)", n, err)
	}

	got, err := GetDrug(context.Background(), db, d1.ID, u.ID)
	if err != nil {
		t.Fatalf("GetDrug: %v", err)
	}
	if !got.AlertSent || got.AlertSentAt == nil {
		t.Fatalf("alert state not persisted: %+v", got)
	}
}

func TestMarkAlerted_EmptyIDs(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Drug{})
	if n, err := MarkAlerted(context.Background(), db, nil, drugTestNow); err != nil || n != 0 {
		t.Fatalf("MarkAlerted(nil) = (%d, %v), want (0, nil)", n, err)
	}
}
