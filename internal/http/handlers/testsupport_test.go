package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avramid/go-medcab-backend/internal/domain"
	"github.com/avramid/go-medcab-backend/internal/search"
	"github.com/avramid/go-medcab-backend/internal/services"
)

// Fakes for the service contracts. Each fake records the arguments of the
// last call so tests can assert what the handler passed down.

type fakeAcctSvc struct {
	registerErr error
	loginErr    error
	profileErr  error
	user        *domain.User
	token       string

	gotEmail, gotUsername, gotPassword, gotID string
}

func (f *fakeAcctSvc) Register(_ context.Context, email, username, password string) (*domain.User, error) {
	f.gotEmail, f.gotUsername, f.gotPassword = email, username, password
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return f.user, nil
}

func (f *fakeAcctSvc) Login(_ context.Context, email, password string) (string, *domain.User, error) {
	f.gotEmail, f.gotPassword = email, password
	if f.loginErr != nil {
		return "", nil, f.loginErr
	}
	return f.token, f.user, nil
}

func (f *fakeAcctSvc) Profile(_ context.Context, id string) (*domain.User, error) {
	f.gotID = id
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.user, nil
}

type fakeDrugSvc struct {
	err    error
	drug   *domain.Drug
	drugs  []domain.Drug
	total  int64
	gotUID string
	gotID  string
	gotIn  services.DrugInput
	gotRaw search.RawFilter

	searchCalls, exportCalls int
}

func (f *fakeDrugSvc) Create(_ context.Context, userID string, in services.DrugInput) (*domain.Drug, error) {
	f.gotUID, f.gotIn = userID, in
	if f.err != nil {
		return nil, f.err
	}
	return f.drug, nil
}

func (f *fakeDrugSvc) Get(_ context.Context, userID, id string) (*domain.Drug, error) {
	f.gotUID, f.gotID = userID, id
	if f.err != nil {
		return nil, f.err
	}
	return f.drug, nil
}

func (f *fakeDrugSvc) Update(_ context.Context, userID, id string, in services.DrugInput) (*domain.Drug, error) {
	f.gotUID, f.gotID, f.gotIn = userID, id, in
	if f.err != nil {
		return nil, f.err
	}
	return f.drug, nil
}

func (f *fakeDrugSvc) Delete(_ context.Context, userID, id string) error {
	f.gotUID, f.gotID = userID, id
	return f.err
}

func (f *fakeDrugSvc) Search(_ context.Context, userID string, raw search.RawFilter) ([]domain.Drug, int64, error) {
	f.searchCalls++
	f.gotUID, f.gotRaw = userID, raw
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.drugs, f.total, nil
}

func (f *fakeDrugSvc) SearchForExport(_ context.Context, userID string, raw search.RawFilter) ([]domain.Drug, int64, error) {
	f.exportCalls++
	f.gotUID, f.gotRaw = userID, raw
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.drugs, f.total, nil
}

type fakeStatsSvc struct {
	err    error
	stats  *services.Statistics
	gotUID string
}

func (f *fakeStatsSvc) Snapshot(_ context.Context, userID string) (*services.Statistics, error) {
	f.gotUID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

type fakeAlertSvc struct {
	err     error
	summary *services.SweepSummary
	calls   int
}

func (f *fakeAlertSvc) Sweep(_ context.Context) (*services.SweepSummary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

// testEnv bundles the fakes behind a wired router. Every request carries the
// authenticated identity "u1", matching what the auth middleware would set.
type testEnv struct {
	acct  *fakeAcctSvc
	drugs *fakeDrugSvc
	stats *fakeStatsSvc
	alert *fakeAlertSvc
	r     *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		acct:  &fakeAcctSvc{},
		drugs: &fakeDrugSvc{},
		stats: &fakeStatsSvc{},
		alert: &fakeAlertSvc{},
	}
	h := New(env.acct, env.drugs, env.stats, env.alert, time.UTC)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-test")
		c.Set("userID", "u1")
		c.Next()
	})
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.GET("/auth/me", h.Me)
	r.GET("/forms", h.ListForms)
	r.POST("/drugs", h.CreateDrug)
	r.GET("/drugs", h.ListDrugs)
	r.GET("/drugs/export/csv", h.ExportCSV)
	r.GET("/drugs/export/pdf", h.ExportPDF)
	r.GET("/drugs/:id", h.GetDrug)
	r.PUT("/drugs/:id", h.UpdateDrug)
	r.DELETE("/drugs/:id", h.DeleteDrug)
	r.GET("/statistics", h.GetStatistics)
	r.POST("/alerts/run", h.RunAlerts)

	env.r = r
	return env
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, newBody(body))
		req.Header.Set("Content-Type", "application/json")
	}
	e.r.ServeHTTP(w, req)
	return w
}

func newBody(s string) io.Reader { return strings.NewReader(s) }
