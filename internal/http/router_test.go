package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avramid/go-medcab-backend/internal/config"
	"github.com/avramid/go-medcab-backend/internal/domain"
	"github.com/avramid/go-medcab-backend/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig(base string) config.Config {
	return config.Config{
		APIBasePath: base,
		RateRPS:     100,
		RateBurst:   10,
		JWT:         config.JWTConfig{Secret: "router-test-secret", TTL: time.Hour, Issuer: "test"},
		Alert:       config.AlertConfig{Horizon: 30 * 24 * time.Hour, NotifyTimeout: time.Second},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
	}
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := testConfig("/api/v1")
	db := newTestDB(t, "routerdb")
	RegisterRoutes(r, NewApp(db, cfg, time.UTC, nil), cfg)

	// /health works
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := testConfig("/api/v2")
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	db := newTestDB(t, "routerdb_cors")
	RegisterRoutes(r, NewApp(db, cfg, time.UTC, nil), cfg)

	// Any request runs through CORS middleware; header should reflect origin.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_AuthGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := testConfig("/api/v1")
	db := newTestDB(t, "routerdb_auth")
	RegisterRoutes(r, NewApp(db, cfg, time.UTC, nil), cfg)

	// Protected route without a token → 401.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/drugs", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("GET /drugs without token = %d, want 401", w.Code)
	}

	// Public forms catalog needs no token.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/forms", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /forms = %d, want 200", w.Code)
	}
}

// End-to-end against the real wiring: register, log in, create a drug with
// the bearer token, and read it back through search.
func TestRegisterRoutes_RegisterLoginCreateList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := testConfig("/api/v1")
	db := newTestDB(t, "routerdb_e2e")
	RegisterRoutes(r, NewApp(db, cfg, time.UTC, nil), cfg)

	do := func(method, target, token, body string) *httptest.ResponseRecorder {
		t.Helper()
		var rd io.Reader
		if body != "" {
			rd = bytes.NewBufferString(body)
		}
		req := httptest.NewRequest(method, target, rd)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/api/v1/auth/register", "", `{"email":"ann@example.com","username":"ann","password":"correct horse battery"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register = %d body=%s", w.Code, w.Body.String())
	}

	w = do(http.MethodPost, "/api/v1/auth/login", "", `{"email":"ann@example.com","password":"correct horse battery"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d body=%s", w.Code, w.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil || login.Token == "" {
		t.Fatalf("login body missing token: err=%v body=%s", err, w.Body.String())
	}

	w = do(http.MethodPost, "/api/v1/drugs", login.Token,
		`{"name":"Ibuprofen","form":"pills","expiration_year":2030,"expiration_month":6,"description":"200mg"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create drug = %d body=%s", w.Code, w.Body.String())
	}

	w = do(http.MethodGet, "/api/v1/drugs?name=ibu", login.Token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list drugs = %d body=%s", w.Code, w.Body.String())
	}
	var list struct {
		Drugs []domain.Drug `json:"drugs"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Pagination.Total != 1 || len(list.Drugs) != 1 || list.Drugs[0].Name != "Ibuprofen" {
		t.Fatalf("unexpected list: %s", w.Body.String())
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	// Hit all three
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/one", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "one" {
		t.Fatalf("GET /one got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/two", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "two" {
		t.Fatalf("GET /two got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("GET /api/ping got %d %q", rec.Code, rec.Body.String())
	}
}

// Smoke test that a request traverses otel + ratelimit + security headers pipeline.
func TestPipeline_Smoke(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := testConfig("/api/v1")
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour} // only set on https
	db := newTestDB(t, "routerdb_smoke")
	RegisterRoutes(r, NewApp(db, cfg, time.UTC, nil), cfg)

	// Any request goes through the middleware stack
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	// simulate https so HSTS could be eligible if middleware checks scheme
	req.URL.Scheme = "https"
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	// RequestID header should be present (from RequestID middleware)
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func Test_repoShims_Proxies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t, "routerdb_shims")
	ctx := context.Background()

	users := userRepoShim{}
	u, err := users.CreateUser(ctx, db, "bob@example.com", "bob", "$2a$10$hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u == nil || u.ID == "" || u.Email != "bob@example.com" {
		t.Fatalf("CreateUser returned bad user: %+v", u)
	}
	if got, err := users.GetUserByEmail(ctx, db, "bob@example.com"); err != nil || got.ID != u.ID {
		t.Fatalf("GetUserByEmail: got=%+v err=%v", got, err)
	}
	if got, err := users.GetUser(ctx, db, u.ID); err != nil || got.Username != "bob" {
		t.Fatalf("GetUser: got=%+v err=%v", got, err)
	}
	if ok, err := users.EmailExists(ctx, db, "bob@example.com"); err != nil || !ok {
		t.Fatalf("EmailExists: ok=%v err=%v", ok, err)
	}
	if ok, err := users.UsernameExists(ctx, db, "nobody"); err != nil || ok {
		t.Fatalf("UsernameExists(nobody): ok=%v err=%v", ok, err)
	}

	drugs := drugRepoShim{}
	exp := time.Date(2030, time.June, 30, 23, 59, 59, 0, time.UTC)
	d, err := drugs.CreateDrug(ctx, db, u.ID, "Aspirin", domain.FormTablets, exp, "500mg")
	if err != nil {
		t.Fatalf("CreateDrug: %v", err)
	}
	if got, err := drugs.GetDrug(ctx, db, d.ID, u.ID); err != nil || got.Name != "Aspirin" {
		t.Fatalf("GetDrug: got=%+v err=%v", got, err)
	}
	if err := drugs.UpdateDrug(ctx, db, d.ID, u.ID, map[string]any{"name": "Aspirin Forte"}); err != nil {
		t.Fatalf("UpdateDrug: %v", err)
	}

	stats := statsRepoShim{}
	if n, err := stats.CountTotal(ctx, db, u.ID); err != nil || n != 1 {
		t.Fatalf("CountTotal: n=%d err=%v", n, err)
	}
	if n, err := stats.CountExpired(ctx, db, u.ID, time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil || n != 1 {
		t.Fatalf("CountExpired: n=%d err=%v", n, err)
	}
	if n, err := stats.CountAlerted(ctx, db, u.ID); err != nil || n != 0 {
		t.Fatalf("CountAlerted: n=%d err=%v", n, err)
	}
	if byForm, err := stats.CountByForm(ctx, db, u.ID); err != nil || byForm["tablets"] != 1 {
		t.Fatalf("CountByForm: m=%v err=%v", byForm, err)
	}

	alerts := alertRepoShim{}
	now := time.Date(2030, time.June, 1, 0, 0, 0, 0, time.UTC)
	due, err := alerts.FindDueForAlert(ctx, db, now, 60*24*time.Hour)
	if err != nil {
		t.Fatalf("FindDueForAlert: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("FindDueForAlert expected 1, got %d", len(due))
	}
	if n, err := alerts.MarkAlerted(ctx, db, []string{d.ID}, now); err != nil || n != 1 {
		t.Fatalf("MarkAlerted: n=%d err=%v", n, err)
	}

	if err := drugs.DeleteDrug(ctx, db, d.ID, u.ID); err != nil {
		t.Fatalf("DeleteDrug: %v", err)
	}
}
