// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, authentication, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggofiles "github.com/swaggo/files"
	ginswagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/avramid/go-medcab-backend/internal/auth"
	"github.com/avramid/go-medcab-backend/internal/cache"
	"github.com/avramid/go-medcab-backend/internal/clock"
	"github.com/avramid/go-medcab-backend/internal/config"
	"github.com/avramid/go-medcab-backend/internal/domain"
	"github.com/avramid/go-medcab-backend/internal/http/handlers"
	"github.com/avramid/go-medcab-backend/internal/http/middleware"
	"github.com/avramid/go-medcab-backend/internal/notify"
	"github.com/avramid/go-medcab-backend/internal/repo"
	"github.com/avramid/go-medcab-backend/internal/search"
	"github.com/avramid/go-medcab-backend/internal/services"
)

//
// Repository shims
//
// The shims adapt the repository free functions to the interfaces expected
// by the services. This keeps services decoupled from the concrete repo
// package while reusing existing functions.

type userRepoShim struct{}

// CreateUser proxies repo.CreateUser.
func (userRepoShim) CreateUser(ctx context.Context, db *gorm.DB, email, username, passwordHash string) (*domain.User, error) {
	return repo.CreateUser(ctx, db, email, username, passwordHash)
}

// GetUserByEmail proxies repo.GetUserByEmail.
func (userRepoShim) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, db, email)
}

// GetUser proxies repo.GetUser.
func (userRepoShim) GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}

// EmailExists proxies repo.EmailExists.
func (userRepoShim) EmailExists(ctx context.Context, db *gorm.DB, email string) (bool, error) {
	return repo.EmailExists(ctx, db, email)
}

// UsernameExists proxies repo.UsernameExists.
func (userRepoShim) UsernameExists(ctx context.Context, db *gorm.DB, username string) (bool, error) {
	return repo.UsernameExists(ctx, db, username)
}

type drugRepoShim struct{}

// CreateDrug proxies repo.CreateDrug.
func (drugRepoShim) CreateDrug(ctx context.Context, db *gorm.DB, userID, name string, form domain.Form, expiration time.Time, description string) (*domain.Drug, error) {
	return repo.CreateDrug(ctx, db, userID, name, form, expiration, description)
}

// GetDrug proxies repo.GetDrug.
func (drugRepoShim) GetDrug(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Drug, error) {
	return repo.GetDrug(ctx, db, id, userID)
}

// UpdateDrug proxies repo.UpdateDrug.
func (drugRepoShim) UpdateDrug(ctx context.Context, db *gorm.DB, id, userID string, updates map[string]any) error {
	return repo.UpdateDrug(ctx, db, id, userID, updates)
}

// DeleteDrug proxies repo.DeleteDrug.
func (drugRepoShim) DeleteDrug(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteDrug(ctx, db, id, userID)
}

// CountDrugs proxies repo.CountDrugs.
func (drugRepoShim) CountDrugs(ctx context.Context, db *gorm.DB, userID string, f search.Filter) (int64, error) {
	return repo.CountDrugs(ctx, db, userID, f)
}

// ListDrugsPage proxies repo.ListDrugsPage.
func (drugRepoShim) ListDrugsPage(ctx context.Context, db *gorm.DB, userID string, f search.Filter) ([]domain.Drug, error) {
	return repo.ListDrugsPage(ctx, db, userID, f)
}

type statsRepoShim struct{}

// CountTotal proxies repo.CountTotal.
func (statsRepoShim) CountTotal(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountTotal(ctx, db, userID)
}

// CountExpired proxies repo.CountExpired.
func (statsRepoShim) CountExpired(ctx context.Context, db *gorm.DB, userID string, now time.Time) (int64, error) {
	return repo.CountExpired(ctx, db, userID, now)
}

// CountAlerted proxies repo.CountAlerted.
func (statsRepoShim) CountAlerted(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountAlerted(ctx, db, userID)
}

// CountByForm proxies repo.CountByForm.
func (statsRepoShim) CountByForm(ctx context.Context, db *gorm.DB, userID string) (map[string]int64, error) {
	return repo.CountByForm(ctx, db, userID)
}

type alertRepoShim struct{}

// FindDueForAlert proxies repo.FindDueForAlert.
func (alertRepoShim) FindDueForAlert(ctx context.Context, db *gorm.DB, now time.Time, horizon time.Duration) ([]domain.Drug, error) {
	return repo.FindDueForAlert(ctx, db, now, horizon)
}

// MarkAlerted proxies repo.MarkAlerted.
func (alertRepoShim) MarkAlerted(ctx context.Context, db *gorm.DB, ids []string, at time.Time) (int64, error) {
	return repo.MarkAlerted(ctx, db, ids, at)
}

//
// Application wiring
//

// App bundles the fully constructed services behind the HTTP layer. The
// bootstrap keeps a reference so the background sweep ticker can reuse the
// same AlertService instance the POST /alerts/run endpoint uses.
type App struct {
	Auth   *services.AuthService
	Drugs  *services.DrugService
	Stats  *services.StatsService
	Alerts *services.AlertService
	Tokens *auth.Manager
	Loc    *time.Location
}

// NewApp performs dependency injection: services ← repo shims + db + config.
// A nil loc defaults to UTC; notifier may be nil when mail delivery is
// disabled (sweep attempts then count as failures).
func NewApp(db *gorm.DB, cfg config.Config, loc *time.Location, notifier notify.Notifier) *App {
	if loc == nil {
		loc = time.UTC
	}
	clk := clock.System(loc)
	tokens := auth.NewManager(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)
	readCache := cache.New(cfg.StatsCacheTTL)

	return &App{
		Auth: &services.AuthService{
			DB:         db,
			Repo:       userRepoShim{},
			Tokens:     tokens,
			Clock:      clk,
			BcryptCost: cfg.BcryptCost,
		},
		Drugs: &services.DrugService{
			DB:    db,
			Repo:  drugRepoShim{},
			Clock: clk,
			Loc:   loc,
			Cache: readCache,
		},
		Stats: &services.StatsService{
			DB:    db,
			Repo:  statsRepoShim{},
			Clock: clk,
			Cache: readCache,
		},
		Alerts: &services.AlertService{
			DB:          db,
			Repo:        alertRepoShim{},
			Notifier:    notifier,
			Clock:       clk,
			Loc:         loc,
			Horizon:     cfg.Alert.Horizon,
			SendTimeout: cfg.Alert.NotifyTimeout,
			Cache:       readCache,
		},
		Tokens: tokens,
		Loc:    loc,
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with query redaction
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and Security headers
//
// Authentication is applied per route group, not globally: registration,
// login, the forms catalog, health, and metrics stay public.
func RegisterRoutes(r *gin.Engine, app *App, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginswagger.WrapHandler(swaggofiles.Handler))
	}

	h := handlers.New(app.Auth, app.Drugs, app.Stats, app.Alerts, app.Loc)
	requireAuth := middleware.AuthRequired(app.Tokens)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Accounts (public)
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.GET("/auth/me", requireAuth, h.Me)

		// Form catalog (public, static)
		api.GET("/forms", h.ListForms)

		// Drugs (owner-scoped)
		drugs := api.Group("/drugs", requireAuth)
		{
			drugs.POST("", h.CreateDrug)
			drugs.GET("", h.ListDrugs)
			drugs.GET("/:id", h.GetDrug)
			drugs.PUT("/:id", h.UpdateDrug)
			drugs.DELETE("/:id", h.DeleteDrug)

			// Exports compress well; gzip only here.
			exports := drugs.Group("/export", gzip.Gzip(gzip.DefaultCompression))
			{
				exports.GET("/csv", h.ExportCSV)
				exports.GET("/pdf", h.ExportPDF)
			}
		}

		// Statistics (owner-scoped)
		api.GET("/statistics", requireAuth, h.GetStatistics)

		// Alert sweep trigger
		api.POST("/alerts/run", requireAuth, h.RunAlerts)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
