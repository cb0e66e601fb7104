// Command server runs the medicine cabinet HTTP API: account management,
// drug CRUD and search, statistics, exports, and the background expiry
// alert sweep.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avramid/go-medcab-backend/internal/config"
	httpapi "github.com/avramid/go-medcab-backend/internal/http"
	"github.com/avramid/go-medcab-backend/internal/notify"
	"github.com/avramid/go-medcab-backend/internal/observability"
	"github.com/avramid/go-medcab-backend/internal/repo"
	"github.com/avramid/go-medcab-backend/internal/services"
	"github.com/avramid/go-medcab-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Fatal().Err(err).Str("time_zone", cfg.TimeZone).Msg("invalid TIME_ZONE")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(c); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	var notifier notify.Notifier
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	} else {
		log.Warn().Msg("SMTP_HOST not set, alert emails will be logged instead of sent")
		notifier = notify.LogMailer{}
	}

	app := httpapi.NewApp(db, cfg, loc, notifier)

	r := gin.New()
	httpapi.RegisterRoutes(r, app, cfg)

	// Background sweep: one pass every SweepInterval. POST /alerts/run shares
	// the same service, so concurrent triggers coalesce via ErrSweepRunning.
	if cfg.Alert.SweepInterval > 0 {
		go runSweepLoop(ctx, app, cfg.Alert.SweepInterval)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

// runSweepLoop triggers an alert sweep every interval until ctx ends. An
// in-flight pass makes the tick a no-op rather than an error.
func runSweepLoop(ctx context.Context, app *httpapi.App, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.Alerts.Sweep(ctx); err != nil {
				if errors.Is(err, services.ErrSweepRunning) {
					continue
				}
				log.Error().Err(err).Msg("scheduled alert sweep failed")
			}
		}
	}
}
