/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Command relay-service runs the Browser Relay (spec.md §4.4), listening
// on port 5013.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inhies/go-bytesize"

	"github.com/mattmezza/monlight/internal/browserrelay"
	"github.com/mattmezza/monlight/internal/chassis"
	"github.com/mattmezza/monlight/internal/config"
	"github.com/mattmezza/monlight/internal/logging"
	"github.com/mattmezza/monlight/internal/sqlitestore"
)

const (
	port          = "5013"
	rateLimitRPM  = 300
	maxBodySize   = 5*bytesize.MiB + 4*bytesize.KiB
	defaultDBPath = "./data/relay.db"
	retentionDays = 90
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--healthcheck" {
		os.Exit(healthcheck())
	}

	lg := logging.NewStderr("relay-service", logging.LevelFromString(config.String("LOG_LEVEL", "INFO")))

	adminKey, err := config.Required("ADMIN_API_KEY")
	if err != nil {
		lg.Critical("startup failed", logging.SD("error", err.Error()))
		os.Exit(1)
	}
	errorTrackerURL, err := config.Required("ERROR_TRACKER_URL")
	if err != nil {
		lg.Critical("startup failed", logging.SD("error", err.Error()))
		os.Exit(1)
	}
	errorTrackerKey, err := config.Required("ERROR_TRACKER_API_KEY")
	if err != nil {
		lg.Critical("startup failed", logging.SD("error", err.Error()))
		os.Exit(1)
	}
	metricsURL, err := config.Required("METRICS_COLLECTOR_URL")
	if err != nil {
		lg.Critical("startup failed", logging.SD("error", err.Error()))
		os.Exit(1)
	}
	metricsKey, err := config.Required("METRICS_COLLECTOR_API_KEY")
	if err != nil {
		lg.Critical("startup failed", logging.SD("error", err.Error()))
		os.Exit(1)
	}

	dbPath := config.String("DATABASE_PATH", defaultDBPath)
	db, err := sqlitestore.Open(dbPath, sqlitestore.Options{BusyTimeoutMS: 5000})
	if err != nil {
		lg.Critical("failed to open database", logging.SD("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := chassis.RunMigrations(db, browserrelay.Migrations); err != nil {
		lg.Critical("failed to run migrations", logging.SD("error", err.Error()))
		os.Exit(1)
	}

	store := browserrelay.NewStore(db)
	forwarder := browserrelay.NewForwarder(errorTrackerURL, errorTrackerKey, metricsURL, metricsKey)
	svc := browserrelay.NewService(store, forwarder, lg)

	origins := config.StringList("CORS_ORIGINS", nil)
	limiter := chassis.NewRateLimiter(config.Int("RATE_LIMIT", rateLimitRPM), time.Minute)
	bodyCap := int64(config.Bytes("MAX_BODY_SIZE", maxBodySize))

	adminHandler := chassis.Chain(
		browserrelay.AdminRoutes(svc),
		chassis.RequestID(),
		chassis.Recover(lg),
		limiter.Middleware,
		chassis.BodySizeGate(bodyCap),
		chassis.APIKeyAuth("X-API-Key", adminKey),
	)
	browserHandler := chassis.Chain(
		browserrelay.BrowserRoutes(svc),
		chassis.RequestID(),
		chassis.Recover(lg),
		limiter.Middleware,
		chassis.BodySizeGate(bodyCap),
		browserrelay.CORS(origins),
	)

	mux := http.NewServeMux()
	mux.Handle("/api/dsn-keys", adminHandler)
	mux.Handle("/api/dsn-keys/", adminHandler)
	mux.Handle("/api/source-maps", adminHandler)
	mux.Handle("/api/source-maps/", adminHandler)
	mux.Handle("/api/browser/", browserHandler)
	mux.Handle("/health", chassis.Health(nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := chassis.NewSupervisor(ctx)
	sup.Go(func(ctx context.Context) error {
		return browserrelay.RunRetentionWorker(ctx, store, config.Int("RETENTION_DAYS", retentionDays), lg)
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		lg.Info("relay-service listening", logging.SD("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Critical("http server failed", logging.SD("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down", logging.SD("signal", "received"))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("http server shutdown error", logging.SD("error", err.Error()))
	}

	if err := sup.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		lg.Error("worker exited with error", logging.SD("error", err.Error()))
	}
}

func healthcheck() int {
	c := &http.Client{Timeout: 2 * time.Second}
	resp, err := c.Get(fmt.Sprintf("http://127.0.0.1:%s/health", port))
	if err != nil {
		return 1
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}
