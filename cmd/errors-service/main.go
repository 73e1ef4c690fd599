/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Command errors-service runs the Error Tracker (spec.md §4.1), listening
// on port 5010.
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

	"github.com/mattmezza/monlight/internal/chassis"
	"github.com/mattmezza/monlight/internal/config"
	"github.com/mattmezza/monlight/internal/errortracker"
	"github.com/mattmezza/monlight/internal/logging"
	"github.com/mattmezza/monlight/internal/sqlitestore"
)

const (
	port          = "5010"
	rateLimitRPM  = 100
	maxBodySize   = 256 * bytesize.KiB
	defaultDBPath = "./data/errors.db"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--healthcheck" {
		os.Exit(healthcheck())
	}

	lg := logging.NewStderr("errors-service", logging.LevelFromString(config.String("LOG_LEVEL", "INFO")))

	apiKey, err := config.Required("API_KEY")
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

	if err := chassis.RunMigrations(db, errortracker.Migrations); err != nil {
		lg.Critical("failed to run migrations", logging.SD("error", err.Error()))
		os.Exit(1)
	}

	var notifier errortracker.Notifier = errortracker.NoopNotifier{}
	if token := config.String("POSTMARK_API_TOKEN", ""); token != "" {
		from := config.String("POSTMARK_FROM_EMAIL", "")
		notifier = errortracker.NewPostmarkNotifier(token, from, lg)
	}
	recipients := config.StringList("ALERT_EMAILS", nil)
	baseURL := config.String("BASE_URL", "")

	svc := errortracker.NewService(db, notifier, lg, baseURL, recipients)
	retentionDays := config.Int("RETENTION_DAYS", 90)

	limiter := chassis.NewRateLimiter(rateLimitRPM, time.Minute)
	handler := chassis.Chain(
		errortracker.Routes(svc),
		chassis.RequestID(),
		chassis.Recover(lg),
		limiter.Middleware,
		chassis.BodySizeGate(int64(config.Bytes("MAX_BODY_SIZE", maxBodySize))),
		chassis.APIKeyAuth("X-API-Key", apiKey),
	)

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/health", chassis.Health(nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := chassis.NewSupervisor(ctx)
	sup.Go(func(ctx context.Context) error {
		return errortracker.RunRetentionWorker(ctx, svc, retentionDays, lg)
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		lg.Info("errors-service listening", logging.SD("port", port))
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
