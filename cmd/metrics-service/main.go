/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Command metrics-service runs the Metrics Collector (spec.md §4.3),
// listening on port 5012.
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
	"github.com/mattmezza/monlight/internal/logging"
	"github.com/mattmezza/monlight/internal/metricscollector"
	"github.com/mattmezza/monlight/internal/sqlitestore"
)

const (
	port          = "5012"
	rateLimitRPM  = 200
	maxBodySize   = 512 * bytesize.KiB
	defaultDBPath = "./data/metrics.db"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--healthcheck" {
		os.Exit(healthcheck())
	}

	lg := logging.NewStderr("metrics-service", logging.LevelFromString(config.String("LOG_LEVEL", "INFO")))

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

	if err := chassis.RunMigrations(db, metricscollector.Migrations); err != nil {
		lg.Critical("failed to run migrations", logging.SD("error", err.Error()))
		os.Exit(1)
	}

	store := metricscollector.NewStore(db)
	svc := metricscollector.NewService(store)

	aggInterval := config.DurationSeconds("AGGREGATION_INTERVAL", 60*time.Second)
	rawHours := config.Int("RETENTION_RAW", 1)
	minuteHours := config.Int("RETENTION_MINUTE", 24)
	hourlyDays := config.Int("RETENTION_HOURLY", 30)

	limiter := chassis.NewRateLimiter(rateLimitRPM, time.Minute)
	handler := chassis.Chain(
		metricscollector.Routes(svc),
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
		return metricscollector.RunAggregationWorker(ctx, store, aggInterval, rawHours, minuteHours, hourlyDays, lg)
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		lg.Info("metrics-service listening", logging.SD("port", port))
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
