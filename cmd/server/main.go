/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the points engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from POINTS_* environment variables
  2. Configure logging
  3. Initialize SQLite store
  4. Load the role/reward catalog
  5. Wire the engine (store, catalog, wallet, metrics)
  6. Start the expiry reminder scheduler
  7. Start HTTP server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  POINTS_DB_PATH=./data/points.db ./server

  # Run with in-memory database
  POINTS_DB_PATH=":memory:" ./server

  # Run on different port
  POINTS_PORT=3000 ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/warp/points-engine/api"
	"github.com/warp/points-engine/catalog"
	"github.com/warp/points-engine/config"
	"github.com/warp/points-engine/engine"
	"github.com/warp/points-engine/metrics"
	"github.com/warp/points-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Load catalog
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logrus.WithError(err).WithField("path", cfg.CatalogPath).Fatal("failed to load catalog")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Wire the engine. MemoryWallet stands in for the external wallet
	// service until its client is available.
	eng := engine.New(store, cat, engine.NewMemoryWallet(), engine.WithMetrics(m))

	// Expiry reminder scheduler
	sched := api.NewReminderScheduler(eng, cfg.ReminderCron, cfg.ReminderWindow())
	if err := sched.Start(); err != nil {
		logrus.WithError(err).Fatal("failed to start reminder scheduler")
	}
	defer sched.Stop()

	// Router and server
	handler := api.NewHandler(eng, cat)
	router := api.NewRouter(handler, registry)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Fatal("server forced to shutdown")
	}

	logrus.Info("server stopped")
}
