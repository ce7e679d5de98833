// Command mcsd runs the material control service: the track graph, the
// per-vehicle telemetry façade, the action planner, the task store, and
// the JSON-RPC/WebSocket transport that fronts them.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	configpkg "materialcontrol/core/internal/config"
	"materialcontrol/core/internal/eventstream"
	"materialcontrol/core/internal/exec"
	"materialcontrol/core/internal/graph"
	"materialcontrol/core/internal/logging"
	"materialcontrol/core/internal/metrics"
	"materialcontrol/core/internal/planner"
	"materialcontrol/core/internal/rpcserver"
	"materialcontrol/core/internal/taskstore"
)

func main() {
	cfg, err := configpkg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize structured logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	track, err := loadTrack(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build track graph", logging.Error(err))
	}

	store, err := taskstore.NewSQLiteStore(cfg.TaskStorePath)
	if err != nil {
		logger.Fatal("failed to open task store", logging.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("task store close failed", logging.Error(err))
		}
	}()

	audit, err := taskstore.OpenAuditLog(cfg.AuditLogPath)
	if err != nil {
		logger.Fatal("failed to open audit log", logging.Error(err))
	}
	defer func() {
		if err := audit.Close(); err != nil {
			logger.Warn("audit log close failed", logging.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	plannerMetrics := metrics.NewPlanner(registry)

	execLogger := logger.With(logging.String("component", "exec"))
	scheduleExec := exec.New(track,
		exec.WithLogger(execLogger),
		exec.WithTimeout(cfg.OnlineUpdateTimeout),
		exec.WithToolWarnLevel(cfg.ToolWarnLevel),
	)

	hub := eventstream.New()
	bridgeLogger := logger.With(logging.String("component", "bridge"))
	bridge := exec.NewBridge(scheduleExec.Events(), store, audit, bridgeLogger, hub.Broadcast)

	sweeper := taskstore.NewSweeper(store, scheduleExec, cfg.SweepInterval)

	p := planner.New(track, scheduleExec, store, plannerMetrics, cfg.ScheduleInterval)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go bridge.Run(rootCtx)
	go sweeper.Run(rootCtx)
	go timeoutWatcher(rootCtx, scheduleExec, cfg.OnlineUpdateTimeout)
	p.Start(rootCtx)
	defer p.Stop()

	handler := buildHandler(scheduleExec, store, track, hub, registry, logger, cfg)
	server := &http.Server{Addr: cfg.Address, Handler: handler}

	go func() {
		logger.Info("mcs listening", logging.String("address", cfg.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("mcs server terminated", logging.Error(err))
		}
	}()

	waitForShutdown(logger)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", logging.Error(err))
	}
}

func loadTrack(cfg *configpkg.Config, logger *logging.Logger) (*graph.TrackGraph, error) {
	if cfg.GraphPath == "" {
		logger.Warn("no MCS_GRAPH_PATH configured; starting with an empty track graph")
		return graph.New(), nil
	}
	logger.Info("loading track graph", logging.String("path", cfg.GraphPath))
	return graph.LoadFromFile(cfg.GraphPath)
}

// timeoutWatcher is the per-vehicle liveness sweep mentioned in
// SPEC_FULL.md's scheduling model as one of the three long-lived
// background tasks, implemented here as a single periodic sweep over
// every live vehicle rather than one goroutine each.
func timeoutWatcher(ctx context.Context, e *exec.ScheduleExec, timeout time.Duration) {
	interval := timeout / 4
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.CheckTimeouts(now)
		}
	}
}

func buildHandler(e *exec.ScheduleExec, store taskstore.Store, track *graph.TrackGraph, hub *eventstream.Hub, registry *prometheus.Registry, logger *logging.Logger, cfg *configpkg.Config) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/ws/events", hub)

	rpc := rpcserver.NewHandlerSet(rpcserver.Options{
		Logger:     logger.With(logging.String("component", "rpc")),
		Exec:       e,
		Store:      store,
		Track:      track,
		AdminToken: cfg.AdminToken,
	})
	rpc.Register(mux)

	return logging.HTTPTraceMiddleware(logger)(mux)
}

func waitForShutdown(logger *logging.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", logging.String("signal", sig.String()))
}
