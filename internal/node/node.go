// Package node wires the chain store, executor pool, and servers into a
// running cairod process.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mirovale/cairod/internal/callpool"
	"github.com/mirovale/cairod/internal/config"
	"github.com/mirovale/cairod/internal/metrics"
	"github.com/mirovale/cairod/internal/preflight"
	"github.com/mirovale/cairod/internal/process"
	"github.com/mirovale/cairod/internal/rpc"
	"github.com/mirovale/cairod/internal/stats"
	"github.com/mirovale/cairod/internal/storage"
	"github.com/mirovale/cairod/internal/timeseries"
	"github.com/mirovale/cairod/internal/tui"
)

// sampleInterval is the cadence of the rate/latency gauge refresh.
const sampleInterval = time.Second

// Node coordinates all components of a cairod process.
type Node struct {
	config  *config.Config
	logger  *slog.Logger
	version string

	runner  *process.ExecutorRunner
	stats   *stats.Aggregator
	tracker *timeseries.CallRateTracker
	metrics *metrics.Collector

	startTime time.Time
}

// New creates a Node from a validated configuration.
func New(cfg *config.Config, logger *slog.Logger, version string) *Node {
	execCfg := process.DefaultExecutorConfig(cfg.ExecutorPath, cfg.DatabasePath)
	execCfg.LogLevel = cfg.ExecutorLogLevel

	return &Node{
		config:  cfg,
		logger:  logger,
		version: version,
		runner:  process.NewExecutorRunner(execCfg),
		stats:   stats.NewAggregator(),
		tracker: timeseries.NewCallRateTracker(),
	}
}

// Runner returns the executor runner (for --print-cmd).
func (n *Node) Runner() *process.ExecutorRunner {
	return n.runner
}

// Run starts the node and blocks until shutdown.
func (n *Node) Run(ctx context.Context) error {
	n.startTime = time.Now()

	if !n.config.SkipPreflight {
		result := preflight.RunAll(n.config.Workers, n.config.ExecutorPath, n.config.DatabasePath)
		preflight.PrintResults(result)
		if !result.Passed {
			return fmt.Errorf("preflight checks failed (use --skip-preflight to override)")
		}
	}

	store, err := storage.Open(ctx, n.config.DatabasePath)
	if err != nil {
		return fmt.Errorf("open chain database: %w", err)
	}
	defer store.Close()

	chainID, err := store.ChainID(ctx)
	if err != nil {
		n.logger.Warn("chain_id_unavailable", "error", err)
		chainID = "unknown"
	}
	n.logger.Info("chain_state_opened",
		"db", n.config.DatabasePath,
		"chain_id", chainID,
	)

	if n.metrics == nil {
		n.metrics = metrics.NewCollector(metrics.CollectorConfig{
			Version:        n.version,
			ChainID:        chainID,
			DesiredWorkers: n.config.Workers,
		})
	}

	// The pool context is independent of the run context so that shutdown
	// can drain the pool after the stop condition fires. Pool start is
	// fail-fast: a first worker that cannot launch aborts the node before
	// any server comes up.
	poolCtx, poolCancel := context.WithCancel(context.Background())
	defer poolCancel()

	handle, poolDone, err := callpool.Start(poolCtx, callpool.Config{
		Builder:   n.runner,
		Count:     n.config.Workers,
		Cooldown:  n.config.Cooldown,
		ExitGrace: n.config.ExitGrace,
		Logger:    n.logger,
		Callbacks: n.poolCallbacks(),
	})
	if err != nil {
		return err
	}

	metricsServer := metrics.NewServer(n.config.MetricsAddr, n.logger)
	if err := metricsServer.Start(); err != nil {
		poolCancel()
		<-poolDone
		return fmt.Errorf("start metrics server: %w", err)
	}

	rpcCtx, rpcCancel := context.WithCancel(context.Background())
	defer rpcCancel()

	rpcErr := make(chan error, 1)
	go func() {
		server := rpc.New(rpc.Config{Listen: n.config.RPCAddr}, store, handle, n.logger)
		rpcErr <- server.Start(rpcCtx)
	}()

	go n.sampleLoop(poolCtx)

	var tuiDone chan error
	if n.config.TUIEnabled {
		tuiDone = make(chan error, 1)
		go func() {
			tuiDone <- tui.Run(poolCtx, tui.Config{
				Version:     n.version,
				Workers:     n.config.Workers,
				RPCAddr:     n.config.RPCAddr,
				MetricsAddr: n.config.MetricsAddr,
				Stats:       n.stats,
				Rates:       n.tracker,
			})
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	var durationTimer <-chan time.Time
	if n.config.Duration > 0 {
		durationTimer = time.After(n.config.Duration)
	}

	n.logger.Info("node_running",
		"rpc", n.config.RPCAddr,
		"metrics", n.config.MetricsAddr,
		"workers", n.config.Workers,
	)

	var runErr error
	rpcStopped := false

	select {
	case sig := <-sigCh:
		n.logger.Info("received_signal", "signal", sig.String())
	case <-durationTimer:
		n.logger.Info("duration_elapsed", "duration", n.config.Duration.String())
	case <-ctx.Done():
		n.logger.Info("context_cancelled")
	case err := <-rpcErr:
		rpcStopped = true
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	case err := <-tuiDone:
		if err != nil {
			n.logger.Warn("dashboard_error", "error", err)
		}
		n.logger.Info("dashboard_closed")
	}

	// Stop accepting traffic before draining the pool so no new calls
	// race the drain.
	rpcCancel()
	if !rpcStopped {
		if err := <-rpcErr; err != nil && !errors.Is(err, context.Canceled) && runErr == nil {
			runErr = err
		}
	}

	poolCancel()
	select {
	case <-poolDone:
		n.logger.Info("pool_drained")
	case <-time.After(n.config.ExitGrace + 10*time.Second):
		n.logger.Warn("pool_drain_timeout")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		n.logger.Warn("metrics_server_shutdown_error", "error", err)
	}

	fmt.Println(stats.FormatSummary(n.stats.Snapshot()))

	return runErr
}

// poolCallbacks fans pool lifecycle events out to the aggregator, the
// Prometheus collector, and the rate tracker. Hooks run on the supervisor
// goroutine, so they only do counter work.
func (n *Node) poolCallbacks() callpool.Callbacks {
	return callpool.Callbacks{
		OnSpawn: func(workerID int, emergency bool) {
			n.stats.RecordSpawn(emergency)
			n.metrics.RecordSpawn(emergency)
		},
		OnLaunched: func(workerID, pid int) {
			n.stats.RecordLaunch()
			n.metrics.WorkerLaunched()
		},
		OnHandled: func(workerID int, elapsed time.Duration, status string) {
			n.stats.RecordCall(elapsed, status)
			n.metrics.RecordCall(elapsed, status)
			n.tracker.AddCalls(1)
		},
		OnFailed: func(workerID int, err error) {
			n.stats.RecordFailure()
			n.metrics.RecordFailure()
		},
		OnExit: func(workerID int) {
			n.stats.RecordExit()
			n.metrics.WorkerExited()
		},
	}
}

// sampleLoop refreshes the rolling-rate and latency gauges once per second
// until ctx is cancelled.
func (n *Node) sampleLoop(ctx context.Context) {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.tracker.RecordSample()
			n.metrics.UpdateRates(n.tracker.Stats())

			snap := n.stats.Snapshot()
			if snap.TotalCalls > 0 {
				n.metrics.UpdateLatency(snap.LatencyP50, snap.LatencyP95, snap.LatencyP99)
			}
		}
	}
}
