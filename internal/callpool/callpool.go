// Package callpool maintains a pool of long-lived external Cairo executor
// processes and funnels call requests to whichever worker is free.
//
// Start launches the first worker synchronously and fails fast if that
// launch fails. After bootstrap a single supervisor goroutine keeps the
// pool at the desired size: replacements are spawned at most once per
// cooldown interval, except that a pool that has dropped to zero live
// workers is refilled immediately. Shutdown is cooperative and total; the
// completion channel resolves only after every spawned worker has exited.
package callpool

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

const (
	// DefaultCooldown is the minimum interval between non-emergency spawns.
	DefaultCooldown = time.Second

	// DefaultExitGrace bounds how long a worker waits after shutdown for
	// its process to exit before killing the process group.
	DefaultExitGrace = 5 * time.Second
)

// ProcessBuilder creates executable commands for executor workers. It
// decouples the pool from executor binary specifics.
type ProcessBuilder interface {
	// BuildCommand returns a ready-to-start command for the given worker.
	// The command must not be started yet and must leave Stdin and Stdout
	// unset; the worker task owns both pipes.
	BuildCommand(ctx context.Context, workerID int) (*exec.Cmd, error)

	// Name returns a human-readable name for this process type.
	Name() string
}

// Callbacks contains optional hooks for pool lifecycle events. Hooks are
// invoked from the supervisor goroutine and must not block.
type Callbacks struct {
	// OnSpawn is called when a worker task is created. emergency is true
	// for the cooldown-bypassing respawn of an empty pool.
	OnSpawn func(workerID int, emergency bool)

	// OnLaunched is called when a worker's process is up.
	OnLaunched func(workerID, pid int)

	// OnHandled is called after a worker completed one command.
	OnHandled func(workerID int, elapsed time.Duration, status string)

	// OnFailed is called when a worker reports a failure (launch error,
	// crash, unreadable reply).
	OnFailed func(workerID int, err error)

	// OnExit is called when a worker task has finished for any reason.
	OnExit func(workerID int)
}

// Config holds pool configuration.
type Config struct {
	Builder   ProcessBuilder
	Count     int           // desired worker count, must be >= 1
	Cooldown  time.Duration // 0 means DefaultCooldown
	ExitGrace time.Duration // 0 means DefaultExitGrace
	Logger    *slog.Logger
	Callbacks Callbacks
}

// Start launches the pool and blocks until the first worker has either
// launched (success) or failed (the error is returned and nothing keeps
// running). The supervisor then maintains cfg.Count workers until ctx is
// cancelled. The returned channel closes once every spawned worker has
// exited and the pool is fully torn down.
func Start(ctx context.Context, cfg Config) (Handle, <-chan struct{}, error) {
	if cfg.Count < 1 {
		return Handle{}, nil, fmt.Errorf("callpool: worker count must be >= 1, got %d", cfg.Count)
	}
	if cfg.Builder == nil {
		return Handle{}, nil, fmt.Errorf("callpool: nil process builder")
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.ExitGrace <= 0 {
		cfg.ExitGrace = DefaultExitGrace
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &supervisor{
		cfg: cfg,
		// Capacity 1 is deliberate backpressure: callers suspend until a
		// worker has room, which is the pool's only saturation signal.
		commands: make(chan command, 1),
		status:   make(chan statusEvent, 1),
		shutdown: make(chan struct{}),
		// Live workers never exceed cfg.Count, so exit sends never block.
		exits:  make(chan int, cfg.Count),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}

	wid := s.spawn(ctx)
	if cb := cfg.Callbacks.OnSpawn; cb != nil {
		cb(wid, false)
	}

	// Startup contract: the first worker's first status event decides the
	// fate of the whole pool.
	switch ev := <-s.status; ev.kind {
	case eventLaunched:
		s.observeLaunched(ev)
	case eventFailed:
		// Reap the failed task so no goroutine leaks behind the error.
		<-s.exits
		s.outstanding--
		return Handle{}, nil, fmt.Errorf("launch first call executor: %w", ev.err)
	case eventHandled:
		panic("callpool: first status event must not be a handled command")
	}

	go s.run(ctx)

	return Handle{commands: s.commands, closed: s.closed}, s.done, nil
}

// supervisor owns the pool state. Everything below the channel fields is
// touched only from the supervisor goroutine (and Start, before it runs).
type supervisor struct {
	cfg      Config
	commands chan command
	status   chan statusEvent
	shutdown chan struct{} // closed exactly once to fan out the stop signal
	exits    chan int      // worker ids, sent as each task returns
	closed   chan struct{} // unblocks Handle.Call after teardown
	done     chan struct{} // completion token

	outstanding int
	nextID      int
}

// run is the single-threaded reactive loop: it wakes on the stop request,
// a status event, a worker exit, or cooldown expiry, and never blocks on
// anything else.
func (s *supervisor) run(ctx context.Context) {
	defer close(s.done)

	log := s.cfg.Logger
	cooldown := time.NewTimer(s.cfg.Cooldown)
	defer cooldown.Stop()
	armed := true

	for {
		select {
		case <-ctx.Done():
			// No spawns happen once the stop request is observed. Workers
			// that never notice the signal are bounded by ExitGrace.
			close(s.shutdown)
			log.Info("pool_draining", "outstanding", s.outstanding)
			for s.outstanding > 0 {
				id := <-s.exits
				s.outstanding--
				s.observeExit(id)
			}
			close(s.closed)
			log.Info("pool_stopped")
			return

		case ev := <-s.status:
			switch ev.kind {
			case eventLaunched:
				s.observeLaunched(ev)
			case eventHandled:
				log.Debug("command_handled",
					"worker_id", ev.workerID,
					"status", ev.status,
					"elapsed", ev.elapsed.String(),
				)
				if cb := s.cfg.Callbacks.OnHandled; cb != nil {
					cb(ev.workerID, ev.elapsed, ev.status)
				}
			case eventFailed:
				// Informational after bootstrap: recovery is driven by the
				// task's own exit, observed on s.exits.
				log.Warn("worker_failure", "worker_id", ev.workerID, "error", ev.err)
				if cb := s.cfg.Callbacks.OnFailed; cb != nil {
					cb(ev.workerID, ev.err)
				}
			}

		case id := <-s.exits:
			s.outstanding--
			s.observeExit(id)
			if s.outstanding == 0 && ctx.Err() == nil {
				// An empty pool means zero throughput, which always
				// outweighs the risk of a repeated failure: refill now,
				// bypassing the cooldown.
				log.Warn("pool_empty", "action", "emergency_spawn")
				wid := s.spawn(ctx)
				if cb := s.cfg.Callbacks.OnSpawn; cb != nil {
					cb(wid, true)
				}
			}

		case <-cooldown.C:
			armed = false
			if s.outstanding < s.cfg.Count && ctx.Err() == nil {
				wid := s.spawn(ctx)
				if cb := s.cfg.Callbacks.OnSpawn; cb != nil {
					cb(wid, false)
				}
			}
		}

		// Keep the cooldown running only while the pool is short-handed.
		if !armed && s.outstanding < s.cfg.Count {
			cooldown.Reset(s.cfg.Cooldown)
			armed = true
		}
	}
}

// spawn creates one worker task and returns its id. Spawn pacing is the
// caller's responsibility.
func (s *supervisor) spawn(ctx context.Context) int {
	id := s.nextID
	s.nextID++
	s.outstanding++

	w := &worker{
		id:        id,
		builder:   s.cfg.Builder,
		exitGrace: s.cfg.ExitGrace,
		logger:    s.cfg.Logger,
		commands:  s.commands,
		status:    s.status,
		shutdown:  s.shutdown,
	}
	go func() {
		w.run(ctx)
		s.exits <- id
	}()

	s.cfg.Logger.Debug("worker_spawned", "worker_id", id, "outstanding", s.outstanding)
	return id
}

func (s *supervisor) observeLaunched(ev statusEvent) {
	s.cfg.Logger.Info("worker_launched", "worker_id", ev.workerID, "pid", ev.pid)
	if cb := s.cfg.Callbacks.OnLaunched; cb != nil {
		cb(ev.workerID, ev.pid)
	}
}

func (s *supervisor) observeExit(id int) {
	s.cfg.Logger.Info("worker_exited", "worker_id", id, "outstanding", s.outstanding)
	if cb := s.cfg.Callbacks.OnExit; cb != nil {
		cb(id)
	}
}
