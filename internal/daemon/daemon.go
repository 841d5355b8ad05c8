// Package daemon runs the background pipeline service: it claims pending
// runs from the store, executes them with bounded concurrency, and enforces
// single-instance operation with a lock file.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"
	"golang.org/x/sync/semaphore"

	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/pipeline"
	"loom/internal/runs"
)

// Daemon owns the poll loop and the per-run executors.
type Daemon struct {
	cfg    *config.Config
	store  *runs.Store
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	pollInterval  time.Duration
	retryInterval time.Duration
	sem           *semaphore.Weighted

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
	lastErr  string
}

// Status is a point-in-time daemon summary for status reporting.
type Status struct {
	Running   bool
	PID       int
	RunStats  map[runs.Status]int
	LastError string
	LockPath  string
	DBPath    string
}

// New constructs a daemon. The store must already be open.
func New(cfg *config.Config, store *runs.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}
	maxRuns := cfg.Workflow.MaxConcurrentRuns
	if maxRuns <= 0 {
		maxRuns = 1
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "loom.lock")
	return &Daemon{
		cfg:           cfg,
		store:         store,
		logger:        logging.NewComponentLogger(logger, "daemon"),
		lockPath:      lockPath,
		lock:          flock.New(lockPath),
		pollInterval:  time.Duration(cfg.Workflow.RunPollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		sem:           semaphore.NewWeighted(int64(maxRuns)),
		inflight:      make(map[string]struct{}),
	}, nil
}

// Start acquires the instance lock, fails over runs left mid-stage by a
// previous process, and launches the poll loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another loom daemon instance is already running")
	}

	if reset, err := d.store.ResetStuckProcessing(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reset stuck runs: %w", err)
	} else if reset > 0 {
		d.logger.Warn("failed runs left by previous instance",
			logging.Int64("count", reset),
			logging.String(logging.FieldEventType, "stuck_runs_reset"),
		)
	}

	d.cleanupLogs()

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)
	d.wg.Add(1)
	go d.poll(runCtx)

	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("max_concurrent_runs", d.cfg.Workflow.MaxConcurrentRuns),
	)
	return nil
}

// Stop cancels in-flight work, waits for it to unwind, and releases the
// lock. Interrupted runs are failed on the next Start.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Submit validates and persists a new run. Parameter overrides are frozen
// onto the run row by pipeline.Submit, so a restarted daemon executes the
// run with the same snapshot.
func (d *Daemon) Submit(ctx context.Context, sub runs.Submission) (*runs.Run, error) {
	return pipeline.Submit(ctx, d.cfg, d.store, sub)
}

// Status reports current daemon state and run counts.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:  d.running.Load(),
		PID:      os.Getpid(),
		LockPath: d.lockPath,
		DBPath:   d.store.Path(),
	}
	d.mu.Lock()
	status.LastError = d.lastErr
	d.mu.Unlock()

	counts, err := d.store.CountByStatus(ctx)
	if err != nil {
		d.logger.Warn("run stats unavailable", logging.Error(err))
	} else {
		status.RunStats = counts
	}
	return status
}

// ListRuns returns runs filtered by status.
func (d *Daemon) ListRuns(ctx context.Context, statuses []runs.Status) ([]*runs.Run, error) {
	return d.store.List(ctx, statuses...)
}

// GetRun fetches a single run, or nil when unknown.
func (d *Daemon) GetRun(ctx context.Context, id string) (*runs.Run, error) {
	return d.store.GetByID(ctx, id)
}

func (d *Daemon) poll(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		run, err := d.store.NextPending(ctx)
		if err != nil {
			d.setLastError(err)
			d.logger.Error("failed to fetch next pending run",
				logging.Error(err),
				logging.String(logging.FieldEventType, "run_fetch_failed"),
			)
			d.sleep(ctx, d.retryInterval)
			continue
		}
		if run == nil || d.isInflight(run.ID) {
			d.sleep(ctx, d.pollInterval)
			continue
		}

		if err := d.sem.Acquire(ctx, 1); err != nil {
			return
		}
		d.markInflight(run.ID)
		d.wg.Add(1)
		go d.executeRun(ctx, run)
	}
}

func (d *Daemon) executeRun(ctx context.Context, run *runs.Run) {
	defer func() {
		d.clearInflight(run.ID)
		d.sem.Release(1)
		d.wg.Done()
	}()

	cfg := pipeline.RunConfig(d.cfg, run)
	executor := pipeline.NewExecutor(cfg, d.store, d.logger, pipeline.NewStageSet(cfg, d.logger))
	if err := executor.Execute(ctx, run); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		d.setLastError(err)
	}
}

func (d *Daemon) cleanupLogs() {
	logging.CleanupOldLogs(d.logger, d.cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     d.cfg.Paths.LogDir,
		Pattern: "*.log",
		Exclude: []string{filepath.Join(d.cfg.Paths.LogDir, "loom.log")},
	})
}

func (d *Daemon) sleep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(interval):
	}
}

func (d *Daemon) isInflight(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inflight[id]
	return ok
}

func (d *Daemon) markInflight(id string) {
	d.mu.Lock()
	d.inflight[id] = struct{}{}
	d.mu.Unlock()
}

func (d *Daemon) clearInflight(id string) {
	d.mu.Lock()
	delete(d.inflight, id)
	d.mu.Unlock()
}

func (d *Daemon) setLastError(err error) {
	d.mu.Lock()
	d.lastErr = err.Error()
	d.mu.Unlock()
}
