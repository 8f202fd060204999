package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adhocore/gronx"
	"github.com/gofrs/flock"

	"debrief/internal/config"
	"debrief/internal/jobs"
	"debrief/internal/logging"
	"debrief/internal/notifications"
	"debrief/internal/pipeline"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipe     *pipeline.Pipeline
	queue    *jobs.Store
	runner   *jobs.Runner
	notifier notifications.Service
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies. The runner is built
// here so every pipeline handler is registered exactly once.
func New(cfg *config.Config, pipe *pipeline.Pipeline, queue *jobs.Store, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || pipe == nil || queue == nil {
		return nil, errors.New("daemon requires config, pipeline, and job store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewNop()
	}

	runner := jobs.NewRunner(queue, jobs.RunnerConfig{
		Workers:      cfg.Workflow.WorkerCount,
		PollInterval: time.Duration(cfg.Workflow.PollInterval) * time.Second,
		RetryDelay:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
	}, logger)
	pipe.RegisterHandlers(runner)

	lockPath := filepath.Join(cfg.Paths.DataDir, "debriefd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		pipe:     pipe,
		queue:    queue,
		runner:   runner,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the instance lock and launches the runner, the cleanup
// scheduler, and the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another debrief daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.runner.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start job runner: %w", err)
	}
	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.runner.Stop()
			_ = d.lock.Unlock()
			cancel()
			return fmt.Errorf("start api server: %w", err)
		}
	}

	if schedule := strings.TrimSpace(d.cfg.Workflow.CleanupSchedule); schedule != "" {
		d.wg.Add(1)
		go d.cleanupLoop(runCtx, schedule)
	}

	d.running.Store(true)
	d.logger.InfoContext(ctx, "debrief daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.APIAddr()))
	return nil
}

// Stop halts background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.runner.Stop()
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("debrief daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	return d.queue.Close()
}

// APIAddr returns the bound API address, empty when the API is disabled.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// TestNotification triggers a test push using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// cleanupLoop fires the retention sweep whenever the cron schedule is due,
// checking once per minute.
func (d *Daemon) cleanupLoop(ctx context.Context, schedule string) {
	defer d.wg.Done()
	gron := gronx.New()
	retention := time.Duration(d.cfg.Workflow.RetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		due, err := gron.IsDue(schedule)
		if err != nil {
			d.logger.ErrorContext(ctx, "invalid cleanup schedule", logging.Error(err))
			return
		}
		if !due {
			continue
		}
		if _, err := d.pipe.Cleanup(ctx, retention); err != nil && ctx.Err() == nil {
			d.logger.ErrorContext(ctx, "cleanup sweep failed", logging.Error(err))
		}
	}
}
