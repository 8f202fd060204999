package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"debrief/internal/logging"
	"debrief/internal/services"
)

// HandlerFunc executes one claimed job.
type HandlerFunc func(ctx context.Context, job *Job) error

// Runner polls the store with a pool of workers and dispatches claimed jobs
// to registered handlers.
type Runner struct {
	store        *Store
	logger       *slog.Logger
	workers      int
	pollInterval time.Duration
	retryDelay   time.Duration

	handlers map[string]HandlerFunc

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// RunnerConfig sizes the worker pool and its polling cadence.
type RunnerConfig struct {
	Workers      int
	PollInterval time.Duration
	RetryDelay   time.Duration
}

// NewRunner constructs a stopped runner. Register handlers before Start.
func NewRunner(store *Store, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	return &Runner{
		store:        store,
		logger:       logging.NewComponentLogger(logger, "jobs"),
		workers:      cfg.Workers,
		pollInterval: cfg.PollInterval,
		retryDelay:   cfg.RetryDelay,
		handlers:     make(map[string]HandlerFunc),
	}
}

// Register binds a handler to a task name. Registering after Start is a
// programming error.
func (r *Runner) Register(task string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		panic("jobs: Register called on a running Runner")
	}
	r.handlers[task] = handler
}

// Start launches the worker pool. It returns immediately; workers run until
// Stop or until ctx is canceled.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("jobs: runner already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.workerLoop(runCtx, i)
	}
	r.logger.InfoContext(ctx, "job runner started", logging.Int("workers", r.workers))
	return nil
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	r.logger.Info("job runner stopped")
}

func (r *Runner) workerLoop(ctx context.Context, worker int) {
	defer r.wg.Done()
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		worked := r.runOne(ctx, worker)
		if ctx.Err() != nil {
			return
		}
		if worked {
			timer.Reset(0)
		} else {
			timer.Reset(r.pollInterval)
		}
	}
}

// runOne claims and executes at most one job, reporting whether any work was
// found.
func (r *Runner) runOne(ctx context.Context, worker int) bool {
	job, err := r.store.Claim(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "claim job failed", logging.Error(err))
		}
		return false
	}
	if job == nil {
		return false
	}

	requestID := uuid.NewString()
	logger := r.logger.With(
		logging.String(logging.FieldTask, job.Task),
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldRequestID, requestID),
		logging.Int("attempt", job.Attempts),
		logging.Int("worker", worker),
	)

	handler, ok := r.handlers[job.Task]
	if !ok {
		logger.ErrorContext(ctx, "no handler registered")
		if err := r.store.FailPermanently(ctx, job.ID, "no handler registered for task"); err != nil {
			logger.ErrorContext(ctx, "mark job failed", logging.Error(err))
		}
		return true
	}

	start := time.Now()
	handlerErr := handler(ctx, job)
	elapsed := time.Since(start)

	switch {
	case handlerErr == nil:
		logger.InfoContext(ctx, "job completed", logging.Duration("elapsed", elapsed))
		if err := r.store.MarkDone(ctx, job.ID); err != nil {
			logger.ErrorContext(ctx, "mark job done", logging.Error(err))
		}
	case !services.IsRetryable(handlerErr):
		logger.ErrorContext(ctx, "job failed permanently",
			logging.Error(handlerErr), logging.Duration("elapsed", elapsed))
		if err := r.store.FailPermanently(ctx, job.ID, handlerErr.Error()); err != nil {
			logger.ErrorContext(ctx, "mark job failed", logging.Error(err))
		}
	default:
		attrs := []logging.Attr{
			logging.Error(handlerErr),
			logging.Duration("elapsed", elapsed),
			logging.Bool("final_attempt", job.FinalAttempt()),
		}
		if job.FinalAttempt() {
			attrs = append(attrs,
				logging.String(logging.FieldErrorHint, "job will be marked failed, check last_error for the cause"))
		}
		logger.WarnContext(ctx, "job failed", logging.Args(attrs...)...)
		if err := r.store.MarkFailed(ctx, job.ID, handlerErr.Error(), r.retryDelay); err != nil {
			logger.ErrorContext(ctx, "mark job failed", logging.Error(err))
		}
	}
	return true
}
