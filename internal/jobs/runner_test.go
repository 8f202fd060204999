package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"debrief/internal/services"
)

func waitForStatus(t *testing.T, store *Store, id int64, want Status) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %d never reached status %q", id, want)
	return nil
}

func TestRunnerExecutesRegisteredHandler(t *testing.T) {
	store := newStore(t)
	runner := NewRunner(store, RunnerConfig{Workers: 2, PollInterval: 10 * time.Millisecond}, nil)

	done := make(chan struct{})
	runner.Register("merge_meeting", func(ctx context.Context, job *Job) error {
		close(done)
		return nil
	})
	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer runner.Stop()

	if _, err := store.Enqueue(context.Background(), "merge_meeting", struct{}{}, EnqueueOptions{}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never ran")
	}
}

func TestRunnerRetriesRetryableFailure(t *testing.T) {
	store := newStore(t)
	runner := NewRunner(store, RunnerConfig{
		Workers:      1,
		PollInterval: 10 * time.Millisecond,
		RetryDelay:   time.Millisecond,
	}, nil)

	attempts := make(chan int, 8)
	runner.Register("transcribe_chunk", func(ctx context.Context, job *Job) error {
		attempts <- job.Attempts
		if job.Attempts < 2 {
			return services.Wrap(services.ErrTransient, "test", "run", "flaky", errors.New("transient"))
		}
		return nil
	})
	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer runner.Stop()

	if _, err := store.Enqueue(context.Background(), "transcribe_chunk", struct{}{}, EnqueueOptions{}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	var seen []int
	deadline := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case n := <-attempts:
			seen = append(seen, n)
		case <-deadline:
			t.Fatalf("expected a retry, saw attempts %v", seen)
		}
	}
	if seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("unexpected attempt sequence: %v", seen)
	}
}

func TestRunnerFailsValidationErrorsPermanently(t *testing.T) {
	store := newStore(t)
	runner := NewRunner(store, RunnerConfig{Workers: 1, PollInterval: 10 * time.Millisecond}, nil)

	ran := make(chan int64, 4)
	runner.Register("dispatch_meeting", func(ctx context.Context, job *Job) error {
		ran <- job.ID
		return services.Wrap(services.ErrValidation, "test", "run", "bad input", nil)
	})
	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer runner.Stop()

	if _, err := store.Enqueue(context.Background(), "dispatch_meeting", struct{}{}, EnqueueOptions{MaxAttempts: 3}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	var id int64
	select {
	case id = <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never ran")
	}

	job := waitForStatus(t, store, id, StatusFailed)
	if job.Attempts != 1 {
		t.Fatalf("validation failure must not retry, attempts=%d", job.Attempts)
	}
}

func TestRunnerFailsUnknownTask(t *testing.T) {
	store := newStore(t)
	runner := NewRunner(store, RunnerConfig{Workers: 1, PollInterval: 10 * time.Millisecond}, nil)
	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer runner.Stop()

	if _, err := store.Enqueue(context.Background(), "unregistered", struct{}{}, EnqueueOptions{}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		counts, err := store.CountByStatus(context.Background())
		if err != nil {
			t.Fatalf("CountByStatus: %v", err)
		}
		if counts[StatusFailed] == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("unregistered task never failed")
}
