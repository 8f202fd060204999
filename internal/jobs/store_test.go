package jobs

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type mergeArgs struct {
	ClientID  string `json:"client_id"`
	MeetingID string `json:"meeting_id"`
}

func TestEnqueueAndClaim(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	created, err := store.Enqueue(ctx, "merge_meeting", mergeArgs{ClientID: "c1", MeetingID: "m1"}, EnqueueOptions{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if !created {
		t.Fatal("expected new job")
	}

	job, err := store.Claim(ctx)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if job == nil {
		t.Fatal("expected claimable job")
	}
	if job.Task != "merge_meeting" || job.Attempts != 1 || job.Status != StatusRunning {
		t.Fatalf("unexpected job: %+v", job)
	}
	var args mergeArgs
	if err := job.DecodeArgs(&args); err != nil {
		t.Fatalf("DecodeArgs: %v", err)
	}
	if args.ClientID != "c1" || args.MeetingID != "m1" {
		t.Fatalf("args = %+v", args)
	}

	if next, err := store.Claim(ctx); err != nil || next != nil {
		t.Fatalf("running job must not be claimable again, got %+v err=%v", next, err)
	}
}

func TestEnqueueIdempotencyKeyCollapsesDuplicates(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	opts := EnqueueOptions{IdempotencyKey: "merge:c1:m1"}

	first, err := store.Enqueue(ctx, "merge_meeting", mergeArgs{ClientID: "c1", MeetingID: "m1"}, opts)
	if err != nil || !first {
		t.Fatalf("first enqueue: created=%v err=%v", first, err)
	}
	second, err := store.Enqueue(ctx, "merge_meeting", mergeArgs{ClientID: "c1", MeetingID: "m1"}, opts)
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	if second {
		t.Fatal("duplicate idempotency key must not create a second job")
	}

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[StatusPending] != 1 {
		t.Fatalf("expected one pending job, got %v", counts)
	}
}

func TestEnqueueConcurrentSameKeyCreatesOne(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	const goroutines = 8
	var wg sync.WaitGroup
	created := make(chan bool, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Enqueue(ctx, "merge_meeting", mergeArgs{ClientID: "c1", MeetingID: "m1"},
				EnqueueOptions{IdempotencyKey: "merge:c1:m1"})
			if err != nil {
				t.Errorf("Enqueue: %v", err)
				return
			}
			created <- ok
		}()
	}
	wg.Wait()
	close(created)

	var total int
	for ok := range created {
		if ok {
			total++
		}
	}
	if total != 1 {
		t.Fatalf("expected exactly one creation, got %d", total)
	}
}

func TestMarkFailedRetriesThenFails(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	store.now = func() time.Time { return time.Unix(1000, 0) }

	if _, err := store.Enqueue(ctx, "transcribe_chunk", mergeArgs{}, EnqueueOptions{MaxAttempts: 2}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job, err := store.Claim(ctx)
	if err != nil || job == nil {
		t.Fatalf("Claim: %+v err=%v", job, err)
	}
	if job.FinalAttempt() {
		t.Fatal("first of two attempts must not be final")
	}
	if err := store.MarkFailed(ctx, job.ID, "boom", 30*time.Second); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	// Not yet claimable: retry delay pushes run_at into the future.
	if next, err := store.Claim(ctx); err != nil || next != nil {
		t.Fatalf("job should be delayed, got %+v err=%v", next, err)
	}

	store.now = func() time.Time { return time.Unix(1031, 0) }
	job, err = store.Claim(ctx)
	if err != nil || job == nil {
		t.Fatalf("Claim after delay: %+v err=%v", job, err)
	}
	if !job.FinalAttempt() {
		t.Fatal("second of two attempts must be final")
	}
	if err := store.MarkFailed(ctx, job.ID, "boom again", 30*time.Second); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusFailed || got.LastError != "boom again" {
		t.Fatalf("exhausted job should be failed, got %+v", got)
	}
}

func TestDelayedEnqueueNotImmediatelyClaimable(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	store.now = func() time.Time { return time.Unix(1000, 0) }

	if _, err := store.Enqueue(ctx, "cleanup", struct{}{}, EnqueueOptions{Delay: time.Minute}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job, err := store.Claim(ctx); err != nil || job != nil {
		t.Fatalf("delayed job claimed early: %+v err=%v", job, err)
	}
	store.now = func() time.Time { return time.Unix(1061, 0) }
	if job, err := store.Claim(ctx); err != nil || job == nil {
		t.Fatalf("delayed job should now be claimable: %+v err=%v", job, err)
	}
}

func TestPruneFinished(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	store.now = func() time.Time { return time.Unix(1000, 0) }

	if _, err := store.Enqueue(ctx, "merge_meeting", struct{}{}, EnqueueOptions{}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	job, err := store.Claim(ctx)
	if err != nil || job == nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := store.MarkDone(ctx, job.ID); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}

	removed, err := store.PruneFinished(ctx, time.Unix(2000, 0))
	if err != nil {
		t.Fatalf("PruneFinished: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one pruned job, got %d", removed)
	}
}
