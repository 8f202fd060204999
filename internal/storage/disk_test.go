package storage

import (
	"context"
	"errors"
	"testing"
)

func newDisk(t *testing.T) *Disk {
	t.Helper()
	store, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	return store
}

func TestPutGetOverwrite(t *testing.T) {
	ctx := context.Background()
	store := newDisk(t)
	key := ChunkKey("c1", "m1", 0, ".webm")

	if err := store.Put(ctx, key, []byte("first")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, key, []byte("second")); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	data, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("last write should win, got %q", data)
	}
}

func TestGetMissingReturnsErrNotExist(t *testing.T) {
	store := newDisk(t)
	_, err := store.Get(context.Background(), TranscriptKey("c1", "m1", 4))
	if !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestResolveChunkPrefersCandidateOrder(t *testing.T) {
	ctx := context.Background()
	store := newDisk(t)

	if err := store.Put(ctx, ChunkKey("c1", "m1", 0, ".mp3"), []byte("x")); err != nil {
		t.Fatalf("Put mp3: %v", err)
	}
	if err := store.Put(ctx, ChunkKey("c1", "m1", 0, ".aac"), []byte("x")); err != nil {
		t.Fatalf("Put aac: %v", err)
	}

	key, err := ResolveChunk(ctx, store, "c1", "m1", 0)
	if err != nil {
		t.Fatalf("ResolveChunk: %v", err)
	}
	if key != ChunkKey("c1", "m1", 0, ".aac") {
		t.Fatalf("expected .aac to win over .mp3, got %s", key)
	}
}

func TestResolveChunkDefaultsWhenMissing(t *testing.T) {
	ctx := context.Background()
	store := newDisk(t)
	key, err := ResolveChunk(ctx, store, "c1", "m1", 7)
	if err != nil {
		t.Fatalf("ResolveChunk: %v", err)
	}
	if key != ChunkKey("c1", "m1", 7, DefaultExtension) {
		t.Fatalf("expected default extension fallback, got %s", key)
	}
}

func TestListMeetings(t *testing.T) {
	ctx := context.Background()
	store := newDisk(t)
	_ = store.Put(ctx, EventKey("c1", "m2"), []byte("{}"))
	_ = store.Put(ctx, EventKey("c1", "m1"), []byte("{}"))
	_ = store.Put(ctx, MemoryKey("c1"), []byte("{}"))
	_ = store.Put(ctx, EventKey("c2", "other"), []byte("{}"))

	meetings, err := ListMeetings(ctx, store, "c1")
	if err != nil {
		t.Fatalf("ListMeetings: %v", err)
	}
	if len(meetings) != 2 || meetings[0] != "m1" || meetings[1] != "m2" {
		t.Fatalf("unexpected meetings: %v", meetings)
	}
}

func TestDeletePrunesEmptyDirs(t *testing.T) {
	ctx := context.Background()
	store := newDisk(t)
	key := ChunkKey("c1", "m1", 0, ".webm")
	if err := store.Put(ctx, key, []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	keys, err := store.List(ctx, "c1/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected empty listing, got %v", keys)
	}
}

func TestRejectsPathEscape(t *testing.T) {
	store := newDisk(t)
	if err := store.Put(context.Background(), "../escape", []byte("x")); err == nil {
		t.Fatal("expected invalid key error")
	}
}
