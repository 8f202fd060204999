package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotExist is returned by Get for keys that were never written.
var ErrNotExist = errors.New("storage: key does not exist")

// Store is a durable key→blob store with overwrite semantics. No transactions
// are assumed across keys; every pipeline write is a by-key overwrite so
// reruns are safe.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// List returns the keys under prefix, sorted lexicographically.
	List(ctx context.Context, prefix string) ([]string, error)
}

// PutJSON marshals value with indentation and stores it at key.
func PutJSON(ctx context.Context, store Store, key string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Put(ctx, key, data)
}

// GetJSON loads the blob at key and unmarshals it into target.
func GetJSON(ctx context.Context, store Store, key string, target any) error {
	data, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
