package coord

import "context"

// Store is the coordination surface the pipeline mutates concurrently.
// SetAdd, Incr, and ResetCounter must be atomic per call.
type Store interface {
	// SetAdd inserts member into the set at key. Inserting an existing
	// member is a no-op, so redelivered chunks never double-count.
	SetAdd(ctx context.Context, key string, member int) error
	// SetMembers returns the members of the set at key in ascending order.
	SetMembers(ctx context.Context, key string) ([]int, error)
	// SetCard returns the cardinality of the set at key.
	SetCard(ctx context.Context, key string) (int, error)
	// Incr atomically increments the counter at key and returns the
	// post-increment value. Missing counters start at zero.
	Incr(ctx context.Context, key string) (int64, error)
	// ResetCounter sets the counter at key to zero, starting a new
	// dispatch generation.
	ResetCounter(ctx context.Context, key string) error
	// Counter returns the current counter value (zero when absent).
	Counter(ctx context.Context, key string) (int64, error)
	// Set stores a scalar blob at key, overwriting any prior value.
	Set(ctx context.Context, key, value string) error
	// Get returns the scalar at key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// DeletePrefix removes all sets, counters, and scalars whose key
	// starts with prefix. Used by the cleanup sweep.
	DeletePrefix(ctx context.Context, prefix string) error

	Close() error
}
