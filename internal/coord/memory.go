package coord

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store used by tests and by the upload
// simulator's dry-run mode. All operations take the same mutex, which gives
// the linearizability the barrier logic assumes.
type MemoryStore struct {
	mu       sync.Mutex
	sets     map[string]map[int]struct{}
	counters map[string]int64
	scalars  map[string]string
}

// NewMemoryStore returns an empty in-memory coordination store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets:     make(map[string]map[int]struct{}),
		counters: make(map[string]int64),
		scalars:  make(map[string]string),
	}
}

func (m *MemoryStore) SetAdd(_ context.Context, key string, member int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		set = make(map[int]struct{})
		m.sets[key] = set
	}
	set[member] = struct{}{}
	return nil
}

func (m *MemoryStore) SetMembers(_ context.Context, key string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.sets[key]
	members := make([]int, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Ints(members)
	return members, nil
}

func (m *MemoryStore) SetCard(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sets[key]), nil
}

func (m *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

func (m *MemoryStore) ResetCounter(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key] = 0
	return nil
}

func (m *MemoryStore) Counter(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key], nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scalars[key] = value
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.scalars[key]
	return value, ok, nil
}

func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.sets {
		if strings.HasPrefix(key, prefix) {
			delete(m.sets, key)
		}
	}
	for key := range m.counters {
		if strings.HasPrefix(key, prefix) {
			delete(m.counters, key)
		}
	}
	for key := range m.scalars {
		if strings.HasPrefix(key, prefix) {
			delete(m.scalars, key)
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
