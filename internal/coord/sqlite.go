package coord

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; the store is transient, so a mismatched database is recreatable by
// deleting it.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore implements Store on a local SQLite database. Single-statement
// upserts give the atomicity the completion barriers rely on.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the coordination database under dataDir.
func Open(dataDir string) (*SQLiteStore, error) {
	dbPath := filepath.Join(dataDir, "coordination.db")
	// Pragmas ride the DSN so every pooled connection gets them; applying
	// them with Exec would configure only whichever connection the Exec
	// happened to land on, leaving the rest without a busy timeout.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &SQLiteStore{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// SetAdd inserts member into the set at key.
func (s *SQLiteStore) SetAdd(ctx context.Context, key string, member int) error {
	return s.execWithRetry(ctx,
		"INSERT OR IGNORE INTO set_members (key, member) VALUES (?, ?)", key, member)
}

// SetMembers returns the members of the set at key in ascending order.
func (s *SQLiteStore) SetMembers(ctx context.Context, key string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT member FROM set_members WHERE key = ? ORDER BY member", key)
	if err != nil {
		return nil, fmt.Errorf("query set members: %w", err)
	}
	defer rows.Close()

	var members []int
	for rows.Next() {
		var member int
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("scan set member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// SetCard returns the cardinality of the set at key.
func (s *SQLiteStore) SetCard(ctx context.Context, key string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM set_members WHERE key = ?", key).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count set members: %w", err)
	}
	return count, nil
}

// Incr atomically increments the counter at key and returns the new value.
func (s *SQLiteStore) Incr(ctx context.Context, key string) (int64, error) {
	var value int64
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`INSERT INTO counters (key, value) VALUES (?, 1)
			 ON CONFLICT(key) DO UPDATE SET value = value + 1
			 RETURNING value`, key).Scan(&value)
	})
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return value, nil
}

// ResetCounter sets the counter at key to zero.
func (s *SQLiteStore) ResetCounter(ctx context.Context, key string) error {
	return s.execWithRetry(ctx,
		`INSERT INTO counters (key, value) VALUES (?, 0)
		 ON CONFLICT(key) DO UPDATE SET value = 0`, key)
}

// Counter returns the current counter value, zero when absent.
func (s *SQLiteStore) Counter(ctx context.Context, key string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM counters WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	return value, nil
}

// Set stores a scalar blob at key.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	return s.execWithRetry(ctx,
		`INSERT INTO scalars (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
}

// Get returns the scalar at key and whether it exists.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM scalars WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read scalar: %w", err)
	}
	return value, true, nil
}

// DeletePrefix removes all entries whose key starts with prefix.
func (s *SQLiteStore) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := prefix + "%"
	for _, table := range []string{"set_members", "counters", "scalars"} {
		if err := s.execWithRetry(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE key LIKE ?", table), pattern); err != nil {
			return fmt.Errorf("delete %s by prefix: %w", table, err)
		}
	}
	return nil
}
