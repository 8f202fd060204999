package jobs

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const (
	schemaVersion = 1

	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the jobs database under dataDir.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "jobs.db")
	// Pragmas ride the DSN so every pooled connection gets them; applying
	// them with Exec would configure only whichever connection the Exec
	// happened to land on, leaving the rest without a busy timeout.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	var version int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("jobs database schema version %d is not supported (want %d)", version, schemaVersion)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
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

// EnqueueOptions tune a single enqueue call.
type EnqueueOptions struct {
	// IdempotencyKey collapses duplicate enqueues: only the first insert
	// with a given key creates a job.
	IdempotencyKey string
	// MaxAttempts overrides the default of 3 when positive.
	MaxAttempts int
	// Delay postpones the first execution.
	Delay time.Duration
}

// Enqueue inserts a job and reports whether a new row was created. A false
// return with nil error means an existing job already holds the idempotency
// key.
func (s *Store) Enqueue(ctx context.Context, task string, args any, opts EnqueueOptions) (bool, error) {
	ctx = ensureContext(ctx)
	task = strings.TrimSpace(task)
	if task == "" {
		return false, errors.New("enqueue: task name required")
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return false, fmt.Errorf("enqueue %s: encode args: %w", task, err)
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	now := s.now()
	runAt := now.Add(opts.Delay).Unix()

	var key any
	if trimmed := strings.TrimSpace(opts.IdempotencyKey); trimmed != "" {
		key = trimmed
	}

	var res sql.Result
	err = retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `
			INSERT INTO jobs (task, args, idempotency_key, status, max_attempts, run_at, created_at, updated_at)
			VALUES (?, ?, ?, 'pending', ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`,
			task, string(encoded), key, maxAttempts, runAt, now.Unix(), now.Unix())
		return execErr
	})
	if err != nil {
		return false, fmt.Errorf("enqueue %s: %w", task, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enqueue %s: rows affected: %w", task, err)
	}
	return affected > 0, nil
}

// Claim atomically takes the oldest runnable job, flipping it to running and
// counting the attempt. Returns nil when nothing is claimable.
func (s *Store) Claim(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	now := s.now().Unix()

	var job Job
	var key sql.NullString
	var runAt, createdAt, updatedAt int64
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, `
			UPDATE jobs
			SET status = 'running', attempts = attempts + 1, updated_at = ?
			WHERE id = (
				SELECT id FROM jobs
				WHERE status = 'pending' AND run_at <= ?
				ORDER BY run_at, id
				LIMIT 1
			)
			RETURNING id, task, args, idempotency_key, status, attempts, max_attempts, last_error, run_at, created_at, updated_at`,
			now, now).Scan(
			&job.ID, &job.Task, (*argsScanner)(&job.Args), &key, (*string)(&job.Status),
			&job.Attempts, &job.MaxAttempts, &job.LastError, &runAt, &createdAt, &updatedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	job.IdempotencyKey = key.String
	job.RunAt = time.Unix(runAt, 0)
	job.CreatedAt = time.Unix(createdAt, 0)
	job.UpdatedAt = time.Unix(updatedAt, 0)
	return &job, nil
}

type argsScanner json.RawMessage

func (a *argsScanner) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*a = argsScanner(v)
	case []byte:
		*a = argsScanner(append([]byte{}, v...))
	case nil:
		*a = nil
	default:
		return fmt.Errorf("unsupported args column type %T", src)
	}
	return nil
}

// MarkDone records successful completion.
func (s *Store) MarkDone(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE jobs SET status = 'done', last_error = '', updated_at = ? WHERE id = ?`,
			s.now().Unix(), id)
		return err
	})
}

// MarkFailed records a failed execution. Jobs with attempts remaining go back
// to pending with the retry delay applied; exhausted jobs become failed.
func (s *Store) MarkFailed(ctx context.Context, id int64, cause string, retryDelay time.Duration) error {
	ctx = ensureContext(ctx)
	now := s.now()
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE jobs
			SET status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
			    run_at = ?,
			    last_error = ?,
			    updated_at = ?
			WHERE id = ?`,
			now.Add(retryDelay).Unix(), strings.TrimSpace(cause), now.Unix(), id)
		return err
	})
}

// FailPermanently marks a job failed regardless of remaining attempts.
func (s *Store) FailPermanently(ctx context.Context, id int64, cause string) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE jobs SET status = 'failed', last_error = ?, updated_at = ? WHERE id = ?`,
			strings.TrimSpace(cause), s.now().Unix(), id)
		return err
	})
}

// Get returns a job by id.
func (s *Store) Get(ctx context.Context, id int64) (*Job, error) {
	ctx = ensureContext(ctx)
	var job Job
	var key sql.NullString
	var runAt, createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, task, args, idempotency_key, status, attempts, max_attempts, last_error, run_at, created_at, updated_at
		FROM jobs WHERE id = ?`, id).Scan(
		&job.ID, &job.Task, (*argsScanner)(&job.Args), &key, (*string)(&job.Status),
		&job.Attempts, &job.MaxAttempts, &job.LastError, &runAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	job.IdempotencyKey = key.String
	job.RunAt = time.Unix(runAt, 0)
	job.CreatedAt = time.Unix(createdAt, 0)
	job.UpdatedAt = time.Unix(updatedAt, 0)
	return &job, nil
}

// CountByStatus returns how many jobs currently hold each status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()
	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

// PruneFinished deletes done and failed jobs older than cutoff. Returns the
// number of rows removed.
func (s *Store) PruneFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`DELETE FROM jobs WHERE status IN ('done', 'failed') AND updated_at < ?`,
			cutoff.Unix())
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return res.RowsAffected()
}
