package jobs

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status describes where a job is in its lifecycle.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is one unit of queued work.
type Job struct {
	ID             int64
	Task           string
	Args           json.RawMessage
	IdempotencyKey string
	Status         Status
	Attempts       int
	MaxAttempts    int
	LastError      string
	RunAt          time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DecodeArgs unmarshals the job's argument payload into target.
func (j *Job) DecodeArgs(target any) error {
	if len(j.Args) == 0 {
		return fmt.Errorf("job %d (%s): empty args", j.ID, j.Task)
	}
	if err := json.Unmarshal(j.Args, target); err != nil {
		return fmt.Errorf("job %d (%s): decode args: %w", j.ID, j.Task, err)
	}
	return nil
}

// FinalAttempt reports whether this execution is the job's last allowed try.
func (j *Job) FinalAttempt() bool {
	return j.Attempts >= j.MaxAttempts
}
