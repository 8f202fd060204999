package config

import (
	"fmt"
	"strings"

	"github.com/adhocore/gronx"
)

// Validate checks settings that would otherwise fail deep inside the daemon.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		problems = append(problems, "paths.upload_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		problems = append(problems, "paths.api_bind must not be empty")
	}
	if c.Workflow.WorkerCount < 1 {
		problems = append(problems, "workflow.worker_count must be at least 1")
	}
	if c.Workflow.PollInterval < 1 {
		problems = append(problems, "workflow.poll_interval must be at least 1 second")
	}
	if c.Workflow.MaxAttempts < 1 {
		problems = append(problems, "workflow.max_attempts must be at least 1")
	}
	if c.Workflow.RetentionDays < 0 {
		problems = append(problems, "workflow.retention_days must not be negative")
	}
	if schedule := strings.TrimSpace(c.Workflow.CleanupSchedule); schedule != "" {
		if !gronx.New().IsValid(schedule) {
			problems = append(problems, fmt.Sprintf("workflow.cleanup_schedule %q is not a valid cron expression", schedule))
		}
	}
	if c.Gemini.TimeoutSeconds < 1 {
		problems = append(problems, "gemini.timeout_seconds must be at least 1")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of console, json", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
