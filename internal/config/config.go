package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	UploadDir string `toml:"upload_dir" env:"UPLOAD_DIR"`
	DataDir   string `toml:"data_dir" env:"DATA_DIR"`
	LogDir    string `toml:"log_dir" env:"LOG_DIR"`
	APIBind   string `toml:"api_bind" env:"API_BIND"`
	APIToken  string `toml:"api_token" env:"API_TOKEN"`
}

// Gemini contains connection settings for the Gemini API.
type Gemini struct {
	APIKey             string `toml:"api_key" env:"GEMINI_API_KEY"`
	BaseURL            string `toml:"base_url" env:"GEMINI_BASE_URL"`
	Model              string `toml:"model" env:"GEMINI_MODEL"`
	TranscriptionModel string `toml:"transcription_model" env:"GEMINI_TRANSCRIPTION_MODEL"`
	TimeoutSeconds     int    `toml:"timeout_seconds" env:"GEMINI_TIMEOUT_SECONDS"`
}

// Workflow contains job runner timing and retry settings.
type Workflow struct {
	WorkerCount        int    `toml:"worker_count" env:"WORKER_COUNT"`
	PollInterval       int    `toml:"poll_interval" env:"POLL_INTERVAL"`
	ErrorRetryInterval int    `toml:"error_retry_interval" env:"ERROR_RETRY_INTERVAL"`
	MaxAttempts        int    `toml:"max_attempts" env:"MAX_ATTEMPTS"`
	CleanupSchedule    string `toml:"cleanup_schedule" env:"CLEANUP_SCHEDULE"`
	RetentionDays      int    `toml:"retention_days" env:"RETENTION_DAYS"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic       string `toml:"ntfy_topic" env:"NTFY_TOPIC"`
	RequestTimeout  int    `toml:"request_timeout" env:"NTFY_REQUEST_TIMEOUT"`
	MeetingComplete bool   `toml:"meeting_complete" env:"NOTIFY_MEETING_COMPLETE"`
	Errors          bool   `toml:"errors" env:"NOTIFY_ERRORS"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"LOG_FORMAT"`
	Level  string `toml:"level" env:"LOG_LEVEL"`
}

// Config is the root configuration object, constructed once at process start
// and passed by reference into each component.
type Config struct {
	Paths         Paths         `toml:"paths" envPrefix:""`
	Gemini        Gemini        `toml:"gemini"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

const envPrefix = "DEBRIEF_"

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	return expandHome("~/.config/debrief/config.toml")
}

// Load reads the config file at path (Default() when the file is absent),
// applies environment overrides, expands home-relative paths, and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path == "" {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(expandHome(path))
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults plus environment are enough to run.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	path = expandHome(path)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the upload, data, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) expandPaths() {
	c.Paths.UploadDir = expandHome(c.Paths.UploadDir)
	c.Paths.DataDir = expandHome(c.Paths.DataDir)
	c.Paths.LogDir = expandHome(c.Paths.LogDir)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
