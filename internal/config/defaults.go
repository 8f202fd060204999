package config

const (
	defaultUploadDir          = "~/.local/share/debrief/uploads"
	defaultDataDir            = "~/.local/share/debrief"
	defaultLogDir             = "~/.local/share/debrief/logs"
	defaultAPIBind            = "127.0.0.1:8004"
	defaultGeminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel        = "gemini-2.5-flash"
	defaultGeminiTimeout      = 120
	defaultWorkerCount        = 4
	defaultPollInterval       = 2
	defaultErrorRetryInterval = 5
	defaultMaxAttempts        = 3
	defaultCleanupSchedule    = "0 3 * * *"
	defaultRetentionDays      = 14
	defaultNtfyRequestTimeout = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Gemini: Gemini{
			BaseURL:            defaultGeminiBaseURL,
			Model:              defaultGeminiModel,
			TranscriptionModel: defaultGeminiModel,
			TimeoutSeconds:     defaultGeminiTimeout,
		},
		Workflow: Workflow{
			WorkerCount:        defaultWorkerCount,
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			MaxAttempts:        defaultMaxAttempts,
			CleanupSchedule:    defaultCleanupSchedule,
			RetentionDays:      defaultRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNtfyRequestTimeout,
			MeetingComplete: true,
			Errors:          true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
