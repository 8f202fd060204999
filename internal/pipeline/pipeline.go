package pipeline

import (
	"log/slog"

	"debrief/internal/coord"
	"debrief/internal/jobs"
	"debrief/internal/logging"
	"debrief/internal/notifications"
	"debrief/internal/oracle"
	"debrief/internal/storage"
)

// Pipeline wires the coordination store, blob storage, job queue, and oracle
// into the intake → dispatch → transcribe → merge flow.
type Pipeline struct {
	coord       coord.Store
	blobs       storage.Store
	queue       *jobs.Store
	oracle      oracle.Oracle
	notifier    notifications.Service
	logger      *slog.Logger
	maxAttempts int
}

// Options carries the collaborators a Pipeline needs.
type Options struct {
	Coord       coord.Store
	Blobs       storage.Store
	Queue       *jobs.Store
	Oracle      oracle.Oracle
	Notifier    notifications.Service
	Logger      *slog.Logger
	MaxAttempts int
}

// New constructs a Pipeline. A nil notifier or logger degrades to a noop.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewNop()
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Pipeline{
		coord:       opts.Coord,
		blobs:       opts.Blobs,
		queue:       opts.Queue,
		oracle:      opts.Oracle,
		notifier:    notifier,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		maxAttempts: maxAttempts,
	}
}

// RegisterHandlers binds the pipeline stages to their task names.
func (p *Pipeline) RegisterHandlers(runner *jobs.Runner) {
	runner.Register(TaskDispatch, p.handleDispatch)
	runner.Register(TaskTranscribe, p.handleTranscribe)
	runner.Register(TaskMerge, p.handleMerge)
}

type dispatchArgs struct {
	ClientID  string `json:"client_id"`
	MeetingID string `json:"meeting_id"`
	Total     int    `json:"total"`
}

type transcribeArgs struct {
	ClientID  string `json:"client_id"`
	MeetingID string `json:"meeting_id"`
	Index     int    `json:"index"`
	Total     int    `json:"total"`
	ChunkKey  string `json:"chunk_key"`
}

type mergeArgs struct {
	ClientID  string `json:"client_id"`
	MeetingID string `json:"meeting_id"`
	Total     int    `json:"total"`
}
