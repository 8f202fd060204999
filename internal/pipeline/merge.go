package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"debrief/internal/jobs"
	"debrief/internal/logging"
	"debrief/internal/memory"
	"debrief/internal/oracle"
	"debrief/internal/services"
	"debrief/internal/storage"
)

// handleMerge assembles the meeting, writes the three layers, and publishes
// the outcome. Every write is a by-key overwrite, so redelivery of the merge
// job reruns safely. A failure partway through still publishes an error key
// so a poller never waits forever.
func (p *Pipeline) handleMerge(ctx context.Context, job *jobs.Job) error {
	var args mergeArgs
	if err := job.DecodeArgs(&args); err != nil {
		return services.Wrap(services.ErrValidation, "merge", "decode_args", "invalid merge arguments", err)
	}
	logger := logging.WithMeeting(p.logger, args.ClientID, args.MeetingID)

	if err := p.mergeMeeting(ctx, args, logger); err != nil {
		if pubErr := p.coord.Set(ctx, errorKey(args.ClientID, args.MeetingID), err.Error()); pubErr != nil {
			logger.ErrorContext(ctx, "publish merge error", logging.Error(pubErr))
		}
		if job.FinalAttempt() || !services.IsRetryable(err) {
			if notifyErr := p.notifier.NotifyMeetingFailed(ctx, args.ClientID, args.MeetingID, err); notifyErr != nil {
				logger.WarnContext(ctx, "meeting failure notification failed", logging.Error(notifyErr))
			}
		}
		return err
	}
	return nil
}

func (p *Pipeline) mergeMeeting(ctx context.Context, args mergeArgs, logger *slog.Logger) error {
	merged, err := p.assembleTranscripts(ctx, args)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "transcripts assembled",
		logging.Int("present", len(merged.sourceRefs)),
		logging.Int("total", args.Total),
		logging.Int("segments", len(merged.segments)))

	event := memory.MeetingEvent{
		EventID:       memory.NewEventID(),
		MeetingID:     args.MeetingID,
		ClientID:      args.ClientID,
		Timestamp:     time.Now().UTC(),
		AudioChunkRef: merged.sourceRefs,
		Transcript:    merged.text,
		SpeakerMap:    merged.speakerMap,
	}
	if err := storage.PutJSON(ctx, p.blobs, storage.EventKey(args.ClientID, args.MeetingID), event); err != nil {
		return services.Wrap(services.ErrExternalService, "merge", "store_event", "persist raw event", err)
	}

	insight, err := p.oracle.AnalyzeMeeting(ctx, args.MeetingID, merged.text)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "merge", "analyze_meeting", "meeting analysis failed", err)
	}
	if err := storage.PutJSON(ctx, p.blobs, storage.InsightKey(args.ClientID, args.MeetingID), insight); err != nil {
		return services.Wrap(services.ErrExternalService, "merge", "store_insight", "persist meeting insight", err)
	}

	mem := memory.NewClientMemory(args.ClientID)
	err = storage.GetJSON(ctx, p.blobs, storage.MemoryKey(args.ClientID), &mem)
	if err != nil && !errors.Is(err, storage.ErrNotExist) {
		return services.Wrap(services.ErrExternalService, "merge", "load_memory", "load client memory", err)
	}

	updated := memory.Reduce(mem, insight)
	updated.LastUpdatedFromMeetingID = args.MeetingID

	generated, overviewErr := p.oracle.ComposeOverview(ctx, updated, insight)
	if overviewErr != nil {
		// Overview is narrative sugar; a durable prior (or the deterministic
		// fallback) stands in when generation fails.
		logger.WarnContext(ctx, "overview generation failed", logging.Error(overviewErr))
		generated = ""
	}
	updated.ClientOverview = memory.ApplyOverview(updated, generated)

	if err := storage.PutJSON(ctx, p.blobs, storage.MemoryKey(args.ClientID), updated); err != nil {
		return services.Wrap(services.ErrExternalService, "merge", "store_memory", "persist client memory", err)
	}

	if err := p.publishSuccess(ctx, args, insight, merged.segments); err != nil {
		return err
	}

	if notifyErr := p.notifier.NotifyMeetingComplete(ctx, args.ClientID, args.MeetingID, len(insight.MeetingSummary)); notifyErr != nil {
		logger.WarnContext(ctx, "meeting completion notification failed", logging.Error(notifyErr))
	}
	logger.InfoContext(ctx, "meeting merged",
		logging.String("event_id", event.EventID),
		logging.String("confidence", string(insight.ConfidenceLevel)))
	return nil
}

type mergedTranscript struct {
	text       string
	segments   []oracle.Segment
	sourceRefs []string
	speakerMap map[string]string
}

// assembleTranscripts concatenates per-chunk transcripts in index order.
// Missing indices are skipped, not fatal: a meeting with a permanently failed
// chunk still merges from what arrived.
func (p *Pipeline) assembleTranscripts(ctx context.Context, args mergeArgs) (mergedTranscript, error) {
	merged := mergedTranscript{
		segments:   make([]oracle.Segment, 0),
		speakerMap: make(map[string]string),
	}
	var lines []string
	for index := 0; index < args.Total; index++ {
		key := storage.TranscriptKey(args.ClientID, args.MeetingID, index)
		var transcript oracle.Transcript
		err := storage.GetJSON(ctx, p.blobs, key, &transcript)
		if errors.Is(err, storage.ErrNotExist) {
			continue
		}
		if err != nil {
			return merged, services.Wrap(services.ErrExternalService, "merge", "load_transcript",
				fmt.Sprintf("load transcript for chunk %d", index), err)
		}
		merged.sourceRefs = append(merged.sourceRefs, key)
		for _, segment := range transcript.Segments {
			lines = append(lines, formatSegment(segment))
			merged.segments = append(merged.segments, segment)
			// Identity mapping until name attribution exists; keeps the
			// event schema stable for consumers that expect the map.
			merged.speakerMap[segment.Speaker] = segment.Speaker
		}
	}
	merged.text = strings.Join(lines, "\n")
	return merged, nil
}

func formatSegment(segment oracle.Segment) string {
	var builder strings.Builder
	if segment.Timestamp != "" {
		builder.WriteString("[")
		builder.WriteString(segment.Timestamp)
		builder.WriteString("] ")
	}
	builder.WriteString(segment.Speaker)
	builder.WriteString(": ")
	builder.WriteString(segment.Content)
	return builder.String()
}

// publishSuccess writes the poll-facing result and clears any error from a
// failed earlier attempt.
func (p *Pipeline) publishSuccess(ctx context.Context, args mergeArgs, insight memory.MeetingInsight, segments []oracle.Segment) error {
	resultJSON, err := json.Marshal(insight)
	if err != nil {
		return services.Wrap(services.ErrValidation, "merge", "encode_result", "encode insight", err)
	}
	segmentsJSON, err := json.Marshal(segments)
	if err != nil {
		return services.Wrap(services.ErrValidation, "merge", "encode_segments", "encode segments", err)
	}
	if err := p.coord.Set(ctx, resultKey(args.ClientID, args.MeetingID), string(resultJSON)); err != nil {
		return services.Wrap(services.ErrExternalService, "merge", "publish_result", "publish insight", err)
	}
	if err := p.coord.Set(ctx, segmentsKey(args.ClientID, args.MeetingID), string(segmentsJSON)); err != nil {
		return services.Wrap(services.ErrExternalService, "merge", "publish_segments", "publish segments", err)
	}
	if err := p.coord.DeletePrefix(ctx, errorKey(args.ClientID, args.MeetingID)); err != nil {
		return services.Wrap(services.ErrExternalService, "merge", "clear_error", "clear stale error", err)
	}
	return nil
}
