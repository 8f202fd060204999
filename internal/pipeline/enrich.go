package pipeline

import (
	"context"
	"errors"
	"path"

	"debrief/internal/jobs"
	"debrief/internal/logging"
	"debrief/internal/oracle"
	"debrief/internal/services"
	"debrief/internal/storage"
)

// handleTranscribe enriches one chunk and counts it toward the merge barrier.
// An oracle failure fails the job: the counter never reaches the expected
// total, merge never fires, and the meeting stays visible as stuck through
// status polling. A stalled meeting beats a silently incomplete merge. Only a
// chunk genuinely absent from disk counts as a gap.
func (p *Pipeline) handleTranscribe(ctx context.Context, job *jobs.Job) error {
	var args transcribeArgs
	if err := job.DecodeArgs(&args); err != nil {
		return services.Wrap(services.ErrValidation, "enrich", "decode_args", "invalid transcription arguments", err)
	}
	logger := logging.WithMeeting(p.logger, args.ClientID, args.MeetingID)

	transcript, err := p.transcribeChunk(ctx, args)
	if err != nil {
		logger.ErrorContext(ctx, "chunk transcription failed",
			logging.Int(logging.FieldChunk, args.Index),
			logging.String(logging.FieldEventType, "chunk_enrichment_failed"),
			logging.String(logging.FieldErrorHint, "meeting will not merge until this chunk transcribes"),
			logging.Error(err))
		return err
	}

	transcriptKey := storage.TranscriptKey(args.ClientID, args.MeetingID, args.Index)
	if err := storage.PutJSON(ctx, p.blobs, transcriptKey, transcript); err != nil {
		return services.Wrap(services.ErrExternalService, "enrich", "store_transcript", "persist chunk transcript", err)
	}

	processed, err := p.coord.Incr(ctx, processedKey(args.ClientID, args.MeetingID))
	if err != nil {
		return services.Wrap(services.ErrExternalService, "enrich", "count_processed", "increment processed counter", err)
	}
	logger.InfoContext(ctx, "chunk transcribed",
		logging.Int(logging.FieldChunk, args.Index),
		logging.Int("segments", len(transcript.Segments)),
		logging.Int64("processed", processed),
		logging.Int("total", args.Total))

	if processed != int64(args.Total) {
		return nil
	}

	// Barrier reached. Two workers can observe the threshold at once when a
	// redelivered chunk pushes the counter past total; the fixed idempotency
	// key guarantees a single merge job either way.
	created, err := p.queue.Enqueue(ctx, TaskMerge, mergeArgs{
		ClientID:  args.ClientID,
		MeetingID: args.MeetingID,
		Total:     args.Total,
	}, jobs.EnqueueOptions{
		IdempotencyKey: mergeIdemKey(args.ClientID, args.MeetingID),
		MaxAttempts:    p.maxAttempts,
	})
	if err != nil {
		return services.Wrap(services.ErrExternalService, "enrich", "enqueue_merge", "schedule merge", err)
	}
	if created {
		logger.InfoContext(ctx, "all chunks transcribed, merge scheduled")
	}
	return nil
}

func (p *Pipeline) transcribeChunk(ctx context.Context, args transcribeArgs) (oracle.Transcript, error) {
	data, err := p.blobs.Get(ctx, args.ChunkKey)
	if errors.Is(err, storage.ErrNotExist) {
		// The dispatcher assumed a default location for a chunk that never
		// arrived on disk. The gap surfaces as missing transcript content.
		return oracle.Transcript{}, nil
	}
	if err != nil {
		return oracle.Transcript{}, services.Wrap(services.ErrExternalService, "enrich", "load_chunk", "load chunk blob", err)
	}
	return p.oracle.AnalyzeChunk(ctx, data, oracle.MIMEForExtension(path.Ext(args.ChunkKey)))
}
