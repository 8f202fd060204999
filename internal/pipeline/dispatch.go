package pipeline

import (
	"context"

	"debrief/internal/jobs"
	"debrief/internal/logging"
	"debrief/internal/services"
	"debrief/internal/storage"
)

// handleDispatch fans a fully-uploaded meeting out into one transcription job
// per expected chunk. The processed counter is reset first so a redelivered
// dispatch starts a fresh counting generation instead of inheriting stale
// increments; the per-chunk idempotency keys keep the fan-out itself from
// duplicating jobs.
func (p *Pipeline) handleDispatch(ctx context.Context, job *jobs.Job) error {
	var args dispatchArgs
	if err := job.DecodeArgs(&args); err != nil {
		return services.Wrap(services.ErrValidation, "dispatch", "decode_args", "invalid dispatch arguments", err)
	}
	logger := logging.WithMeeting(p.logger, args.ClientID, args.MeetingID)

	if err := p.coord.ResetCounter(ctx, processedKey(args.ClientID, args.MeetingID)); err != nil {
		return services.Wrap(services.ErrExternalService, "dispatch", "reset_counter", "reset processed counter", err)
	}

	for index := 0; index < args.Total; index++ {
		chunkKey, err := storage.ResolveChunk(ctx, p.blobs, args.ClientID, args.MeetingID, index)
		if err != nil {
			return services.Wrap(services.ErrExternalService, "dispatch", "resolve_chunk", "locate chunk blob", err)
		}
		if _, err := p.queue.Enqueue(ctx, TaskTranscribe, transcribeArgs{
			ClientID:  args.ClientID,
			MeetingID: args.MeetingID,
			Index:     index,
			Total:     args.Total,
			ChunkKey:  chunkKey,
		}, jobs.EnqueueOptions{
			IdempotencyKey: transcribeIdemKey(args.ClientID, args.MeetingID, index),
			MaxAttempts:    p.maxAttempts,
		}); err != nil {
			return services.Wrap(services.ErrExternalService, "dispatch", "enqueue_transcribe", "schedule chunk transcription", err)
		}
	}

	logger.InfoContext(ctx, "meeting dispatched", logging.Int("chunks", args.Total))
	return nil
}
