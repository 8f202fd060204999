package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"debrief/internal/jobs"
	"debrief/internal/logging"
	"debrief/internal/services"
	"debrief/internal/storage"
)

// ChunkUpload is one incoming audio fragment of a meeting.
type ChunkUpload struct {
	ClientID  string
	MeetingID string
	Index     int
	Total     int
	Filename  string
	Data      []byte
}

// IntakeResult reports what an upload changed.
type IntakeResult struct {
	// Uploaded is how many distinct chunk indices have arrived so far.
	Uploaded int
	// TriggeredDispatch is true when this upload completed the expected set
	// and created the dispatch job. At most one upload per meeting ever
	// reports true.
	TriggeredDispatch bool
}

// Receive persists one chunk, records its arrival, and triggers dispatch when
// the arrival completes the expected set. Re-uploads of the same index
// overwrite the stored blob (last write wins) without double-counting.
func (p *Pipeline) Receive(ctx context.Context, upload ChunkUpload) (IntakeResult, error) {
	var result IntakeResult
	if err := validateUpload(upload); err != nil {
		return result, err
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if !validExtension(ext) {
		ext = storage.DefaultExtension
	}
	chunkKey := storage.ChunkKey(upload.ClientID, upload.MeetingID, upload.Index, ext)
	if err := p.blobs.Put(ctx, chunkKey, upload.Data); err != nil {
		return result, services.Wrap(services.ErrExternalService, "intake", "store_chunk", "persist chunk blob", err)
	}

	if err := p.coord.SetAdd(ctx, uploadedKey(upload.ClientID, upload.MeetingID), upload.Index); err != nil {
		return result, services.Wrap(services.ErrExternalService, "intake", "record_arrival", "record chunk arrival", err)
	}
	if err := p.coord.Set(ctx, totalKey(upload.ClientID, upload.MeetingID), strconv.Itoa(upload.Total)); err != nil {
		return result, services.Wrap(services.ErrExternalService, "intake", "record_total", "record expected total", err)
	}

	uploaded, err := p.coord.SetCard(ctx, uploadedKey(upload.ClientID, upload.MeetingID))
	if err != nil {
		return result, services.Wrap(services.ErrExternalService, "intake", "count_arrivals", "count chunk arrivals", err)
	}
	result.Uploaded = uploaded

	logger := logging.WithMeeting(p.logger, upload.ClientID, upload.MeetingID)
	logger.InfoContext(ctx, "chunk received",
		logging.Int(logging.FieldChunk, upload.Index),
		logging.Int("uploaded", uploaded),
		logging.Int("total", upload.Total))

	if uploaded < upload.Total {
		return result, nil
	}

	// The barrier is complete. The idempotency key makes this safe under
	// concurrent duplicate arrivals of the final chunk: only one enqueue
	// creates the job.
	created, err := p.queue.Enqueue(ctx, TaskDispatch, dispatchArgs{
		ClientID:  upload.ClientID,
		MeetingID: upload.MeetingID,
		Total:     upload.Total,
	}, jobs.EnqueueOptions{
		IdempotencyKey: dispatchIdemKey(upload.ClientID, upload.MeetingID),
		MaxAttempts:    p.maxAttempts,
	})
	if err != nil {
		return result, services.Wrap(services.ErrExternalService, "intake", "enqueue_dispatch", "schedule dispatch", err)
	}
	result.TriggeredDispatch = created
	if created {
		if err := p.coord.Set(ctx, jobKey(upload.ClientID, upload.MeetingID), mergeIdemKey(upload.ClientID, upload.MeetingID)); err != nil {
			return result, services.Wrap(services.ErrExternalService, "intake", "record_job", "record job pointer", err)
		}
		logger.InfoContext(ctx, "all chunks uploaded, dispatch scheduled",
			logging.Int("total", upload.Total))
	}
	return result, nil
}

// UploadedCount returns how many distinct chunk indices have arrived for a
// meeting.
func (p *Pipeline) UploadedCount(ctx context.Context, clientID, meetingID string) (int, error) {
	return p.coord.SetCard(ctx, uploadedKey(clientID, meetingID))
}

func validateUpload(upload ChunkUpload) error {
	if err := validateID("client id", upload.ClientID); err != nil {
		return err
	}
	if err := validateID("meeting id", upload.MeetingID); err != nil {
		return err
	}
	if upload.Total <= 0 {
		return services.Wrap(services.ErrValidation, "intake", "validate", fmt.Sprintf("total chunks must be positive, got %d", upload.Total), nil)
	}
	if upload.Index < 0 || upload.Index >= upload.Total {
		return services.Wrap(services.ErrValidation, "intake", "validate", fmt.Sprintf("chunk index %d out of range [0,%d)", upload.Index, upload.Total), nil)
	}
	if len(upload.Data) == 0 {
		return services.Wrap(services.ErrValidation, "intake", "validate", "empty chunk payload", nil)
	}
	return nil
}

func validateID(label, id string) error {
	if strings.TrimSpace(id) == "" {
		return services.Wrap(services.ErrValidation, "intake", "validate", label+" required", nil)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return services.Wrap(services.ErrValidation, "intake", "validate", fmt.Sprintf("%s contains invalid character %q", label, r), nil)
		}
	}
	return nil
}

func validExtension(ext string) bool {
	for _, candidate := range storage.CandidateExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}
