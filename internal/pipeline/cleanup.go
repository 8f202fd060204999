package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"debrief/internal/logging"
	"debrief/internal/memory"
	"debrief/internal/storage"
)

// CleanupReport summarizes one sweep.
type CleanupReport struct {
	MeetingsSwept int
	BlobsDeleted  int
	JobsPruned    int64
}

// Cleanup removes audio chunks, per-chunk transcripts, and transient
// coordination state for meetings whose merge completed before the retention
// cutoff. The durable layers (event, insight, memory) are never touched.
// Finished queue jobs older than the cutoff are pruned in the same pass.
func (p *Pipeline) Cleanup(ctx context.Context, retention time.Duration) (CleanupReport, error) {
	var report CleanupReport
	cutoff := time.Now().Add(-retention)

	keys, err := p.blobs.List(ctx, "")
	if err != nil {
		return report, err
	}
	for _, meeting := range eventKeys(keys) {
		swept, deleted, err := p.sweepMeeting(ctx, meeting.clientID, meeting.meetingID, cutoff)
		if err != nil {
			logging.WithMeeting(p.logger, meeting.clientID, meeting.meetingID).
				WarnContext(ctx, "cleanup sweep failed for meeting", logging.Error(err))
			continue
		}
		if swept {
			report.MeetingsSwept++
			report.BlobsDeleted += deleted
		}
	}

	pruned, err := p.queue.PruneFinished(ctx, cutoff)
	if err != nil {
		return report, err
	}
	report.JobsPruned = pruned

	p.logger.InfoContext(ctx, "cleanup sweep finished",
		logging.Int("meetings", report.MeetingsSwept),
		logging.Int("blobs", report.BlobsDeleted),
		logging.Int64("jobs", report.JobsPruned))
	return report, nil
}

type meetingRef struct {
	clientID  string
	meetingID string
}

// eventKeys extracts (client, meeting) pairs that have a raw event record —
// only merged meetings are sweep candidates.
func eventKeys(keys []string) []meetingRef {
	var refs []meetingRef
	for _, key := range keys {
		parts := strings.Split(key, "/")
		if len(parts) == 3 && parts[2] == "raw_event.json" {
			refs = append(refs, meetingRef{clientID: parts[0], meetingID: parts[1]})
		}
	}
	return refs
}

func (p *Pipeline) sweepMeeting(ctx context.Context, clientID, meetingID string, cutoff time.Time) (bool, int, error) {
	var event memory.MeetingEvent
	err := storage.GetJSON(ctx, p.blobs, storage.EventKey(clientID, meetingID), &event)
	if errors.Is(err, storage.ErrNotExist) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	if event.Timestamp.After(cutoff) {
		return false, 0, nil
	}

	keys, err := p.blobs.List(ctx, storage.MeetingPrefix(clientID, meetingID))
	if err != nil {
		return false, 0, err
	}
	var deleted int
	for _, key := range keys {
		if !transientBlob(key) {
			continue
		}
		if err := p.blobs.Delete(ctx, key); err != nil {
			return false, deleted, err
		}
		deleted++
	}

	if err := p.coord.DeletePrefix(ctx, meetingPrefix(clientID, meetingID)); err != nil {
		return false, deleted, err
	}
	return true, deleted, nil
}

// transientBlob reports whether a meeting blob is reclaimable: chunk audio in
// any accepted container, or a per-chunk transcript.
func transientBlob(key string) bool {
	base := key[strings.LastIndex(key, "/")+1:]
	if !strings.HasPrefix(base, "chunk_") {
		return false
	}
	for _, ext := range storage.CandidateExtensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return strings.HasSuffix(base, ".json")
}
