package pipeline

import (
	"context"
	"encoding/json"
	"strconv"

	"debrief/internal/services"
)

// State is the poll-facing lifecycle of a meeting.
type State string

const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// MeetingStatus is what a poller sees for one meeting.
type MeetingStatus struct {
	ClientID  string          `json:"client_id"`
	MeetingID string          `json:"meeting_id"`
	State     State           `json:"state"`
	Uploaded  int             `json:"uploaded"`
	Processed int64           `json:"processed"`
	Total     int             `json:"total,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Segments  json.RawMessage `json:"segments,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Status derives a meeting's state from the published coordination keys:
// a result means complete, an error means failed, processing activity means
// processing, anything else is queued.
func (p *Pipeline) Status(ctx context.Context, clientID, meetingID string) (MeetingStatus, error) {
	status := MeetingStatus{ClientID: clientID, MeetingID: meetingID, State: StateQueued}

	uploaded, err := p.coord.SetCard(ctx, uploadedKey(clientID, meetingID))
	if err != nil {
		return status, services.Wrap(services.ErrExternalService, "status", "count_uploads", "read upload set", err)
	}
	status.Uploaded = uploaded

	processed, err := p.coord.Counter(ctx, processedKey(clientID, meetingID))
	if err != nil {
		return status, services.Wrap(services.ErrExternalService, "status", "read_counter", "read processed counter", err)
	}
	status.Processed = processed

	if totalValue, ok, err := p.coord.Get(ctx, totalKey(clientID, meetingID)); err != nil {
		return status, services.Wrap(services.ErrExternalService, "status", "read_total", "read expected total", err)
	} else if ok {
		if total, convErr := strconv.Atoi(totalValue); convErr == nil {
			status.Total = total
		}
	}

	if result, ok, err := p.coord.Get(ctx, resultKey(clientID, meetingID)); err != nil {
		return status, services.Wrap(services.ErrExternalService, "status", "read_result", "read published result", err)
	} else if ok {
		status.State = StateComplete
		status.Result = json.RawMessage(result)
		if segments, ok, err := p.coord.Get(ctx, segmentsKey(clientID, meetingID)); err == nil && ok {
			status.Segments = json.RawMessage(segments)
		}
		return status, nil
	}

	if cause, ok, err := p.coord.Get(ctx, errorKey(clientID, meetingID)); err != nil {
		return status, services.Wrap(services.ErrExternalService, "status", "read_error", "read published error", err)
	} else if ok {
		status.State = StateFailed
		status.Error = cause
		return status, nil
	}

	if processed > 0 {
		status.State = StateProcessing
	}
	return status, nil
}
