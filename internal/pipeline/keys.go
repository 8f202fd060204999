package pipeline

import "fmt"

// Task names registered with the job runner.
const (
	TaskDispatch   = "dispatch_meeting"
	TaskTranscribe = "transcribe_chunk"
	TaskMerge      = "merge_meeting"
)

// meetingKey builds a coordination-store key scoped to one meeting. All
// transient state for a meeting lives under this prefix so cleanup can drop
// it in one call.
func meetingKey(clientID, meetingID, field string) string {
	return fmt.Sprintf("meeting:%s:%s:%s", clientID, meetingID, field)
}

func meetingPrefix(clientID, meetingID string) string {
	return fmt.Sprintf("meeting:%s:%s:", clientID, meetingID)
}

func uploadedKey(clientID, meetingID string) string {
	return meetingKey(clientID, meetingID, "uploaded")
}

func processedKey(clientID, meetingID string) string {
	return meetingKey(clientID, meetingID, "processed")
}

func totalKey(clientID, meetingID string) string {
	return meetingKey(clientID, meetingID, "total")
}

func jobKey(clientID, meetingID string) string {
	return meetingKey(clientID, meetingID, "job")
}

func resultKey(clientID, meetingID string) string {
	return meetingKey(clientID, meetingID, "result")
}

func segmentsKey(clientID, meetingID string) string {
	return meetingKey(clientID, meetingID, "segments")
}

func errorKey(clientID, meetingID string) string {
	return meetingKey(clientID, meetingID, "error")
}

// Idempotency keys for job scheduling. One dispatch and one merge may ever be
// created per meeting, no matter how many workers observe the barrier.
func dispatchIdemKey(clientID, meetingID string) string {
	return fmt.Sprintf("dispatch:%s:%s", clientID, meetingID)
}

func transcribeIdemKey(clientID, meetingID string, index int) string {
	return fmt.Sprintf("transcribe:%s:%s:%d", clientID, meetingID, index)
}

func mergeIdemKey(clientID, meetingID string) string {
	return fmt.Sprintf("merge:%s:%s", clientID, meetingID)
}
