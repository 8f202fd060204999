package oracle

import (
	"context"
	"strings"

	"debrief/internal/memory"
)

// Segment is one utterance of a chunk transcript.
type Segment struct {
	Speaker      string `json:"speaker"`
	Timestamp    string `json:"timestamp"`
	Content      string `json:"content"`
	Language     string `json:"language"`
	LanguageCode string `json:"language_code"`
	Translation  string `json:"translation,omitempty"`
	Emotion      string `json:"emotion"`
}

// Transcript is the structured result of transcribing one audio chunk.
type Transcript struct {
	Summary  string    `json:"summary"`
	Segments []Segment `json:"segments"`
}

// Oracle produces structured data from raw meeting content.
type Oracle interface {
	// AnalyzeChunk transcribes one audio chunk into speaker-attributed
	// segments plus a short summary.
	AnalyzeChunk(ctx context.Context, audio []byte, mimeType string) (Transcript, error)
	// AnalyzeMeeting extracts the per-meeting insight from the merged
	// transcript text.
	AnalyzeMeeting(ctx context.Context, meetingID, mergedText string) (memory.MeetingInsight, error)
	// ComposeOverview writes a short narrative overview of the client from
	// their updated memory and the latest insight.
	ComposeOverview(ctx context.Context, mem memory.ClientMemory, insight memory.MeetingInsight) (string, error)
}

// MIMEForExtension maps an audio file extension to the MIME type the
// transcription backend expects. Unknown extensions fall back to webm.
func MIMEForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".aac":
		return "audio/aac"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	default:
		return "audio/webm"
	}
}
