package testsupport

import (
	"context"
	"fmt"
	"sync"

	"debrief/internal/memory"
	"debrief/internal/oracle"
)

// FakeOracle is a deterministic Oracle for tests. Unset hooks fall back to
// canned responses; all invocations are counted.
type FakeOracle struct {
	mu sync.Mutex

	ChunkFunc    func(ctx context.Context, audio []byte, mimeType string) (oracle.Transcript, error)
	MeetingFunc  func(ctx context.Context, meetingID, mergedText string) (memory.MeetingInsight, error)
	OverviewFunc func(ctx context.Context, mem memory.ClientMemory, insight memory.MeetingInsight) (string, error)

	ChunkCalls    int
	MeetingCalls  int
	OverviewCalls int
	MergedTexts   []string
}

func (f *FakeOracle) AnalyzeChunk(ctx context.Context, audio []byte, mimeType string) (oracle.Transcript, error) {
	f.mu.Lock()
	f.ChunkCalls++
	calls := f.ChunkCalls
	fn := f.ChunkFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, audio, mimeType)
	}
	return oracle.Transcript{
		Summary: fmt.Sprintf("chunk %d summary", calls),
		Segments: []oracle.Segment{{
			Speaker:      "Speaker 1",
			Timestamp:    "00:01",
			Content:      string(audio),
			Language:     "English",
			LanguageCode: "en",
			Emotion:      "neutral",
		}},
	}, nil
}

func (f *FakeOracle) AnalyzeMeeting(ctx context.Context, meetingID, mergedText string) (memory.MeetingInsight, error) {
	f.mu.Lock()
	f.MeetingCalls++
	f.MergedTexts = append(f.MergedTexts, mergedText)
	fn := f.MeetingFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, meetingID, mergedText)
	}
	return memory.MeetingInsight{
		MeetingID:          meetingID,
		IsFinancialMeeting: true,
		FinancialProducts:  []string{"SIP"},
		MeetingSummary:     []string{"discussed goals", "reviewed products", "agreed next steps"},
		ConfidenceLevel:    memory.ConfidenceMedium,
	}, nil
}

func (f *FakeOracle) ComposeOverview(ctx context.Context, mem memory.ClientMemory, insight memory.MeetingInsight) (string, error) {
	f.mu.Lock()
	f.OverviewCalls++
	fn := f.OverviewFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, mem, insight)
	}
	return "A steady client who keeps regular meetings and follows through on agreed action items.", nil
}
