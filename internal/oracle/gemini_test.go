package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"debrief/internal/memory"
	"debrief/internal/services/gemini"
)

func scriptedServer(t *testing.T, respond func(prompt string) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		prompt := ""
		if len(payload.Contents) > 0 && len(payload.Contents[0].Parts) > 0 {
			prompt = payload.Contents[0].Parts[0].Text
		}
		body, _ := json.Marshal(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": respond(prompt)}}}},
			},
		})
		_, _ = w.Write(body)
	}))
}

func newTestOracle(t *testing.T, server *httptest.Server) *Gemini {
	t.Helper()
	client := gemini.NewClient(gemini.Config{APIKey: "key", BaseURL: server.URL, Model: "m"})
	return NewGemini(client, "", "m", nil)
}

func TestGeminiAnalyzeChunk(t *testing.T) {
	server := scriptedServer(t, func(string) string {
		return `{"summary":"intro","segments":[{"speaker":"Advisor","timestamp":"00:01","content":"Welcome back.","language_code":"en","emotion":"confused"}]}`
	})
	defer server.Close()

	transcript, err := newTestOracle(t, server).AnalyzeChunk(context.Background(), []byte{0x01}, "audio/webm")
	if err != nil {
		t.Fatalf("AnalyzeChunk: %v", err)
	}
	if len(transcript.Segments) != 1 {
		t.Fatalf("segments = %v", transcript.Segments)
	}
	if transcript.Segments[0].Emotion != "neutral" {
		t.Fatalf("emotion not clamped: %q", transcript.Segments[0].Emotion)
	}
}

func TestGeminiAnalyzeChunkRejectsEmptyAudio(t *testing.T) {
	server := scriptedServer(t, func(string) string { return "{}" })
	defer server.Close()

	if _, err := newTestOracle(t, server).AnalyzeChunk(context.Background(), nil, "audio/webm"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestGeminiAnalyzeMeeting(t *testing.T) {
	var sawTranscript bool
	server := scriptedServer(t, func(prompt string) string {
		if strings.Contains(prompt, "we should start a SIP") {
			sawTranscript = true
		}
		return `{"is_financial_meeting":true,"financial_products":["SIP"],"meeting_summary":["a","b","c"],"confidence_level":"bogus"}`
	})
	defer server.Close()

	insight, err := newTestOracle(t, server).AnalyzeMeeting(context.Background(), "m1", "[00:01] Client: we should start a SIP")
	if err != nil {
		t.Fatalf("AnalyzeMeeting: %v", err)
	}
	if !sawTranscript {
		t.Fatal("merged text not sent to model")
	}
	if insight.ConfidenceLevel != "low" {
		t.Fatalf("invalid confidence should clamp to low, got %q", insight.ConfidenceLevel)
	}
	if insight.MeetingID != "m1" {
		t.Fatalf("meeting id = %q", insight.MeetingID)
	}
}

func TestGeminiAnalyzeMeetingEmptyTranscript(t *testing.T) {
	server := scriptedServer(t, func(string) string {
		t.Error("no request expected for empty transcript")
		return "{}"
	})
	defer server.Close()

	insight, err := newTestOracle(t, server).AnalyzeMeeting(context.Background(), "m1", "   ")
	if err != nil {
		t.Fatalf("AnalyzeMeeting: %v", err)
	}
	if insight.ConfidenceLevel != "low" || insight.MeetingID != "m1" {
		t.Fatalf("unexpected empty-transcript insight: %+v", insight)
	}
}

func memoryFixture() memory.ClientMemory {
	mem := memory.NewClientMemory("c1")
	mem.Profile["name"] = "Asha Rao"
	mem.RiskProfile = "moderate"
	mem.DiscussedProducts["SIP"] = 2
	return mem
}

func insightFixture() memory.MeetingInsight {
	return memory.MeetingInsight{
		MeetingID:       "m1",
		MeetingSummary:  []string{"reviewed SIP", "agreed on top-up", "set follow-up"},
		ConfidenceLevel: memory.ConfidenceMedium,
	}
}

func TestGeminiComposeOverview(t *testing.T) {
	server := scriptedServer(t, func(string) string {
		return `{"overview":"A long-standing client with a moderate risk appetite and steady savings."}`
	})
	defer server.Close()

	mem := newTestOracle(t, server)
	got, err := mem.ComposeOverview(context.Background(), memoryFixture(), insightFixture())
	if err != nil {
		t.Fatalf("ComposeOverview: %v", err)
	}
	if !strings.Contains(got, "moderate risk appetite") {
		t.Fatalf("unexpected overview: %q", got)
	}
}
