package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func textResponse(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{
				"content":      map[string]any{"parts": []map[string]string{{"text": text}}},
				"finishReason": "STOP",
			},
		},
	})
	return string(body)
}

func TestGenerateJSONReturnsModelText(t *testing.T) {
	var gotPath string
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		var payload generateRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(payload.Contents) != 1 || len(payload.Contents[0].Parts) != 2 {
			t.Errorf("unexpected request shape: %+v", payload)
		}
		if payload.Contents[0].Parts[1].InlineData == nil {
			t.Error("expected inline audio part")
		}
		if payload.GenerationConfig.ResponseMIMEType != "application/json" {
			t.Errorf("response mime type = %q", payload.GenerationConfig.ResponseMIMEType)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(textResponse(`{"summary":"ok"}`)))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL, Model: "gemini-2.5-flash"})
	content, err := client.GenerateJSON(context.Background(), "",
		TextPart("transcribe this"),
		BlobPart("audio/webm", []byte{0x1a, 0x45}),
	)
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if content != `{"summary":"ok"}` {
		t.Fatalf("unexpected content: %q", content)
	}
	if !strings.HasSuffix(gotPath, "/models/gemini-2.5-flash:generateContent") {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotKey != "key" {
		t.Fatalf("api key header = %q", gotKey)
	}
}

func TestGenerateJSONRetriesOnRateLimit(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(textResponse(`{"ok":true}`)))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{APIKey: "key", BaseURL: server.URL, Model: "m"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }))

	content, err := client.GenerateJSON(context.Background(), "", TextPart("hello"))
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("unexpected content: %q", content)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected Retry-After honored, slept %v", slept)
	}
}

func TestGenerateJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL, Model: "m"},
		WithSleeper(func(time.Duration) {}))
	_, err := client.GenerateJSON(context.Background(), "", TextPart("hello"))
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("client errors must not retry, got %d calls", calls)
	}
}

func TestGenerateJSONRetriesEmptyCandidates(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
			return
		}
		_, _ = w.Write([]byte(textResponse(`{"ok":true}`)))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL, Model: "m"},
		WithSleeper(func(time.Duration) {}))
	content, err := client.GenerateJSON(context.Background(), "", TextPart("hello"))
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if content != `{"ok":true}` || calls != 2 {
		t.Fatalf("expected retry then success, content=%q calls=%d", content, calls)
	}
}

func TestGenerateJSONRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{Model: "m"})
	if _, err := client.GenerateJSON(context.Background(), "", TextPart("hello")); err == nil {
		t.Fatal("expected api key error")
	}
}

func TestDecodeModelJSON(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"plain", `{"summary":"fine"}`, false},
		{"fenced", "```json\n{\"summary\":\"fine\"}\n```", false},
		{"prose wrapped", `Here is the analysis: {"summary":"fine"} hope that helps`, false},
		{"empty", "   ", true},
		{"not json", "no structured data here", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var parsed struct {
				Summary string `json:"summary"`
			}
			err := DecodeModelJSON(tc.payload, &parsed)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeModelJSON: %v", err)
			}
			if parsed.Summary != "fine" {
				t.Fatalf("summary = %q", parsed.Summary)
			}
		})
	}
}
