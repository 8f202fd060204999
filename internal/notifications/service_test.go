package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"debrief/internal/config"
)

func testConfig(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	cfg.Notifications.MeetingComplete = true
	cfg.Notifications.Errors = true
	return &cfg
}

func TestNewServiceReturnsNoopWithoutTopic(t *testing.T) {
	service := NewService(testConfig(""))
	if err := service.NotifyMeetingComplete(context.Background(), "c1", "m1", 3); err != nil {
		t.Fatalf("noop service should never error: %v", err)
	}
}

func TestNotifyMeetingCompleteSendsNtfyRequest(t *testing.T) {
	var gotTitle, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	service := NewService(testConfig(server.URL))
	if err := service.NotifyMeetingComplete(context.Background(), "c1", "m1", 4); err != nil {
		t.Fatalf("NotifyMeetingComplete: %v", err)
	}
	if gotTitle != "Debrief - Meeting Processed" {
		t.Fatalf("title = %q", gotTitle)
	}
	if !strings.Contains(gotBody, "m1") || !strings.Contains(gotBody, "c1") {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestNotifyMeetingFailedRespectsErrorGate(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Notifications.Errors = false
	service := NewService(cfg)
	if err := service.NotifyMeetingFailed(context.Background(), "c1", "m1", errors.New("boom")); err != nil {
		t.Fatalf("NotifyMeetingFailed: %v", err)
	}
	if calls != 0 {
		t.Fatalf("disabled error notifications must not send, got %d calls", calls)
	}
}

func TestSendSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	service := NewService(testConfig(server.URL))
	if err := service.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error from non-2xx response")
	}
}
