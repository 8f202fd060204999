package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"debrief/internal/config"
)

const userAgent = "Debrief/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyMeetingComplete(ctx context.Context, clientID, meetingID string, summaryBullets int) error
	NotifyMeetingFailed(ctx context.Context, clientID, meetingID string, cause error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:        topic,
		client:          &http.Client{Timeout: timeout},
		meetingComplete: cfg.Notifications.MeetingComplete,
		errors:          cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint        string
	client          *http.Client
	meetingComplete bool
	errors          bool
}

func (n *ntfyService) NotifyMeetingComplete(ctx context.Context, clientID, meetingID string, summaryBullets int) error {
	if !n.meetingComplete {
		return nil
	}
	data := payload{
		title:   "Debrief - Meeting Processed",
		message: fmt.Sprintf("Meeting %s for client %s analyzed (%d summary points)", meetingID, clientID, summaryBullets),
		tags:    []string{"debrief", "meeting", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMeetingFailed(ctx context.Context, clientID, meetingID string, cause error) error {
	if !n.errors {
		return nil
	}
	reason := "unknown"
	if cause != nil {
		reason = strings.TrimSpace(cause.Error())
	}
	data := payload{
		title:    "Debrief - Meeting Failed",
		message:  fmt.Sprintf("Meeting %s for client %s failed: %s", meetingID, clientID, reason),
		tags:     []string{"debrief", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Debrief - Test",
		message:  "Notification system test",
		tags:     []string{"debrief", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// NewNop returns a Service that drops every notification.
func NewNop() Service { return noopService{} }

type noopService struct{}

func (noopService) NotifyMeetingComplete(context.Context, string, string, int) error { return nil }
func (noopService) NotifyMeetingFailed(context.Context, string, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
