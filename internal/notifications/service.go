package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"loom/internal/config"
)

const userAgent = "loom/0.1"

// Service defines the notification surface used by the run lifecycle.
type Service interface {
	NotifyRunStarted(ctx context.Context, runID, sourceURL string) error
	NotifyRunCompleted(ctx context.Context, runID, sourceURL string, pairs int) error
	NotifyRunFailed(ctx context.Context, runID, stage, message string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, runID, sourceURL string) error {
	data := payload{
		title:   "Loom - Run Started",
		message: fmt.Sprintf("Started processing %s (%s)", strings.TrimSpace(sourceURL), runID),
		tags:    []string{"loom", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, runID, sourceURL string, pairs int) error {
	data := payload{
		title:    "Loom - Run Complete",
		message:  fmt.Sprintf("Dataset ready for %s: %d pairs (%s)", strings.TrimSpace(sourceURL), pairs, runID),
		tags:     []string{"loom", "run", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, runID, stage, message string) error {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		stage = "unknown"
	}
	text := fmt.Sprintf("Run %s failed during %s", runID, stage)
	if message = strings.TrimSpace(message); message != "" {
		text += ": " + message
	}
	data := payload{
		title:    "Loom - Run Failed",
		message:  text,
		tags:     []string{"loom", "run", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Loom - Test",
		message:  "Notification system test",
		tags:     []string{"loom", "test"},
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
	if data.priority != "" {
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

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, string, string) error        { return nil }
func (noopService) NotifyRunCompleted(context.Context, string, string, int) error { return nil }
func (noopService) NotifyRunFailed(context.Context, string, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
