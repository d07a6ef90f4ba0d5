package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chorus/internal/config"
)

const userAgent = "Chorus-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyInterviewReady(ctx context.Context, title string) error
	NotifyInterviewFailed(ctx context.Context, title, reason string) error
	NotifyRepairCompleted(ctx context.Context, completed, failed, requeued int) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
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
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		notifyErrors:  cfg.Notifications.Errors,
		notifyRepairs: cfg.Notifications.Repairs,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	notifyErrors  bool
	notifyRepairs bool
}

func (n *ntfyService) NotifyInterviewReady(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled interview"
	}
	data := payload{
		title:    "Chorus - Interview Ready",
		message:  fmt.Sprintf("Insights ready: %s", title),
		tags:     []string{"chorus", "interview", "ready"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyInterviewFailed(ctx context.Context, title, reason string) error {
	if !n.notifyErrors {
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled interview"
	}
	message := fmt.Sprintf("Processing failed: %s", title)
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s\n%s", message, reason)
	}
	data := payload{
		title:    "Chorus - Interview Failed",
		message:  message,
		tags:     []string{"chorus", "interview", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRepairCompleted(ctx context.Context, completed, failed, requeued int) error {
	if !n.notifyRepairs {
		return nil
	}
	data := payload{
		title: "Chorus - Repair Sweep",
		message: fmt.Sprintf("Stuck interviews repaired: %d completed, %d failed, %d requeued",
			completed, failed, requeued),
		tags: []string{"chorus", "repair", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.notifyErrors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Chorus - Error",
		message:  builder.String(),
		tags:     []string{"chorus", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Chorus - Test",
		message:  "Notification system test",
		tags:     []string{"chorus", "test"},
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

type noopService struct{}

func (noopService) NotifyInterviewReady(context.Context, string) error          { return nil }
func (noopService) NotifyInterviewFailed(context.Context, string, string) error { return nil }
func (noopService) NotifyRepairCompleted(context.Context, int, int, int) error  { return nil }
func (noopService) NotifyError(context.Context, error, string) error            { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
