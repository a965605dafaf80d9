package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resumeup/internal/config"
)

const userAgent = "ResumeUp/0.1.0"

// Service defines the notification surface exposed to the orchestrator and
// delivery components.
type Service interface {
	NotifyProcessingCompleted(ctx context.Context, filename string) error
	NotifyProcessingFailed(ctx context.Context, filename, reason string) error
	NotifyCreditsExhausted(ctx context.Context) error
	NotifyDeliveryCompleted(ctx context.Context, filename, location string) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:   topic,
		client:     client,
		processing: cfg.Notifications.Processing,
		delivery:   cfg.Notifications.Delivery,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	processing bool
	delivery   bool
	errors     bool
}

func (n *ntfyService) NotifyProcessingCompleted(ctx context.Context, filename string) error {
	if !n.processing {
		return nil
	}
	filename = strings.TrimSpace(filename)
	data := payload{
		title:    "ResumeUp - Complete",
		message:  fmt.Sprintf("Resume improved: %s", filename),
		tags:     []string{"resumeup", "processing", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyProcessingFailed(ctx context.Context, filename, reason string) error {
	if !n.errors {
		return nil
	}
	filename = strings.TrimSpace(filename)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "ResumeUp - Failed",
		message:  fmt.Sprintf("Processing failed: %s\n%s", filename, reason),
		tags:     []string{"resumeup", "processing", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCreditsExhausted(ctx context.Context) error {
	if !n.errors {
		return nil
	}
	data := payload{
		title:   "ResumeUp - Out of Credits",
		message: "No credits remaining. Purchase more to keep processing.",
		tags:    []string{"resumeup", "credits"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDeliveryCompleted(ctx context.Context, filename, location string) error {
	if !n.delivery {
		return nil
	}
	filename = strings.TrimSpace(filename)
	location = strings.TrimSpace(location)
	message := fmt.Sprintf("Delivered: %s", filename)
	if location != "" {
		message = fmt.Sprintf("%s\nSaved to: %s", message, location)
	}
	data := payload{
		title:   "ResumeUp - Delivered",
		message: message,
		tags:    []string{"resumeup", "delivery", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "ResumeUp - Test",
		message:  "Notification system test",
		tags:     []string{"resumeup", "test"},
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

func (noopService) NotifyProcessingCompleted(context.Context, string) error      { return nil }
func (noopService) NotifyProcessingFailed(context.Context, string, string) error { return nil }
func (noopService) NotifyCreditsExhausted(context.Context) error                 { return nil }
func (noopService) NotifyDeliveryCompleted(context.Context, string, string) error {
	return nil
}
func (noopService) TestNotification(context.Context) error { return nil }
