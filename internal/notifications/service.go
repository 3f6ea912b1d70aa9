package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"marquee/internal/config"
	"marquee/internal/metadata"
	"marquee/internal/resolver"
)

const userAgent = "Marquee-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyResolved(ctx context.Context, title string, year int) error
	NotifySelectionNeeded(ctx context.Context, queryTitle string, optionCount int) error
	NotifyPublished(ctx context.Context, title string, channelRef string) error
	NotifyError(ctx context.Context, err error, context string) error
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
		endpoint:    topic,
		client:      client,
		dedupWindow: time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		lastSent:    make(map[string]time.Time),
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

	dedupWindow time.Duration
	mu          sync.Mutex
	lastSent    map[string]time.Time
}

func (n *ntfyService) NotifyResolved(ctx context.Context, title string, year int) error {
	title = strings.TrimSpace(title)
	label := title
	if year > 0 {
		label = fmt.Sprintf("%s (%d)", title, year)
	}
	data := payload{
		title:   "Marquee - Resolved",
		message: fmt.Sprintf("🎬 Resolved: %s", label),
		tags:    []string{"marquee", "resolve", "completed"},
	}
	return n.send(ctx, "resolved:"+label, data)
}

func (n *ntfyService) NotifySelectionNeeded(ctx context.Context, queryTitle string, optionCount int) error {
	queryTitle = strings.TrimSpace(queryTitle)
	data := payload{
		title:    "Marquee - Selection Needed",
		message:  fmt.Sprintf("❓ %d matches for %q, pick one before the timeout", optionCount, queryTitle),
		tags:     []string{"marquee", "selection", "review"},
		priority: "high",
	}
	return n.send(ctx, "selection:"+queryTitle, data)
}

func (n *ntfyService) NotifyPublished(ctx context.Context, title string, channelRef string) error {
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("✅ Published: %s", title)
	if channelRef = strings.TrimSpace(channelRef); channelRef != "" {
		message = fmt.Sprintf("%s\nPost: %s", message, channelRef)
	}
	data := payload{
		title:   "Marquee - Published",
		message: message,
		tags:    []string{"marquee", "publish", "completed"},
	}
	return n.send(ctx, "published:"+title, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
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
		title:    "Marquee - Error",
		message:  builder.String(),
		tags:     []string{"marquee", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, "error:"+contextLabel+builder.String(), data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Marquee - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"marquee", "test"},
		priority: "low",
	}
	return n.send(ctx, "", data)
}

// suppressed reports whether the same event key fired within the dedup
// window. A zero window disables suppression, as does an empty key.
func (n *ntfyService) suppressed(key string) bool {
	if n.dedupWindow <= 0 || key == "" {
		return false
	}
	now := time.Now()
	n.mu.Lock()
	defer n.mu.Unlock()
	if sent, ok := n.lastSent[key]; ok && now.Sub(sent) < n.dedupWindow {
		return true
	}
	n.lastSent[key] = now
	return false
}

func (n *ntfyService) send(ctx context.Context, dedupKey string, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	if n.suppressed(dedupKey) {
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

func (noopService) NotifyResolved(context.Context, string, int) error        { return nil }
func (noopService) NotifySelectionNeeded(context.Context, string, int) error { return nil }
func (noopService) NotifyPublished(context.Context, string, string) error    { return nil }
func (noopService) NotifyError(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }

// PipelineAdapter bridges the notification service to the pipeline's event
// hooks, honoring the per-event configuration toggles. Send failures are
// swallowed; notifications never fail a query.
type PipelineAdapter struct {
	service     Service
	resolution  bool
	selection   bool
	publication bool
	errors      bool
}

// NewPipelineAdapter builds the adapter from configuration.
func NewPipelineAdapter(cfg *config.Config, service Service) *PipelineAdapter {
	return &PipelineAdapter{
		service:     service,
		resolution:  cfg.Notifications.Resolution,
		selection:   cfg.Notifications.Selection,
		publication: cfg.Notifications.Publication,
		errors:      cfg.Notifications.Errors,
	}
}

func (a *PipelineAdapter) MovieResolved(ctx context.Context, queryID string, record *metadata.Record) {
	if !a.resolution || record == nil {
		return
	}
	_ = a.service.NotifyResolved(ctx, record.Title, record.Year)
}

func (a *PipelineAdapter) SelectionRequested(ctx context.Context, queryID string, selection *resolver.Selection) {
	if !a.selection || selection == nil {
		return
	}
	_ = a.service.NotifySelectionNeeded(ctx, selection.Query.Title, len(selection.Options))
}

func (a *PipelineAdapter) PosterPublished(ctx context.Context, queryID string, record *metadata.Record, channelRef string) {
	if !a.publication || record == nil {
		return
	}
	_ = a.service.NotifyPublished(ctx, record.Title, channelRef)
}

func (a *PipelineAdapter) QueryFailed(ctx context.Context, queryID string, stage string, err error) {
	if !a.errors {
		return
	}
	_ = a.service.NotifyError(ctx, err, stage)
}
