package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"marquee/internal/config"
	"marquee/internal/metadata"
	"marquee/internal/notifications"
	"marquee/internal/resolver"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPublished(context.Background(), "Inception", "msg-1"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "resolved",
			notify: func(svc notifications.Service) error {
				return svc.NotifyResolved(context.Background(), "Interstellar", 2014)
			},
			expectTitle:   "Marquee - Resolved",
			expectMessage: "🎬 Resolved: Interstellar (2014)",
			expectTags:    "marquee,resolve,completed",
		},
		{
			name: "selection needed",
			notify: func(svc notifications.Service) error {
				return svc.NotifySelectionNeeded(context.Background(), "the thing", 2)
			},
			expectTitle:    "Marquee - Selection Needed",
			expectMessage:  `❓ 2 matches for "the thing", pick one before the timeout`,
			expectTags:     "marquee,selection,review",
			expectPriority: "high",
		},
		{
			name: "published",
			notify: func(svc notifications.Service) error {
				return svc.NotifyPublished(context.Background(), "Arrival", "msg-42")
			},
			expectTitle:   "Marquee - Published",
			expectMessage: "✅ Published: Arrival\nPost: msg-42",
			expectTags:    "marquee,publish,completed",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("tmdb unavailable"), "resolving")
			},
			expectTitle:    "Marquee - Error",
			expectMessage:  "❌ Error with resolving: tmdb unavailable",
			expectTags:     "marquee,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.DedupWindowSeconds = 0

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceDeduplicatesRepeatEvents(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.DedupWindowSeconds = 300

	svc := notifications.NewService(&cfg)
	for i := 0; i < 3; i++ {
		if err := svc.NotifyResolved(context.Background(), "Inception", 2010); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("ntfy called %d times, want 1 within dedup window", got)
	}

	// A different movie is its own event key.
	if err := svc.NotifyResolved(context.Background(), "Arrival", 2016); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("ntfy called %d times, want 2", got)
	}
}

func TestPipelineAdapterHonorsToggles(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.DedupWindowSeconds = 0
	cfg.Notifications.Resolution = false
	cfg.Notifications.Publication = true

	adapter := notifications.NewPipelineAdapter(&cfg, notifications.NewService(&cfg))
	record := &metadata.Record{ID: 27205, Title: "Inception", Year: 2010}

	adapter.MovieResolved(context.Background(), "q-1", record)
	if got := calls.Load(); got != 0 {
		t.Fatalf("disabled resolution event sent %d notifications", got)
	}

	adapter.PosterPublished(context.Background(), "q-1", record, "msg-1")
	if got := calls.Load(); got != 1 {
		t.Fatalf("publication event sent %d notifications, want 1", got)
	}

	adapter.SelectionRequested(context.Background(), "q-1", &resolver.Selection{})
	adapter.QueryFailed(context.Background(), "q-1", "resolving", errors.New("boom"))
}
