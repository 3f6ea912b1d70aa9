package publish

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marquee/internal/catalog"
	"marquee/internal/config"
)

func TestLibraryPublisherFilesPosterAndCaption(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = dir

	posterPath := filepath.Join(dir, "source.jpg")
	if err := os.WriteFile(posterPath, []byte("poster-bytes"), 0o644); err != nil {
		t.Fatalf("write source poster: %v", err)
	}

	publisher := NewLibraryPublisher(&cfg)
	record := testRecord()
	asset := &catalog.PosterRef{MovieID: record.ID, FilePath: posterPath}

	channelRef, err := publisher.Publish(context.Background(), asset, record, "<b>Inception (2010)</b>")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.HasSuffix(channelRef, "Inception (2010) [27205].jpg") {
		t.Fatalf("unexpected channel ref %q", channelRef)
	}

	published, err := os.ReadFile(channelRef)
	if err != nil {
		t.Fatalf("read published poster: %v", err)
	}
	if string(published) != "poster-bytes" {
		t.Fatalf("poster contents %q", published)
	}

	caption, err := os.ReadFile(strings.TrimSuffix(channelRef, ".jpg") + ".txt")
	if err != nil {
		t.Fatalf("read caption sidecar: %v", err)
	}
	if string(caption) != "<b>Inception (2010)</b>" {
		t.Fatalf("caption contents %q", caption)
	}
}

func TestPublishedBaseNameSanitizesTitle(t *testing.T) {
	record := testRecord()
	record.Title = "What/If: A Story?"
	record.Year = 0

	base := publishedBaseName(record)
	if strings.ContainsAny(base, `/\:*?"<>|`) {
		t.Fatalf("unsafe characters in %q", base)
	}
	if !strings.HasSuffix(base, "[27205]") {
		t.Fatalf("missing id suffix in %q", base)
	}
}
