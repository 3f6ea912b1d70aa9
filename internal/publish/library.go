package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"marquee/internal/catalog"
	"marquee/internal/config"
	"marquee/internal/fileutil"
	"marquee/internal/metadata"
	"marquee/internal/textutil"
)

// LibraryPublisher files published posters into a local directory, writing
// the caption to a sidecar text file. The destination path doubles as the
// channel reference. It is the default outbound channel when no external
// transport is wired in.
type LibraryPublisher struct {
	dir string
}

// NewLibraryPublisher builds a publisher rooted under the data directory.
func NewLibraryPublisher(cfg *config.Config) *LibraryPublisher {
	return &LibraryPublisher{dir: filepath.Join(cfg.Paths.DataDir, "published")}
}

func (p *LibraryPublisher) Publish(ctx context.Context, asset *catalog.PosterRef, record *metadata.Record, caption string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("create publish dir: %w", err)
	}

	base := publishedBaseName(record)
	destPath := filepath.Join(p.dir, base+".jpg")
	if err := fileutil.CopyFileVerified(asset.FilePath, destPath); err != nil {
		return "", fmt.Errorf("copy poster: %w", err)
	}
	if err := os.WriteFile(filepath.Join(p.dir, base+".txt"), []byte(caption), 0o644); err != nil {
		return "", fmt.Errorf("write caption: %w", err)
	}
	return destPath, nil
}

// publishedBaseName produces a filesystem-safe "Title (Year) [id]" base.
func publishedBaseName(record *metadata.Record) string {
	title := textutil.SanitizeFileName(record.Title)
	if title == "" {
		title = "untitled"
	}
	if record.Year > 0 {
		title = fmt.Sprintf("%s (%d)", title, record.Year)
	}
	return fmt.Sprintf("%s [%d]", title, record.ID)
}
