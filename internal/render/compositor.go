package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"marquee/internal/config"
	"marquee/internal/metadata"
)

const maxArtBytes = 32 << 20

// Compositor renders a widescreen poster card: the movie's art blurred and
// darkened as a backdrop with the art itself fitted on top.
type Compositor struct {
	client       *http.Client
	imageBaseURL string
	width        int
	height       int
	jpegQuality  int
}

// NewCompositor builds a poster compositor from the render configuration.
func NewCompositor(cfg *config.Config) *Compositor {
	return &Compositor{
		client:       &http.Client{Timeout: time.Duration(cfg.Render.FetchTimeout) * time.Second},
		imageBaseURL: cfg.TMDB.ImageBaseURL,
		width:        cfg.Render.CanvasWidth,
		height:       cfg.Render.CanvasHeight,
		jpegQuality:  cfg.Render.JPEGQuality,
	}
}

// Render fetches the movie's art and composes the poster card.
func (c *Compositor) Render(ctx context.Context, record *metadata.Record) ([]byte, error) {
	if record.PosterPath == "" {
		return nil, errors.New("record has no poster art path")
	}
	art, err := c.fetchArt(ctx, record.PosterPath)
	if err != nil {
		return nil, err
	}
	return c.compose(art)
}

func (c *Compositor) fetchArt(ctx context.Context, posterPath string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ArtURL(posterPath), nil)
	if err != nil {
		return nil, fmt.Errorf("build art request: %w", err)
	}
	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch art: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch art: status %d after %s", resp.StatusCode, time.Since(started).Round(time.Millisecond))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArtBytes))
	if err != nil {
		return nil, fmt.Errorf("read art body: %w", err)
	}
	art, err := imaging.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode art: %w", err)
	}
	return art, nil
}

func (c *Compositor) compose(art image.Image) ([]byte, error) {
	backdrop := imaging.Fill(art, c.width, c.height, imaging.Center, imaging.Lanczos)
	backdrop = imaging.Blur(backdrop, 12)
	backdrop = imaging.AdjustBrightness(backdrop, -35)

	foreground := imaging.Fit(art, c.width, c.height-2*marginPx, imaging.Lanczos)
	canvas := imaging.New(c.width, c.height, color.NRGBA{R: 12, G: 12, B: 16, A: 255})
	canvas = imaging.Paste(canvas, backdrop, image.Pt(0, 0))
	offsetX := (c.width - foreground.Bounds().Dx()) / 2
	offsetY := (c.height - foreground.Bounds().Dy()) / 2
	canvas = imaging.Paste(canvas, foreground, image.Pt(offsetX, offsetY))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(c.jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode poster: %w", err)
	}
	return buf.Bytes(), nil
}

const marginPx = 24

// ArtURL returns the fetch URL for a poster reference. Relative paths are
// resolved against the configured image base; absolute URLs, as some metadata
// sources hand back, pass through unchanged.
func (c *Compositor) ArtURL(posterPath string) string {
	if strings.HasPrefix(posterPath, "http://") || strings.HasPrefix(posterPath, "https://") {
		return posterPath
	}
	return strings.TrimRight(c.imageBaseURL, "/") + "/" + strings.TrimLeft(posterPath, "/")
}
