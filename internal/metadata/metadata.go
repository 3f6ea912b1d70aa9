package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// NormalizedQuery is the canonical lookup key produced by query
// normalization: a lowercased title plus an optional release year.
// Immutable once created.
type NormalizedQuery struct {
	Title string
	Year  int
}

// Key returns the stable cache key representation.
func (q NormalizedQuery) Key() string {
	if q.Year > 0 {
		return q.Title + "|" + strconv.Itoa(q.Year)
	}
	return q.Title
}

func (q NormalizedQuery) String() string {
	if q.Year > 0 {
		return fmt.Sprintf("%s (%d)", q.Title, q.Year)
	}
	return q.Title
}

// Candidate is a single remote search result, held only during
// disambiguation.
type Candidate struct {
	ID          int64
	Title       string
	Year        int
	PosterPath  string
	Popularity  float64
	VoteAverage float64
	VoteCount   int64
}

// Record is a confirmed movie. The external ID is the primary key; records
// are immutable after creation and a re-fetch replaces the whole record.
type Record struct {
	ID         int64
	Title      string
	Year       int
	Synopsis   string
	Rating     float64
	Genres     []string
	PosterPath string
	FetchedAt  time.Time
}

// Version fingerprints the fields that matter for rendering and republish
// decisions. Rating is bucketed by ratingStep so sub-threshold rating drift
// upstream does not produce a new version.
func (r Record) Version(ratingStep float64) string {
	if ratingStep <= 0 {
		ratingStep = 0.5
	}
	bucket := math.Round(r.Rating/ratingStep) * ratingStep

	genres := append([]string(nil), r.Genres...)
	sort.Strings(genres)

	h := sha256.New()
	fmt.Fprintf(h, "%d\n%s\n%d\n%s\n%.1f\n%s\n%s",
		r.ID, r.Title, r.Year, r.Synopsis, bucket, strings.Join(genres, ","), r.PosterPath)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Age reports how long ago the record was fetched.
func (r Record) Age(now time.Time) time.Duration {
	if r.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(r.FetchedAt)
}
