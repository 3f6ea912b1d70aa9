package ingest

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"marquee/internal/metadata"
	"marquee/internal/services"
)

// Source identifies where a raw query came from.
type Source string

const (
	SourceText     Source = "text"
	SourceFilename Source = "filename"
	SourceCaption  Source = "caption"
)

// Query is a raw inbound movie reference before normalization. Transient;
// created per incoming message and discarded after normalization.
type Query struct {
	Raw      string
	Source   Source
	YearHint int
}

// earliestYear is the year of the first surviving film. Anything older is
// treated as part of the title, not a release year.
const earliestYear = 1888

var (
	urlPattern          = regexp.MustCompile(`https?://\S+`)
	bracketYearPattern  = regexp.MustCompile(`[\[({]\s*(1[89]\d{2}|20\d{2})\s*[\])}]`)
	bracketPattern      = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\{[^}]*\}`)
	seriesPattern       = regexp.MustCompile(`(?i)^(.{2,}?)[.\s_-]+(?:s\d{1,2}(?:e\d{1,2})?|season[\s.]?\d{1,2}|\d{1,2}x\d{2})\b`)
	noisePattern        = regexp.MustCompile(`(?i)\b(?:\d{3,4}p|2160p|4k|uhd|bluray|blu-ray|brrip|bdrip|webrip|web-dl|webdl|hdrip|dvdrip|dvdscr|hdtv|cam|ts|x264|x265|h264|h265|hevc|avc|av1|aac|ac3|eac3|dts|dd5\.1|ddp5\.1|truehd|atmos|10bit|hdr|remux|proper|repack|extended|unrated|remastered|directors?\.?cut|multi|dual\.?audio|dubbed|subbed|amzn|nf|web|rarbg|yts|yify)\b`)
	trailingYearPattern = regexp.MustCompile(`\s(\d{4})$`)
	spacePattern        = regexp.MustCompile(`\s+`)
)

// Normalize produces the canonical lookup query for a raw reference.
// Side-effect free; the same input always yields the same output.
func Normalize(raw Query) (metadata.NormalizedQuery, error) {
	text := strings.TrimSpace(raw.Raw)
	if text == "" {
		return metadata.NormalizedQuery{}, services.Wrap(services.ErrUnparsableQuery, "normalizing", "inspect input", "empty input", nil)
	}

	if raw.Source == SourceFilename {
		text = strings.TrimSuffix(text, filepath.Ext(text))
		if m := seriesPattern.FindStringSubmatch(text); m != nil {
			text = m[1]
		}
	}

	text = urlPattern.ReplaceAllString(text, " ")
	text = bracketYearPattern.ReplaceAllString(text, " $1 ")
	text = bracketPattern.ReplaceAllString(text, " ")
	text = noisePattern.ReplaceAllString(text, " ")
	text = separatorsToSpaces(text)
	text = spacePattern.ReplaceAllString(text, " ")
	text = strings.ToLower(strings.TrimSpace(text))

	// Only a trailing token is treated as a release year, and only when it
	// falls in the plausible range. "2001: A Space Odyssey" keeps its 2001
	// and "Blade Runner 2049" keeps its 2049.
	year := raw.YearHint
	if m := trailingYearPattern.FindStringSubmatch(text); m != nil {
		if y := plausibleYear(m[1]); y != 0 {
			if year == 0 {
				year = y
			}
			text = strings.TrimSpace(text[:len(text)-len(m[0])])
		}
	}
	text = strings.TrimSpace(strings.TrimLeft(text, ": "))

	if len(text) > 100 {
		text = strings.TrimSpace(text[:100])
	}

	if !hasLetter(text) {
		return metadata.NormalizedQuery{}, services.Wrap(services.ErrUnparsableQuery, "normalizing", "clean title", "no alphabetic content remains", nil)
	}

	return metadata.NormalizedQuery{Title: text, Year: year}, nil
}

// plausibleYear parses token as a release year, 1888 through next year.
// Returns 0 for anything outside the window.
func plausibleYear(token string) int {
	year, err := strconv.Atoi(token)
	if err != nil || year < earliestYear || year > time.Now().Year()+1 {
		return 0
	}
	return year
}

func separatorsToSpaces(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '\'' || r == ':' || r == '&':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func hasLetter(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
