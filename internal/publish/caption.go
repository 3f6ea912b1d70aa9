package publish

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	maxCaptionGenres = 3
	maxSynopsisRunes = 300
	synopsisEllipsis = "…"
)

var genreCaser = cases.Title(language.English)

// Caption builds the HTML caption that accompanies a published poster:
// bolded title with year, rating to one decimal, up to three genres, and a
// truncated synopsis.
func Caption(title string, year int, rating float64, genres []string, synopsis string) string {
	var builder strings.Builder

	builder.WriteString("<b>")
	builder.WriteString(html.EscapeString(title))
	if year > 0 {
		fmt.Fprintf(&builder, " (%d)", year)
	}
	builder.WriteString("</b>")

	if rating > 0 {
		fmt.Fprintf(&builder, "\n⭐ %.1f", rating)
	}

	if len(genres) > 0 {
		shown := genres
		if len(shown) > maxCaptionGenres {
			shown = shown[:maxCaptionGenres]
		}
		cased := make([]string, 0, len(shown))
		for _, genre := range shown {
			genre = strings.TrimSpace(genre)
			if genre == "" {
				continue
			}
			cased = append(cased, html.EscapeString(genreCaser.String(genre)))
		}
		if len(cased) > 0 {
			builder.WriteString("\n")
			builder.WriteString(strings.Join(cased, " · "))
		}
	}

	if synopsis = strings.TrimSpace(synopsis); synopsis != "" {
		builder.WriteString("\n\n")
		builder.WriteString(html.EscapeString(truncateSynopsis(synopsis)))
	}

	return builder.String()
}

// truncateSynopsis trims the synopsis to a rune budget, cutting at the last
// word boundary before the limit.
func truncateSynopsis(synopsis string) string {
	if utf8.RuneCountInString(synopsis) <= maxSynopsisRunes {
		return synopsis
	}
	runes := []rune(synopsis)
	cut := maxSynopsisRunes
	for cut > 0 && runes[cut-1] != ' ' {
		cut--
	}
	if cut == 0 {
		cut = maxSynopsisRunes
	}
	return strings.TrimSpace(string(runes[:cut])) + synopsisEllipsis
}
