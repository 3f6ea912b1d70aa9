package tmdb

import (
	"context"
	"net/url"
	"sync"
	"time"
)

const genreRefreshInterval = 24 * time.Hour

type genreListResponse struct {
	Genres []Genre `json:"genres"`
}

// genreTable caches the TMDB genre id to name mapping with a daily refresh.
// When the remote list cannot be fetched, a static fallback is served so
// captions never go out genre-less.
type genreTable struct {
	client *Client

	mu        sync.Mutex
	names     map[int64]string
	fetchedAt time.Time
}

func newGenreTable(client *Client) *genreTable {
	return &genreTable{client: client}
}

// GenreNames returns the current genre id to name mapping.
func (c *Client) GenreNames(ctx context.Context) map[int64]string {
	return c.genres.current(ctx)
}

func (g *genreTable) current(ctx context.Context) map[int64]string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.names != nil && time.Since(g.fetchedAt) < genreRefreshInterval {
		return g.names
	}

	var payload genreListResponse
	if err := g.client.getJSON(ctx, "/genre/movie/list", url.Values{}, &payload); err != nil {
		if g.names != nil {
			return g.names
		}
		return fallbackGenres
	}

	names := make(map[int64]string, len(payload.Genres))
	for _, genre := range payload.Genres {
		names[genre.ID] = genre.Name
	}
	if len(names) == 0 {
		return fallbackGenres
	}
	g.names = names
	g.fetchedAt = time.Now()
	return g.names
}

var fallbackGenres = map[int64]string{
	28:    "Action",
	12:    "Adventure",
	16:    "Animation",
	35:    "Comedy",
	80:    "Crime",
	99:    "Documentary",
	18:    "Drama",
	10751: "Family",
	14:    "Fantasy",
	36:    "History",
	27:    "Horror",
	10402: "Music",
	9648:  "Mystery",
	10749: "Romance",
	878:   "Science Fiction",
	10770: "TV Movie",
	53:    "Thriller",
	10752: "War",
	37:    "Western",
}
