// Package omdb implements the Open Movie Database API as a secondary
// metadata source. It satisfies the same Searcher contract as the TMDB
// client so the pipeline can fall back to it transparently.
package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marquee/internal/tmdb"
)

// Client provides access to the OMDb API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ tmdb.Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates an OMDb client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("omdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("omdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// searchEntry is one row of an OMDb "s=" search response.
type searchEntry struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	ImdbID string `json:"imdbID"`
	Poster string `json:"Poster"`
}

type searchResponse struct {
	Response string        `json:"Response"`
	Search   []searchEntry `json:"Search"`
	Error    string        `json:"Error"`
}

// detailResponse is the "i=" full-record response.
type detailResponse struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Released   string `json:"Released"`
	Genre      string `json:"Genre"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	ImdbRating string `json:"imdbRating"`
	ImdbVotes  string `json:"imdbVotes"`
	ImdbID     string `json:"imdbID"`
}

// SearchMovie queries OMDb by title. A "Movie not found!" reply is an empty
// response, not an error; the dedicated error string is how OMDb reports a
// miss.
func (c *Client) SearchMovie(ctx context.Context, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("s", query)
	params.Set("type", "movie")
	params.Set("r", "json")
	if opts.Year > 0 {
		params.Set("y", strconv.Itoa(opts.Year))
	}

	var payload searchResponse
	if err := c.getJSON(ctx, params, &payload); err != nil {
		return nil, fmt.Errorf("omdb search: %w", err)
	}
	resp := &tmdb.Response{Page: 1}
	if payload.Response != "True" {
		return resp, nil
	}
	for _, entry := range payload.Search {
		id, err := decodeImdbID(entry.ImdbID)
		if err != nil {
			continue
		}
		resp.Results = append(resp.Results, tmdb.Result{
			ID:          id,
			Title:       entry.Title,
			ReleaseDate: releaseDateFromYear(entry.Year),
			PosterPath:  cleanValue(entry.Poster),
		})
	}
	resp.TotalResults = len(resp.Results)
	if resp.TotalResults > 0 {
		resp.TotalPages = 1
	}
	return resp, nil
}

// MovieDetails fetches a full record by the encoded IMDb identifier.
func (c *Client) MovieDetails(ctx context.Context, movieID int64) (*tmdb.Result, error) {
	imdbID, err := encodeImdbID(movieID)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("i", imdbID)
	params.Set("plot", "full")
	params.Set("r", "json")

	var payload detailResponse
	if err := c.getJSON(ctx, params, &payload); err != nil {
		return nil, fmt.Errorf("omdb details: %w", err)
	}
	if payload.Response != "True" {
		return nil, fmt.Errorf("omdb details for %s: %s", imdbID, cleanValue(payload.Error))
	}

	result := &tmdb.Result{
		ID:          movieID,
		Title:       payload.Title,
		Overview:    cleanValue(payload.Plot),
		ReleaseDate: releaseDateFromYear(payload.Year),
		PosterPath:  cleanValue(payload.Poster),
		VoteAverage: parseRating(payload.ImdbRating),
		VoteCount:   parseVotes(payload.ImdbVotes),
	}
	for _, name := range strings.Split(cleanValue(payload.Genre), ",") {
		if name = strings.TrimSpace(name); name != "" {
			result.Genres = append(result.Genres, tmdb.Genre{Name: name})
		}
	}
	return result, nil
}

// GenreNames returns nil. OMDb records carry genre names inline, so no id
// table is needed.
func (c *Client) GenreNames(ctx context.Context) map[int64]string {
	return nil
}

func (c *Client) getJSON(ctx context.Context, params url.Values, out any) error {
	params.Set("apikey", c.apiKey)
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse omdb url: %w", err)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("omdb returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode omdb response: %w", err)
	}
	return nil
}

// decodeImdbID maps an IMDb identifier like "tt0133093" into the reserved
// secondary-source range so detail lookups route back to this client.
func decodeImdbID(imdbID string) (int64, error) {
	digits := strings.TrimPrefix(strings.TrimSpace(imdbID), "tt")
	numeric, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || numeric <= 0 {
		return 0, fmt.Errorf("malformed imdb id %q", imdbID)
	}
	return tmdb.SecondaryIDBase + numeric, nil
}

func encodeImdbID(movieID int64) (string, error) {
	if movieID <= tmdb.SecondaryIDBase {
		return "", fmt.Errorf("movie id %d is outside the omdb range", movieID)
	}
	return fmt.Sprintf("tt%07d", movieID-tmdb.SecondaryIDBase), nil
}

// cleanValue collapses OMDb's "N/A" placeholder to an empty string.
func cleanValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "N/A" {
		return ""
	}
	return value
}

// releaseDateFromYear synthesizes an ISO date from OMDb's Year field, which
// may carry a range like "2010-2015".
func releaseDateFromYear(year string) string {
	year = cleanValue(year)
	if len(year) < 4 {
		return ""
	}
	if _, err := strconv.Atoi(year[:4]); err != nil {
		return ""
	}
	return year[:4] + "-01-01"
}

func parseRating(raw string) float64 {
	rating, err := strconv.ParseFloat(cleanValue(raw), 64)
	if err != nil {
		return 0
	}
	return rating
}

func parseVotes(raw string) int64 {
	votes, err := strconv.ParseInt(strings.ReplaceAll(cleanValue(raw), ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return votes
}
