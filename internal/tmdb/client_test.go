package tmdb_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"marquee/internal/tmdb"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := tmdb.New("", "https://example.com", "en-US"); err == nil {
		t.Fatal("expected error when api key missing")
	}
}

func TestSearchMovieSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "key" {
			t.Errorf("expected api_key query parameter, got %q", r.URL.RawQuery)
		}
		if r.URL.Query().Get("primary_release_year") != "2010" {
			t.Errorf("expected year filter, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":27205,"title":"Inception","release_date":"2010-07-15","popularity":80.5}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "en-US")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	resp, err := client.SearchMovie(context.Background(), "Inception", tmdb.SearchOptions{Year: 2010})
	if err != nil {
		t.Fatalf("SearchMovie returned error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "Inception" {
		t.Fatalf("unexpected response: %#v", resp)
	}
	candidate := tmdb.Candidate(resp.Results[0])
	if candidate.Year != 2010 || candidate.ID != 27205 {
		t.Fatalf("unexpected candidate: %#v", candidate)
	}
}

func TestSearchMovieHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.SearchMovie(context.Background(), "fail", tmdb.SearchOptions{}); err == nil {
		t.Fatal("expected error when TMDB returns non-200")
	}
}

func TestSearchMovieEmptyQuery(t *testing.T) {
	client, err := tmdb.New("key", "https://example.com", "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.SearchMovie(context.Background(), "  ", tmdb.SearchOptions{}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestMovieDetailsBuildsRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/27205" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":27205,"title":"Inception","overview":"A thief.","release_date":"2010-07-15","vote_average":8.4,"poster_path":"/abc.jpg","genres":[{"id":28,"name":"Action"},{"id":878,"name":"Science Fiction"}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "en-US")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	res, err := client.MovieDetails(context.Background(), 27205)
	if err != nil {
		t.Fatalf("MovieDetails returned error: %v", err)
	}
	record := tmdb.Record(*res, nil, time.Now())
	if record.ID != 27205 || record.Year != 2010 {
		t.Fatalf("unexpected record: %#v", record)
	}
	if len(record.Genres) != 2 || record.Genres[0] != "Action" {
		t.Fatalf("unexpected genres: %v", record.Genres)
	}
}

func TestGenreNamesFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	names := client.GenreNames(context.Background())
	if names[878] != "Science Fiction" {
		t.Fatalf("expected fallback genre table, got %v", names)
	}
}

func TestRateLimiterThrottles(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "", tmdb.WithRateLimit(50))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.SearchMovie(context.Background(), "q", tmdb.SearchOptions{}); err != nil {
			t.Fatalf("search %d: %v", i, err)
		}
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 upstream calls, got %d", calls.Load())
	}
	// Two waits at 50 rps means at least ~40ms total.
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("expected limiter to throttle, elapsed %v", elapsed)
	}
}
