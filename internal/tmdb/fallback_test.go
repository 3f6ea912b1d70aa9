package tmdb_test

import (
	"context"
	"errors"
	"testing"

	"marquee/internal/tmdb"
)

type stubSearcher struct {
	resp        *tmdb.Response
	searchErr   error
	details     *tmdb.Result
	detailsErr  error
	genres      map[int64]string
	searchCalls int
	detailCalls int
}

func (s *stubSearcher) SearchMovie(ctx context.Context, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	s.searchCalls++
	return s.resp, s.searchErr
}

func (s *stubSearcher) MovieDetails(ctx context.Context, movieID int64) (*tmdb.Result, error) {
	s.detailCalls++
	return s.details, s.detailsErr
}

func (s *stubSearcher) GenreNames(ctx context.Context) map[int64]string {
	return s.genres
}

func TestFallbackSearchPrimarySuccess(t *testing.T) {
	primary := &stubSearcher{resp: &tmdb.Response{Results: []tmdb.Result{{ID: 27205, Title: "Inception"}}}}
	secondary := &stubSearcher{resp: &tmdb.Response{Results: []tmdb.Result{{ID: 1, Title: "Other"}}}}
	fallback := tmdb.NewFallback(primary, secondary, nil)

	resp, err := fallback.SearchMovie(context.Background(), "inception", tmdb.SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "Inception" {
		t.Fatalf("unexpected results: %#v", resp.Results)
	}
	if secondary.searchCalls != 0 {
		t.Fatal("secondary must not be consulted when primary succeeds")
	}
}

func TestFallbackSearchOnPrimaryError(t *testing.T) {
	primary := &stubSearcher{searchErr: errors.New("tmdb unreachable")}
	secondary := &stubSearcher{resp: &tmdb.Response{Results: []tmdb.Result{{ID: 42, Title: "Inception"}}}}
	fallback := tmdb.NewFallback(primary, secondary, nil)

	resp, err := fallback.SearchMovie(context.Background(), "inception", tmdb.SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != 42 {
		t.Fatalf("expected secondary results, got %#v", resp.Results)
	}
}

func TestFallbackSearchOnEmptyPrimary(t *testing.T) {
	primary := &stubSearcher{resp: &tmdb.Response{}}
	secondary := &stubSearcher{resp: &tmdb.Response{Results: []tmdb.Result{{ID: 42, Title: "Inception"}}}}
	fallback := tmdb.NewFallback(primary, secondary, nil)

	resp, err := fallback.SearchMovie(context.Background(), "inception", tmdb.SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected secondary results, got %#v", resp.Results)
	}
	if secondary.searchCalls != 1 {
		t.Fatalf("secondary consulted %d times, want 1", secondary.searchCalls)
	}
}

func TestFallbackSearchBothFail(t *testing.T) {
	primaryErr := errors.New("tmdb unreachable")
	primary := &stubSearcher{searchErr: primaryErr}
	secondary := &stubSearcher{searchErr: errors.New("omdb unreachable")}
	fallback := tmdb.NewFallback(primary, secondary, nil)

	if _, err := fallback.SearchMovie(context.Background(), "inception", tmdb.SearchOptions{}); !errors.Is(err, primaryErr) {
		t.Fatalf("expected the primary error to surface, got %v", err)
	}
}

func TestFallbackSearchSkipsSecondaryWhenCancelled(t *testing.T) {
	primary := &stubSearcher{searchErr: context.Canceled}
	secondary := &stubSearcher{resp: &tmdb.Response{Results: []tmdb.Result{{ID: 42}}}}
	fallback := tmdb.NewFallback(primary, secondary, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fallback.SearchMovie(ctx, "inception", tmdb.SearchOptions{}); err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if secondary.searchCalls != 0 {
		t.Fatal("secondary must not be consulted after cancellation")
	}
}

func TestFallbackDetailsRoutesReservedRange(t *testing.T) {
	primary := &stubSearcher{details: &tmdb.Result{ID: 27205, Title: "Inception"}}
	secondary := &stubSearcher{details: &tmdb.Result{ID: tmdb.SecondaryIDBase + 133093, Title: "The Matrix"}}
	fallback := tmdb.NewFallback(primary, secondary, nil)

	res, err := fallback.MovieDetails(context.Background(), tmdb.SecondaryIDBase+133093)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if res.Title != "The Matrix" {
		t.Fatalf("reserved-range id resolved against the wrong source: %#v", res)
	}
	if primary.detailCalls != 0 {
		t.Fatal("primary must not be consulted for reserved-range ids")
	}
}

func TestFallbackDetailsOnPrimaryError(t *testing.T) {
	primary := &stubSearcher{detailsErr: errors.New("tmdb unreachable")}
	secondary := &stubSearcher{details: &tmdb.Result{ID: 27205, Title: "Inception"}}
	fallback := tmdb.NewFallback(primary, secondary, nil)

	res, err := fallback.MovieDetails(context.Background(), 27205)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if res.Title != "Inception" {
		t.Fatalf("unexpected result: %#v", res)
	}
}

func TestFallbackGenreNames(t *testing.T) {
	primary := &stubSearcher{}
	secondary := &stubSearcher{genres: map[int64]string{28: "Action"}}
	fallback := tmdb.NewFallback(primary, secondary, nil)

	if names := fallback.GenreNames(context.Background()); names[28] != "Action" {
		t.Fatalf("expected secondary genre table, got %v", names)
	}

	primary.genres = map[int64]string{878: "Science Fiction"}
	if names := fallback.GenreNames(context.Background()); names[878] != "Science Fiction" {
		t.Fatalf("expected primary genre table, got %v", names)
	}
}
