package metadata

import (
	"testing"
	"time"
)

func TestNormalizedQueryKey(t *testing.T) {
	q := NormalizedQuery{Title: "inception", Year: 2010}
	if q.Key() != "inception|2010" {
		t.Fatalf("unexpected key %q", q.Key())
	}
	q = NormalizedQuery{Title: "the thing"}
	if q.Key() != "the thing" {
		t.Fatalf("unexpected key %q", q.Key())
	}
}

func TestVersionStableAcrossGenreOrder(t *testing.T) {
	a := Record{ID: 1, Title: "Inception", Year: 2010, Genres: []string{"Sci-Fi", "Action"}, Rating: 8.3}
	b := Record{ID: 1, Title: "Inception", Year: 2010, Genres: []string{"Action", "Sci-Fi"}, Rating: 8.3}
	if a.Version(0.5) != b.Version(0.5) {
		t.Fatal("genre order should not change the version")
	}
}

func TestVersionIgnoresSubThresholdRatingDrift(t *testing.T) {
	a := Record{ID: 1, Title: "Inception", Rating: 8.3}
	b := Record{ID: 1, Title: "Inception", Rating: 8.4}
	if a.Version(0.5) != b.Version(0.5) {
		t.Fatal("rating drift below the significance step should not change the version")
	}

	c := Record{ID: 1, Title: "Inception", Rating: 8.8}
	if a.Version(0.5) == c.Version(0.5) {
		t.Fatal("significant rating change should produce a new version")
	}
}

func TestVersionChangesWithContent(t *testing.T) {
	a := Record{ID: 1, Title: "Inception", Synopsis: "A thief"}
	b := Record{ID: 1, Title: "Inception", Synopsis: "A thief who steals"}
	if a.Version(0.5) == b.Version(0.5) {
		t.Fatal("synopsis change should produce a new version")
	}
}

func TestAge(t *testing.T) {
	now := time.Now()
	r := Record{FetchedAt: now.Add(-time.Hour)}
	if got := r.Age(now); got != time.Hour {
		t.Fatalf("unexpected age %v", got)
	}
	if (Record{}).Age(now) != 0 {
		t.Fatal("zero fetch time should report zero age")
	}
}
