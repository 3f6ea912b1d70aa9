package services_test

import (
	"errors"
	"strings"
	"testing"

	"marquee/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrRenderFailed, "rendering", "compose poster", "compositor rejected input", base)
	if !errors.Is(err, services.ErrRenderFailed) {
		t.Fatalf("expected render failed marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to survive, got %v", err)
	}
	if !strings.Contains(err.Error(), "rendering: compose poster") {
		t.Fatalf("expected stage detail in message, got %q", err.Error())
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := services.Wrap(nil, "resolving", "fetch", "", errors.New("timeout"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unparsable", services.Wrap(services.ErrUnparsableQuery, "normalizing", "", "", nil), false},
		{"no candidates", services.Wrap(services.ErrNoCandidates, "resolving", "", "", nil), false},
		{"configuration", services.ErrConfiguration, false},
		{"render", services.Wrap(services.ErrRenderFailed, "rendering", "", "", nil), true},
		{"publish", services.ErrPublishFailed, true},
		{"plain", errors.New("socket closed"), true},
	}
	for _, tc := range cases {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Fatalf("%s: Retryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}
