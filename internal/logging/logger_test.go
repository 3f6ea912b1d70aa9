package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger = NewComponentLogger(logger, "resolver")
	logger.Info("candidate selected", String("title", "Inception"), Int64(FieldMovieID, 27205))

	out := buf.String()
	if !strings.Contains(out, "[resolver]") {
		t.Fatalf("expected component in output, got %q", out)
	}
	if !strings.Contains(out, "candidate selected") {
		t.Fatalf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "movie_id=27205") {
		t.Fatalf("expected attr in output, got %q", out)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be suppressed, got %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn record should be emitted, got %q", out)
	}
}

func TestConsoleHandlerFlattensGroups(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("published", slog.Group("channel", slog.String("ref", "msg-42")))

	if !strings.Contains(buf.String(), "channel.ref=msg-42") {
		t.Fatalf("expected flattened group attr, got %q", buf.String())
	}
}

func TestFanoutHandlerClonesRecords(t *testing.T) {
	var a, b bytes.Buffer
	levelVar := new(slog.LevelVar)
	handler := newFanoutHandler(
		newConsoleHandler(&a, levelVar),
		newConsoleHandler(&b, levelVar),
	)
	logger := slog.New(handler)
	logger.Info("dual output", Duration("elapsed", 2*time.Second))

	if !strings.Contains(a.String(), "dual output") || !strings.Contains(b.String(), "dual output") {
		t.Fatalf("expected record in both writers: a=%q b=%q", a.String(), b.String())
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not be enabled at any level")
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("debug") != slog.LevelDebug {
		t.Fatal("debug level mismatch")
	}
	if parseLevel("") != slog.LevelInfo {
		t.Fatal("empty level should default to info")
	}
	if parseLevel("bogus") != slog.LevelInfo {
		t.Fatal("unknown level should default to info")
	}
}
