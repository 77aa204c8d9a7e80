package logging

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestNewConsoleIncludesAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "console", Writers: []io.Writer{&buf}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("imported fixture", slog.String("model", "games.game"), slog.Int("records", 3))

	out := buf.String()
	if !strings.Contains(out, "INFO") || !strings.Contains(out, "imported fixture") {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(out, "model=games.game") || !strings.Contains(out, "records=3") {
		t.Fatalf("missing attrs in output: %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("nonsense"); got != slog.LevelInfo {
		t.Fatalf("unexpected level: %v", got)
	}
	if got := parseLevel("warn"); got != slog.LevelWarn {
		t.Fatalf("unexpected level: %v", got)
	}
}
