package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func plain(buf *bytes.Buffer, level slog.Level) Logger {
	return New(NewPrettyHandler(buf, &slog.HandlerOptions{Level: level}).NoColor())
}

func TestForFormat(t *testing.T) {
	t.Parallel()
	for _, format := range []string{"", "pretty", "json", "text"} {
		var buf bytes.Buffer
		log, err := ForFormat(&buf, format, slog.LevelInfo)
		if err != nil {
			t.Fatalf("ForFormat(%q): %v", format, err)
		}
		log.Info("format check", "type", "GRIB2")
		if !strings.Contains(buf.String(), "format check") {
			t.Fatalf("ForFormat(%q): expected message, got: %s", format, buf.String())
		}
	}
	if _, err := ForFormat(&bytes.Buffer{}, "xml", slog.LevelInfo); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestJSONFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	JSON(&buf, slog.LevelInfo).With("driver", "grib").Warn("unavailable", "type", "NCZarr")

	out := buf.String()
	for _, want := range []string{`"level":"WARN"`, `"driver":"grib"`, `"type":"NCZarr"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output, got: %s", want, out)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := plain(&buf, slog.LevelWarn)
	log.Debug("hidden")
	log.Info("hidden")
	if buf.Len() > 0 {
		t.Fatalf("expected no output below warn, got: %s", buf.String())
	}
	log.Error("shown")
	if !strings.Contains(buf.String(), "ERROR shown") {
		t.Fatalf("expected error line, got: %s", buf.String())
	}
}

func TestPrettyPlainLayout(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	plain(&buf, slog.LevelDebug).Info("opened iterator", "path", "a.grb", "fields", 3)

	line := buf.String()
	if strings.Contains(line, "\033[") {
		t.Fatalf("plain handler wrote escape sequences: %q", line)
	}
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "\n") {
		t.Fatalf("unexpected layout: %q", line)
	}
	if !strings.Contains(line, "] INFO  opened iterator path=a.grb fields=3") {
		t.Fatalf("unexpected line: %q", line)
	}
}

func TestPrettyColors(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	New(NewPrettyHandler(&buf, nil)).Error("boom")
	if !strings.Contains(buf.String(), colorRed) {
		t.Fatalf("expected red error level, got: %q", buf.String())
	}
}

func TestPrettyValues(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	plain(&buf, slog.LevelInfo).Info("values",
		"state", `gridscan::SRV advanced "x.srv" 2`,
		"empty", "",
		"took", 1500*time.Millisecond,
		"error", errors.New("no such file"),
	)

	out := buf.String()
	for _, want := range []string{
		`state="gridscan::SRV advanced \"x.srv\" 2"`,
		`empty=""`,
		`took=1.5s`,
		`error="no such file"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output, got: %s", want, out)
		}
	}
}

func TestPrettyGroups(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := plain(&buf, slog.LevelInfo).With("driver", "stream").WithGroup("replay").WithGroup("src")
	log.Info("skip", "count", 4, slog.Group("pos", "index", 5))

	out := buf.String()
	for _, want := range []string{"driver=stream", "replay.src.count=4", "replay.src.pos.index=5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output, got: %s", want, out)
		}
	}
}

func TestPrettyWithAttrsIsolated(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	base := plain(&buf, slog.LevelInfo)
	a := base.With("cursor", "a")
	b := base.With("cursor", "b")
	a.Info("one")
	b.Info("two")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], "one cursor=a") || !strings.HasSuffix(lines[1], "two cursor=b") {
		t.Fatalf("attributes leaked between loggers: %q", lines)
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), plain(&buf, slog.LevelInfo))
	FromContext(ctx).Info("from context")
	if !strings.Contains(buf.String(), "from context") {
		t.Fatalf("expected message via context logger, got: %s", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext without logger returned nil")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q): got %v want %v", in, got, want)
		}
	}
}

func TestTextAndDiscard(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	Text(&buf, slog.LevelInfo).Info("plain", "tag", "srv")
	if !strings.Contains(buf.String(), "tag=srv") {
		t.Fatalf("expected key=value in text output, got: %s", buf.String())
	}
	Discard().Error("dropped")
}
