package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger_LevelAndJSON(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "prod", "warn")

	l.Info().Msg("dropped")
	l.Warn().Str("city", "Columbus usa").Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("want one line, got %q", buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if ev["city"] != "Columbus usa" || ev["level"] != "warn" || ev["app"] != "tripadvisor_hotels" {
		t.Fatalf("unexpected event: %v", ev)
	}
}

func TestNewLogger_BadLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "prod", "chatty")
	l.Debug().Msg("dropped")
	l.Info().Msg("kept")
	if n := strings.Count(buf.String(), "\n"); n != 1 {
		t.Fatalf("want one line, got %d: %q", n, buf.String())
	}
}

func TestNewLogger_DevIsConsole(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "dev", "info")
	l.Info().Msg("hello")
	if strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("dev logger wrote JSON: %q", buf.String())
	}
}
