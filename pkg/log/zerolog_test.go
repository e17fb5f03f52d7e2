package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestZerologAdapter_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf))

	z.Info("registered",
		String("id", "http"),
		Int("members", 2),
		Bool("running", true),
		Duration("timeout", 15*time.Second),
		Err(errors.New("boom")),
		Strings("live", []string{"http", "db"}),
		Time("at", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["message"] != "registered" {
		t.Errorf("message = %v, want registered", entry["message"])
	}
	if entry["id"] != "http" {
		t.Errorf("id = %v, want http", entry["id"])
	}
	if entry["members"] != float64(2) {
		t.Errorf("members = %v, want 2", entry["members"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v, want boom", entry["error"])
	}
	live, ok := entry["live"].([]interface{})
	if !ok || len(live) != 2 || live[0] != "http" || live[1] != "db" {
		t.Errorf("live = %v, want [http db]", entry["live"])
	}
	if entry["at"] != "2024-01-02T03:04:05Z" {
		t.Errorf("at = %v, want 2024-01-02T03:04:05Z", entry["at"])
	}
}

func TestZerologAdapter_DebugToggle(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	z.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug output written while disabled: %q", buf.String())
	}

	if got := z.ToggleDebug(); !got {
		t.Fatal("ToggleDebug() = false, want true")
	}
	z.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug output missing after toggle: %q", buf.String())
	}

	z.SetDebug(false)
	if z.DebugEnabled() {
		t.Error("DebugEnabled() = true after SetDebug(false)")
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) did not return NoopLogger")
	}
	z := NewZerologAdapter()
	if OrNoop(z) != Logger(z) {
		t.Error("OrNoop(z) did not return z")
	}
}
