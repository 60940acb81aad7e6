// ABOUTME: Tests for logger construction.
// ABOUTME: Verifies level parsing, fallback, and service field output.
package logging

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")
	log.Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"service":"dreamscribe"`) {
		t.Errorf("expected service field, got %s", out)
	}
	if !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("expected message, got %s", out)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")
	log.Info().Msg("quiet")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %s", buf.String())
	}
	log.Warn().Msg("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Error("expected warn message to be written")
	}
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "chatty")
	log.Debug().Msg("debug")
	log.Info().Msg("info")
	out := buf.String()
	if strings.Contains(out, `"message":"debug"`) {
		t.Error("debug should be filtered at fallback info level")
	}
	if !strings.Contains(out, `"message":"info"`) {
		t.Error("info should be written at fallback level")
	}
}

func TestOpenFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "app.log")
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString("line\n"); err != nil {
		t.Fatalf("write error: %v", err)
	}
}
