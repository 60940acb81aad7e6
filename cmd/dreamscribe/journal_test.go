// ABOUTME: Tests for CLI helpers shared by the journal commands.
// ABOUTME: Covers confirmation prompts, list formatting, and image saving.
package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/2389-research/dreamscribe/internal/models"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tt.input), &out, "Delete? ")
		if err != nil {
			t.Fatalf("confirm(%q) error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "Delete? " {
			t.Errorf("expected prompt written, got %q", out.String())
		}
	}
}

func TestPrintEntryLines(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 30, 0, 0, time.Local)
	entries := []models.Entry{
		{ID: "aaaaaaaa-1", CreatedAt: now, Emotion: models.Joy, Interpretation: &models.Interpretation{Title: "Flight"}},
		{ID: "bbbbbbbb-2", CreatedAt: now, Emotion: models.Fear},
		{ID: "cccccccc-3", CreatedAt: now, Emotion: models.Neutral},
	}

	var out bytes.Buffer
	printEntryLines(&out, entries, "bbbbbbbb-2")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "aaaaaaaa  2026-03-01 08:30") || !strings.Contains(lines[0], "Flight") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if strings.Contains(lines[0], "[") {
		t.Errorf("interpreted entry should have no status, got %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "[interpreting]") {
		t.Errorf("expected processing marker, got %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "A New Dream [pending]") {
		t.Errorf("expected pending marker, got %q", lines[2])
	}
}

func TestSaveImageFromDataURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dream.png")
	if err := saveImage(context.Background(), "data:image/png;base64,QUJD", path); err != nil {
		t.Fatalf("saveImage error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ABC" {
		t.Errorf("expected decoded bytes, got %q", data)
	}
}

func TestSaveImageDownloadsHostedURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dream.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("PNGDATA"))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "dream.png")
	if err := saveImage(context.Background(), server.URL+"/dream.png", path); err != nil {
		t.Fatalf("saveImage error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "PNGDATA" {
		t.Errorf("expected downloaded bytes, got %q", data)
	}

	if err := saveImage(context.Background(), server.URL+"/missing.png", path); err == nil {
		t.Error("expected error for a missing image")
	}
}
