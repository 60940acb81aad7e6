// ABOUTME: Tests for dreamscribe configuration loading and path expansion.
// ABOUTME: Covers YAML parsing, defaults, env overrides, and derived storage paths.
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"tilde only", "~", home},
		{"tilde slash", "~/foo/bar", filepath.Join(home, "foo", "bar")},
		{"absolute", "/tmp/foo", "/tmp/foo"},
		{"relative", "foo/bar", "foo/bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			if err != nil {
				t.Fatalf("ExpandPath(%q) error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.HasInterpreter() {
		t.Error("expected HasInterpreter() to be false for default config")
	}
	if cfg.HasVisualizer() {
		t.Error("expected HasVisualizer() to be false for default config")
	}
	if cfg.Backend() != "file" {
		t.Errorf("expected file backend, got %q", cfg.Backend())
	}
	if cfg.LogLevel() != "info" {
		t.Errorf("expected info level, got %q", cfg.LogLevel())
	}

	want := filepath.Join(dataHome, "dreamscribe")
	if got, err := cfg.StoragePath(); err != nil || got != want {
		t.Errorf("StoragePath() = %q, %v; want %q", got, err, want)
	}
	if got, _ := cfg.LogPath(); got != filepath.Join(want, "dreamscribe.log") {
		t.Errorf("unexpected log path %q", got)
	}
}

func writeConfig(t *testing.T, content string) {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	configDir := filepath.Join(tmpDir, "dreamscribe")
	if err := os.MkdirAll(configDir, 0750); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	writeConfig(t, `storage:
  backend: SQLite
  path: "~/dreams"
ai:
  api_key: "ark-key"
  model: "doubao-pro"
  image_api_key: "sk-image"
  image_model: "gpt-image-1"
speech:
  url: "ws://localhost:9000/transcribe"
log:
  level: debug
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !cfg.HasInterpreter() {
		t.Error("expected HasInterpreter() to be true")
	}
	if !cfg.HasVisualizer() {
		t.Error("expected HasVisualizer() to be true")
	}
	if cfg.AI.ImageModel != "gpt-image-1" {
		t.Errorf("expected image_model 'gpt-image-1', got %q", cfg.AI.ImageModel)
	}
	if cfg.Speech.URL != "ws://localhost:9000/transcribe" {
		t.Errorf("unexpected speech url %q", cfg.Speech.URL)
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("expected debug level, got %q", cfg.LogLevel())
	}
	if cfg.Backend() != "sqlite" {
		t.Errorf("expected sqlite backend, got %q", cfg.Backend())
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, "dreams", "journal.db")
	if got, err := cfg.StoragePath(); err != nil {
		t.Fatalf("StoragePath() error: %v", err)
	} else if got != expected {
		t.Errorf("StoragePath() = %q, want %q", got, expected)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	writeConfig(t, "ai: [not a map\n")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	writeConfig(t, `ai:
  api_key: "file-key"
  model: "file-model"
`)
	t.Setenv("DREAMSCRIBE_AI_API_KEY", "env-key")
	t.Setenv("DREAMSCRIBE_STORAGE_BACKEND", "sqlite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.AI.APIKey != "env-key" {
		t.Errorf("expected env override, got %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "file-model" {
		t.Errorf("expected file value to survive, got %q", cfg.AI.Model)
	}
	if cfg.Backend() != "sqlite" {
		t.Errorf("expected sqlite backend from env, got %q", cfg.Backend())
	}

	fileOnly, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if fileOnly.AI.APIKey != "file-key" {
		t.Errorf("LoadFile should ignore env, got %q", fileOnly.AI.APIKey)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg := &Config{
		AI: AIConfig{
			APIKey:      "saved-key",
			Model:       "saved-model",
			ImageAPIKey: "saved-image-key",
		},
		Storage: StorageConfig{Path: "~/saved-dreams"},
	}

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	info, err := os.Stat(filepath.Join(tmpDir, "dreamscribe", "config.yaml"))
	if err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if loaded.AI.APIKey != "saved-key" {
		t.Errorf("expected api_key 'saved-key', got %q", loaded.AI.APIKey)
	}
	if loaded.AI.ImageAPIKey != "saved-image-key" {
		t.Errorf("expected image_api_key 'saved-image-key', got %q", loaded.AI.ImageAPIKey)
	}
	if loaded.Storage.Path != "~/saved-dreams" {
		t.Errorf("expected path '~/saved-dreams', got %q", loaded.Storage.Path)
	}
}
