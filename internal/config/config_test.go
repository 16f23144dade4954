package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestSanitizeSession verifies the session-name sanitizer keeps only safe
// characters and falls back to "default".
func TestSanitizeSession(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "work", "work"},
		{"mixed", "my chat!", "mychat"},
		{"dashes and underscores", "a_b-c", "a_b-c"},
		{"only unsafe", "!!!///", "default"},
		{"empty", "", "default"},
		{"unicode stripped", "чат42", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeSession(tt.in); got != tt.want {
				t.Errorf("SanitizeSession(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestHistoryPath verifies the default session maps to the unsuffixed file and
// named sessions get a suffix.
func TestHistoryPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if got := filepath.Base(HistoryPath("")); got != ".cursor-enhanced-history.json" {
		t.Errorf("default history file = %q", got)
	}
	if got := filepath.Base(HistoryPath("work")); got != ".cursor-enhanced-history-work.json" {
		t.Errorf("named history file = %q", got)
	}
	if got := filepath.Base(HistoryPath("!!!")); got != ".cursor-enhanced-history.json" {
		t.Errorf("unsafe session should map to default file, got %q", got)
	}
}

// TestLoad_MissingFile verifies a missing config file yields defaults, not an
// error.
func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DelegateTimeout(0) != 3600 {
		t.Errorf("default delegate timeout = %d, want 3600", cfg.DelegateTimeout(0))
	}
}

// TestLoad_EnvOverridesFile verifies env vars win over file values.
func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		// comments are tolerated
		"cursor_agent_path": "/from/file",
		"channels": {"telegram": {"botToken": "file-token"}},
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CURSOR_AGENT_PATH", "/from/env")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CursorAgentPath != "/from/env" {
		t.Errorf("CursorAgentPath = %q, want env override", cfg.CursorAgentPath)
	}
	if cfg.Channels.Telegram.BotToken != "file-token" {
		t.Errorf("BotToken = %q, want file value", cfg.Channels.Telegram.BotToken)
	}
}

// TestDelegateTimeout verifies the 60 s floor and the config default.
func TestDelegateTimeout(t *testing.T) {
	cfg := &Config{Delegate: DelegateConfig{TimeoutSeconds: 120}}
	if got := cfg.DelegateTimeout(0); got != 120 {
		t.Errorf("config default = %d, want 120", got)
	}
	if got := cfg.DelegateTimeout(10); got != 60 {
		t.Errorf("floor = %d, want 60", got)
	}
	if got := cfg.DelegateTimeout(900); got != 900 {
		t.Errorf("explicit = %d, want 900", got)
	}
}

// TestMemoryFlushSettings verifies defaults and the disabled switch.
func TestMemoryFlushSettings(t *testing.T) {
	cfg := &Config{}
	mf := cfg.MemoryFlushSettings()
	if mf == nil {
		t.Fatal("expected enabled defaults")
	}
	if mf.SoftThresholdTokens != 4000 || mf.ReserveTokensFloor != 20000 {
		t.Errorf("defaults = %+v", mf)
	}

	off := false
	cfg.Compaction = &CompactionConfig{MemoryFlush: &MemoryFlushConfig{Enabled: &off}}
	if cfg.MemoryFlushSettings() != nil {
		t.Error("expected nil when disabled")
	}
}
