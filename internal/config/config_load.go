package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/titanous/json5"
)

// Load reads the config file, then overlays env vars. A missing file yields
// the defaults; a malformed file is an error (the user should fix it, not
// silently lose settings).
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays environment variables onto the loaded config. Env wins.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CURSOR_AGENT_PATH"); v != "" {
		cfg.CursorAgentPath = v
	}
	if v := os.Getenv("CURSOR_API_KEY"); v != "" {
		cfg.CursorAPIKey = v
	}
	if v := os.Getenv("CURSOR_MCP_CONFIG_PATH"); v != "" {
		cfg.MCPConfigPath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Channels.Telegram.BotToken = v
	}
	if v := os.Getenv("HOME_ASSISTANT_TOKEN"); v != "" {
		cfg.Delegate.HomeAssistantToken = v
	}
}

// ExpandHome expands a leading ~ to the user home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultPath returns the config file location (~/.cursor-enhanced-config.json).
func DefaultPath() string {
	return filepath.Join(homeDir(), ".cursor-enhanced-config.json")
}

// StateDir returns the hidden state directory (~/.cursor-enhanced).
func StateDir() string {
	return filepath.Join(homeDir(), ".cursor-enhanced")
}

// HistoryPath returns the history file for a session. The empty session maps
// to the unsuffixed file for compatibility with existing installs.
func HistoryPath(session string) string {
	name := ".cursor-enhanced-history.json"
	if s := SanitizeSession(session); s != "default" {
		name = ".cursor-enhanced-history-" + s + ".json"
	}
	return filepath.Join(homeDir(), name)
}

// HistoryMetaPath returns the metadata sidecar file for a session.
func HistoryMetaPath(session string) string {
	name := "history-meta.json"
	if s := SanitizeSession(session); s != "default" {
		name = "history-meta-" + s + ".json"
	}
	return filepath.Join(StateDir(), name)
}

// PairingPath returns the Telegram pairing store file.
func PairingPath() string { return filepath.Join(StateDir(), "telegram-pairings.json") }

// ReachSchedulesPath returns the reach schedules store file.
func ReachSchedulesPath() string { return filepath.Join(StateDir(), "reach-schedules.json") }

// NotificationsPath returns the scheduled notifications store file.
func NotificationsPath() string { return filepath.Join(StateDir(), "scheduled-notifications.json") }

// ThreadAgentsPath returns the new-thread agent store file.
func ThreadAgentsPath() string { return filepath.Join(StateDir(), "new-thread-agents.json") }

// TrackerStatePath returns the sub-agent tracker state file.
func TrackerStatePath() string { return filepath.Join(StateDir(), "subagent-tracker-state.json") }

// DetachedReportsDir returns the per-run detached report directory.
func DetachedReportsDir() string { return filepath.Join(StateDir(), "detached-reports") }

// WorkspaceDir returns the agent workspace (memory files live here).
func WorkspaceDir() string { return filepath.Join(StateDir(), "workspace") }

// SanitizeSession reduces a session name to [A-Za-z0-9_-]+, or "default" when
// nothing safe remains.
func SanitizeSession(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
