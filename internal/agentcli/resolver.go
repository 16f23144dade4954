// Package agentcli drives the external child agent: binary resolution,
// one-shot invocations, and model discovery.
package agentcli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/nextlevelbuilder/openclaw/internal/config"
)

// Resolve returns the child-agent binary path. Resolution order:
// CURSOR_AGENT_PATH env, cursor_agent_path in config, delegate override,
// ~/.local/bin/cursor-agent, then $PATH lookup.
func Resolve(cfg *config.Config) (string, error) {
	candidates := []string{
		os.Getenv("CURSOR_AGENT_PATH"),
	}
	if cfg != nil {
		candidates = append(candidates, cfg.CursorAgentPath, cfg.Delegate.CursorAgentPath)
	}
	home, _ := os.UserHomeDir()
	candidates = append(candidates, filepath.Join(home, ".local", "bin", "cursor-agent"))

	for _, c := range candidates {
		if c == "" {
			continue
		}
		c = config.ExpandHome(c)
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c, nil
		}
	}
	if p, err := exec.LookPath("cursor-agent"); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("cursor-agent binary not found (set CURSOR_AGENT_PATH or cursor_agent_path in config)")
}
