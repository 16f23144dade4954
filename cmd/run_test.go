package cmd

import (
	"slices"
	"testing"

	"github.com/nextlevelbuilder/openclaw/internal/agentcli"
	"github.com/nextlevelbuilder/openclaw/internal/config"
)

// TestNewSession_ForceReachesCompactor verifies a --force passthrough flag is
// forwarded to the compactor, so summarize and memory-flush runs get it too,
// not just the main child run.
func TestNewSession_ForceReachesCompactor(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	opts, err := parseRootArgs([]string{"--force", "-p", "hello"})
	if err != nil {
		t.Fatalf("parseRootArgs: %v", err)
	}
	if !slices.Contains(opts.Passthrough, "--force") {
		t.Fatalf("--force not in passthrough: %v", opts.Passthrough)
	}

	runner := &agentcli.Runner{BinPath: "/bin/true"}
	session := newSession(&config.Config{}, runner, opts.Chat,
		slices.Contains(opts.Passthrough, "--force"))
	if !session.Compactor.Force {
		t.Error("Compactor.Force not set from --force passthrough")
	}

	session = newSession(&config.Config{}, runner, opts.Chat, false)
	if session.Compactor.Force {
		t.Error("Compactor.Force set without --force")
	}
}
