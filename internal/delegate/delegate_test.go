package delegate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/openclaw/internal/agentcli"
	"github.com/nextlevelbuilder/openclaw/internal/config"
)

// stubBin writes an executable shell script standing in for the child agent.
func stubBin(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cursor-agent")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func newTestRunner(t *testing.T, script string) *Runner {
	t.Helper()
	agent := &agentcli.Runner{BinPath: stubBin(t, script)}
	return NewRunner(agent, &config.Config{}, nil)
}

// TestRun_Success verifies a zero-exit child yields a successful outcome with
// the persona name attached.
func TestRun_Success(t *testing.T) {
	r := newTestRunner(t, `printf '%s' "refactor complete"`)
	out := r.Run(context.Background(), "coder", "refactor the parser", "", 60)
	if !out.Success {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Response != "refactor complete" {
		t.Errorf("response = %q", out.Response)
	}
	if out.PersonaID != "coder" || out.PersonaName != "Coder" {
		t.Errorf("persona = %q / %q", out.PersonaID, out.PersonaName)
	}
}

// TestRun_NonZeroExit verifies stderr becomes the error and stdout is kept as
// a partial response.
func TestRun_NonZeroExit(t *testing.T) {
	r := newTestRunner(t, `printf '%s' "partial"
printf '%s' "disk full" >&2
exit 3`)
	out := r.Run(context.Background(), "coder", "do the thing", "", 60)
	if out.Success {
		t.Fatal("expected failure")
	}
	if out.Error != "disk full" {
		t.Errorf("error = %q", out.Error)
	}
	if out.Response != "partial" {
		t.Errorf("response = %q", out.Response)
	}
}

// TestRun_NonZeroExitNoStderr verifies the exit-code fallback message.
func TestRun_NonZeroExitNoStderr(t *testing.T) {
	r := newTestRunner(t, `exit 7`)
	out := r.Run(context.Background(), "reviewer", "review", "", 60)
	if out.Error != "Exit code 7" {
		t.Errorf("error = %q", out.Error)
	}
}

// TestRun_UnknownPersona verifies the error lists the available persona ids.
func TestRun_UnknownPersona(t *testing.T) {
	r := newTestRunner(t, `exit 0`)
	out := r.Run(context.Background(), "wizard", "cast spell", "", 60)
	if out.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(out.Error, "Unknown persona 'wizard'") {
		t.Errorf("error = %q", out.Error)
	}
	for _, id := range []string{"coder", "researcher", "reviewer", "writer", "home_assistant"} {
		if !strings.Contains(out.Error, id) {
			t.Errorf("error missing persona %q: %s", id, out.Error)
		}
	}
}

// TestRun_MissingInputs verifies the empty-argument guard.
func TestRun_MissingInputs(t *testing.T) {
	r := newTestRunner(t, `exit 0`)
	if out := r.Run(context.Background(), "", "task", "", 60); out.Success || out.Error == "" {
		t.Errorf("outcome = %+v", out)
	}
	if out := r.Run(context.Background(), "coder", "   ", "", 60); out.Success || out.Error == "" {
		t.Errorf("outcome = %+v", out)
	}
}

// TestRun_BinaryNotFound verifies the missing-binary error names the path.
func TestRun_BinaryNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "cursor-agent")
	r := NewRunner(&agentcli.Runner{BinPath: missing}, &config.Config{}, nil)
	out := r.Run(context.Background(), "coder", "task", "", 60)
	if out.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(out.Error, "cursor-agent not found at "+missing) {
		t.Errorf("error = %q", out.Error)
	}
}

// TestRun_TracksExecution verifies runs are recorded in the tracker with the
// persona and terminal status.
func TestRun_TracksExecution(t *testing.T) {
	tr := newTestTracker(t)
	agent := &agentcli.Runner{BinPath: stubBin(t, `printf '%s' "ok"`)}
	r := NewRunner(agent, &config.Config{}, tr)

	out := r.Run(context.Background(), "researcher", "find papers", "", 60)
	if !out.Success {
		t.Fatalf("outcome = %+v", out)
	}

	list := tr.List()
	if len(list) != 1 {
		t.Fatalf("tracked %d executions", len(list))
	}
	ex := list[0]
	if ex.ToolName != "delegate" || ex.AgentID != "researcher" || ex.Status != StatusCompleted {
		t.Errorf("execution = %+v", ex)
	}
	if ex.ResponsePreview != "ok" {
		t.Errorf("preview = %q", ex.ResponsePreview)
	}
}

// TestPersonas_SortedDefaults verifies the built-in persona set and ordering.
func TestPersonas_SortedDefaults(t *testing.T) {
	r := newTestRunner(t, `exit 0`)
	personas := r.Personas()
	var ids []string
	for _, p := range personas {
		ids = append(ids, p.ID)
	}
	want := []string{"coder", "home_assistant", "researcher", "reviewer", "writer"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

// TestLoadPersonas_ConfigOverride verifies a configured persona replaces the
// default and new ids are added.
func TestLoadPersonas_ConfigOverride(t *testing.T) {
	cfg := &config.Config{
		AgentPersonas: []config.PersonaConfig{
			{ID: "coder", Name: "Staff Engineer", SystemPrompt: "You write Go.", Model: "opus-4.6"},
			{ID: "translator", Name: "Translator", SystemPrompt: "You translate."},
		},
	}
	personas := LoadPersonas(cfg)
	if p := personas["coder"]; p.Name != "Staff Engineer" || p.Model != "opus-4.6" {
		t.Errorf("coder = %+v", p)
	}
	if _, ok := personas["translator"]; !ok {
		t.Error("translator not added")
	}
	if _, ok := personas["researcher"]; !ok {
		t.Error("default researcher dropped")
	}
}

// TestSmartRun_StubModels verifies the smart path runs end to end when model
// discovery fails (empty list falls back to auto) and the announcement is
// still produced.
func TestSmartRun_StubModels(t *testing.T) {
	agentcli.InvalidateModelCache()
	r := newTestRunner(t, `case "$1" in
--list-models) exit 1 ;;
esac
printf '%s' "smart response"`)
	out := r.SmartRun(context.Background(), "summarize this document", SmartOptions{TimeoutSeconds: 60})
	if !out.Success {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Response != "smart response" {
		t.Errorf("response = %q", out.Response)
	}
	if out.ModelChoice.ModelID != "auto" {
		t.Errorf("model = %q", out.ModelChoice.ModelID)
	}
	if !strings.Contains(out.Announcement, "Delegating to") {
		t.Errorf("announcement = %q", out.Announcement)
	}
}
