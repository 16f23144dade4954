package telegram

import (
	"strings"
	"testing"

	"github.com/nextlevelbuilder/openclaw/internal/config"
	"github.com/nextlevelbuilder/openclaw/internal/store"
)

// TestParseRoute covers the message routing rules.
func TestParseRoute(t *testing.T) {
	tests := []struct {
		in   string
		want route
	}{
		{"new", route{kind: routeNew}},
		{"NEW summarize the report", route{kind: routeNew, body: "summarize the report"}},
		{"  new check the logs  ", route{kind: routeNew, body: "check the logs"}},
		{"/re 1000", route{kind: routeReQuery, code: 1000}},
		{"/re 1002 also check disk space", route{kind: routeReRun, code: 1002, body: "also check disk space"}},
		{"detached: refactor the parser", route{kind: routeDetached, body: "refactor the parser"}},
		{"what's the weather", route{kind: routeMain, body: "what's the weather"}},
		{"newer models are out", route{kind: routeMain, body: "newer models are out"}},
		{"/re abc", route{kind: routeMain, body: "/re abc"}},
	}
	for _, tt := range tests {
		got := parseRoute(tt.in)
		if got != tt.want {
			t.Errorf("parseRoute(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

// TestParseRoute_MultilineFollowUp verifies /re bodies keep their newlines.
func TestParseRoute_MultilineFollowUp(t *testing.T) {
	got := parseRoute("/re 1001 first line\nsecond line")
	if got.kind != routeReRun || got.code != 1001 || !strings.Contains(got.body, "second line") {
		t.Errorf("got %+v", got)
	}
}

// TestAllowedOpen covers the open-policy allowlist.
func TestAllowedOpen(t *testing.T) {
	base := config.TelegramPolicyConfig{DMPolicy: "open"}

	if !allowedOpen(base, 42, "") {
		t.Error("empty allowlist should admit everyone")
	}

	base.AllowFrom = []string{"*"}
	if !allowedOpen(base, 42, "") {
		t.Error("wildcard should admit everyone")
	}

	base.AllowFrom = []string{"1234", "Alice"}
	if !allowedOpen(base, 1234, "") {
		t.Error("id match rejected")
	}
	if !allowedOpen(base, 42, "alice") {
		t.Error("username match is case-insensitive")
	}
	if allowedOpen(base, 42, "bob") {
		t.Error("unlisted user admitted")
	}
}

// TestBuildPairingPrompt verifies the approval instructions carry the code.
func TestBuildPairingPrompt(t *testing.T) {
	got := buildPairingPrompt("A7K2M9")
	if !strings.Contains(got, "Code: A7K2M9") || !strings.Contains(got, "openclaw pair approve A7K2M9") {
		t.Errorf("prompt = %q", got)
	}
}

// TestFormatReports covers the /reports rendering.
func TestFormatReports(t *testing.T) {
	if got := formatReports(nil); got != "No detached run reports yet." {
		t.Errorf("empty = %q", got)
	}

	got := formatReports([]store.DetachedReport{
		{RunID: "run-1", Task: "build the thing", Success: true},
		{RunID: "run-2", Task: strings.Repeat("long task ", 20), Success: false, ExitCode: 2},
	})
	for _, want := range []string{
		"Recent detached runs (2):",
		"run-1  ok",
		"run-2  failed (exit 2)",
		"...",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
}

// TestSessionName pins the per-chat history session key.
func TestSessionName(t *testing.T) {
	if got := SessionName(-100123); got != "tg--100123" {
		t.Errorf("got %q", got)
	}
}
