package agentcli

import (
	"testing"
)

// TestParseModelList verifies header skipping, ANSI stripping and marker
// removal on realistic --list-models output.
func TestParseModelList(t *testing.T) {
	raw := "Loading models...\n" +
		"\x1b[1mAvailable models:\x1b[0m\n" +
		"opus-4.6-thinking - Claude 4.6 Opus (Thinking)\n" +
		"opus-4.6 - Claude 4.6 Opus (default)\n" +
		"\x1b[32mgpt-5.3-codex\x1b[0m - GPT-5.3 Codex (current)\n" +
		"Tip: use --model to pick one\n" +
		"\n" +
		"not a model line\n"

	models := ParseModelList(raw)
	want := []Model{
		{ID: "opus-4.6-thinking", Name: "Claude 4.6 Opus (Thinking)"},
		{ID: "opus-4.6", Name: "Claude 4.6 Opus"},
		{ID: "gpt-5.3-codex", Name: "GPT-5.3 Codex"},
	}
	if len(models) != len(want) {
		t.Fatalf("parsed %d models, want %d: %+v", len(models), len(want), models)
	}
	for i := range want {
		if models[i] != want[i] {
			t.Errorf("model[%d] = %+v, want %+v", i, models[i], want[i])
		}
	}
}

// TestParseModelList_Empty verifies garbage input parses to nothing.
func TestParseModelList_Empty(t *testing.T) {
	if got := ParseModelList("nothing useful here\n"); len(got) != 0 {
		t.Errorf("ParseModelList = %+v, want empty", got)
	}
}
