package delegate

import (
	"strings"
	"testing"

	"github.com/nextlevelbuilder/openclaw/internal/agentcli"
)

// TestAssessComplexity_Hello verifies the trivial greeting scores at or
// below the baseline and lands in a cheap tier.
func TestAssessComplexity_Hello(t *testing.T) {
	a := AssessComplexity("hello")
	if a.Score > 0.30 {
		t.Errorf("score = %.2f, want <= 0.30", a.Score)
	}
	if a.Tier != "fast" && a.Tier != "low" {
		t.Errorf("tier = %q", a.Tier)
	}
}

// TestAssessComplexity_Architecture verifies the architecture scenario
// scores >= 0.60 into xhigh or high with signal matches.
func TestAssessComplexity_Architecture(t *testing.T) {
	a := AssessComplexity(
		"Design a microservices architecture for a payment processing system. " +
			"Consider scalability, security audit requirements, and distributed " +
			"transaction handling. Compare trade-offs between event sourcing and CQRS.")
	if a.Score < 0.60 {
		t.Errorf("score = %.2f, want >= 0.60", a.Score)
	}
	if a.Tier != "xhigh" && a.Tier != "high" {
		t.Errorf("tier = %q", a.Tier)
	}
	if len(a.SignalMatches) == 0 {
		t.Error("expected signal matches")
	}
}

// TestAssessComplexity_Moderate verifies a routine coding task scores at
// least moderate.
func TestAssessComplexity_Moderate(t *testing.T) {
	a := AssessComplexity("write a function to parse CSV files and handle edge cases")
	if a.Score < 0.3 {
		t.Errorf("score = %.2f", a.Score)
	}
	if a.Tier != "mid" && a.Tier != "high" {
		t.Errorf("tier = %q", a.Tier)
	}
}

// TestAssessComplexity_WordCountMonotone verifies a long multi-action task
// outranks a short one.
func TestAssessComplexity_WordCountMonotone(t *testing.T) {
	short := AssessComplexity("list files")
	long := AssessComplexity(
		"Analyze the current database schema, identify performance bottlenecks in " +
			"query patterns, propose index optimizations, review ORM usage across all " +
			"models, fix N+1 queries, evaluate read replicas, and write a migration " +
			"plan that deploys with zero downtime. Compare PostgreSQL and CockroachDB.")
	if long.Score <= short.Score {
		t.Errorf("long %.2f <= short %.2f", long.Score, short.Score)
	}
}

// TestAssessComplexity_CodeBlockBumps verifies pasted code raises the score.
func TestAssessComplexity_CodeBlockBumps(t *testing.T) {
	without := AssessComplexity("optimize this")
	with := AssessComplexity("optimize this\n```python\ndef process(data):\n    return data\n```")
	if with.Score <= without.Score {
		t.Errorf("code block did not bump the score: %.2f vs %.2f", with.Score, without.Score)
	}
}

// TestAssessComplexity_Clamped verifies the score stays in [0, 1] at both
// extremes.
func TestAssessComplexity_Clamped(t *testing.T) {
	low := AssessComplexity("hi thanks, what is the weather, show me the time, hello, help")
	if low.Score < 0 {
		t.Errorf("score %.2f below 0", low.Score)
	}
	high := AssessComplexity(strings.Repeat(
		"Plan and implement a complex distributed microservices architecture migration "+
			"with concurrency, scalability, security audit and zero downtime. ", 10))
	if high.Score > 1 {
		t.Errorf("score %.2f above 1", high.Score)
	}
}

var mockModels = []agentcli.Model{
	{ID: "opus-4.6-thinking", Name: "Claude 4.6 Opus (Thinking)"},
	{ID: "opus-4.6", Name: "Claude 4.6 Opus"},
	{ID: "gpt-5.3-codex", Name: "GPT-5.3 Codex"},
	{ID: "sonnet-4.5", Name: "Claude 4.5 Sonnet"},
	{ID: "gemini-3-flash", Name: "Gemini 3 Flash"},
}

// TestSelectModel_XHigh verifies tier xhigh picks opus-4.6-thinking from the
// mock list, and the exclusion drops to opus-4.6 (the best available high
// model, since no other xhigh model is offered).
func TestSelectModel_XHigh(t *testing.T) {
	complexity := Assessment{Score: 0.85, Tier: "xhigh"}

	choice := SelectModel(complexity, mockModels, "", "")
	if choice.ModelID != "opus-4.6-thinking" || choice.Tier != "xhigh" {
		t.Errorf("choice = %+v", choice)
	}

	choice = SelectModel(complexity, mockModels, "opus-4.6-thinking", "")
	if choice.ModelID != "opus-4.6" {
		t.Errorf("excluded choice = %+v", choice)
	}
	if choice.Tier != "high" {
		t.Errorf("excluded tier = %q", choice.Tier)
	}
}

// TestSelectModel_EachTier verifies each assessed tier picks a model from
// that tier when one is available.
func TestSelectModel_EachTier(t *testing.T) {
	tests := []struct {
		tier string
		want string
	}{
		{"xhigh", "opus-4.6-thinking"},
		{"high", "opus-4.6"},
		{"mid", "gpt-5.3-codex"},
		{"fast", "gemini-3-flash"},
	}
	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			choice := SelectModel(Assessment{Tier: tt.tier}, mockModels, "", "")
			if choice.ModelID != tt.want {
				t.Errorf("tier %s chose %s, want %s", tt.tier, choice.ModelID, tt.want)
			}
		})
	}
}

// TestSelectModel_PreferredTierOverride verifies the caller can force a tier.
func TestSelectModel_PreferredTierOverride(t *testing.T) {
	choice := SelectModel(Assessment{Score: 0.1, Tier: "fast"}, mockModels, "", "high")
	if choice.Tier != "high" {
		t.Errorf("choice = %+v", choice)
	}
}

// TestSelectModel_UnknownModelsFallback verifies models outside every tier
// are still usable, with a fallback reason.
func TestSelectModel_UnknownModelsFallback(t *testing.T) {
	weird := []agentcli.Model{{ID: "custom-model-v1", Name: "Custom Model"}}
	choice := SelectModel(Assessment{Score: 0.5, Tier: "mid"}, weird, "", "")
	if choice.ModelID != "custom-model-v1" {
		t.Errorf("choice = %+v", choice)
	}
	found := false
	for _, r := range choice.Reasons {
		if strings.Contains(strings.ToLower(r), "fallback") {
			found = true
		}
	}
	if !found {
		t.Errorf("no fallback reason in %+v", choice.Reasons)
	}
}

// TestSelectModel_EmptyList verifies the "auto" last resort with a reason.
func TestSelectModel_EmptyList(t *testing.T) {
	choice := SelectModel(Assessment{Tier: "mid"}, nil, "", "")
	if choice.ModelID != "auto" {
		t.Errorf("choice = %+v", choice)
	}
	if len(choice.Reasons) == 0 {
		t.Error("expected a fallback reason")
	}
}

// TestModelTiers_NoDuplicates verifies no model id appears in two tiers and
// every ranked tier has models.
func TestModelTiers_NoDuplicates(t *testing.T) {
	seen := map[string]string{}
	for tier, models := range ModelTiers {
		if _, ok := TierRank[tier]; !ok {
			t.Errorf("tier %q has no rank", tier)
		}
		if len(models) == 0 {
			t.Errorf("tier %q is empty", tier)
		}
		for _, m := range models {
			if prev, dup := seen[m]; dup {
				t.Errorf("model %q in both %q and %q", m, prev, tier)
			}
			seen[m] = tier
		}
	}
	for tier := range TierRank {
		if _, ok := ModelTiers[tier]; !ok {
			t.Errorf("ranked tier %q missing from ModelTiers", tier)
		}
	}
}

// TestFormatAnnouncement verifies the xhigh announcement carries the model
// name, tier label, id and score.
func TestFormatAnnouncement(t *testing.T) {
	complexity := Assessment{
		Score: 0.85, Tier: "xhigh",
		SignalMatches: []string{"architecture", "scalability"},
	}
	choice := ModelChoice{
		ModelID:   "opus-4.6-thinking",
		ModelName: "Claude 4.6 Opus (Thinking)",
		Tier:      "xhigh",
	}
	text := FormatAnnouncement(complexity, choice)
	for _, want := range []string{
		"Claude 4.6 Opus (Thinking)",
		"Maximum Reasoning",
		"opus-4.6-thinking",
		"very high",
		"85%",
		"architecture",
		"Sending clean context to the delegate agent...",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("announcement missing %q:\n%s", want, text)
		}
	}
}

// TestFormatAnnouncement_Fast verifies the fast-tier variant.
func TestFormatAnnouncement_Fast(t *testing.T) {
	text := FormatAnnouncement(
		Assessment{Score: 0.15, Tier: "fast"},
		ModelChoice{ModelID: "gemini-3-flash", ModelName: "Gemini 3 Flash", Tier: "fast"},
	)
	if !strings.Contains(text, "Gemini 3 Flash") || !strings.Contains(text, "[Fast]") {
		t.Errorf("announcement:\n%s", text)
	}
	if !strings.Contains(text, "Task complexity: low") {
		t.Errorf("announcement:\n%s", text)
	}
}
