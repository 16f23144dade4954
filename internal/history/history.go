// Package history holds conversation entries and the token-budgeted context
// selection used to assemble child-agent prompts.
package history

import "strings"

// Roles for history entries. RoleSystem marks the summary head and is always
// at position 0 when present.
const (
	RoleUser   = "user"
	RoleAgent  = "agent"
	RoleSystem = "system"
)

// Entry is one conversation record.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Meta is the sidecar metadata for a session's history file.
type Meta struct {
	CompactionCount            int   `json:"compaction_count"`
	MemoryFlushCompactionCount int   `json:"memory_flush_compaction_count"`
	MemoryFlushAtMs            int64 `json:"memory_flush_at_ms"`
}

const (
	// TokenLimit is the hard context budget for the child agent.
	TokenLimit = 100000
	// safetyTokens is subtracted from the budget before selection.
	safetyTokens = 1000
	// DefaultLimit is the fixed-count fallback (env CURSOR_ENHANCED_HISTORY_LIMIT).
	DefaultLimit = 10

	headerLine = "=== START OF CONVERSATION HISTORY ===\n"
	footerLine = "=== END OF CONVERSATION HISTORY ===\n\n"
)

// EstimateTokens approximates token count as len/4. Deliberately coarse; the
// selection invariant only needs it to be monotone in length.
func EstimateTokens(s string) int {
	return len(s) / 4
}

// roleLabel maps a stored role to its rendered label.
func roleLabel(role string) string {
	switch role {
	case RoleAgent:
		return "Agent"
	case RoleSystem:
		return "SYSTEM SUMMARY"
	default:
		return "User"
	}
}

// FormatEntry renders one entry in transcript form.
func FormatEntry(e Entry) string {
	return roleLabel(e.Role) + ": " + e.Content + "\n\n"
}

// Render produces the delimited transcript block for a set of entries.
// Empty input renders to an empty string, not an empty block.
func Render(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(headerLine)
	for _, e := range entries {
		b.WriteString(FormatEntry(e))
	}
	b.WriteString(footerLine)
	return b.String()
}

// FitTokenLimit selects the most recent entries that fit the budget.
//
// available = maxTokens − systemPromptTokens − userPromptTokens − safety.
// The summary head (entries[0] with role system) is kept first when it fits;
// the rest of the selection walks newest to oldest and is reversed back into
// chronological order. Returns the selection and its estimated token cost.
func FitTokenLimit(entries []Entry, maxTokens, systemPromptTokens, userPromptTokens int) ([]Entry, int) {
	available := maxTokens - systemPromptTokens - userPromptTokens - safetyTokens
	if available <= 0 || len(entries) == 0 {
		return nil, 0
	}

	var selected []Entry
	used := 0

	rest := entries
	if entries[0].Role == RoleSystem {
		cost := EstimateTokens(FormatEntry(entries[0]))
		if cost <= available {
			selected = append(selected, entries[0])
			used += cost
		}
		rest = entries[1:]
	}

	var suffix []Entry
	for i := len(rest) - 1; i >= 0; i-- {
		cost := EstimateTokens(FormatEntry(rest[i]))
		if used+cost > available {
			break
		}
		suffix = append(suffix, rest[i])
		used += cost
	}
	for i, j := 0, len(suffix)-1; i < j; i, j = i+1, j-1 {
		suffix[i], suffix[j] = suffix[j], suffix[i]
	}
	return append(selected, suffix...), used
}

// LastN returns the last n entries, always keeping a leading summary head.
func LastN(entries []Entry, n int) []Entry {
	if n <= 0 || len(entries) == 0 {
		return nil
	}
	if entries[0].Role == RoleSystem {
		rest := entries[1:]
		if len(rest) > n {
			rest = rest[len(rest)-n:]
		}
		out := make([]Entry, 0, len(rest)+1)
		out = append(out, entries[0])
		return append(out, rest...)
	}
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries
}

// TotalTokens estimates the rendered size of the full history plus prompts.
// Used to decide whether summarization is needed.
func TotalTokens(entries []Entry, systemPrompt, userPrompt string) int {
	total := EstimateTokens(systemPrompt) + EstimateTokens(userPrompt)
	for _, e := range entries {
		total += EstimateTokens(FormatEntry(e))
	}
	return total
}
