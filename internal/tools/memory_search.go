package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/openclaw/internal/memory"
)

// MemorySearchTool searches the durable workspace memory files.
type MemorySearchTool struct {
	Searcher *memory.Searcher
}

func NewMemorySearchTool(workspaceDir string) *MemorySearchTool {
	return &MemorySearchTool{Searcher: &memory.Searcher{WorkspaceDir: workspaceDir}}
}

func (t *MemorySearchTool) Name() string { return "memory_search" }

func (t *MemorySearchTool) Description() string {
	return "Search long-term memory (MEMORY.md and daily notes) for relevant entries."
}

func (t *MemorySearchTool) Execute(_ context.Context, args map[string]interface{}) *Result {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return ErrorResult("query is required")
	}

	hits := t.Searcher.Search(query)
	if len(hits) == 0 {
		return NewResult(fmt.Sprintf("No memory entries found for: %s", query))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Memory results for: %s\n\n", query))
	for i, h := range hits {
		sb.WriteString(fmt.Sprintf("%d. %s (score %.1f)\n%s\n\n", i+1, h.Path, h.Score, h.Preview))
	}
	return NewResult(strings.TrimRight(sb.String(), "\n"))
}
