// Package summary implements token-budgeted context assembly: selection,
// recursive summarization of the oldest half of a conversation, and the
// advisory pre-compaction memory flush.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nextlevelbuilder/openclaw/internal/agentcli"
	"github.com/nextlevelbuilder/openclaw/internal/config"
	"github.com/nextlevelbuilder/openclaw/internal/history"
	"github.com/nextlevelbuilder/openclaw/internal/store"
)

const (
	summarizeTimeout = 180 * time.Second

	summarizePrompt = "Please provide a concise summary of the following conversation history. " +
		"Capture the key points, decisions, and context. Do not output anything else but the summary.\n\n"

	summaryPrefix = "Previous conversation summary: "

	userRequestPrefix = "User Current Request: "
)

// summarizeLocks serializes summarization per history file so concurrent
// requests against the same session never compact twice.
var summarizeLocks sync.Map // path -> *sync.Mutex

// Compactor assembles request context for one session, compacting the
// history when it no longer fits the token budget.
type Compactor struct {
	Runner  *agentcli.Runner
	History *store.HistoryStore
	Cfg     *config.Config
	Force   bool // forward --force to summarize/flush runs
}

// BuildContext returns the rendered history block for a request. limit > 0
// selects the last N entries; otherwise selection is token-budgeted. When the
// full history exceeds the budget the oldest half is summarized first and the
// compacted history is persisted.
func (c *Compactor) BuildContext(ctx context.Context, systemPrompt, userPrompt string, limit int) (string, error) {
	entries, err := c.History.Load()
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}

	userBlock := userRequestPrefix + userPrompt
	total := history.TotalTokens(entries, systemPrompt, userBlock)
	if total > history.TokenLimit {
		entries = c.compact(ctx, entries, total)
	}

	var selected []history.Entry
	if limit > 0 {
		selected = history.LastN(entries, limit)
	} else {
		selected, _ = history.FitTokenLimit(entries, history.TokenLimit,
			history.EstimateTokens(systemPrompt), history.EstimateTokens(userBlock))
	}
	return history.Render(selected), nil
}

// compact runs the memory flush (advisory) and the summarizer, returning the
// resulting history. Failures leave the original history in place.
func (c *Compactor) compact(ctx context.Context, entries []history.Entry, totalTokens int) []history.Entry {
	muAny, _ := summarizeLocks.LoadOrStore(c.History.Path(), &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	if !mu.TryLock() {
		// Another request is compacting this session; let selection trim.
		return entries
	}
	defer mu.Unlock()

	meta, _ := c.History.LoadMeta()

	if mf := c.Cfg.MemoryFlushSettings(); mf != nil &&
		totalTokens >= history.TokenLimit-mf.ReserveTokensFloor-mf.SoftThresholdTokens &&
		meta.MemoryFlushCompactionCount < meta.CompactionCount+1 {
		if err := c.memoryFlush(ctx, entries); err != nil {
			slog.Warn("memory flush failed", "error", err)
		} else {
			meta.MemoryFlushCompactionCount = meta.CompactionCount + 1
			meta.MemoryFlushAtMs = time.Now().UnixMilli()
			if err := c.History.SaveMeta(meta); err != nil {
				slog.Warn("save history meta failed", "error", err)
			}
		}
	}

	compacted, err := c.Summarize(ctx, entries)
	if err != nil {
		slog.Warn("summarization failed, keeping full history", "error", err)
		return entries
	}
	if err := c.History.Save(compacted); err != nil {
		slog.Warn("save compacted history failed", "error", err)
		return entries
	}
	meta.CompactionCount++
	if err := c.History.SaveMeta(meta); err != nil {
		slog.Warn("save history meta failed", "error", err)
	}
	slog.Info("history compacted",
		"path", c.History.Path(), "compaction_count", meta.CompactionCount,
		"entries_before", len(entries), "entries_after", len(compacted))
	return compacted
}

// Summarize replaces the oldest half of entries with a single system summary
// entry produced by the child agent. The newer half is untouched.
func (c *Compactor) Summarize(ctx context.Context, entries []history.Entry) ([]history.Entry, error) {
	if len(entries) < 2 {
		return entries, nil
	}
	mid := len(entries) / 2
	older := entries[:mid]

	res, err := c.Runner.Run(ctx, agentcli.RunSpec{
		Prompt:  summarizePrompt + history.Render(older),
		Force:   c.Force,
		Timeout: summarizeTimeout,
	})
	if err != nil {
		return entries, err
	}
	if res.ExitCode != 0 {
		return entries, fmt.Errorf("summarizer exited with code %d", res.ExitCode)
	}
	summary := history.Entry{
		Role:    history.RoleSystem,
		Content: summaryPrefix + strings.TrimSpace(res.Stdout),
	}
	out := make([]history.Entry, 0, len(entries)-mid+1)
	out = append(out, summary)
	return append(out, entries[mid:]...), nil
}
