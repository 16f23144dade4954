package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nextlevelbuilder/openclaw/internal/agentcli"
	"github.com/nextlevelbuilder/openclaw/internal/config"
	"github.com/nextlevelbuilder/openclaw/internal/history"
)

const (
	memoryFlushTimeout = 180 * time.Second

	// noReplySentinel is what the child agent returns when it has nothing
	// durable to record.
	noReplySentinel = "NO_REPLY"

	memoryFlushPrompt = "You are about to lose the older part of this conversation to compaction. " +
		"Review the history below and extract anything worth keeping.\n\n" +
		"Reply with EXACTLY one of:\n" +
		"1. The single token NO_REPLY if nothing is worth keeping.\n" +
		"2. A single JSON object {\"memory\": \"...\", \"daily\": \"...\"} where " +
		"\"memory\" holds durable long-term facts and \"daily\" holds notes for today's log. " +
		"Either field may be an empty string.\n\n" +
		"Do not output anything else.\n\n"
)

// flushPayload is the JSON shape the child agent returns from a flush run.
type flushPayload struct {
	Memory string `json:"memory"`
	Daily  string `json:"daily"`
}

// memoryFlush asks the child agent to persist durable facts before the older
// half of the history is summarized away. Advisory: any failure is returned
// for logging but never blocks the request.
func (c *Compactor) memoryFlush(ctx context.Context, entries []history.Entry) error {
	res, err := c.Runner.Run(ctx, agentcli.RunSpec{
		Prompt:  memoryFlushPrompt + history.Render(entries),
		Force:   c.Force,
		Timeout: memoryFlushTimeout,
	})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("memory flush exited with code %d", res.ExitCode)
	}

	out := strings.TrimSpace(res.Stdout)
	if out == "" || out == noReplySentinel {
		return nil
	}
	// Tolerate fenced or prefixed output around the JSON object.
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end <= start {
		return nil
	}
	var payload flushPayload
	if err := json.Unmarshal([]byte(out[start:end+1]), &payload); err != nil {
		return nil
	}

	now := time.Now()
	if payload.Memory != "" {
		if err := appendMemoryFile(filepath.Join(config.WorkspaceDir(), "MEMORY.md"), payload.Memory, now); err != nil {
			return err
		}
	}
	if payload.Daily != "" {
		daily := filepath.Join(config.WorkspaceDir(), "memory", now.Format("2006-01-02")+".md")
		if err := appendMemoryFile(daily, payload.Daily, now); err != nil {
			return err
		}
	}
	return nil
}

func appendMemoryFile(path, content string, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("memory flush: mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("memory flush: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "\n## %s\n\n%s\n", now.Format("2006-01-02 15:04"), strings.TrimSpace(content)); err != nil {
		return fmt.Errorf("memory flush: write %s: %w", path, err)
	}
	return nil
}
