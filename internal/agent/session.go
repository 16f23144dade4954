// Package agent runs one request through the child agent: system prompt
// resolution, history context assembly, the subprocess call, tool-pattern
// dispatch over the raw output, and history persistence.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nextlevelbuilder/openclaw/internal/agentcli"
	"github.com/nextlevelbuilder/openclaw/internal/config"
	"github.com/nextlevelbuilder/openclaw/internal/history"
	"github.com/nextlevelbuilder/openclaw/internal/store"
	"github.com/nextlevelbuilder/openclaw/internal/summary"
	"github.com/nextlevelbuilder/openclaw/internal/tools"
)

const userRequestPrefix = "User Current Request: "

// chatChannelAddition is appended to the system prompt when running under a
// chat front-end (CURSOR_ENHANCED_CHANNEL set).
const chatChannelAddition = "You are replying in a chat conversation. " +
	"Keep responses concise and conversational; prefer short paragraphs over long lists."

// Session runs requests against one history file. The zero Dispatcher and
// History fields are allowed: no tool dispatch, no persistence.
type Session struct {
	Cfg        *config.Config
	Runner     *agentcli.Runner
	History    *store.HistoryStore
	Compactor  *summary.Compactor
	Dispatcher *tools.Dispatcher
}

// Request describes one user turn.
type Request struct {
	Prompt          string
	SystemPromptKey string
	Model           string
	HistoryLimit    int  // > 0 selects last N entries; 0 means token-budgeted
	Fresh           bool // skip history read and write
	Force           bool
	Channel         string // "telegram" under the chat front-end
	ExtraArgs       []string
	Timeout         time.Duration
}

// Response is the outcome of one turn. Text is the user-visible message after
// tool dispatch; ExitCode mirrors the child agent.
type Response struct {
	Text     string
	ExitCode int
	Records  []tools.DispatchRecord
}

// Respond runs the request end to end. A non-zero child exit produces a
// Response carrying the child's output and exit code, not an error.
func (s *Session) Respond(ctx context.Context, req Request) (Response, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return Response{}, fmt.Errorf("empty prompt")
	}

	systemPrompt := ResolveSystemPrompt(s.Cfg, req.SystemPromptKey, req.Channel)

	var contextBlock string
	if !req.Fresh && s.History != nil && s.Compactor != nil {
		block, err := s.Compactor.BuildContext(ctx, systemPrompt, prompt, req.HistoryLimit)
		if err != nil {
			slog.Warn("history context assembly failed", "error", err)
		} else {
			contextBlock = block
		}
	}

	var env []string
	if req.Channel != "" {
		env = append(env, "CURSOR_ENHANCED_CHANNEL="+req.Channel)
	}

	res, err := s.Runner.Run(ctx, agentcli.RunSpec{
		Prompt:    buildPrompt(systemPrompt, contextBlock, prompt),
		Model:     req.Model,
		Force:     req.Force,
		Timeout:   req.Timeout,
		ExtraEnv:  env,
		ExtraArgs: req.ExtraArgs,
	})
	if err != nil {
		return Response{}, err
	}
	if res.ExitCode != 0 {
		return Response{Text: failureMessage(res), ExitCode: res.ExitCode}, nil
	}

	text := strings.TrimSpace(res.Stdout)
	var records []tools.DispatchRecord
	if s.Dispatcher != nil {
		text, records = s.Dispatcher.Dispatch(ctx, text, prompt)
	}

	if !req.Fresh && s.History != nil {
		if err := s.History.Append(
			history.Entry{Role: history.RoleUser, Content: prompt},
			history.Entry{Role: history.RoleAgent, Content: text},
		); err != nil {
			slog.Warn("history append failed", "error", err)
		}
	}
	return Response{Text: text, Records: records}, nil
}

// buildPrompt assembles the child-agent prompt from its three blocks.
func buildPrompt(systemPrompt, contextBlock, userPrompt string) string {
	var b strings.Builder
	if systemPrompt != "" {
		b.WriteString("System: ")
		b.WriteString(systemPrompt)
		b.WriteString("\n")
	}
	b.WriteString(contextBlock)
	b.WriteString(userRequestPrefix)
	b.WriteString(userPrompt)
	return b.String()
}

// ResolveSystemPrompt looks up the named prompt, falling back to "default"
// when the key is unknown. A chat channel appends the chat addition.
func ResolveSystemPrompt(cfg *config.Config, key, channel string) string {
	prompt := ""
	if cfg != nil {
		if key == "" {
			key = "default"
		}
		if p, ok := cfg.SystemPrompts[key]; ok {
			prompt = p
		} else {
			if key != "default" {
				slog.Warn("system prompt not found, using default", "key", key)
			}
			prompt = cfg.SystemPrompts["default"]
		}
	}
	if channel != "" {
		if prompt != "" {
			prompt += "\n\n"
		}
		prompt += chatChannelAddition
	}
	return prompt
}

// failureMessage builds the user-visible message for a non-zero child exit.
// Stdout is preferred; stderr fills in when the child printed nothing.
func failureMessage(res agentcli.RunResult) string {
	if out := strings.TrimSpace(res.Stdout); out != "" {
		return out
	}
	if errOut := strings.TrimSpace(res.Stderr); errOut != "" {
		return "Agent failed: " + errOut
	}
	return fmt.Sprintf("Agent failed with exit code %d", res.ExitCode)
}
