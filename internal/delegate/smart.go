package delegate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nextlevelbuilder/openclaw/internal/agentcli"
)

// SmartOutcome is the result of one smart delegation.
type SmartOutcome struct {
	Success      bool        `json:"success"`
	Response     string      `json:"response,omitempty"`
	Error        string      `json:"error,omitempty"`
	Announcement string      `json:"announcement"`
	ModelChoice  ModelChoice `json:"model_choice"`
	Complexity   Assessment  `json:"complexity"`
}

// SmartOptions tune a smart delegation.
type SmartOptions struct {
	ExcludeModel   string // skip this model everywhere (usually the caller's)
	PreferredTier  string // force a tier instead of the assessed one
	TimeoutSeconds int
	OriginalAsk    string // the user's own words, appended as a footer
}

// SmartRun scores the task, picks a model from the child agent's live model
// list, and runs the task with a clean context containing only the task
// itself. The announcement explains the choice and is returned separately so
// front-ends can render it before the response arrives.
func (r *Runner) SmartRun(ctx context.Context, task string, opts SmartOptions) SmartOutcome {
	if strings.TrimSpace(task) == "" {
		return SmartOutcome{Error: "task is required"}
	}

	complexity := AssessComplexity(task)
	models := r.Agent.DiscoverModels(ctx)
	choice := SelectModel(complexity, models, opts.ExcludeModel, opts.PreferredTier)
	announcement := FormatAnnouncement(complexity, choice)
	slog.Info("smart delegate selected model",
		"model", choice.ModelID, "tier", choice.Tier, "score", fmt.Sprintf("%.2f", complexity.Score))

	out := SmartOutcome{
		Announcement: announcement,
		ModelChoice:  choice,
		Complexity:   complexity,
	}

	var execID string
	if r.Tracker != nil {
		execID = r.Tracker.Start(Execution{
			ToolName:        "smart_delegate",
			Task:            task,
			Model:           choice.ModelID,
			ComplexityScore: complexity.Score,
			Tier:            choice.Tier,
		})
		r.Tracker.SetStatus(execID, StatusRunning)
	}

	prompt := strings.TrimSpace(task)
	if opts.OriginalAsk != "" {
		prompt += "\n\n(Original user request: " + truncate(opts.OriginalAsk, 350) + ")"
	}

	timeout := time.Duration(r.Cfg.DelegateTimeout(opts.TimeoutSeconds)) * time.Second
	res, err := r.Agent.Run(ctx, agentcli.RunSpec{
		Prompt:  prompt,
		Model:   choice.ModelID,
		Force:   true,
		Timeout: timeout,
	})
	runOut := r.outcomeFromRun(res, err, timeout)
	out.Success = runOut.Success
	out.Response = runOut.Response
	out.Error = runOut.Error
	if r.Tracker != nil {
		r.Tracker.FinishRun(execID, runOut, err)
	}
	return out
}

var tierEmoji = map[string]string{
	"xhigh": "🧠",
	"high":  "💪",
	"mid":   "⚡",
	"low":   "✅",
	"fast":  "⚡",
}

var tierLabel = map[string]string{
	"xhigh": "Maximum Reasoning",
	"high":  "High Capability",
	"mid":   "Standard",
	"low":   "Light",
	"fast":  "Fast",
}

// FormatAnnouncement renders the user-facing block explaining the delegation
// choice.
func FormatAnnouncement(complexity Assessment, choice ModelChoice) string {
	emoji, ok := tierEmoji[choice.Tier]
	if !ok {
		emoji = "🤖"
	}
	label, ok := tierLabel[choice.Tier]
	if !ok {
		label = choice.Tier
	}

	lines := []string{
		fmt.Sprintf("%s **Delegating to %s** [%s]", emoji, choice.ModelName, label),
		"",
	}
	switch {
	case complexity.Score >= 0.75:
		lines = append(lines, fmt.Sprintf("Task complexity: very high (score %.0f%%)", complexity.Score*100))
	case complexity.Score >= 0.55:
		lines = append(lines, fmt.Sprintf("Task complexity: high (score %.0f%%)", complexity.Score*100))
	case complexity.Score >= 0.35:
		lines = append(lines, fmt.Sprintf("Task complexity: moderate (score %.0f%%)", complexity.Score*100))
	default:
		lines = append(lines, fmt.Sprintf("Task complexity: low (score %.0f%%)", complexity.Score*100))
	}
	if len(complexity.SignalMatches) > 0 {
		lines = append(lines, "Signals: "+strings.Join(firstN(complexity.SignalMatches, 4), ", "))
	}
	lines = append(lines,
		"Model: "+choice.ModelID,
		"",
		"Sending clean context to the delegate agent...")
	return strings.Join(lines, "\n")
}
