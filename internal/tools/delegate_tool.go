package tools

import (
	"context"

	"github.com/nextlevelbuilder/openclaw/internal/delegate"
)

// DelegateTool runs a task under a named persona through the sub-agent
// orchestrator.
type DelegateTool struct {
	Runner *delegate.Runner
}

func (t *DelegateTool) Name() string { return "delegate" }

func (t *DelegateTool) Description() string {
	return "Delegate a task to a specialist sub-agent persona (researcher, coder, reviewer, writer, home_assistant)."
}

func (t *DelegateTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	personaID, _ := args["persona"].(string)
	task, _ := args["task"].(string)
	model, _ := args["model"].(string)
	timeout := 0
	if v, ok := args["timeout_seconds"].(float64); ok {
		timeout = int(v)
	}

	out := t.Runner.Run(ctx, personaID, task, model, timeout)
	if !out.Success {
		return ErrorResult(out.Error)
	}
	return NewResult(out.Response)
}

// SmartDelegateTool scores the task, picks a model, and runs it with a clean
// context. The announcement is surfaced via ForUser so front-ends can show it
// before the response.
type SmartDelegateTool struct {
	Runner *delegate.Runner
}

func (t *SmartDelegateTool) Name() string { return "smart_delegate" }

func (t *SmartDelegateTool) Description() string {
	return "Delegate a task to the best available model based on assessed complexity."
}

func (t *SmartDelegateTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	task, _ := args["task"].(string)
	excludeModel, _ := args["exclude_model"].(string)
	preferredTier, _ := args["preferred_tier"].(string)
	originalAsk, _ := args["original_ask"].(string)
	timeout := 0
	if v, ok := args["timeout_seconds"].(float64); ok {
		timeout = int(v)
	}

	out := t.Runner.SmartRun(ctx, task, delegate.SmartOptions{
		ExcludeModel:   excludeModel,
		PreferredTier:  preferredTier,
		TimeoutSeconds: timeout,
		OriginalAsk:    originalAsk,
	})
	if !out.Success {
		res := ErrorResult(out.Error)
		res.ForUser = out.Announcement
		return res
	}
	res := NewResult(out.Announcement + "\n\n" + out.Response)
	res.ForUser = out.Announcement
	return res
}
