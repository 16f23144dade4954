package delegate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nextlevelbuilder/openclaw/internal/agentcli"
	"github.com/nextlevelbuilder/openclaw/internal/store"
)

const reportPreviewChars = 2000

// DetachedRunner launches child-agent runs that outlive the request: the
// caller gets the run id immediately, a worker waits for the process, writes
// one report file, and optionally notifies a chat.
type DetachedRunner struct {
	Agent   *agentcli.Runner
	Reports *store.DetachedReportStore
	Tracker *Tracker // optional

	// Notify delivers the completion message to a chat. Nil disables
	// notification.
	Notify func(chatID int64, text string)

	// TimeoutSeconds bounds each run (default 3600).
	TimeoutSeconds int
}

// Start spawns the run and returns its id without waiting.
func (d *DetachedRunner) Start(task string, chatID int64) (string, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return "", errors.New("detached run needs a task")
	}
	runID := uuid.NewString()

	var execID string
	if d.Tracker != nil {
		execID = d.Tracker.Start(Execution{
			ExecutionID: runID,
			ToolName:    "detached",
			Task:        task,
		})
		d.Tracker.SetStatus(execID, StatusRunning)
	}

	timeout := time.Duration(d.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Hour
	}

	go d.run(runID, execID, task, chatID, timeout)
	slog.Info("detached run started", "run_id", runID, "chat_id", chatID)
	return runID, nil
}

func (d *DetachedRunner) run(runID, execID, task string, chatID int64, timeout time.Duration) {
	res, err := d.Agent.Run(context.Background(), agentcli.RunSpec{
		Prompt:  task,
		Force:   true,
		Timeout: timeout,
		Detach:  true,
	})

	report := store.DetachedReport{
		RunID:         runID,
		Task:          task,
		CompletedAt:   time.Now().UTC().Format(time.RFC3339),
		StdoutPreview: truncate(strings.TrimSpace(res.Stdout), reportPreviewChars),
		StderrPreview: truncate(strings.TrimSpace(res.Stderr), reportPreviewChars),
		ChatID:        chatID,
	}
	var tErr *agentcli.TimeoutError
	switch {
	case errors.As(err, &tErr):
		report.ExitCode = -1
		report.StderrPreview = tErr.Error()
	case err != nil:
		report.ExitCode = -1
		report.StderrPreview = err.Error()
	default:
		report.ExitCode = res.ExitCode
		report.Success = res.ExitCode == 0
	}

	if saveErr := d.Reports.Save(report); saveErr != nil {
		slog.Error("detached report save failed", "run_id", runID, "error", saveErr)
	}

	if d.Tracker != nil && execID != "" {
		switch {
		case errors.As(err, &tErr):
			d.Tracker.Timeout(execID, tErr.Error())
		case report.Success:
			d.Tracker.Complete(execID, report.StdoutPreview)
		default:
			d.Tracker.Fail(execID, report.StderrPreview)
		}
	}

	if d.Notify != nil && chatID != 0 {
		status := "completed"
		if !report.Success {
			status = "failed"
		}
		preview := report.StdoutPreview
		if preview == "" {
			preview = report.StderrPreview
		}
		d.Notify(chatID, "Detached run "+runID+" "+status+".\n\n"+truncate(preview, 500))
	}
	slog.Info("detached run finished", "run_id", runID, "success", report.Success, "exit_code", report.ExitCode)
}
