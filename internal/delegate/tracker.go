package delegate

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nextlevelbuilder/openclaw/internal/agentcli"
	"github.com/nextlevelbuilder/openclaw/internal/store"
)

// Execution statuses.
const (
	StatusStarting  = "starting"
	StatusRunning   = "running"
	StatusThinking  = "thinking"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusTimeout   = "timeout"
	StatusCancelled = "cancelled"
)

// callbackTerminal is the status set that fires completion callbacks.
// Cancellation sets completed_at but is not announced.
func callbackTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed || status == StatusTimeout
}

// isTerminal covers every status that ends an execution.
func isTerminal(status string) bool {
	return callbackTerminal(status) || status == StatusCancelled
}

// ProgressUpdate is one timestamped note on a running execution.
type ProgressUpdate struct {
	TimestampMs int64             `json:"timestamp_ms"`
	Message     string            `json:"message"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Execution is the durable record of one sub-agent run.
type Execution struct {
	ExecutionID     string           `json:"execution_id"`
	ToolName        string           `json:"tool_name"`
	AgentID         string           `json:"agent_id,omitempty"`
	AgentName       string           `json:"agent_name,omitempty"`
	Task            string           `json:"task,omitempty"`
	Model           string           `json:"model,omitempty"`
	Status          string           `json:"status"`
	StartedAtMs     int64            `json:"started_at_ms"`
	CompletedAtMs   int64            `json:"completed_at_ms,omitempty"`
	ResponsePreview string           `json:"response_preview,omitempty"`
	Error           string           `json:"error,omitempty"`
	ProgressUpdates []ProgressUpdate `json:"progress_updates,omitempty"`
	ComplexityScore float64          `json:"complexity_score,omitempty"`
	Tier            string           `json:"tier,omitempty"`

	// ElapsedSeconds is computed on read, never stored.
	ElapsedSeconds float64 `json:"elapsed_seconds,omitempty"`
}

type trackerState struct {
	Executions map[string]*Execution `json:"executions"`
}

// Tracker records every sub-agent execution in memory and on disk. Every
// mutation rewrites the full state atomically. Completion callbacks fire
// exactly once per record, on the first transition into a callback-terminal
// status, and are drained by a dedicated goroutine so a slow observer never
// blocks a mutation.
type Tracker struct {
	path string

	mu         sync.Mutex
	executions map[string]*Execution
	callbacks  []func(Execution)

	queue   []Execution
	queueCh chan struct{}
	done    chan struct{}
	closed  bool
}

// NewTracker loads any prior state from path and starts the callback
// drainer.
func NewTracker(path string) (*Tracker, error) {
	t := &Tracker{
		path:       path,
		executions: map[string]*Execution{},
		queueCh:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	var st trackerState
	if err := store.LoadJSON(path, &st); err != nil {
		return nil, err
	}
	if st.Executions != nil {
		t.executions = st.Executions
	}
	go t.drain()
	return t, nil
}

// Close stops the callback drainer after the queue empties.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()
	close(t.done)
}

// RegisterCompletionCallback attaches an observer invoked once per execution
// when it reaches completed, failed or timeout.
func (t *Tracker) RegisterCompletionCallback(f func(Execution)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = append(t.callbacks, f)
}

// Start registers a new execution and returns its id.
func (t *Tracker) Start(ex Execution) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ex.ExecutionID == "" {
		ex.ExecutionID = uuid.NewString()
	}
	ex.Status = StatusStarting
	ex.StartedAtMs = time.Now().UnixMilli()
	t.executions[ex.ExecutionID] = &ex
	t.persistLocked()
	return ex.ExecutionID
}

// SetStatus moves an execution to a new status. Terminal transitions stamp
// completed_at_ms; the first callback-terminal transition enqueues the
// completion event.
func (t *Tracker) SetStatus(id, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setStatusLocked(id, status)
}

// Progress appends a timestamped progress note.
func (t *Tracker) Progress(id, message string, metadata map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ex, ok := t.executions[id]
	if !ok {
		return
	}
	ex.ProgressUpdates = append(ex.ProgressUpdates, ProgressUpdate{
		TimestampMs: time.Now().UnixMilli(),
		Message:     message,
		Metadata:    metadata,
	})
	t.persistLocked()
}

// Complete marks an execution finished with a response preview.
func (t *Tracker) Complete(id, responsePreview string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ex, ok := t.executions[id]; ok {
		ex.ResponsePreview = truncate(responsePreview, 1000)
	}
	t.setStatusLocked(id, StatusCompleted)
}

// Fail marks an execution failed with an error message.
func (t *Tracker) Fail(id, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ex, ok := t.executions[id]; ok {
		ex.Error = truncate(errMsg, 1000)
	}
	t.setStatusLocked(id, StatusFailed)
}

// Timeout marks an execution timed out.
func (t *Tracker) Timeout(id, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ex, ok := t.executions[id]; ok {
		ex.Error = truncate(errMsg, 1000)
	}
	t.setStatusLocked(id, StatusTimeout)
}

// Cancel marks an execution cancelled. No completion callback fires.
func (t *Tracker) Cancel(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setStatusLocked(id, StatusCancelled)
}

// FinishRun maps a delegate outcome onto the terminal tracker status.
func (t *Tracker) FinishRun(id string, out Outcome, err error) {
	var tErr *agentcli.TimeoutError
	switch {
	case out.Success:
		t.Complete(id, out.Response)
	case errors.As(err, &tErr):
		t.Timeout(id, out.Error)
	default:
		t.Fail(id, out.Error)
	}
}

// GetResult returns a serializable snapshot of one execution, including the
// computed elapsed_seconds.
func (t *Tracker) GetResult(id string) (Execution, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ex, ok := t.executions[id]
	if !ok {
		return Execution{}, false
	}
	return t.snapshotLocked(ex), true
}

// List returns snapshots of all executions.
func (t *Tracker) List() []Execution {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Execution, 0, len(t.executions))
	for _, ex := range t.executions {
		out = append(out, t.snapshotLocked(ex))
	}
	return out
}

func (t *Tracker) snapshotLocked(ex *Execution) Execution {
	snap := *ex
	snap.ProgressUpdates = append([]ProgressUpdate(nil), ex.ProgressUpdates...)
	end := snap.CompletedAtMs
	if end == 0 {
		end = time.Now().UnixMilli()
	}
	snap.ElapsedSeconds = float64(end-snap.StartedAtMs) / 1000
	return snap
}

func (t *Tracker) setStatusLocked(id, status string) {
	ex, ok := t.executions[id]
	if !ok {
		return
	}
	wasTerminal := callbackTerminal(ex.Status)
	ex.Status = status
	if isTerminal(status) && ex.CompletedAtMs == 0 {
		ex.CompletedAtMs = time.Now().UnixMilli()
	}
	t.persistLocked()

	if callbackTerminal(status) && !wasTerminal {
		t.queue = append(t.queue, t.snapshotLocked(ex))
		select {
		case t.queueCh <- struct{}{}:
		default:
		}
	}
}

// persistLocked rewrites the full state atomically. Failures are logged and
// swallowed: tracking must never break an execution.
func (t *Tracker) persistLocked() {
	st := trackerState{Executions: t.executions}
	if err := store.SaveJSON(t.path, st); err != nil {
		slog.Warn("tracker state save failed", "path", t.path, "error", err)
	}
}

// drain delivers queued completion events to the registered callbacks.
// Callback panics are logged, never propagated.
func (t *Tracker) drain() {
	for {
		select {
		case <-t.queueCh:
		case <-t.done:
			return
		}
		for {
			t.mu.Lock()
			if len(t.queue) == 0 {
				t.mu.Unlock()
				break
			}
			ev := t.queue[0]
			t.queue = t.queue[1:]
			cbs := append([]func(Execution){}, t.callbacks...)
			t.mu.Unlock()

			for _, cb := range cbs {
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("completion callback panicked", "execution", ev.ExecutionID, "panic", r)
						}
					}()
					cb(ev)
				}()
			}
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
