package delegate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/nextlevelbuilder/openclaw/internal/agentcli"
	"github.com/nextlevelbuilder/openclaw/internal/config"
)

// Runner executes persona-scoped sub-agent runs.
type Runner struct {
	Agent    *agentcli.Runner
	Cfg      *config.Config
	Tracker  *Tracker // optional
	personas map[string]Persona
}

// NewRunner builds a delegate runner with personas resolved from config.
func NewRunner(agent *agentcli.Runner, cfg *config.Config, tracker *Tracker) *Runner {
	return &Runner{
		Agent:    agent,
		Cfg:      cfg,
		Tracker:  tracker,
		personas: LoadPersonas(cfg),
	}
}

// Personas lists the available personas sorted by id.
func (r *Runner) Personas() []Persona {
	out := make([]Persona, 0, len(r.personas))
	for _, p := range r.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Outcome is the result of one delegated run.
type Outcome struct {
	Success     bool   `json:"success"`
	Response    string `json:"response,omitempty"`
	Error       string `json:"error,omitempty"`
	PersonaID   string `json:"persona_id,omitempty"`
	PersonaName string `json:"persona_name,omitempty"`
}

// Run executes the task under the given persona and waits for the response.
// model overrides the persona's model; timeoutSeconds of 0 uses the config
// default (floor 60 s).
func (r *Runner) Run(ctx context.Context, personaID, task, model string, timeoutSeconds int) Outcome {
	if personaID == "" || strings.TrimSpace(task) == "" {
		return Outcome{Error: "persona_id and task are required"}
	}
	persona, ok := r.personas[personaID]
	if !ok {
		ids := PersonaIDs(r.personas)
		sort.Strings(ids)
		return Outcome{
			Error:     fmt.Sprintf("Unknown persona '%s'. Available: %s", personaID, strings.Join(ids, ", ")),
			PersonaID: personaID,
		}
	}

	timeout := time.Duration(r.Cfg.DelegateTimeout(timeoutSeconds)) * time.Second
	useModel := model
	if useModel == "" {
		useModel = persona.Model
	}

	var execID string
	if r.Tracker != nil {
		execID = r.Tracker.Start(Execution{
			ToolName:  "delegate",
			AgentID:   persona.ID,
			AgentName: persona.Name,
			Task:      task,
			Model:     useModel,
		})
	}

	env := r.childEnv(persona.ID)
	slog.Info("delegating task", "persona", persona.ID, "model", useModel, "timeout", timeout)

	res, err := r.Agent.Run(ctx, agentcli.RunSpec{
		Prompt:   "System: " + persona.SystemPrompt + "\n\nTask: " + strings.TrimSpace(task),
		Model:    useModel,
		Force:    true,
		Timeout:  timeout,
		ExtraEnv: env,
	})
	out := r.outcomeFromRun(res, err, timeout)
	out.PersonaID = persona.ID
	if out.Success {
		out.PersonaName = persona.Name
	}
	if r.Tracker != nil {
		r.Tracker.FinishRun(execID, out, err)
	}
	return out
}

// outcomeFromRun maps a child-agent result onto the delegate outcome shape.
func (r *Runner) outcomeFromRun(res agentcli.RunResult, err error, timeout time.Duration) Outcome {
	if err != nil {
		var tErr *agentcli.TimeoutError
		switch {
		case errors.As(err, &tErr):
			return Outcome{Error: fmt.Sprintf(
				"Sub-agent timed out after %ds. No response was returned. "+
					"For long tasks increase delegate.timeout_seconds in config or request a shorter task.",
				int(timeout.Seconds()))}
		case errors.Is(err, agentcli.ErrBinaryNotFound):
			return Outcome{Error: fmt.Sprintf("cursor-agent not found at %s", r.Agent.BinPath)}
		default:
			return Outcome{Error: err.Error()}
		}
	}
	response := strings.TrimSpace(res.Stdout)
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("Exit code %d", res.ExitCode)
		}
		return Outcome{Error: msg, Response: response}
	}
	return Outcome{Success: true, Response: response}
}

// childEnv builds the extra environment for a persona's child process: the
// per-persona MCP config path and, for home_assistant, the access token.
func (r *Runner) childEnv(personaID string) []string {
	var env []string
	mcpPath := r.Cfg.Delegate.MCPConfigByPersona[personaID]
	if mcpPath != "" {
		p := config.ExpandHome(mcpPath)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			env = append(env, "CURSOR_MCP_CONFIG_PATH="+p)
		}
	}
	if personaID == "home_assistant" {
		token := r.Cfg.Delegate.HomeAssistantToken
		if token == "" {
			token = os.Getenv("HOME_ASSISTANT_TOKEN")
		}
		if token == "" {
			path := mcpPath
			if path == "" {
				path = r.Cfg.MCPConfigPath
			}
			token = haTokenFromMCPConfig(path)
		}
		if token != "" {
			env = append(env, "HOME_ASSISTANT_TOKEN="+token)
		}
	}
	return env
}
