package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/openclaw/internal/agent"
	"github.com/nextlevelbuilder/openclaw/internal/agentcli"
	"github.com/nextlevelbuilder/openclaw/internal/config"
	"github.com/nextlevelbuilder/openclaw/internal/delegate"
	"github.com/nextlevelbuilder/openclaw/internal/history"
	"github.com/nextlevelbuilder/openclaw/internal/store"
	"github.com/nextlevelbuilder/openclaw/internal/summary"
	"github.com/nextlevelbuilder/openclaw/internal/tools"
)

// run dispatches the parsed root options: maintenance flags first, the
// legacy --telegram/--reach/--schedule spellings next, then a prompt run.
func run(cmd *cobra.Command, opts rootOptions) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	switch {
	case opts.ClearHistory:
		return clearHistory(opts.Chat)
	case opts.ViewHistory:
		return viewHistory(opts.Chat)

	case opts.TelegramApprove != "":
		return pairApprove(opts.TelegramApprove)
	case opts.TelegramListPending:
		return pairListPending()
	case opts.TelegramListPaired:
		return pairListPaired()
	case opts.Telegram:
		return runGateway(cfg, opts.TelegramDebug)

	case opts.ReachAdd:
		return reachAdd(opts)
	case opts.ReachList:
		return reachList()
	case opts.ReachRemove != "":
		return reachRemove(opts.ReachRemove)
	case opts.ReachFire:
		return reachFire(cfg)

	case opts.ScheduleAdd:
		return scheduleAdd(opts)
	case opts.ScheduleList:
		return scheduleList()
	case opts.ScheduleRemove != "":
		return scheduleRemove(opts.ScheduleRemove)

	case opts.ListTools:
		return listTools(cfg)
	case opts.ListSkills:
		return listSkills()
	}

	if opts.Prompt == "" {
		if len(opts.Passthrough) > 0 {
			// Bare child-agent flags with no prompt: hand the whole
			// invocation to the child untouched.
			return execChild(cfg, opts.Passthrough)
		}
		return cmd.Help()
	}
	return runPrompt(cfg, opts)
}

// runPrompt executes one request through the full pipeline and mirrors the
// child agent's exit code.
func runPrompt(cfg *config.Config, opts rootOptions) error {
	runner, err := newRunner(cfg)
	if err != nil {
		return err
	}

	session := newSession(cfg, runner, opts.Chat, slices.Contains(opts.Passthrough, "--force"))
	session.Dispatcher = &tools.Dispatcher{Registry: buildRegistry(cfg, runner, nil)}

	limit := opts.HistoryLimit
	if limit < 0 {
		limit = envHistoryLimit()
	}

	res, err := session.Respond(context.Background(), agent.Request{
		Prompt:          opts.Prompt,
		SystemPromptKey: opts.SystemPrompt,
		Model:           opts.Model,
		HistoryLimit:    limit,
		Fresh:           opts.Fresh,
		Channel:         os.Getenv("CURSOR_ENHANCED_CHANNEL"),
		ExtraArgs:       opts.Passthrough,
	})
	if err != nil {
		return err
	}
	fmt.Println(res.Text)
	if res.ExitCode != 0 {
		os.Exit(res.ExitCode)
	}
	return nil
}

// execChild forwards a promptless invocation straight to the child agent.
func execChild(cfg *config.Config, args []string) error {
	runner, err := newRunner(cfg)
	if err != nil {
		return err
	}
	res, err := runner.Run(context.Background(), agentcli.RunSpec{ExtraArgs: args})
	if err != nil {
		return err
	}
	fmt.Print(res.Stdout)
	fmt.Fprint(os.Stderr, res.Stderr)
	if res.ExitCode != 0 {
		os.Exit(res.ExitCode)
	}
	return nil
}

func newRunner(cfg *config.Config) (*agentcli.Runner, error) {
	bin, err := agentcli.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	return &agentcli.Runner{BinPath: bin}, nil
}

// newSession builds the history-backed session for a chat name. force carries
// the caller's --force through to summarize and memory-flush runs, which would
// otherwise stall on a child confirmation prompt the main run skips.
func newSession(cfg *config.Config, runner *agentcli.Runner, chat string, force bool) *agent.Session {
	hist := store.NewHistoryStore(config.HistoryPath(chat), config.HistoryMetaPath(chat))
	return &agent.Session{
		Cfg:       cfg,
		Runner:    runner,
		History:   hist,
		Compactor: &summary.Compactor{Runner: runner, History: hist, Cfg: cfg, Force: force},
	}
}

// buildRegistry wires every tool the dispatcher can reach. tracker is
// optional (gateway-only).
func buildRegistry(cfg *config.Config, runner *agentcli.Runner, tracker *delegate.Tracker) *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(tools.NewWebFetchTool(tools.WebFetchConfig{}))
	reg.Register(tools.NewWebSearchTool(tools.WebSearchConfig{BraveAPIKey: os.Getenv("BRAVE_API_KEY")}))
	reg.Register(tools.NewMemorySearchTool(config.WorkspaceDir()))
	reg.Register(tools.NewWeatherTool(cfg.Weather.DefaultCity))
	reg.Register(tools.NewCursorCloudTool(tools.CursorCloudConfig{APIKey: cfg.CursorAPIKey}))

	delegateRunner := delegate.NewRunner(runner, cfg, tracker)
	reg.Register(&tools.DelegateTool{Runner: delegateRunner})
	reg.Register(&tools.SmartDelegateTool{Runner: delegateRunner})
	return reg
}

// envHistoryLimit resolves the default history limit. 0 keeps selection
// token-budgeted.
func envHistoryLimit() int {
	if v := os.Getenv("CURSOR_ENHANCED_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return 0
}

func clearHistory(chat string) error {
	hist := store.NewHistoryStore(config.HistoryPath(chat), config.HistoryMetaPath(chat))
	if err := hist.Clear(); err != nil {
		return err
	}
	fmt.Printf("History cleared for session: %s\n", config.SanitizeSession(chat))
	return nil
}

func viewHistory(chat string) error {
	hist := store.NewHistoryStore(config.HistoryPath(chat), config.HistoryMetaPath(chat))
	entries, err := hist.Load()
	if err != nil {
		return err
	}
	session := config.SanitizeSession(chat)
	if len(entries) == 0 {
		fmt.Printf("No history found for session: %s\n", session)
		return nil
	}
	fmt.Printf("--- History for session: %s ---\n\n", session)
	for _, e := range entries {
		label := "User"
		switch e.Role {
		case history.RoleAgent:
			label = "Agent"
		case history.RoleSystem:
			label = "SYSTEM SUMMARY"
		}
		fmt.Printf("[%s]\n%s\n\n%s\n\n", label, e.Content, dividerLine)
	}
	return nil
}

const dividerLine = "----------------------------------------"

func listTools(cfg *config.Config) error {
	runner, err := newRunner(cfg)
	if err != nil {
		return err
	}
	for _, t := range buildRegistry(cfg, runner, nil).Tools() {
		fmt.Printf("%-16s %s\n", t.Name(), t.Description())
	}
	return nil
}

// listSkills prints installed workspace skills (one directory per skill).
func listSkills() error {
	dir := config.WorkspaceDir() + "/skills"
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No skills installed.")
			return nil
		}
		return err
	}
	found := false
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
			found = true
		}
	}
	if !found {
		fmt.Println("No skills installed.")
	}
	return nil
}

// requestTimeout resolves the chat-request timeout from env, in seconds.
func requestTimeout() time.Duration {
	if v := os.Getenv("CURSOR_ENHANCED_TELEGRAM_REQUEST_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 5 * time.Minute
}
