package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/openclaw/internal/agentcli"
	"github.com/nextlevelbuilder/openclaw/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the local setup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			return doctor(cfg)
		},
	}
}

// doctor prints one line per check and exits non-zero when a required
// piece is missing.
func doctor(cfg *config.Config) error {
	failed := false
	check := func(required bool, name string, ok bool, detail string) {
		mark := "ok"
		if !ok {
			if required {
				mark = "FAIL"
				failed = true
			} else {
				mark = "missing"
			}
		}
		fmt.Printf("%-26s %-8s %s\n", name, mark, detail)
	}

	bin, err := agentcli.Resolve(cfg)
	if err != nil {
		check(true, "cursor-agent binary", false, err.Error())
	} else {
		check(true, "cursor-agent binary", true, bin)
	}

	if _, err := os.Stat(config.DefaultPath()); err == nil {
		check(false, "config file", true, config.DefaultPath())
	} else {
		check(false, "config file", false, config.DefaultPath()+" (defaults in effect)")
	}

	if _, err := os.Stat(config.StateDir()); err == nil {
		check(false, "state dir", true, config.StateDir())
	} else {
		check(false, "state dir", false, config.StateDir()+" (created on first run)")
	}

	check(false, "telegram bot token", cfg.Channels.Telegram.BotToken != "",
		"config botToken or TELEGRAM_BOT_TOKEN")
	check(false, "cursor api key", cfg.CursorAPIKey != "",
		"config cursor_api_key or CURSOR_API_KEY, used by the cursor_agent tool")
	check(false, "brave api key", os.Getenv("BRAVE_API_KEY") != "",
		"BRAVE_API_KEY, web_search falls back to DuckDuckGo without it")

	if failed {
		return fmt.Errorf("doctor found problems")
	}
	return nil
}
