package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X github.com/nextlevelbuilder/openclaw/cmd.Version=v1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "openclaw",
	Short: "openclaw: cursor-agent wrapper with history, tools, and a Telegram gateway",
	Long: "openclaw wraps the cursor-agent CLI with durable conversation history, " +
		"token-budgeted context, tool-pattern dispatch, delegate sub-agents, " +
		"scheduled reach messages, and a Telegram chat front-end.",
	// The root command forwards unknown flags to the child agent, so flag
	// parsing is done by hand in run().
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := parseRootArgs(args)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		if opts.Verbose {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
		if opts.Version {
			fmt.Printf("openclaw %s\n", Version)
			return nil
		}
		return run(cmd, opts)
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd())
	rootCmd.AddCommand(pairCmd())
	rootCmd.AddCommand(reachCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(reportsCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("openclaw %s\n", Version)
		},
	}
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
