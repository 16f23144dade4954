package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/openclaw/internal/config"
	"github.com/nextlevelbuilder/openclaw/internal/store"
)

func reportsCmd() *cobra.Command {
	var limit int
	var show string
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List recent detached run reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports := store.NewDetachedReportStore(config.DetachedReportsDir())
			if show != "" {
				return showReport(reports, show)
			}
			return listReports(reports, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum reports to list")
	cmd.Flags().StringVar(&show, "show", "", "print one report in full by run id")
	return cmd
}

func listReports(reports *store.DetachedReportStore, limit int) error {
	recent, err := reports.Recent(limit)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		fmt.Println("No detached run reports yet.")
		return nil
	}
	for _, r := range recent {
		status := "ok"
		if !r.Success {
			status = fmt.Sprintf("failed (exit %d)", r.ExitCode)
		}
		fmt.Printf("%s  %-18s %s  %s\n", r.RunID, status, r.CompletedAt, r.Task)
	}
	return nil
}

func showReport(reports *store.DetachedReportStore, runID string) error {
	r, err := reports.Get(runID)
	if err != nil {
		return err
	}
	status := "ok"
	if !r.Success {
		status = fmt.Sprintf("failed (exit %d)", r.ExitCode)
	}
	fmt.Printf("Run:       %s\nStatus:    %s\nCompleted: %s\nTask:      %s\n", r.RunID, status, r.CompletedAt, r.Task)
	if r.StdoutPreview != "" {
		fmt.Printf("\nStdout:\n%s\n", r.StdoutPreview)
	}
	if r.StderrPreview != "" {
		fmt.Printf("\nStderr:\n%s\n", r.StderrPreview)
	}
	return nil
}
