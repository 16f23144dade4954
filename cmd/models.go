package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/openclaw/internal/config"
)

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models the child agent reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			runner, err := newRunner(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			models := runner.DiscoverModels(ctx)
			if len(models) == 0 {
				fmt.Println("No models discovered.")
				return nil
			}
			for _, m := range models {
				fmt.Printf("%-24s %s\n", m.ID, m.Name)
			}
			return nil
		},
	}
}
