package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/openclaw/internal/config"
	"github.com/nextlevelbuilder/openclaw/internal/store"
)

func pairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Manage Telegram chat pairing",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "approve <code>",
		Short: "Approve a pending pairing code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return pairApprove(args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "List pending pairing requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pairListPending()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "paired",
		Short: "List paired chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pairListPaired()
		},
	})
	return cmd
}

func pairApprove(code string) error {
	pairing := store.NewPairingStore(config.PairingPath())
	chatID, err := pairing.Approve(code)
	if err != nil {
		return err
	}
	fmt.Printf("Paired chat %d\n", chatID)
	return nil
}

func pairListPending() error {
	pairing := store.NewPairingStore(config.PairingPath())
	pending := pairing.Pending()
	if len(pending) == 0 {
		fmt.Println("No pending pairing requests.")
		return nil
	}
	for code, chat := range pending {
		fmt.Printf("%s  chat %s\n", code, chat)
	}
	return nil
}

func pairListPaired() error {
	pairing := store.NewPairingStore(config.PairingPath())
	paired := pairing.PairedUsers()
	if len(paired) == 0 {
		fmt.Println("No paired chats.")
		return nil
	}
	for _, chatID := range paired {
		fmt.Println(chatID)
	}
	return nil
}
