package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/openclaw/internal/config"
	"github.com/nextlevelbuilder/openclaw/internal/store"
)

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage notification schedules",
	}

	var (
		daily   string
		once    string
		user    string
		message string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a notification schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return scheduleAdd(rootOptions{
				ScheduleTime:    daily,
				ScheduleOnce:    once,
				ScheduleUser:    user,
				ScheduleMessage: message,
			})
		},
	}
	add.Flags().StringVar(&daily, "time", "", "daily time HH:MM")
	add.Flags().StringVar(&once, "once", "", "one-shot time, RFC 3339")
	add.Flags().StringVar(&user, "user", "", "target chat id, default all paired chats")
	add.Flags().StringVar(&message, "message", "", "notification text")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List notification schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return scheduleList()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a notification schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return scheduleRemove(args[0])
		},
	})
	return cmd
}

func scheduleAdd(opts rootOptions) error {
	if opts.ScheduleMessage == "" {
		return fmt.Errorf("a message is required (--schedule-message)")
	}
	if (opts.ScheduleTime == "") == (opts.ScheduleOnce == "") {
		return fmt.Errorf("exactly one of --schedule-time and --schedule-once is required")
	}

	entry := store.NotificationEntry{
		Message: opts.ScheduleMessage,
		Target:  opts.ScheduleUser,
		Enabled: true,
	}
	if entry.Target == "" {
		entry.Target = "all"
	}
	if opts.ScheduleTime != "" {
		entry.ScheduleType = "daily"
		entry.Time = opts.ScheduleTime
	} else {
		entry.ScheduleType = "once"
		entry.OnceAt = opts.ScheduleOnce
	}

	notifications := store.NewNotificationStore(config.NotificationsPath())
	saved, err := notifications.Add(entry)
	if err != nil {
		return err
	}
	fmt.Printf("Added notification %s (%s)\n", saved.ID, describeNotification(saved))
	return nil
}

func scheduleList() error {
	notifications := store.NewNotificationStore(config.NotificationsPath())
	entries, err := notifications.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No notification schedules.")
		return nil
	}
	for _, n := range entries {
		state := "enabled"
		if !n.Enabled {
			state = "disabled"
		}
		fmt.Printf("%s  %-22s to=%-8s %-8s %s\n", n.ID, describeNotification(n), n.Target, state, n.Message)
	}
	return nil
}

func scheduleRemove(id string) error {
	notifications := store.NewNotificationStore(config.NotificationsPath())
	if err := notifications.Remove(id); err != nil {
		return err
	}
	fmt.Printf("Removed notification %s\n", id)
	return nil
}

func describeNotification(n store.NotificationEntry) string {
	if n.ScheduleType == "daily" {
		return "daily " + n.Time
	}
	return "once " + n.OnceAt
}
