package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/openclaw/internal/channels/telegram"
	"github.com/nextlevelbuilder/openclaw/internal/config"
	"github.com/nextlevelbuilder/openclaw/internal/schedule"
	"github.com/nextlevelbuilder/openclaw/internal/store"
)

func reachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reach",
		Short: "Manage proactive reach messages",
	}

	var (
		atTime    string
		cron      string
		onceAt    string
		inMinutes int
		timezone  string
		message   string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a reach schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reachAdd(rootOptions{
				ReachTime:      atTime,
				ReachCron:      cron,
				ReachOnceAt:    onceAt,
				ReachInMinutes: inMinutes,
				ReachTimezone:  timezone,
				ReachMessage:   message,
			})
		},
	}
	add.Flags().StringVar(&atTime, "time", "", "daily time HH:MM")
	add.Flags().StringVar(&cron, "cron", "", "cron expression")
	add.Flags().StringVar(&onceAt, "once-at", "", "one-shot time, RFC 3339")
	add.Flags().IntVar(&inMinutes, "in-minutes", 0, "one-shot, N minutes from now")
	add.Flags().StringVar(&timezone, "timezone", "", "IANA timezone for time and cron schedules")
	add.Flags().StringVar(&message, "message", "", "message or agent instruction to deliver")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List reach schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reachList()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a reach schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reachRemove(args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "fire",
		Short: "Fire due schedules once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			return reachFire(cfg)
		},
	})
	return cmd
}

// reachAdd validates that exactly one trigger spelling is present and stores
// the schedule.
func reachAdd(opts rootOptions) error {
	if opts.ReachMessage == "" {
		return fmt.Errorf("a message is required (--reach-message)")
	}

	triggers := 0
	for _, set := range []bool{
		opts.ReachTime != "",
		opts.ReachCron != "",
		opts.ReachOnceAt != "",
		opts.ReachInMinutes > 0,
	} {
		if set {
			triggers++
		}
	}
	if triggers != 1 {
		return fmt.Errorf("exactly one of --reach-time, --reach-cron, --reach-once-at, --reach-in-minutes is required")
	}

	sched := store.ReachSchedule{
		Time:     opts.ReachTime,
		Cron:     opts.ReachCron,
		OnceAt:   opts.ReachOnceAt,
		Timezone: opts.ReachTimezone,
		Message:  opts.ReachMessage,
		Channel:  "telegram",
		Enabled:  true,
	}
	if opts.ReachInMinutes > 0 {
		sched.OnceAt = time.Now().Add(time.Duration(opts.ReachInMinutes) * time.Minute).Format(time.RFC3339)
	}

	reach := store.NewReachScheduleStore(config.ReachSchedulesPath())
	saved, err := reach.Add(sched)
	if err != nil {
		return err
	}
	fmt.Printf("Added reach schedule %s (%s)\n", saved.ID, describeReach(saved))
	return nil
}

func reachList() error {
	reach := store.NewReachScheduleStore(config.ReachSchedulesPath())
	schedules, err := reach.List()
	if err != nil {
		return err
	}
	if len(schedules) == 0 {
		fmt.Println("No reach schedules.")
		return nil
	}
	for _, s := range schedules {
		state := "enabled"
		if !s.Enabled {
			state = "disabled"
		}
		fmt.Printf("%s  %-22s %-8s %s\n", s.ID, describeReach(s), state, s.Message)
	}
	return nil
}

func reachRemove(id string) error {
	reach := store.NewReachScheduleStore(config.ReachSchedulesPath())
	if err := reach.Remove(id); err != nil {
		return err
	}
	fmt.Printf("Removed reach schedule %s\n", id)
	return nil
}

// reachFire runs one scheduler pass. With a Telegram token configured, due
// messages go to paired chats; otherwise they print to stdout.
func reachFire(cfg *config.Config) error {
	scheduler := &schedule.Scheduler{
		Reach:         store.NewReachScheduleStore(config.ReachSchedulesPath()),
		Notifications: store.NewNotificationStore(config.NotificationsPath()),
	}

	if cfg.Channels.Telegram.BotToken != "" {
		channel, err := telegram.New(telegram.Options{
			Token:   cfg.Channels.Telegram.BotToken,
			Pairing: store.NewPairingStore(config.PairingPath()),
		})
		if err != nil {
			return err
		}
		scheduler.Broadcast = channel.Broadcast
		scheduler.SendTo = channel.SendTo
	} else {
		scheduler.Broadcast = func(text string) error {
			fmt.Printf("[reach] %s\n", text)
			return nil
		}
		scheduler.SendTo = func(chatID int64, text string) error {
			fmt.Printf("[reach -> %d] %s\n", chatID, text)
			return nil
		}
	}

	scheduler.FireDue(time.Now())
	return nil
}

func describeReach(s store.ReachSchedule) string {
	switch {
	case s.Time != "":
		return "daily " + s.Time
	case s.Cron != "":
		return "cron " + s.Cron
	case s.OnceAt != "":
		return "once " + s.OnceAt
	}
	return "unscheduled"
}
