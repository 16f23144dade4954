package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/openclaw/internal/agent"
	"github.com/nextlevelbuilder/openclaw/internal/bus"
	"github.com/nextlevelbuilder/openclaw/internal/channels/telegram"
	"github.com/nextlevelbuilder/openclaw/internal/config"
	"github.com/nextlevelbuilder/openclaw/internal/delegate"
	"github.com/nextlevelbuilder/openclaw/internal/schedule"
	"github.com/nextlevelbuilder/openclaw/internal/store"
	"github.com/nextlevelbuilder/openclaw/internal/summary"
	"github.com/nextlevelbuilder/openclaw/internal/tools"
)

func gatewayCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Run the Telegram front-end and the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			return runGateway(cfg, debug)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

// gateway holds the long-running pieces wired together for one process.
type gateway struct {
	bus        *bus.MessageBus
	threads    *store.ThreadAgentStore
	dispatcher *tools.Dispatcher
	newSession func(session string) *agent.Session
	timeout    time.Duration
}

// runGateway wires the channel, scheduler, tracker, and consumer, then runs
// them under one errgroup until interrupted.
func runGateway(cfg *config.Config, debug bool) error {
	if debug || cfg.Telegram.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	if err := os.MkdirAll(config.StateDir(), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	runner, err := newRunner(cfg)
	if err != nil {
		return err
	}

	tracker, err := delegate.NewTracker(config.TrackerStatePath())
	if err != nil {
		return err
	}
	defer tracker.Close()
	tracker.RegisterCompletionCallback(func(ex delegate.Execution) {
		slog.Info("sub-agent finished",
			"execution_id", ex.ExecutionID, "tool", ex.ToolName, "status", ex.Status)
	})

	pairing := store.NewPairingStore(config.PairingPath())
	threads := store.NewThreadAgentStore(config.ThreadAgentsPath())
	reports := store.NewDetachedReportStore(config.DetachedReportsDir())
	msgBus := bus.New()

	detached := &delegate.DetachedRunner{
		Agent:          runner,
		Reports:        reports,
		Tracker:        tracker,
		TimeoutSeconds: cfg.Delegate.DetachedTimeoutSeconds,
	}

	channel, err := telegram.New(telegram.Options{
		Token:    cfg.Channels.Telegram.BotToken,
		Policy:   cfg.Telegram,
		Pairing:  pairing,
		Threads:  threads,
		Reports:  reports,
		Detached: detached,
		Bus:      msgBus,
	})
	if err != nil {
		return err
	}
	detached.Notify = func(chatID int64, text string) {
		if err := channel.SendTo(chatID, text); err != nil {
			slog.Warn("detached notification failed", "chat_id", chatID, "error", err)
		}
	}

	gw := &gateway{
		bus:        msgBus,
		threads:    threads,
		dispatcher: &tools.Dispatcher{Registry: buildRegistry(cfg, runner, tracker)},
		timeout:    requestTimeout(),
		newSession: func(session string) *agent.Session {
			hist := store.NewHistoryStore(config.HistoryPath(session), config.HistoryMetaPath(session))
			return &agent.Session{
				Cfg:       cfg,
				Runner:    runner,
				History:   hist,
				Compactor: &summary.Compactor{Runner: runner, History: hist, Cfg: cfg, Force: true},
			}
		},
	}

	scheduler := &schedule.Scheduler{
		Reach:         store.NewReachScheduleStore(config.ReachSchedulesPath()),
		Notifications: store.NewNotificationStore(config.NotificationsPath()),
		Tick:          time.Duration(cfg.Reach.TickSeconds) * time.Second,
		Broadcast:     channel.Broadcast,
		SendTo:        channel.SendTo,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := channel.Start(ctx); err != nil {
		return err
	}
	defer channel.Stop(context.Background())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return gw.consume(gctx) })

	slog.Info("gateway running")
	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// consume drains the inbound queue. Main-stream messages run inline, which
// serializes history writes; fresh thread tasks run concurrently.
func (gw *gateway) consume(ctx context.Context) error {
	for {
		msg, ok := gw.bus.ConsumeInbound(ctx)
		if !ok {
			return ctx.Err()
		}
		if msg.Fresh {
			go gw.runThread(ctx, msg)
			continue
		}
		gw.runMain(ctx, msg)
	}
}

func (gw *gateway) runMain(ctx context.Context, msg bus.InboundMessage) {
	session := gw.newSession(msg.Session)
	session.Dispatcher = gw.dispatcher

	res, err := session.Respond(ctx, agent.Request{
		Prompt:       msg.Content,
		HistoryLimit: envHistoryLimit(),
		Force:        true,
		Channel:      "telegram",
		Timeout:      gw.timeout,
	})
	if err != nil {
		slog.Error("main stream run failed", "chat_id", msg.ChatID, "error", err)
		gw.bus.PublishOutbound(bus.OutboundMessage{
			ChatID:  msg.ChatID,
			Content: "Sorry, I ran into an error: " + err.Error(),
		})
		return
	}
	gw.bus.PublishOutbound(bus.OutboundMessage{ChatID: msg.ChatID, Content: res.Text})
}

// runThread executes one "new"-thread or /re follow-up task in fresh context
// and records the response on the thread agent.
func (gw *gateway) runThread(ctx context.Context, msg bus.InboundMessage) {
	session := gw.newSession("")
	session.Dispatcher = gw.dispatcher

	res, err := session.Respond(ctx, agent.Request{
		Prompt:  msg.Content,
		Fresh:   true,
		Force:   true,
		Channel: "telegram",
		Timeout: gw.timeout,
	})

	text := ""
	switch {
	case err != nil:
		text = "Task failed: " + err.Error()
	default:
		text = res.Text
	}
	if setErr := gw.threads.SetResponse(msg.ThreadCode, text); setErr != nil {
		slog.Warn("thread response save failed", "code", msg.ThreadCode, "error", setErr)
	}
	gw.bus.PublishOutbound(bus.OutboundMessage{
		ChatID:  msg.ChatID,
		Content: fmt.Sprintf("Agent %d finished:\n\n%s", msg.ThreadCode, text),
	})
}
