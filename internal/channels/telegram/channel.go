// Package telegram is the chat front-end: long-polled bot transport, pairing
// gate, message routing, and HTML rendering of agent responses.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/openclaw/internal/bus"
	"github.com/nextlevelbuilder/openclaw/internal/config"
	"github.com/nextlevelbuilder/openclaw/internal/delegate"
	"github.com/nextlevelbuilder/openclaw/internal/store"
)

// sendRate paces outbound messages; Telegram allows roughly 30 msg/s across
// all chats before throttling.
var sendRate = rate.Limit(25)

// Channel connects to Telegram via the Bot API using long polling. Inbound
// messages that need the child agent go through the message bus; commands and
// pairing replies are answered in place.
type Channel struct {
	bot      *telego.Bot
	policy   config.TelegramPolicyConfig
	pairing  *store.PairingStore
	threads  *store.ThreadAgentStore
	reports  *store.DetachedReportStore
	detached *delegate.DetachedRunner
	bus      *bus.MessageBus
	limiter  *rate.Limiter

	pollCancel context.CancelFunc // cancels the long polling context
	pollDone   chan struct{}      // closed when the polling goroutine exits
}

// Options carries the channel's collaborators.
type Options struct {
	Token    string
	Policy   config.TelegramPolicyConfig
	Pairing  *store.PairingStore
	Threads  *store.ThreadAgentStore
	Reports  *store.DetachedReportStore
	Detached *delegate.DetachedRunner
	Bus      *bus.MessageBus
}

// New creates the Telegram channel.
func New(opts Options) (*Channel, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required (set TELEGRAM_BOT_TOKEN or channels.telegram.botToken)")
	}
	bot, err := telego.NewBot(opts.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Channel{
		bot:      bot,
		policy:   opts.Policy,
		pairing:  opts.Pairing,
		threads:  opts.Threads,
		reports:  opts.Reports,
		detached: opts.Detached,
		bus:      opts.Bus,
		limiter:  rate.NewLimiter(sendRate, 5),
	}, nil
}

// Start begins long polling and the outbound delivery loop.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting telegram bot (polling mode)")

	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}
	slog.Info("telegram bot connected", "username", c.bot.Username())

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("telegram updates channel closed")
					return
				}
				if update.Message != nil {
					c.handleMessage(pollCtx, update.Message)
				}
			}
		}
	}()

	if c.bus != nil {
		go func() {
			for {
				msg, ok := c.bus.ConsumeOutbound(pollCtx)
				if !ok {
					return
				}
				c.SendResponse(pollCtx, msg.ChatID, msg.Content)
			}
		}()
	}

	return nil
}

// Stop cancels long polling and waits for the polling goroutine so Telegram
// releases the getUpdates lock before a new instance starts.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping telegram bot")
	if c.pollCancel != nil {
		c.pollCancel()
	}
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
			slog.Info("telegram bot stopped")
		case <-time.After(10 * time.Second):
			slog.Warn("telegram polling goroutine did not exit within timeout")
		}
	}
	return nil
}

// SendResponse formats, chunks, and delivers one agent response to a chat.
func (c *Channel) SendResponse(ctx context.Context, chatID int64, text string) {
	formatted, useHTML := FormatResponse(text)
	if formatted == "" {
		return
	}
	for _, chunk := range chunkMessage(formatted, maxMessageLength) {
		body, parseMode := chunkSendArgs(chunk, useHTML)
		if err := c.send(ctx, chatID, body, parseMode); err != nil {
			// HTML rejections happen on edge cases the balance check
			// misses; retry the chunk as plain text.
			if parseMode != "" {
				if err = c.send(ctx, chatID, sanitizePlain(chunk), ""); err == nil {
					continue
				}
			}
			slog.Warn("telegram send failed", "chat_id", chatID, "error", err)
			return
		}
	}
}

func (c *Channel) send(ctx context.Context, chatID int64, text, parseMode string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tu.Message(tu.ID(chatID), text)
	msg.ParseMode = parseMode
	_, err := c.bot.SendMessage(ctx, msg)
	return err
}

// sendPlain delivers unformatted text (command replies, pairing prompts).
func (c *Channel) sendPlain(ctx context.Context, chatID int64, text string) {
	if err := c.send(ctx, chatID, text, ""); err != nil {
		slog.Warn("telegram send failed", "chat_id", chatID, "error", err)
	}
}

// Broadcast delivers a message to every paired chat. Used by the scheduler.
func (c *Channel) Broadcast(text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	chats := c.pairing.PairedUsers()
	if len(chats) == 0 {
		slog.Warn("broadcast skipped, no paired chats")
		return nil
	}
	var firstErr error
	for _, chatID := range chats {
		if err := c.send(ctx, chatID, text, ""); err != nil {
			slog.Warn("broadcast send failed", "chat_id", chatID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SendTo delivers a message to one chat. Used by scheduled notifications and
// detached-run completion notices.
func (c *Channel) SendTo(chatID int64, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return c.send(ctx, chatID, text, "")
}
