package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/openclaw/internal/bus"
	"github.com/nextlevelbuilder/openclaw/internal/config"
	"github.com/nextlevelbuilder/openclaw/internal/store"
)

// Route kinds for inbound text.
const (
	routeMain     = "main"
	routeNew      = "new"
	routeReQuery  = "re_query"
	routeReRun    = "re_run"
	routeDetached = "detached"
)

type route struct {
	kind string
	code int    // /re agent code
	body string // task or follow-up text
}

var reCommandRe = regexp.MustCompile(`(?s)^/re\s+(\d+)(?:\s+(.+))?$`)

// parseRoute classifies a message per the routing rules: "new"-prefix fan-out,
// /re codes, detached runs, everything else the serial main stream.
func parseRoute(text string) route {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	switch {
	case lower == "new":
		return route{kind: routeNew}
	case strings.HasPrefix(lower, "new "):
		return route{kind: routeNew, body: strings.TrimSpace(trimmed[4:])}
	case strings.HasPrefix(lower, "detached:"):
		return route{kind: routeDetached, body: strings.TrimSpace(trimmed[len("detached:"):])}
	}

	if m := reCommandRe.FindStringSubmatch(trimmed); m != nil {
		code, err := strconv.Atoi(m[1])
		if err == nil {
			if body := strings.TrimSpace(m[2]); body != "" {
				return route{kind: routeReRun, code: code, body: body}
			}
			return route{kind: routeReQuery, code: code}
		}
	}
	return route{kind: routeMain, body: trimmed}
}

// allowedOpen evaluates the open-policy allowlist. An empty list or a "*"
// entry admits everyone; otherwise the numeric id or username must match.
func allowedOpen(policy config.TelegramPolicyConfig, userID int64, username string) bool {
	if len(policy.AllowFrom) == 0 {
		return true
	}
	idStr := strconv.FormatInt(userID, 10)
	for _, allowed := range policy.AllowFrom {
		if allowed == "*" || allowed == idStr {
			return true
		}
		if username != "" && strings.EqualFold(allowed, username) {
			return true
		}
	}
	return false
}

// buildPairingPrompt is the reply sent to an unpaired chat.
func buildPairingPrompt(code string) string {
	return fmt.Sprintf(
		"Pairing required. Code: %s\n\nRun this on the machine where openclaw is installed:\n  openclaw pair approve %s",
		code, code,
	)
}

const helpText = `Available commands:
/start - Start the bot
/help - Show this help message
/re <code> - Show a background agent's last response
/re <code> <task> - Send a follow-up task to a background agent
/reports - Show recent detached run reports

Message prefixes:
new <task> - Run the task on a concurrent background agent
detached: <task> - Run the task detached; the result is reported when done

Anything else is answered in the main conversation.`

// handleMessage processes one inbound Telegram message.
func (c *Channel) handleMessage(ctx context.Context, message *telego.Message) {
	if message.Text == "" || message.From == nil {
		return
	}
	chatID := message.Chat.ID
	userID := message.From.ID

	if !c.admitted(ctx, chatID, userID, message.From.Username) {
		return
	}

	text := strings.TrimSpace(message.Text)
	switch {
	case text == "/start":
		c.sendPlain(ctx, chatID, "Hello! You can ask me anything and I'll help using my available tools.\n\nUse /help to see available commands.")
		return
	case text == "/help":
		c.sendPlain(ctx, chatID, helpText)
		return
	case text == "/reports":
		c.handleReports(ctx, chatID)
		return
	}

	r := parseRoute(text)
	switch r.kind {
	case routeNew:
		c.handleNewThread(ctx, chatID, userID, r.body)
	case routeReQuery:
		c.handleReQuery(ctx, chatID, r.code)
	case routeReRun:
		c.handleReRun(ctx, chatID, r.code, r.body)
	case routeDetached:
		c.handleDetached(ctx, chatID, r.body)
	default:
		c.publishMain(ctx, chatID, userID, r.body)
	}
}

// admitted applies the DM policy, replying with a pairing prompt when the
// chat still needs approval.
func (c *Channel) admitted(ctx context.Context, chatID, userID int64, username string) bool {
	policy := c.policy.DMPolicy
	if policy == "" {
		policy = "pairing"
	}
	if policy == "open" {
		if allowedOpen(c.policy, userID, username) {
			return true
		}
		slog.Debug("telegram message rejected by allowlist", "user_id", userID, "username", username)
		return false
	}

	if c.pairing.IsPaired(chatID) {
		return true
	}
	code, err := c.pairing.RequestPairing(chatID)
	if err != nil {
		slog.Warn("pairing request failed", "chat_id", chatID, "error", err)
		return false
	}
	c.sendPlain(ctx, chatID, buildPairingPrompt(code))
	slog.Info("telegram pairing prompt sent", "chat_id", chatID, "code", code)
	return false
}

// publishMain hands the message to the serial main stream.
func (c *Channel) publishMain(ctx context.Context, chatID, userID int64, content string) {
	_ = c.bot.SendChatAction(ctx, tu.ChatAction(tu.ID(chatID), telego.ChatActionTyping))
	c.bus.PublishInbound(bus.InboundMessage{
		ChatID:  chatID,
		UserID:  userID,
		Content: content,
		Session: SessionName(chatID),
	})
}

// handleNewThread allocates a background agent and hands its task to a
// concurrent fresh-context worker.
func (c *Channel) handleNewThread(ctx context.Context, chatID, userID int64, task string) {
	agent, err := c.threads.Allocate(task, chatID, userID)
	if err != nil {
		slog.Error("thread agent allocation failed", "error", err)
		c.sendPlain(ctx, chatID, "Failed to start a new agent. Please try again.")
		return
	}
	if task == "" {
		c.sendPlain(ctx, chatID, fmt.Sprintf(
			"Agent %d is ready. Send /re %d <task> to give it work.", agent.AgentCode, agent.AgentCode))
		return
	}
	c.sendPlain(ctx, chatID, fmt.Sprintf(
		"Started agent %d on your task. I'll reply when it finishes; /re %d shows its last response.",
		agent.AgentCode, agent.AgentCode))
	c.bus.PublishInbound(bus.InboundMessage{
		ChatID:     chatID,
		UserID:     userID,
		Content:    task,
		Fresh:      true,
		ThreadCode: agent.AgentCode,
	})
}

// handleReQuery replies with a background agent's last response.
func (c *Channel) handleReQuery(ctx context.Context, chatID int64, code int) {
	agent, err := c.threads.Get(code)
	if err != nil {
		c.sendPlain(ctx, chatID, fmt.Sprintf("No agent with code %d.", code))
		return
	}
	if agent.LastResponse == "" {
		c.sendPlain(ctx, chatID, fmt.Sprintf("Agent %d is still working on: %s", code, agent.Task))
		return
	}
	c.SendResponse(ctx, chatID, fmt.Sprintf("Agent %d:\n\n%s", code, agent.LastResponse))
}

// handleReRun sends a follow-up task to an existing background agent.
func (c *Channel) handleReRun(ctx context.Context, chatID int64, code int, body string) {
	if err := c.threads.MarkRunning(code); err != nil {
		c.sendPlain(ctx, chatID, fmt.Sprintf("No agent with code %d.", code))
		return
	}
	c.sendPlain(ctx, chatID, fmt.Sprintf("Agent %d is on it.", code))
	c.bus.PublishInbound(bus.InboundMessage{
		ChatID:     chatID,
		Content:    body,
		Fresh:      true,
		ThreadCode: code,
	})
}

// handleDetached starts a detached run and replies with its id.
func (c *Channel) handleDetached(ctx context.Context, chatID int64, task string) {
	runID, err := c.detached.Start(task, chatID)
	if err != nil {
		c.sendPlain(ctx, chatID, "Detached run needs a task: detached: <task>")
		return
	}
	c.sendPlain(ctx, chatID, fmt.Sprintf(
		"Detached run started.\nRun id: %s\n\nI'll report here when it finishes; /reports lists recent runs.", runID))
}

// handleReports lists recent detached-run outcomes.
func (c *Channel) handleReports(ctx context.Context, chatID int64) {
	reports, err := c.reports.Recent(5)
	if err != nil {
		slog.Warn("report listing failed", "error", err)
		c.sendPlain(ctx, chatID, "Failed to read reports.")
		return
	}
	c.sendPlain(ctx, chatID, formatReports(reports))
}

// formatReports renders the /reports reply.
func formatReports(reports []store.DetachedReport) string {
	if len(reports) == 0 {
		return "No detached run reports yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Recent detached runs (%d):\n", len(reports))
	for _, r := range reports {
		status := "ok"
		if !r.Success {
			status = fmt.Sprintf("failed (exit %d)", r.ExitCode)
		}
		fmt.Fprintf(&b, "\n%s  %s\n  %s\n", r.RunID, status, truncateLine(r.Task, 80))
	}
	return b.String()
}

func truncateLine(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// SessionName returns the history session key for a chat.
func SessionName(chatID int64) string {
	return fmt.Sprintf("tg-%d", chatID)
}
