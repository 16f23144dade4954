package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// rootOptions is the parsed form of the root command line. Anything the
// wrapper does not recognize lands in Passthrough and is forwarded to the
// child agent verbatim.
type rootOptions struct {
	Prompt       string
	Chat         string
	HistoryLimit int // -1 means not set (token-budgeted selection)
	SystemPrompt string
	Model        string
	ClearHistory bool
	ViewHistory  bool
	Fresh        bool

	Telegram            bool
	TelegramApprove     string
	TelegramListPending bool
	TelegramListPaired  bool
	TelegramDebug       bool

	ReachAdd       bool
	ReachList      bool
	ReachFire      bool
	ReachRemove    string
	ReachTime      string
	ReachCron      string
	ReachOnceAt    string
	ReachInMinutes int
	ReachTimezone  string
	ReachMessage   string

	ScheduleAdd     bool
	ScheduleList    bool
	ScheduleRemove  string
	ScheduleTime    string
	ScheduleMessage string
	ScheduleOnce    string
	ScheduleUser    string

	ListTools  bool
	ListSkills bool
	Version    bool
	Verbose    bool

	Passthrough []string
	Positional  []string
}

// passthroughValueFlags are child-agent flags known to consume the next
// token. Without this list a flag value that starts with a dash or looks
// like a prompt word would be misparsed.
var passthroughValueFlags = map[string]bool{
	"--api-key":       true,
	"-H":              true,
	"--header":        true,
	"--output-format": true,
	"--workspace":     true,
}

// parseRootArgs scans the root command line by hand. Wrapper flags are
// interpreted; everything else passes through.
func parseRootArgs(args []string) (rootOptions, error) {
	opts := rootOptions{HistoryLimit: -1}

	takeValue := func(i *int, name, inline string, hasInline bool) (string, error) {
		if hasInline {
			return inline, nil
		}
		*i++
		if *i >= len(args) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, inline, hasInline := arg, "", false
		if idx := strings.IndexByte(arg, '='); idx > 0 && strings.HasPrefix(arg, "--") {
			name, inline, hasInline = arg[:idx], arg[idx+1:], true
		}

		var strDst *string
		switch name {
		case "-p":
			strDst = &opts.Prompt
		case "--chat":
			strDst = &opts.Chat
		case "--system-prompt":
			strDst = &opts.SystemPrompt
		case "--model":
			strDst = &opts.Model
		case "--telegram-approve":
			strDst = &opts.TelegramApprove
		case "--reach-remove":
			strDst = &opts.ReachRemove
		case "--reach-time":
			strDst = &opts.ReachTime
		case "--reach-cron":
			strDst = &opts.ReachCron
		case "--reach-once-at":
			strDst = &opts.ReachOnceAt
		case "--reach-timezone":
			strDst = &opts.ReachTimezone
		case "--reach-message":
			strDst = &opts.ReachMessage
		case "--schedule-remove":
			strDst = &opts.ScheduleRemove
		case "--schedule-time":
			strDst = &opts.ScheduleTime
		case "--schedule-message":
			strDst = &opts.ScheduleMessage
		case "--schedule-once":
			strDst = &opts.ScheduleOnce
		case "--schedule-user":
			strDst = &opts.ScheduleUser
		}
		if strDst != nil {
			v, err := takeValue(&i, name, inline, hasInline)
			if err != nil {
				return opts, err
			}
			*strDst = v
			continue
		}

		switch name {
		case "--history-limit", "--reach-in-minutes":
			v, err := takeValue(&i, name, inline, hasInline)
			if err != nil {
				return opts, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, fmt.Errorf("%s: invalid number %q", name, v)
			}
			if name == "--history-limit" {
				opts.HistoryLimit = n
			} else {
				opts.ReachInMinutes = n
			}
			continue

		case "--clear-history":
			opts.ClearHistory = true
		case "--view-history":
			opts.ViewHistory = true
		case "--fresh":
			opts.Fresh = true
		case "--telegram":
			opts.Telegram = true
		case "--telegram-list-pending":
			opts.TelegramListPending = true
		case "--telegram-list-paired":
			opts.TelegramListPaired = true
		case "--telegram-debug":
			opts.TelegramDebug = true
		case "--reach-add":
			opts.ReachAdd = true
		case "--reach-list":
			opts.ReachList = true
		case "--reach-fire":
			opts.ReachFire = true
		case "--schedule-add":
			opts.ScheduleAdd = true
		case "--schedule-list":
			opts.ScheduleList = true
		case "--list-tools":
			opts.ListTools = true
		case "--list-skills":
			opts.ListSkills = true
		case "--version":
			opts.Version = true
		case "--verbose", "-v":
			opts.Verbose = true

		default:
			if !strings.HasPrefix(arg, "-") {
				opts.Positional = append(opts.Positional, arg)
				continue
			}
			opts.Passthrough = append(opts.Passthrough, arg)
			switch {
			case passthroughValueFlags[arg]:
				if i+1 < len(args) {
					i++
					opts.Passthrough = append(opts.Passthrough, args[i])
				}
			case arg == "--resume":
				// Optional value: consume only a non-flag token.
				if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
					i++
					opts.Passthrough = append(opts.Passthrough, args[i])
				}
			}
		}
	}

	if opts.Prompt == "" && len(opts.Positional) > 0 {
		opts.Prompt = strings.Join(opts.Positional, " ")
	}
	return opts, nil
}
