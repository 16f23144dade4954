package tools

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Per-response execution caps.
const (
	maxFetchCalls  = 3
	maxSearchCalls = 2
	maxMemoryCalls = 2
)

var (
	urlRe = regexp.MustCompile(`https?://[^\s\)]+`)

	webSearchRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)search(?:ing)?\s+(?:the\s+)?web\s+(?:for)?\s+["']?([^"'\n]+)["']?`),
		regexp.MustCompile(`(?i)search(?:ing)?\s+for\s+["']?([^"'\n]+)["']?`),
		regexp.MustCompile(`(?i)look(?:ing)?\s+up\s+["']?([^"'\n]+)["']?`),
		regexp.MustCompile(`(?i)\bfind(?:ing)?\s+["']([^"'\n]+)["']`),
	}

	memorySearchRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)search(?:ing)?\s+(?:the\s+)?memory\s+(?:for)?\s+["']?([^"'\n]+)["']?`),
		regexp.MustCompile(`(?i)look(?:ing)?\s+(?:in|through)\s+memory\s+(?:for)?\s+["']?([^"'\n]+)["']?`),
	}

	delegateRe = regexp.MustCompile(`(?i)delegate\s+(?:this\s+|the\s+task\s+)?to\s+(researcher|coder|reviewer|writer|home_assistant|ha)\s*:\s*([^\n]+)`)

	smartDelegateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)smart\s+delegate\s*:\s*([^\n]+)`),
		regexp.MustCompile(`(?i)delegate\s+to\s+(?:a\s+)?(?:stronger|better|optimal)\s+model\s*:\s*([^\n]+)`),
	}

	weatherRe = regexp.MustCompile(`(?i)\b(?:weather|forecast)\s+(?:in|for|at)\s+([A-Za-z][A-Za-z\s'\-]{1,40})`)

	cursorAgentRe = regexp.MustCompile(`(?i)\bcursor\s+agent\s+(launch|status|list|conversation|followup|stop|delete|models|repos|me)\b(?:\s*:\s*([^\n]+))?`)
)

// DispatchRecord is one executed tool call with its outcome.
type DispatchRecord struct {
	Tool   string                 `json:"tool"`
	Args   map[string]interface{} `json:"args"`
	Result *Result                `json:"result"`
}

// Dispatcher scans the child agent's text output for natural-language tool
// invocations and executes them against the registry. Each tool runs at most
// its per-response cap; results are stitched onto the output as
// [Tool Result: ...] / [Tool Error: ...] blocks.
type Dispatcher struct {
	Registry *Registry
}

// Dispatch returns the augmented output and the executed call records.
// lastUserMessage, when known, is forwarded to delegations as a single
// truncated context line; nothing else from history crosses over.
func (d *Dispatcher) Dispatch(ctx context.Context, output, lastUserMessage string) (string, []DispatchRecord) {
	augmented := output
	var records []DispatchRecord

	run := func(tool string, args map[string]interface{}, format func(*Result) string) {
		res := d.Registry.Execute(ctx, tool, args)
		records = append(records, DispatchRecord{Tool: tool, Args: args, Result: res})
		augmented += format(res)
		slog.Debug("dispatched tool", "tool", tool, "is_error", res.IsError)
	}

	for _, rawURL := range d.findURLs(output) {
		url := rawURL
		run("web_fetch", map[string]interface{}{"url": url}, func(res *Result) string {
			if res.IsError {
				return fmt.Sprintf("\n\n[Tool Error: web_fetch for %s - %s]", url, res.ForLLM)
			}
			return fmt.Sprintf("\n\n[Tool Result: web_fetch for %s]\n%s", url, truncateStr(res.ForLLM, 500))
		})
	}

	for _, query := range findQueries(output, webSearchRes, maxSearchCalls) {
		q := query
		run("web_search", map[string]interface{}{"query": q}, func(res *Result) string {
			if res.IsError {
				return fmt.Sprintf("\n\n[Tool Error: web_search for '%s' - %s]", q, res.ForLLM)
			}
			return fmt.Sprintf("\n\n[Tool Result: web_search for '%s']\n%s", q, res.ForLLM)
		})
	}

	for _, query := range findQueries(output, memorySearchRes, maxMemoryCalls) {
		q := query
		run("memory_search", map[string]interface{}{"query": q}, func(res *Result) string {
			if res.IsError {
				return fmt.Sprintf("\n\n[Tool Error: memory_search for '%s' - %s]", q, res.ForLLM)
			}
			return fmt.Sprintf("\n\n[Tool Result: memory_search for '%s']\n%s", q, res.ForLLM)
		})
	}

	if m := weatherRe.FindStringSubmatch(output); m != nil {
		city := strings.TrimSpace(strings.TrimRight(m[1], " .,;:!?"))
		if city != "" {
			run("weather", map[string]interface{}{"city": city}, func(res *Result) string {
				if res.IsError {
					return fmt.Sprintf("\n\n[Tool Error: weather for %s - %s]", city, res.ForLLM)
				}
				return fmt.Sprintf("\n\n[Tool Result: weather for %s]\n%s", city, res.ForLLM)
			})
		}
	}

	if m := cursorAgentRe.FindStringSubmatch(output); m != nil {
		verb := strings.ToLower(m[1])
		args := map[string]interface{}{"action": verb}
		if rest := strings.TrimSpace(m[2]); rest != "" {
			args["prompt"] = rest
		}
		run("cursor_agent", args, func(res *Result) string {
			if res.IsError {
				return fmt.Sprintf("\n\n[Tool Error: cursor_agent %s - %s]", verb, res.ForLLM)
			}
			return fmt.Sprintf("\n\n[Tool Result: cursor_agent %s]\n%s", verb, truncateStr(res.ForLLM, 3000))
		})
	}

	if m := delegateRe.FindStringSubmatch(output); m != nil {
		persona := strings.ToLower(m[1])
		if persona == "ha" {
			persona = "home_assistant"
		}
		task := withUserContext(strings.TrimSpace(m[2]), lastUserMessage)
		run("delegate", map[string]interface{}{"persona": persona, "task": task}, func(res *Result) string {
			if res.IsError {
				return fmt.Sprintf("\n\n[Tool Error: delegate to %s - %s]", persona, res.ForLLM)
			}
			return fmt.Sprintf("\n\n[Tool Result: delegate to %s]\n%s", persona, truncateStr(res.ForLLM, 4000))
		})
	} else if task := matchFirst(output, smartDelegateRes); task != "" {
		task = withUserContext(task, lastUserMessage)
		args := map[string]interface{}{"task": task, "original_ask": lastUserMessage}
		run("smart_delegate", args, func(res *Result) string {
			if res.IsError {
				return fmt.Sprintf("\n\n[Tool Error: smart_delegate - %s]", res.ForLLM)
			}
			// Announcement stays verbatim; only the response is truncated.
			body := res.ForLLM
			if res.ForUser != "" && strings.HasPrefix(body, res.ForUser) {
				response := strings.TrimPrefix(body, res.ForUser)
				body = res.ForUser + truncateStr(response, 6000)
			} else {
				body = truncateStr(body, 6000)
			}
			return fmt.Sprintf("\n\n[Tool Result: smart_delegate]\n%s", body)
		})
	}

	return augmented, records
}

// findURLs extracts up to maxFetchCalls distinct URLs, trailing punctuation
// stripped.
func (d *Dispatcher) findURLs(output string) []string {
	seen := map[string]bool{}
	var urls []string
	for _, raw := range urlRe.FindAllString(output, -1) {
		u := strings.TrimRight(raw, `.,;:!?'"`)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
		if len(urls) >= maxFetchCalls {
			break
		}
	}
	return urls
}

// findQueries collects up to cap distinct cleaned queries across the pattern
// list.
func findQueries(output string, patterns []*regexp.Regexp, limit int) []string {
	seen := map[string]bool{}
	var queries []string
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(output, -1) {
			q := cleanQuery(m[1])
			if q == "" || seen[strings.ToLower(q)] {
				continue
			}
			seen[strings.ToLower(q)] = true
			queries = append(queries, q)
			if len(queries) >= limit {
				return queries
			}
		}
	}
	return queries
}

func matchFirst(output string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(output); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// cleanQuery normalizes an extracted query: surrounding quotes and trailing
// punctuation go, a leading for/about/on goes, and anything shorter than
// 3 chars is discarded.
func cleanQuery(q string) string {
	q = strings.TrimSpace(q)
	q = strings.Trim(q, `"'`)
	q = strings.TrimRight(q, ".,;:!?)")
	for _, lead := range []string{"for ", "about ", "on "} {
		if strings.HasPrefix(strings.ToLower(q), lead) {
			q = q[len(lead):]
			break
		}
	}
	q = strings.TrimSpace(q)
	if len(q) < 3 {
		return ""
	}
	return q
}

// withUserContext appends the first line of the user's own request, truncated
// to 350 chars. History never crosses into a delegation beyond this line.
func withUserContext(task, lastUserMessage string) string {
	if lastUserMessage == "" {
		return task
	}
	firstLine := lastUserMessage
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	if len(firstLine) > 350 {
		firstLine = firstLine[:350]
	}
	return task + "\nUser asked: " + firstLine
}
