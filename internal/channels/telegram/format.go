package telegram

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// maxMessageLength is kept under Telegram's 4096 hard limit to leave room for
// the HTML parse mode's occasional overhead.
const maxMessageLength = 4090

const continuedMarker = "[Continued...]\n"

var (
	fencedRe     = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*\n?(.*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
	headerRe     = regexp.MustCompile(`(?m)^#{1,6}[ \t]*(.*)$`)
	boldRe       = regexp.MustCompile(`\*\*([^\n]+?)\*\*`)
	italicRe     = regexp.MustCompile(`(^|[^\w&])_([^_\n]+)_($|[^\w;])`)
	strikeRe     = regexp.MustCompile(`~~([^~\n]+)~~`)
	linkRe       = regexp.MustCompile(`\[([^\]\n]+)\]\((https?://[^\s)]+)\)`)
	closingTagRe = regexp.MustCompile(`</[a-z]+>`)
	anyTagRe     = regexp.MustCompile(`</?(?:b|i|s|u|code|pre|a)(?:\s[^>]*)?>`)
	openTagRe    = regexp.MustCompile(`^<([a-z]+)(?:\s[^>]*)?>$`)
)

// literalTags are simple HTML tags the model sometimes emits directly; they
// are un-escaped back into formatting instead of showing as text.
var literalTags = []string{"b", "i", "s", "u", "code", "pre"}

// FormatResponse renders model output as Telegram HTML. The second return is
// false only for empty input (send nothing, no parse mode).
func FormatResponse(text string) (string, bool) {
	if text == "" {
		return "", false
	}

	// Code spans come out first so nothing inside them is rewritten.
	var saved []string
	stash := func(rendered string) string {
		saved = append(saved, rendered)
		return fmt.Sprintf("\x00%d\x00", len(saved)-1)
	}
	out := fencedRe.ReplaceAllStringFunc(text, func(m string) string {
		body := fencedRe.FindStringSubmatch(m)[1]
		return stash("<pre>" + html.EscapeString(strings.TrimRight(body, "\n")) + "</pre>")
	})
	out = inlineCodeRe.ReplaceAllStringFunc(out, func(m string) string {
		body := inlineCodeRe.FindStringSubmatch(m)[1]
		return stash("<code>" + html.EscapeString(body) + "</code>")
	})

	out = html.EscapeString(out)
	for _, tag := range literalTags {
		out = strings.ReplaceAll(out, "&lt;"+tag+"&gt;", "<"+tag+">")
		out = strings.ReplaceAll(out, "&lt;/"+tag+"&gt;", "</"+tag+">")
	}

	// Headers become bold lines; empty headers vanish instead of leaving an
	// empty bold pair behind.
	out = headerRe.ReplaceAllStringFunc(out, func(m string) string {
		body := strings.TrimSpace(headerRe.FindStringSubmatch(m)[1])
		if body == "" {
			return ""
		}
		return "**" + body + "**"
	})

	out = boldRe.ReplaceAllString(out, "<b>$1</b>")
	out = strings.ReplaceAll(out, "**", "")
	out = strings.ReplaceAll(out, "__", "")
	out = italicRe.ReplaceAllString(out, "$1<i>$2</i>$3")
	out = strikeRe.ReplaceAllString(out, "<s>$1</s>")
	out = linkRe.ReplaceAllString(out, `<a href="$2">$1</a>`)
	out = convertSmileys(out)

	out = strings.ReplaceAll(out, "</b><b>", "")
	out = strings.ReplaceAll(out, "<b></b>", "")
	out = strings.ReplaceAll(out, "<b> </b>", " ")

	for i, rendered := range saved {
		out = strings.Replace(out, fmt.Sprintf("\x00%d\x00", i), rendered, 1)
	}
	return out, true
}

// convertSmileys replaces text smileys with emoji. ":/" inside URLs and ":*"
// in front of a bold marker stay untouched.
func convertSmileys(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ':' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		next := s[i+1]
		var after byte
		if i+2 < len(s) {
			after = s[i+2]
		}
		switch {
		case next == ')':
			b.WriteString("\U0001F60A")
			i++
		case next == '(':
			b.WriteString("\U0001F61E")
			i++
		case next == '*' && after != '*':
			b.WriteString("\U0001F618")
			i++
		case next == '/' && after != '/':
			b.WriteString("\U0001F615")
			i++
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// htmlBalanced reports whether every supported tag opens and closes in order.
func htmlBalanced(s string) bool {
	var stack []string
	for _, m := range anyTagRe.FindAllString(s, -1) {
		if strings.HasPrefix(m, "</") {
			name := strings.TrimSuffix(strings.TrimPrefix(m, "</"), ">")
			if len(stack) == 0 || stack[len(stack)-1] != name {
				return false
			}
			stack = stack[:len(stack)-1]
			continue
		}
		if sub := openTagRe.FindStringSubmatch(m); sub != nil {
			stack = append(stack, sub[1])
		}
	}
	return len(stack) == 0
}

// sanitizePlain strips formatting for the plain-text fallback path.
func sanitizePlain(s string) string {
	s = anyTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	for _, marker := range []string{"```", "**", "__", "~~", "`"} {
		s = strings.ReplaceAll(s, marker, "")
	}
	return s
}

// chunkMessage splits a long message below max characters per chunk. Splits
// land after a closing tag or a newline so Telegram never sees a tag cut in
// half; continuation chunks carry a marker prefix.
func chunkMessage(text string, max int) []string {
	if max <= 0 {
		max = maxMessageLength
	}
	if len(text) <= max {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for {
		budget := max
		if len(chunks) > 0 {
			budget = max - len(continuedMarker)
		}
		if len(remaining) <= budget {
			break
		}
		split := splitPoint(remaining[:budget])
		if split <= 0 {
			split = budget
		}
		chunk := strings.TrimRight(remaining[:split], "\n")
		remaining = strings.TrimLeft(remaining[split:], "\n")
		if len(chunks) > 0 {
			chunk = continuedMarker + chunk
		}
		chunks = append(chunks, chunk)
		if remaining == "" {
			return chunks
		}
	}
	last := remaining
	if len(chunks) > 0 {
		last = continuedMarker + last
	}
	return append(chunks, last)
}

// splitPoint returns the best cut position inside window: the end of the last
// closing tag or the last newline, whichever comes later.
func splitPoint(window string) int {
	best := strings.LastIndexByte(window, '\n') + 1
	if tags := closingTagRe.FindAllStringIndex(window, -1); len(tags) > 0 {
		if end := tags[len(tags)-1][1]; end > best {
			best = end
		}
	}
	return best
}

// chunkSendArgs validates one chunk before sending. Unbalanced HTML falls
// back to sanitized plain text with no parse mode.
func chunkSendArgs(chunk string, useHTML bool) (string, string) {
	if !useHTML {
		return chunk, ""
	}
	if htmlBalanced(chunk) {
		return chunk, "HTML"
	}
	return sanitizePlain(chunk), ""
}
