package tools

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Fetched pages feed an LLM prompt, so extraction is regex-based and lossy on
// purpose; a DOM parser would add a dependency for no visible gain.

func tagRe(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)` + expr)
}

var (
	// Elements that never carry article content.
	noiseRes = []*regexp.Regexp{
		tagRe(`<script[\s\S]*?</script>`),
		tagRe(`<style[\s\S]*?</style>`),
		regexp.MustCompile(`<!--[\s\S]*?-->`),
		tagRe(`<nav[\s\S]*?</nav>`),
		tagRe(`<footer[\s\S]*?</footer>`),
	}
	pageHeaderRe = tagRe(`<header[\s\S]*?</header>`)

	blockquoteRe = tagRe(`<blockquote[^>]*>([\s\S]*?)</blockquote>`)
	paragraphRe  = tagRe(`<p[^>]*>([\s\S]*?)</p>`)
	lineBreakRe  = tagRe(`<br\s*/?>`)
	listItemRe   = tagRe(`<li[^>]*>([\s\S]*?)</li>`)

	anyTagStripRe = regexp.MustCompile(`<[^>]+>`)
	blankRunsRe   = regexp.MustCompile(`\n{3,}`)
	spaceRunsRe   = regexp.MustCompile(`[ \t]{2,}`)
)

// tagRule rewrites one tag pair into its markdown spelling.
type tagRule struct {
	re *regexp.Regexp
	to string
}

// markdownRules run in order: code fences first so later rules cannot chew
// into them, then headings, inline spans, and block layout.
var markdownRules = func() []tagRule {
	rules := []tagRule{
		{tagRe(`<pre[^>]*>([\s\S]*?)</pre>`), "\n```\n$1\n```\n"},
		{tagRe(`<code[^>]*>([\s\S]*?)</code>`), "`$1`"},
	}
	for level := 1; level <= 6; level++ {
		rules = append(rules, tagRule{
			tagRe(fmt.Sprintf(`<h%d[^>]*>([\s\S]*?)</h%d>`, level, level)),
			"\n" + strings.Repeat("#", level) + " $1\n",
		})
	}
	return append(rules,
		tagRule{tagRe(`<a[^>]*href="([^"]*)"[^>]*>([\s\S]*?)</a>`), "[$2]($1)"},
		tagRule{tagRe(`<img[^>]*alt="([^"]*)"[^>]*/?>`), "![$1]"},
		tagRule{tagRe(`<(?:strong|b)[^>]*>([\s\S]*?)</(?:strong|b)>`), "**$1**"},
		tagRule{tagRe(`<(?:em|i)[^>]*>([\s\S]*?)</(?:em|i)>`), "*$1*"},
		tagRule{paragraphRe, "\n$1\n"},
		tagRule{lineBreakRe, "\n"},
		tagRule{listItemRe, "\n- $1"},
	)
}()

// renderMarkdown rewrites an HTML page into the markdown-ish shape the
// dispatcher stitches into tool results.
func renderMarkdown(page string) string {
	s := page
	for _, re := range noiseRes {
		s = re.ReplaceAllString(s, "")
	}
	for _, rule := range markdownRules {
		s = rule.re.ReplaceAllString(s, rule.to)
	}
	s = blockquoteRe.ReplaceAllStringFunc(s, quoteBlock)
	s = anyTagStripRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = blankRunsRe.ReplaceAllString(s, "\n\n")
	s = spaceRunsRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// quoteBlock turns one blockquote match into "> " prefixed lines.
func quoteBlock(match string) string {
	m := blockquoteRe.FindStringSubmatch(match)
	if len(m) < 2 {
		return match
	}
	lines := strings.Split(strings.TrimSpace(m[1]), "\n")
	for i, l := range lines {
		lines[i] = "> " + strings.TrimSpace(l)
	}
	return "\n" + strings.Join(lines, "\n") + "\n"
}

// renderText is the plain-text mode: layout tags become line breaks and
// everything else is stripped. The page header goes too; in text mode there
// is no heading syntax left to keep it readable.
func renderText(page string) string {
	s := page
	for _, re := range noiseRes {
		s = re.ReplaceAllString(s, "")
	}
	s = pageHeaderRe.ReplaceAllString(s, "")
	s = paragraphRe.ReplaceAllString(s, "\n$1\n")
	s = lineBreakRe.ReplaceAllString(s, "\n")
	s = listItemRe.ReplaceAllString(s, "\n- $1")
	s = anyTagStripRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = spaceRunsRe.ReplaceAllString(s, " ")

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

var (
	mdHeaderMarksRe = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdInlineCodeRe  = regexp.MustCompile("`[^`]+`")
	mdImageRe       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	mdLinkRe        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
)

// stripMarkdown flattens a markdown body for text mode.
func stripMarkdown(md string) string {
	s := mdHeaderMarksRe.ReplaceAllString(md, "")
	s = strings.NewReplacer("**", "", "__", "").Replace(s)
	s = mdInlineCodeRe.ReplaceAllStringFunc(s, func(m string) string {
		return strings.Trim(m, "`")
	})
	s = mdImageRe.ReplaceAllString(s, "$1")
	s = mdLinkRe.ReplaceAllString(s, "$1")
	s = blankRunsRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// prettyJSON reindents a JSON body; invalid JSON passes through raw.
func prettyJSON(body []byte) (string, string) {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return string(body), "raw"
	}
	formatted, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return string(body), "raw"
	}
	return string(formatted), "json"
}
