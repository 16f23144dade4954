package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const ddgEndpoint = "https://html.duckduckgo.com/html/"

// duckDuckGoSearchProvider scrapes the DuckDuckGo HTML endpoint. No key
// needed, so it is always the last provider in the chain.
type duckDuckGoSearchProvider struct {
	client *http.Client
}

func newDuckDuckGoSearchProvider() *duckDuckGoSearchProvider {
	return &duckDuckGoSearchProvider{
		client: &http.Client{Timeout: time.Duration(searchTimeoutSeconds) * time.Second},
	}
}

func (p *duckDuckGoSearchProvider) Name() string { return "duckduckgo" }

func (p *duckDuckGoSearchProvider) Search(ctx context.Context, params searchParams) ([]searchResult, error) {
	req, err := http.NewRequestWithContext(ctx, "GET",
		ddgEndpoint+"?q="+url.QueryEscape(params.Query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", webSearchUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return parseDDGResults(string(body), params.Count), nil
}

var (
	ddgResultRe  = regexp.MustCompile(`<a[^>]*class="[^"]*result__a[^"]*"[^>]*href="([^"]+)"[^>]*>([\s\S]*?)</a>`)
	ddgSnippetRe = regexp.MustCompile(`<a class="result__snippet[^"]*".*?>([\s\S]*?)</a>`)
	ddgStripRe   = regexp.MustCompile(`<[^>]+>`)
)

// parseDDGResults extracts up to count results from the response page. The
// scrape is best effort; an unrecognized page shape yields no results rather
// than an error so the provider chain can move on.
func parseDDGResults(page string, count int) []searchResult {
	links := ddgResultRe.FindAllStringSubmatch(page, count)
	snippets := ddgSnippetRe.FindAllStringSubmatch(page, count)

	var results []searchResult
	for i, link := range links {
		r := searchResult{
			Title: strings.TrimSpace(ddgStripRe.ReplaceAllString(link[2], "")),
			URL:   unwrapDDGRedirect(link[1]),
		}
		if i < len(snippets) {
			r.Description = strings.TrimSpace(ddgStripRe.ReplaceAllString(snippets[i][1], ""))
		}
		results = append(results, r)
	}
	return results
}

// unwrapDDGRedirect resolves the /l/?uddg=... indirection DDG wraps result
// links in. Anything that does not parse keeps the wrapped form.
func unwrapDDGRedirect(raw string) string {
	if !strings.Contains(raw, "uddg=") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return raw
}
