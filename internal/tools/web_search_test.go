package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestParseDDGResults verifies result extraction and redirect unwrapping on a
// captured response shape.
func TestParseDDGResults(t *testing.T) {
	page := `<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fblog%2F&rut=abc">The Go Blog</a>
<a class="result__snippet">News from the Go project</a>`
	results := parseDDGResults(page, 5)
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Title != "The Go Blog" {
		t.Errorf("title = %q", results[0].Title)
	}
	if results[0].URL != "https://go.dev/blog/" {
		t.Errorf("url = %q", results[0].URL)
	}
	if results[0].Description != "News from the Go project" {
		t.Errorf("description = %q", results[0].Description)
	}
}

// TestParseDDGResults_Count verifies the result cap.
func TestParseDDGResults_Count(t *testing.T) {
	var page string
	for i := 0; i < 8; i++ {
		page += fmt.Sprintf(`<a class="result__a" href="https://example.com/%d">Result %d</a>`+"\n", i, i)
	}
	if got := parseDDGResults(page, 3); len(got) != 3 {
		t.Errorf("got %d results, want 3", len(got))
	}
}

// TestUnwrapDDGRedirect covers direct links and malformed wrappers.
func TestUnwrapDDGRedirect(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://go.dev/doc/", "https://go.dev/doc/"},
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&rut=x", "https://go.dev/doc/"},
		{"//duckduckgo.com/l/?rut=x&uddg=", "//duckduckgo.com/l/?rut=x&uddg="},
	}
	for _, tt := range tests {
		if got := unwrapDDGRedirect(tt.in); got != tt.want {
			t.Errorf("unwrapDDGRedirect(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestBraveSearch verifies the request shape and payload decoding against a
// stub API server.
func TestBraveSearch(t *testing.T) {
	var gotToken, gotQuery, gotFreshness string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Subscription-Token")
		gotQuery = r.URL.Query().Get("q")
		gotFreshness = r.URL.Query().Get("freshness")
		fmt.Fprint(w, `{"web":{"results":[{"title":"Go 1.25","url":"https://go.dev/blog/go1.25","description":"Release notes"}]}}`)
	}))
	defer srv.Close()

	p := newBraveSearchProvider("secret-token")
	p.endpoint = srv.URL

	results, err := p.Search(context.Background(), searchParams{
		Query: "go 1.25 release", Count: 5, Freshness: "pm",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotToken != "secret-token" || gotQuery != "go 1.25 release" || gotFreshness != "pm" {
		t.Errorf("request: token=%q q=%q freshness=%q", gotToken, gotQuery, gotFreshness)
	}
	if len(results) != 1 || results[0].Title != "Go 1.25" || results[0].URL != "https://go.dev/blog/go1.25" {
		t.Errorf("results = %+v", results)
	}
}

// TestBraveSearch_APIError verifies a non-200 status surfaces as an error so
// the provider chain falls through.
func TestBraveSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newBraveSearchProvider("bad")
	p.endpoint = srv.URL
	if _, err := p.Search(context.Background(), searchParams{Query: "x", Count: 1}); err == nil {
		t.Fatal("expected error on 401")
	}
}
