package agentcli

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"
)

const modelCacheTTL = 300 * time.Second

// Model is one entry from the child agent's model listing.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var (
	ansiRe      = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
	modelLineRe = regexp.MustCompile(`^(\S+)\s+-\s+(.+)$`)
)

// modelCache is the per-process model discovery cache.
type modelCache struct {
	mu      sync.Mutex
	models  []Model
	fetched time.Time
}

var discovered modelCache

// DiscoverModels lists the child agent's available models by invoking it with
// --list-models and parsing "<id> - <name>" lines. Results are cached for
// five minutes; failures yield an empty list, never an error (the caller
// falls back to "auto").
func (r *Runner) DiscoverModels(ctx context.Context) []Model {
	discovered.mu.Lock()
	defer discovered.mu.Unlock()

	if discovered.models != nil && time.Since(discovered.fetched) < modelCacheTTL {
		out := make([]Model, len(discovered.models))
		copy(out, discovered.models)
		return out
	}

	res, err := r.Run(ctx, RunSpec{
		Prompt:    "",
		ExtraArgs: []string{"--list-models"},
		Timeout:   30 * time.Second,
	})
	if err != nil || res.ExitCode != 0 {
		return nil
	}

	models := ParseModelList(res.Stdout)
	discovered.models = models
	discovered.fetched = time.Now()

	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// InvalidateModelCache clears the discovery cache (tests and config reload).
func InvalidateModelCache() {
	discovered.mu.Lock()
	defer discovered.mu.Unlock()
	discovered.models = nil
	discovered.fetched = time.Time{}
}

// ParseModelList extracts models from the raw --list-models output. ANSI
// escapes are stripped; header, tip and spinner lines are skipped; trailing
// "(default)" / "(current)" markers are removed from names.
func ParseModelList(raw string) []Model {
	var models []Model
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(ansiRe.ReplaceAllString(line, ""))
		if line == "" ||
			strings.HasPrefix(line, "Available") ||
			strings.HasPrefix(line, "Tip:") ||
			strings.HasPrefix(line, "Loading") {
			continue
		}
		m := modelLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[2])
		name = strings.TrimSpace(strings.TrimSuffix(name, "(default)"))
		name = strings.TrimSpace(strings.TrimSuffix(name, "(current)"))
		models = append(models, Model{ID: m[1], Name: name})
	}
	return models
}
