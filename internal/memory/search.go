// Package memory searches the durable memory files the flush step writes:
// workspace/MEMORY.md and the dated notes under workspace/memory/.
package memory

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const previewChars = 500

// Hit is one matching memory file.
type Hit struct {
	Path    string  `json:"path"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

// Searcher looks up queries in the workspace memory files.
type Searcher struct {
	WorkspaceDir string
}

// Search returns files containing the query, case-insensitively. MEMORY.md
// scores above dated notes so durable facts rank first.
func (s *Searcher) Search(query string) []Hit {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var hits []Hit
	if h, ok := s.match(filepath.Join(s.WorkspaceDir, "MEMORY.md"), query, 0.8); ok {
		hits = append(hits, h)
	}

	dailyDir := filepath.Join(s.WorkspaceDir, "memory")
	entries, err := os.ReadDir(dailyDir)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
				continue
			}
			if h, ok := s.match(filepath.Join(dailyDir, e.Name()), query, 0.7); ok {
				hits = append(hits, h)
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Path > hits[j].Path // newer dated files first
	})
	return hits
}

// match reads path and returns a hit with a preview centered on the first
// occurrence of the query.
func (s *Searcher) match(path, query string, score float64) (Hit, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Hit{}, false
	}
	content := string(data)
	idx := strings.Index(strings.ToLower(content), query)
	if idx < 0 {
		return Hit{}, false
	}

	start := idx - previewChars/4
	if start < 0 {
		start = 0
	}
	end := start + previewChars
	if end > len(content) {
		end = len(content)
	}
	preview := strings.TrimSpace(content[start:end])
	if end < len(content) {
		preview += "..."
	}
	return Hit{Path: path, Score: score, Preview: preview}, true
}
