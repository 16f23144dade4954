package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DetachedReport is the durable outcome of one detached child-agent run,
// stored as one file per run under the reports directory.
type DetachedReport struct {
	RunID         string `json:"run_id"`
	Task          string `json:"task"`
	Success       bool   `json:"success"`
	ExitCode      int    `json:"exit_code"`
	CompletedAt   string `json:"completed_at"`
	StdoutPreview string `json:"stdout_preview"`
	StderrPreview string `json:"stderr_preview"`
	ChatID        int64  `json:"chat_id,omitempty"`
}

// DetachedReportStore writes and lists detached-run reports.
type DetachedReportStore struct {
	dir string
}

// NewDetachedReportStore creates a store over dir.
func NewDetachedReportStore(dir string) *DetachedReportStore {
	return &DetachedReportStore{dir: dir}
}

// Save writes the report file for a run.
func (s *DetachedReportStore) Save(r DetachedReport) error {
	return SaveJSON(filepath.Join(s.dir, r.RunID+".json"), r)
}

// Get loads one report by run id.
func (s *DetachedReportStore) Get(runID string) (DetachedReport, error) {
	var r DetachedReport
	err := LoadJSON(filepath.Join(s.dir, runID+".json"), &r)
	return r, err
}

// Recent returns up to n reports, newest first by completion time.
func (s *DetachedReportStore) Recent(n int) ([]DetachedReport, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var reports []DetachedReport
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var r DetachedReport
		if err := LoadJSON(filepath.Join(s.dir, e.Name()), &r); err == nil && r.RunID != "" {
			reports = append(reports, r)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].CompletedAt > reports[j].CompletedAt })
	if n > 0 && len(reports) > n {
		reports = reports[:n]
	}
	return reports, nil
}
