package store

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nextlevelbuilder/openclaw/internal/history"
)

const historyCacheTTL = 45 * time.Second

// HistoryStore persists one session's conversation history (a bare JSON array
// of entries) plus its metadata sidecar. The in-memory copy is a TTL-bounded
// cache invalidated whenever the file's mtime changes.
type HistoryStore struct {
	path     string
	metaPath string

	mu        sync.Mutex
	cache     []history.Entry
	cachedAt  time.Time
	cachedMod time.Time
}

// NewHistoryStore creates a store over the given history and sidecar paths.
func NewHistoryStore(path, metaPath string) *HistoryStore {
	return &HistoryStore{path: path, metaPath: metaPath}
}

// Path returns the history file path.
func (s *HistoryStore) Path() string { return s.path }

// Load returns the session history. Missing or corrupt files load as empty.
func (s *HistoryStore) Load() ([]history.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mod := s.mtime()
	if s.cache != nil && time.Since(s.cachedAt) < historyCacheTTL && mod.Equal(s.cachedMod) {
		out := make([]history.Entry, len(s.cache))
		copy(out, s.cache)
		return out, nil
	}

	var entries []history.Entry
	if err := LoadJSON(s.path, &entries); err != nil {
		return nil, err
	}
	s.cache = entries
	s.cachedAt = time.Now()
	s.cachedMod = mod

	out := make([]history.Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// Save replaces the session history on disk and refreshes the cache.
func (s *HistoryStore) Save(entries []history.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entries == nil {
		entries = []history.Entry{}
	}
	if err := SaveJSON(s.path, entries); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	s.cache = make([]history.Entry, len(entries))
	copy(s.cache, entries)
	s.cachedAt = time.Now()
	s.cachedMod = s.mtime()
	return nil
}

// Append adds entries to the stored history.
func (s *HistoryStore) Append(entries ...history.Entry) error {
	current, err := s.Load()
	if err != nil {
		return err
	}
	return s.Save(append(current, entries...))
}

// Clear removes the history file.
func (s *HistoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// LoadMeta returns the metadata sidecar; missing file yields zero values.
func (s *HistoryStore) LoadMeta() (history.Meta, error) {
	var m history.Meta
	err := LoadJSON(s.metaPath, &m)
	return m, err
}

// SaveMeta persists the metadata sidecar.
func (s *HistoryStore) SaveMeta(m history.Meta) error {
	return SaveJSON(s.metaPath, m)
}

func (s *HistoryStore) mtime() time.Time {
	fi, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}
