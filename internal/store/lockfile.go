// Package store implements the durable JSON stores. Every store is a single
// JSON document on disk guarded by an advisory .lock sibling file, written
// atomically via temp-file + fsync + rename.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

const (
	lockTimeout   = 10 * time.Second
	lockPoll      = 25 * time.Millisecond
	storeFileMode = 0o600
)

// ErrLockTimeout is returned when the sibling lock file could not be acquired
// within the bounded poll window. Callers may retry.
var ErrLockTimeout = fmt.Errorf("store: lock acquisition timed out")

// WithLock runs fn while holding the exclusive lock for path. The lock is a
// sibling <path>.lock file created with O_EXCL; the holder's PID is written
// into it to aid diagnosis of stale locks.
func WithLock(path string, fn func() error) error {
	lockPath := path + ".lock"
	deadline := time.Now().Add(lockTimeout)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, storeFileMode)
		if err == nil {
			fmt.Fprintf(f, "%d", os.Getpid())
			f.Close()
			break
		}
		if !os.IsExist(err) {
			return fmt.Errorf("store: create lock %s: %w", lockPath, err)
		}
		if time.Now().After(deadline) {
			slog.Warn("store lock timed out", "path", path)
			return ErrLockTimeout
		}
		time.Sleep(lockPoll)
	}
	defer os.Remove(lockPath)
	return fn()
}

// WriteAtomic writes data to path via <path>.<pid>.<random>.tmp + fsync +
// rename, so a crash mid-write never leaves a partial file.
func WriteAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: mkdir for %s: %w", path, err)
	}
	tmp := fmt.Sprintf("%s.%d.%d.tmp", path, os.Getpid(), rand.Int63())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, storeFileMode)
	if err != nil {
		return fmt.Errorf("store: create temp for %s: %w", path, err)
	}
	cleanup := true
	defer func() {
		if cleanup {
			f.Close()
			os.Remove(tmp)
		}
	}()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("store: write temp for %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("store: sync temp for %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("store: close temp for %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: rename into %s: %w", path, err)
	}
	cleanup = false
	return nil
}

// SaveJSON marshals v with indentation and writes it atomically under the lock.
func SaveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", path, err)
	}
	return WithLock(path, func() error {
		return WriteAtomic(path, data)
	})
}

// LoadJSON reads path into v. A missing file or corrupt JSON leaves v at its
// zero value and returns nil: stores treat corruption as empty rather than
// propagating it.
func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("store file is corrupt, treating as empty", "path", path, "error", err)
	}
	return nil
}
