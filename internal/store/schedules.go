package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ReachSchedule is a user-defined time-based notification. Exactly one of
// Time, Cron or OnceAt is set.
type ReachSchedule struct {
	ID       string `json:"id"`
	Time     string `json:"time,omitempty"`    // "HH:MM", recurring daily
	Cron     string `json:"cron,omitempty"`    // 5-field cron, recurring
	OnceAt   string `json:"once_at,omitempty"` // RFC3339, one-shot
	Timezone string `json:"timezone,omitempty"`
	Message  string `json:"message"`
	Channel  string `json:"channel"` // defaults to "telegram"
	Enabled  bool   `json:"enabled"`
}

type reachScheduleFile struct {
	Schedules []ReachSchedule `json:"schedules"`
}

// ReachScheduleStore persists the reach schedules list.
type ReachScheduleStore struct {
	path string
	mu   sync.Mutex
}

// NewReachScheduleStore creates a store over path.
func NewReachScheduleStore(path string) *ReachScheduleStore {
	return &ReachScheduleStore{path: path}
}

// Path returns the backing file path (the gateway watches it for changes).
func (s *ReachScheduleStore) Path() string { return s.path }

// List returns all schedules.
func (s *ReachScheduleStore) List() ([]ReachSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var f reachScheduleFile
	if err := LoadJSON(s.path, &f); err != nil {
		return nil, err
	}
	return f.Schedules, nil
}

// Add validates and appends a schedule, assigning a UUID when missing.
func (s *ReachScheduleStore) Add(sched ReachSchedule) (ReachSchedule, error) {
	set := 0
	for _, v := range []string{sched.Time, sched.Cron, sched.OnceAt} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return ReachSchedule{}, fmt.Errorf("schedule needs exactly one of time, cron or once_at")
	}
	if sched.Message == "" {
		return ReachSchedule{}, fmt.Errorf("schedule message is required")
	}
	if sched.ID == "" {
		sched.ID = uuid.NewString()
	}
	if sched.Channel == "" {
		sched.Channel = "telegram"
	}
	sched.Enabled = true

	s.mu.Lock()
	defer s.mu.Unlock()
	var f reachScheduleFile
	if err := LoadJSON(s.path, &f); err != nil {
		return ReachSchedule{}, err
	}
	f.Schedules = append(f.Schedules, sched)
	if err := SaveJSON(s.path, f); err != nil {
		return ReachSchedule{}, err
	}
	return sched, nil
}

// Remove deletes a schedule by id.
func (s *ReachScheduleStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var f reachScheduleFile
	if err := LoadJSON(s.path, &f); err != nil {
		return err
	}
	kept := f.Schedules[:0]
	found := false
	for _, sc := range f.Schedules {
		if sc.ID == id {
			found = true
			continue
		}
		kept = append(kept, sc)
	}
	if !found {
		return fmt.Errorf("schedule %s not found", id)
	}
	f.Schedules = kept
	return SaveJSON(s.path, f)
}

// Replace overwrites the full schedule list (used after firing one-shots).
func (s *ReachScheduleStore) Replace(schedules []ReachSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SaveJSON(s.path, reachScheduleFile{Schedules: schedules})
}

// NotificationEntry is an in-process scheduler entry (daily or once).
type NotificationEntry struct {
	ID           string `json:"id"`
	ScheduleType string `json:"schedule_type"` // "daily" or "once"
	Message      string `json:"message"`
	Target       string `json:"target"` // chat id or "all"
	Enabled      bool   `json:"enabled"`
	Time         string `json:"time,omitempty"`    // "HH:MM" for daily
	OnceAt       string `json:"once_at,omitempty"` // RFC3339 for once
	Timezone     string `json:"timezone,omitempty"`
	LastRun      string `json:"last_run,omitempty"`
	NextRun      string `json:"next_run,omitempty"`
}

type notificationFile struct {
	Notifications []NotificationEntry `json:"notifications"`
}

// NotificationStore persists the scheduled notification entries.
type NotificationStore struct {
	path string
	mu   sync.Mutex
}

// NewNotificationStore creates a store over path.
func NewNotificationStore(path string) *NotificationStore {
	return &NotificationStore{path: path}
}

// List returns all notification entries.
func (s *NotificationStore) List() ([]NotificationEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var f notificationFile
	if err := LoadJSON(s.path, &f); err != nil {
		return nil, err
	}
	return f.Notifications, nil
}

// Add validates and appends an entry.
func (s *NotificationStore) Add(n NotificationEntry) (NotificationEntry, error) {
	switch n.ScheduleType {
	case "daily":
		if n.Time == "" {
			return NotificationEntry{}, fmt.Errorf("daily notification needs time HH:MM")
		}
	case "once":
		if n.OnceAt == "" {
			return NotificationEntry{}, fmt.Errorf("once notification needs once_at")
		}
		if _, err := time.Parse(time.RFC3339, n.OnceAt); err != nil {
			return NotificationEntry{}, fmt.Errorf("bad once_at: %w", err)
		}
	default:
		return NotificationEntry{}, fmt.Errorf("schedule_type must be daily or once")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Target == "" {
		n.Target = "all"
	}
	n.Enabled = true

	s.mu.Lock()
	defer s.mu.Unlock()
	var f notificationFile
	if err := LoadJSON(s.path, &f); err != nil {
		return NotificationEntry{}, err
	}
	f.Notifications = append(f.Notifications, n)
	if err := SaveJSON(s.path, f); err != nil {
		return NotificationEntry{}, err
	}
	return n, nil
}

// Remove deletes an entry by id.
func (s *NotificationStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var f notificationFile
	if err := LoadJSON(s.path, &f); err != nil {
		return err
	}
	kept := f.Notifications[:0]
	found := false
	for _, n := range f.Notifications {
		if n.ID == id {
			found = true
			continue
		}
		kept = append(kept, n)
	}
	if !found {
		return fmt.Errorf("notification %s not found", id)
	}
	f.Notifications = kept
	return SaveJSON(s.path, f)
}

// Replace overwrites the full notification list.
func (s *NotificationStore) Replace(entries []NotificationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SaveJSON(s.path, notificationFile{Notifications: entries})
}
