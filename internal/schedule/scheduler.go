package schedule

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nextlevelbuilder/openclaw/internal/store"
)

const defaultTick = 90 * time.Second

// Scheduler wakes periodically, fires due reach schedules and notification
// entries, and advances or removes them. The reach file is additionally
// watched so external edits take effect before the next tick.
type Scheduler struct {
	Reach         *store.ReachScheduleStore
	Notifications *store.NotificationStore
	Tick          time.Duration

	// Broadcast sends to every paired chat; SendTo targets one chat.
	Broadcast func(message string) error
	SendTo    func(chatID int64, message string) error

	// firedAt guards against double-firing within the same minute when a
	// file-watch wakeup lands between ticks.
	firedAt map[string]string
}

// Run loops until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	tick := s.Tick
	if tick <= 0 {
		tick = defaultTick
	}

	wake := make(chan struct{}, 1)
	if s.Reach != nil {
		if watcher, err := fsnotify.NewWatcher(); err == nil {
			defer watcher.Close()
			// Watch the directory: atomic renames replace the file inode.
			if err := watcher.Add(filepath.Dir(s.Reach.Path())); err != nil {
				slog.Warn("reach file watch failed", "error", err)
			} else {
				go func() {
					base := filepath.Base(s.Reach.Path())
					for {
						select {
						case ev, ok := <-watcher.Events:
							if !ok {
								return
							}
							if filepath.Base(ev.Name) != base {
								continue
							}
							select {
							case wake <- struct{}{}:
							default:
							}
						case err, ok := <-watcher.Errors:
							if !ok {
								return
							}
							slog.Warn("reach file watcher error", "error", err)
						case <-ctx.Done():
							return
						}
					}
				}()
			}
		} else {
			slog.Warn("fsnotify unavailable", "error", err)
		}
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	slog.Info("scheduler started", "tick", tick)
	s.FireDue(time.Now())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.FireDue(time.Now())
		case <-wake:
			s.FireDue(time.Now())
		}
	}
}

// FireDue evaluates all entries against now and dispatches the due ones.
func (s *Scheduler) FireDue(now time.Time) {
	if s.firedAt == nil {
		s.firedAt = map[string]string{}
	}
	s.fireReach(now)
	s.fireNotifications(now)
}

func (s *Scheduler) fireReach(now time.Time) {
	if s.Reach == nil || s.Broadcast == nil {
		return
	}
	schedules, err := s.Reach.List()
	if err != nil {
		slog.Error("reach schedule load failed", "error", err)
		return
	}

	minute := now.UTC().Format("2006-01-02T15:04")
	var firedOneShots []string
	for _, sched := range schedules {
		if !ReachDue(sched, now) || sched.Message == "" {
			continue
		}
		if s.firedAt[sched.ID] == minute {
			continue
		}
		if sched.Channel != "" && sched.Channel != "telegram" {
			slog.Warn("reach channel not supported", "channel", sched.Channel, "id", sched.ID)
			continue
		}
		if err := s.Broadcast(sched.Message); err != nil {
			slog.Error("reach delivery failed", "id", sched.ID, "error", err)
			continue
		}
		s.firedAt[sched.ID] = minute
		slog.Info("reach fired", "id", sched.ID)
		if sched.OnceAt != "" {
			firedOneShots = append(firedOneShots, sched.ID)
		}
	}

	// One-shots fire once: remove after successful delivery.
	for _, id := range firedOneShots {
		if err := s.Reach.Remove(id); err != nil {
			slog.Error("one-shot removal failed", "id", id, "error", err)
		}
	}
}

func (s *Scheduler) fireNotifications(now time.Time) {
	if s.Notifications == nil {
		return
	}
	entries, err := s.Notifications.List()
	if err != nil {
		slog.Error("notification load failed", "error", err)
		return
	}

	nowUTC := now.UTC()
	changed := false
	kept := entries[:0]
	for _, n := range entries {
		// Daily entries materialize next_run on first observation.
		if n.ScheduleType == "daily" && n.Enabled && n.NextRun == "" {
			if next, ok := NextDaily(n.Time, loadLocation(n.Timezone), nowUTC.Add(-time.Minute)); ok {
				n.NextRun = next.Format(time.RFC3339)
				changed = true
			}
		}

		if !notificationDue(n, nowUTC) {
			kept = append(kept, n)
			continue
		}

		if err := s.deliver(n); err != nil {
			slog.Error("notification delivery failed", "id", n.ID, "error", err)
			kept = append(kept, n)
			continue
		}
		slog.Info("notification fired", "id", n.ID, "type", n.ScheduleType)
		changed = true

		if n.ScheduleType == "once" {
			continue // fired once, drop it
		}
		n.LastRun = nowUTC.Format(time.RFC3339)
		if next, ok := NextDaily(n.Time, loadLocation(n.Timezone), nowUTC); ok {
			n.NextRun = next.Format(time.RFC3339)
		}
		kept = append(kept, n)
	}

	if changed {
		if err := s.Notifications.Replace(kept); err != nil {
			slog.Error("notification state save failed", "error", err)
		}
	}
}

func (s *Scheduler) deliver(n store.NotificationEntry) error {
	if n.Target == "" || n.Target == "all" {
		if s.Broadcast == nil {
			return nil
		}
		return s.Broadcast(n.Message)
	}
	chatID, err := strconv.ParseInt(n.Target, 10, 64)
	if err != nil || s.SendTo == nil {
		if s.Broadcast != nil {
			return s.Broadcast(n.Message)
		}
		return nil
	}
	return s.SendTo(chatID, n.Message)
}
