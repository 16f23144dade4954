package schedule

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/openclaw/internal/store"
)

func newTestScheduler(t *testing.T) (*Scheduler, *[]string) {
	t.Helper()
	dir := t.TempDir()
	var sent []string
	s := &Scheduler{
		Reach:         store.NewReachScheduleStore(filepath.Join(dir, "reach-schedules.json")),
		Notifications: store.NewNotificationStore(filepath.Join(dir, "scheduled-notifications.json")),
		Broadcast: func(msg string) error {
			sent = append(sent, msg)
			return nil
		},
	}
	return s, &sent
}

// TestFireDue_OneShotFiresOnce verifies a past once_at schedule delivers
// exactly once and is removed.
func TestFireDue_OneShotFiresOnce(t *testing.T) {
	s, sent := newTestScheduler(t)
	now := time.Now().UTC()

	_, err := s.Reach.Add(store.ReachSchedule{
		OnceAt:  now.Add(-time.Second).Format(time.RFC3339),
		Message: "ping",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	s.FireDue(now)
	if len(*sent) != 1 || (*sent)[0] != "ping" {
		t.Fatalf("sent = %v", *sent)
	}

	remaining, err := s.Reach.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("one-shot not removed: %+v", remaining)
	}

	s.FireDue(now)
	if len(*sent) != 1 {
		t.Errorf("fired again: %v", *sent)
	}
}

// TestFireDue_DailyTimeMatch verifies HH:MM matching in the schedule's
// timezone and the same-minute guard.
func TestFireDue_DailyTimeMatch(t *testing.T) {
	s, sent := newTestScheduler(t)

	// 14:30 UTC is 16:30 in Europe/Berlin during DST.
	now := time.Date(2026, 7, 10, 14, 30, 12, 0, time.UTC)
	if _, err := s.Reach.Add(store.ReachSchedule{
		Time: "16:30", Timezone: "Europe/Berlin", Message: "standup",
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	s.FireDue(now)
	if len(*sent) != 1 {
		t.Fatalf("sent = %v", *sent)
	}

	// Same minute again: the guard holds even though the entry remains due.
	s.FireDue(now.Add(20 * time.Second))
	if len(*sent) != 1 {
		t.Errorf("double fire within the minute: %v", *sent)
	}

	// Wrong minute: not due.
	s.FireDue(now.Add(2 * time.Minute))
	if len(*sent) != 1 {
		t.Errorf("fired off-minute: %v", *sent)
	}
}

// TestFireDue_CronMinute verifies gronx evaluation at the matching minute.
func TestFireDue_CronMinute(t *testing.T) {
	s, sent := newTestScheduler(t)
	if _, err := s.Reach.Add(store.ReachSchedule{
		Cron: "*/15 * * * *", Message: "quarter-hour",
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	s.FireDue(time.Date(2026, 3, 1, 9, 7, 0, 0, time.UTC))
	if len(*sent) != 0 {
		t.Fatalf("fired off-schedule: %v", *sent)
	}

	s.FireDue(time.Date(2026, 3, 1, 9, 15, 42, 0, time.UTC))
	if len(*sent) != 1 {
		t.Errorf("sent = %v", *sent)
	}
}

// TestFireDue_DailyNotification verifies next_run materialization, firing,
// and advancement to the next day.
func TestFireDue_DailyNotification(t *testing.T) {
	s, sent := newTestScheduler(t)
	if _, err := s.Notifications.Add(store.NotificationEntry{
		ScheduleType: "daily", Time: "08:00", Message: "take meds",
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	// First observation before the slot: materializes next_run, no fire.
	before := time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)
	s.FireDue(before)
	if len(*sent) != 0 {
		t.Fatalf("fired early: %v", *sent)
	}
	entries, _ := s.Notifications.List()
	if len(entries) != 1 || entries[0].NextRun == "" {
		t.Fatalf("next_run not materialized: %+v", entries)
	}
	next, _ := time.Parse(time.RFC3339, entries[0].NextRun)
	if want := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("next_run = %v, want %v", next, want)
	}

	// At the slot: fires and advances to tomorrow.
	at := time.Date(2026, 5, 1, 8, 0, 30, 0, time.UTC)
	s.FireDue(at)
	if len(*sent) != 1 || (*sent)[0] != "take meds" {
		t.Fatalf("sent = %v", *sent)
	}
	entries, _ = s.Notifications.List()
	if entries[0].LastRun == "" {
		t.Error("last_run not set")
	}
	next, _ = time.Parse(time.RFC3339, entries[0].NextRun)
	if want := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("advanced next_run = %v, want %v", next, want)
	}
}

// TestFireDue_OnceNotificationRemoved verifies once entries drop after
// firing.
func TestFireDue_OnceNotificationRemoved(t *testing.T) {
	s, sent := newTestScheduler(t)
	now := time.Now().UTC()
	if _, err := s.Notifications.Add(store.NotificationEntry{
		ScheduleType: "once",
		OnceAt:       now.Add(-time.Minute).Format(time.RFC3339),
		Message:      "one time",
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	s.FireDue(now)
	if len(*sent) != 1 {
		t.Fatalf("sent = %v", *sent)
	}
	entries, _ := s.Notifications.List()
	if len(entries) != 0 {
		t.Errorf("once entry kept: %+v", entries)
	}
}

// TestNextDaily covers same-day and next-day rollover in a non-UTC zone.
func TestNextDaily(t *testing.T) {
	tz := loadLocation("Europe/Kyiv")

	after := time.Date(2026, 5, 1, 4, 0, 0, 0, time.UTC) // 07:00 Kyiv (DST)
	next, ok := NextDaily("09:30", tz, after)
	if !ok {
		t.Fatal("parse failed")
	}
	if want := time.Date(2026, 5, 1, 6, 30, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}

	after = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) // past 09:30 Kyiv
	next, _ = NextDaily("09:30", tz, after)
	if want := time.Date(2026, 5, 2, 6, 30, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("rolled next = %v, want %v", next, want)
	}

	if _, ok := NextDaily("25:99", tz, after); ok {
		t.Error("bad time accepted")
	}
}

// TestParseOnceAt covers the accepted stamp shapes.
func TestParseOnceAt(t *testing.T) {
	for _, s := range []string{
		"2026-08-24T10:00:00Z",
		"2026-08-24T10:00:00+02:00",
		"2026-08-24T10:00:00",
		"2026-08-24T10:00",
	} {
		if _, ok := parseOnceAt(s); !ok {
			t.Errorf("parseOnceAt(%q) failed", s)
		}
	}
	if _, ok := parseOnceAt("yesterday"); ok {
		t.Error("junk accepted")
	}
}
