package schedule

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/nextlevelbuilder/openclaw/internal/store"
)

// parseHHMM parses "HH:MM" into hour and minute.
func parseHHMM(s string) (int, int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// loadLocation resolves a timezone name, falling back to UTC on anything
// unknown.
func loadLocation(name string) *time.Location {
	if strings.TrimSpace(name) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("unknown timezone, using UTC", "timezone", name)
		return time.UTC
	}
	return loc
}

// parseOnceAt accepts RFC3339 with or without the Z suffix; naive stamps are
// treated as UTC.
func parseOnceAt(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02T15:04", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// ReachDue reports whether the schedule is due at now. One-shots compare in
// UTC; daily and cron entries evaluate in the schedule's timezone.
func ReachDue(s store.ReachSchedule, now time.Time) bool {
	if !s.Enabled {
		return false
	}
	nowUTC := now.UTC()

	switch {
	case s.OnceAt != "":
		at, ok := parseOnceAt(s.OnceAt)
		return ok && !nowUTC.Before(at)

	case s.Time != "":
		h, m, ok := parseHHMM(s.Time)
		if !ok {
			return false
		}
		local := nowUTC.In(loadLocation(s.Timezone))
		return local.Hour() == h && local.Minute() == m

	case s.Cron != "":
		local := nowUTC.In(loadLocation(s.Timezone)).Truncate(time.Minute)
		due, err := gronx.New().IsDue(s.Cron, local)
		if err != nil {
			slog.Warn("invalid cron expression", "cron", s.Cron, "error", err)
			return false
		}
		return due
	}
	return false
}

// NextDaily computes the next occurrence of "HH:MM" in tz strictly after
// the given instant, returned in UTC.
func NextDaily(timeStr string, tz *time.Location, after time.Time) (time.Time, bool) {
	h, m, ok := parseHHMM(timeStr)
	if !ok {
		return time.Time{}, false
	}
	local := after.In(tz)
	next := time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, tz)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.UTC(), true
}

// notificationDue reports whether a notification entry fires at now. Daily
// entries compare against the materialized next_run; once entries against
// once_at.
func notificationDue(n store.NotificationEntry, now time.Time) bool {
	if !n.Enabled {
		return false
	}
	nowUTC := now.UTC()
	switch n.ScheduleType {
	case "once":
		at, ok := parseOnceAt(n.OnceAt)
		return ok && !nowUTC.Before(at)
	case "daily":
		at, ok := parseOnceAt(n.NextRun)
		return ok && !nowUTC.Before(at)
	}
	return false
}
