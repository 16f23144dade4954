package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/openclaw/internal/history"
)

// TestWriteAtomic_NoPartialFiles verifies the rename-based write leaves no
// temp files behind and the destination holds exactly the written bytes.
func TestWriteAtomic_NoPartialFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	if err := WriteAtomic(path, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("content = %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the destination file, found %d entries", len(entries))
	}
}

// TestWithLock_HeldLockTimesOut verifies a stale lock file makes WithLock
// return ErrLockTimeout instead of blocking forever.
func TestWithLock_HeldLockTimesOut(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the full lock timeout")
	}
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path+".lock", []byte("12345"), 0o600); err != nil {
		t.Fatal(err)
	}
	err := WithLock(path, func() error { return nil })
	if err != ErrLockTimeout {
		t.Errorf("err = %v, want ErrLockTimeout", err)
	}
}

// TestHistoryStore_RoundTrip verifies save(load(store)) == store.
func TestHistoryStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewHistoryStore(filepath.Join(dir, "history.json"), filepath.Join(dir, "meta.json"))

	in := []history.Entry{
		{Role: history.RoleUser, Content: "hello"},
		{Role: history.RoleAgent, Content: "world"},
	}
	if err := s.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 || out[0].Content != "hello" || out[1].Role != history.RoleAgent {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

// TestHistoryStore_CorruptLoadsEmpty verifies a corrupt history file is
// treated as empty, never as an error.
func TestHistoryStore_CorruptLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewHistoryStore(path, filepath.Join(dir, "meta.json"))
	out, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty history, got %+v", out)
	}
}

// TestHistoryStore_MetaSidecar verifies sidecar round trip and zero defaults.
func TestHistoryStore_MetaSidecar(t *testing.T) {
	dir := t.TempDir()
	s := NewHistoryStore(filepath.Join(dir, "history.json"), filepath.Join(dir, "meta.json"))

	m, err := s.LoadMeta()
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if m.CompactionCount != 0 {
		t.Errorf("fresh meta = %+v", m)
	}

	m.CompactionCount = 3
	m.MemoryFlushCompactionCount = 4
	if err := s.SaveMeta(m); err != nil {
		t.Fatalf("SaveMeta: %v", err)
	}
	got, _ := s.LoadMeta()
	if got != m {
		t.Errorf("meta round trip: got %+v, want %+v", got, m)
	}
}

// TestPairing_ApproveCaseInsensitive walks the pairing scenario: request a
// code for chat 42, approve it lowercased, end with {42} paired and no
// pendings.
func TestPairing_ApproveCaseInsensitive(t *testing.T) {
	s := NewPairingStore(filepath.Join(t.TempDir(), "pairings.json"))

	code, err := s.RequestPairing(42)
	if err != nil {
		t.Fatalf("RequestPairing: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("code = %q, want 6 chars", code)
	}

	// Same chat asks again: keeps the same code.
	again, _ := s.RequestPairing(42)
	if again != code {
		t.Errorf("second request generated a new code: %q vs %q", again, code)
	}

	if _, err := s.Approve(code); err != nil {
		t.Fatalf("Approve exact: %v", err)
	}

	// Re-request and approve with swapped case.
	code2, _ := s.RequestPairing(77)
	lower := ""
	for _, r := range code2 {
		if r >= 'A' && r <= 'Z' {
			lower += string(r + 32)
		} else {
			lower += string(r)
		}
	}
	if _, err := s.Approve(lower); err != nil {
		t.Fatalf("Approve lowercase: %v", err)
	}

	st, _ := s.State()
	if len(st.PendingPairings) != 0 {
		t.Errorf("pendings not cleared: %+v", st.PendingPairings)
	}
	if !s.IsPaired(42) || !s.IsPaired(77) {
		t.Errorf("paired set = %+v", st.PairedUsers)
	}
}

// TestPairing_ApproveUnknownCode verifies an unknown code is an error.
func TestPairing_ApproveUnknownCode(t *testing.T) {
	s := NewPairingStore(filepath.Join(t.TempDir(), "pairings.json"))
	if _, err := s.Approve("ZZZZZZ"); err == nil {
		t.Error("expected error for unknown code")
	}
}

// TestThreadAgentStore_MonotonicCodes verifies allocating k agents yields
// codes c, c+1, ..., c+k-1 starting at 1000.
func TestThreadAgentStore_MonotonicCodes(t *testing.T) {
	s := NewThreadAgentStore(filepath.Join(t.TempDir(), "threads.json"))

	for i := 0; i < 5; i++ {
		a, err := s.Allocate("task", 1, 1)
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		if a.AgentCode != 1000+i {
			t.Errorf("code %d = %d, want %d", i, a.AgentCode, 1000+i)
		}
		if a.Status != ThreadRunning {
			t.Errorf("status = %q", a.Status)
		}
	}
}

// TestThreadAgentStore_SetResponse verifies the last-response update and
// completed status.
func TestThreadAgentStore_SetResponse(t *testing.T) {
	s := NewThreadAgentStore(filepath.Join(t.TempDir(), "threads.json"))
	a, _ := s.Allocate("count ducks", 5, 5)

	if err := s.SetResponse(a.AgentCode, "42 ducks"); err != nil {
		t.Fatalf("SetResponse: %v", err)
	}
	got, err := s.Get(a.AgentCode)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LastResponse != "42 ducks" || got.Status != ThreadCompleted || got.LastResponseAt == "" {
		t.Errorf("agent after response = %+v", got)
	}

	if err := s.SetResponse(9999, "x"); err == nil {
		t.Error("expected error for unknown code")
	}
}

// TestReachScheduleStore_Validation verifies the exactly-one-trigger rule and
// defaulting.
func TestReachScheduleStore_Validation(t *testing.T) {
	s := NewReachScheduleStore(filepath.Join(t.TempDir(), "reach.json"))

	if _, err := s.Add(ReachSchedule{Message: "hi"}); err == nil {
		t.Error("expected error with no trigger")
	}
	if _, err := s.Add(ReachSchedule{Time: "09:00", Cron: "* * * * *", Message: "hi"}); err == nil {
		t.Error("expected error with two triggers")
	}
	if _, err := s.Add(ReachSchedule{Time: "09:00"}); err == nil {
		t.Error("expected error with no message")
	}

	sc, err := s.Add(ReachSchedule{Time: "09:00", Message: "stand up"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sc.ID == "" || sc.Channel != "telegram" || !sc.Enabled {
		t.Errorf("defaults not applied: %+v", sc)
	}

	list, _ := s.List()
	if len(list) != 1 {
		t.Errorf("list = %+v", list)
	}
	if err := s.Remove(sc.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(sc.ID); err == nil {
		t.Error("expected error removing twice")
	}
}

// TestDetachedReportStore_Recent verifies newest-first listing and the limit.
func TestDetachedReportStore_Recent(t *testing.T) {
	s := NewDetachedReportStore(filepath.Join(t.TempDir(), "reports"))

	for i, ts := range []string{"2026-01-01T00:00:00Z", "2026-01-03T00:00:00Z", "2026-01-02T00:00:00Z"} {
		r := DetachedReport{RunID: string(rune('a' + i)), Task: "t", Success: true, CompletedAt: ts}
		if err := s.Save(r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	got, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].RunID != "b" || got[1].RunID != "c" {
		t.Errorf("Recent = %+v", got)
	}
}
