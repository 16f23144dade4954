package store

import (
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// PairingState is the durable shape of the Telegram pairing store.
type PairingState struct {
	PairedUsers     []int64           `json:"paired_users"`
	PendingPairings map[string]string `json:"pending_pairings"` // chat id (string) -> code
}

// PairingStore persists authorized chat ids and pending pairing codes.
type PairingStore struct {
	path string
	mu   sync.Mutex
}

// NewPairingStore creates a pairing store over path.
func NewPairingStore(path string) *PairingStore {
	return &PairingStore{path: path}
}

func (s *PairingStore) load() (PairingState, error) {
	var st PairingState
	err := LoadJSON(s.path, &st)
	if st.PendingPairings == nil {
		st.PendingPairings = map[string]string{}
	}
	return st, err
}

// State returns a snapshot of the pairing store.
func (s *PairingStore) State() (PairingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// IsPaired reports whether the chat id has been approved.
func (s *PairingStore) IsPaired(chatID int64) bool {
	st, err := s.State()
	if err != nil {
		return false
	}
	for _, id := range st.PairedUsers {
		if id == chatID {
			return true
		}
	}
	return false
}

// PairedUsers returns the sorted list of approved chat ids.
func (s *PairingStore) PairedUsers() []int64 {
	st, _ := s.State()
	sort.Slice(st.PairedUsers, func(i, j int) bool { return st.PairedUsers[i] < st.PairedUsers[j] })
	return st.PairedUsers
}

// RequestPairing stores a fresh 6-character code for the chat and returns it.
// A chat that already has a pending code keeps it.
func (s *PairingStore) RequestPairing(chatID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%d", chatID)
	if code, ok := st.PendingPairings[key]; ok {
		return code, nil
	}
	code, err := newPairingCode()
	if err != nil {
		return "", err
	}
	st.PendingPairings[key] = code
	if err := SaveJSON(s.path, st); err != nil {
		return "", err
	}
	return code, nil
}

// Approve moves the chat whose pending code matches (case-insensitively) into
// paired_users. Returns the approved chat id.
func (s *PairingStore) Approve(code string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return 0, err
	}
	want := strings.ToUpper(strings.TrimSpace(code))
	for key, pending := range st.PendingPairings {
		if strings.ToUpper(pending) != want {
			continue
		}
		var chatID int64
		if _, err := fmt.Sscanf(key, "%d", &chatID); err != nil {
			return 0, fmt.Errorf("pairing: bad chat id %q: %w", key, err)
		}
		delete(st.PendingPairings, key)
		already := false
		for _, id := range st.PairedUsers {
			if id == chatID {
				already = true
				break
			}
		}
		if !already {
			st.PairedUsers = append(st.PairedUsers, chatID)
		}
		if err := SaveJSON(s.path, st); err != nil {
			return 0, err
		}
		return chatID, nil
	}
	return 0, fmt.Errorf("pairing: no pending pairing with code %s", want)
}

// Pending returns a copy of the pending pairing map.
func (s *PairingStore) Pending() map[string]string {
	st, _ := s.State()
	out := make(map[string]string, len(st.PendingPairings))
	for k, v := range st.PendingPairings {
		out[k] = v
	}
	return out
}

const pairingAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newPairingCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("pairing: generate code: %w", err)
	}
	for i, b := range buf {
		buf[i] = pairingAlphabet[int(b)%len(pairingAlphabet)]
	}
	return string(buf), nil
}
