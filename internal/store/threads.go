package store

import (
	"fmt"
	"sync"
	"time"
)

// Thread agent status values.
const (
	ThreadRunning   = "running"
	ThreadCompleted = "completed"
)

// ThreadAgent is one "new"-prefix concurrent sub-task, addressable by its
// stable numeric code.
type ThreadAgent struct {
	AgentCode      int    `json:"agent_code"`
	Task           string `json:"task"`
	ChatID         int64  `json:"chat_id"`
	UserID         int64  `json:"user_id"`
	StartedAt      string `json:"started_at"`
	LastResponse   string `json:"last_response,omitempty"`
	LastResponseAt string `json:"last_response_at,omitempty"`
	Status         string `json:"status"`
}

type threadAgentFile struct {
	NextCode int           `json:"next_code"`
	Agents   []ThreadAgent `json:"agents"`
}

// ThreadAgentStore allocates monotonically increasing agent codes (from 1000)
// and tracks each agent's last response. Codes are never reused or renumbered.
type ThreadAgentStore struct {
	path string
	mu   sync.Mutex
}

// NewThreadAgentStore creates a store over path.
func NewThreadAgentStore(path string) *ThreadAgentStore {
	return &ThreadAgentStore{path: path}
}

// Allocate creates a new running agent record and returns it.
func (s *ThreadAgentStore) Allocate(task string, chatID, userID int64) (ThreadAgent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var f threadAgentFile
	if err := LoadJSON(s.path, &f); err != nil {
		return ThreadAgent{}, err
	}
	if f.NextCode < 1000 {
		f.NextCode = 1000
	}
	agent := ThreadAgent{
		AgentCode: f.NextCode,
		Task:      task,
		ChatID:    chatID,
		UserID:    userID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Status:    ThreadRunning,
	}
	f.NextCode++
	f.Agents = append(f.Agents, agent)
	if err := SaveJSON(s.path, f); err != nil {
		return ThreadAgent{}, err
	}
	return agent, nil
}

// Get returns the agent with the given code.
func (s *ThreadAgentStore) Get(code int) (ThreadAgent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var f threadAgentFile
	if err := LoadJSON(s.path, &f); err != nil {
		return ThreadAgent{}, err
	}
	for _, a := range f.Agents {
		if a.AgentCode == code {
			return a, nil
		}
	}
	return ThreadAgent{}, fmt.Errorf("no agent with code %d", code)
}

// SetResponse records an agent's latest response and marks it completed.
func (s *ThreadAgentStore) SetResponse(code int, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var f threadAgentFile
	if err := LoadJSON(s.path, &f); err != nil {
		return err
	}
	for i := range f.Agents {
		if f.Agents[i].AgentCode != code {
			continue
		}
		f.Agents[i].LastResponse = response
		f.Agents[i].LastResponseAt = time.Now().UTC().Format(time.RFC3339)
		f.Agents[i].Status = ThreadCompleted
		return SaveJSON(s.path, f)
	}
	return fmt.Errorf("no agent with code %d", code)
}

// MarkRunning flips an agent back to running (used by /re follow-ups).
func (s *ThreadAgentStore) MarkRunning(code int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var f threadAgentFile
	if err := LoadJSON(s.path, &f); err != nil {
		return err
	}
	for i := range f.Agents {
		if f.Agents[i].AgentCode == code {
			f.Agents[i].Status = ThreadRunning
			return SaveJSON(s.path, f)
		}
	}
	return fmt.Errorf("no agent with code %d", code)
}

// List returns all thread agents.
func (s *ThreadAgentStore) List() ([]ThreadAgent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var f threadAgentFile
	if err := LoadJSON(s.path, &f); err != nil {
		return nil, err
	}
	return f.Agents, nil
}
