package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"mediaid-gateway/internal/models"
)

// Snapshot is a point-in-time copy of a session. It shares no memory with the store.
type Snapshot struct {
	ID              string
	History         []models.Turn
	LastSuggestions []models.DrugRecord
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type session struct {
	mu              sync.Mutex
	id              string
	history         []models.Turn
	lastSuggestions []models.DrugRecord
	createdAt       time.Time
	updatedAt       time.Time
}

func (s *session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]models.Turn, len(s.history))
	copy(history, s.history)

	return Snapshot{
		ID:              s.id,
		History:         history,
		LastSuggestions: cloneDrugs(s.lastSuggestions),
		CreatedAt:       s.createdAt,
		UpdatedAt:       s.updatedAt,
	}
}

// Store keeps sessions in memory for the lifetime of the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	now      func() time.Time
}

// NewStore constructs an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// GetOrCreate returns the session for id, creating it on first reference.
func (s *Store) GetOrCreate(id string) (Snapshot, error) {
	sess, err := s.getOrCreate(id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.snapshot(), nil
}

// Get returns the session for id without creating it.
func (s *Store) Get(id string) (Snapshot, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return sess.snapshot(), true
}

// AppendTurn adds one turn to the end of the session history.
func (s *Store) AppendTurn(id string, role models.Role, text string) error {
	if role != models.RoleUser && role != models.RoleAssistant {
		return fmt.Errorf("%w: unknown role %q", models.ErrInvalidInput, role)
	}

	sess, err := s.getOrCreate(id)
	if err != nil {
		return err
	}

	now := s.now()
	sess.mu.Lock()
	sess.history = append(sess.history, models.Turn{Role: role, Text: text, At: now})
	sess.updatedAt = now
	sess.mu.Unlock()
	return nil
}

// SetSuggestions replaces the session's last drug suggestions.
func (s *Store) SetSuggestions(id string, suggestions []models.DrugRecord) error {
	sess, err := s.getOrCreate(id)
	if err != nil {
		return err
	}

	copied := cloneDrugs(suggestions)
	if copied == nil {
		copied = []models.DrugRecord{}
	}

	sess.mu.Lock()
	sess.lastSuggestions = copied
	sess.updatedAt = s.now()
	sess.mu.Unlock()
	return nil
}

// Len reports how many sessions exist.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) getOrCreate(id string) (*session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: session id must not be empty", models.ErrInvalidInput)
	}

	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}

	now := s.now()
	sess = &session{
		id:              id,
		history:         []models.Turn{},
		lastSuggestions: []models.DrugRecord{},
		createdAt:       now,
		updatedAt:       now,
	}
	s.sessions[id] = sess
	return sess, nil
}

func cloneDrugs(in []models.DrugRecord) []models.DrugRecord {
	if in == nil {
		return nil
	}
	out := make([]models.DrugRecord, len(in))
	for i, d := range in {
		out[i] = d.Clone()
	}
	return out
}
