// Package session keeps each user's working dataset between interactions.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"scan-fill/pkg/models"
	"scan-fill/pkg/services/document"
	"scan-fill/pkg/services/merge"
)

// ErrNotFound is returned for an unknown or expired session id.
var ErrNotFound = errors.New("session not found")

// Pending is a recognized scan whose candidates wait for an explicit merge.
type Pending struct {
	Scan       document.Scan `json:"scan"`
	Candidates []models.Row  `json:"candidates"`
	Dropped    int           `json:"dropped_lines"`
}

// Session is one user's workspace: the dataset loaded from their spreadsheet
// and the last scan staged against it. Methods are safe to call from
// concurrent requests; they are serialized per session.
type Session struct {
	ID         string
	SourceName string
	CreatedAt  time.Time

	mu         sync.Mutex
	dataset    *models.Dataset
	pending    *Pending
	lastAccess time.Time
}

func (s *Session) touch() {
	s.lastAccess = time.Now()
}

// Dataset returns a copy of the current dataset.
func (s *Session) Dataset() *models.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.dataset.Clone()
}

// Stage replaces the pending scan.
func (s *Session) Stage(p Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.pending = &p
}

// Pending returns the staged scan, if any.
func (s *Session) Pending() (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Pending{}, false
	}
	return *s.pending, true
}

// Apply merges the staged candidates into the dataset under policy, replaces
// the dataset with the result and clears the stage. It returns the applied
// scan, or false when nothing was staged.
func (s *Session) Apply(policy merge.Policy) (merge.Stats, Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.pending == nil {
		return merge.Stats{}, Pending{}, false
	}
	applied := *s.pending
	next, stats := merge.Merge(s.dataset, applied.Candidates, policy)
	s.dataset = next
	s.pending = nil
	return stats, applied, true
}

// Filter returns rows of the current dataset matching criteria.
func (s *Session) Filter(criteria map[string]string) []models.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.dataset.Filter(criteria)
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// Manager owns the live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create starts a session around a normalized copy of ds.
func (m *Manager) Create(sourceName string, ds *models.Dataset) *Session {
	now := time.Now()
	s := &Session{
		ID:         uuid.NewString(),
		SourceName: sourceName,
		CreatedAt:  now,
		dataset:    ds.Normalize(),
		lastAccess: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than ttl and returns how many were
// removed.
func (m *Manager) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
