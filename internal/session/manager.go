package session

import (
	"context"
	"fmt"
	"sync"
)

// Manager owns the live sessions of this service instance, keyed by
// (student, exam). Starting a session for a pair that already has a
// live one returns the existing session instead of racing two timers
// against the same draft.
type Manager struct {
	deps Dependencies

	mu       sync.Mutex
	sessions map[string]*Session // key: studentID/examID
	byID     map[string]*Session
}

func NewManager(deps Dependencies) *Manager {
	if deps.Probe == nil {
		deps.Probe = AlwaysOnline
	}
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
		byID:     make(map[string]*Session),
	}
}

func sessionKey(studentID string, examID uint) string {
	return fmt.Sprintf("%s/%d", studentID, examID)
}

// Start creates and begins a session, or returns the already-live one
// for the same student and exam. Begin runs outside the manager lock;
// a failed Begin leaves no registration behind.
func (m *Manager) Start(ctx context.Context, studentID string, examID uint) (*Session, error) {
	key := sessionKey(studentID, examID)

	m.mu.Lock()
	if existing, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	s := newSession(examID, studentID, m.deps, m.drop)
	m.sessions[key] = s
	m.byID[s.id] = s
	m.mu.Unlock()

	if err := s.Begin(ctx); err != nil {
		s.Shutdown()
		m.drop(s)
		return nil, err
	}
	return s, nil
}

// Get returns a live session by ID, enforcing that the caller owns it.
func (m *Manager) Get(sessionID, studentID string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.byID[sessionID]
	m.mu.Unlock()

	if !ok || s.StudentID() != studentID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// drop removes a session from the registry. Registered as the session's
// completion callback and also used on failed starts.
func (m *Manager) drop(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(s.studentID, s.examID)
	if m.sessions[key] == s {
		delete(m.sessions, key)
	}
	delete(m.byID, s.id)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

// Shutdown stops every live session's background activity. Drafts and
// deadlines stay persisted so every session remains resumable.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.byID))
	for _, s := range m.byID {
		live = append(live, s)
	}
	m.mu.Unlock()

	for _, s := range live {
		s.Shutdown()
	}
}
