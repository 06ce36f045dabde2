// Package session keeps per-user registration progress while a form is
// in flight. Sessions are ephemeral: created on start, destroyed on
// completion, cancellation, or restart.
package session

import "sync"

// Stage is the current step of the registration form.
type Stage int

const (
	StageIdle Stage = iota
	StageAwaitingName
	StageAwaitingDistrict
	StageAwaitingPhone
)

// String returns a stable label used in logs.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAwaitingName:
		return "awaiting_name"
	case StageAwaitingDistrict:
		return "awaiting_district"
	case StageAwaitingPhone:
		return "awaiting_phone"
	}
	return "unknown"
}

// Session holds one user's partial registration. Fields for stages not
// yet reached stay empty.
type Session struct {
	UserID   int64
	Stage    Stage
	Name     string
	District string
}

// Manager owns the user id to session mapping.
type Manager interface {
	// Create starts a fresh session, discarding any existing one.
	Create(userID int64) *Session
	// Get returns a copy of the user's session, if any.
	Get(userID int64) (Session, bool)
	// Update applies fn to the user's session under the lock.
	// It reports whether a session existed.
	Update(userID int64, fn func(*Session)) bool
	// Delete removes the session. It reports whether one existed.
	Delete(userID int64) bool
	// Stage returns the user's current stage, StageIdle when absent.
	Stage(userID int64) Stage
	// InProgress reports whether the user has a form in flight.
	InProgress(userID int64) bool
}

// MemoryManager is an in-process Manager guarded by an RWMutex.
// Sessions have no expiry; an abandoned form persists until the user
// cancels, restarts, or completes it.
type MemoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryManager returns an empty in-memory session manager.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{sessions: make(map[int64]*Session)}
}

func (m *MemoryManager) Create(userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Session{UserID: userID, Stage: StageAwaitingName}
	m.sessions[userID] = s
	return s
}

func (m *MemoryManager) Get(userID int64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

func (m *MemoryManager) Update(userID int64, fn func(*Session)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return false
	}
	fn(s)
	return true
}

func (m *MemoryManager) Delete(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[userID]; !ok {
		return false
	}
	delete(m.sessions, userID)
	return true
}

func (m *MemoryManager) Stage(userID int64) Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[userID]; ok {
		return s.Stage
	}
	return StageIdle
}

func (m *MemoryManager) InProgress(userID int64) bool {
	return m.Stage(userID) != StageIdle
}

// Count returns the number of live sessions, used by the status surface.
func (m *MemoryManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
