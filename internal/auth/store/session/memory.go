// Package session persists login sessions. A session disappearing from the
// store (logout, expiry) is what invalidates a still-unexpired JWT.
package session

import (
	"context"
	"sync"

	"till/internal/auth/models"
	id "till/pkg/domain"
	"till/pkg/platform/sentinel"
	"till/pkg/requestcontext"
)

// InMemory keeps sessions in a mutex-guarded map. Expiry is enforced on
// read: a session past its ExpiresAt reports inactive without a sweeper.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[id.SessionID]*models.Session)}
}

func (m *InMemory) Create(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return sentinel.ErrAlreadyExists
	}
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *InMemory) Delete(_ context.Context, sessionID id.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}

// Active reports whether the session exists and has not expired.
func (m *InMemory) Active(ctx context.Context, sessionID id.SessionID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return false, nil
	}
	return !session.Expired(requestcontext.Now(ctx)), nil
}

// DeleteAllForUser revokes every session a user holds. Used when an account
// is deactivated or deleted.
func (m *InMemory) DeleteAllForUser(_ context.Context, userID id.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for sessionID, session := range m.sessions {
		if session.UserID == userID {
			delete(m.sessions, sessionID)
		}
	}
	return nil
}
