// Package user persists employee accounts.
package user

import (
	"context"
	"sort"
	"strings"
	"sync"

	"till/internal/auth/models"
	id "till/pkg/domain"
	"till/pkg/platform/sentinel"
)

// InMemory keeps users in a mutex-guarded map with a case-insensitive
// username index.
type InMemory struct {
	mu      sync.RWMutex
	users   map[id.UserID]*models.User
	byLogin map[string]id.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[id.UserID]*models.User),
		byLogin: make(map[string]id.UserID),
	}
}

// Create stores the user if the username is free. Username uniqueness is
// case-insensitive.
func (m *InMemory) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	login := strings.ToLower(user.Username)
	if _, taken := m.byLogin[login]; taken {
		return sentinel.ErrAlreadyExists
	}
	if _, exists := m.users[user.ID]; exists {
		return sentinel.ErrAlreadyExists
	}
	m.users[user.ID] = user.Clone()
	m.byLogin[login] = user.ID
	return nil
}

func (m *InMemory) Update(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	newLogin := strings.ToLower(user.Username)
	oldLogin := strings.ToLower(existing.Username)
	if newLogin != oldLogin {
		if _, taken := m.byLogin[newLogin]; taken {
			return sentinel.ErrAlreadyExists
		}
		delete(m.byLogin, oldLogin)
		m.byLogin[newLogin] = user.ID
	}
	m.users[user.ID] = user.Clone()
	return nil
}

func (m *InMemory) Delete(_ context.Context, userID id.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(m.byLogin, strings.ToLower(user.Username))
	delete(m.users, userID)
	return nil
}

func (m *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return user.Clone(), nil
}

func (m *InMemory) FindByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	userID, ok := m.byLogin[strings.ToLower(username)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return m.users[userID].Clone(), nil
}

// List returns all users sorted by username.
func (m *InMemory) List(_ context.Context) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.User, 0, len(m.users))
	for _, user := range m.users {
		result = append(result, user.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Username) < strings.ToLower(result[j].Username)
	})
	return result, nil
}
