package models

import (
	"time"

	id "till/pkg/domain"
)

// Session is one login. The JWT carries the session ID so logout can revoke
// a token before it expires; the session store is the liveness authority.
type Session struct {
	ID        id.SessionID `json:"id"`
	UserID    id.UserID    `json:"user_id"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
