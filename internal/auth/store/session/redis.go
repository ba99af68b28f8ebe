package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"till/internal/auth/models"
	id "till/pkg/domain"
	"till/pkg/platform/sentinel"
)

// Redis persists sessions with a TTL matching their expiry, so revocation by
// timeout needs no sweeper. A per-user set index supports revoking all of a
// user's sessions at once.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func sessionKey(sessionID id.SessionID) string {
	return "session:" + sessionID.String()
}

func userSessionsKey(userID id.UserID) string {
	return "user_sessions:" + userID.String()
}

func (r *Redis) Create(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session expires in the past")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), payload, ttl)
	pipe.SAdd(ctx, userSessionsKey(session.UserID), session.ID.String())
	pipe.Expire(ctx, userSessionsKey(session.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, sessionID id.SessionID) error {
	removed, err := r.client.Del(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if removed == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Active reports whether the session key still exists. Redis expiry handles
// the timeout side; explicit logout deletes the key.
func (r *Redis) Active(ctx context.Context, sessionID id.SessionID) (bool, error) {
	err := r.client.Get(ctx, sessionKey(sessionID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read session: %w", err)
	}
	return true, nil
}

func (r *Redis) DeleteAllForUser(ctx context.Context, userID id.UserID) error {
	ids, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, raw := range ids {
		sessionID, err := id.ParseSessionID(raw)
		if err != nil {
			continue
		}
		keys = append(keys, sessionKey(sessionID))
	}
	keys = append(keys, userSessionsKey(userID))
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}
