package utils

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "sess:"

// SessionTTL mirrors the browser cookie lifetime: sessions effectively last
// until logout.
const SessionTTL = 10 * 365 * 24 * time.Hour

// SessionStore persists server-side session records in Redis. The client only
// ever holds the opaque token; the user id lives here.
type SessionStore struct {
	rdb *redis.Client
}

// NewSessionStore creates a store bound to the given Redis client.
func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Issue creates a fresh session record for the user and returns its token.
func (s *SessionStore) Issue(ctx context.Context, userID uint) (string, error) {
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, sessionPrefix+token, strconv.FormatUint(uint64(userID), 10), SessionTTL).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Get resolves a token to a user id. The second return is false when the
// session does not exist or has expired.
func (s *SessionStore) Get(ctx context.Context, token string) (uint, bool, error) {
	val, err := s.rdb.Get(ctx, sessionPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return uint(id), true, nil
}

// Destroy removes the server-side session record.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, sessionPrefix+token).Err()
}
