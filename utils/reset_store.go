package utils

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const resetPrefix = "forget-password:"

// ResetTokenTTL bounds how long a password-reset link stays valid.
const ResetTokenTTL = 3 * 24 * time.Hour

// ResetTokenStore keeps single-use password-reset tokens in Redis, mapped to
// the user id they were issued for.
type ResetTokenStore struct {
	rdb *redis.Client
}

// NewResetTokenStore creates a store bound to the given Redis client.
func NewResetTokenStore(rdb *redis.Client) *ResetTokenStore {
	return &ResetTokenStore{rdb: rdb}
}

// Save stores a token for a user with the reset TTL.
func (s *ResetTokenStore) Save(ctx context.Context, token string, userID uint) error {
	return s.rdb.Set(ctx, resetPrefix+token, strconv.FormatUint(uint64(userID), 10), ResetTokenTTL).Err()
}

// Get resolves a token to the user id it was issued for. The second return is
// false when the token is absent or expired.
func (s *ResetTokenStore) Get(ctx context.Context, token string) (uint, bool, error) {
	val, err := s.rdb.Get(ctx, resetPrefix+token).Result()
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

// Delete consumes a token so it cannot be used twice.
func (s *ResetTokenStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, resetPrefix+token).Err()
}
