package utils

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store := NewSessionStore(newTestRedis(t))
	ctx := context.Background()

	token, err := store.Issue(ctx, 42)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("Issue returned empty token")
	}

	userID, ok, err := store.Get(ctx, token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || userID != 42 {
		t.Errorf("Get = (%d, %v), want (42, true)", userID, ok)
	}

	if err := store.Destroy(ctx, token); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, ok, err := store.Get(ctx, token); err != nil || ok {
		t.Errorf("session survived Destroy: ok=%v err=%v", ok, err)
	}
}

func TestSessionStoreTokensAreUnique(t *testing.T) {
	store := NewSessionStore(newTestRedis(t))
	ctx := context.Background()

	a, err := store.Issue(ctx, 1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	b, err := store.Issue(ctx, 1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if a == b {
		t.Error("two sessions for the same user share a token")
	}
}

func TestSessionStoreUnknownToken(t *testing.T) {
	store := NewSessionStore(newTestRedis(t))

	userID, ok, err := store.Get(context.Background(), "no-such-token")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok || userID != 0 {
		t.Errorf("Get = (%d, %v), want (0, false)", userID, ok)
	}
}

func TestResetTokenStoreRoundTrip(t *testing.T) {
	store := NewResetTokenStore(newTestRedis(t))
	ctx := context.Background()

	if err := store.Save(ctx, "tok", 7); err != nil {
		t.Fatalf("Save: %v", err)
	}
	userID, ok, err := store.Get(ctx, "tok")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || userID != 7 {
		t.Errorf("Get = (%d, %v), want (7, true)", userID, ok)
	}

	if err := store.Delete(ctx, "tok"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := store.Get(ctx, "tok"); err != nil || ok {
		t.Errorf("token survived Delete: ok=%v err=%v", ok, err)
	}
}
