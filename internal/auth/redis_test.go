package auth

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/parleychat/parley/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cfg := config.CredentialRedisConfig{
		Addr:   mr.Addr(),
		Prefix: "testcreds",
		TTL:    5 * time.Second,
	}
	store, err := NewRedisStore(context.Background(), zap.NewNop(), cfg)
	if err != nil {
		t.Fatalf("failed to create RedisStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestNewRedisStore_ConnectionError(t *testing.T) {
	cfg := config.CredentialRedisConfig{Addr: "127.0.0.1:1"}
	_, err := NewRedisStore(context.Background(), zap.NewNop(), cfg)
	assert.Error(t, err)
}

func TestRedisStore_LoadSaveClear(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)

	creds := &Credentials{AccessToken: "a", RefreshToken: "r", UserID: "u1", Email: "u1@example.com"}
	require.NoError(t, store.Save(ctx, creds))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)
	assert.Equal(t, "r", got.RefreshToken)
	assert.Equal(t, "u1", got.UserID)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Credentials{AccessToken: "a", RefreshToken: "r"}))

	// advance past the TTL
	mr.FastForward(10 * time.Second)

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)
}
