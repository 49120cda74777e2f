package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_LoadSaveClear(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// empty store
	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)

	// save then load
	creds := &Credentials{AccessToken: "a", RefreshToken: "r", UserID: "u1", Email: "u1@example.com"}
	require.NoError(t, s.Save(ctx, creds))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)
	assert.Equal(t, "u1", got.UserID)

	// Load returns a copy, not the stored pointer
	got.AccessToken = "mutated"
	got2, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got2.AccessToken)

	// clear
	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)

	// clearing an empty store is a no-op
	assert.NoError(t, s.Clear(ctx))
}
