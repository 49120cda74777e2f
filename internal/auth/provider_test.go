package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parleychat/parley/internal/auth/jwt"
	"github.com/parleychat/parley/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func mintToken(t *testing.T, userID string, ttl time.Duration) string {
	t.Helper()
	svc, err := jwt.NewService(jwt.Config{SecretKey: testSecret, Duration: ttl})
	require.NoError(t, err)
	token, err := svc.GenerateToken(userID, userID+"@example.com")
	require.NoError(t, err)
	return token
}

func newTestProvider(t *testing.T, handler http.Handler) (*Provider, *MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := NewMemoryStore()
	p := NewProvider(zap.NewNop(), store, config.AuthConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
	return p, store
}

func TestGetValidToken_FreshTokenReturnedUnchanged(t *testing.T) {
	refreshCalls := int32(0)
	p, store := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		w.WriteHeader(http.StatusOK)
	}))

	access := mintToken(t, "u1", time.Hour)
	require.NoError(t, store.Save(context.Background(), &Credentials{AccessToken: access, RefreshToken: "r", UserID: "u1"}))

	got, err := p.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, access, got)
	assert.Zero(t, atomic.LoadInt32(&refreshCalls), "no refresh for a fresh token")
}

func TestGetValidToken_RefreshesExpiredToken(t *testing.T) {
	newAccess := mintToken(t, "u1", time.Hour)
	p, store := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/refresh-token", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "r1", body["refreshToken"])
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  newAccess,
			"refreshToken": "r2",
		})
	}))

	expired := mintToken(t, "u1", time.Minute)
	require.NoError(t, store.Save(context.Background(), &Credentials{AccessToken: expired, RefreshToken: "r1", UserID: "u1"}))
	p.now = func() time.Time { return time.Now().Add(time.Hour) }

	got, err := p.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, newAccess, got)

	// the new pair is persisted
	creds, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, newAccess, creds.AccessToken)
	assert.Equal(t, "r2", creds.RefreshToken)
}

func TestGetValidToken_RefreshFailureIsTerminal(t *testing.T) {
	p, store := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	expired := mintToken(t, "u1", time.Minute)
	require.NoError(t, store.Save(context.Background(), &Credentials{AccessToken: expired, RefreshToken: "bad", UserID: "u1"}))
	p.now = func() time.Time { return time.Now().Add(time.Hour) }

	expired2 := false
	p.OnSessionExpired(func() { expired2 = true })

	token, err := p.GetValidToken(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, token)
	assert.True(t, expired2, "session-expired callback must fire")

	// credentials are cleared; the session is over
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestGetValidToken_NotLoggedIn(t *testing.T) {
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	_, err := p.GetValidToken(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestGetValidToken_SingleFlightRefresh(t *testing.T) {
	refreshCalls := int32(0)
	release := make(chan struct{})
	newAccess := mintToken(t, "u1", 2*time.Hour)
	p, store := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		<-release
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": newAccess, "refreshToken": "r2"})
	}))

	expired := mintToken(t, "u1", time.Minute)
	require.NoError(t, store.Save(context.Background(), &Credentials{AccessToken: expired, RefreshToken: "r1", UserID: "u1"}))
	p.now = func() time.Time { return time.Now().Add(time.Hour) }

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.GetValidToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, newAccess, got)
		}()
	}

	// let the concurrent callers pile up on the single-flight group
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls), "concurrent callers must share one refresh")
}

func TestLoginStoresCredentials(t *testing.T) {
	access := mintToken(t, "u1", time.Hour)
	p, store := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user":         map[string]string{"_id": "u1", "name": "User One", "email": "u1@example.com"},
			"accessToken":  access,
			"refreshToken": "r1",
		})
	}))

	creds, err := p.Login(context.Background(), "u1@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", creds.UserID)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, access, stored.AccessToken)
	assert.Equal(t, "r1", stored.RefreshToken)
	assert.Equal(t, "u1@example.com", stored.Email)
}

func TestLogoutClearsStoreEvenWhenServerFails(t *testing.T) {
	p, store := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	require.NoError(t, store.Save(context.Background(), &Credentials{AccessToken: "a", RefreshToken: "r"}))

	require.NoError(t, p.Logout(context.Background()))
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)
}
