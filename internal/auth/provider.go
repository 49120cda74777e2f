package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/parleychat/parley/internal/auth/jwt"
	"github.com/parleychat/parley/internal/common/config"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrSessionExpired is returned when the refresh exchange failed and the
	// session cannot be recovered; the collaborator must re-login.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotLoggedIn is returned when no credentials are available at all.
	ErrNotLoggedIn = errors.New("not logged in")
)

// Provider owns the session credentials. It hands out a valid access token,
// refreshing it on demand, and performs the login/logout exchanges against
// the auth endpoints.
type Provider struct {
	logger *zap.Logger
	store  Store
	client *http.Client
	cfg    config.AuthConfig

	// refresh is a single-flight guard: concurrent callers finding an
	// expired token share one refresh exchange instead of racing on the
	// credential store.
	refresh singleflight.Group

	// onSessionExpired is invoked after a terminal refresh failure so the
	// UI collaborator can redirect to the login entry point.
	onSessionExpired func()

	// now is a clock hook for tests.
	now func() time.Time
}

// NewProvider creates a token provider backed by the given credential store.
func NewProvider(logger *zap.Logger, store Store, cfg config.AuthConfig) *Provider {
	return &Provider{
		logger: logger.Named("auth.provider"),
		store:  store,
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		now:    time.Now,
	}
}

// OnSessionExpired registers the callback invoked when a refresh fails
// terminally. Registering replaces any previous callback.
func (p *Provider) OnSessionExpired(fn func()) {
	p.onSessionExpired = fn
}

// loginResponse is the auth server's reply to login and signup.
type loginResponse struct {
	User struct {
		ID    string `json:"_id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// refreshResponse is the auth server's reply to a token refresh.
type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges email and password for a token pair and stores it.
func (p *Provider) Login(ctx context.Context, email, password string) (*Credentials, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	resp, err := p.post(ctx, "/auth/login", "", body)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}

	var lr loginResponse
	if err := json.Unmarshal(resp, &lr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal login response: %w", err)
	}
	if lr.AccessToken == "" || lr.RefreshToken == "" {
		return nil, fmt.Errorf("login response missing tokens")
	}

	creds := &Credentials{
		AccessToken:  lr.AccessToken,
		RefreshToken: lr.RefreshToken,
		UserID:       lr.User.ID,
		Email:        lr.User.Email,
	}
	if err := p.store.Save(ctx, creds); err != nil {
		return nil, fmt.Errorf("failed to store credentials: %w", err)
	}

	p.logger.Info("logged in", zap.String("userId", creds.UserID))
	return creds, nil
}

// Logout revokes the refresh token (best effort) and clears the store.
func (p *Provider) Logout(ctx context.Context) error {
	creds, err := p.store.Load(ctx)
	if err == nil && creds.RefreshToken != "" {
		body, _ := json.Marshal(map[string]string{"refreshToken": creds.RefreshToken})
		if _, err := p.post(ctx, "/auth/logout", creds.AccessToken, body); err != nil {
			p.logger.Warn("logout request failed", zap.Error(err))
		}
	}
	return p.store.Clear(ctx)
}

// CurrentUser returns the identity stored at login time.
func (p *Provider) CurrentUser(ctx context.Context) (userID, email string, err error) {
	creds, err := p.store.Load(ctx)
	if err != nil {
		return "", "", ErrNotLoggedIn
	}
	return creds.UserID, creds.Email, nil
}

// GetValidToken returns a non-expired access token. A held token that has
// not expired is returned unchanged. An expired or absent token triggers a
// refresh exchange; refresh failure is terminal for the session: the store
// is cleared, the session-expired callback fires, and an empty token is
// returned.
func (p *Provider) GetValidToken(ctx context.Context) (string, error) {
	creds, err := p.store.Load(ctx)
	if err != nil {
		return "", ErrNotLoggedIn
	}

	if creds.AccessToken != "" && !jwt.IsExpired(creds.AccessToken, p.now()) {
		return creds.AccessToken, nil
	}

	token, err, _ := p.refresh.Do("refresh", func() (interface{}, error) {
		return p.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// doRefresh performs the refresh exchange. Callers must go through the
// single-flight group.
func (p *Provider) doRefresh(ctx context.Context) (string, error) {
	creds, err := p.store.Load(ctx)
	if err != nil {
		return "", ErrNotLoggedIn
	}

	// Another caller may have refreshed while this one waited.
	if creds.AccessToken != "" && !jwt.IsExpired(creds.AccessToken, p.now()) {
		return creds.AccessToken, nil
	}

	if creds.RefreshToken == "" {
		p.expireSession(ctx)
		return "", ErrSessionExpired
	}

	body, err := json.Marshal(map[string]string{"refreshToken": creds.RefreshToken})
	if err != nil {
		return "", err
	}

	resp, err := p.post(ctx, "/auth/refresh-token", creds.AccessToken, body)
	if err != nil {
		p.logger.Error("token refresh failed", zap.Error(err))
		p.expireSession(ctx)
		return "", ErrSessionExpired
	}

	var rr refreshResponse
	if err := json.Unmarshal(resp, &rr); err != nil || rr.AccessToken == "" {
		p.logger.Error("token refresh returned malformed response", zap.Error(err))
		p.expireSession(ctx)
		return "", ErrSessionExpired
	}

	creds.AccessToken = rr.AccessToken
	creds.RefreshToken = rr.RefreshToken
	if err := p.store.Save(ctx, creds); err != nil {
		return "", fmt.Errorf("failed to store refreshed credentials: %w", err)
	}

	p.logger.Info("access token refreshed", zap.String("userId", creds.UserID))
	return rr.AccessToken, nil
}

// expireSession clears the credentials and signals the collaborator to
// redirect to login. Refresh failures are terminal; there is no retry.
func (p *Provider) expireSession(ctx context.Context) {
	if err := p.store.Clear(ctx); err != nil {
		p.logger.Error("failed to clear credentials", zap.Error(err))
	}
	if p.onSessionExpired != nil {
		p.onSessionExpired()
	}
}

// post issues a JSON POST to the auth API and returns the response body.
// Non-2xx statuses are errors.
func (p *Provider) post(ctx context.Context, path, bearer string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("auth server returned status %d", resp.StatusCode)
	}
	return data, nil
}
