package auth

import (
	"context"
	"errors"
)

// Credentials is the session state owned by the token provider: the token
// pair plus the identity of the logged-in user.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	Email        string `json:"email"`
}

// ErrNoCredentials is returned when no credentials are stored.
var ErrNoCredentials = errors.New("no credentials stored")

// Store persists session credentials for the lifetime of a login. It is the
// single source of truth for the token pair; only login, refresh and logout
// mutate it.
type Store interface {
	// Load returns the stored credentials, or ErrNoCredentials.
	Load(ctx context.Context) (*Credentials, error)

	// Save replaces the stored credentials.
	Save(ctx context.Context, creds *Credentials) error

	// Clear removes the stored credentials. Clearing an empty store is a
	// no-op.
	Clear(ctx context.Context) error
}
