package identity

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// Identity is the signed-in user as reported by the identity provider. Immutable once issued.
type Identity struct {
	ID        string    `json:"id"`         // Provider subject
	Name      string    `json:"name"`       // Display name
	Email     string    `json:"email"`      // Email address, the key for all tracker data
	Picture   string    `json:"picture"`    // Avatar URL
	LoginTime time.Time `json:"login_time"` // When the identity was fetched
}

// Complete reports whether the identity carries the fields the tracker relies on.
func (i Identity) Complete() bool {
	return i.ID != "" && i.Email != ""
}

// Authenticator turns an OAuth provider response into an Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token *oauth2.Token) (Identity, error)
}

// AuthenticatorFunc adapts a function to Authenticator
type AuthenticatorFunc func(ctx context.Context, token *oauth2.Token) (Identity, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, token *oauth2.Token) (Identity, error) {
	return f(ctx, token)
}
