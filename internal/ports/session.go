// Package ports defines interfaces (hexagonal ports) for the session core.
// Implementations live in internal/adapters; orchestration in internal/service.
package ports

import (
	"context"

	domainsession "github.com/sprintdeck/sprintdeck-go/internal/domain/session"
)

// ErrTokenNotFound is returned by TokenStore implementations when no token
// is persisted. The zero session (logged out) is not an error condition for
// callers, so they branch on this sentinel rather than failing.
var ErrTokenNotFound error = tokenNotFoundError{}

type tokenNotFoundError struct{}

func (tokenNotFoundError) Error() string { return "token not found" }

// TokenStore persists the single bearer token across process restarts.
// At most one token value exists at a time; concurrent writers resolve to
// last-write-wins and a partial value must never be observable.
type TokenStore interface {
	// Get returns the stored token, or ErrTokenNotFound when absent.
	Get(ctx context.Context) (string, error)

	// Set replaces the stored token.
	Set(ctx context.Context, token string) error

	// Clear removes the stored token. Clearing an absent token is a no-op.
	Clear(ctx context.Context) error
}

// AuthAPI is the stateless client for the auth endpoints of the SprintDeck API.
// Successful logins persist the returned token into the TokenStore as a side
// effect; callers never manage token persistence themselves.
type AuthAPI interface {
	// Login authenticates with an email address (legacy path).
	Login(ctx context.Context, email, password string) (domainsession.LoginResult, error)

	// LoginUnified authenticates with an email address or username (preferred).
	LoginUnified(ctx context.Context, identifier, password string) (domainsession.LoginResult, error)

	// CurrentUser fetches the user the stored token belongs to.
	CurrentUser(ctx context.Context) (*domainsession.User, error)

	// Logout notifies the server. Best effort: callers swallow failures.
	Logout(ctx context.Context) error

	// ValidateToken reports whether the stored token is still accepted.
	// Any failure, including transport failures, reads as false.
	ValidateToken(ctx context.Context) bool
}

// Navigator is implemented by the hosting UI shell. The session core calls it
// when a terminal unauthenticated transition requires sending the user back to
// the login entry point.
type Navigator interface {
	NavigateToLogin()
}
