// Package session contains simple hand-written test doubles for the session
// ports. These are lightweight and suitable for unit tests without codegen.
package session

import (
	"context"
	"errors"
	"sync"

	domainsession "github.com/sprintdeck/sprintdeck-go/internal/domain/session"
	"github.com/sprintdeck/sprintdeck-go/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthAPI    = (*MockAuthAPI)(nil)
	_ ports.TokenStore = (*MemoryTokenStore)(nil)
	_ ports.Navigator  = (*RecordingNavigator)(nil)
)

// DefaultUser returns the deterministic identity the mock API hands out.
func DefaultUser() *domainsession.User {
	return &domainsession.User{
		ID:          1,
		Email:       "mock.user@example.com",
		Username:    "mockuser",
		DisplayName: "Mock User",
		Role:        domainsession.RoleUser,
		Active:      true,
	}
}

// MockAuthAPI simulates the auth endpoints for tests. Each method delegates
// to its Func field when set and otherwise behaves like a server that
// accepts everything with the default user.
type MockAuthAPI struct {
	LoginFunc         func(ctx context.Context, email, password string) (domainsession.LoginResult, error)
	LoginUnifiedFunc  func(ctx context.Context, identifier, password string) (domainsession.LoginResult, error)
	CurrentUserFunc   func(ctx context.Context) (*domainsession.User, error)
	LogoutFunc        func(ctx context.Context) error
	ValidateTokenFunc func(ctx context.Context) bool

	// Tokens receives the side-effect writes a real client would perform.
	Tokens ports.TokenStore

	mu           sync.Mutex
	loginCalls   int
	currentCalls int
	logoutCalls  int
}

// NewMockAuthAPI creates a MockAuthAPI that accepts all logins with the
// default user and persists tokens into the given store.
func NewMockAuthAPI(tokens ports.TokenStore) *MockAuthAPI {
	return &MockAuthAPI{Tokens: tokens}
}

func (m *MockAuthAPI) Login(ctx context.Context, email, password string) (domainsession.LoginResult, error) {
	m.mu.Lock()
	m.loginCalls++
	m.mu.Unlock()

	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return m.acceptLogin(ctx)
}

func (m *MockAuthAPI) LoginUnified(ctx context.Context, identifier, password string) (domainsession.LoginResult, error) {
	m.mu.Lock()
	m.loginCalls++
	m.mu.Unlock()

	if m.LoginUnifiedFunc != nil {
		return m.LoginUnifiedFunc(ctx, identifier, password)
	}
	return m.acceptLogin(ctx)
}

func (m *MockAuthAPI) acceptLogin(ctx context.Context) (domainsession.LoginResult, error) {
	result := domainsession.LoginResult{
		Success: true,
		Token:   "mock-token-1",
		User:    DefaultUser(),
	}
	if m.Tokens != nil {
		if err := m.Tokens.Set(ctx, result.Token); err != nil {
			return domainsession.LoginResult{}, err
		}
	}
	return result, nil
}

func (m *MockAuthAPI) CurrentUser(ctx context.Context) (*domainsession.User, error) {
	m.mu.Lock()
	m.currentCalls++
	m.mu.Unlock()

	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx)
	}
	return DefaultUser(), nil
}

func (m *MockAuthAPI) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.logoutCalls++
	m.mu.Unlock()

	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx)
	}
	return nil
}

func (m *MockAuthAPI) ValidateToken(ctx context.Context) bool {
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(ctx)
	}
	_, err := m.CurrentUser(ctx)
	return err == nil
}

// LoginCalls returns how many login attempts were made.
func (m *MockAuthAPI) LoginCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loginCalls
}

// CurrentUserCalls returns how many current-user fetches were made.
func (m *MockAuthAPI) CurrentUserCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentCalls
}

// LogoutCalls returns how many server logouts were attempted.
func (m *MockAuthAPI) LogoutCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logoutCalls
}

// MemoryTokenStore is an in-memory token store for unit tests.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
	set   bool
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// NewMemoryTokenStoreWith creates an in-memory token store seeded with token.
func NewMemoryTokenStoreWith(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token, set: token != ""}
}

func (m *MemoryTokenStore) Get(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return "", ports.ErrTokenNotFound
	}
	return m.token, nil
}

func (m *MemoryTokenStore) Set(_ context.Context, token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.set = true
	return nil
}

func (m *MemoryTokenStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.set = false
	return nil
}

// RecordingNavigator counts login-route navigations requested by the core.
type RecordingNavigator struct {
	mu    sync.Mutex
	calls int
}

func (n *RecordingNavigator) NavigateToLogin() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
}

// Calls returns how many navigations were requested.
func (n *RecordingNavigator) Calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}
