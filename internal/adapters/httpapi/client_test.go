package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sprintdeck/sprintdeck-go/internal/errors"
	mocks "github.com/sprintdeck/sprintdeck-go/internal/mocks/session"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *mocks.MemoryTokenStore) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := mocks.NewMemoryTokenStore()
	client, err := NewClient(Config{BaseURL: srv.URL, Tokens: tokens})
	require.NoError(t, err)
	return client, tokens
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(payload))
}

func TestNewClient_RequiresBaseURLAndTokens(t *testing.T) {
	_, err := NewClient(Config{Tokens: mocks.NewMemoryTokenStore()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL is required")

	_, err = NewClient(Config{BaseURL: "http://localhost:3000/api"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token store is required")
}

func TestClient_Login_PersistsToken(t *testing.T) {
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "dev@example.com", body["email"])
		assert.Equal(t, "hunter2", body["password"])

		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"token":   "token-abc",
			"user":    map[string]any{"id": 7, "email": "dev@example.com", "username": "dev"},
		})
	}))

	result, err := client.Login(context.Background(), "dev@example.com", "hunter2")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "token-abc", result.Token)
	require.NotNil(t, result.User)
	assert.Equal(t, int64(7), result.User.ID)

	stored, err := tokens.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-abc", stored)
}

func TestClient_Login_ValidatesInput(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for invalid input")
	}))

	_, err := client.Login(context.Background(), "", "hunter2")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "email", apperrors.GetField(err))

	_, err = client.Login(context.Background(), "dev@example.com", "")
	require.Error(t, err)
	assert.Equal(t, "password", apperrors.GetField(err))
}

func TestClient_Login_InvalidCredentials(t *testing.T) {
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]any{"message": "bad email or password"})
	}))

	_, err := client.Login(context.Background(), "dev@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Contains(t, err.Error(), "bad email or password")

	_, getErr := tokens.Get(context.Background())
	assert.Error(t, getErr, "no token persisted on failure")
}

func TestClient_Login_UnauthorizedWithoutMessage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.Login(context.Background(), "dev@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestClient_Login_ValidationStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnprocessableEntity, map[string]any{"error": "email is malformed"})
	}))

	_, err := client.Login(context.Background(), "not-an-email", "hunter2")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "email is malformed")
}

func TestClient_Login_ServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.Login(context.Background(), "dev@example.com", "hunter2")
	require.Error(t, err)
	assert.True(t, apperrors.IsServer(err))
}

func TestClient_Login_MissingToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"success": true})
	}))

	_, err := client.Login(context.Background(), "dev@example.com", "hunter2")
	require.Error(t, err)
	assert.True(t, apperrors.IsServer(err))
	assert.Contains(t, err.Error(), "no token")
}

func TestClient_Login_Timeout(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	client.timeout = 20 * time.Millisecond

	_, err := client.Login(context.Background(), "dev@example.com", "hunter2")
	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))
}

func TestClient_Login_NetworkError(t *testing.T) {
	tokens := mocks.NewMemoryTokenStore()
	client, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", Tokens: tokens})
	require.NoError(t, err)

	_, err = client.Login(context.Background(), "dev@example.com", "hunter2")
	require.Error(t, err)
	assert.True(t, apperrors.IsNetwork(err))
}

func TestClient_LoginUnified_SendsIdentifier(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login-unified", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "devuser", body["emailOrUsername"])

		writeJSON(t, w, http.StatusOK, map[string]any{"token": "token-u"})
	}))

	result, err := client.LoginUnified(context.Background(), "devuser", "hunter2")
	require.NoError(t, err)
	assert.True(t, result.Success, "token presence implies success")
	assert.Equal(t, "token-u", result.Token)
}

func TestClient_CurrentUser_SendsBearerToken(t *testing.T) {
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))

		writeJSON(t, w, http.StatusOK, map[string]any{
			"user": map[string]any{"id": 7, "email": "dev@example.com", "username": "dev", "role": "ADMIN"},
		})
	}))
	require.NoError(t, tokens.Set(context.Background(), "token-abc"))

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "dev", user.Username)
}

func TestClient_CurrentUser_NoToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a token")
	}))

	_, err := client.CurrentUser(context.Background())
	require.Error(t, err)
}

func TestClient_CurrentUser_CollapsesConcurrentCalls(t *testing.T) {
	var requests atomic.Int32
	release := make(chan struct{})

	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		<-release
		writeJSON(t, w, http.StatusOK, map[string]any{
			"user": map[string]any{"id": 7, "email": "dev@example.com"},
		})
	}))
	require.NoError(t, tokens.Set(context.Background(), "token-abc"))

	const callers = 4
	done := make(chan error, callers)
	var started sync.WaitGroup
	for i := 0; i < callers; i++ {
		started.Add(1)
		go func() {
			started.Done()
			_, err := client.CurrentUser(context.Background())
			done <- err
		}()
	}

	started.Wait()
	require.Eventually(t, func() bool {
		return requests.Load() == 1
	}, time.Second, 5*time.Millisecond)
	// Give the remaining callers time to join the in-flight request.
	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < callers; i++ {
		require.NoError(t, <-done)
	}
	assert.Equal(t, int32(1), requests.Load(), "concurrent calls share one request")
}

func TestClient_Logout_PostsWithToken(t *testing.T) {
	var sawLogout atomic.Bool
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/logout", r.URL.Path)
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		sawLogout.Store(true)
		writeJSON(t, w, http.StatusOK, map[string]any{"success": true})
	}))
	require.NoError(t, tokens.Set(context.Background(), "token-abc"))

	require.NoError(t, client.Logout(context.Background()))
	assert.True(t, sawLogout.Load())
}

func TestClient_Logout_NoTokenIsNoop(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a token")
	}))

	assert.NoError(t, client.Logout(context.Background()))
}

func TestClient_ValidateToken(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)

	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := int(status.Load())
		if code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"user": map[string]any{"id": 7, "email": "dev@example.com"},
		})
	}))
	require.NoError(t, tokens.Set(context.Background(), "token-abc"))

	assert.True(t, client.ValidateToken(context.Background()))

	status.Store(http.StatusUnauthorized)
	assert.False(t, client.ValidateToken(context.Background()))
}
