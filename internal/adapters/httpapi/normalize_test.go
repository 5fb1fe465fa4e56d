package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainsession "github.com/sprintdeck/sprintdeck-go/internal/domain/session"
)

func TestNormalizeLoginResult_FlatEnvelope(t *testing.T) {
	payload := map[string]any{
		"success": true,
		"token":   "token-abc",
		"message": "welcome back",
		"user":    map[string]any{"id": float64(7), "email": "dev@example.com", "username": "dev"},
	}

	result, err := normalizeLoginResult(payload)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "token-abc", result.Token)
	assert.Equal(t, "welcome back", result.Message)
	require.NotNil(t, result.User)
	assert.Equal(t, int64(7), result.User.ID)
}

func TestNormalizeLoginResult_DataNestedEnvelope(t *testing.T) {
	payload := map[string]any{
		"data": map[string]any{
			"token": "token-abc",
			"user":  map[string]any{"id": float64(7), "email": "dev@example.com"},
		},
	}

	result, err := normalizeLoginResult(payload)
	require.NoError(t, err)

	assert.True(t, result.Success, "token presence implies success")
	assert.Equal(t, "token-abc", result.Token)
	require.NotNil(t, result.User)
	assert.Equal(t, "dev@example.com", result.User.Email)
}

func TestNormalizeLoginResult_AccessTokenAlias(t *testing.T) {
	result, err := normalizeLoginResult(map[string]any{"accessToken": "token-alt"})
	require.NoError(t, err)
	assert.Equal(t, "token-alt", result.Token)

	result, err = normalizeLoginResult(map[string]any{
		"data": map[string]any{"accessToken": "token-nested"},
	})
	require.NoError(t, err)
	assert.Equal(t, "token-nested", result.Token)
}

func TestNormalizeLoginResult_FailureEnvelope(t *testing.T) {
	payload := map[string]any{
		"success": false,
		"error":   "account locked",
	}

	result, err := normalizeLoginResult(payload)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Empty(t, result.Token)
	assert.Equal(t, "account locked", result.Message)
	assert.Nil(t, result.User)
}

func TestNormalizeUser_FullShape(t *testing.T) {
	payload := map[string]any{
		"user": map[string]any{
			"id":          float64(7),
			"email":       "dev@example.com",
			"username":    "dev",
			"displayName": "Dev User",
			"role":        "MANAGER",
			"isActive":    true,
			"organization": map[string]any{
				"id":   float64(3),
				"name": "Acme",
			},
		},
	}

	user, err := normalizeUser(payload)
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, domainsession.RoleManager, user.Role)
	assert.True(t, user.Active)
	require.NotNil(t, user.Organization)
	assert.Equal(t, "Acme", user.Organization.Name)
}

func TestNormalizeUser_AbsentOrEmpty(t *testing.T) {
	user, err := normalizeUser(nil)
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = normalizeUser(map[string]any{"success": true})
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = normalizeUser(map[string]any{"user": map[string]any{}})
	require.NoError(t, err)
	assert.Nil(t, user, "an empty user object reads as no user")
}

func TestNormalizeMessage_Precedence(t *testing.T) {
	assert.Equal(t, "top", normalizeMessage(map[string]any{
		"message": "top",
		"data":    map[string]any{"message": "nested"},
	}))
	assert.Equal(t, "nested", normalizeMessage(map[string]any{
		"data": map[string]any{"message": "nested"},
	}))
	assert.Equal(t, "oops", normalizeMessage(map[string]any{"error": "oops"}))
	assert.Empty(t, normalizeMessage(nil))
	assert.Empty(t, normalizeMessage(map[string]any{"message": 42}))
}
