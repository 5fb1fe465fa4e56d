package httpapi

import (
	"encoding/json"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainsession "github.com/sprintdeck/sprintdeck-go/internal/domain/session"
	apperrors "github.com/sprintdeck/sprintdeck-go/internal/errors"
)

// The API envelope is not stable: fields arrive at the top level or nested
// under "data" depending on the endpoint and server version. Normalization
// happens here, at the adapter boundary, so the state machine only ever sees
// the fixed domain shapes.
var (
	tokenExpr   = jmespath.MustCompile("token || data.token || accessToken || data.accessToken")
	userExpr    = jmespath.MustCompile("user || data.user")
	successExpr = jmespath.MustCompile("success || data.success")
	messageExpr = jmespath.MustCompile("message || data.message || error || data.error")
)

// normalizeLoginResult maps a decoded login payload into a LoginResult.
func normalizeLoginResult(payload map[string]any) (domainsession.LoginResult, error) {
	result := domainsession.LoginResult{
		Token:   searchString(tokenExpr, payload),
		Message: normalizeMessage(payload),
	}

	if v, err := successExpr.Search(any(payload)); err == nil {
		if b, ok := v.(bool); ok {
			result.Success = b
		}
	}
	// Servers that omit the success flag signal success by returning a token.
	if !result.Success && result.Token != "" {
		result.Success = true
	}

	user, err := normalizeUser(payload)
	if err != nil {
		return domainsession.LoginResult{}, err
	}
	result.User = user

	return result, nil
}

// normalizeUser extracts and decodes the user object from a payload, or nil
// when the payload carries none.
func normalizeUser(payload map[string]any) (*domainsession.User, error) {
	if payload == nil {
		return nil, nil
	}

	v, err := userExpr.Search(any(payload))
	if err != nil || v == nil {
		return nil, nil
	}

	// Round-trip through JSON to map the loose payload onto the fixed shape.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeServer, "encode user payload")
	}

	var user domainsession.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeServer, "decode user payload")
	}
	if user.ID == 0 && user.Email == "" && user.Username == "" {
		return nil, nil
	}
	return &user, nil
}

// normalizeMessage returns the most specific human-readable message in the
// payload, or empty string.
func normalizeMessage(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	return searchString(messageExpr, payload)
}

func searchString(expr jmespath.JMESPath, payload map[string]any) string {
	v, err := expr.Search(any(payload))
	if err != nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
