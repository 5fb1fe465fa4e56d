// Package httpapi provides the HTTP adapter for the SprintDeck auth endpoints.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	domainsession "github.com/sprintdeck/sprintdeck-go/internal/domain/session"
	apperrors "github.com/sprintdeck/sprintdeck-go/internal/errors"
	"github.com/sprintdeck/sprintdeck-go/internal/ports"
)

const (
	loginPath        = "/auth/login"
	loginUnifiedPath = "/auth/login-unified"
	currentUserPath  = "/auth/me"
	logoutPath       = "/auth/logout"

	defaultTimeout = 10 * time.Second
)

// Config captures runtime configuration for the API client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Tokens  ports.TokenStore
	Logger  *slog.Logger
	Client  *http.Client
}

// Client talks to the SprintDeck auth endpoints and normalizes responses
// into the domain shapes. It is stateless apart from the injected TokenStore
// and safe for concurrent use.
type Client struct {
	baseURL string
	timeout time.Duration
	tokens  ports.TokenStore
	logger  *slog.Logger
	http    *http.Client

	// Collapses concurrent CurrentUser calls into a single request.
	sf singleflight.Group
}

var _ ports.AuthAPI = (*Client)(nil)

// NewClient constructs an API client from config. Callers must provide a
// base URL and a token store.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api base URL is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token store is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: base,
		timeout: timeout,
		tokens:  cfg.Tokens,
		logger:  logger,
		http:    hc,
	}, nil
}

// Login authenticates with an email address via POST /auth/login.
// On success the returned token is written to the token store.
func (c *Client) Login(ctx context.Context, email, password string) (domainsession.LoginResult, error) {
	if email == "" {
		return domainsession.LoginResult{}, apperrors.ValidationField("email", "email is required")
	}
	if password == "" {
		return domainsession.LoginResult{}, apperrors.ValidationField("password", "password is required")
	}

	body := map[string]string{"email": email, "password": password}
	return c.doLogin(ctx, loginPath, body)
}

// LoginUnified authenticates with an email address or username via
// POST /auth/login-unified. On success the returned token is written to the
// token store.
func (c *Client) LoginUnified(ctx context.Context, identifier, password string) (domainsession.LoginResult, error) {
	if identifier == "" {
		return domainsession.LoginResult{}, apperrors.ValidationField("emailOrUsername", "email or username is required")
	}
	if password == "" {
		return domainsession.LoginResult{}, apperrors.ValidationField("password", "password is required")
	}

	body := map[string]string{"emailOrUsername": identifier, "password": password}
	return c.doLogin(ctx, loginUnifiedPath, body)
}

func (c *Client) doLogin(ctx context.Context, path string, body map[string]string) (domainsession.LoginResult, error) {
	payload, err := c.postJSON(ctx, path, body, c.http)
	if err != nil {
		return domainsession.LoginResult{}, err
	}

	result, err := normalizeLoginResult(payload)
	if err != nil {
		return domainsession.LoginResult{}, err
	}
	if result.Token == "" {
		return domainsession.LoginResult{}, apperrors.Server("login response carried no token")
	}

	// Token persistence is a side effect of login; callers never manage it.
	if err := c.tokens.Set(ctx, result.Token); err != nil {
		return domainsession.LoginResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "persist session token")
	}

	return result, nil
}

// CurrentUser fetches the identity the stored token belongs to via GET /auth/me.
// Concurrent calls are collapsed into a single request.
func (c *Client) CurrentUser(ctx context.Context) (*domainsession.User, error) {
	v, err, _ := c.sf.Do(currentUserPath, func() (any, error) {
		return c.fetchCurrentUser(ctx)
	})
	if err != nil {
		return nil, err
	}
	user, ok := v.(*domainsession.User)
	if !ok {
		return nil, apperrors.Internal("unexpected current user result type")
	}
	return user.Clone(), nil
}

func (c *Client) fetchCurrentUser(ctx context.Context) (*domainsession.User, error) {
	authed, err := c.authedClient(ctx)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+currentUserPath, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "create current user request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := authed.Do(req)
	if err != nil {
		return nil, classifyTransportError(err, "fetch current user")
	}

	payload, err := decodeResponse(resp)
	if err != nil {
		return nil, err
	}

	user, err := normalizeUser(payload)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.Server("current user response carried no user")
	}
	return user, nil
}

// Logout notifies the server via POST /auth/logout. The response body is
// ignored; callers treat any error as advisory.
func (c *Client) Logout(ctx context.Context) error {
	authed, err := c.authedClient(ctx)
	if err != nil {
		// No token means nothing to revoke server-side.
		if errors.Is(err, ports.ErrTokenNotFound) {
			return nil
		}
		return err
	}

	if _, err := c.postJSON(ctx, logoutPath, nil, authed); err != nil {
		return err
	}
	return nil
}

// ValidateToken reports whether the stored token is still accepted by the
// server. Any failure reads as false.
func (c *Client) ValidateToken(ctx context.Context) bool {
	_, err := c.CurrentUser(ctx)
	if err != nil {
		c.logger.DebugContext(ctx, "token validation failed", "error", err)
		return false
	}
	return true
}

// authedClient returns an HTTP client that injects the stored bearer token
// on every request.
func (c *Client) authedClient(ctx context.Context) (*http.Client, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrTokenNotFound) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "read session token")
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	return oauth2.NewClient(ctx, src), nil
}

// postJSON posts a JSON body to path using the given client and returns the
// decoded response payload.
func (c *Client) postJSON(ctx context.Context, path string, body any, client *http.Client) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "encode %s request", path)
		}
		reader = bytes.NewReader(encoded)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "create %s request", path)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err, "post "+path)
	}

	return decodeResponse(resp)
}

// decodeResponse drains and closes the response body, mapping non-2xx
// statuses into the error taxonomy with the most specific server message
// available.
func decodeResponse(resp *http.Response) (map[string]any, error) {
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, classifyTransportError(err, "read response body")
	}

	var payload map[string]any
	if len(bytes.TrimSpace(raw)) > 0 {
		// Tolerate non-JSON bodies on error statuses; the status code decides.
		if jsonErr := json.Unmarshal(raw, &payload); jsonErr != nil && resp.StatusCode < 300 {
			return nil, apperrors.Wrap(jsonErr, apperrors.ErrCodeServer, "decode response body")
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return payload, nil
	}

	message := normalizeMessage(payload)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if message == "" {
			message = "invalid credentials"
		}
		return nil, apperrors.Unauthorized(message)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		if message == "" {
			message = fmt.Sprintf("request rejected with status %d", resp.StatusCode)
		}
		return nil, apperrors.Validation(message)
	default:
		if message == "" {
			message = fmt.Sprintf("server error with status %d", resp.StatusCode)
		}
		return nil, apperrors.Server(message)
	}
}

// classifyTransportError folds transport failures into the error taxonomy.
// Deadline overruns become Timeout; everything else pre-response is Network.
func classifyTransportError(err error, op string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, op+" timed out")
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(err, apperrors.ErrCodeCanceled, op+" canceled")
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, op+" timed out")
	}

	return apperrors.Wrap(err, apperrors.ErrCodeNetwork, op+" failed")
}
