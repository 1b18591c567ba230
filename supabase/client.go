// Package supabase is a small typed client for the hosted backend's auth,
// REST and storage endpoints. It does no retries and no caching: every call
// is a single request whose failure is returned as an *errs.BackendErr.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tokens     TokenStore
	logger     zerolog.Logger
	now        func() time.Time

	mu    sync.RWMutex
	token *oauth2.Token
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTokenStore sets where the session credential is persisted. The
// default keeps it in memory only.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) {
		if s != nil {
			c.tokens = s
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a client for the project at baseURL. A credential already in
// the token store is picked up immediately.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		tokens:     NewMemoryTokenStore(),
		logger:     log.With().Str("component", "supabase").Logger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	tok, err := c.tokens.Load()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Could not read persisted session")
	}
	c.token = tok
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type accessTokenKey struct{}

// WithAccessToken attaches a bearer token to ctx. Requests made with the
// returned context use it instead of the client's own session.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFromContext returns the token set by WithAccessToken.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(accessTokenKey{}).(string)
	return tok, ok && tok != ""
}

// Token returns the current session credential, or nil when signed out.
func (c *Client) Token() *oauth2.Token {
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()
	if tok != nil {
		return tok
	}

	stored, err := c.tokens.Load()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Could not read persisted session")
		return nil
	}
	if stored != nil {
		c.mu.Lock()
		c.token = stored
		c.mu.Unlock()
	}
	return stored
}

// bearer picks the token for a request: the context token, then the session,
// then the anon key.
func (c *Client) bearer(ctx context.Context, authenticated bool) string {
	if tok, ok := AccessTokenFromContext(ctx); ok {
		return tok
	}
	if authenticated {
		if tok := c.Token(); tok != nil && tok.AccessToken != "" {
			return tok.AccessToken
		}
	}
	return c.apiKey
}

func (c *Client) setToken(tok *oauth2.Token) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()

	if err := c.tokens.Save(tok); err != nil {
		c.logger.Error().Err(err).Msg("Failed to persist session")
	}
}

func (c *Client) clearToken() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()

	if err := c.tokens.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to clear persisted session")
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, bearer string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func jsonBody(v any) (io.Reader, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// failure describes how a non-2xx response is reported for one operation.
type failure struct {
	kind     error
	keys     []string
	fallback string
}

// do sends req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request, op string, f failure) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("operation", op).Msg("Backend request failed")
		return nil, 0, errs.NewNetworkError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errs.NewNetworkError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := serverMessage(body, f.keys...)
		if msg == "" {
			msg = f.fallback
		}
		c.logger.Debug().
			Str("operation", op).
			Int("status", resp.StatusCode).
			Str("message", msg).
			Msg("Backend returned an error")
		return nil, resp.StatusCode, errs.NewBackendError(f.kind, resp.StatusCode, msg)
	}
	return body, resp.StatusCode, nil
}

// serverMessage returns the first non-empty string field of a JSON error body.
func serverMessage(body []byte, keys ...string) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, k := range keys {
		if s, ok := payload[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
