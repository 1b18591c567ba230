package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rpupo63/portfolio-site-backend/errs"
	"golang.org/x/oauth2"
)

// User is the identity payload returned by /auth/v1/user.
type User struct {
	ID           string         `json:"id"`
	Aud          string         `json:"aud,omitempty"`
	Role         string         `json:"role,omitempty"`
	Email        string         `json:"email"`
	CreatedAt    *time.Time     `json:"created_at,omitempty"`
	LastSignInAt *time.Time     `json:"last_sign_in_at,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// AuthResponse is the token grant payload, returned as received.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// Token converts the grant into the persisted credential. The expiry comes
// from the access token's exp claim when it can be read.
func (r *AuthResponse) Token(now time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
	}
	switch {
	case r.ExpiresAt > 0:
		tok.Expiry = time.Unix(r.ExpiresAt, 0)
	case r.ExpiresIn > 0:
		tok.Expiry = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	if claims, err := ParseClaims(r.AccessToken); err == nil {
		if exp := claims.Expiry(); !exp.IsZero() {
			tok.Expiry = exp
		}
	}
	return tok
}

var authFailure = failure{
	kind:     errs.ErrAuthentication,
	keys:     []string{"error_description", "message", "msg", "error"},
	fallback: "Login failed",
}

// SignIn exchanges an email and password for a session and persists it.
func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	return c.grant(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
}

// RefreshSession trades the persisted refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context) (*AuthResponse, error) {
	tok := c.Token()
	if tok == nil || tok.RefreshToken == "" {
		return nil, errs.NewBackendError(errs.ErrAuthentication, 0, "No refresh token available")
	}
	return c.grant(ctx, "refresh_token", map[string]string{
		"refresh_token": tok.RefreshToken,
	})
}

func (c *Client) grant(ctx context.Context, grantType string, payload map[string]string) (*AuthResponse, error) {
	body, err := jsonBody(payload)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/token?grant_type="+grantType, body, c.apiKey)
	if err != nil {
		return nil, err
	}

	op := "sign in"
	if grantType == "refresh_token" {
		op = "refresh session"
	}
	raw, status, err := c.do(req, op, authFailure)
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &errs.BackendErr{Kind: errs.ErrAuthentication, StatusCode: status, Message: "Login failed", Cause: err}
	}
	if out.AccessToken == "" {
		return nil, errs.NewBackendError(errs.ErrAuthentication, status, "Login failed")
	}

	c.setToken(out.Token(c.now()))

	event := c.logger.Info().Str("grant", grantType)
	if out.User != nil {
		event = event.Str("userID", out.User.ID)
	}
	event.Msg("Signed in")
	return &out, nil
}

// SignOut forgets the session locally. It makes no network call and cannot
// fail; storage errors are only logged.
func (c *Client) SignOut() {
	c.clearToken()
	c.logger.Info().Msg("Signed out")
}

// GetSession validates the persisted session. It returns (nil, nil) when
// there is no session or the backend rejects it, signing out in the latter
// case.
func (c *Client) GetSession(ctx context.Context) (*User, error) {
	tok := c.Token()
	if tok == nil || tok.AccessToken == "" {
		return nil, nil
	}

	user, err := c.User(ctx, tok.AccessToken)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Session rejected, signing out")
		c.SignOut()
		return nil, nil
	}
	return user, nil
}

// User returns the identity behind accessToken.
func (c *Client) User(ctx context.Context, accessToken string) (*User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/v1/user", nil, accessToken)
	if err != nil {
		return nil, err
	}

	raw, status, err := c.do(req, "get user", failure{
		kind:     errs.ErrAuthentication,
		keys:     []string{"msg", "message", "error_description", "error"},
		fallback: "Invalid or expired session",
	})
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, &errs.BackendErr{Kind: errs.ErrAuthentication, StatusCode: status, Message: "Invalid user payload", Cause: err}
	}
	return &user, nil
}

// Detached returns a client for the same project that starts signed out and
// keeps any session it acquires in memory, apart from c.
func (c *Client) Detached() *Client {
	return &Client{
		baseURL:    c.baseURL,
		apiKey:     c.apiKey,
		httpClient: c.httpClient,
		tokens:     NewMemoryTokenStore(),
		logger:     c.logger,
		now:        c.now,
	}
}

// Sessions signs callers in and validates their tokens without storing
// anything on the shared client. Each sign-in runs on a detached client that
// is dropped once the credentials are returned.
type Sessions struct {
	client *Client
}

func NewSessions(client *Client) *Sessions {
	return &Sessions{client: client}
}

func (s *Sessions) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	return s.client.Detached().SignIn(ctx, email, password)
}

func (s *Sessions) User(ctx context.Context, accessToken string) (*User, error) {
	return s.client.User(ctx, accessToken)
}
