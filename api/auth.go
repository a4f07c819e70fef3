package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// Auth endpoints take explicit tokens rather than relying on the transport
// stack, so the session manager can call them without going through its own
// credential and retry decorators.

// LoginForm submits credentials to POST /auth/login as an OAuth2 password
// form (username/password fields). The email address is the username.
func (c *Client) LoginForm(ctx context.Context, email, password string) (*TokenPair, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var pair TokenPair
	if err := c.postForm(ctx, "/auth/login", form, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, errors.New("[api.LoginForm] response missing access_token")
	}
	return &pair, nil
}

// Register submits a new account to POST /auth/register and returns the
// created profile. An already-registered email surfaces as a conflict,
// detectable with IsConflict.
func (c *Client) Register(ctx context.Context, reg Registration) (*User, error) {
	var user User
	if err := c.post(ctx, "/auth/register", reg, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RefreshToken exchanges the stored refresh token for a new token pair at
// POST /auth/refresh. The server rotates the refresh token on every call.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var pair TokenPair
	if err := c.post(ctx, "/auth/refresh", body, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, errors.New("[api.RefreshToken] response missing access_token")
	}
	return &pair, nil
}

// LogoutNotify tells the server to invalidate the session. Best-effort by
// contract: callers swallow the error after logging it.
func (c *Client) LogoutNotify(ctx context.Context, accessToken string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return c.do(req, nil)
}

// Me fetches the caller's profile from GET /users/me using an explicit
// bearer token.
func (c *Client) Me(ctx context.Context, accessToken string) (*User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/users/me", nil, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var user User
	if err := c.do(req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
