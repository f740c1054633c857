package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/atinyakov/productdesk/internal/client/session"
	"github.com/atinyakov/productdesk/internal/models"
)

// Login submits credentials and, on success, caches the returned token in
// the session. Any failure leaves the session unauthenticated.
func (c *Client) Login(ctx context.Context, username, password string) (*models.AuthResponse, error) {
	creds := models.Credentials{Username: username, Password: password}
	return c.authenticate(ctx, PathLogin, creds)
}

// Register creates an account. The API logs the new account in, so a
// successful registration starts a session exactly like Login.
func (c *Client) Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error) {
	req := models.RegisterRequest{Name: name, Email: email, Password: password}
	return c.authenticate(ctx, PathRegister, req)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*models.AuthResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body, authNone)
	if err != nil {
		c.session.Clear()
		if StatusCode(err) != 0 {
			return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
		}
		return nil, err
	}

	var auth models.AuthResponse
	if err := decode(resp, &auth); err != nil {
		c.session.Clear()
		return nil, err
	}
	auth.Normalize()

	if err := c.session.Start(auth.Token, auth.User, auth.Role); err != nil {
		c.session.Clear()
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	return &auth, nil
}

// Logout clears the cached token. It does not contact the server.
func (c *Client) Logout() {
	c.session.Clear()
}

// Profile fetches the account behind the cached token.
func (c *Client) Profile(ctx context.Context) (*models.Profile, error) {
	resp, err := c.do(ctx, http.MethodGet, PathProfile, nil, authAlways)
	if err != nil {
		return nil, err
	}
	var p models.Profile
	if err := decode(resp, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Role is a shorthand for the role of the current session.
func (c *Client) Role() session.Role {
	return c.session.Role()
}
