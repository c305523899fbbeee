package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Login exchanges credentials for a token pair and persists it, along with a
// cached profile snapshot, in the credential store.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	c.logger.Info("logging in", slog.String("email", req.Email))

	var out LoginResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, err
	}

	if out.Token == "" {
		return nil, fmt.Errorf("api: login response missing token")
	}

	if err := c.store.SetCredential(out.Token, out.RefreshToken); err != nil {
		return nil, fmt.Errorf("api: persisting credential: %w", err)
	}

	// Cache the profile fields the login response carries so `whoami` works
	// offline. The full profile (ids, root folder) comes from /users/profile.
	cached := &UserProfile{
		Email:        out.Email,
		UserName:     out.UserName,
		StorageUsed:  out.StorageUsed,
		StorageLimit: out.StorageLimit,
		CreatedAt:    time.Now().UTC(),
	}
	if err := c.store.SetUser(cached); err != nil {
		c.logger.Warn("caching profile failed", slog.String("error", err.Error()))
	}

	c.logger.Info("login successful", slog.String("email", out.Email))

	return &out, nil
}

// Register creates a new account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*MessageResponse, error) {
	c.logger.Info("registering account", slog.String("email", req.Email))

	var out MessageResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/register", req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ChangePassword rotates the authenticated user's password.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/change-password", req, &out); err != nil {
		return nil, err
	}

	c.logger.Info("password changed")

	return &out, nil
}

// Logout discards all stored credentials. Purely client-side — the backend
// keeps no session to tear down.
func (c *Client) Logout() error {
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("api: clearing credentials: %w", err)
	}

	c.logger.Info("logged out")

	return nil
}

// LoggedIn reports whether an access token is stored.
func (c *Client) LoggedIn() bool {
	return c.store.AccessToken() != ""
}

// CachedUser returns the profile snapshot saved at login, or nil.
func (c *Client) CachedUser() *UserProfile {
	return c.store.User()
}
