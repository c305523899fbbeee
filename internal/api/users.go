package api

import (
	"context"
	"log/slog"
	"net/http"
)

// Profile fetches the authenticated user's profile and refreshes the
// cached copy in the credential store.
func (c *Client) Profile(ctx context.Context) (*UserProfile, error) {
	var p UserProfile
	if err := c.getJSON(ctx, "/users/profile", &p); err != nil {
		return nil, err
	}

	if err := c.store.SetUser(&p); err != nil {
		c.logger.Warn("caching profile failed", slog.String("error", err.Error()))
	}

	return &p, nil
}

// UpdateProfile changes the user's name or email.
func (c *Client) UpdateProfile(ctx context.Context, req ProfileUpdateRequest) (*UserProfile, error) {
	var p UserProfile
	if err := c.sendJSON(ctx, http.MethodPut, "/users/profile", req, &p); err != nil {
		return nil, err
	}

	if err := c.store.SetUser(&p); err != nil {
		c.logger.Warn("caching profile failed", slog.String("error", err.Error()))
	}

	return &p, nil
}

// StorageInfo returns the user's quota usage.
func (c *Client) StorageInfo(ctx context.Context) (*StorageInfo, error) {
	var s StorageInfo
	if err := c.getJSON(ctx, "/users/storage", &s); err != nil {
		return nil, err
	}

	return &s, nil
}

// DashboardStats returns aggregate usage counters.
func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var d DashboardStats
	if err := c.getJSON(ctx, "/users/dashboard-stats", &d); err != nil {
		return nil, err
	}

	return &d, nil
}
