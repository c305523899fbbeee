package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// refreshResult carries the outcome of a settled refresh to queued waiters.
type refreshResult struct {
	token string
	err   error
}

// refreshState is the process-wide refresh coordinator: a single in-flight
// flag plus a FIFO queue of requests that hit a 401 while a refresh was
// already running. One instance lives on each Client; both fields are
// guarded by mu, and the flag is always set before any network suspension.
type refreshState struct {
	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

func newRefreshState() *refreshState {
	return &refreshState{}
}

// begin atomically claims or joins the current refresh cycle. The first
// caller becomes the leader (performs the refresh); everyone else gets a
// buffered channel that settle will deliver the outcome on, in arrival
// order.
func (rs *refreshState) begin() (leader bool, wait chan refreshResult) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.refreshing {
		ch := make(chan refreshResult, 1)
		rs.waiters = append(rs.waiters, ch)

		return false, ch
	}

	rs.refreshing = true

	return true, nil
}

// settle ends the current cycle and delivers the outcome to every queued
// waiter in FIFO order. The state is reset before delivery so a new 401
// arriving afterwards starts a fresh cycle instead of joining a dead one.
func (rs *refreshState) settle(token string, err error) {
	rs.mu.Lock()
	waiters := rs.waiters
	rs.waiters = nil
	rs.refreshing = false
	rs.mu.Unlock()

	for _, ch := range waiters {
		ch <- refreshResult{token: token, err: err}
	}
}

// awaitRefresh returns a fresh access token, performing at most one
// concurrent exchange against /auth/refresh. Requests that arrive while a
// refresh is in flight block until it settles and then share its outcome.
func (c *Client) awaitRefresh(ctx context.Context) (string, error) {
	leader, wait := c.refresh.begin()

	if !leader {
		c.logger.Debug("queued behind in-flight token refresh")

		select {
		case res := <-wait:
			return res.token, res.err
		case <-ctx.Done():
			return "", fmt.Errorf("api: waiting for token refresh: %w", ctx.Err())
		}
	}

	token, err := c.doRefresh(ctx)
	if err != nil {
		// Unrecoverable: clear all credentials and broadcast logout before
		// releasing the queue, so no waiter can observe stale tokens.
		c.failAuth()
	}

	c.refresh.settle(token, err)

	return token, err
}

// refreshRequest and refreshResponse mirror the /auth/refresh wire shape.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// doRefresh exchanges the stored refresh token for a new access token.
// It deliberately bypasses the pipeline (no bearer header, no 401
// interception) — an interceptor refreshing through itself would recurse.
func (c *Client) doRefresh(ctx context.Context) (string, error) {
	refreshToken := c.store.RefreshToken()
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	c.logger.Info("refreshing access token")

	encoded, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", fmt.Errorf("api: encoding refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/auth/refresh", bytes.NewReader(encoded),
	)
	if err != nil {
		return "", fmt.Errorf("api: creating refresh request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("api: refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message

		c.logger.Warn("refresh token rejected",
			slog.Int("status", resp.StatusCode),
		)

		return "", &APIError{
			StatusCode: resp.StatusCode,
			RequestID:  resp.Header.Get("X-Request-ID"),
			Message:    string(body),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	var rr refreshResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&rr); decErr != nil {
		return "", fmt.Errorf("api: decoding refresh response: %w", decErr)
	}

	if rr.Token == "" {
		return "", fmt.Errorf("api: refresh response missing token")
	}

	// A missing refreshToken in the response keeps the existing one.
	if setErr := c.store.SetCredential(rr.Token, rr.RefreshToken); setErr != nil {
		return "", fmt.Errorf("api: persisting refreshed credential: %w", setErr)
	}

	c.logger.Info("access token refreshed")

	return rr.Token, nil
}
