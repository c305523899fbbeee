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

const defaultUserAgent = "cloudvault-go/0.1"

// CredentialStore is the persistence boundary for tokens and the cached user
// profile. Defined at the consumer per Go convention "accept interfaces,
// return structs" — internal/credstore provides the file-backed
// implementation. Reads return zero values when nothing is stored.
type CredentialStore interface {
	AccessToken() string
	RefreshToken() string
	User() *UserProfile
	SetCredential(accessToken, refreshToken string) error
	SetUser(u *UserProfile) error
	Clear() error
}

// Client is an HTTP client for the CloudVault API. Every request passes
// through a pipeline that attaches the stored bearer token and, on a 401,
// coordinates exactly one token refresh before resubmitting the request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      CredentialStore
	logger     *slog.Logger
	userAgent  string
	chunkSize  int64

	// refresh is the process-wide refresh coordinator state. One instance
	// per Client, constructed in NewClient.
	refresh *refreshState

	// onUnauthorized callbacks fire when authentication becomes
	// unrecoverable (refresh failed or a retried request got another 401).
	cbMu           sync.Mutex
	onUnauthorized []func()
}

// NewClient creates a CloudVault API client. baseURL is the API root,
// e.g. "https://vault.example.com/api". store must not be nil.
func NewClient(baseURL string, httpClient *http.Client, store CredentialStore, logger *slog.Logger) *Client {
	if store == nil {
		panic("api: NewClient requires a CredentialStore")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		store:      store,
		logger:     logger,
		userAgent:  defaultUserAgent,
		chunkSize:  ChunkSize,
		refresh:    newRefreshState(),
	}
}

// SetUserAgent overrides the User-Agent header for all requests.
func (c *Client) SetUserAgent(ua string) {
	if ua != "" {
		c.userAgent = ua
	}
}

// SetChunkSize overrides the upload chunk size. Values below one byte are
// ignored.
func (c *Client) SetChunkSize(n int64) {
	if n > 0 {
		c.chunkSize = n
	}
}

// BaseURL returns the API root the client was constructed with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OnUnauthorized registers a callback invoked when authentication fails
// unrecoverably. Observers (session teardown, UI) register here instead of
// the client knowing about them — the client never imports navigation code.
func (c *Client) OnUnauthorized(cb func()) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()

	c.onUnauthorized = append(c.onUnauthorized, cb)
}

// Do executes an HTTP request against the API. The path is appended to the
// client's base URL. For non-nil bodies, Content-Type is application/json.
// The caller is responsible for closing the response body on success.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	var payload []byte

	if body != nil {
		var err error

		payload, err = io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("api: reading request body: %w", err)
		}
	}

	return c.do(ctx, method, path, payload, "application/json", 0)
}

// do runs one pipeline pass. attempt counts prior submissions of this
// logical request: a 401 at attempt 0 triggers (or joins) a token refresh
// and resubmits with attempt 1; a 401 at attempt 1 is terminal. The counter
// is passed explicitly rather than stashed on shared request state so a
// request can never be replayed more than once.
func (c *Client) do(
	ctx context.Context, method, path string, payload []byte, contentType string, attempt int,
) (*http.Response, error) {
	resp, err := c.doOnce(ctx, method, path, payload, contentType)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("api: request canceled: %w", ctx.Err())
		}

		return nil, fmt.Errorf("api: %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	apiErr := readAPIError(resp)

	if resp.StatusCode != http.StatusUnauthorized {
		return nil, apiErr
	}

	if attempt > 0 {
		// Already resubmitted once after a refresh and still unauthorized.
		// Never re-queued: reject immediately and signal logout.
		c.logger.Warn("request unauthorized after refresh, logging out",
			slog.String("method", method),
			slog.String("path", path),
		)
		c.failAuth()

		return nil, apiErr
	}

	if _, refreshErr := c.awaitRefresh(ctx); refreshErr != nil {
		c.logger.Warn("token refresh failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", refreshErr.Error()),
		)

		// Reject with the triggering 401, normalized like every other
		// authentication failure.
		return nil, apiErr
	}

	c.logger.Debug("resubmitting request with refreshed token",
		slog.String("method", method),
		slog.String("path", path),
	)

	return c.do(ctx, method, path, payload, contentType, attempt+1)
}

// doOnce executes a single HTTP request (no interception). The stored access
// token is attached when present; otherwise the request goes out
// unauthenticated.
func (c *Client) doOnce(
	ctx context.Context, method, path string, payload []byte, contentType string,
) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if tok := c.store.AccessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}

	return c.httpClient.Do(req)
}

// failAuth clears stored credentials and notifies unauthorized observers.
// Called on any unrecoverable authentication failure.
func (c *Client) failAuth() {
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("clearing credentials failed", slog.String("error", err.Error()))
	}

	c.cbMu.Lock()
	cbs := make([]func(), len(c.onUnauthorized))
	copy(cbs, c.onUnauthorized)
	c.cbMu.Unlock()

	for _, cb := range cbs {
		cb()
	}
}

// readAPIError drains an error response into an *APIError. The payload is
// parsed best-effort: a non-JSON body still yields a classified error.
func readAPIError(resp *http.Response) *APIError {
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		body = nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-ID"),
		Err:        classifyStatus(resp.StatusCode),
	}

	var payload struct {
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}

	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.Message
		apiErr.Errors = payload.Errors
	}

	return apiErr
}

// getJSON issues a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decoding %s response: %w", path, err)
	}

	return nil
}

// sendJSON issues a request with a JSON-encoded body and, when out is
// non-nil, decodes the response into it. A nil out drains the body so the
// connection can be reused.
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encoding %s request: %w", path, err)
		}

		body = bytes.NewReader(encoded)
	}

	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
			return fmt.Errorf("api: draining %s response: %w", path, drainErr)
		}

		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decoding %s response: %w", path, err)
	}

	return nil
}
