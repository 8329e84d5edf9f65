package elearn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Authenticator supplies the bearer token for outbound calls and knows
// how to refresh it. SessionStore is the production implementation.
type Authenticator interface {
	AccessToken() string
	Refresh(ctx context.Context) error
}

// Client is the single point of egress to the platform API. Every call
// attaches the current bearer token; a 401 triggers exactly one
// refresh-and-replay before the error is surfaced.
type Client struct {
	baseURL string
	http    *http.Client
	auth    Authenticator
}

// NewClient creates a client for the API at baseURL. httpClient may be
// nil, in which case http.DefaultClient is used.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BindAuth attaches the authenticator used for bearer injection and 401
// recovery. Called by NewSessionStore.
func (c *Client) BindAuth(auth Authenticator) {
	c.auth = auth
}

// envelope is the platform's uniform response wrapper. Only Data is
// handed to callers.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type requestOptions struct {
	// skipAuth leaves the Authorization header off (login, signup, refresh).
	skipAuth bool
	// noRetry disables the one-shot refresh-and-replay. Set on auth
	// endpoints, where a 401 means bad credentials rather than a stale
	// token, and on the replayed request itself.
	noRetry bool
	// bearer overrides the stored token (used by token verification).
	bearer string
}

func (c *Client) get(ctx context.Context, path string, out any, opt requestOptions) error {
	return c.do(ctx, http.MethodGet, path, nil, out, opt)
}

func (c *Client) post(ctx context.Context, path string, body, out any, opt requestOptions) error {
	return c.do(ctx, http.MethodPost, path, body, out, opt)
}

func (c *Client) put(ctx context.Context, path string, body, out any, opt requestOptions) error {
	return c.do(ctx, http.MethodPut, path, body, out, opt)
}

// do performs one API call. The 401 handling is an explicit guarded
// retry with depth 1: attempt, refresh, replay once, propagate.
func (c *Client) do(ctx context.Context, method, path string, body, out any, opt requestOptions) error {
	err := c.doOnce(ctx, method, path, body, out, opt)
	if err == nil || opt.noRetry || !IsUnauthorized(err) || c.auth == nil {
		return err
	}

	Log.Debug("401 response, attempting token refresh", zap.String("path", path))
	if refreshErr := c.auth.Refresh(ctx); refreshErr != nil {
		// Refresh already forced a logout; report the session as gone.
		return fmt.Errorf("%w: %v", ErrSessionExpired, refreshErr)
	}

	opt.noRetry = true
	return c.doOnce(ctx, method, path, body, out, opt)
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out any, opt requestOptions) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setBearer(req, opt)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func (c *Client) setBearer(req *http.Request, opt requestOptions) {
	switch {
	case opt.bearer != "":
		req.Header.Set("Authorization", "Bearer "+opt.bearer)
	case opt.skipAuth || c.auth == nil:
	default:
		if token := c.auth.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

func decodeResponse(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	// Error bodies are not always enveloped; tolerate both.
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if !env.Success && env.Message != "" {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response payload: %w", err)
	}
	return nil
}

// upload sends a multipart form with a single file field. It follows the
// same bearer and refresh-and-replay rules as do.
func (c *Client) upload(ctx context.Context, path, field, filename string, content []byte, out any) error {
	send := func() error {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile(field, filename)
		if err != nil {
			return fmt.Errorf("failed to build multipart body: %w", err)
		}
		if _, err := part.Write(content); err != nil {
			return fmt.Errorf("failed to write multipart body: %w", err)
		}
		if err := writer.Close(); err != nil {
			return fmt.Errorf("failed to finish multipart body: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		c.setBearer(req, requestOptions{})

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()
		return decodeResponse(resp, out)
	}

	err := send()
	if err == nil || !IsUnauthorized(err) || c.auth == nil {
		return err
	}
	if refreshErr := c.auth.Refresh(ctx); refreshErr != nil {
		return fmt.Errorf("%w: %v", ErrSessionExpired, refreshErr)
	}
	return send()
}
