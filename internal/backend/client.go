// ABOUTME: HTTP client core for the managed backend REST/auth/API surfaces
// ABOUTME: Builds authenticated requests and decodes backend error bodies

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// ErrNotFound is returned when a single-entity read matches zero rows.
// It is a distinct outcome, not a backend error.
var ErrNotFound = errors.New("not found")

// APIError carries a backend failure. Message is the exact text the backend
// returned and is what screens surface to the operator.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the managed backend. All console data access goes through
// it; the console keeps no storage of its own.
type Client struct {
	baseURL    string
	apiURL     string
	anonKey    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a backend client. baseURL serves auth and REST; apiURL serves
// the bespoke admin API (pass baseURL when they are the same host). The
// http.Client is supplied by the caller so timeouts are a deployment choice.
func New(baseURL, apiURL, anonKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiURL:     strings.TrimRight(apiURL, "/"),
		anonKey:    anonKey,
		httpClient: httpClient,
		logger:     slog.Default().With("component", "backend"),
	}
}

// From starts a REST query against the named table.
func (c *Client) From(table string) *Query {
	return &Query{c: c, table: table}
}

// newRequest builds a request with the backend auth headers. When token is
// empty the anon key doubles as the bearer credential, matching how the
// backend expects unauthenticated REST calls.
func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// postJSON issues a JSON POST and decodes the response into dest (which may
// be nil for fire-and-forget calls).
func (c *Client) postJSON(ctx context.Context, url string, token string, payload any, dest any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, url, bytes.NewReader(data), token)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if dest == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeError turns a non-2xx response into an APIError. The backend sends
// JSON {"message": ...} on REST errors and {"error_description": ...} or
// {"msg": ...} on auth errors; anything else falls back to the raw body text
// so the operator sees exactly what the backend said.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var payload struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
	}
	message := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			message = payload.Message
		case payload.ErrorDescription != "":
			message = payload.ErrorDescription
		case payload.Msg != "":
			message = payload.Msg
		}
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
