// ABOUTME: Client for the bespoke admin watch-URL endpoint
// ABOUTME: Exchanges a recording id for a short-lived signed playback URL

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WatchURLGrant is a signed, time-limited playback grant. Nothing is
// persisted: the grant lives only as long as the screen that requested it.
type WatchURLGrant struct {
	RecordingID string    `json:"recording_id"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// WatchURL requests a playback URL for the recording from the bespoke admin
// endpoint. The caller must hold a live session; token is its bearer
// credential. Failure bodies are plain text and surface verbatim.
func (c *Client) WatchURL(ctx context.Context, token, recordingID string) (*WatchURLGrant, error) {
	url := c.apiURL + "/api/v1/admin/recordings/" + recordingID + "/watch-url"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		message := strings.TrimSpace(string(body))
		if message == "" {
			message = "Failed to load watch URL"
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	var grant WatchURLGrant
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return nil, fmt.Errorf("decoding watch URL response: %w", err)
	}
	return &grant, nil
}
