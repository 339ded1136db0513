// ABOUTME: Watch-URL grants shared by the recording screens
// ABOUTME: Grants are ephemeral and require a live admin session

package console

import (
	"context"
	"errors"
	"time"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
	"github.com/streamrokuo/rokuo-admin/internal/session"
)

// ErrNoSessionForWatch is returned when a watch URL is requested without a
// usable session.
var ErrNoSessionForWatch = errors.New("No active session for watch URL.")

// ErrRecordingNotWatchable rejects a watch request for a recording that
// exists on the current page but is not ready for playback. Distinct from
// not-found so the operator is not told a visible recording is missing.
var ErrRecordingNotWatchable = errors.New("Recording is not ready for playback.")

// fetchWatchURL requests a short-lived playback grant for the recording.
// The session is revalidated at request time; a missing or expired session
// fails before any network round trip. Grants are returned to the caller and
// never retained by any screen.
func fetchWatchURL(ctx context.Context, client *backend.Client, sessions *session.Store, recordingID string) (*backend.WatchURLGrant, error) {
	sess := sessions.Session()
	if sess == nil || sess.Expired(time.Now()) {
		return nil, ErrNoSessionForWatch
	}
	return client.WatchURL(ctx, sess.AccessToken, recordingID)
}
