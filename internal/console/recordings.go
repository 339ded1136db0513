// ABOUTME: Recordings listing screen with status, platform, and account filters
// ABOUTME: Platform filtering switches to an inner join on the embedded account

package console

import (
	"context"
	"log/slog"
	"strings"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
	"github.com/streamrokuo/rokuo-admin/internal/session"
)

// ErrInvalidAccountFilter is the message shown when the account filter is
// not a well-formed identifier. Detected locally; no network call is issued.
const ErrInvalidAccountFilter = "Live account ID must be a valid UUID."

// RecordingFilters narrows the recording listing.
type RecordingFilters struct {
	Status        string
	Platform      string
	LiveAccountID string
}

// RecordingsScreen lists recordings across all live accounts.
type RecordingsScreen struct {
	core     screenCore
	client   *backend.Client
	sessions *session.Store
	logger   *slog.Logger

	page    int
	filters RecordingFilters

	rows       []backend.RecordingRow
	total      int64
	watchingID string
}

// RecordingsView is a render snapshot of the screen.
type RecordingsView struct {
	Rows       []backend.RecordingRow
	Pager      Pager
	Filters    RecordingFilters
	WatchingID string
	Loading    bool
	Err        string
}

// NewRecordingsScreen creates the recordings listing screen.
func NewRecordingsScreen(client *backend.Client, sessions *session.Store) *RecordingsScreen {
	return &RecordingsScreen{
		client:   client,
		sessions: sessions,
		logger:   slog.Default().With("component", "console", "screen", "recordings"),
	}
}

// SetFilters replaces the filter set and resets to the first page.
func (s *RecordingsScreen) SetFilters(f RecordingFilters) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	s.filters = f
	s.page = 0
}

// SetPage moves to the given page (floored at zero).
func (s *RecordingsScreen) SetPage(page int) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	s.page = clampPage(page)
}

// NextPage advances one page; a no-op on the last page.
func (s *RecordingsScreen) NextPage() {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	if (Pager{Page: s.page, Total: s.total}).CanNext() {
		s.page++
	}
}

// PrevPage goes back one page; a no-op on the first page.
func (s *RecordingsScreen) PrevPage() {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	if (Pager{Page: s.page, Total: s.total}).CanPrev() {
		s.page--
	}
}

// Load fetches the current page of recordings. An account filter must be
// UUID-shaped or the screen fails locally. A platform filter makes the
// embedded account join inner so recordings of other platforms drop out of
// both the page and the total.
func (s *RecordingsScreen) Load(ctx context.Context) {
	s.core.mu.Lock()
	gen := s.core.beginLocked()
	page := s.page
	filters := s.filters
	s.core.mu.Unlock()

	if filters.LiveAccountID != "" && !backend.IsUUID(filters.LiveAccountID) {
		s.core.fail(gen, ErrInvalidAccountFilter, func() {
			s.rows = nil
			s.total = 0
		})
		return
	}

	sel := "id,live_account_id,recording_key,status,started_at,ended_at,duration_sec,size_bytes,storage_path,live_accounts(id,platform,account_id)"
	if filters.Platform != "" {
		sel = "id,live_account_id,recording_key,status,started_at,ended_at,duration_sec,size_bytes,storage_path,live_accounts!inner(id,platform,account_id)"
	}

	q := s.client.From("recordings").Select(sel).Count().Order("started_at", true)
	if filters.Status != "" {
		q.Eq("status", filters.Status)
	}
	if filters.Platform != "" {
		q.Eq("live_accounts.platform", strings.ToLower(filters.Platform))
	}
	if filters.LiveAccountID != "" {
		q.Eq("live_account_id", strings.TrimSpace(filters.LiveAccountID))
	}
	from, to := (Pager{Page: page}).Window()
	q.Range(from, to)

	var rows []backend.RecordingRow
	total, err := q.Get(ctx, s.sessions.Token(), &rows)
	if err != nil {
		s.logger.Error("failed to list recordings", "error", err)
		s.core.fail(gen, err.Error(), func() {
			s.rows = nil
			s.total = 0
		})
		return
	}

	s.core.apply(gen, func() {
		s.rows = rows
		s.total = total
	})
}

// Watch requests a playback grant for one recording on the current page.
// Non-watchable recordings are rejected locally. The grant is returned to
// the caller and never stored on the screen.
func (s *RecordingsScreen) Watch(ctx context.Context, recordingID string) (*backend.WatchURLGrant, error) {
	s.core.mu.Lock()
	var target *backend.RecordingRow
	for i := range s.rows {
		if s.rows[i].ID == recordingID {
			target = &s.rows[i]
			break
		}
	}
	if target == nil {
		s.core.mu.Unlock()
		return nil, backend.ErrNotFound
	}
	if !target.Watchable() {
		s.core.mu.Unlock()
		return nil, ErrRecordingNotWatchable
	}
	s.watchingID = recordingID
	s.core.mu.Unlock()

	defer func() {
		s.core.mu.Lock()
		if s.watchingID == recordingID {
			s.watchingID = ""
		}
		s.core.mu.Unlock()
	}()

	grant, err := fetchWatchURL(ctx, s.client, s.sessions, recordingID)
	if err != nil {
		s.logger.Error("failed to fetch watch URL", "recording_id", recordingID, "error", err)
		return nil, err
	}
	return grant, nil
}

// Snapshot returns the current render state.
func (s *RecordingsScreen) Snapshot() RecordingsView {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	return RecordingsView{
		Rows:       s.rows,
		Pager:      Pager{Page: s.page, Total: s.total},
		Filters:    s.filters,
		WatchingID: s.watchingID,
		Loading:    s.core.loading,
		Err:        s.core.errMsg,
	}
}
