// ABOUTME: Live account detail screen: account record, follower count, paged recordings
// ABOUTME: Recording pages reload independently of the account record

package console

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
	"github.com/streamrokuo/rokuo-admin/internal/session"
)

// ErrInvalidLiveAccountID is the message shown when the route identifier is
// not a well-formed identifier. Detected locally; no network call is issued.
const ErrInvalidLiveAccountID = "Invalid live account ID."

// LiveAccountDetailScreen shows a single live account with its active
// follower count and a paged recording history.
type LiveAccountDetailScreen struct {
	core     screenCore
	client   *backend.Client
	sessions *session.Store
	logger   *slog.Logger

	accountID    string
	page         int
	statusFilter string

	account         *backend.LiveAccountRow
	followerCount   int64
	recordings      []backend.RecordingRow
	recordingsTotal int64
	notFound        bool
	watchingID      string
}

// LiveAccountDetailView is a render snapshot of the screen.
type LiveAccountDetailView struct {
	Account       *backend.LiveAccountRow
	FollowerCount int64
	Recordings    []backend.RecordingRow
	Pager         Pager
	StatusFilter  string
	NotFound      bool
	WatchingID    string
	Loading       bool
	Err           string
}

// NewLiveAccountDetailScreen creates the live account detail screen.
func NewLiveAccountDetailScreen(client *backend.Client, sessions *session.Store) *LiveAccountDetailScreen {
	return &LiveAccountDetailScreen{
		client:   client,
		sessions: sessions,
		logger:   slog.Default().With("component", "console", "screen", "live_account_detail"),
	}
}

// SetAccountID changes the target account and resets the recording page.
func (s *LiveAccountDetailScreen) SetAccountID(id string) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	s.accountID = id
	s.page = 0
}

// SetStatusFilter narrows the recording history and resets to the first page.
func (s *LiveAccountDetailScreen) SetStatusFilter(status string) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	s.statusFilter = status
	s.page = 0
}

// SetPage moves the recording history to the given page (floored at zero).
func (s *LiveAccountDetailScreen) SetPage(page int) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	s.page = clampPage(page)
}

// NextPage advances the recording history one page; a no-op on the last page.
func (s *LiveAccountDetailScreen) NextPage() {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	if (Pager{Page: s.page, Total: s.recordingsTotal}).CanNext() {
		s.page++
	}
}

// PrevPage goes back one page; a no-op on the first page.
func (s *LiveAccountDetailScreen) PrevPage() {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	if (Pager{Page: s.page, Total: s.recordingsTotal}).CanPrev() {
		s.page--
	}
}

// Load fetches the account, its active follower count, and the current page
// of its recordings. A malformed identifier fails locally; a well-formed
// identifier that matches no account is reported as not-found. Follower and
// recording failures surface as the screen error without discarding the
// account record.
func (s *LiveAccountDetailScreen) Load(ctx context.Context) {
	s.core.mu.Lock()
	gen := s.core.beginLocked()
	accountID := strings.TrimSpace(s.accountID)
	page := s.page
	statusFilter := s.statusFilter
	s.core.mu.Unlock()

	reset := func() {
		s.account = nil
		s.followerCount = 0
		s.recordings = nil
		s.recordingsTotal = 0
		s.notFound = false
	}

	if !backend.IsUUID(accountID) {
		s.core.fail(gen, ErrInvalidLiveAccountID, reset)
		return
	}

	token := s.sessions.Token()
	var account backend.LiveAccountRow
	err := s.client.From("live_accounts").
		Select("id,platform,account_id,canonical_url,status,created_at,updated_at").
		Eq("id", accountID).
		GetOne(ctx, token, &account)
	if errors.Is(err, backend.ErrNotFound) {
		s.core.apply(gen, func() {
			reset()
			s.notFound = true
		})
		return
	}
	if err != nil {
		s.logger.Error("failed to load live account", "live_account_id", accountID, "error", err)
		s.core.fail(gen, err.Error(), reset)
		return
	}

	var loadErr string
	followerCount, err := s.client.From("follows").
		Eq("live_account_id", accountID).
		Eq("status", "active").
		CountOnly(ctx, token)
	if err != nil {
		s.logger.Error("failed to count followers", "live_account_id", accountID, "error", err)
		loadErr = err.Error()
	}

	rq := s.client.From("recordings").
		Select("id,live_account_id,recording_key,status,started_at,ended_at,duration_sec,size_bytes,storage_path").
		Count().
		Eq("live_account_id", accountID).
		Order("started_at", true)
	if statusFilter != "" {
		rq.Eq("status", statusFilter)
	}
	from, to := (Pager{Page: page}).Window()
	rq.Range(from, to)

	var recordings []backend.RecordingRow
	recordingsTotal, err := rq.Get(ctx, token, &recordings)
	if err != nil {
		s.logger.Error("failed to load recordings", "live_account_id", accountID, "error", err)
		loadErr = err.Error()
		recordings = nil
		recordingsTotal = 0
	}

	s.core.apply(gen, func() {
		s.account = &account
		s.followerCount = followerCount
		s.recordings = recordings
		s.recordingsTotal = recordingsTotal
		s.notFound = false
		s.core.errMsg = loadErr
	})
}

// Watch requests a playback grant for one recording in the history. See
// RecordingsScreen.Watch for the contract.
func (s *LiveAccountDetailScreen) Watch(ctx context.Context, recordingID string) (*backend.WatchURLGrant, error) {
	s.core.mu.Lock()
	var target *backend.RecordingRow
	for i := range s.recordings {
		if s.recordings[i].ID == recordingID {
			target = &s.recordings[i]
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
func (s *LiveAccountDetailScreen) Snapshot() LiveAccountDetailView {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	return LiveAccountDetailView{
		Account:       s.account,
		FollowerCount: s.followerCount,
		Recordings:    s.recordings,
		Pager:         Pager{Page: s.page, Total: s.recordingsTotal},
		StatusFilter:  s.statusFilter,
		NotFound:      s.notFound,
		WatchingID:    s.watchingID,
		Loading:       s.core.loading,
		Err:           s.core.errMsg,
	}
}
