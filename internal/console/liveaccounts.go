// ABOUTME: Live accounts listing screen with per-account active follower counts
// ABOUTME: Follower counts are a best-effort secondary lookup over the page rows

package console

import (
	"context"
	"log/slog"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
	"github.com/streamrokuo/rokuo-admin/internal/session"
)

// LiveAccountFilters narrows the live account listing.
type LiveAccountFilters struct {
	Platform string
	Status   string
}

// LiveAccountsScreen lists monitored live accounts.
type LiveAccountsScreen struct {
	core     screenCore
	client   *backend.Client
	sessions *session.Store
	logger   *slog.Logger

	page    int
	filters LiveAccountFilters

	rows      []backend.LiveAccountRow
	followers map[string]int
	total     int64
}

// LiveAccountsView is a render snapshot of the screen.
type LiveAccountsView struct {
	Rows      []backend.LiveAccountRow
	Followers map[string]int
	Pager     Pager
	Filters   LiveAccountFilters
	Loading   bool
	Err       string
}

// NewLiveAccountsScreen creates the live accounts listing screen.
func NewLiveAccountsScreen(client *backend.Client, sessions *session.Store) *LiveAccountsScreen {
	return &LiveAccountsScreen{
		client:   client,
		sessions: sessions,
		logger:   slog.Default().With("component", "console", "screen", "live_accounts"),
	}
}

// SetFilters replaces the filter set and resets to the first page.
func (s *LiveAccountsScreen) SetFilters(f LiveAccountFilters) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	s.filters = f
	s.page = 0
}

// SetPage moves to the given page (floored at zero).
func (s *LiveAccountsScreen) SetPage(page int) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	s.page = clampPage(page)
}

// NextPage advances one page; a no-op on the last page.
func (s *LiveAccountsScreen) NextPage() {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	if (Pager{Page: s.page, Total: s.total}).CanNext() {
		s.page++
	}
}

// PrevPage goes back one page; a no-op on the first page.
func (s *LiveAccountsScreen) PrevPage() {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	if (Pager{Page: s.page, Total: s.total}).CanPrev() {
		s.page--
	}
}

// Load fetches the current page of accounts, then counts active followers
// for the fetched page. A follower count failure surfaces as the screen
// error but does not blank the account rows.
func (s *LiveAccountsScreen) Load(ctx context.Context) {
	s.core.mu.Lock()
	gen := s.core.beginLocked()
	page := s.page
	filters := s.filters
	s.core.mu.Unlock()

	q := s.client.From("live_accounts").
		Select("id,platform,account_id,canonical_url,status,created_at,updated_at").
		Count().
		Order("created_at", true)
	if filters.Platform != "" {
		q.Eq("platform", filters.Platform)
	}
	if filters.Status != "" {
		q.Eq("status", filters.Status)
	}
	from, to := (Pager{Page: page}).Window()
	q.Range(from, to)

	var rows []backend.LiveAccountRow
	token := s.sessions.Token()
	total, err := q.Get(ctx, token, &rows)
	if err != nil {
		s.logger.Error("failed to list live accounts", "error", err)
		s.core.fail(gen, err.Error(), func() {
			s.rows = nil
			s.followers = nil
			s.total = 0
		})
		return
	}

	var followers map[string]int
	var followErr string
	if len(rows) > 0 {
		ids := make([]string, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}

		var followRows []backend.FollowRow
		_, err := s.client.From("follows").
			Select("live_account_id").
			Eq("status", "active").
			In("live_account_id", ids).
			Get(ctx, token, &followRows)
		if err != nil {
			s.logger.Error("failed to count followers", "error", err)
			followErr = err.Error()
		} else {
			followers = make(map[string]int, len(rows))
			for _, f := range followRows {
				followers[f.LiveAccountID]++
			}
		}
	}

	s.core.apply(gen, func() {
		s.rows = rows
		s.total = total
		s.followers = followers
		s.core.errMsg = followErr
	})
}

// Snapshot returns the current render state.
func (s *LiveAccountsScreen) Snapshot() LiveAccountsView {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	return LiveAccountsView{
		Rows:      s.rows,
		Followers: s.followers,
		Pager:     Pager{Page: s.page, Total: s.total},
		Filters:   s.filters,
		Loading:   s.core.loading,
		Err:       s.core.errMsg,
	}
}
