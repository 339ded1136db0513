// ABOUTME: Users listing screen backed by the admin_list_users procedure
// ABOUTME: UUID-validated search plus best-effort subscription lookup per user

package console

import (
	"context"
	"log/slog"
	"strings"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
	"github.com/streamrokuo/rokuo-admin/internal/session"
)

// ErrInvalidUserSearch is the message shown when the search term is not a
// well-formed identifier. Detected locally; no network call is issued.
const ErrInvalidUserSearch = "Enter a valid user UUID to search."

// UsersScreen lists user records with their newest subscription.
type UsersScreen struct {
	core     screenCore
	client   *backend.Client
	sessions *session.Store
	logger   *slog.Logger

	page   int
	search string

	rows          []backend.AdminUserRow
	subscriptions map[string]*backend.SubscriptionRow
	total         int64
}

// UsersView is a render snapshot of the screen.
type UsersView struct {
	Rows          []backend.AdminUserRow
	Subscriptions map[string]*backend.SubscriptionRow
	Pager         Pager
	Search        string
	Loading       bool
	Err           string
}

// NewUsersScreen creates the users listing screen.
func NewUsersScreen(client *backend.Client, sessions *session.Store) *UsersScreen {
	return &UsersScreen{
		client:   client,
		sessions: sessions,
		logger:   slog.Default().With("component", "console", "screen", "users"),
	}
}

// SetSearch replaces the search term and resets to the first page.
func (s *UsersScreen) SetSearch(query string) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	s.search = query
	s.page = 0
}

// SetPage moves to the given page (floored at zero).
func (s *UsersScreen) SetPage(page int) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	s.page = clampPage(page)
}

// NextPage advances one page; a no-op on the last page.
func (s *UsersScreen) NextPage() {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	if (Pager{Page: s.page, Total: s.total}).CanNext() {
		s.page++
	}
}

// PrevPage goes back one page; a no-op on the first page.
func (s *UsersScreen) PrevPage() {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	if (Pager{Page: s.page, Total: s.total}).CanPrev() {
		s.page--
	}
}

// Load fetches the current page. A search term must be UUID-shaped or the
// screen fails locally without touching the network; the lookup then runs
// as an exact identifier match through the listing procedure. Subscriptions
// for the fetched users are a best-effort follow-up: their error surfaces
// but does not blank the user rows.
func (s *UsersScreen) Load(ctx context.Context) {
	s.core.mu.Lock()
	gen := s.core.beginLocked()
	page := s.page
	query := strings.TrimSpace(s.search)
	s.core.mu.Unlock()

	if query != "" && !backend.IsUUID(query) {
		s.core.fail(gen, ErrInvalidUserSearch, func() {
			s.rows = nil
			s.subscriptions = nil
			s.total = 0
		})
		return
	}

	token := s.sessions.Token()
	rows, total, err := s.client.AdminListUsers(ctx, token, PageSize, page*PageSize, query)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		s.core.fail(gen, err.Error(), func() {
			s.rows = nil
			s.subscriptions = nil
			s.total = 0
		})
		return
	}

	var subs map[string]*backend.SubscriptionRow
	var subsErr string
	if len(rows) > 0 {
		ids := make([]string, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}

		var subRows []backend.SubscriptionRow
		_, err := s.client.From("subscriptions").
			Select("id,user_id,status,starts_at,ends_at,plan:plans(id,name)").
			In("user_id", ids).
			Order("starts_at", true).
			Get(ctx, token, &subRows)
		if err != nil {
			s.logger.Error("failed to load subscriptions", "error", err)
			subsErr = err.Error()
		} else {
			subs = make(map[string]*backend.SubscriptionRow, len(subRows))
			for i := range subRows {
				sub := &subRows[i]
				// rows arrive newest-first; keep the newest per user
				if _, ok := subs[sub.UserID]; !ok {
					subs[sub.UserID] = sub
				}
			}
		}
	}

	s.core.apply(gen, func() {
		s.rows = rows
		s.total = total
		s.subscriptions = subs
		s.core.errMsg = subsErr
	})
}

// Snapshot returns the current render state.
func (s *UsersScreen) Snapshot() UsersView {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	return UsersView{
		Rows:          s.rows,
		Subscriptions: s.subscriptions,
		Pager:         Pager{Page: s.page, Total: s.total},
		Search:        s.search,
		Loading:       s.core.loading,
		Err:           s.core.errMsg,
	}
}
