// ABOUTME: User detail screen: account record, subscription, follows, and recent recordings
// ABOUTME: Validates the route identifier before any backend round trip

package console

import (
	"context"
	"log/slog"
	"strings"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
	"github.com/streamrokuo/rokuo-admin/internal/session"
)

// ErrInvalidUserID is the message shown when the route identifier is not a
// well-formed identifier. Detected locally; no network call is issued.
const ErrInvalidUserID = "Invalid user ID."

// UserDetailScreen shows a single user with their subscription, followed
// live accounts, and recent recordings from those accounts.
type UserDetailScreen struct {
	core     screenCore
	client   *backend.Client
	sessions *session.Store
	logger   *slog.Logger

	userID string

	user         *backend.AdminUserRow
	subscription *backend.SubscriptionRow
	follows      []backend.FollowRow
	recordings   []backend.RecordingRow
	notFound     bool
}

// UserDetailView is a render snapshot of the screen.
type UserDetailView struct {
	User         *backend.AdminUserRow
	Subscription *backend.SubscriptionRow
	Follows      []backend.FollowRow
	Recordings   []backend.RecordingRow
	NotFound     bool
	Loading      bool
	Err          string
}

// NewUserDetailScreen creates the user detail screen.
func NewUserDetailScreen(client *backend.Client, sessions *session.Store) *UserDetailScreen {
	return &UserDetailScreen{
		client:   client,
		sessions: sessions,
		logger:   slog.Default().With("component", "console", "screen", "user_detail"),
	}
}

// SetUserID changes the target user.
func (s *UserDetailScreen) SetUserID(id string) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	s.userID = id
}

// Load fetches the user and their related records. A malformed identifier
// fails locally; a well-formed identifier that matches no user is reported
// as not-found rather than an error. The subscription lookup is decorative
// and its failure is ignored; follows and recordings failures surface as
// the screen error without discarding the user record.
func (s *UserDetailScreen) Load(ctx context.Context) {
	s.core.mu.Lock()
	gen := s.core.beginLocked()
	userID := strings.TrimSpace(s.userID)
	s.core.mu.Unlock()

	reset := func() {
		s.user = nil
		s.subscription = nil
		s.follows = nil
		s.recordings = nil
		s.notFound = false
	}

	if !backend.IsUUID(userID) {
		s.core.fail(gen, ErrInvalidUserID, reset)
		return
	}

	token := s.sessions.Token()
	rows, _, err := s.client.AdminListUsers(ctx, token, 1, 0, userID)
	if err != nil {
		s.logger.Error("failed to load user", "user_id", userID, "error", err)
		s.core.fail(gen, err.Error(), reset)
		return
	}
	if len(rows) == 0 {
		s.core.apply(gen, func() {
			reset()
			s.notFound = true
		})
		return
	}
	user := rows[0]

	var subscription *backend.SubscriptionRow
	var sub backend.SubscriptionRow
	err = s.client.From("subscriptions").
		Select("id,user_id,status,starts_at,ends_at,billing_mode,cancel_at_period_end,plan:plans(id,name,features)").
		Eq("user_id", userID).
		Order("starts_at", true).
		GetOne(ctx, token, &sub)
	if err == nil {
		subscription = &sub
	}

	var loadErr string
	var follows []backend.FollowRow
	_, err = s.client.From("follows").
		Select("user_id,live_account_id,status,created_at,live_accounts(id,platform,account_id,canonical_url,status)").
		Eq("user_id", userID).
		Order("created_at", true).
		Get(ctx, token, &follows)
	if err != nil {
		s.logger.Error("failed to load follows", "user_id", userID, "error", err)
		loadErr = err.Error()
	}

	var recordings []backend.RecordingRow
	if loadErr == "" && len(follows) > 0 {
		accountIDs := make([]string, len(follows))
		for i, f := range follows {
			accountIDs[i] = f.LiveAccountID
		}
		_, err = s.client.From("recordings").
			Select("id,live_account_id,recording_key,status,started_at,ended_at,duration_sec,size_bytes,storage_path,live_accounts(id,platform,account_id)").
			In("live_account_id", accountIDs).
			Order("started_at", true).
			Limit(PageSize).
			Get(ctx, token, &recordings)
		if err != nil {
			s.logger.Error("failed to load recordings", "user_id", userID, "error", err)
			loadErr = err.Error()
		}
	}

	s.core.apply(gen, func() {
		s.user = &user
		s.subscription = subscription
		s.follows = follows
		s.recordings = recordings
		s.notFound = false
		s.core.errMsg = loadErr
	})
}

// Snapshot returns the current render state.
func (s *UserDetailScreen) Snapshot() UserDetailView {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	return UserDetailView{
		User:         s.user,
		Subscription: s.subscription,
		Follows:      s.follows,
		Recordings:   s.recordings,
		NotFound:     s.notFound,
		Loading:      s.core.loading,
		Err:          s.core.errMsg,
	}
}
