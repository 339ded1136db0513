// ABOUTME: Tests for the live accounts listing screen
// ABOUTME: Follower counting over the page and filter/page interaction

package console

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
)

func liveAccountRow(id, platform, accountID string) backend.LiveAccountRow {
	return backend.LiveAccountRow{
		ID:        id,
		Platform:  platform,
		AccountID: accountID,
		Status:    "active",
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestLiveAccountsScreen_CountsActiveFollowersPerAccount(t *testing.T) {
	const (
		accA = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
		accB = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
	)
	client, sessions, _ := adminEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/live_accounts":
			writeRows(t, w, []backend.LiveAccountRow{
				liveAccountRow(accA, "twitch", "streamer-a"),
				liveAccountRow(accB, "youtube", "streamer-b"),
			}, 2)
		case "/rest/v1/follows":
			assert.Equal(t, "eq.active", r.URL.Query().Get("status"))
			writeRows(t, w, []backend.FollowRow{
				{UserID: "u1", LiveAccountID: accA, Status: "active"},
				{UserID: "u2", LiveAccountID: accA, Status: "active"},
				{UserID: "u1", LiveAccountID: accB, Status: "active"},
			}, 3)
		default:
			http.NotFound(w, r)
		}
	}))

	s := NewLiveAccountsScreen(client, sessions)
	s.Load(context.Background())

	view := s.Snapshot()
	assert.Empty(t, view.Err)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, 2, view.Followers[accA])
	assert.Equal(t, 1, view.Followers[accB])
}

func TestLiveAccountsScreen_FollowerErrorKeepsAccountRows(t *testing.T) {
	client, sessions, _ := adminEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/live_accounts":
			writeRows(t, w, []backend.LiveAccountRow{liveAccountRow("cccccccc-cccc-cccc-cccc-cccccccccccc", "twitch", "s")}, 1)
		case "/rest/v1/follows":
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"message":"follows unavailable"}`))
		default:
			http.NotFound(w, r)
		}
	}))

	s := NewLiveAccountsScreen(client, sessions)
	s.Load(context.Background())

	view := s.Snapshot()
	assert.Equal(t, "follows unavailable", view.Err)
	assert.Len(t, view.Rows, 1)
	assert.Nil(t, view.Followers)
}

func TestLiveAccountsScreen_FiltersEncodeAndResetPage(t *testing.T) {
	var query string
	client, sessions, _ := adminEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rest/v1/live_accounts" {
			query = r.URL.RawQuery
			writeRows(t, w, []backend.LiveAccountRow{}, 0)
			return
		}
		http.NotFound(w, r)
	}))

	s := NewLiveAccountsScreen(client, sessions)
	s.SetPage(3)
	s.SetFilters(LiveAccountFilters{Platform: "twitch", Status: "active"})
	s.Load(context.Background())

	assert.Contains(t, query, "platform=eq.twitch")
	assert.Contains(t, query, "status=eq.active")
	assert.Equal(t, 0, s.Snapshot().Pager.Page)
}
