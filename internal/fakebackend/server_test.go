// ABOUTME: End-to-end tests driving the fake backend through the real client
// ABOUTME: Auth, REST reads, the listing procedure, patches, and watch URLs

package fakebackend

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
)

func newTestBackend(t *testing.T) (*backend.Client, *Store) {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(NewServer(store, []byte("test-secret"), "https://media.test"))
	t.Cleanup(srv.Close)

	return backend.New(srv.URL, srv.URL, "anon-key", srv.Client()), store
}

func signInAdmin(t *testing.T, client *backend.Client, store *Store) string {
	t.Helper()
	require.NoError(t, store.InsertUser(User{
		ID: "admin-0000-4000-8000-000000000000", Email: "ops@example.com", Password: "hunter22", IsAdmin: true,
	}))
	sess, err := client.SignIn(context.Background(), "ops@example.com", "hunter22")
	require.NoError(t, err)
	return sess.AccessToken
}

func TestSignIn(t *testing.T) {
	client, store := newTestBackend(t)
	require.NoError(t, store.InsertUser(User{ID: "u-1", Email: "mara@example.com", Password: "watchparty"}))

	sess, err := client.SignIn(context.Background(), "mara@example.com", "watchparty")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.AccessToken)
	require.NotNil(t, sess.User)
	assert.False(t, sess.User.IsAdmin())
	assert.False(t, sess.Expired(time.Now()))
}

func TestSignIn_BadCredentials(t *testing.T) {
	client, store := newTestBackend(t)
	require.NoError(t, store.InsertUser(User{ID: "u-1", Email: "mara@example.com", Password: "watchparty"}))

	_, err := client.SignIn(context.Background(), "mara@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", err.Error())
}

func TestRest_RequiresAdmin(t *testing.T) {
	client, store := newTestBackend(t)
	require.NoError(t, store.InsertUser(User{ID: "u-1", Email: "mara@example.com", Password: "watchparty"}))
	sess, err := client.SignIn(context.Background(), "mara@example.com", "watchparty")
	require.NoError(t, err)

	var rows []backend.SupportTicketRow
	_, err = client.From("support_tickets").Select("*").Get(context.Background(), sess.AccessToken, &rows)
	require.Error(t, err)
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)
}

func TestRest_FilterOrderAndRange(t *testing.T) {
	client, store := newTestBackend(t)
	token := signInAdmin(t, client, store)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		status := "open"
		if i%5 == 0 {
			status = "closed"
		}
		require.NoError(t, store.InsertTicket(
			fmt.Sprintf("t-%02d", i), "u-1", "mara@example.com", "bug",
			"Subject", "Message", "normal", status, base.Add(time.Duration(i)*time.Hour)))
	}

	var rows []backend.SupportTicketRow
	total, err := client.From("support_tickets").
		Select("*").
		Count().
		Eq("status", "open").
		Order("created_at", true).
		Range(0, 19).
		Get(context.Background(), token, &rows)
	require.NoError(t, err)

	assert.Equal(t, int64(20), total)
	require.Len(t, rows, 20)
	// newest first
	assert.True(t, rows[0].CreatedAt.After(rows[19].CreatedAt))

	// second page carries the remainder
	rows = nil
	total, err = client.From("support_tickets").
		Select("*").
		Count().
		Eq("status", "open").
		Order("created_at", true).
		Range(20, 39).
		Get(context.Background(), token, &rows)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)
	assert.Len(t, rows, 0)
}

func TestRest_OrSearchAndIlike(t *testing.T) {
	client, store := newTestBackend(t)
	token := signInAdmin(t, client, store)

	now := time.Now()
	require.NoError(t, store.InsertTicket("t-1", "u-1", "mara@example.com", "bug", "VPN blocks playback", "m", "normal", "open", now))
	require.NoError(t, store.InsertTicket("t-2", "u-2", "jun@example.com", "bug", "Other subject", "m", "normal", "open", now))
	require.NoError(t, store.InsertTicket("t-3", "u-3", "vpn-fan@example.com", "bug", "Unrelated", "m", "normal", "open", now))

	var rows []backend.SupportTicketRow
	_, err := client.From("support_tickets").
		Select("*").
		Or("subject.ilike.%vpn%", "email.ilike.%vpn%").
		Order("created_at", true).
		Get(context.Background(), token, &rows)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	ids := []string{rows[0].ID, rows[1].ID}
	assert.Contains(t, ids, "t-1")
	assert.Contains(t, ids, "t-3")
}

func TestRest_EmbedAndInnerJoin(t *testing.T) {
	client, store := newTestBackend(t)
	token := signInAdmin(t, client, store)

	now := time.Now()
	require.NoError(t, store.InsertLiveAccount("acc-tw", "twitch", "nebula", "", "active", now))
	require.NoError(t, store.InsertLiveAccount("acc-yt", "youtube", "lateshift", "", "active", now))
	require.NoError(t, store.InsertRecording("rec-tw", "acc-tw", "k1", "ready", "p/1", now))
	require.NoError(t, store.InsertRecording("rec-yt", "acc-yt", "k2", "ready", "p/2", now))

	var rows []backend.RecordingRow
	total, err := client.From("recordings").
		Select("id,live_account_id,recording_key,status,started_at,storage_path,live_accounts!inner(id,platform,account_id)").
		Count().
		Eq("live_accounts.platform", "twitch").
		Order("started_at", true).
		Get(context.Background(), token, &rows)
	require.NoError(t, err)

	// the inner join narrows the total, not just the page
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, "rec-tw", rows[0].ID)
	require.NotNil(t, rows[0].LiveAccount.Value)
	assert.Equal(t, "twitch", rows[0].LiveAccount.Value.Platform)
}

func TestRest_AliasedEmbed(t *testing.T) {
	client, store := newTestBackend(t)
	token := signInAdmin(t, client, store)

	require.NoError(t, store.InsertUser(User{ID: "u-1", Email: "mara@example.com", Password: "x"}))
	require.NoError(t, store.InsertPlan("plan-1", "Pro", map[string]any{"max_follows": 25}))
	require.NoError(t, store.InsertSubscription("sub-1", "u-1", "plan-1", "active", time.Now().Add(-time.Hour), time.Now().Add(time.Hour)))

	var sub backend.SubscriptionRow
	err := client.From("subscriptions").
		Select("id,user_id,status,starts_at,ends_at,plan:plans(id,name,features)").
		Eq("user_id", "u-1").
		GetOne(context.Background(), token, &sub)
	require.NoError(t, err)
	require.NotNil(t, sub.Plan.Value)
	assert.Equal(t, "Pro", sub.Plan.Value.Name)
	assert.Equal(t, float64(25), sub.Plan.Value.Features["max_follows"])
}

func TestRest_CountOnly(t *testing.T) {
	client, store := newTestBackend(t)
	token := signInAdmin(t, client, store)

	now := time.Now()
	require.NoError(t, store.InsertUser(User{ID: "u-1", Email: "mara@example.com", Password: "x"}))
	require.NoError(t, store.InsertUser(User{ID: "u-2", Email: "jun@example.com", Password: "x"}))
	require.NoError(t, store.InsertLiveAccount("acc-1", "twitch", "nebula", "", "active", now))
	require.NoError(t, store.InsertFollow("u-1", "acc-1", "active", now))
	require.NoError(t, store.InsertFollow("u-2", "acc-1", "paused", now))

	count, err := client.From("follows").
		Eq("live_account_id", "acc-1").
		Eq("status", "active").
		CountOnly(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRest_PatchTicket(t *testing.T) {
	client, store := newTestBackend(t)
	token := signInAdmin(t, client, store)

	require.NoError(t, store.InsertTicket("t-1", "u-1", "mara@example.com", "bug", "Subject", "Message", "normal", "open", time.Now()))

	var updated struct {
		Status    string    `json:"status"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	err := client.From("support_tickets").
		Select("status,updated_at").
		Eq("id", "t-1").
		UpdateOne(context.Background(), token, map[string]string{
			"status":     "resolved",
			"updated_at": formatTime(time.Now()),
		}, &updated)
	require.NoError(t, err)
	assert.Equal(t, "resolved", updated.Status)

	// unknown id affects zero rows
	err = client.From("support_tickets").
		Select("status,updated_at").
		Eq("id", "t-missing").
		UpdateOne(context.Background(), token, map[string]string{"status": "resolved"}, nil)
	assert.True(t, errors.Is(err, backend.ErrNotFound))
}

func TestAdminListUsers_PaginationAndFilter(t *testing.T) {
	client, store := newTestBackend(t)
	token := signInAdmin(t, client, store)

	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		require.NoError(t, store.InsertUser(User{
			ID:        formatTime(base.Add(time.Duration(i) * time.Minute)),
			Email:     formatTime(base.Add(time.Duration(i)*time.Minute)) + "@example.com",
			Password:  "x",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	rows, total, err := client.AdminListUsers(context.Background(), token, 20, 0, "")
	require.NoError(t, err)
	assert.Equal(t, int64(31), total) // 30 seeded plus the admin
	assert.Len(t, rows, 20)

	rows, _, err = client.AdminListUsers(context.Background(), token, 20, 20, "")
	require.NoError(t, err)
	assert.Len(t, rows, 11)

	rows, total, err = client.AdminListUsers(context.Background(), token, 20, 0, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
}

func TestWatchURL(t *testing.T) {
	client, store := newTestBackend(t)
	token := signInAdmin(t, client, store)

	now := time.Now()
	require.NoError(t, store.InsertLiveAccount("acc-1", "twitch", "nebula", "", "active", now))
	require.NoError(t, store.InsertRecording("rec-ready", "acc-1", "k1", "ready", "recordings/a.mp4", now))
	require.NoError(t, store.InsertRecording("rec-raw", "acc-1", "k2", "uploading", "", now))

	grant, err := client.WatchURL(context.Background(), token, "rec-ready")
	require.NoError(t, err)
	assert.Equal(t, "rec-ready", grant.RecordingID)
	assert.Contains(t, grant.URL, "recordings/a.mp4")
	assert.Contains(t, grant.URL, "sig=")
	assert.True(t, grant.ExpiresAt.After(now))

	_, err = client.WatchURL(context.Background(), token, "rec-raw")
	require.Error(t, err)
	assert.Equal(t, "Recording is not ready for playback", err.Error())

	_, err = client.WatchURL(context.Background(), token, "rec-missing")
	require.Error(t, err)
	assert.Equal(t, "Recording not found", err.Error())
}

func TestWatchURL_RequiresAdmin(t *testing.T) {
	client, store := newTestBackend(t)
	require.NoError(t, store.InsertUser(User{ID: "u-1", Email: "mara@example.com", Password: "watchparty"}))
	sess, err := client.SignIn(context.Background(), "mara@example.com", "watchparty")
	require.NoError(t, err)

	_, err = client.WatchURL(context.Background(), sess.AccessToken, "rec-any")
	require.Error(t, err)
	assert.Equal(t, "Admin access required", err.Error())
}

func TestSeed(t *testing.T) {
	client, store := newTestBackend(t)
	require.NoError(t, store.Seed("ops@example.com", "hunter22"))

	sess, err := client.SignIn(context.Background(), "ops@example.com", "hunter22")
	require.NoError(t, err)
	require.NotNil(t, sess.User)
	assert.True(t, sess.User.IsAdmin())

	rows, total, err := client.AdminListUsers(context.Background(), sess.AccessToken, 20, 0, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, rows, 4)
}
