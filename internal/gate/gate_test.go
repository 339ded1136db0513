// ABOUTME: Tests for the admin gate state machine
// ABOUTME: Covers all transitions including forced sign-out for non-admins

package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
	"github.com/streamrokuo/rokuo-admin/internal/session"
)

func adminSession(expiresAt time.Time) *backend.Session {
	return &backend.Session{
		AccessToken: "token-abc",
		ExpiresAt:   expiresAt.Unix(),
		User:        &backend.User{ID: "user-1", AppMetadata: backend.AppMetadata{IsAdmin: true}},
	}
}

func nonAdminSession(expiresAt time.Time) *backend.Session {
	return &backend.Session{
		AccessToken: "token-abc",
		ExpiresAt:   expiresAt.Unix(),
		User:        &backend.User{ID: "user-2"},
	}
}

func TestEvaluate(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)

	assert.Equal(t, StateLoading, Evaluate(nil, true, now))
	assert.Equal(t, StateUnauthenticated, Evaluate(nil, false, now))
	assert.Equal(t, StateUnauthorized, Evaluate(nonAdminSession(later), false, now))
	assert.Equal(t, StateAuthorized, Evaluate(adminSession(later), false, now))
}

func TestEvaluate_ExpiredSessionIsUnauthenticated(t *testing.T) {
	now := time.Now()
	// token invalidated after authorization: next evaluation falls back
	assert.Equal(t, StateUnauthenticated, Evaluate(adminSession(now.Add(-time.Minute)), false, now))
}

func TestGate_CheckSignsOutNonAdmin(t *testing.T) {
	logoutCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/logout" {
			logoutCalls++
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := backend.New(srv.URL, srv.URL, "anon-key", srv.Client())
	sessions := session.NewStore(client)
	sessions.Set(nonAdminSession(time.Now().Add(time.Hour)))

	g := New(sessions)
	state := g.Check(context.Background())
	require.Equal(t, StateUnauthorized, state)

	// the non-admin credential was revoked with the backend
	assert.Equal(t, 1, logoutCalls)
	assert.Nil(t, sessions.Session())

	// and the next check reports unauthenticated
	assert.Equal(t, StateUnauthenticated, g.Check(context.Background()))
}

func TestGate_CheckAuthorizedLeavesSessionAlone(t *testing.T) {
	client := backend.New("http://unused.invalid", "http://unused.invalid", "anon-key", nil)
	sessions := session.NewStore(client)
	sessions.Set(adminSession(time.Now().Add(time.Hour)))

	g := New(sessions)
	assert.Equal(t, StateAuthorized, g.Check(context.Background()))
	assert.NotNil(t, sessions.Session())
}

func TestGate_CheckLoading(t *testing.T) {
	client := backend.New("http://unused.invalid", "http://unused.invalid", "anon-key", nil)
	sessions := session.NewStore(client)

	g := New(sessions)
	assert.Equal(t, StateLoading, g.Check(context.Background()))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "unauthenticated", StateUnauthenticated.String())
	assert.Equal(t, "unauthorized", StateUnauthorized.String())
	assert.Equal(t, "authorized", StateAuthorized.String())
}
