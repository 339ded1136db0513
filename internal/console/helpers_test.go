// ABOUTME: Shared fixtures for the screen controller tests
// ABOUTME: Canned REST responses with exact Content-Range totals

package console

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
	"github.com/streamrokuo/rokuo-admin/internal/session"
)

// adminEnv bundles a backend client and a signed-in session store pointed at
// a test server.
func adminEnv(t *testing.T, handler http.Handler) (*backend.Client, *session.Store, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := backend.New(srv.URL, srv.URL, "anon-key", srv.Client())
	sessions := session.NewStore(client)
	sessions.Set(&backend.Session{
		AccessToken: "token-abc",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		User:        &backend.User{ID: "admin-1", AppMetadata: backend.AppMetadata{IsAdmin: true}},
	})
	return client, sessions, srv
}

// writeRows serves a row page with an exact total in Content-Range.
func writeRows(t *testing.T, w http.ResponseWriter, rows any, total int) {
	t.Helper()
	data, err := json.Marshal(rows)
	require.NoError(t, err)

	count := 0
	var probe []json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		count = len(probe)
	}
	if count == 0 {
		w.Header().Set("Content-Range", fmt.Sprintf("*/%d", total))
	} else {
		w.Header().Set("Content-Range", fmt.Sprintf("0-%d/%d", count-1, total))
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func ticketRow(id, status string) backend.SupportTicketRow {
	return backend.SupportTicketRow{
		ID:        id,
		UserID:    "11111111-1111-1111-1111-111111111111",
		Email:     "user@example.com",
		Category:  backend.TicketCategoryBug,
		Subject:   "Playback stalls",
		Message:   "The stream freezes after a minute.",
		Severity:  "high",
		Status:    status,
		Context:   map[string]any{"app_version": "2.4.1"},
		CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}
