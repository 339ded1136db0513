// ABOUTME: Tests for the tickets screen: filters, search encoding, status updates
// ABOUTME: Verifies partial merge after a patch and last-writer-wins on stale fetches

package console

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
)

func TestTicketsScreen_LoadSendsFiltersAndRange(t *testing.T) {
	var query string
	var rangeHeader string
	client, sessions, _ := adminEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/support_tickets", r.URL.Path)
		query = r.URL.RawQuery
		rangeHeader = r.Header.Get("Range")
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		writeRows(t, w, []backend.SupportTicketRow{ticketRow("t-1", backend.TicketStatusOpen)}, 1)
	}))

	s := NewTicketsScreen(client, sessions)
	s.SetFilters(TicketFilters{Status: backend.TicketStatusOpen, Category: backend.TicketCategoryBug, Search: "freeze"})
	s.Load(context.Background())

	assert.Contains(t, query, "status=eq.open")
	assert.Contains(t, query, "category=eq.bug")
	assert.Contains(t, query, "order=created_at.desc")
	// subject and email matched case-insensitively as one disjunction
	assert.Contains(t, query, "or=")
	assert.Contains(t, query, "subject.ilike.%25freeze%25")
	assert.Contains(t, query, "email.ilike.%25freeze%25")
	assert.Equal(t, "0-19", rangeHeader)
}

func TestTicketsScreen_UUIDSearchMatchesIdentifiers(t *testing.T) {
	const id = "55555555-5555-5555-5555-555555555555"
	var query string
	client, sessions, _ := adminEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		writeRows(t, w, []backend.SupportTicketRow{}, 0)
	}))

	s := NewTicketsScreen(client, sessions)
	s.SetFilters(TicketFilters{Search: id})
	s.Load(context.Background())

	assert.Contains(t, query, "user_id.eq."+id)
	assert.Contains(t, query, "id.eq."+id)
	assert.NotContains(t, query, "ilike")
}

func TestTicketsScreen_SearchEscapesWildcards(t *testing.T) {
	var query string
	client, sessions, _ := adminEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		writeRows(t, w, []backend.SupportTicketRow{}, 0)
	}))

	s := NewTicketsScreen(client, sessions)
	s.SetFilters(TicketFilters{Search: "50%_off"})
	s.Load(context.Background())

	assert.Contains(t, query, `50%5C%25%5C_off`)
}

func TestTicketsScreen_UpdateStatusUnchangedIsLocalNoop(t *testing.T) {
	var patches atomic.Int64
	client, sessions, _ := adminEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			patches.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeRows(t, w, []backend.SupportTicketRow{ticketRow("t-1", backend.TicketStatusOpen)}, 1)
	}))

	s := NewTicketsScreen(client, sessions)
	s.Load(context.Background())

	require.NoError(t, s.UpdateStatus(context.Background(), "t-1", backend.TicketStatusOpen))
	assert.Equal(t, int64(0), patches.Load())
}

func TestTicketsScreen_UpdateStatusRejectsUnknownStatus(t *testing.T) {
	client, sessions, _ := adminEnv(t, http.HandlerFunc(http.NotFound))
	s := NewTicketsScreen(client, sessions)

	err := s.UpdateStatus(context.Background(), "t-1", "escalated")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escalated")
}

func TestTicketsScreen_UpdateStatusMergesOnlyReturnedFields(t *testing.T) {
	updatedAt := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	client, sessions, _ := adminEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			require.Equal(t, "/rest/v1/support_tickets", r.URL.Path)
			assert.Equal(t, "id=eq.t-1&select=status%2Cupdated_at", r.URL.RawQuery)
			assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

			var patch map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			assert.Equal(t, backend.TicketStatusResolved, patch["status"])
			assert.NotEmpty(t, patch["updated_at"])

			writeJSON(t, w, []map[string]any{{"status": backend.TicketStatusResolved, "updated_at": updatedAt}})
			return
		}
		writeRows(t, w, []backend.SupportTicketRow{ticketRow("t-1", backend.TicketStatusOpen)}, 1)
	}))

	s := NewTicketsScreen(client, sessions)
	s.Load(context.Background())

	require.NoError(t, s.UpdateStatus(context.Background(), "t-1", backend.TicketStatusResolved))

	view := s.Snapshot()
	require.Len(t, view.Rows, 1)
	row := view.Rows[0]
	assert.Equal(t, backend.TicketStatusResolved, row.Status)
	assert.Equal(t, updatedAt, row.UpdatedAt)
	// everything the patch did not return keeps its fetched value
	assert.Equal(t, "Playback stalls", row.Subject)
	assert.Equal(t, "The stream freezes after a minute.", row.Message)
	assert.Equal(t, map[string]any{"app_version": "2.4.1"}, row.Context)
}

func TestTicketsScreen_UpdateStatusRejectsConcurrentUpdate(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	client, sessions, _ := adminEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			close(started)
			<-release
			writeJSON(t, w, []map[string]any{{"status": backend.TicketStatusResolved, "updated_at": time.Now().UTC()}})
			return
		}
		writeRows(t, w, []backend.SupportTicketRow{ticketRow("t-1", backend.TicketStatusOpen)}, 1)
	}))

	s := NewTicketsScreen(client, sessions)
	s.Load(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.UpdateStatus(context.Background(), "t-1", backend.TicketStatusResolved))
	}()

	<-started
	err := s.UpdateStatus(context.Background(), "t-1", backend.TicketStatusClosed)
	assert.ErrorIs(t, err, ErrUpdateInFlight)

	close(release)
	wg.Wait()
}

func TestTicketsScreen_StaleFetchDiscarded(t *testing.T) {
	var calls atomic.Int64
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	client, sessions, _ := adminEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			close(firstStarted)
			<-releaseFirst
			writeRows(t, w, []backend.SupportTicketRow{ticketRow("t-stale", backend.TicketStatusOpen)}, 100)
			return
		}
		writeRows(t, w, []backend.SupportTicketRow{ticketRow("t-fresh", backend.TicketStatusOpen)}, 1)
	}))

	s := NewTicketsScreen(client, sessions)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Load(context.Background())
	}()

	<-firstStarted
	// a newer fetch begins while the first is still in flight
	s.Load(context.Background())

	view := s.Snapshot()
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "t-fresh", view.Rows[0].ID)

	// the first fetch completes late; its rows must not appear
	close(releaseFirst)
	wg.Wait()

	view = s.Snapshot()
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "t-fresh", view.Rows[0].ID)
	assert.Equal(t, int64(1), view.Pager.Total)
	assert.False(t, view.Loading)
}

func TestTicketsScreen_SelectionTracksCurrentPage(t *testing.T) {
	client, sessions, _ := adminEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeRows(t, w, []backend.SupportTicketRow{ticketRow("t-1", backend.TicketStatusOpen)}, 1)
	}))

	s := NewTicketsScreen(client, sessions)
	s.Load(context.Background())

	s.Select("t-1")
	require.NotNil(t, s.Snapshot().Selected)
	assert.Equal(t, "t-1", s.Snapshot().Selected.ID)

	s.Select("t-gone")
	assert.Nil(t, s.Snapshot().Selected)
}
