// ABOUTME: Tests for the REST query builder and response handling
// ABOUTME: Covers filter encoding, range headers, exact counts, and error surfacing

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method string
	path   string
	query  map[string][]string
	header http.Header
}

// newCaptureServer returns a client pointed at a test server that records
// the request and replies with the given status, headers, and body.
func newCaptureServer(t *testing.T, status int, headers map[string]string, body string) (*Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.Query()
		captured.header = r.Header.Clone()
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, srv.URL, "anon-key", srv.Client()), captured
}

func TestQuery_BuildsFiltersAndHeaders(t *testing.T) {
	client, captured := newCaptureServer(t, http.StatusOK,
		map[string]string{"Content-Range": "0-19/57"}, `[]`)

	var rows []RecordingRow
	total, err := client.From("recordings").
		Select("id,status,live_accounts(id,platform)").
		Count().
		Eq("status", "ready").
		Eq("live_accounts.platform", "twitch").
		Order("started_at", true).
		Range(0, 19).
		Get(context.Background(), "user-token", &rows)
	require.NoError(t, err)

	assert.Equal(t, int64(57), total)
	assert.Equal(t, http.MethodGet, captured.method)
	assert.Equal(t, "/rest/v1/recordings", captured.path)
	assert.Equal(t, "id,status,live_accounts(id,platform)", captured.query["select"][0])
	assert.Equal(t, []string{"eq.ready"}, captured.query["status"])
	assert.Equal(t, []string{"eq.twitch"}, captured.query["live_accounts.platform"])
	assert.Equal(t, "started_at.desc", captured.query["order"][0])
	assert.Equal(t, "count=exact", captured.header.Get("Prefer"))
	assert.Equal(t, "0-19", captured.header.Get("Range"))
	assert.Equal(t, "items", captured.header.Get("Range-Unit"))
	assert.Equal(t, "Bearer user-token", captured.header.Get("Authorization"))
	assert.Equal(t, "anon-key", captured.header.Get("apikey"))
}

func TestQuery_OrAndInEncoding(t *testing.T) {
	client, captured := newCaptureServer(t, http.StatusOK,
		map[string]string{"Content-Range": "0-0/1"}, `[]`)

	var rows []SupportTicketRow
	_, err := client.From("support_tickets").
		Select("*").
		Or("user_id.eq.abc", "id.eq.abc").
		In("status", []string{"open", "in_progress"}).
		Get(context.Background(), "", &rows)
	require.NoError(t, err)

	assert.Equal(t, []string{"(user_id.eq.abc,id.eq.abc)"}, captured.query["or"])
	assert.Equal(t, []string{"in.(open,in_progress)"}, captured.query["status"])
	// With no session token the anon key doubles as the bearer credential
	assert.Equal(t, "Bearer anon-key", captured.header.Get("Authorization"))
}

func TestQuery_ErrorMessageSurfacedVerbatim(t *testing.T) {
	client, _ := newCaptureServer(t, http.StatusBadRequest, nil,
		`{"message":"permission denied for table recordings"}`)

	var rows []RecordingRow
	_, err := client.From("recordings").Select("*").Get(context.Background(), "", &rows)
	require.Error(t, err)
	assert.Equal(t, "permission denied for table recordings", err.Error())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestQuery_GetOneNotFound(t *testing.T) {
	client, _ := newCaptureServer(t, http.StatusOK,
		map[string]string{"Content-Range": "*/0"}, `[]`)

	var account LiveAccountRow
	err := client.From("live_accounts").
		Select("*").
		Eq("id", "11111111-2222-3333-4444-555555555555").
		GetOne(context.Background(), "", &account)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuery_GetOneDecodesFirstRow(t *testing.T) {
	client, captured := newCaptureServer(t, http.StatusOK, nil,
		`[{"id":"acc-1","platform":"twitch","status":"active"}]`)

	var account LiveAccountRow
	err := client.From("live_accounts").
		Select("*").
		Eq("id", "acc-1").
		GetOne(context.Background(), "", &account)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", account.ID)
	assert.Equal(t, "twitch", account.Platform)
	assert.Equal(t, []string{"1"}, captured.query["limit"])
}

func TestQuery_CountOnlyUsesHead(t *testing.T) {
	client, captured := newCaptureServer(t, http.StatusOK,
		map[string]string{"Content-Range": "*/42"}, "")

	total, err := client.From("follows").
		Select("user_id").
		Eq("status", "active").
		CountOnly(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
	assert.Equal(t, http.MethodHead, captured.method)
	assert.Equal(t, "count=exact", captured.header.Get("Prefer"))
}

func TestQuery_UpdateOne(t *testing.T) {
	client, captured := newCaptureServer(t, http.StatusOK, nil,
		`[{"status":"resolved","updated_at":"2026-02-01T10:00:00Z"}]`)

	var patched struct {
		Status    string `json:"status"`
		UpdatedAt string `json:"updated_at"`
	}
	err := client.From("support_tickets").
		Select("status,updated_at").
		Eq("id", "ticket-1").
		UpdateOne(context.Background(), "user-token", map[string]string{"status": "resolved"}, &patched)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, captured.method)
	assert.Equal(t, []string{"eq.ticket-1"}, captured.query["id"])
	assert.Equal(t, "status,updated_at", captured.query["select"][0])
	assert.Equal(t, "return=representation", captured.header.Get("Prefer"))
	assert.Equal(t, "resolved", patched.Status)
}

func TestQuery_UpdateOneZeroRows(t *testing.T) {
	client, _ := newCaptureServer(t, http.StatusOK, nil, `[]`)

	err := client.From("support_tickets").
		Eq("id", "missing").
		UpdateOne(context.Background(), "", map[string]string{"status": "closed"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseContentRangeTotal(t *testing.T) {
	tests := []struct {
		header string
		want   int64
	}{
		{"0-19/57", 57},
		{"*/0", 0},
		{"items 0-19/100", 100},
		{"0-19/*", -1},
		{"", -1},
		{"garbage", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseContentRangeTotal(tt.header), "header %q", tt.header)
	}
}

func TestDecodeError_FallsBackToBodyText(t *testing.T) {
	client, _ := newCaptureServer(t, http.StatusBadGateway, nil, "upstream unavailable")

	var rows []json.RawMessage
	_, err := client.From("recordings").Get(context.Background(), "", &rows)
	require.Error(t, err)
	assert.Equal(t, "upstream unavailable", err.Error())
}
