// ABOUTME: Row types for backend record collections and shared validation helpers
// ABOUTME: Normalizes embedded joins that arrive as either an object or a one-element array

package backend

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// Recording status values as stored by the backend.
const (
	RecordingStatusReady         = "ready"
	RecordingStatusFailed        = "failed"
	RecordingStatusUploading     = "uploading"
	RecordingStatusWaitingUpload = "waiting_upload"
	RecordingStatusLiveRecording = "live_recording"
	RecordingStatusLiveEnd       = "live_end"
)

// RecordingStatuses lists all recording statuses in display order.
var RecordingStatuses = []string{
	RecordingStatusReady,
	RecordingStatusFailed,
	RecordingStatusUploading,
	RecordingStatusWaitingUpload,
	RecordingStatusLiveRecording,
	RecordingStatusLiveEnd,
}

// Support ticket status values. Status is the only ticket field the console
// ever writes.
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusResolved   = "resolved"
	TicketStatusClosed     = "closed"
)

// TicketStatuses lists the valid ticket statuses in display order.
var TicketStatuses = []string{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Support ticket categories.
const (
	TicketCategoryBug      = "bug"
	TicketCategoryFeature  = "feature"
	TicketCategoryQuestion = "question"
)

// TicketCategories lists the valid ticket categories in display order.
var TicketCategories = []string{
	TicketCategoryBug,
	TicketCategoryFeature,
	TicketCategoryQuestion,
}

// ValidTicketStatus reports whether s is one of the ticket statuses.
func ValidTicketStatus(s string) bool {
	for _, v := range TicketStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// uuidRegex matches the 36-character UUID shape: hex digits and hyphens.
// Version and variant bits are deliberately not checked.
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F-]{36}$`)

// IsUUID reports whether s (after trimming) has the UUID shape.
func IsUUID(s string) bool {
	return uuidRegex.MatchString(strings.TrimSpace(s))
}

// EscapeLike escapes pattern metacharacters in operator-supplied search text
// so it cannot inject wildcards into an ilike predicate.
func EscapeLike(s string) string {
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

// Embedded holds a many-to-one resource embed. Depending on how the backend
// resolves the join, the embedded row arrives as an object, a one-element
// array, or null; decoding always produces a single optional value so the
// rest of the system never rechecks the shape.
type Embedded[T any] struct {
	Value *T
}

func (e *Embedded[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		e.Value = nil
		return nil
	}
	if trimmed[0] == '[' {
		var list []T
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		if len(list) == 0 {
			e.Value = nil
			return nil
		}
		e.Value = &list[0]
		return nil
	}
	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	e.Value = &v
	return nil
}

func (e Embedded[T]) MarshalJSON() ([]byte, error) {
	if e.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(e.Value)
}

// AdminUserRow is one row from the admin_list_users remote procedure. Each
// row embeds the total matching count for the whole result set.
type AdminUserRow struct {
	ID               string     `json:"id"`
	CreatedAt        time.Time  `json:"created_at"`
	Email            string     `json:"email"`
	Role             string     `json:"role"`
	LastSignInAt     *time.Time `json:"last_sign_in_at"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	IsAdmin          bool       `json:"is_admin"`
	TotalCount       int64      `json:"total_count"`
}

// PlanRow is a billing plan. Features is opaque structured data.
type PlanRow struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Features map[string]any `json:"features"`
}

// SubscriptionRow is a user's subscription with its optionally embedded plan.
type SubscriptionRow struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	Status            string            `json:"status"`
	StartsAt          time.Time         `json:"starts_at"`
	EndsAt            time.Time         `json:"ends_at"`
	BillingMode       string            `json:"billing_mode"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	Plan              Embedded[PlanRow] `json:"plan"`
}

// LiveAccountRow is a monitored live account on an external platform.
type LiveAccountRow struct {
	ID           string    `json:"id"`
	Platform     string    `json:"platform"`
	AccountID    string    `json:"account_id"`
	CanonicalURL string    `json:"canonical_url"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Label returns the human-facing identifier for the account: the external
// account id when present, otherwise the row id.
func (a *LiveAccountRow) Label() string {
	if trimmed := strings.TrimSpace(a.AccountID); trimmed != "" {
		return trimmed
	}
	return a.ID
}

// FollowRow joins a user to a live account. Identity is the (user, account)
// pair; there is no surrogate key.
type FollowRow struct {
	UserID        string                   `json:"user_id"`
	LiveAccountID string                   `json:"live_account_id"`
	Status        string                   `json:"status"`
	CreatedAt     time.Time                `json:"created_at"`
	LiveAccount   Embedded[LiveAccountRow] `json:"live_accounts"`
}

// RecordingRow is a recording of a live session.
type RecordingRow struct {
	ID            string                   `json:"id"`
	LiveAccountID string                   `json:"live_account_id"`
	RecordingKey  string                   `json:"recording_key"`
	Status        string                   `json:"status"`
	StartedAt     time.Time                `json:"started_at"`
	EndedAt       *time.Time               `json:"ended_at"`
	DurationSec   *int64                   `json:"duration_sec"`
	SizeBytes     *int64                   `json:"size_bytes"`
	StoragePath   string                   `json:"storage_path"`
	LiveAccount   Embedded[LiveAccountRow] `json:"live_accounts"`
}

// Watchable reports whether a playback URL can be requested for the
// recording: the media must be ready and a storage path must exist.
func (r *RecordingRow) Watchable() bool {
	return r.Status == RecordingStatusReady && strings.TrimSpace(r.StoragePath) != ""
}

// SupportTicketRow is a support request. Context is a free-form blob
// attached by the submitting client.
type SupportTicketRow struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Email     string         `json:"email"`
	Category  string         `json:"category"`
	Subject   string         `json:"subject"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"`
	Status    string         `json:"status"`
	Context   map[string]any `json:"context"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
