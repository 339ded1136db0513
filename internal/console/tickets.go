// ABOUTME: Support tickets screen with filters, search, and status updates
// ABOUTME: Status patches merge only the returned fields into the cached row

package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
	"github.com/streamrokuo/rokuo-admin/internal/session"
)

// ErrUpdateInFlight is returned when a status update is requested for a
// ticket that already has one pending.
var ErrUpdateInFlight = errors.New("update already in progress")

// TicketFilters narrows the ticket listing. Search matches subject and email
// case-insensitively, or the user and ticket identifiers exactly when the
// term is UUID-shaped.
type TicketFilters struct {
	Status   string
	Category string
	Search   string
}

// TicketsScreen lists support tickets and carries the console's first
// mutation: the ticket status update.
type TicketsScreen struct {
	core     screenCore
	client   *backend.Client
	sessions *session.Store
	logger   *slog.Logger

	page    int
	filters TicketFilters

	rows     []backend.SupportTicketRow
	total    int64
	selected string
	updating map[string]bool
}

// TicketsView is a render snapshot of the screen.
type TicketsView struct {
	Rows     []backend.SupportTicketRow
	Pager    Pager
	Filters  TicketFilters
	Selected *backend.SupportTicketRow
	Loading  bool
	Err      string
}

// NewTicketsScreen creates the tickets screen.
func NewTicketsScreen(client *backend.Client, sessions *session.Store) *TicketsScreen {
	return &TicketsScreen{
		client:   client,
		sessions: sessions,
		logger:   slog.Default().With("component", "console", "screen", "tickets"),
		updating: make(map[string]bool),
	}
}

// SetFilters replaces the filter set and resets to the first page.
func (s *TicketsScreen) SetFilters(f TicketFilters) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	s.filters = f
	s.page = 0
}

// SetPage moves to the given page (floored at zero).
func (s *TicketsScreen) SetPage(page int) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	s.page = clampPage(page)
}

// NextPage advances one page; a no-op on the last page.
func (s *TicketsScreen) NextPage() {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	if (Pager{Page: s.page, Total: s.total}).CanNext() {
		s.page++
	}
}

// PrevPage goes back one page; a no-op on the first page.
func (s *TicketsScreen) PrevPage() {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	if (Pager{Page: s.page, Total: s.total}).CanPrev() {
		s.page--
	}
}

// Select marks a ticket as the detail target. Selecting an id not on the
// current page clears the selection.
func (s *TicketsScreen) Select(id string) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	s.selected = id
}

// Load fetches the current page of tickets.
func (s *TicketsScreen) Load(ctx context.Context) {
	s.core.mu.Lock()
	gen := s.core.beginLocked()
	page := s.page
	filters := s.filters
	s.core.mu.Unlock()

	q := s.client.From("support_tickets").Select("*").Count().Order("created_at", true)
	if filters.Status != "" {
		q.Eq("status", filters.Status)
	}
	if filters.Category != "" {
		q.Eq("category", filters.Category)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		if backend.IsUUID(search) {
			q.Or("user_id.eq."+search, "id.eq."+search)
		} else {
			pattern := "%" + backend.EscapeLike(search) + "%"
			q.Or("subject.ilike."+pattern, "email.ilike."+pattern)
		}
	}
	from, to := (Pager{Page: page}).Window()
	q.Range(from, to)

	var rows []backend.SupportTicketRow
	total, err := q.Get(ctx, s.sessions.Token(), &rows)
	if err != nil {
		s.logger.Error("failed to list tickets", "error", err)
		s.core.fail(gen, err.Error(), func() {
			s.rows = nil
			s.total = 0
		})
		return
	}

	s.core.apply(gen, func() {
		s.rows = rows
		s.total = total
	})
}

// UpdateStatus patches one ticket's status. An unchanged status is a local
// no-op; an unknown status or a pending update for the same ticket is
// rejected before any network round trip. On success only the returned
// fields are merged into the cached row: the rest of the ticket keeps
// whatever this page last fetched.
func (s *TicketsScreen) UpdateStatus(ctx context.Context, id, status string) error {
	if !backend.ValidTicketStatus(status) {
		return fmt.Errorf("unknown ticket status %q", status)
	}

	s.core.mu.Lock()
	idx := -1
	for i := range s.rows {
		if s.rows[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.core.mu.Unlock()
		return backend.ErrNotFound
	}
	if s.rows[idx].Status == status {
		s.core.mu.Unlock()
		return nil
	}
	if s.updating[id] {
		s.core.mu.Unlock()
		return ErrUpdateInFlight
	}
	s.updating[id] = true
	s.core.mu.Unlock()

	defer func() {
		s.core.mu.Lock()
		delete(s.updating, id)
		s.core.mu.Unlock()
	}()

	patch := map[string]string{
		"status":     status,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	var updated struct {
		Status    string    `json:"status"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	err := s.client.From("support_tickets").
		Select("status,updated_at").
		Eq("id", id).
		UpdateOne(ctx, s.sessions.Token(), patch, &updated)
	if err != nil {
		s.logger.Error("failed to update ticket status", "ticket_id", id, "error", err)
		return err
	}

	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i].Status = updated.Status
			s.rows[i].UpdatedAt = updated.UpdatedAt
			break
		}
	}
	return nil
}

// Snapshot returns the current render state.
func (s *TicketsScreen) Snapshot() TicketsView {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()

	var selected *backend.SupportTicketRow
	for i := range s.rows {
		if s.rows[i].ID == s.selected {
			row := s.rows[i]
			selected = &row
			break
		}
	}
	return TicketsView{
		Rows:     s.rows,
		Pager:    Pager{Page: s.page, Total: s.total},
		Filters:  s.filters,
		Selected: selected,
		Loading:  s.core.loading,
		Err:      s.core.errMsg,
	}
}
