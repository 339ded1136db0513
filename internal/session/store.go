// ABOUTME: Session store holding the current backend auth session for one operator
// ABOUTME: In-memory fan-out of auth change events to subscribed dependents

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
)

// subscriberBufferSize is the channel buffer for each subscriber. Events are
// dropped for subscribers that fall this far behind.
const subscriberBufferSize = 16

// Event identifies an auth state change.
type Event int

const (
	// EventSignedIn fires when a session is established.
	EventSignedIn Event = iota
	// EventSignedOut fires when the session ends, whether by operator
	// request or because the token was invalidated upstream.
	EventSignedOut
)

// Change carries one auth state change to subscribers. Session is nil on
// sign-out.
type Change struct {
	Event   Event
	Session *backend.Session
}

// Store holds the auth session for one browsing session of the console.
// It is the only state shared across screens; screens read it and subscribe
// to changes but never mutate it directly — sign-in and sign-out route
// through the backend and the store publishes the result.
type Store struct {
	mu          sync.RWMutex
	client      *backend.Client
	session     *backend.Session
	loading     bool
	subscribers map[string]chan Change
	logger      *slog.Logger
}

// NewStore creates a session store in the loading state: downstream gates
// render a placeholder until the first auth event resolves it.
func NewStore(client *backend.Client) *Store {
	return &Store{
		client:      client,
		loading:     true,
		subscribers: make(map[string]chan Change),
		logger:      slog.Default().With("component", "session"),
	}
}

// Session returns the current session, or nil when unauthenticated.
func (s *Store) Session() *backend.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// User returns the current user, or nil when unauthenticated.
func (s *Store) User() *backend.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	return s.session.User
}

// Token returns the current access token, or "" when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.AccessToken
}

// Loading reports whether the initial auth state is still unresolved.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SignIn performs a password grant through the backend and publishes the
// resulting session. A failed sign-in resolves the loading state to
// unauthenticated without publishing a session.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	sess, err := s.client.SignIn(ctx, email, password)
	if err != nil {
		s.Set(nil)
		return err
	}
	s.Set(sess)
	return nil
}

// SignOut revokes the current session with the backend (best effort — a
// revocation failure still clears local state) and publishes the sign-out.
func (s *Store) SignOut(ctx context.Context) {
	token := s.Token()
	if token != "" {
		if err := s.client.SignOut(ctx, token); err != nil {
			s.logger.Warn("backend sign-out failed", "error", err)
		}
	}
	s.Set(nil)
}

// Set replaces the session synchronously, clears the loading flag, and
// notifies subscribers. Pass nil when the token has been invalidated; that
// publishes a sign-out so dependents refresh their state.
func (s *Store) Set(sess *backend.Session) {
	s.mu.Lock()
	s.session = sess
	s.loading = false
	targets := make([]chan Change, 0, len(s.subscribers))
	for _, ch := range s.subscribers {
		targets = append(targets, ch)
	}
	s.mu.Unlock()

	change := Change{Event: EventSignedOut}
	if sess != nil {
		change = Change{Event: EventSignedIn, Session: sess}
	}

	for _, ch := range targets {
		select {
		case ch <- change:
		default:
			s.logger.Debug("dropped auth event for slow subscriber")
		}
	}
}

// Expired reports whether the current session is missing or past its expiry.
func (s *Store) Expired(now time.Time) bool {
	return s.Session().Expired(now)
}

// Subscribe registers for auth change events. The returned channel receives
// every change until ctx is cancelled, at which point the subscription is
// removed automatically.
func (s *Store) Subscribe(ctx context.Context) <-chan Change {
	subID := uuid.New().String()
	ch := make(chan Change, subscriberBufferSize)

	s.mu.Lock()
	s.subscribers[subID] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subscribers, subID)
		s.mu.Unlock()
	}()

	return ch
}
