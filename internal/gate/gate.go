// ABOUTME: Admin gate deriving the authorization state for protected screens
// ABOUTME: Forces sign-out for authenticated but non-admin sessions

package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
	"github.com/streamrokuo/rokuo-admin/internal/session"
)

// State is the gate's view of the current operator.
type State int

const (
	// StateLoading means the initial auth state is still unresolved.
	StateLoading State = iota
	// StateUnauthenticated means no live session exists; the caller
	// redirects to sign-in.
	StateUnauthenticated
	// StateUnauthorized means a session exists but the user lacks the
	// admin flag. Terminal for the browsing session: the gate forces a
	// sign-out and the not-authorized message stays visible in place.
	StateUnauthorized
	// StateAuthorized means an admin session is live; protected content
	// renders.
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateUnauthorized:
		return "unauthorized"
	case StateAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Evaluate derives the gate state from a session snapshot. An expired
// session counts as no session, so a token invalidated after authorization
// falls back to unauthenticated on the next evaluation.
func Evaluate(sess *backend.Session, loading bool, now time.Time) State {
	if loading {
		return StateLoading
	}
	if sess == nil || sess.Expired(now) {
		return StateUnauthenticated
	}
	if !sess.User.IsAdmin() {
		return StateUnauthorized
	}
	return StateAuthorized
}

// Gate wraps a session store and applies the authorization policy for every
// protected screen.
type Gate struct {
	sessions *session.Store
	logger   *slog.Logger
}

// New creates a gate over the given session store.
func New(sessions *session.Store) *Gate {
	return &Gate{
		sessions: sessions,
		logger:   slog.Default().With("component", "gate"),
	}
}

// Check evaluates the current session and applies the unauthorized side
// effect: a non-admin session is signed out immediately so the credential
// cannot be reused, while the caller keeps rendering the not-authorized
// message. The state is re-derived on every call, so a session that
// disappears after authorization is caught on the next check.
func (g *Gate) Check(ctx context.Context) State {
	state := Evaluate(g.sessions.Session(), g.sessions.Loading(), time.Now())
	if state == StateUnauthorized {
		user := g.sessions.User()
		if user != nil {
			g.logger.Warn("non-admin session blocked", "user_id", user.ID)
		}
		g.sessions.SignOut(ctx)
	}
	return state
}
