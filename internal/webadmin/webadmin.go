// ABOUTME: Admin web UI for the console: authentication, routing, and screens
// ABOUTME: Each browser session carries its own backend session and screen state

package webadmin

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
	"github.com/streamrokuo/rokuo-admin/internal/console"
	"github.com/streamrokuo/rokuo-admin/internal/gate"
	"github.com/streamrokuo/rokuo-admin/internal/session"
)

const (
	// SessionCookieName is the name of the browser session cookie.
	SessionCookieName = "rokuo_admin_session"

	// CSRFCookieName is the name of the CSRF token cookie.
	CSRFCookieName = "rokuo_admin_csrf"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const browserContextKey contextKey = "browser_session"
const csrfContextKey contextKey = "csrf_token"

// Config holds admin UI configuration.
type Config struct {
	// AppName is shown in page titles and the header.
	AppName string

	// SessionTTL caps how long a browser session may go unused before its
	// backend credential is dropped.
	SessionTTL time.Duration
}

// browserSession is the per-cookie state: the operator's backend session
// plus one instance of every screen controller.
type browserSession struct {
	sessions *session.Store
	gate     *gate.Gate

	users             *console.UsersScreen
	userDetail        *console.UserDetailScreen
	liveAccounts      *console.LiveAccountsScreen
	liveAccountDetail *console.LiveAccountDetailScreen
	recordings        *console.RecordingsScreen
	tickets           *console.TicketsScreen

	lastSeen time.Time
}

// Admin handles the console's web routes.
type Admin struct {
	client *backend.Client
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	browsers map[string]*browserSession
}

// New creates the admin UI handler.
func New(client *backend.Client, cfg Config) *Admin {
	if cfg.AppName == "" {
		cfg.AppName = "StreamRokuo Admin"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	return &Admin{
		client:   client,
		config:   cfg,
		logger:   slog.Default().With("component", "webadmin"),
		browsers: make(map[string]*browserSession),
	}
}

// RegisterRoutes registers all admin routes on the given mux.
func (a *Admin) RegisterRoutes(mux *http.ServeMux) {
	// Public routes (no auth required)
	mux.HandleFunc("GET /admin/login", a.handleLoginPage)
	mux.HandleFunc("POST /admin/login", a.handleLogin)

	// Protected routes
	mux.HandleFunc("GET /admin/", a.requireAdmin(a.handleDashboard))
	mux.HandleFunc("GET /admin", a.requireAdmin(a.handleDashboard))
	mux.HandleFunc("POST /admin/logout", a.requireAdmin(a.handleLogout))

	mux.HandleFunc("GET /admin/users", a.requireAdmin(a.handleUsers))
	mux.HandleFunc("GET /admin/users/{id}", a.requireAdmin(a.handleUserDetail))

	mux.HandleFunc("GET /admin/live-accounts", a.requireAdmin(a.handleLiveAccounts))
	mux.HandleFunc("GET /admin/live-accounts/{id}", a.requireAdmin(a.handleLiveAccountDetail))
	mux.HandleFunc("POST /admin/live-accounts/{id}/watch/{recording}", a.requireAdmin(a.handleLiveAccountWatch))

	mux.HandleFunc("GET /admin/recordings", a.requireAdmin(a.handleRecordings))
	mux.HandleFunc("POST /admin/recordings/{id}/watch", a.requireAdmin(a.handleRecordingWatch))

	mux.HandleFunc("GET /admin/tickets", a.requireAdmin(a.handleTickets))
	mux.HandleFunc("POST /admin/tickets/{id}/status", a.requireAdmin(a.handleTicketStatus))

	a.logger.Info("admin routes registered")
}

// newBrowserSession creates the per-cookie state around a fresh session store.
func (a *Admin) newBrowserSession() *browserSession {
	sessions := session.NewStore(a.client)
	return &browserSession{
		sessions:          sessions,
		gate:              gate.New(sessions),
		users:             console.NewUsersScreen(a.client, sessions),
		userDetail:        console.NewUserDetailScreen(a.client, sessions),
		liveAccounts:      console.NewLiveAccountsScreen(a.client, sessions),
		liveAccountDetail: console.NewLiveAccountDetailScreen(a.client, sessions),
		recordings:        console.NewRecordingsScreen(a.client, sessions),
		tickets:           console.NewTicketsScreen(a.client, sessions),
		lastSeen:          time.Now(),
	}
}

// browserFromRequest finds the browser session for the request cookie, or nil.
// Stale sessions are evicted on access.
func (a *Admin) browserFromRequest(r *http.Request) *browserSession {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	b := a.browsers[cookie.Value]
	if b == nil {
		return nil
	}
	if time.Since(b.lastSeen) > a.config.SessionTTL {
		delete(a.browsers, cookie.Value)
		return nil
	}
	b.lastSeen = time.Now()
	return b
}

// requireAdmin resolves the browser session and runs the admin gate before
// the handler. Unauthenticated requests land on the login page; a signed-in
// non-admin is signed out and told why.
func (a *Admin) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := a.browserFromRequest(r)
		if b == nil {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}

		switch b.gate.Check(r.Context()) {
		case gate.StateAuthorized:
		case gate.StateUnauthorized:
			a.renderNotAuthorized(w)
			return
		default:
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), browserContextKey, b)
		next(w, r.WithContext(ctx))
	}
}

func browserFromContext(r *http.Request) *browserSession {
	b, _ := r.Context().Value(browserContextKey).(*browserSession)
	return b
}

func getCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey).(string)
	return token
}

// ensureCSRFToken generates a CSRF token if not present and adds it to context
func (a *Admin) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		ctx := context.WithValue(r.Context(), csrfContextKey, cookie.Value)
		return r.WithContext(ctx), cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		a.logger.Error("failed to generate CSRF token", "error", err)
		token = ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	ctx := context.WithValue(r.Context(), csrfContextKey, token)
	return r.WithContext(ctx), token
}

// validateCSRF checks the CSRF token from the form against the cookie.
func (a *Admin) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	formToken := r.FormValue("csrf_token")
	return formToken != "" && formToken == cookie.Value
}

// handleLoginPage renders the login page.
func (a *Admin) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if b := a.browserFromRequest(r); b != nil && b.gate.Check(r.Context()) == gate.StateAuthorized {
		http.Redirect(w, r, "/admin/", http.StatusSeeOther)
		return
	}

	_, csrfToken := a.ensureCSRFToken(w, r)
	a.renderLoginPage(w, "", csrfToken)
}

// handleLogin processes the login form: backend password grant, then the
// admin gate. A signed-in non-admin is revoked immediately.
func (a *Admin) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, "Invalid form data", csrfToken)
		return
	}
	if !a.validateCSRF(r) {
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, "Invalid request, please try again", csrfToken)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	b := a.newBrowserSession()
	if err := b.sessions.SignIn(r.Context(), email, password); err != nil {
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, err.Error(), csrfToken)
		return
	}

	if state := b.gate.Check(r.Context()); state != gate.StateAuthorized {
		a.logger.Warn("sign-in rejected by admin gate", "state", state.String())
		a.renderNotAuthorized(w)
		return
	}

	cookieID, err := generateSecureToken(32)
	if err != nil {
		a.logger.Error("failed to generate session id", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	a.mu.Lock()
	a.browsers[cookieID] = b
	a.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    cookieID,
		Path:     "/admin",
		Expires:  time.Now().Add(a.config.SessionTTL),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/admin/", http.StatusSeeOther)
}

// handleLogout revokes the backend session and drops the browser session.
func (a *Admin) handleLogout(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r)
	b.sessions.SignOut(r.Context())

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		a.mu.Lock()
		delete(a.browsers, cookie.Value)
		a.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

// dashboardStats aggregates the backend counts shown on the landing page.
type dashboardStats struct {
	Users            int64
	ActiveSubs       int64
	ActiveFollows    int64
	Recordings       int64
	RecordingsReady  int64
	RecordingsFailed int64
	OpenTickets      int64
	Err              string
}

func (a *Admin) loadDashboardStats(ctx context.Context, b *browserSession) dashboardStats {
	token := b.sessions.Token()
	var stats dashboardStats

	record := func(val int64, err error) int64 {
		if err != nil {
			a.logger.Error("failed to load dashboard stat", "error", err)
			stats.Err = err.Error()
			return 0
		}
		return val
	}

	_, users, err := a.client.AdminListUsers(ctx, token, 1, 0, "")
	stats.Users = record(users, err)

	val, err := a.client.From("subscriptions").Eq("status", "active").CountOnly(ctx, token)
	stats.ActiveSubs = record(val, err)

	val, err = a.client.From("follows").Eq("status", "active").CountOnly(ctx, token)
	stats.ActiveFollows = record(val, err)

	val, err = a.client.From("recordings").CountOnly(ctx, token)
	stats.Recordings = record(val, err)

	val, err = a.client.From("recordings").Eq("status", backend.RecordingStatusReady).CountOnly(ctx, token)
	stats.RecordingsReady = record(val, err)

	val, err = a.client.From("recordings").Eq("status", backend.RecordingStatusFailed).CountOnly(ctx, token)
	stats.RecordingsFailed = record(val, err)

	val, err = a.client.From("support_tickets").Eq("status", backend.TicketStatusOpen).CountOnly(ctx, token)
	stats.OpenTickets = record(val, err)

	return stats
}

func (a *Admin) handleDashboard(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r)
	stats := a.loadDashboardStats(r.Context(), b)
	a.renderDashboard(w, b.sessions.User(), stats)
}

func (a *Admin) handleUsers(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r)

	b.users.SetSearch(r.URL.Query().Get("search"))
	b.users.SetPage(queryPage(r))
	b.users.Load(r.Context())

	a.renderUsers(w, b.sessions.User(), b.users.Snapshot(), pageQuery(r))
}

func (a *Admin) handleUserDetail(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r)

	b.userDetail.SetUserID(r.PathValue("id"))
	b.userDetail.Load(r.Context())

	a.renderUserDetail(w, b.sessions.User(), b.userDetail.Snapshot())
}

func (a *Admin) handleLiveAccounts(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r)

	b.liveAccounts.SetFilters(console.LiveAccountFilters{
		Platform: r.URL.Query().Get("platform"),
		Status:   r.URL.Query().Get("status"),
	})
	b.liveAccounts.SetPage(queryPage(r))
	b.liveAccounts.Load(r.Context())

	a.renderLiveAccounts(w, b.sessions.User(), b.liveAccounts.Snapshot(), pageQuery(r))
}

func (a *Admin) handleLiveAccountDetail(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r)

	b.liveAccountDetail.SetAccountID(r.PathValue("id"))
	b.liveAccountDetail.SetStatusFilter(r.URL.Query().Get("status"))
	b.liveAccountDetail.SetPage(queryPage(r))
	b.liveAccountDetail.Load(r.Context())

	_, csrfToken := a.ensureCSRFToken(w, r)
	a.renderLiveAccountDetail(w, b.sessions.User(), b.liveAccountDetail.Snapshot(), pageQuery(r), csrfToken)
}

func (a *Admin) handleLiveAccountWatch(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r)
	if !a.validateCSRF(r) {
		http.Error(w, "invalid request", http.StatusForbidden)
		return
	}

	grant, err := b.liveAccountDetail.Watch(r.Context(), r.PathValue("recording"))
	if err != nil {
		a.renderWatchGrant(w, b.sessions.User(), nil, err.Error(), "/admin/live-accounts/"+r.PathValue("id"))
		return
	}
	a.renderWatchGrant(w, b.sessions.User(), grant, "", "/admin/live-accounts/"+r.PathValue("id"))
}

func (a *Admin) handleRecordings(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r)

	b.recordings.SetFilters(console.RecordingFilters{
		Status:        r.URL.Query().Get("status"),
		Platform:      r.URL.Query().Get("platform"),
		LiveAccountID: r.URL.Query().Get("live_account_id"),
	})
	b.recordings.SetPage(queryPage(r))
	b.recordings.Load(r.Context())

	_, csrfToken := a.ensureCSRFToken(w, r)
	a.renderRecordings(w, b.sessions.User(), b.recordings.Snapshot(), pageQuery(r), csrfToken)
}

func (a *Admin) handleRecordingWatch(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r)
	if !a.validateCSRF(r) {
		http.Error(w, "invalid request", http.StatusForbidden)
		return
	}

	grant, err := b.recordings.Watch(r.Context(), r.PathValue("id"))
	if err != nil {
		a.renderWatchGrant(w, b.sessions.User(), nil, err.Error(), "/admin/recordings")
		return
	}
	a.renderWatchGrant(w, b.sessions.User(), grant, "", "/admin/recordings")
}

func (a *Admin) handleTickets(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r)

	b.tickets.SetFilters(console.TicketFilters{
		Status:   r.URL.Query().Get("status"),
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
	})
	b.tickets.SetPage(queryPage(r))
	b.tickets.Select(r.URL.Query().Get("selected"))
	b.tickets.Load(r.Context())

	_, csrfToken := a.ensureCSRFToken(w, r)
	updateErr := r.URL.Query().Get("update_error")
	a.renderTickets(w, b.sessions.User(), b.tickets.Snapshot(), pageQuery(r, "selected", "update_error"), csrfToken, updateErr)
}

// handleTicketStatus runs the status mutation. Failures redirect back to the
// ticket panel carrying the error so the operator sees why nothing changed.
func (a *Admin) handleTicketStatus(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r)
	if !a.validateCSRF(r) {
		http.Error(w, "invalid request", http.StatusForbidden)
		return
	}

	id := r.PathValue("id")
	status := r.FormValue("status")
	if err := b.tickets.UpdateStatus(r.Context(), id, status); err != nil {
		a.logger.Error("ticket status update failed", "ticket_id", id, "error", err)
		params := url.Values{"selected": {id}, "update_error": {err.Error()}}
		http.Redirect(w, r, "/admin/tickets?"+params.Encode(), http.StatusSeeOther)
		return
	}

	ref := safeReturnTo(r.FormValue("return_to"))
	if ref == "" {
		ref = "/admin/tickets?selected=" + url.QueryEscape(id)
	}
	http.Redirect(w, r, ref, http.StatusSeeOther)
}

// safeReturnTo keeps post-mutation redirects on the console: only rooted
// /admin paths pass, anything else falls back to the default target.
func safeReturnTo(ref string) string {
	if strings.HasPrefix(ref, "/admin/") && !strings.HasPrefix(ref, "//") {
		return ref
	}
	return ""
}

func queryPage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 0 {
		return 0
	}
	return page
}

// pageQuery re-encodes the request's query without the page parameter (and
// any extra params named by drop), with a trailing "&" when non-empty, so
// pager and row links can append their own values.
func pageQuery(r *http.Request, drop ...string) string {
	params := r.URL.Query()
	params.Del("page")
	for _, name := range drop {
		params.Del(name)
	}
	encoded := params.Encode()
	if encoded != "" {
		encoded += "&"
	}
	return encoded
}

// generateSecureToken returns n random bytes hex-encoded.
func generateSecureToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
