// ABOUTME: Template rendering functions for the admin UI
// ABOUTME: Loads templates from the embedded filesystem and renders them

package webadmin

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
	"github.com/streamrokuo/rokuo-admin/internal/console"
)

var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
}

// Template data types
type loginData struct {
	Title     string
	User      *backend.User
	Error     string
	CSRFToken string
}

type dashboardData struct {
	Title string
	User  *backend.User
	Stats dashboardStats
}

// pagerData feeds the shared pager partial. Query is the page's other query
// parameters, already encoded, with a trailing "&" when non-empty, so page
// links keep filters and search intact.
type pagerData struct {
	console.Pager
	Query string
}

type usersPageData struct {
	Title string
	User  *backend.User
	View  console.UsersView
	Pager pagerData
}

type userDetailData struct {
	Title string
	User  *backend.User
	View  console.UserDetailView
}

type liveAccountsPageData struct {
	Title string
	User  *backend.User
	View  console.LiveAccountsView
	Pager pagerData
}

type liveAccountDetailData struct {
	Title     string
	User      *backend.User
	View      console.LiveAccountDetailView
	Pager     pagerData
	Statuses  []string
	CSRFToken string
}

type recordingsPageData struct {
	Title     string
	User      *backend.User
	View      console.RecordingsView
	Pager     pagerData
	Statuses  []string
	CSRFToken string
}

type ticketsPageData struct {
	Title           string
	User            *backend.User
	View            console.TicketsView
	Pager           pagerData
	Statuses        []string
	Categories      []string
	SelectedMessage template.HTML
	UpdateError     string
	CSRFToken       string
}

type watchGrantData struct {
	Title    string
	User     *backend.User
	Grant    *backend.WatchURLGrant
	Error    string
	ReturnTo string
}

type notAuthorizedData struct {
	Title string
	User  *backend.User
}

func (a *Admin) render(w http.ResponseWriter, page string, data any) {
	tmpl := template.Must(template.New("base.html").Funcs(templateFuncs).
		ParseFS(templateFS, "templates/base.html", "templates/"+page))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render page", "page", page, "error", err)
	}
}

func (a *Admin) renderLoginPage(w http.ResponseWriter, errorMsg, csrfToken string) {
	a.render(w, "login.html", loginData{
		Title:     a.config.AppName + " — Sign in",
		Error:     errorMsg,
		CSRFToken: csrfToken,
	})
}

func (a *Admin) renderNotAuthorized(w http.ResponseWriter) {
	w.WriteHeader(http.StatusForbidden)
	a.render(w, "not_authorized.html", notAuthorizedData{Title: "Not authorized"})
}

func (a *Admin) renderDashboard(w http.ResponseWriter, user *backend.User, stats dashboardStats) {
	a.render(w, "dashboard.html", dashboardData{
		Title: "Dashboard",
		User:  user,
		Stats: stats,
	})
}

func (a *Admin) renderUsers(w http.ResponseWriter, user *backend.User, view console.UsersView, query string) {
	a.render(w, "users.html", usersPageData{
		Title: "Users",
		User:  user,
		View:  view,
		Pager: pagerData{Pager: view.Pager, Query: query},
	})
}

func (a *Admin) renderUserDetail(w http.ResponseWriter, user *backend.User, view console.UserDetailView) {
	if view.NotFound {
		w.WriteHeader(http.StatusNotFound)
	}
	a.render(w, "user_detail.html", userDetailData{
		Title: "User",
		User:  user,
		View:  view,
	})
}

func (a *Admin) renderLiveAccounts(w http.ResponseWriter, user *backend.User, view console.LiveAccountsView, query string) {
	a.render(w, "live_accounts.html", liveAccountsPageData{
		Title: "Live accounts",
		User:  user,
		View:  view,
		Pager: pagerData{Pager: view.Pager, Query: query},
	})
}

func (a *Admin) renderLiveAccountDetail(w http.ResponseWriter, user *backend.User, view console.LiveAccountDetailView, query, csrfToken string) {
	if view.NotFound {
		w.WriteHeader(http.StatusNotFound)
	}
	a.render(w, "live_account_detail.html", liveAccountDetailData{
		Title:     "Live account",
		User:      user,
		View:      view,
		Pager:     pagerData{Pager: view.Pager, Query: query},
		Statuses:  backend.RecordingStatuses,
		CSRFToken: csrfToken,
	})
}

func (a *Admin) renderRecordings(w http.ResponseWriter, user *backend.User, view console.RecordingsView, query, csrfToken string) {
	a.render(w, "recordings.html", recordingsPageData{
		Title:     "Recordings",
		User:      user,
		View:      view,
		Pager:     pagerData{Pager: view.Pager, Query: query},
		Statuses:  backend.RecordingStatuses,
		CSRFToken: csrfToken,
	})
}

func (a *Admin) renderTickets(w http.ResponseWriter, user *backend.User, view console.TicketsView, query, csrfToken, updateError string) {
	data := ticketsPageData{
		Title:       "Support tickets",
		User:        user,
		View:        view,
		Pager:       pagerData{Pager: view.Pager, Query: query},
		Statuses:    backend.TicketStatuses,
		Categories:  backend.TicketCategories,
		UpdateError: updateError,
		CSRFToken:   csrfToken,
	}
	if view.Selected != nil {
		data.SelectedMessage = renderMarkdown(view.Selected.Message)
	}
	a.render(w, "tickets.html", data)
}

func (a *Admin) renderWatchGrant(w http.ResponseWriter, user *backend.User, grant *backend.WatchURLGrant, errorMsg, returnTo string) {
	a.render(w, "watch_grant.html", watchGrantData{
		Title:    "Watch recording",
		User:     user,
		Grant:    grant,
		Error:    errorMsg,
		ReturnTo: returnTo,
	})
}

// renderMarkdown converts a ticket message to sanitized-enough HTML: raw
// HTML in the source is escaped by goldmark's default renderer.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		var sb strings.Builder
		template.HTMLEscape(&sb, []byte(src))
		return template.HTML("<p>" + sb.String() + "</p>")
	}
	return template.HTML(buf.String())
}
