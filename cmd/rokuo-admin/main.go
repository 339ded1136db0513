// ABOUTME: Admin CLI for the rokuo managed backend
// ABOUTME: Lists users, accounts, recordings, and tickets; updates ticket status and grants watch URLs

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
	"github.com/streamrokuo/rokuo-admin/internal/console"
)

const banner = `
           _                            _           _
 _ __ ___ | | ___   _  ___         __ _| |__ _ __ (_)_ __
| '__/ _ \| |/ / | | |/ _ \ _____ / _' |/ _' | '_ \| | '_ \
| | | (_) |   <| |_| | (_) |_____| (_| | (_| | | | | | | | |
|_|  \___/|_|\_\\__,_|\___/       \__,_|\__,_|_| |_|_|_| |_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case "status":
		err = cmdStatus(ctx, cfg)
	case "users":
		err = cmdUsers(ctx, cfg, args)
	case "user":
		err = cmdUser(ctx, cfg, args)
	case "accounts":
		err = cmdAccounts(ctx, cfg, args)
	case "recordings":
		err = cmdRecordings(ctx, cfg, args)
	case "tickets":
		err = cmdTickets(ctx, cfg, args)
	case "ticket":
		err = cmdTicket(ctx, cfg, args)
	case "watch":
		err = cmdWatch(ctx, cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: rokuo-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  status                        Check backend connectivity and identity")
	fmt.Println("  users [--search UUID] [--page N]")
	fmt.Println("                                List users")
	fmt.Println("  user <id>                     Show one user with subscription and follows")
	fmt.Println("  accounts [--platform P] [--status S] [--page N]")
	fmt.Println("                                List live accounts")
	fmt.Println("  recordings [--status S] [--platform P] [--account UUID] [--page N]")
	fmt.Println("                                List recordings")
	fmt.Println("  tickets [--status S] [--category C] [--search TEXT] [--page N]")
	fmt.Println("                                List support tickets")
	fmt.Println("  ticket set-status <id> <status>")
	fmt.Println("                                Update a ticket's status")
	fmt.Println("  watch <recording-id>          Request a signed playback URL")
	fmt.Println()
	yellow.Println("Configuration:")
	fmt.Println("  Reads " + defaultConfigHint() + " (override with ROKUO_ADMIN_CONFIG).")
	fmt.Println("  Environment overrides: ROKUO_BACKEND_URL, ROKUO_ANON_KEY, ROKUO_EMAIL, ROKUO_PASSWORD")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  rokuo-admin tickets --status open")
	fmt.Println("  rokuo-admin ticket set-status 5f5f5f5f-0000-4000-8000-000000000001 resolved")
	fmt.Println("  rokuo-admin watch 4e4e4e4e-0000-4000-8000-000000000001")
	fmt.Println()
}

// signIn builds a backend client and performs the password grant with the
// configured operator credentials.
func signIn(ctx context.Context, cfg *cliConfig) (*backend.Client, *backend.Session, error) {
	client := newClient(cfg)
	sess, err := client.SignIn(ctx, cfg.Auth.Email, cfg.Auth.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("signing in as %s: %w", cfg.Auth.Email, err)
	}
	if !sess.User.IsAdmin() {
		// Revoke immediately; a non-admin credential gets no further use.
		_ = client.SignOut(ctx, sess.AccessToken)
		return nil, nil, fmt.Errorf("account %s does not have admin access", cfg.Auth.Email)
	}
	return client, sess, nil
}

func cmdStatus(ctx context.Context, cfg *cliConfig) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()

	client, sess, err := signIn(ctx, cfg)
	if err != nil {
		yellow.Printf("  Backend:  ")
		color.Red("UNREACHABLE (%v)\n", err)
		return nil
	}
	defer client.SignOut(ctx, sess.AccessToken)

	green.Printf("  Backend:  ")
	fmt.Printf("connected to %s\n", cfg.Backend.URL)
	green.Printf("  Identity: ")
	fmt.Printf("%s (admin)\n", sess.User.Email)
	fmt.Println()
	return nil
}

func cmdUsers(ctx context.Context, cfg *cliConfig, args []string) error {
	fs := flag.NewFlagSet("users", flag.ExitOnError)
	search := fs.String("search", "", "filter by user UUID")
	page := fs.Int("page", 0, "zero-based page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *page < 0 {
		*page = 0
	}

	if *search != "" && !backend.IsUUID(*search) {
		return fmt.Errorf("--search must be a user UUID")
	}

	client, sess, err := signIn(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.SignOut(ctx, sess.AccessToken)

	rows, total, err := client.AdminListUsers(ctx, sess.AccessToken,
		console.PageSize, *page*console.PageSize, strings.TrimSpace(*search))
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tADMIN\tCREATED\tLAST SIGN-IN")
	for _, u := range rows {
		lastSignIn := "-"
		if u.LastSignInAt != nil {
			lastSignIn = u.LastSignInAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n",
			u.ID, u.Email, u.IsAdmin, u.CreatedAt.Format("2006-01-02"), lastSignIn)
	}
	w.Flush()

	printPageFooter(len(rows), total, *page)
	return nil
}

func cmdUser(ctx context.Context, cfg *cliConfig, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rokuo-admin user <id>")
	}
	userID := strings.TrimSpace(args[0])
	if !backend.IsUUID(userID) {
		return fmt.Errorf("user id must be a UUID")
	}

	client, sess, err := signIn(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.SignOut(ctx, sess.AccessToken)

	rows, _, err := client.AdminListUsers(ctx, sess.AccessToken, 1, 0, userID)
	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("no user with id %s", userID)
	}
	user := rows[0]

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  User")
	cyan.Println("  ----")
	fmt.Printf("  ID:       %s\n", user.ID)
	fmt.Printf("  Email:    %s\n", user.Email)
	fmt.Printf("  Admin:    %v\n", user.IsAdmin)
	fmt.Printf("  Created:  %s\n", user.CreatedAt.Format("2006-01-02 15:04"))

	var sub backend.SubscriptionRow
	err = client.From("subscriptions").
		Select("id,user_id,status,starts_at,ends_at,billing_mode,cancel_at_period_end,plan:plans(id,name,features)").
		Eq("user_id", userID).
		Order("starts_at", true).
		GetOne(ctx, sess.AccessToken, &sub)
	switch {
	case err == nil:
		plan := "-"
		if sub.Plan.Value != nil {
			plan = sub.Plan.Value.Name
		}
		fmt.Printf("  Plan:     %s (%s, ends %s)\n", plan, sub.Status, sub.EndsAt.Format("2006-01-02"))
	case errors.Is(err, backend.ErrNotFound):
		fmt.Printf("  Plan:     (no subscription)\n")
	default:
		return fmt.Errorf("loading subscription: %w", err)
	}

	var follows []backend.FollowRow
	_, err = client.From("follows").
		Select("user_id,live_account_id,status,created_at,live_accounts(id,platform,account_id,canonical_url,status)").
		Eq("user_id", userID).
		Order("created_at", true).
		Get(ctx, sess.AccessToken, &follows)
	if err != nil {
		return fmt.Errorf("loading follows: %w", err)
	}

	fmt.Println()
	cyan.Println("  Followed accounts")
	cyan.Println("  -----------------")
	if len(follows) == 0 {
		fmt.Println("  (none)")
	}
	for _, f := range follows {
		label := f.LiveAccountID
		platform := "?"
		if f.LiveAccount.Value != nil {
			label = f.LiveAccount.Value.Label()
			platform = f.LiveAccount.Value.Platform
		}
		fmt.Printf("  %s (%s) %s\n", label, platform, f.Status)
	}
	fmt.Println()
	return nil
}

func cmdAccounts(ctx context.Context, cfg *cliConfig, args []string) error {
	fs := flag.NewFlagSet("accounts", flag.ExitOnError)
	platform := fs.String("platform", "", "filter by platform")
	status := fs.String("status", "", "filter by account status")
	page := fs.Int("page", 0, "zero-based page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *page < 0 {
		*page = 0
	}

	client, sess, err := signIn(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.SignOut(ctx, sess.AccessToken)

	pager := console.Pager{Page: *page}
	q := client.From("live_accounts").
		Select("id,platform,account_id,canonical_url,status,created_at,updated_at").
		Count().
		Order("created_at", true)
	if *platform != "" {
		q = q.Eq("platform", strings.ToLower(*platform))
	}
	if *status != "" {
		q = q.Eq("status", *status)
	}
	from, to := pager.Window()

	var rows []backend.LiveAccountRow
	total, err := q.Range(from, to).Get(ctx, sess.AccessToken, &rows)
	if err != nil {
		return fmt.Errorf("listing live accounts: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tACCOUNT\tPLATFORM\tSTATUS\tCREATED")
	for _, a := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Label(), a.Platform, a.Status, a.CreatedAt.Format("2006-01-02"))
	}
	w.Flush()

	printPageFooter(len(rows), total, *page)
	return nil
}

func cmdRecordings(ctx context.Context, cfg *cliConfig, args []string) error {
	fs := flag.NewFlagSet("recordings", flag.ExitOnError)
	status := fs.String("status", "", "filter by recording status")
	platform := fs.String("platform", "", "filter by account platform")
	account := fs.String("account", "", "filter by live account UUID")
	page := fs.Int("page", 0, "zero-based page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *page < 0 {
		*page = 0
	}

	if *account != "" && !backend.IsUUID(*account) {
		return fmt.Errorf("--account must be a live account UUID")
	}

	client, sess, err := signIn(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.SignOut(ctx, sess.AccessToken)

	// An inner join narrows the result set to the platform; without the
	// platform filter a plain embed keeps recordings for deleted accounts
	// visible.
	sel := "id,live_account_id,recording_key,status,started_at,ended_at,duration_sec,size_bytes,storage_path,live_accounts(id,platform,account_id)"
	if *platform != "" {
		sel = "id,live_account_id,recording_key,status,started_at,ended_at,duration_sec,size_bytes,storage_path,live_accounts!inner(id,platform,account_id)"
	}

	q := client.From("recordings").Select(sel).Count().Order("started_at", true)
	if *status != "" {
		q = q.Eq("status", *status)
	}
	if *platform != "" {
		q = q.Eq("live_accounts.platform", strings.ToLower(*platform))
	}
	if *account != "" {
		q = q.Eq("live_account_id", strings.TrimSpace(*account))
	}

	pager := console.Pager{Page: *page}
	from, to := pager.Window()

	var rows []backend.RecordingRow
	total, err := q.Range(from, to).Get(ctx, sess.AccessToken, &rows)
	if err != nil {
		return fmt.Errorf("listing recordings: %w", err)
	}

	green := color.New(color.FgGreen)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKEY\tACCOUNT\tSTATUS\tSTARTED\tWATCHABLE")
	for _, r := range rows {
		label := r.LiveAccountID
		if r.LiveAccount.Value != nil {
			label = r.LiveAccount.Value.Label()
		}
		watchable := ""
		if r.Watchable() {
			watchable = green.Sprint("yes")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.RecordingKey, label, r.Status, r.StartedAt.Format("2006-01-02 15:04"), watchable)
	}
	w.Flush()

	printPageFooter(len(rows), total, *page)
	return nil
}

func cmdTickets(ctx context.Context, cfg *cliConfig, args []string) error {
	fs := flag.NewFlagSet("tickets", flag.ExitOnError)
	status := fs.String("status", "", "filter by ticket status")
	category := fs.String("category", "", "filter by ticket category")
	search := fs.String("search", "", "subject/email substring or exact UUID")
	page := fs.Int("page", 0, "zero-based page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *page < 0 {
		*page = 0
	}

	client, sess, err := signIn(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.SignOut(ctx, sess.AccessToken)

	q := client.From("support_tickets").Select("*").Count().Order("created_at", true)
	if *status != "" {
		q = q.Eq("status", *status)
	}
	if *category != "" {
		q = q.Eq("category", *category)
	}
	if term := strings.TrimSpace(*search); term != "" {
		if backend.IsUUID(term) {
			q = q.Or("user_id.eq."+term, "id.eq."+term)
		} else {
			pattern := "%" + backend.EscapeLike(term) + "%"
			q = q.Or("subject.ilike."+pattern, "email.ilike."+pattern)
		}
	}

	pager := console.Pager{Page: *page}
	from, to := pager.Window()

	var rows []backend.SupportTicketRow
	total, err := q.Range(from, to).Get(ctx, sess.AccessToken, &rows)
	if err != nil {
		return fmt.Errorf("listing tickets: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSUBJECT\tFROM\tCATEGORY\tSEVERITY\tSTATUS\tCREATED")
	for _, t := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Subject, t.Email, t.Category, t.Severity, colorTicketStatus(t.Status), t.CreatedAt.Format("2006-01-02"))
	}
	w.Flush()

	printPageFooter(len(rows), total, *page)
	return nil
}

func cmdTicket(ctx context.Context, cfg *cliConfig, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: rokuo-admin ticket set-status <id> <status>")
	}
	switch args[0] {
	case "set-status":
		if len(args) != 3 {
			return fmt.Errorf("usage: rokuo-admin ticket set-status <id> <status>")
		}
		return cmdTicketSetStatus(ctx, cfg, args[1], args[2])
	default:
		return fmt.Errorf("unknown ticket subcommand: %s (use set-status)", args[0])
	}
}

func cmdTicketSetStatus(ctx context.Context, cfg *cliConfig, ticketID, status string) error {
	if !backend.ValidTicketStatus(status) {
		return fmt.Errorf("invalid status %q (valid: %s)", status, strings.Join(backend.TicketStatuses, ", "))
	}

	client, sess, err := signIn(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.SignOut(ctx, sess.AccessToken)

	var updated backend.SupportTicketRow
	err = client.From("support_tickets").
		Select("status,updated_at").
		Eq("id", ticketID).
		UpdateOne(ctx, sess.AccessToken, map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		}, &updated)
	if errors.Is(err, backend.ErrNotFound) {
		return fmt.Errorf("no ticket with id %s", ticketID)
	}
	if err != nil {
		return fmt.Errorf("updating ticket: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ ")
	fmt.Printf("ticket %s is now %s\n", ticketID, updated.Status)
	return nil
}

func cmdWatch(ctx context.Context, cfg *cliConfig, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rokuo-admin watch <recording-id>")
	}
	recordingID := strings.TrimSpace(args[0])
	if !backend.IsUUID(recordingID) {
		return fmt.Errorf("recording id must be a UUID")
	}

	client, sess, err := signIn(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.SignOut(ctx, sess.AccessToken)

	grant, err := client.WatchURL(ctx, sess.AccessToken, recordingID)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Playback URL")
	cyan.Println("  ------------")
	fmt.Printf("  %s\n", grant.URL)
	fmt.Printf("  expires %s\n", grant.ExpiresAt.Format(time.RFC3339))
	fmt.Println()
	return nil
}

func colorTicketStatus(status string) string {
	switch status {
	case backend.TicketStatusOpen:
		return color.YellowString(status)
	case backend.TicketStatusInProgress:
		return color.CyanString(status)
	case backend.TicketStatusResolved, backend.TicketStatusClosed:
		return color.GreenString(status)
	default:
		return status
	}
}

func printPageFooter(shown int, total int64, page int) {
	gray := color.New(color.FgHiBlack)
	gray.Printf("\n%d of %d (page %d)\n", shown, total, page)
}
