// ABOUTME: SQLite persistence for the fake backend using modernc.org/sqlite
// ABOUTME: Typed insert helpers plus generic row loading for the REST layer

package fakebackend

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/bcrypt"

	_ "modernc.org/sqlite"
)

// Store holds the fake backend's data in SQLite. The schema is created
// automatically on open.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// User is an auth account. Password is hashed on insert and never stored
// in the clear.
type User struct {
	ID               string
	Email            string
	Password         string
	IsAdmin          bool
	CreatedAt        time.Time
	LastSignInAt     *time.Time
	EmailConfirmedAt *time.Time
}

// Open creates or opens a store at path. Pass ":memory:" for tests.
func Open(path string) (*Store, error) {
	logger := slog.Default().With("component", "fakebackend")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("fake backend store initialized", "path", path)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'authenticated',
			is_admin INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			last_sign_in_at TEXT,
			email_confirmed_at TEXT
		);

		CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			features TEXT NOT NULL DEFAULT '{}'
		);

		CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			plan_id TEXT REFERENCES plans(id),
			status TEXT NOT NULL,
			starts_at TEXT NOT NULL,
			ends_at TEXT NOT NULL,
			billing_mode TEXT NOT NULL DEFAULT 'manual',
			cancel_at_period_end INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS live_accounts (
			id TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			account_id TEXT NOT NULL,
			canonical_url TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS follows (
			user_id TEXT NOT NULL REFERENCES users(id),
			live_account_id TEXT NOT NULL REFERENCES live_accounts(id),
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (user_id, live_account_id)
		);

		CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			live_account_id TEXT NOT NULL REFERENCES live_accounts(id),
			recording_key TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			duration_sec INTEGER,
			size_bytes INTEGER,
			storage_path TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS support_tickets (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			email TEXT NOT NULL,
			category TEXT NOT NULL,
			subject TEXT NOT NULL,
			message TEXT NOT NULL,
			severity TEXT NOT NULL DEFAULT 'normal',
			status TEXT NOT NULL DEFAULT 'open',
			context TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// InsertUser hashes the password and stores the account.
func (s *Store) InsertUser(u User) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.Exec(
		`INSERT INTO users (id, email, password_hash, is_admin, created_at, last_sign_in_at, email_confirmed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, string(hash), boolInt(u.IsAdmin), formatTime(createdAt),
		formatTimePtr(u.LastSignInAt), formatTimePtr(u.EmailConfirmedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// InsertPlan stores a billing plan.
func (s *Store) InsertPlan(id, name string, features map[string]any) error {
	data, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("encoding features: %w", err)
	}
	if _, err := s.db.Exec(`INSERT INTO plans (id, name, features) VALUES (?, ?, ?)`, id, name, string(data)); err != nil {
		return fmt.Errorf("inserting plan: %w", err)
	}
	return nil
}

// InsertSubscription stores a subscription.
func (s *Store) InsertSubscription(id, userID, planID, status string, startsAt, endsAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO subscriptions (id, user_id, plan_id, status, starts_at, ends_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, planID, status, formatTime(startsAt), formatTime(endsAt),
	)
	if err != nil {
		return fmt.Errorf("inserting subscription: %w", err)
	}
	return nil
}

// InsertLiveAccount stores a monitored live account.
func (s *Store) InsertLiveAccount(id, platform, accountID, canonicalURL, status string, createdAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO live_accounts (id, platform, account_id, canonical_url, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, platform, accountID, canonicalURL, status, formatTime(createdAt), formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("inserting live account: %w", err)
	}
	return nil
}

// InsertFollow joins a user to a live account.
func (s *Store) InsertFollow(userID, liveAccountID, status string, createdAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO follows (user_id, live_account_id, status, created_at) VALUES (?, ?, ?, ?)`,
		userID, liveAccountID, status, formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("inserting follow: %w", err)
	}
	return nil
}

// InsertRecording stores a recording.
func (s *Store) InsertRecording(id, liveAccountID, key, status, storagePath string, startedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO recordings (id, live_account_id, recording_key, status, started_at, storage_path)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, liveAccountID, key, status, formatTime(startedAt), storagePath,
	)
	if err != nil {
		return fmt.Errorf("inserting recording: %w", err)
	}
	return nil
}

// InsertTicket stores a support ticket.
func (s *Store) InsertTicket(id, userID, email, category, subject, message, severity, status string, createdAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO support_tickets (id, user_id, email, category, subject, message, severity, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, email, category, subject, message, severity, status, formatTime(createdAt), formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("inserting ticket: %w", err)
	}
	return nil
}

// jsonColumns are TEXT columns holding JSON blobs, decoded on load.
var jsonColumns = map[string]bool{"features": true, "context": true}

// boolColumns are INTEGER columns exposed as JSON booleans.
var boolColumns = map[string]bool{"is_admin": true, "cancel_at_period_end": true}

// restTables are the tables the REST layer may address.
var restTables = map[string]bool{
	"users":           true,
	"plans":           true,
	"subscriptions":   true,
	"live_accounts":   true,
	"follows":         true,
	"recordings":      true,
	"support_tickets": true,
}

// loadTable reads every row of a table into JSON-shaped maps. The REST layer
// filters and pages in memory; the data volumes here are test-sized.
func (s *Store) loadTable(table string) ([]map[string]any, error) {
	if !restTables[table] {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	rows, err := s.db.Query("SELECT * FROM " + table)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(col, values[i])
		}
		delete(row, "password_hash")
		out = append(out, row)
	}
	return out, rows.Err()
}

// updateRow patches one row by primary key and returns the fresh row map.
func (s *Store) updateRow(table, id string, patch map[string]any) (map[string]any, error) {
	if !restTables[table] {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	set := ""
	args := make([]any, 0, len(patch)+1)
	for col, val := range patch {
		if set != "" {
			set += ", "
		}
		set += col + " = ?"
		args = append(args, val)
	}
	if set == "" {
		return nil, fmt.Errorf("empty patch")
	}
	args = append(args, id)

	res, err := s.db.Exec("UPDATE "+table+" SET "+set+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("updating %s: %w", table, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, nil
	}

	all, err := s.loadTable(table)
	if err != nil {
		return nil, err
	}
	for _, row := range all {
		if row["id"] == id {
			return row, nil
		}
	}
	return nil, nil
}

func normalizeValue(col string, v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return normalizeValue(col, string(val))
	case string:
		if jsonColumns[col] {
			var decoded any
			if err := json.Unmarshal([]byte(val), &decoded); err == nil {
				return decoded
			}
		}
		return val
	case int64:
		if boolColumns[col] {
			return val != 0
		}
		return val
	default:
		return val
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
