// ABOUTME: HTTP surface of the fake backend: auth, REST, RPC, and watch URLs
// ABOUTME: Serves the exact dialect the console client speaks, nothing more

package fakebackend

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// tokenTTL is the lifetime of minted access tokens.
const tokenTTL = time.Hour

// watchGrantTTL is the lifetime of playback URLs.
const watchGrantTTL = 10 * time.Minute

// Server serves the fake backend over HTTP.
type Server struct {
	store     *Store
	jwtSecret []byte
	mediaBase string
	mux       *http.ServeMux
	logger    *slog.Logger
}

// NewServer wires the HTTP surface over the store. jwtSecret signs minted
// access tokens; mediaBase prefixes playback URLs.
func NewServer(store *Store, jwtSecret []byte, mediaBase string) *Server {
	s := &Server{
		store:     store,
		jwtSecret: jwtSecret,
		mediaBase: strings.TrimRight(mediaBase, "/"),
		mux:       http.NewServeMux(),
		logger:    slog.Default().With("component", "fakebackend"),
	}
	s.mux.HandleFunc("POST /auth/v1/token", s.handleToken)
	s.mux.HandleFunc("POST /auth/v1/logout", s.handleLogout)
	s.mux.HandleFunc("POST /rest/v1/rpc/admin_list_users", s.handleAdminListUsers)
	s.mux.HandleFunc("/rest/v1/{table}", s.handleRest)
	s.mux.HandleFunc("GET /api/v1/admin/recordings/{id}/watch-url", s.handleWatchURL)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type tokenClaims struct {
	Email       string         `json:"email"`
	AppMetadata map[string]any `json:"app_metadata"`
	jwt.RegisteredClaims
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grant_type") != "password" {
		writeAuthError(w, http.StatusBadRequest, "unsupported grant type")
		return
	}

	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var id, hash string
	var isAdmin bool
	err := s.store.db.QueryRow(
		"SELECT id, password_hash, is_admin FROM users WHERE email = ?", creds.Email,
	).Scan(&id, &hash, &isAdmin)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(hash), []byte(creds.Password)) != nil {
		writeAuthError(w, http.StatusBadRequest, "Invalid login credentials")
		return
	}

	now := time.Now()
	expiresAt := now.Add(tokenTTL)
	claims := tokenClaims{
		Email:       creds.Email,
		AppMetadata: map[string]any{"is_admin": isAdmin},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		s.logger.Error("failed to sign token", "error", err)
		writeAuthError(w, http.StatusInternalServerError, "token signing failed")
		return
	}

	if _, err := s.store.db.Exec("UPDATE users SET last_sign_in_at = ? WHERE id = ?", formatTime(now), id); err != nil {
		s.logger.Warn("failed to record sign-in time", "error", err)
	}

	writeJSONBody(w, http.StatusOK, map[string]any{
		"access_token":  token,
		"token_type":    "bearer",
		"expires_in":    int(tokenTTL.Seconds()),
		"expires_at":    expiresAt.Unix(),
		"refresh_token": uuid.New().String(),
		"user": map[string]any{
			"id":           id,
			"email":        creds.Email,
			"app_metadata": map[string]any{"is_admin": isAdmin},
		},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	var payload struct {
		LimitCount   int     `json:"limit_count"`
		OffsetCount  int     `json:"offset_count"`
		FilterUserID *string `json:"filter_user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeRestError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.LimitCount <= 0 {
		payload.LimitCount = 20
	}

	rows, err := s.store.loadTable("users")
	if err != nil {
		s.logger.Error("failed to load users", "error", err)
		writeRestError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if payload.FilterUserID != nil && *payload.FilterUserID != "" {
		filtered := rows[:0]
		for _, row := range rows {
			if row["id"] == *payload.FilterUserID {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return stringValue(rows[i]["created_at"]) > stringValue(rows[j]["created_at"])
	})

	total := len(rows)
	from := payload.OffsetCount
	if from > total {
		from = total
	}
	to := from + payload.LimitCount
	if to > total {
		to = total
	}

	out := make([]map[string]any, 0, to-from)
	for _, row := range rows[from:to] {
		out = append(out, map[string]any{
			"id":                 row["id"],
			"created_at":         row["created_at"],
			"email":              row["email"],
			"role":               row["role"],
			"last_sign_in_at":    row["last_sign_in_at"],
			"email_confirmed_at": row["email_confirmed_at"],
			"is_admin":           row["is_admin"],
			"total_count":        total,
		})
	}
	writeJSONBody(w, http.StatusOK, out)
}

func (s *Server) handleRest(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	if !restTables[table] {
		writeRestError(w, http.StatusNotFound, fmt.Sprintf("relation %q does not exist", table))
		return
	}
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleRestRead(w, r, table)
	case http.MethodPatch:
		s.handleRestPatch(w, r, table)
	default:
		writeRestError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleRestRead(w http.ResponseWriter, r *http.Request, table string) {
	q, err := parseRestQuery(table, r.URL.Query())
	if err != nil {
		writeRestError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := q.run(s.store)
	if err != nil {
		s.logger.Error("rest query failed", "table", table, "error", err)
		writeRestError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total := len(rows)
	from, to := 0, total-1
	if header := r.Header.Get("Range"); header != "" {
		f, t, ok := parseRangeHeader(header)
		if !ok {
			writeRestError(w, http.StatusBadRequest, "invalid range")
			return
		}
		from, to = f, t
	}
	if q.limit > 0 && from+q.limit-1 < to {
		to = from + q.limit - 1
	}
	if from > total {
		from = total
	}
	if to >= total {
		to = total - 1
	}

	page := rows[from:min(to+1, total)]
	if from <= to && total > 0 {
		w.Header().Set("Content-Range", fmt.Sprintf("%d-%d/%d", from, to, total))
	} else {
		w.Header().Set("Content-Range", fmt.Sprintf("*/%d", total))
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	if page == nil {
		page = []map[string]any{}
	}
	writeJSONBody(w, http.StatusOK, page)
}

func (s *Server) handleRestPatch(w http.ResponseWriter, r *http.Request, table string) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeRestError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := ""
	for key, vals := range r.URL.Query() {
		if key == "id" && len(vals) == 1 {
			id = strings.TrimPrefix(vals[0], "eq.")
		}
	}
	if id == "" {
		writeRestError(w, http.StatusBadRequest, "updates require an id filter")
		return
	}

	row, err := s.store.updateRow(table, id, patch)
	if err != nil {
		s.logger.Error("rest patch failed", "table", table, "error", err)
		writeRestError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if row == nil {
		writeJSONBody(w, http.StatusOK, []map[string]any{})
		return
	}

	if sel := r.URL.Query().Get("select"); sel != "" && sel != "*" {
		projected := make(map[string]any)
		for _, col := range strings.Split(sel, ",") {
			projected[col] = row[col]
		}
		row = projected
	}
	writeJSONBody(w, http.StatusOK, []map[string]any{row})
}

func (s *Server) handleWatchURL(w http.ResponseWriter, r *http.Request) {
	claims, err := s.parseBearer(r)
	if err != nil {
		writePlainError(w, http.StatusUnauthorized, "Missing or invalid authorization")
		return
	}
	if isAdmin, _ := claims.AppMetadata["is_admin"].(bool); !isAdmin {
		writePlainError(w, http.StatusForbidden, "Admin access required")
		return
	}

	id := r.PathValue("id")
	var status, storagePath string
	err = s.store.db.QueryRow(
		"SELECT status, storage_path FROM recordings WHERE id = ?", id,
	).Scan(&status, &storagePath)
	if err != nil {
		writePlainError(w, http.StatusNotFound, "Recording not found")
		return
	}
	if status != "ready" || strings.TrimSpace(storagePath) == "" {
		writePlainError(w, http.StatusConflict, "Recording is not ready for playback")
		return
	}

	expiresAt := time.Now().Add(watchGrantTTL)
	mac := hmac.New(sha256.New, s.jwtSecret)
	fmt.Fprintf(mac, "%s:%d", storagePath, expiresAt.Unix())
	sig := hex.EncodeToString(mac.Sum(nil))

	writeJSONBody(w, http.StatusOK, map[string]any{
		"recording_id": id,
		"url":          fmt.Sprintf("%s/%s?expires=%d&sig=%s", s.mediaBase, storagePath, expiresAt.Unix(), sig),
		"expires_at":   expiresAt.UTC().Format(time.RFC3339),
	})
}

// requireAdmin validates the bearer token and the admin claim for the data
// surfaces. REST errors are JSON; callers that need plain text handle auth
// themselves.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) (*tokenClaims, bool) {
	claims, err := s.parseBearer(r)
	if err != nil {
		writeRestError(w, http.StatusUnauthorized, "invalid or missing token")
		return nil, false
	}
	if isAdmin, _ := claims.AppMetadata["is_admin"].(bool); !isAdmin {
		writeRestError(w, http.StatusForbidden, "admin access required")
		return nil, false
	}
	return claims, true
}

func (s *Server) parseBearer(r *http.Request) (*tokenClaims, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, fmt.Errorf("missing bearer token")
	}

	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return &claims, nil
}

func writeJSONBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeRestError(w http.ResponseWriter, status int, message string) {
	writeJSONBody(w, status, map[string]string{"message": message})
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	writeJSONBody(w, status, map[string]string{"error_description": message})
}

func writePlainError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, message)
}
