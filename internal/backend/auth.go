// ABOUTME: Token auth against the managed backend: password grant sign-in and sign-out
// ABOUTME: Session expiry checks fall back to the access token's exp claim

package backend

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AppMetadata carries backend-managed user attributes. The admin flag is the
// sole authorization signal for the console.
type AppMetadata struct {
	IsAdmin bool `json:"is_admin"`
}

// User is the authenticated identity as reported by the backend.
type User struct {
	ID               string      `json:"id"`
	Email            string      `json:"email"`
	Role             string      `json:"role"`
	CreatedAt        *time.Time  `json:"created_at"`
	LastSignInAt     *time.Time  `json:"last_sign_in_at"`
	EmailConfirmedAt *time.Time  `json:"email_confirmed_at"`
	AppMetadata      AppMetadata `json:"app_metadata"`
}

// IsAdmin reports whether the user carries the admin flag. Safe on nil.
func (u *User) IsAdmin() bool {
	return u != nil && u.AppMetadata.IsAdmin
}

// Session is a backend auth session. The access token is the bearer
// credential for REST queries and the bespoke admin API.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Expired reports whether the session is unusable at the given time. When
// the grant response carried no expires_at, the access token's exp claim is
// consulted (unverified parse — the backend is the verifier, the console
// only needs the timestamp).
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return true
	}
	if s.ExpiresAt > 0 {
		return now.Unix() >= s.ExpiresAt
	}
	if exp, ok := tokenExpiry(s.AccessToken); ok {
		return !now.Before(exp)
	}
	return false
}

// tokenExpiry extracts the exp claim from a JWT without verifying the
// signature. Returns false when the token does not parse or has no expiry.
func tokenExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// SignIn performs a password grant and returns the resulting session. Error
// messages come verbatim from the backend.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var sess Session
	payload := map[string]string{"email": email, "password": password}
	url := c.baseURL + "/auth/v1/token?grant_type=password"
	if err := c.postJSON(ctx, url, "", payload, &sess); err != nil {
		return nil, err
	}
	if sess.ExpiresAt == 0 && sess.ExpiresIn > 0 {
		sess.ExpiresAt = time.Now().Unix() + sess.ExpiresIn
	}
	c.logger.Info("signed in", "user_id", userID(sess.User))
	return &sess, nil
}

// SignOut revokes the session behind the given access token.
func (c *Client) SignOut(ctx context.Context, token string) error {
	url := c.baseURL + "/auth/v1/logout"
	if err := c.postJSON(ctx, url, token, struct{}{}, nil); err != nil {
		return err
	}
	c.logger.Info("signed out")
	return nil
}

func userID(u *User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
