package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Session data keys.
const (
	SessionKeyUsername = "admin_username"
	SessionKeyLoginAt  = "login_at"
)

// SessionManager wraps scs.SessionManager with the admin-session
// operations the handlers need.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager. When sqlDB
// is non-nil sessions persist in sqlite; otherwise scs's in-memory
// store is used, which fits the flat-file content backend where no
// SQL connection exists.
func NewSessionManager(sqlDB *sql.DB, lifetime time.Duration, secureCookies bool) (*SessionManager, error) {
	sm := scs.New()

	if sqlDB != nil {
		_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
		if err != nil {
			return nil, err
		}
		sm.Store = sqlite3store.New(sqlDB)
	}

	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	sm.Cookie.Name = "fg_admin_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession starts an authenticated admin session. Called after
// password verification; the token is renewed to prevent fixation.
func (sm *SessionManager) CreateSession(r *http.Request, username string) error {
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}
	sm.Put(r.Context(), SessionKeyUsername, username)
	sm.Put(r.Context(), SessionKeyLoginAt, time.Now().Unix())
	return nil
}

// DestroySession invalidates the session.
func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// Username returns the authenticated admin username, or "" when the
// request carries no valid session.
func (sm *SessionManager) Username(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyUsername)
}

// IsAuthenticated reports whether the request has a valid admin session.
func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	return sm.Username(r) != ""
}

// GenerateSessionSecret returns a fresh 32-byte random secret,
// hex-encoded, for deployments that do not configure one.
func GenerateSessionSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
