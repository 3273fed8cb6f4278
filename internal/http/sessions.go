package http

import (
	"bufio"
	"database/sql"
	"net"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/config"
)

const sessionKeyCurrentImport = "current_import"

// BrowserSessions remembers which import a browser is working on, so a
// page reload picks the same import session back up.
type BrowserSessions struct {
	*scs.SessionManager
	store *sqlite3store.SQLite3Store
}

// NewBrowserSessions creates a session manager backed by the given SQLite
// database. A zero cleanupInterval disables expired-row cleanup.
func NewBrowserSessions(sqlDB *sql.DB, cfg config.Session, cleanupInterval time.Duration) (*BrowserSessions, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	store := sqlite3store.NewWithCleanupInterval(sqlDB, cleanupInterval)

	sm := scs.New()
	sm.Store = store
	sm.Lifetime = cfg.Lifetime
	if sm.Lifetime <= 0 {
		sm.Lifetime = 24 * time.Hour
	}
	sm.Cookie.Name = "cardforge_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &BrowserSessions{SessionManager: sm, store: store}, nil
}

// Close stops the background cleanup of expired sessions.
func (bs *BrowserSessions) Close() {
	bs.store.StopCleanup()
}

func (bs *BrowserSessions) CurrentImport(r *http.Request) string {
	return bs.GetString(r.Context(), sessionKeyCurrentImport)
}

func (bs *BrowserSessions) SetCurrentImport(r *http.Request, id string) {
	bs.Put(r.Context(), sessionKeyCurrentImport, id)
}

// ClearCurrentImport forgets id if it is the browser's current import.
func (bs *BrowserSessions) ClearCurrentImport(r *http.Request, id string) {
	if bs.CurrentImport(r) == id {
		bs.Remove(r.Context(), sessionKeyCurrentImport)
	}
}

// sessionResponseWriter writes the session cookie before the first byte of
// the response, since gin handlers write headers themselves.
type sessionResponseWriter struct {
	gin.ResponseWriter
	sm            *scs.SessionManager
	request       *http.Request
	wroteHeader   bool
	cookieWritten bool
}

func (w *sessionResponseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.writeSessionCookie()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionResponseWriter) WriteHeaderNow() {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.writeSessionCookie()
	}
	w.ResponseWriter.WriteHeaderNow()
}

func (w *sessionResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.writeSessionCookie()
	}
	return w.ResponseWriter.Write(b)
}

func (w *sessionResponseWriter) writeSessionCookie() {
	if w.cookieWritten {
		return
	}
	w.cookieWritten = true

	ctx := w.request.Context()
	switch w.sm.Status(ctx) {
	case scs.Modified:
		token, expiry, err := w.sm.Commit(ctx)
		if err != nil {
			return
		}
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, token, expiry)
	case scs.Destroyed:
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, "", time.Time{})
	}
}

func (w *sessionResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.Hijack()
}

// LoadSave is the gin equivalent of scs LoadAndSave.
func (bs *BrowserSessions) LoadSave() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(bs.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := bs.Load(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Request = c.Request.WithContext(ctx)

		srw := &sessionResponseWriter{
			ResponseWriter: c.Writer,
			sm:             bs.SessionManager,
			request:        c.Request,
		}
		c.Writer = srw

		c.Next()

		if !srw.wroteHeader {
			srw.writeSessionCookie()
		}
	}
}
