package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/auth"
)

// SessionCookieName is the cookie carrying the session token
const SessionCookieName = "storefront_session"

// SessionStore reads and writes the session token. The cookie is the
// primary carrier; the Authorization header is the fallback so API
// clients work without cookies
type SessionStore struct {
	// CookieMaxAge is the cookie lifetime in seconds
	CookieMaxAge int
	// Secure marks the cookie as HTTPS-only
	Secure bool
}

// NewSessionStore creates a session store with the given cookie lifetime
func NewSessionStore(maxAge int, secure bool) *SessionStore {
	return &SessionStore{CookieMaxAge: maxAge, Secure: secure}
}

// Load returns the session token from the cookie, or from the
// Authorization header when no cookie is set
func (s *SessionStore) Load(c *gin.Context) string {
	if token, err := c.Cookie(SessionCookieName); err == nil && token != "" {
		return token
	}
	header := c.GetHeader(AuthHeaderKey)
	if strings.HasPrefix(header, BearerPrefix) {
		return strings.TrimPrefix(header, BearerPrefix)
	}
	return ""
}

// Save writes the session token to the cookie
func (s *SessionStore) Save(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, s.CookieMaxAge, "/", "", s.Secure, true)
}

// Clear removes the session cookie
func (s *SessionStore) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", s.Secure, true)
}

// SessionNavigationConfig classifies navigable routes for the session
// middleware
type SessionNavigationConfig struct {
	// ProtectedPaths require a valid session (e.g. /checkout)
	ProtectedPaths []string
	// AuthOnlyPaths are for signed-out visitors (e.g. /login, /register)
	AuthOnlyPaths []string
	// LoginPath is where unauthenticated visitors are sent
	LoginPath string
}

// DefaultSessionNavigationConfig returns the standard route classes
func DefaultSessionNavigationConfig() SessionNavigationConfig {
	return SessionNavigationConfig{
		ProtectedPaths: []string{"/checkout"},
		AuthOnlyPaths:  []string{"/login", "/register"},
		LoginPath:      "/login",
	}
}

// SessionNavigation enforces the route classes on page navigations:
//   - protected route without a valid session ⇒ 303 to the login page
//     with the original path in the `redirect` query param; an invalid
//     token is also cleared
//   - auth-only route with a valid session ⇒ 303 to the `redirect`
//     query param, or the site root
//   - auth-only route with an invalid token ⇒ clear it and pass
//     through, so a stale cookie cannot trap the visitor in a loop
func SessionNavigation(jwtService *auth.JWTService, store *SessionStore, cfg SessionNavigationConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		protected := matchesPath(cfg.ProtectedPaths, path)
		authOnly := matchesPath(cfg.AuthOnlyPaths, path)
		if !protected && !authOnly {
			c.Next()
			return
		}

		token := store.Load(c)
		valid := false
		if token != "" {
			if _, err := jwtService.Verify(token); err == nil {
				valid = true
			}
		}

		if protected {
			if valid {
				c.Next()
				return
			}
			if token != "" {
				store.Clear(c)
			}
			target := cfg.LoginPath + "?redirect=" + url.QueryEscape(path)
			c.Redirect(http.StatusSeeOther, target)
			c.Abort()
			return
		}

		// Auth-only route
		if valid {
			target := c.Query("redirect")
			if target == "" || !strings.HasPrefix(target, "/") {
				target = "/"
			}
			c.Redirect(http.StatusSeeOther, target)
			c.Abort()
			return
		}
		if token != "" {
			store.Clear(c)
		}
		c.Next()
	}
}

func matchesPath(prefixes []string, path string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
