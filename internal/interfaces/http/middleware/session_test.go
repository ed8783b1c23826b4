package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newSessionRouter(t *testing.T) (*gin.Engine, *SessionStore, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := newTestJWTService()
	store := NewSessionStore(3600, false)
	r := gin.New()
	r.Use(SessionNavigation(svc, store, DefaultSessionNavigationConfig()))

	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	r.GET("/checkout", ok)
	r.GET("/login", ok)
	r.GET("/register", ok)
	r.GET("/products", ok)

	return r, store, issueTestToken(t, svc, "user")
}

func TestSessionNavigation_ProtectedWithoutToken(t *testing.T) {
	r, _, _ := newSessionRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?redirect=%2Fcheckout", w.Header().Get("Location"))
}

func TestSessionNavigation_ProtectedWithInvalidTokenClearsCookie(t *testing.T) {
	r, _, _ := newSessionRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale-token"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)

	cleared := false
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == SessionCookieName && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "stale session cookie should be cleared")
}

func TestSessionNavigation_ProtectedWithValidCookie(t *testing.T) {
	r, _, token := newSessionRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionNavigation_ProtectedWithBearerHeader(t *testing.T) {
	r, _, token := newSessionRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionNavigation_AuthOnlyWithValidTokenRedirects(t *testing.T) {
	r, _, token := newSessionRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login?redirect=%2Fcheckout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/checkout", w.Header().Get("Location"))
}

func TestSessionNavigation_AuthOnlyWithValidTokenDefaultsToRoot(t *testing.T) {
	r, _, token := newSessionRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/register", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestSessionNavigation_AuthOnlyWithInvalidTokenPassesThrough(t *testing.T) {
	r, _, _ := newSessionRouter(t)

	// A stale cookie on /login must not redirect back to /login
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale-token"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionNavigation_PublicPathUntouched(t *testing.T) {
	r, _, _ := newSessionRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionNavigation_ExternalRedirectRejected(t *testing.T) {
	r, _, token := newSessionRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login?redirect=https%3A%2F%2Fevil.example", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestSessionStore_SaveAndClear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewSessionStore(3600, false)

	r := gin.New()
	r.GET("/set", func(c *gin.Context) {
		store.Save(c, "token-value")
		c.Status(http.StatusOK)
	})
	r.GET("/unset", func(c *gin.Context) {
		store.Clear(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/set", nil))
	cookies := w.Result().Cookies()
	assert.Len(t, cookies, 1)
	assert.Equal(t, "token-value", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unset", nil))
	cookies = w.Result().Cookies()
	assert.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}
