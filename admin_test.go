package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginRequest(user, pass string) *http.Request {
	form := url.Values{"username": {user}, "password": {pass}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func adminCookieFrom(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == adminCookie {
			return c
		}
	}
	t.Fatal("no admin cookie set")
	return nil
}

func TestAdmin_RequiresLogin(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/admin/dashboard", "/admin/api/stats", "/admin/export/stats"} {
		w := e.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/admin/login", w.Header().Get("Location"), path)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: adminCookie, Value: "forged"})
	w := e.do(req)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestAdmin_LoginAndDashboard(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(loginRequest("admin", "wrong"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")

	w = e.do(loginRequest("admin", "admin123"))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))
	cookie := adminCookieFrom(t, w)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(cookie)
	w = e.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Portfolio statistics")

	req = httptest.NewRequest(http.MethodGet, "/admin/export/stats", nil)
	req.AddCookie(cookie)
	w = e.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "admin-stats.json")
	assert.Contains(t, w.Body.String(), `"total_visitors"`)

	req = httptest.NewRequest(http.MethodPost, "/admin/privacy/delete-visitor-data", nil)
	req.AddCookie(cookie)
	w = e.do(req)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestAdminAuth_ExpiredToken(t *testing.T) {
	e := newTestEnv(t)
	auth := e.srv.admin

	token, err := auth.Login("admin", "admin123")
	require.NoError(t, err)
	require.NoError(t, auth.Verify(token))

	issued := time.Now()
	auth.now = func() time.Time { return issued.Add(auth.ttl + time.Minute) }
	assert.Error(t, auth.Verify(token))

	_, err = auth.Login("root", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPrivacyPage(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(httptest.NewRequest(http.MethodGet, "/privacy", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "365 days")
	assert.Equal(t, "1 day", retentionText(24*time.Hour))
}
