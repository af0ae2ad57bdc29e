package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/contact"
	"github.com/Zachkp/folio/internal/logger"
	"github.com/Zachkp/folio/internal/portfolio"
	"github.com/Zachkp/folio/internal/session"
	"github.com/Zachkp/folio/internal/store"
	"github.com/Zachkp/folio/internal/ws"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []contact.Message
	err  error
}

func (m *fakeMailer) Send(msg contact.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type testEnv struct {
	srv    *server
	router *gin.Engine
	store  *store.Store
	mailer *fakeMailer
}

func newTestEnv(t *testing.T, tweaks ...func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.NoticeUnit = time.Minute
	for _, tweak := range tweaks {
		tweak(cfg)
	}

	mailer := &fakeMailer{}
	s, err := newServer(cfg, st, mailer)
	require.NoError(t, err)
	go s.hub.Run(ctx)

	return &testEnv{srv: s, router: s.newRouter(), store: st, mailer: mailer}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

var sessionAttr = regexp.MustCompile(`data-session="([0-9a-f-]{36})"`)

func (e *testEnv) openPage(t *testing.T) string {
	t.Helper()
	w := e.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	m := sessionAttr.FindStringSubmatch(w.Body.String())
	require.Len(t, m, 2)
	return m[1]
}

func skillsTick() portfolio.ScrollTick {
	return portfolio.ScrollTick{
		ScrollY:        600,
		ViewportHeight: 800,
		DocumentHeight: 2400,
		Sections: map[portfolio.SectionID]portfolio.Rect{
			portfolio.SectionProjects:   {Top: -900, Bottom: -100},
			portfolio.SectionSkills:     {Top: 100, Bottom: 700},
			portfolio.SectionExperience: {Top: 900, Bottom: 1500},
		},
	}
}

func postAction(t *testing.T, e *testEnv, id string, action any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(action)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func TestIndex_StartsFreshPageView(t *testing.T) {
	e := newTestEnv(t)

	first := e.openPage(t)
	second := e.openPage(t)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, e.srv.sessions.Len())

	w := e.do(httptest.NewRequest(http.MethodGet, "/", nil))
	body := w.Body.String()
	for _, anchor := range []string{`id="about"`, `id="projects"`, `id="skills"`, `id="experience"`, `id="contact"`} {
		assert.Contains(t, body, anchor)
	}
	assert.NotContains(t, body, `class="dark"`)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestEvents_ScrollUnlocksSection(t *testing.T) {
	e := newTestEnv(t)
	id := e.openPage(t)

	w := postAction(t, e, id, portfolio.ScrollAction(skillsTick()))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Events  []portfolio.Event `json:"events"`
		Badges  []portfolio.Badge `json:"badges"`
		Notices []struct {
			Text string `json:"text"`
		} `json:"notices"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Events, 3)
	assert.Equal(t, portfolio.EventProgress, resp.Events[0].Type)
	assert.InDelta(t, 37.5, resp.Events[0].Progress, 1e-9)
	assert.Equal(t, portfolio.SectionSkills, resp.Events[1].Section)
	assert.Equal(t, portfolio.EventAchievementUnlocked, resp.Events[2].Type)
	assert.Equal(t, "Achievement Unlocked: Skills!", resp.Events[2].Notice)

	require.Len(t, resp.Badges, 1)
	assert.Equal(t, "Skill Seeker", resp.Badges[0].Title)
	require.Len(t, resp.Notices, 1)
	assert.Equal(t, "Achievement Unlocked: Skills!", resp.Notices[0].Text)

	// the same geometry again only moves the bar
	w = postAction(t, e, id, portfolio.ScrollAction(skillsTick()))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Empty(t, resp.Badges)

	require.Eventually(t, func() bool {
		stats, err := e.store.Stats(context.Background())
		return err == nil && stats.TotalUnlocks == 1
	}, time.Second, 10*time.Millisecond)
}

func TestEvents_ThemeToggleUnlocksOnce(t *testing.T) {
	e := newTestEnv(t)
	id := e.openPage(t)

	postAction(t, e, id, portfolio.ToggleThemeAction())
	postAction(t, e, id, portfolio.ToggleThemeAction())

	w := e.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/state", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var st struct {
		Theme        string   `json:"theme"`
		Achievements []string `json:"achievements"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "light", st.Theme)
	assert.Equal(t, []string{"darkMode"}, st.Achievements)
}

func TestEvents_Errors(t *testing.T) {
	e := newTestEnv(t)
	id := e.openPage(t)

	w := postAction(t, e, "00000000-0000-0000-0000-000000000000", portfolio.ToggleThemeAction())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = postAction(t, e, "not-a-uuid", portfolio.ToggleThemeAction())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postAction(t, e, id, map[string]string{"type": "JUMP"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postAction(t, e, id, map[string]string{"type": "SCROLL_TICK"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(httptest.NewRequest(http.MethodGet, "/api/sessions/00000000-0000-0000-0000-000000000000/state", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebsocket_RoundTrip(t *testing.T) {
	e := newTestEnv(t)
	ts := httptest.NewServer(e.router)
	t.Cleanup(ts.Close)

	id := e.openPage(t)
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=" + url.QueryEscape(id)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer conn.Close()

	tick, err := json.Marshal(skillsTick())
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ws.Envelope{Type: ws.CommandScroll, Data: tick}))

	seen := map[string]bool{}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for !seen["achievement_unlocked"] || !seen["badge_added"] || !seen["notice_visible"] {
		var env ws.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		seen[env.Type] = true
	}
}

func TestWebsocket_DropKeepsSession(t *testing.T) {
	e := newTestEnv(t)
	ts := httptest.NewServer(e.router)
	t.Cleanup(ts.Close)

	id := e.openPage(t)
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=" + url.QueryEscape(id)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)

	sid := uuid.MustParse(id)
	require.Eventually(t, func() bool { return e.srv.hub.Connected(sid) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return e.srv.hub.Connected(sid) == 0 }, time.Second, 5*time.Millisecond)

	// the page falls back to POST after the socket is gone
	w := postAction(t, e, id, portfolio.ToggleThemeAction())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sess, err := e.srv.sessions.Get(sid)
	require.NoError(t, err)
	assert.True(t, sess.State().Theme.IsDark())

	// and the socket can come back to the same page view
	conn, _, err = websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return e.srv.hub.Connected(sid) == 1 }, time.Second, 5*time.Millisecond)
}

func TestIndex_SessionCeiling(t *testing.T) {
	e := newTestEnv(t, func(cfg *config.Config) { cfg.MaxSessions = 2 })

	first := e.openPage(t)
	e.openPage(t)
	e.openPage(t)

	assert.Equal(t, 2, e.srv.sessions.Len())
	_, err := e.srv.sessions.Get(uuid.MustParse(first))
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestWebsocket_UnknownSession(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(httptest.NewRequest(http.MethodGet, "/ws?session=00000000-0000-0000-0000-000000000000", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVisitorTracking(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("DNT", "1")
	e.do(req)
	e.do(httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	e.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Eventually(t, func() bool {
		stats, err := e.store.Stats(context.Background())
		return err == nil && stats.TotalVisitors == 1
	}, time.Second, 10*time.Millisecond)

	stats, err := e.store.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats.RecentVisitors, 1)
	assert.Equal(t, "/", stats.RecentVisitors[0].Path)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func contactRequest(name, email, message string) *http.Request {
	form := url.Values{"fullName": {name}, "email": {email}, "message": {message}}
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestContact(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(contactRequest("", "", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Please fill in")
	assert.Empty(t, e.mailer.sent)

	w = e.do(contactRequest("Ada", "ada@example.com", "Hello there"))
	assert.Contains(t, w.Body.String(), "Thank you for your message!")
	require.Len(t, e.mailer.sent, 1)
	assert.Equal(t, "Ada", e.mailer.sent[0].Name)

	e.mailer.err = contact.ErrNotConfigured
	w = e.do(contactRequest("Ada", "ada@example.com", "Hello again"))
	assert.Contains(t, w.Body.String(), "error sending your message")
}
