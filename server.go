package main

import (
	"bytes"
	"context"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/contact"
	"github.com/Zachkp/folio/internal/logger"
	"github.com/Zachkp/folio/internal/portfolio"
	"github.com/Zachkp/folio/internal/session"
	"github.com/Zachkp/folio/internal/web"
	"github.com/Zachkp/folio/internal/ws"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// server holds everything the HTTP handlers need.
type server struct {
	cfg       *config.Config
	sessions  *session.Manager
	hub       *ws.Hub
	analytics Analytics
	visits    VisitRecorder
	db        Pinger
	mailer    contact.Mailer
	admin     *adminAuth
	tmpl      *template.Template
	upgrader  websocket.Upgrader
}

// eventsResponse answers the JSON fallback of the websocket.
type eventsResponse struct {
	Events  []portfolio.Event `json:"events"`
	Badges  []portfolio.Badge `json:"badges"`
	Notices any               `json:"notices"`
}

// stateResponse is a snapshot of one page view.
type stateResponse struct {
	Session      uuid.UUID                 `json:"session"`
	Theme        portfolio.ThemeMode       `json:"theme"`
	MenuOpen     bool                      `json:"menuOpen"`
	Progress     float64                   `json:"progress"`
	Visible      []portfolio.SectionID     `json:"visible"`
	Seen         []portfolio.SectionID     `json:"seen"`
	Achievements []portfolio.AchievementID `json:"achievements"`
	Badges       []portfolio.Badge         `json:"badges"`
	Notices      any                       `json:"notices"`
}

// newRouter builds the gin engine with every route of the site.
func (s *server) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), visitorTracking(s.visits))
	r.SetHTMLTemplate(s.tmpl)

	r.StaticFS("/static", http.FS(web.Static()))

	r.GET("/", s.handleIndex)
	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api/sessions/:id")
	api.POST("/events", s.handleEvents)
	api.GET("/state", s.handleState)

	r.GET("/ws", s.handleWS)

	r.POST("/contact", rateLimit(s.cfg.RateLimitLimit, s.cfg.RateLimitPeriod), s.handleContact)

	s.setupAdminRoutes(r)
	return r
}

// handleIndex starts a fresh page view and renders the page for it.
func (s *server) handleIndex(c *gin.Context) {
	sess := s.sessions.Create()
	page, err := web.BuildPage(sess.ID.String(), sess.State(), sess.Notices())
	if err != nil {
		s.sessions.Remove(sess.ID)
		logger.Log.WithError(err).Error("building page")
		c.String(http.StatusInternalServerError, "failed to build page")
		return
	}

	var buf bytes.Buffer
	if err := web.RenderPage(&buf, s.tmpl, page); err != nil {
		s.sessions.Remove(sess.ID)
		logger.Log.WithError(err).Error("rendering page")
		c.String(http.StatusInternalServerError, "failed to render page")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *server) handleHealth(c *gin.Context) {
	if err := s.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
}

func (s *server) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

// handleEvents applies one action posted by the browser.
func (s *server) handleEvents(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}

	var action portfolio.Action
	if err := c.ShouldBindJSON(&action); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed action"})
		return
	}

	events, err := s.sessions.Dispatch(c.Request.Context(), id, action)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	resp := eventsResponse{Events: events, Badges: []portfolio.Badge{}}
	for _, e := range events {
		if e.Type == portfolio.EventAchievementUnlocked {
			resp.Badges = append(resp.Badges, portfolio.BadgeFor(e.Achievement))
		}
	}
	if sess, err := s.sessions.Get(id); err == nil {
		resp.Notices = sess.Notices()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) handleState(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	st := sess.State()
	c.JSON(http.StatusOK, stateResponse{
		Session:      sess.ID,
		Theme:        st.Theme,
		MenuOpen:     st.MenuOpen,
		Progress:     st.Progress,
		Visible:      st.Tracker.Visible.Sorted(),
		Seen:         st.Tracker.Seen.Sorted(),
		Achievements: st.Achievements.List(),
		Badges:       st.Achievements.Badges(),
		Notices:      sess.Notices(),
	})
}

// handleWS serves GET /ws?session=<id>
func (s *server) handleWS(c *gin.Context) {
	id, err := uuid.Parse(c.Query("session"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	if _, err := s.sessions.Get(id); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := ws.NewClient(conn, s.hub, s.sessions, id)
	if !s.hub.Register(client) {
		_ = conn.Close()
		return
	}
	client.Run(c.Request.Context())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, portfolio.ErrUnknownAction), errors.Is(err, portfolio.ErrMissingTick):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
