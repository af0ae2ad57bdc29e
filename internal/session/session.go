package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Zachkp/folio/internal/goroutine"
	"github.com/Zachkp/folio/internal/logger"
	"github.com/Zachkp/folio/internal/notice"
	"github.com/Zachkp/folio/internal/portfolio"
)

// EventBadgeAdded carries the badge of a new unlock to the browser.
const EventBadgeAdded = "badge_added"

// ErrNotFound is returned for an unknown or expired session.
var ErrNotFound = errors.New("session: not found")

// Publisher pushes a message to the browser that owns a session.
type Publisher interface {
	Publish(sessionID uuid.UUID, event string, data any) error
}

// Presence reports how many browsers are connected to a session.
type Presence interface {
	Connected(sessionID uuid.UUID) int
}

// UnlockRecorder stores anonymous unlock counts.
type UnlockRecorder interface {
	RecordUnlock(ctx context.Context, id portfolio.AchievementID) error
}

// Session is the state of one open page.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	store    *portfolio.Store
	notices  *notice.Notifier
	mu       sync.Mutex
	lastSeen time.Time
}

// State returns a snapshot of the page state.
func (s *Session) State() portfolio.State {
	return s.store.Snapshot()
}

// Notices returns the notices currently on screen.
func (s *Session) Notices() []notice.Notice {
	return s.notices.Active()
}

// DismissNotice removes a notice early.
func (s *Session) DismissNotice(id string) bool {
	return s.notices.Dismiss(id)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Options configures a Manager. Sessions with a connected browser are never
// swept; when MaxSessions is reached Create evicts the longest idle session.
type Options struct {
	TTL         time.Duration
	NoticeUnit  time.Duration
	MaxSessions int
	Publisher   Publisher
	Presence    Presence
	Recorder    UnlockRecorder
}

// Manager keeps the live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	opts     Options
	now      func() time.Time
}

// NewManager creates an empty manager.
func NewManager(opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.NoticeUnit <= 0 {
		opts.NoticeUnit = time.Second
	}
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		opts:     opts,
		now:      time.Now,
	}
}

// Create starts a session for a freshly loaded page.
func (m *Manager) Create() *Session {
	now := m.now()
	s := &Session{
		ID:        uuid.New(),
		CreatedAt: now,
		store:     portfolio.NewStore(),
		lastSeen:  now,
	}
	s.notices = notice.NewNotifier(m.opts.NoticeUnit, func(n notice.Notice) {
		m.publish(s.ID, "notice_"+string(n.Phase), n)
	})

	m.mu.Lock()
	var evicted *Session
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		evicted = m.evictLocked()
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if evicted != nil {
		evicted.notices.Close()
		logger.Log.WithField("session", evicted.ID).Debug("session evicted")
	}
	logger.Log.WithField("session", s.ID).Debug("session created")
	return s
}

// evictLocked drops the longest idle session, preferring ones without a
// connected browser. m.mu must be held.
func (m *Manager) evictLocked() *Session {
	var victim, fallback *Session
	for _, s := range m.sessions {
		if fallback == nil || s.idleSince().Before(fallback.idleSince()) {
			fallback = s
		}
		if m.connected(s.ID) {
			continue
		}
		if victim == nil || s.idleSince().Before(victim.idleSince()) {
			victim = s
		}
	}
	if victim == nil {
		victim = fallback
	}
	if victim != nil {
		delete(m.sessions, victim.ID)
	}
	return victim
}

func (m *Manager) connected(id uuid.UUID) bool {
	return m.opts.Presence != nil && m.opts.Presence.Connected(id) > 0
}

// Touch restarts the idle clock of a session. Unknown ids are ignored.
func (m *Manager) Touch(id uuid.UUID) {
	if s, err := m.Get(id); err == nil {
		s.touch(m.now())
	}
}

// Get returns a live session.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove ends a session and cancels its notices.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.notices.Close()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Dispatch applies an action to a session, publishes the resulting events and
// hands unlocks to the notifier and the recorder.
func (m *Manager) Dispatch(ctx context.Context, id uuid.UUID, a portfolio.Action) ([]portfolio.Event, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	s.touch(m.now())

	events, err := s.store.Dispatch(a)
	if err != nil {
		return nil, err
	}

	for _, e := range events {
		m.publish(id, string(e.Type), e)
		if e.Type == portfolio.EventAchievementUnlocked {
			m.publish(id, EventBadgeAdded, portfolio.BadgeFor(e.Achievement))
			m.record(ctx, id, e.Achievement)
		}
	}
	s.notices.Handle(events)
	return events, nil
}

func (m *Manager) publish(id uuid.UUID, event string, data any) {
	if m.opts.Publisher == nil {
		return
	}
	if err := m.opts.Publisher.Publish(id, event, data); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"session": id,
			"event":   event,
			"error":   err,
		}).Warn("publish failed")
	}
}

func (m *Manager) record(ctx context.Context, id uuid.UUID, achievement portfolio.AchievementID) {
	if m.opts.Recorder == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	goroutine.SafeGo(func() {
		if err := m.opts.Recorder.RecordUnlock(ctx, achievement); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"session":     id,
				"achievement": achievement,
				"error":       err,
			}).Error("recording unlock failed")
		}
	})
}

// DismissNotice removes a notice from a session's screen.
func (m *Manager) DismissNotice(id uuid.UUID, noticeID string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.touch(m.now())
	s.DismissNotice(noticeID)
	return nil
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed. Sessions with a connected browser are kept.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.opts.TTL)

	var expired []uuid.UUID
	m.mu.RLock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) && !m.connected(id) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.Remove(id)
	}
	return len(expired)
}

// Run sweeps expired sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	interval := m.opts.TTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Log.WithField("expired", n).Debug("sessions swept")
			}
		}
	}
}
