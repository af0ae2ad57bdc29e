// Package notice presents achievement unlocks as transient on-screen notices.
//
// A notice is visible for VisibleUnits, fades for FadeUnits and is then
// removed. The Notifier only reacts to events produced by the portfolio state
// container; it never decides whether something was unlocked.
package notice

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Zachkp/folio/internal/portfolio"
)

const (
	VisibleUnits = 3.0
	FadeUnits    = 0.5
)

// Phase is where a notice is in its lifetime.
type Phase string

const (
	PhaseVisible Phase = "visible"
	PhaseFading  Phase = "fading"
	PhaseRemoved Phase = "removed"
)

// Notice is one floating message.
type Notice struct {
	ID          string                  `json:"id"`
	Achievement portfolio.AchievementID `json:"achievement"`
	Text        string                  `json:"text"`
	Phase       Phase                   `json:"phase"`
	ShownAt     time.Time               `json:"shownAt"`
}

// Sink receives every phase change. It is called without the notifier's lock
// held and may block briefly.
type Sink func(Notice)

type timer interface {
	Stop() bool
}

// afterFunc schedules f after d. Tests replace it with a manual clock.
type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

type entry struct {
	seq    uint64
	notice Notice
	timer  timer
}

// Notifier owns the notices of one page view.
type Notifier struct {
	mu      sync.Mutex
	unit    time.Duration
	sink    Sink
	entries map[string]*entry
	seq     uint64
	closed  bool
	after   afterFunc
}

// NewNotifier creates a notifier. unit is the length of one time unit; sink
// may be nil.
func NewNotifier(unit time.Duration, sink Sink) *Notifier {
	if unit <= 0 {
		unit = time.Second
	}
	if sink == nil {
		sink = func(Notice) {}
	}
	return &Notifier{unit: unit, sink: sink, entries: make(map[string]*entry), after: realAfterFunc}
}

func (n *Notifier) visibleFor() time.Duration {
	return time.Duration(VisibleUnits * float64(n.unit))
}

func (n *Notifier) fadeFor() time.Duration {
	return time.Duration(FadeUnits * float64(n.unit))
}

// Handle shows a notice for every achievement_unlocked event and returns the
// notices it created.
func (n *Notifier) Handle(events []portfolio.Event) []Notice {
	var shown []Notice
	for _, e := range events {
		if e.Type != portfolio.EventAchievementUnlocked {
			continue
		}
		text := e.Notice
		if text == "" {
			text = e.Achievement.NoticeText()
		}
		if nt, ok := n.Show(e.Achievement, text); ok {
			shown = append(shown, nt)
		}
	}
	return shown
}

// Show adds a notice and schedules its fade and removal. It reports false once
// the notifier is closed.
func (n *Notifier) Show(id portfolio.AchievementID, text string) (Notice, bool) {
	nt := Notice{
		ID:          uuid.NewString(),
		Achievement: id,
		Text:        text,
		Phase:       PhaseVisible,
		ShownAt:     time.Now(),
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return Notice{}, false
	}
	n.seq++
	e := &entry{seq: n.seq, notice: nt}
	n.entries[nt.ID] = e
	n.mu.Unlock()

	n.sink(nt)

	n.mu.Lock()
	if cur, ok := n.entries[nt.ID]; ok && cur == e {
		e.timer = n.after(n.visibleFor(), func() { n.fade(nt.ID) })
	}
	n.mu.Unlock()
	return nt, true
}

func (n *Notifier) fade(id string) {
	n.mu.Lock()
	e, ok := n.entries[id]
	if !ok || e.notice.Phase != PhaseVisible {
		n.mu.Unlock()
		return
	}
	e.notice.Phase = PhaseFading
	nt := e.notice
	e.timer = n.after(n.fadeFor(), func() { n.remove(id) })
	n.mu.Unlock()

	n.sink(nt)
}

func (n *Notifier) remove(id string) {
	n.mu.Lock()
	e, ok := n.entries[id]
	if !ok {
		n.mu.Unlock()
		return
	}
	delete(n.entries, id)
	nt := e.notice
	n.mu.Unlock()

	nt.Phase = PhaseRemoved
	n.sink(nt)
}

// Dismiss removes a notice immediately. Dismissing a notice that is already
// gone does nothing and reports false.
func (n *Notifier) Dismiss(id string) bool {
	n.mu.Lock()
	e, ok := n.entries[id]
	if !ok {
		n.mu.Unlock()
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(n.entries, id)
	nt := e.notice
	n.mu.Unlock()

	nt.Phase = PhaseRemoved
	n.sink(nt)
	return true
}

// Active returns the notices still on screen, oldest first.
func (n *Notifier) Active() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()

	live := make([]*entry, 0, len(n.entries))
	for _, e := range n.entries {
		live = append(live, e)
	}
	sort.Slice(live, func(i, j int) bool { return live[i].seq < live[j].seq })

	out := make([]Notice, len(live))
	for i, e := range live {
		out[i] = e.notice
	}
	return out
}

// Close cancels every pending timer and drops all notices without notifying
// the sink. Later calls to Show are ignored.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, e := range n.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(n.entries, id)
	}
	n.closed = true
}
