package portfolio

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrUnknownAction is returned for an action type Reduce does not handle.
var ErrUnknownAction = errors.New("portfolio: unknown action")

// ErrMissingTick is returned for a scroll action without measurements.
var ErrMissingTick = errors.New("portfolio: scroll action without tick")

// ActionType names a state transition.
type ActionType string

const (
	ActionScrollTick  ActionType = "SCROLL_TICK"
	ActionToggleTheme ActionType = "TOGGLE_THEME"
	ActionToggleMenu  ActionType = "TOGGLE_MENU"
)

// Action is a user or browser event fed to the state container.
type Action struct {
	Type ActionType  `json:"type"`
	Tick *ScrollTick `json:"tick,omitempty"`
}

// ScrollAction wraps a measurement in a SCROLL_TICK action.
func ScrollAction(tick ScrollTick) Action {
	return Action{Type: ActionScrollTick, Tick: &tick}
}

// ToggleThemeAction returns a TOGGLE_THEME action.
func ToggleThemeAction() Action {
	return Action{Type: ActionToggleTheme}
}

// ToggleMenuAction returns a TOGGLE_MENU action.
func ToggleMenuAction() Action {
	return Action{Type: ActionToggleMenu}
}

// EventType names something that happened during a transition.
type EventType string

const (
	EventProgress            EventType = "progress"
	EventSectionEntered      EventType = "section_entered"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventThemeChanged        EventType = "theme_changed"
	EventMenuToggled         EventType = "menu_toggled"
)

// Event is emitted by Reduce. Only the fields relevant to Type are set.
type Event struct {
	Type        EventType     `json:"type"`
	Section     SectionID     `json:"section,omitempty"`
	Achievement AchievementID `json:"achievement,omitempty"`
	Theme       ThemeMode     `json:"theme,omitempty"`
	Progress    float64       `json:"progress"`
	MenuOpen    bool          `json:"menuOpen,omitempty"`
	Notice      string        `json:"notice,omitempty"`
}

// State is everything that changes while a page is open.
type State struct {
	Theme        ThemeMode
	MenuOpen     bool
	Progress     float64
	Tracker      Tracker
	Achievements *Registry
}

// NewState returns the state of a freshly loaded page.
func NewState() State {
	return State{
		Theme:        ThemeLight,
		Tracker:      NewTracker(),
		Achievements: NewRegistry(),
	}
}

// Clone returns a deep copy so callers can read it without holding a lock.
func (s State) Clone() State {
	out := s
	out.Tracker = s.Tracker.clone()
	if s.Achievements != nil {
		out.Achievements = s.Achievements.clone()
	} else {
		out.Achievements = NewRegistry()
	}
	return out
}

// Reduce applies a to s and returns the new state together with the events the
// transition produced. s is not modified.
func Reduce(s State, a Action) (State, []Event, error) {
	next := s.Clone()

	switch a.Type {
	case ActionScrollTick:
		if a.Tick == nil {
			return s, nil, ErrMissingTick
		}
		return next, reduceScroll(&next, *a.Tick), nil
	case ActionToggleTheme:
		next.Theme = next.Theme.Toggled()
		events := []Event{{Type: EventThemeChanged, Theme: next.Theme}}
		events = append(events, unlock(&next, AchievementDarkMode)...)
		return next, events, nil
	case ActionToggleMenu:
		next.MenuOpen = !next.MenuOpen
		return next, []Event{{Type: EventMenuToggled, MenuOpen: next.MenuOpen}}, nil
	default:
		return s, nil, ErrUnknownAction
	}
}

func reduceScroll(s *State, tick ScrollTick) []Event {
	s.Progress = Progress(tick.ScrollY, tick.DocumentHeight, tick.ViewportHeight)
	events := []Event{{Type: EventProgress, Progress: s.Progress}}

	for _, id := range s.Tracker.Observe(tick) {
		events = append(events, Event{Type: EventSectionEntered, Section: id})
		events = append(events, unlock(s, SectionAchievement(id))...)
	}
	return events
}

func unlock(s *State, id AchievementID) []Event {
	if !s.Achievements.Unlock(id) {
		return nil
	}
	return []Event{{Type: EventAchievementUnlocked, Achievement: id, Notice: id.NoticeText()}}
}

// Store serialises actions against one State.
type Store struct {
	mu    sync.Mutex
	state State
}

// NewStore returns a store holding a fresh page state.
func NewStore() *Store {
	return &Store{state: NewState()}
}

// Dispatch applies a and returns the resulting events.
func (st *Store) Dispatch(a Action) ([]Event, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	next, events, err := Reduce(st.state, a)
	if err != nil {
		return nil, err
	}
	st.state = next
	return events, nil
}

// Snapshot returns a copy of the current state.
func (st *Store) Snapshot() State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.Clone()
}
