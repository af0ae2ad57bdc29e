package portfolio

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// AchievementID identifies an achievement: every tracked section plus the
// synthetic dark mode marker.
type AchievementID string

// AchievementDarkMode is unlocked by the first theme toggle.
const AchievementDarkMode AchievementID = "darkMode"

// SectionAchievement returns the achievement earned by exploring a section.
func SectionAchievement(id SectionID) AchievementID {
	return AchievementID(id)
}

// Label returns the id with its first letter upper-cased.
func (a AchievementID) Label() string {
	s := string(a)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// NoticeText is the message shown when the achievement unlocks.
func (a AchievementID) NoticeText() string {
	return "Achievement Unlocked: " + a.Label() + "!"
}

// Badge describes how an unlocked achievement is drawn in the badge rail.
type Badge struct {
	ID    AchievementID `json:"id"`
	Icon  string        `json:"icon"`
	Title string        `json:"title"`
}

// BadgeFor maps an achievement to its icon and hover title.
func BadgeFor(id AchievementID) Badge {
	switch id {
	case SectionAchievement(SectionProjects):
		return Badge{ID: id, Icon: "star", Title: "Project Explorer"}
	case SectionAchievement(SectionSkills):
		return Badge{ID: id, Icon: "target", Title: "Skill Seeker"}
	case SectionAchievement(SectionExperience):
		return Badge{ID: id, Icon: "trophy", Title: "Experience Hunter"}
	case AchievementDarkMode:
		return Badge{ID: id, Icon: "moon", Title: "Night Owl"}
	default:
		return Badge{ID: id, Icon: "trophy", Title: "Achievement Unlocked"}
	}
}

// Registry is the append-only set of unlocked achievements. Order of
// insertion is kept so badges render in the order they were earned.
type Registry struct {
	order []AchievementID
	index map[AchievementID]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[AchievementID]struct{})}
}

// Unlock adds id and reports whether it was new. Unlocking an id that is
// already present has no effect.
func (r *Registry) Unlock(id AchievementID) bool {
	if strings.TrimSpace(string(id)) == "" {
		return false
	}
	if r.index == nil {
		r.index = make(map[AchievementID]struct{})
	}
	if _, ok := r.index[id]; ok {
		return false
	}
	r.index[id] = struct{}{}
	r.order = append(r.order, id)
	return true
}

// Has reports whether id has been unlocked.
func (r *Registry) Has(id AchievementID) bool {
	_, ok := r.index[id]
	return ok
}

// Len returns the number of unlocked achievements.
func (r *Registry) Len() int {
	return len(r.order)
}

// List returns the unlocked achievements in unlock order.
func (r *Registry) List() []AchievementID {
	out := make([]AchievementID, len(r.order))
	copy(out, r.order)
	return out
}

// Badges returns the badge for every unlocked achievement.
func (r *Registry) Badges() []Badge {
	out := make([]Badge, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, BadgeFor(id))
	}
	return out
}

func (r *Registry) clone() *Registry {
	out := NewRegistry()
	for _, id := range r.order {
		out.Unlock(id)
	}
	return out
}
