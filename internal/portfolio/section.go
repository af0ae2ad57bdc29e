package portfolio

// SectionID names one of the tracked page sections. The value doubles as the
// anchor id of the section on the page.
type SectionID string

const (
	SectionProjects   SectionID = "projects"
	SectionSkills     SectionID = "skills"
	SectionExperience SectionID = "experience"
	SectionContact    SectionID = "contact"
)

var sectionOrder = []SectionID{SectionProjects, SectionSkills, SectionExperience, SectionContact}

// AllSections returns the tracked sections in page order.
func AllSections() []SectionID {
	out := make([]SectionID, len(sectionOrder))
	copy(out, sectionOrder)
	return out
}

// ParseSection reports whether s names a tracked section.
func ParseSection(s string) (SectionID, bool) {
	for _, id := range sectionOrder {
		if string(id) == s {
			return id, true
		}
	}
	return "", false
}

// Rect is the vertical extent of a rendered element relative to the viewport top.
type Rect struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Intersects reports whether the element overlaps a viewport of the given height.
func (r Rect) Intersects(viewportHeight float64) bool {
	return r.Top < viewportHeight && r.Bottom >= 0
}

// ScrollTick is one measurement of the page taken on a scroll or resize.
// Sections maps each anchor found on the page to its geometry; an anchor that
// is missing from the page is simply absent from the map.
type ScrollTick struct {
	ScrollY        float64            `json:"scrollY"`
	ViewportHeight float64            `json:"viewportHeight"`
	DocumentHeight float64            `json:"documentHeight"`
	Sections       map[SectionID]Rect `json:"sections"`
}

// SectionSet is a set of sections.
type SectionSet map[SectionID]struct{}

// Has reports membership.
func (s SectionSet) Has(id SectionID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in page order.
func (s SectionSet) Sorted() []SectionID {
	out := make([]SectionID, 0, len(s))
	for _, id := range sectionOrder {
		if s.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

func (s SectionSet) clone() SectionSet {
	out := make(SectionSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Tracker derives which sections are in view and remembers every section that
// has ever been in view. Seen only grows, so a section that scrolls out and
// back in is never reported as entered a second time.
type Tracker struct {
	Visible SectionSet
	Seen    SectionSet
}

// NewTracker returns a tracker with nothing visible or seen.
func NewTracker() Tracker {
	return Tracker{Visible: SectionSet{}, Seen: SectionSet{}}
}

// Observe recomputes the visible set from tick and returns, in page order, the
// sections entering view for the first time.
func (t *Tracker) Observe(tick ScrollTick) []SectionID {
	if t.Seen == nil {
		t.Seen = SectionSet{}
	}

	visible := SectionSet{}
	var entered []SectionID
	for _, id := range sectionOrder {
		rect, ok := tick.Sections[id]
		if !ok {
			continue
		}
		if !rect.Intersects(tick.ViewportHeight) {
			continue
		}
		visible[id] = struct{}{}
		if !t.Seen.Has(id) {
			t.Seen[id] = struct{}{}
			entered = append(entered, id)
		}
	}
	t.Visible = visible
	return entered
}

func (t Tracker) clone() Tracker {
	return Tracker{Visible: t.Visible.clone(), Seen: t.Seen.clone()}
}
