package web

import (
	"fmt"
	"html/template"
	"io/fs"

	"github.com/pkg/errors"

	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/notice"
	"github.com/Zachkp/folio/internal/portfolio"
)

// NavLink is an in-page anchor in the navigation bar.
type NavLink struct {
	Href  string
	Label string
}

// ProjectCard is the view of one project.
type ProjectCard struct {
	Title       string
	Description template.HTML
	Tags        []string
	Link        string
	Icon        string
}

// SkillCard is the view of one skill category.
type SkillCard struct {
	Category string
	Items    []string
}

// ExperienceCard is the view of one experience entry.
type ExperienceCard struct {
	Title       string
	Description template.HTML
	Duration    string
}

// Hero is the about section.
type Hero struct {
	Name      string
	Headline  string
	About     template.HTML
	ResumeURL string
}

// Page is everything the layout template needs.
type Page struct {
	SessionID   string
	Live        bool
	Hero        Hero
	Nav         []NavLink
	Projects    []ProjectCard
	Skills      []SkillCard
	Experiences []ExperienceCard
	Links       []content.Link
	Copyright   string
	Badges      []portfolio.Badge
	Notices     []notice.Notice
	Theme       portfolio.ThemeMode
	MenuOpen    bool
	Progress    float64

	// Script and Style inline the static assets into a page without a server.
	Script template.JS
	Style  template.CSS
}

// RootClass is the class list of the <html> element.
func (p *Page) RootClass() string {
	return p.Theme.RootClass()
}

// ProgressWidth is the CSS width of the progress bar.
func (p *Page) ProgressWidth() string {
	return fmt.Sprintf("%.2f%%", p.Progress)
}

func navLinks() []NavLink {
	links := []NavLink{{Href: "#about", Label: "About"}}
	for _, id := range portfolio.AllSections() {
		links = append(links, NavLink{Href: "#" + string(id), Label: portfolio.AchievementID(id).Label()})
	}
	return links
}

// NewProjectCard renders a project's Markdown description.
func NewProjectCard(p content.Project) (ProjectCard, error) {
	desc, err := content.InlineMarkdown(p.Description)
	if err != nil {
		return ProjectCard{}, errors.Wrapf(err, "web: project %q", p.Title)
	}
	return ProjectCard{Title: p.Title, Description: desc, Tags: p.Tags, Link: p.Link, Icon: p.Icon}, nil
}

// NewSkillCard builds a skill card.
func NewSkillCard(s content.Skill) SkillCard {
	return SkillCard{Category: s.Category, Items: s.Items}
}

// NewExperienceCard renders an experience's Markdown description.
func NewExperienceCard(e content.Experience) (ExperienceCard, error) {
	desc, err := content.InlineMarkdown(e.Description)
	if err != nil {
		return ExperienceCard{}, errors.Wrapf(err, "web: experience %q", e.Title)
	}
	return ExperienceCard{Title: e.Title, Description: desc, Duration: e.Duration}, nil
}

// BuildPage composes the page from the static content and the state of one
// page view. An empty sessionID builds a static page without live updates.
func BuildPage(sessionID string, state portfolio.State, notices []notice.Notice) (*Page, error) {
	profile := content.Owner()
	about, err := content.Markdown(profile.About)
	if err != nil {
		return nil, errors.Wrap(err, "web: about")
	}

	page := &Page{
		SessionID: sessionID,
		Live:      sessionID != "",
		Hero: Hero{
			Name:      profile.Name,
			Headline:  profile.Headline,
			About:     about,
			ResumeURL: profile.ResumeURL,
		},
		Nav:       navLinks(),
		Links:     profile.Links,
		Copyright: profile.Copyright,
		Theme:     state.Theme,
		MenuOpen:  state.MenuOpen,
		Progress:  state.Progress,
		Notices:   notices,
	}
	if page.Theme == "" {
		page.Theme = portfolio.ThemeLight
	}
	if state.Achievements != nil {
		page.Badges = state.Achievements.Badges()
	}

	if !page.Live {
		if err := page.inlineAssets(); err != nil {
			return nil, err
		}
	}

	for _, p := range content.Projects() {
		card, err := NewProjectCard(p)
		if err != nil {
			return nil, err
		}
		page.Projects = append(page.Projects, card)
	}
	for _, s := range content.Skills() {
		page.Skills = append(page.Skills, NewSkillCard(s))
	}
	for _, e := range content.Experiences() {
		card, err := NewExperienceCard(e)
		if err != nil {
			return nil, err
		}
		page.Experiences = append(page.Experiences, card)
	}
	return page, nil
}

func (p *Page) inlineAssets() error {
	js, err := fs.ReadFile(Static(), "app.js")
	if err != nil {
		return errors.Wrap(err, "web: reading app.js")
	}
	css, err := fs.ReadFile(Static(), "style.css")
	if err != nil {
		return errors.Wrap(err, "web: reading style.css")
	}
	p.Script = template.JS(js)
	p.Style = template.CSS(css)
	return nil
}
