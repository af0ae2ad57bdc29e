package content

// Project is one card in the projects grid.
type Project struct {
	Title       string
	Description string
	Tags        []string
	Link        string
	Icon        string
}

// Skill is a category of related tools.
type Skill struct {
	Category string
	Items    []string
}

// Experience is one entry on the experience timeline.
type Experience struct {
	Title       string
	Description string
	Duration    string
}

// Link is a contact or social link shown in the contact section.
type Link struct {
	Label string
	Href  string
	Icon  string
}

// Profile is the hero and footer copy.
type Profile struct {
	Name      string
	Headline  string
	About     string
	ResumeURL string
	Links     []Link
	Copyright string
}

var owner = Profile{
	Name:     "Brook",
	Headline: "Android Developer & Security Enthusiast",
	About: `4th-year Computer Science student passionate about creating **secure, user-friendly**
mobile applications and exploring the depths of cybersecurity.`,
	ResumeURL: "#",
	Links: []Link{
		{Label: "GitHub", Href: "mailto:brookteklebrhan123@gmail.com", Icon: "github"},
		{Label: "LinkedIn", Href: "https://www.linkedin.com/in/brook-teklebrhan-687b11241", Icon: "linkedin"},
		{Label: "Email", Href: "mailto:brookteklebrhan123@gmail.com", Icon: "mail"},
	},
	Copyright: "© 2024 Brook. All rights reserved.",
}

var projects = []Project{
	{
		Title:       "Hospital Management System",
		Description: "A comprehensive system built with C# & MySQL, featuring interfaces for doctors, nurses, and patients",
		Tags:        []string{"C#", "MySQL", "Database Design", "UI/UX"},
		Link:        "#",
		Icon:        "code",
	},
	{
		Title:       "Secure File Transfer System",
		Description: "Implemented encryption and secure authentication methods for safe file transfers",
		Tags:        []string{"Security", "Encryption", "Authentication"},
		Link:        "#",
		Icon:        "target",
	},
	{
		Title:       "Android E-commerce App",
		Description: "Full-featured e-commerce application with payment integration",
		Tags:        []string{"Kotlin", "Android", "Payment Integration"},
		Link:        "#",
		Icon:        "star",
	},
	{
		Title:       "Music Streaming App",
		Description: "Android music streaming application with modern features",
		Tags:        []string{"Android", "Kotlin", "API Integration"},
		Link:        "#",
		Icon:        "trophy",
	},
}

var skills = []Skill{
	{Category: "Mobile Development", Items: []string{"Kotlin", "Android Studio", "UI/UX Design"}},
	{Category: "Web Development", Items: []string{"PHP (MVC)", "MySQL", "API Development"}},
	{Category: "Cybersecurity", Items: []string{"Penetration Testing", "OWASP", "Burp Suite", "Kali Linux"}},
	{Category: "Game Development", Items: []string{"Unity", "C#", "Game Design"}},
	{Category: "Programming", Items: []string{"Python", "C", "Object-Oriented Programming"}},
}

var experiences = []Experience{
	{
		Title:       "Android Development Projects",
		Description: "Developed multiple production-ready applications including Todo app, E-commerce platform, and Music streaming service",
		Duration:    "2022 - Present",
	},
	{
		Title:       "Product Management System",
		Description: "Built a PHP-based admin system following MVC architecture principles",
		Duration:    "2023",
	},
	{
		Title:       "Cybersecurity Projects",
		Description: "Conducted web penetration testing and vulnerability assessments",
		Duration:    "2022 - Present",
	},
}

// Owner returns the profile of the site owner.
func Owner() Profile {
	p := owner
	p.Links = append([]Link(nil), owner.Links...)
	return p
}

// Projects returns a copy of the project list.
func Projects() []Project {
	out := make([]Project, len(projects))
	for i, p := range projects {
		p.Tags = append([]string(nil), p.Tags...)
		out[i] = p
	}
	return out
}

// Skills returns a copy of the skill list.
func Skills() []Skill {
	out := make([]Skill, len(skills))
	for i, s := range skills {
		s.Items = append([]string(nil), s.Items...)
		out[i] = s
	}
	return out
}

// Experiences returns a copy of the experience list.
func Experiences() []Experience {
	return append([]Experience(nil), experiences...)
}
