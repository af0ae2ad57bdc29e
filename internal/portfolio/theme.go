package portfolio

// ThemeMode is the page-wide colour scheme.
type ThemeMode string

const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
)

// DarkClass is the class applied to the document root while dark mode is on.
const DarkClass = "dark"

// Toggled returns the opposite mode.
func (m ThemeMode) Toggled() ThemeMode {
	if m == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// IsDark reports whether the dark scheme is active.
func (m ThemeMode) IsDark() bool {
	return m == ThemeDark
}

// RootClass returns the class for the document root, empty in light mode.
func (m ThemeMode) RootClass() string {
	if m.IsDark() {
		return DarkClass
	}
	return ""
}
