package ui

import "github.com/charmbracelet/lipgloss"

// Theme names.
const (
	ThemeBlue  = "blue"
	ThemePlain = "plain"
)

// Theme holds the styles of the title bar, status bar and content.
type Theme struct {
	Name    string
	Title   lipgloss.Style
	Status  lipgloss.Style
	Content lipgloss.Style
	Dimmed  lipgloss.Style
	Help    lipgloss.Style
}

// NewTheme returns the named theme; unknown names get the blue theme.
func NewTheme(name string) Theme {
	if name == ThemePlain {
		return Theme{
			Name:    ThemePlain,
			Title:   lipgloss.NewStyle().Bold(true).Padding(0, 1),
			Status:  lipgloss.NewStyle().Padding(0, 1),
			Content: lipgloss.NewStyle().Padding(1, 1),
			Dimmed:  lipgloss.NewStyle().Faint(true).Padding(0, 1),
			Help:    lipgloss.NewStyle().Faint(true).Padding(0, 1),
		}
	}
	return Theme{
		Name: ThemeBlue,
		Title: lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#2A3873")),
		Status: lipgloss.NewStyle().Padding(0, 1).
			Foreground(lipgloss.Color("#DDDDDD")).Background(lipgloss.Color("#2A3873")),
		Content: lipgloss.NewStyle().Padding(1, 1),
		Dimmed: lipgloss.NewStyle().Faint(true).Padding(0, 1).
			Background(lipgloss.Color("#2A3873")),
		Help: lipgloss.NewStyle().Foreground(lipgloss.Color("#7A86B8")).Padding(0, 1),
	}
}

// Next returns the theme that follows t in the toggle order.
func (t Theme) Next() Theme {
	if t.Name == ThemeBlue {
		return NewTheme(ThemePlain)
	}
	return NewTheme(ThemeBlue)
}
