package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SearchInput is a single-line text input
type SearchInput struct {
	Placeholder string
	Focused     bool
	Width       int
	Prompt      string
	Style       lipgloss.Style
	FocusStyle  lipgloss.Style

	value  []rune
	cursor int
}

// NewSearchInput creates a new search input
func NewSearchInput(width int) SearchInput {
	return SearchInput{
		Placeholder: "Search artists...",
		Width:       width,
		Prompt:      "> ",
		Style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		FocusStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1),
	}
}

func (s *SearchInput) Focus() { s.Focused = true }

func (s *SearchInput) Blur() { s.Focused = false }

// Value returns the current text
func (s SearchInput) Value() string { return string(s.value) }

// SetValue replaces the text and moves the cursor to the end
func (s *SearchInput) SetValue(value string) {
	s.value = []rune(value)
	s.cursor = len(s.value)
}

func (s *SearchInput) Clear() {
	s.value = nil
	s.cursor = 0
}

// Update edits the text while focused
func (s SearchInput) Update(msg tea.Msg) (SearchInput, tea.Cmd) {
	if !s.Focused {
		return s, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch key.Type {
	case tea.KeyBackspace:
		if s.cursor > 0 {
			s.value = append(s.value[:s.cursor-1], s.value[s.cursor:]...)
			s.cursor--
		}
	case tea.KeyDelete:
		if s.cursor < len(s.value) {
			s.value = append(s.value[:s.cursor], s.value[s.cursor+1:]...)
		}
	case tea.KeyLeft:
		if s.cursor > 0 {
			s.cursor--
		}
	case tea.KeyRight:
		if s.cursor < len(s.value) {
			s.cursor++
		}
	case tea.KeyHome, tea.KeyCtrlA:
		s.cursor = 0
	case tea.KeyEnd, tea.KeyCtrlE:
		s.cursor = len(s.value)
	case tea.KeyCtrlU:
		s.Clear()
	case tea.KeySpace:
		s.insert([]rune{' '})
	case tea.KeyRunes:
		s.insert(key.Runes)
	}
	return s, nil
}

func (s *SearchInput) insert(r []rune) {
	tail := append([]rune{}, s.value[s.cursor:]...)
	s.value = append(append(s.value[:s.cursor], r...), tail...)
	s.cursor += len(r)
}

// View renders the input with a block cursor while focused
func (s SearchInput) View() string {
	var content string
	switch {
	case len(s.value) == 0 && !s.Focused:
		content = s.Prompt + lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(s.Placeholder)
	case s.Focused:
		cursor := lipgloss.NewStyle().Background(lipgloss.Color("212")).Render(" ")
		content = s.Prompt + string(s.value[:s.cursor]) + cursor + string(s.value[s.cursor:])
	default:
		content = s.Prompt + string(s.value)
	}

	if s.Focused {
		return s.FocusStyle.Width(s.Width).Render(content)
	}
	return s.Style.Width(s.Width).Render(content)
}
