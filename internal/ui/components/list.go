package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// List is a scrollable, selectable list of items rendered one per line
type List[T any] struct {
	Items         []T
	Selected      int
	Height        int
	Width         int
	Offset        int
	Title         string
	Empty         string
	ShowNumbers   bool
	Render        func(T) string
	SelectedStyle lipgloss.Style
	NormalStyle   lipgloss.Style
	TitleStyle    lipgloss.Style
}

// NewList creates a list that renders items with render
func NewList[T any](height, width int, render func(T) string) List[T] {
	return List[T]{
		Height: height,
		Width:  width,
		Empty:  "Nothing here",
		Render: render,
		SelectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Bold(true).
			Padding(0, 1),
		NormalStyle: lipgloss.NewStyle().
			Padding(0, 1),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
		ShowNumbers: true,
	}
}

// SetItems replaces the items and resets the selection
func (l *List[T]) SetItems(items []T) {
	l.Items = items
	l.Selected = 0
	l.Offset = 0
}

// Select moves the selection to index, if it exists
func (l *List[T]) Select(index int) {
	if index >= 0 && index < len(l.Items) {
		l.Selected = index
		l.ensureVisible()
	}
}

// Update handles navigation keys
func (l List[T]) Update(msg tea.Msg) (List[T], tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		case "home":
			l.Selected = 0
			l.Offset = 0
		case "end":
			if len(l.Items) > 0 {
				l.Selected = len(l.Items) - 1
				l.ensureVisible()
			}
		case "pgup":
			l.PageUp()
		case "pgdown":
			l.PageDown()
		}
	}
	return l, nil
}

func (l *List[T]) MoveUp() {
	if l.Selected > 0 {
		l.Selected--
		l.ensureVisible()
	}
}

func (l *List[T]) MoveDown() {
	if l.Selected < len(l.Items)-1 {
		l.Selected++
		l.ensureVisible()
	}
}

func (l *List[T]) PageUp() {
	l.Selected = max(l.Selected-l.visibleHeight(), 0)
	l.ensureVisible()
}

func (l *List[T]) PageDown() {
	l.Selected = max(min(l.Selected+l.visibleHeight(), len(l.Items)-1), 0)
	l.ensureVisible()
}

func (l *List[T]) visibleHeight() int {
	// title and scroll indicator
	return max(l.Height-2, 1)
}

func (l *List[T]) ensureVisible() {
	visible := l.visibleHeight()
	if l.Selected < l.Offset {
		l.Offset = l.Selected
	} else if l.Selected >= l.Offset+visible {
		l.Offset = l.Selected - visible + 1
	}
}

// SelectedItem returns the selected item, false when the list is empty
func (l *List[T]) SelectedItem() (T, bool) {
	if l.Selected >= 0 && l.Selected < len(l.Items) {
		return l.Items[l.Selected], true
	}
	var zero T
	return zero, false
}

// View renders the visible window of the list
func (l List[T]) View() string {
	var sb strings.Builder

	if l.Title != "" {
		sb.WriteString(l.TitleStyle.Render(l.Title))
		sb.WriteString("\n")
	}

	if len(l.Items) == 0 {
		sb.WriteString(l.NormalStyle.Render(l.Empty))
		return sb.String()
	}

	visible := l.visibleHeight()
	end := min(l.Offset+visible, len(l.Items))

	for i := l.Offset; i < end; i++ {
		line := l.Render(l.Items[i])
		if l.ShowNumbers {
			line = fmt.Sprintf("%3d. %s", i+1, line)
		}
		line = Truncate(line, l.Width-2)

		if i == l.Selected {
			sb.WriteString(l.SelectedStyle.Render(line))
		} else {
			sb.WriteString(l.NormalStyle.Render(line))
		}
		if i < end-1 {
			sb.WriteString("\n")
		}
	}

	if len(l.Items) > visible {
		sb.WriteString("\n")
		sb.WriteString(l.NormalStyle.Render(fmt.Sprintf("  [%d/%d]", l.Selected+1, len(l.Items))))
	}

	return sb.String()
}

// Truncate shortens s to maxWidth terminal cells, ending in "…" when cut
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "…")
}
