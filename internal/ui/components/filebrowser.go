package components

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/spotify_streamer/internal/audio"
	"github.com/samber/lo"
)

// FileEntry is a directory or a playable file in the browser
type FileEntry struct {
	Name  string
	Path  string
	IsDir bool
}

// FileBrowser navigates the filesystem, listing directories and audio files
type FileBrowser struct {
	Width       int
	Height      int
	CurrentPath string
	Entries     []FileEntry
	Selected    int
	Offset      int
	Err         error

	DirStyle      lipgloss.Style
	FileStyle     lipgloss.Style
	SelectedStyle lipgloss.Style
	PathStyle     lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewFileBrowser creates a browser at startPath, or the home directory when empty
func NewFileBrowser(startPath string, width, height int) FileBrowser {
	fb := FileBrowser{
		Width:  width,
		Height: height,
		DirStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true),
		FileStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")),
		SelectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("255")).
			Bold(true),
		PathStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
	}

	if startPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			startPath = home
		} else {
			startPath = string(filepath.Separator)
		}
	}

	fb.Navigate(startPath)
	return fb
}

// Navigate lists path: parent first, then directories, then supported audio files
func (fb *FileBrowser) Navigate(path string) {
	fb.CurrentPath = filepath.Clean(path)
	fb.Selected = 0
	fb.Offset = 0
	fb.Err = nil
	fb.Entries = nil

	entries, err := os.ReadDir(fb.CurrentPath)
	if err != nil {
		fb.Err = err
		return
	}

	if parent := filepath.Dir(fb.CurrentPath); parent != fb.CurrentPath {
		fb.Entries = append(fb.Entries, FileEntry{Name: "..", Path: parent, IsDir: true})
	}

	var dirs, files []FileEntry
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		fe := FileEntry{
			Name:  entry.Name(),
			Path:  filepath.Join(fb.CurrentPath, entry.Name()),
			IsDir: entry.IsDir(),
		}
		switch {
		case fe.IsDir:
			dirs = append(dirs, fe)
		case audio.IsSupported(fe.Name):
			files = append(files, fe)
		}
	}

	byName := func(a, b FileEntry) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
	slices.SortFunc(dirs, byName)
	slices.SortFunc(files, byName)

	fb.Entries = append(fb.Entries, dirs...)
	fb.Entries = append(fb.Entries, files...)
}

// Update handles navigation keys
func (fb FileBrowser) Update(msg tea.Msg) (FileBrowser, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return fb, nil
	}

	switch key.String() {
	case "up", "k":
		if fb.Selected > 0 {
			fb.Selected--
		}
	case "down", "j":
		if fb.Selected < len(fb.Entries)-1 {
			fb.Selected++
		}
	case "pgup":
		fb.Selected = max(fb.Selected-fb.visibleHeight(), 0)
	case "pgdown":
		fb.Selected = max(min(fb.Selected+fb.visibleHeight(), len(fb.Entries)-1), 0)
	case "home":
		fb.Selected = 0
	case "end":
		fb.Selected = max(len(fb.Entries)-1, 0)
	case "backspace":
		fb.Navigate(filepath.Dir(fb.CurrentPath))
	case "~":
		if home, err := os.UserHomeDir(); err == nil {
			fb.Navigate(home)
		}
	}
	fb.ensureVisible()
	return fb, nil
}

// SelectedEntry returns the selected entry, or nil if none
func (fb *FileBrowser) SelectedEntry() *FileEntry {
	if fb.Selected >= 0 && fb.Selected < len(fb.Entries) {
		return &fb.Entries[fb.Selected]
	}
	return nil
}

// EnterSelected descends into a selected directory and returns "", or
// returns the path of a selected file.
func (fb *FileBrowser) EnterSelected() string {
	entry := fb.SelectedEntry()
	if entry == nil {
		return ""
	}
	if entry.IsDir {
		fb.Navigate(entry.Path)
		return ""
	}
	return entry.Path
}

// Files returns the playable files in the current directory, in display order
func (fb *FileBrowser) Files() []string {
	return lo.FilterMap(fb.Entries, func(e FileEntry, _ int) (string, bool) {
		return e.Path, !e.IsDir
	})
}

func (fb *FileBrowser) visibleHeight() int {
	// border, path line and help
	return max(fb.Height-6, 1)
}

func (fb *FileBrowser) ensureVisible() {
	visible := fb.visibleHeight()
	if fb.Selected < fb.Offset {
		fb.Offset = fb.Selected
	} else if fb.Selected >= fb.Offset+visible {
		fb.Offset = fb.Selected - visible + 1
	}
}

// View renders the browser
func (fb FileBrowser) View() string {
	var sb strings.Builder

	sb.WriteString(fb.PathStyle.Render(fb.CurrentPath))
	sb.WriteString("\n\n")

	if fb.Err != nil {
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		sb.WriteString(errorStyle.Render("Error: " + fb.Err.Error()))
		sb.WriteString("\n")
	}

	visible := fb.visibleHeight()
	end := min(fb.Offset+visible, len(fb.Entries))

	for i := fb.Offset; i < end; i++ {
		entry := fb.Entries[i]
		line := "  " + entry.Name
		if entry.IsDir {
			line = "/ " + entry.Name
		}
		line = Truncate(line, fb.Width-10)

		switch {
		case i == fb.Selected:
			sb.WriteString(fb.SelectedStyle.Render(line))
		case entry.IsDir:
			sb.WriteString(fb.DirStyle.Render(line))
		default:
			sb.WriteString(fb.FileStyle.Render(line))
		}
		sb.WriteString("\n")
	}

	for i := end - fb.Offset; i < visible; i++ {
		sb.WriteString("\n")
	}

	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	count := lo.CountBy(fb.Entries, func(e FileEntry) bool { return !e.IsDir })
	sb.WriteString(muted.Render(fmt.Sprintf("%s\nFiles: %d", strings.Repeat("─", 20), count)))
	sb.WriteString("\n\n")
	sb.WriteString(muted.Render("[Enter] Open/Play  [Backspace] Up  [~] Home  [Esc] Cancel"))

	return fb.BorderStyle.Width(fb.Width - 4).Render(sb.String())
}
