package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/mira/internal/history"
)

// sidebarMode represents what the sidebar is waiting for
type sidebarMode int

const (
	sidebarBrowse sidebarMode = iota
	sidebarSearch
	sidebarConfirmDelete
)

// sidebar lists conversations newest first and marks the active one
type sidebar struct {
	conversations []*history.Conversation
	filtered      []*history.Conversation
	activeID      string

	cursor int
	mode   sidebarMode

	// Search mode
	searchInput textinput.Model
	searchQuery string

	// Delete confirmation
	deleteID    string
	deleteTitle string
}

func newSidebar() sidebar {
	searchInput := textinput.New()
	searchInput.Placeholder = "Search..."
	searchInput.CharLimit = 50
	searchInput.Prompt = "/ "

	return sidebar{
		mode:        sidebarBrowse,
		searchInput: searchInput,
	}
}

// load replaces the listed conversations and keeps the cursor on the active one
func (s *sidebar) load(convs []*history.Conversation, activeID string) {
	s.conversations = convs
	s.activeID = activeID
	s.applyFilter()

	for i, c := range s.filtered {
		if c.ID == activeID {
			s.cursor = i
			return
		}
	}
}

// applyFilter narrows the list to titles containing the search query
func (s *sidebar) applyFilter() {
	s.filtered = nil
	query := strings.ToLower(s.searchQuery)
	for _, conv := range s.conversations {
		if query != "" && !strings.Contains(strings.ToLower(conv.Title), query) {
			continue
		}
		s.filtered = append(s.filtered, conv)
	}

	if s.cursor >= len(s.filtered) {
		s.cursor = max(0, len(s.filtered)-1)
	}
}

func (s *sidebar) up() {
	if s.cursor > 0 {
		s.cursor--
	}
}

func (s *sidebar) down() {
	if s.cursor < len(s.filtered)-1 {
		s.cursor++
	}
}

// selected returns the conversation under the cursor
func (s *sidebar) selected() *history.Conversation {
	if s.cursor < 0 || s.cursor >= len(s.filtered) {
		return nil
	}
	return s.filtered[s.cursor]
}

// askDelete enters confirmation mode for conv
func (s *sidebar) askDelete(conv *history.Conversation) {
	if conv == nil {
		return
	}
	s.mode = sidebarConfirmDelete
	s.deleteID = conv.ID
	s.deleteTitle = conv.Title
}

func (s *sidebar) cancelDelete() {
	s.mode = sidebarBrowse
	s.deleteID = ""
	s.deleteTitle = ""
}

func (s *sidebar) startSearch() {
	s.mode = sidebarSearch
	s.searchInput.SetValue(s.searchQuery)
	s.searchInput.Focus()
}

func (s *sidebar) endSearch(keep bool) {
	if keep {
		s.searchQuery = strings.TrimSpace(s.searchInput.Value())
	} else {
		s.searchQuery = ""
		s.searchInput.SetValue("")
	}
	s.searchInput.Blur()
	s.mode = sidebarBrowse
	s.cursor = 0
	s.applyFilter()
}

// view renders the sidebar panel
func (s sidebar) view(width, height int, focused bool) string {
	inner := width - 4
	var lines []string

	lines = append(lines, sidebarHeaderStyle.Render(fmt.Sprintf("Chats (%d)", len(s.conversations))))

	switch s.mode {
	case sidebarSearch:
		lines = append(lines, s.searchInput.View())
	case sidebarConfirmDelete:
		lines = append(lines,
			sidebarConfirmStyle.Render("Delete '"+truncateTitle(s.deleteTitle, inner-10)+"'?"),
			hintStyle.Render("y: confirm  n: cancel"),
		)
	default:
		if s.searchQuery != "" {
			lines = append(lines, hintStyle.Render("filter: "+truncateTitle(s.searchQuery, inner-8)))
		}
	}

	// Each item takes two lines
	available := height - 2 - len(lines)
	maxItems := max(1, available/2)

	if len(s.filtered) == 0 {
		if s.searchQuery != "" {
			lines = append(lines, hintStyle.Render("No matches"))
		} else {
			lines = append(lines, hintStyle.Render("No conversations yet"))
		}
	} else {
		scrollOffset := 0
		if s.cursor >= maxItems {
			scrollOffset = s.cursor - maxItems + 1
		}
		endIdx := min(scrollOffset+maxItems, len(s.filtered))

		for i := scrollOffset; i < endIdx; i++ {
			lines = append(lines, s.renderItem(i, inner, focused))
		}
		if endIdx < len(s.filtered) {
			lines = append(lines, hintStyle.Render("↓ more..."))
		}
	}

	style := sidebarStyle
	if focused {
		style = sidebarFocusedStyle
	}
	return style.Width(width - 2).Height(height - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderItem renders a single conversation entry
func (s sidebar) renderItem(index, width int, focused bool) string {
	conv := s.filtered[index]

	cursor := "  "
	style := sidebarItemStyle
	if conv.ID == s.activeID {
		style = sidebarActiveStyle
	}
	if focused && index == s.cursor {
		cursor = sidebarCursorStyle.Render("▸ ")
		style = sidebarSelectedStyle
	}

	marker := " "
	if conv.ID == s.activeID {
		marker = sidebarActiveStyle.Render("●")
	}

	title := style.Render(truncateTitle(conv.Title, width-5))
	meta := sidebarMetaStyle.Render(fmt.Sprintf("    %s · %d msgs",
		history.FormatRelativeTime(conv.Created), len(conv.Messages)))

	return cursor + marker + " " + title + "\n" + meta
}

// truncateTitle truncates a title to maxLen runes
func truncateTitle(title string, maxLen int) string {
	runes := []rune(title)
	if maxLen < 4 || len(runes) <= maxLen {
		return title
	}
	return string(runes[:maxLen-3]) + "..."
}
