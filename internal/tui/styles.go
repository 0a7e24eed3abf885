// Package tui provides the terminal user interface for mira.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	apierrors "github.com/diogo/mira/internal/errors"
	"github.com/diogo/mira/internal/render"
)

// Color variables (updated from theme)
var (
	// Base colors
	colorSurface lipgloss.Color
	colorBorder  lipgloss.Color

	// Accent colors
	colorPrimary   lipgloss.Color
	colorSecondary lipgloss.Color
	colorAccent    lipgloss.Color
	colorWarning   lipgloss.Color
	colorError     lipgloss.Color

	// Text colors
	colorText     lipgloss.Color
	colorTextDim  lipgloss.Color
	colorTextMute lipgloss.Color

	// Bubble backgrounds
	colorUserBubble      lipgloss.Color
	colorAssistantBubble lipgloss.Color
)

// Style variables (rebuilt when theme changes)
var (
	// Header panel style
	headerStyle lipgloss.Style

	// Title style for header
	titleStyle lipgloss.Style

	// Subtitle style
	subtitleStyle lipgloss.Style

	// Hint text style
	hintStyle lipgloss.Style

	// Connection indicator
	onlineStyle  lipgloss.Style
	offlineStyle lipgloss.Style

	// Messages area panel
	messagesAreaStyle lipgloss.Style

	// User message bubble
	userBubbleStyle lipgloss.Style
	userLabelStyle  lipgloss.Style

	// Assistant message bubble
	assistantBubbleStyle lipgloss.Style
	assistantLabelStyle  lipgloss.Style

	// Input area panel
	inputPanelStyle         lipgloss.Style
	inputPanelDisabledStyle lipgloss.Style
	inputLabelStyle         lipgloss.Style

	// Loading/spinner style
	loadingStyle lipgloss.Style

	// Status bar styles
	statusBarStyle  lipgloss.Style
	statusKeyStyle  lipgloss.Style
	statusDescStyle lipgloss.Style

	// Feedback line
	noticeStyle lipgloss.Style
	errorStyle  lipgloss.Style

	// Welcome styles
	welcomeStyle      lipgloss.Style
	welcomeTitleStyle lipgloss.Style
	welcomeIconStyle  lipgloss.Style

	// Sidebar styles
	sidebarStyle         lipgloss.Style
	sidebarFocusedStyle  lipgloss.Style
	sidebarHeaderStyle   lipgloss.Style
	sidebarItemStyle     lipgloss.Style
	sidebarSelectedStyle lipgloss.Style
	sidebarActiveStyle   lipgloss.Style
	sidebarCursorStyle   lipgloss.Style
	sidebarMetaStyle     lipgloss.Style
	sidebarConfirmStyle  lipgloss.Style
)

// Gradient colors for animated spinner (fixed colors)
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"), // Red
	lipgloss.Color("#feca57"), // Yellow
	lipgloss.Color("#48dbfb"), // Cyan
	lipgloss.Color("#ff9ff3"), // Pink
	lipgloss.Color("#54a0ff"), // Blue
	lipgloss.Color("#5f27cd"), // Purple
	lipgloss.Color("#00d2d3"), // Teal
	lipgloss.Color("#1dd1a1"), // Green
}

func init() {
	UpdateTheme()
}

// UpdateTheme refreshes all styles based on the current TUI theme
func UpdateTheme() {
	theme := render.GetTUITheme()

	colorSurface = theme.Surface
	colorBorder = theme.Border
	colorPrimary = theme.Primary
	colorSecondary = theme.Secondary
	colorAccent = theme.Accent
	colorWarning = theme.Warning
	colorError = theme.Error
	colorText = theme.Text
	colorTextDim = theme.TextDim
	colorTextMute = theme.TextMute
	colorUserBubble = theme.UserBubble
	colorAssistantBubble = theme.AssistantBubble

	rebuildStyles()
}

// rebuildStyles creates all lipgloss styles with current color values
func rebuildStyles() {
	headerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true)

	subtitleStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	hintStyle = lipgloss.NewStyle().
		Foreground(colorTextMute).
		Italic(true)

	onlineStyle = lipgloss.NewStyle().
		Foreground(colorSecondary).
		Bold(true)

	offlineStyle = lipgloss.NewStyle().
		Foreground(colorWarning).
		Bold(true)

	messagesAreaStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	// User bubbles sit on the right, assistant bubbles on the left
	userBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorSecondary).
		Background(colorUserBubble).
		Foreground(colorText).
		Padding(0, 1).
		MarginLeft(4)

	userLabelStyle = lipgloss.NewStyle().
		Foreground(colorSecondary).
		Bold(true).
		MarginLeft(4)

	assistantBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Foreground(colorText).
		Padding(0, 1).
		MarginRight(4)

	assistantLabelStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true)

	inputPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	inputPanelDisabledStyle = inputPanelStyle.
		BorderForeground(colorTextMute)

	inputLabelStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true).
		MarginRight(1)

	loadingStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	statusBarStyle = lipgloss.NewStyle().
		Foreground(colorTextMute)

	statusKeyStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Bold(true)

	statusDescStyle = lipgloss.NewStyle().
		Foreground(colorTextMute)

	noticeStyle = lipgloss.NewStyle().
		Foreground(colorSecondary).
		Italic(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true)

	welcomeStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Align(lipgloss.Center)

	welcomeTitleStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true).
		Align(lipgloss.Center)

	welcomeIconStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Align(lipgloss.Center)

	sidebarStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Background(colorSurface).
		Padding(0, 1)

	sidebarFocusedStyle = sidebarStyle.
		BorderForeground(colorAccent)

	sidebarHeaderStyle = lipgloss.NewStyle().
		Foreground(colorSecondary).
		Bold(true).
		MarginBottom(1)

	sidebarItemStyle = lipgloss.NewStyle().
		Foreground(colorText)

	sidebarSelectedStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	sidebarActiveStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true)

	sidebarCursorStyle = lipgloss.NewStyle().
		Foreground(colorAccent)

	sidebarMetaStyle = lipgloss.NewStyle().
		Foreground(colorTextMute)

	sidebarConfirmStyle = lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true)
}

// FormatError returns a styled error message with additional context
// pulled from the typed errors.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	errStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errStyle.Render(fmt.Sprintf("✗ %v", err)))

	var ce *apierrors.ConnectionError
	if errors.As(err, &ce) && ce.URL != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", ce.URL)))
	}

	var ue *apierrors.UploadError
	if errors.As(err, &ue) && ue.StatusCode > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", ue.StatusCode)))
	}

	var pe *apierrors.ParseError
	if errors.As(err, &pe) && pe.Path != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Field: %s", pe.Path)))
	}

	switch {
	case apierrors.IsConnectionError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Waiting for the assistant service. Check the endpoint with 'mira config show'"))
	case apierrors.IsUploadError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Image upload failed. Check the file and the upload URL"))
	case apierrors.IsParseError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: The service reply had an unexpected shape. Run with --log-level debug to see it"))
	case errors.Is(err, apierrors.ErrUnsupportedImage):
		sb.WriteString(dimStyle.Render("\n  Hint: Use a PNG, JPEG, GIF or WebP image"))
	case apierrors.IsNotFound(err):
		sb.WriteString(dimStyle.Render("\n  Hint: List conversations with 'mira history list'"))
	}

	return sb.String()
}
