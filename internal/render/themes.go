package render

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

// Markdown style names
const (
	ThemeDark       = "dark"
	ThemeLight      = "light"
	ThemeTokyoNight = "tokyonight"
	ThemeCatppuccin = "catppuccin"
	ThemeNord       = "nord"
)

// styleOption picks how glamour gets its style: a palette-tinted built-in,
// one of glamour's standard styles, or a JSON style file path.
func styleOption(style string) glamour.TermRendererOption {
	if style == "" {
		style = ThemeDark
	}
	if palette, ok := GetTUIThemeByName(style); ok {
		return glamour.WithStyles(PaletteStyle(palette))
	}
	if _, ok := styles.DefaultStyles[style]; ok {
		return glamour.WithStandardStyle(style)
	}
	return glamour.WithStylePath(style)
}

// PaletteStyle tints glamour's dark style with a TUI palette so assistant
// replies match the rest of the interface.
func PaletteStyle(t TUITheme) ansi.StyleConfig {
	cfg := styles.DarkStyleConfig

	text := string(t.Text)
	primary := string(t.Primary)
	secondary := string(t.Secondary)
	accent := string(t.Accent)
	dim := string(t.TextDim)
	bold := true

	cfg.Document.Color = &text
	cfg.Heading.Color = &primary
	cfg.Heading.Bold = &bold
	cfg.H1.Color = &primary
	cfg.H1.BackgroundColor = nil
	cfg.Link.Color = &accent
	cfg.LinkText.Color = &accent
	cfg.Code.Color = &secondary
	cfg.BlockQuote.Color = &dim
	cfg.HorizontalRule.Color = &dim
	cfg.Strong.Color = &primary
	return cfg
}

// ThemeInfo describes a markdown style for display
type ThemeInfo struct {
	Name        string
	Description string
}

// AvailableThemes lists palette styles followed by glamour's own
func AvailableThemes() []ThemeInfo {
	return []ThemeInfo{
		{Name: ThemeTokyoNight, Description: "Tokyo Night palette"},
		{Name: ThemeCatppuccin, Description: "Catppuccin Mocha palette"},
		{Name: ThemeNord, Description: "Nord palette"},
		{Name: "dracula", Description: "Dracula palette"},
		{Name: ThemeDark, Description: "glamour dark (default)"},
		{Name: ThemeLight, Description: "glamour light, for bright terminals"},
		{Name: "notty", Description: "Plain text (no styling)"},
		{Name: "ascii", Description: "ASCII-only output"},
	}
}

// IsBuiltinStyle reports whether style names a known style rather than a file
func IsBuiltinStyle(style string) bool {
	if _, ok := GetTUIThemeByName(style); ok {
		return true
	}
	_, ok := styles.DefaultStyles[style]
	return ok
}

// ThemeNames returns just the style names
func ThemeNames() []string {
	themes := AvailableThemes()
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}
