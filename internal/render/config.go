package render

import (
	"os"

	"github.com/diogo/mira/internal/config"
)

// EnvStyle overrides the configured markdown style
const EnvStyle = "GLAMOUR_STYLE"

// OptionsFromConfig builds render options from the markdown section of the
// user configuration. GLAMOUR_STYLE takes precedence over the file.
func OptionsFromConfig(md config.MarkdownConfig) Options {
	opts := DefaultOptions()

	if md.Style != "" {
		opts.Style = md.Style
	}
	// Booleans always overwrite defaults since they have explicit defaults in config
	opts.EnableEmoji = md.EnableEmoji
	opts.PreserveNewLines = md.PreserveNewLines
	opts.TableWrap = md.TableWrap
	opts.InlineTableLinks = md.InlineTableLinks

	if style := os.Getenv(EnvStyle); style != "" {
		opts.Style = style
	}

	return opts
}
