// Package render turns assistant replies into styled terminal output.
package render

// Bubble geometry shared by the chat view and the one-shot printer: a
// rounded border plus one column of padding on each side.
const (
	bubbleChrome   = 4
	minReplyWidth  = 20
	defaultWidth   = 76
	maxBubbleWidth = 120
)

// Options configures how a reply is rendered.
type Options struct {
	// Width wraps text; it is the inside of the reply bubble
	Width int

	// Style is a palette theme, a glamour style, or a JSON style file
	Style string

	// EnableEmoji converts :emoji: shortcodes
	EnableEmoji bool

	// PreserveNewLines keeps the single line breaks the service sends
	PreserveNewLines bool

	TableWrap        bool
	InlineTableLinks bool
}

// DefaultOptions matches the defaults of the markdown config section.
func DefaultOptions() Options {
	return Options{
		Width:            defaultWidth,
		Style:            ThemeDark,
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
	}
}

// WithWidth returns Options wrapping at width, never below a readable minimum.
func (o Options) WithWidth(width int) Options {
	o.Width = max(width, minReplyWidth)
	return o
}

// ForBubble returns Options sized for the inside of a reply bubble that is
// bubbleWidth columns wide.
func (o Options) ForBubble(bubbleWidth int) Options {
	return o.WithWidth(bubbleWidth - bubbleChrome)
}

// BubbleWidth picks the width of a reply bubble for a terminal that is
// termWidth columns wide.
func BubbleWidth(termWidth int) int {
	return max(40, min(termWidth-bubbleChrome, maxBubbleWidth))
}
