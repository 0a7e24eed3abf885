package history

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/diogo/mira/internal/models"
)

var (
	tagPolicy = bluemonday.StrictPolicy()
	lineBreak = regexp.MustCompile(`(?i)<br\s*/?>`)
)

// StripTags removes HTML markup and decodes entities
func StripTags(s string) string {
	return html.UnescapeString(tagPolicy.Sanitize(s))
}

// PlainText converts an HTML-bearing message (as stored by the browser
// client) to terminal text, keeping <br> as line breaks.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	return StripTags(lineBreak.ReplaceAllString(s, "\n"))
}

// DeriveTitle builds a conversation title from the first user message
func DeriveTitle(text string) string {
	plain := strings.TrimSpace(StripTags(text))
	runes := []rune(plain)
	if len(runes) > models.TitleMaxLength {
		return string(runes[:models.TitleMaxLength]) + models.TitleEllipsis
	}
	if plain == "" {
		return models.DefaultTitle
	}
	return plain
}
