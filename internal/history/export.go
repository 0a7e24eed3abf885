package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diogo/mira/internal/models"
)

// ExportFormat represents the format for exporting conversations
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// ParseExportFormat validates a user supplied format name
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(s) {
	case "", "md", "markdown":
		return ExportFormatMarkdown, nil
	case "json":
		return ExportFormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s (use markdown or json)", s)
	}
}

// Export renders a conversation in the requested format
func (s *Store) Export(id string, format ExportFormat) ([]byte, error) {
	switch format {
	case ExportFormatJSON:
		return s.ExportToJSON(id)
	default:
		md, err := s.ExportToMarkdown(id)
		return []byte(md), err
	}
}

// ExportToMarkdown exports a conversation to Markdown format
func (s *Store) ExportToMarkdown(id string) (string, error) {
	conv, err := s.Get(id)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(conv.Title)
	sb.WriteString("\n\n")

	sb.WriteString("**Created:** ")
	sb.WriteString(conv.Created.Local().Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	sb.WriteString("**Messages:** ")
	sb.WriteString(fmt.Sprintf("%d", len(conv.Messages)))
	sb.WriteString("\n\n---\n\n")

	for i, msg := range conv.Messages {
		role := "User"
		if msg.Role == models.RoleAssistant {
			role = "Assistant"
		}

		sb.WriteString("## ")
		sb.WriteString(role)
		sb.WriteString("\n\n")
		sb.WriteString(PlainText(msg.Text))
		sb.WriteString("\n")

		if i < len(conv.Messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String(), nil
}

// ExportToJSON exports a conversation in the persisted record shape
func (s *Store) ExportToJSON(id string) ([]byte, error) {
	conv, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(conv, "", "  ")
}

// SearchResult represents a search match in conversations
type SearchResult struct {
	Conversation *Conversation
	MatchSnippet string // Snippet where the term was found
	MatchField   string // "title" or "content"
	MatchIndex   int    // Message index if MatchField is "content", -1 for title
}

// Search looks for query in titles and, optionally, message text
func (s *Store) Search(query string, searchContent bool) []*SearchResult {
	queryLower := strings.ToLower(query)
	var results []*SearchResult

	for _, conv := range s.List() {
		if strings.Contains(strings.ToLower(conv.Title), queryLower) {
			results = append(results, &SearchResult{
				Conversation: conv,
				MatchSnippet: conv.Title,
				MatchField:   "title",
				MatchIndex:   -1,
			})
			continue
		}

		if !searchContent {
			continue
		}
		for i, msg := range conv.Messages {
			text := PlainText(msg.Text)
			if strings.Contains(strings.ToLower(text), queryLower) {
				results = append(results, &SearchResult{
					Conversation: conv,
					MatchSnippet: extractSnippet(text, query, 80),
					MatchField:   "content",
					MatchIndex:   i,
				})
				break
			}
		}
	}

	return results
}

// extractSnippet extracts a snippet around the first occurrence of query
func extractSnippet(content, query string, maxLen int) string {
	runes := []rune(content)
	lower := []rune(strings.ToLower(content))
	q := []rune(strings.ToLower(query))

	idx := indexRunes(lower, q)
	if idx == -1 {
		if len(runes) > maxLen {
			return string(runes[:maxLen]) + "..."
		}
		return content
	}

	half := maxLen / 2
	start := idx - half
	end := idx + len(q) + half

	if start < 0 {
		start = 0
		end = maxLen
	}
	if end > len(runes) {
		end = len(runes)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}

	snippet := string(runes[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet += "..."
	}
	return snippet
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// FormatRelativeTime formats a time as "5m ago", "yesterday", ...
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 48*time.Hour:
		return "yesterday"
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}
