package history

import (
	"fmt"
	"strconv"
	"strings"

	apierrors "github.com/diogo/mira/internal/errors"
)

// Resolver resolves user-friendly references to conversation IDs
type Resolver struct {
	store *Store
}

// NewResolver creates a new alias resolver
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve converts a user-friendly reference to a conversation ID
//
// Supported references:
//   - "@last" - newest conversation
//   - "@first" - oldest conversation
//   - "@active" - the active conversation
//   - exact conversation id (millisecond timestamp)
//   - "1", "2", "3" - by index (1-based, newest first)
//   - "substring" - match on title (error if multiple matches)
func (r *Resolver) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)

	if ref == "" {
		return "", fmt.Errorf("empty reference")
	}

	conversations := r.store.List()
	if len(conversations) == 0 {
		return "", fmt.Errorf("no conversations found")
	}

	switch strings.ToLower(ref) {
	case "@last":
		return conversations[0].ID, nil
	case "@first":
		return conversations[len(conversations)-1].ID, nil
	case "@active":
		if id := r.store.ActiveID(); id != "" {
			return id, nil
		}
		return "", fmt.Errorf("no active conversation")
	}

	// Ids are numeric too, so an exact id wins over an index
	for _, conv := range conversations {
		if conv.ID == ref {
			return conv.ID, nil
		}
	}

	if index, err := strconv.Atoi(ref); err == nil {
		if index < 1 || index > len(conversations) {
			return "", fmt.Errorf("index %d out of range (1-%d)", index, len(conversations))
		}
		return conversations[index-1].ID, nil
	}

	refLower := strings.ToLower(ref)
	var matches []*Conversation
	for _, conv := range conversations {
		if strings.Contains(strings.ToLower(conv.Title), refLower) {
			matches = append(matches, conv)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no conversation matching '%s'", apierrors.ErrConversationNotFound, ref)
	case 1:
		return matches[0].ID, nil
	default:
		var titles []string
		for _, m := range matches {
			titles = append(titles, fmt.Sprintf("'%s'", m.Title))
		}
		return "", fmt.Errorf("multiple conversations match '%s': %s. Use ID or be more specific",
			ref, strings.Join(titles, ", "))
	}
}

// ResolveWithInfo resolves a reference and returns the conversation
func (r *Resolver) ResolveWithInfo(ref string) (*Conversation, error) {
	id, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return r.store.Get(id)
}

// ListAliases returns information about supported aliases
func ListAliases() string {
	return `Supported references:
  @last          Newest conversation
  @first         Oldest conversation
  @active        Currently active conversation
  1, 2, 3        By index (1-based, from most recent)
  1718000000000  Direct conversation ID
  "text"         Search by title substring`
}
