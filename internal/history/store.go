// Package history provides local conversation history storage.
package history

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apierrors "github.com/diogo/mira/internal/errors"
	"github.com/diogo/mira/internal/models"
)

// Conversation represents a complete chat conversation.
// The JSON shape matches the browser client's localStorage records.
type Conversation struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Messages []models.Message `json:"messages"`
	Created  time.Time        `json:"created"`
}

func (c *Conversation) clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Messages = make([]models.Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}

// IsEmpty reports whether the conversation has no messages yet
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Store keeps every conversation in memory and mirrors the whole set to its
// Persister after each mutation. One conversation may be active.
type Store struct {
	mu        sync.RWMutex
	persister Persister
	chats     map[string]*Conversation
	activeID  string
	now       func() time.Time
	log       zerolog.Logger
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithClock overrides the time source used for ids and creation stamps
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger used for persistence diagnostics
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = logger
	}
}

// Open loads all conversations from p and activates the newest one
func Open(p Persister, opts ...StoreOption) (*Store, error) {
	s := &Store{
		persister: p,
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	chats, err := p.Load()
	var skipped *SkippedRecordsError
	if errors.As(err, &skipped) {
		for id, rerr := range skipped.Records {
			s.log.Warn().Err(rerr).Str("id", id).Msg("skipping unreadable conversation")
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	s.chats = chats

	if newest := s.newestLocked(); newest != nil {
		s.activeID = newest.ID
	}

	s.log.Debug().Int("conversations", len(chats)).Str("active", s.activeID).Msg("history loaded")
	return s, nil
}

// Close releases the underlying persister
func (s *Store) Close() error {
	return s.persister.Close()
}

// Create starts a new empty conversation and makes it active
func (s *Store) Create() (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.createLocked()
	return conv.clone(), s.saveLocked()
}

// Append adds a message to the active conversation, creating one if none is active.
// The first message, when sent by the user, fixes the title.
func (s *Store) Append(role models.Role, text string) (*Conversation, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role: %q", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.chats[s.activeID]
	if !ok {
		conv = s.createLocked()
	}

	conv.Messages = append(conv.Messages, models.Message{Role: role, Text: text})
	if len(conv.Messages) == 1 && role == models.RoleUser {
		conv.Title = DeriveTitle(text)
	}

	return conv.clone(), s.saveLocked()
}

// Select switches the active conversation and returns it for display
func (s *Store) Select(id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.chats[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apierrors.ErrConversationNotFound, id)
	}
	s.activeID = id
	return conv.clone(), nil
}

// Delete removes a conversation. When it was active, the newest remaining
// conversation becomes active, or none when the store is empty.
// It returns the active conversation after deletion (nil for the empty state).
func (s *Store) Delete(id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[id]; !ok {
		return s.activeLocked(), fmt.Errorf("%w: %s", apierrors.ErrConversationNotFound, id)
	}

	delete(s.chats, id)
	if s.activeID == id {
		s.activeID = ""
		if newest := s.newestLocked(); newest != nil {
			s.activeID = newest.ID
		}
	}

	return s.activeLocked(), s.saveLocked()
}

// List returns all conversations, newest first
func (s *Store) List() []*Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Conversation, 0, len(s.chats))
	for _, c := range s.chats {
		list = append(list, c.clone())
	}
	sortNewestFirst(list)
	return list
}

// Get returns a conversation by id
func (s *Store) Get(id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.chats[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apierrors.ErrConversationNotFound, id)
	}
	return conv.clone(), nil
}

// Active returns the active conversation or nil
func (s *Store) Active() *Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked()
}

// ActiveID returns the id of the active conversation ("" when none)
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Len returns the number of stored conversations
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats)
}

// ClearAll deletes all conversations
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats = make(map[string]*Conversation)
	s.activeID = ""
	return s.saveLocked()
}

// Import merges conversations into the store. Existing ids are kept unless
// overwrite is set. It returns how many records were written.
func (s *Store) Import(convs []*Conversation, overwrite bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range convs {
		if err := validate(c); err != nil {
			return n, err
		}
		if _, exists := s.chats[c.ID]; exists && !overwrite {
			continue
		}
		s.chats[c.ID] = c.clone()
		n++
	}
	if n == 0 {
		return 0, nil
	}

	if _, ok := s.chats[s.activeID]; !ok {
		if newest := s.newestLocked(); newest != nil {
			s.activeID = newest.ID
		}
	}
	return n, s.saveLocked()
}

// Internal methods

func (s *Store) createLocked() *Conversation {
	now := s.now().UTC().Truncate(time.Millisecond)
	ms := now.UnixMilli()
	id := strconv.FormatInt(ms, 10)
	for {
		if _, taken := s.chats[id]; !taken {
			break
		}
		ms++
		id = strconv.FormatInt(ms, 10)
	}

	conv := &Conversation{
		ID:       id,
		Title:    models.DefaultTitle,
		Messages: []models.Message{},
		Created:  now,
	}
	s.chats[id] = conv
	s.activeID = id
	return conv
}

func (s *Store) activeLocked() *Conversation {
	conv, ok := s.chats[s.activeID]
	if !ok {
		return nil
	}
	return conv.clone()
}

func (s *Store) newestLocked() *Conversation {
	var newest *Conversation
	for _, c := range s.chats {
		if newest == nil || newer(c, newest) {
			newest = c
		}
	}
	return newest
}

func (s *Store) saveLocked() error {
	if err := s.persister.Save(s.chats); err != nil {
		s.log.Error().Err(err).Msg("persist conversations")
		return fmt.Errorf("failed to save conversations: %w", err)
	}
	return nil
}

// newer orders by creation time, then by id (ids are millisecond stamps)
func newer(a, b *Conversation) bool {
	if !a.Created.Equal(b.Created) {
		return a.Created.After(b.Created)
	}
	if len(a.ID) != len(b.ID) {
		return len(a.ID) > len(b.ID)
	}
	return a.ID > b.ID
}

func sortNewestFirst(list []*Conversation) {
	sort.SliceStable(list, func(i, j int) bool {
		return newer(list[i], list[j])
	})
}

func validate(c *Conversation) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("conversation without id")
	}
	for i, m := range c.Messages {
		if _, err := models.ParseRole(string(m.Role)); err != nil {
			return fmt.Errorf("conversation %s: message %d: %w", c.ID, i, err)
		}
	}
	return nil
}
