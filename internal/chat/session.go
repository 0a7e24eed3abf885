// Package chat holds the application state shared by the terminal UI and
// the one-shot commands: the conversation store, the connection, and whether
// a reply is outstanding.
package chat

import (
	"context"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/diogo/mira/internal/api"
	apierrors "github.com/diogo/mira/internal/errors"
	"github.com/diogo/mira/internal/history"
	"github.com/diogo/mira/internal/models"
)

// Sender is the part of the connection a session writes to
type Sender interface {
	Sendable() bool
	Send(text string) error
}

// Analyzer describes uploaded images
type Analyzer interface {
	AnalyzeFile(ctx context.Context, path string) (models.Reply, error)
}

// Session routes user actions and connection events into the store
type Session struct {
	store    *history.Store
	sender   Sender
	analyzer Analyzer
	log      zerolog.Logger

	connected bool
	pending   bool
	uploading bool
}

// Option configures a Session
type Option func(*Session)

// WithAnalyzer enables image uploads
func WithAnalyzer(a Analyzer) Option {
	return func(s *Session) {
		s.analyzer = a
	}
}

// WithLogger sets the session logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.log = logger
	}
}

// NewSession creates a session over store and sender
func NewSession(store *history.Store, sender Sender, opts ...Option) *Session {
	s := &Session{
		store:  store,
		sender: sender,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connected reports whether the last connection event was an open
func (s *Session) Connected() bool {
	return s.connected
}

// Pending reports whether a reply or analysis is outstanding
func (s *Session) Pending() bool {
	return s.pending
}

// Uploading reports whether the outstanding work is an image analysis
func (s *Session) Uploading() bool {
	return s.pending && s.uploading
}

// CanSend reports whether Send would do anything right now
func (s *Session) CanSend() bool {
	return s.connected && s.sender.Sendable()
}

// Send appends the user's message and writes it to the socket.
// It does nothing and returns false for blank text or while disconnected.
func (s *Session) Send(text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" || !s.CanSend() {
		return false, nil
	}

	if _, err := s.store.Append(models.RoleUser, userMarkup(text)); err != nil {
		s.log.Error().Err(err).Msg("store user message")
	}

	if err := s.sender.Send(text); err != nil {
		s.log.Warn().Err(err).Msg("send failed")
		return true, err
	}

	s.pending = true
	s.uploading = false
	return true, nil
}

// HandleEvent applies a connection event. It returns the conversation
// message it appended, if any.
func (s *Session) HandleEvent(ev api.Event) (*models.Message, error) {
	switch ev.Kind {
	case api.EventOpen:
		s.connected = true
		return nil, nil

	case api.EventMessage:
		if s.uploading {
			// analysis replies arrive through FinishUpload
			s.log.Debug().Msg("socket reply during upload")
		} else {
			s.pending = false
		}
		return s.appendAssistant(ev.Reply.Display())

	case api.EventError:
		s.connected = false
		if !s.uploading {
			s.pending = false
		}
		s.log.Debug().Err(ev.Err).Msg("connection error")
		return s.appendAssistant(apierrors.PlaceholderConnection)

	case api.EventClose:
		// a clean close sends no error, and no reply will follow it
		s.connected = false
		if !s.uploading {
			s.pending = false
		}
		return nil, nil
	}
	return nil, nil
}

// BeginUpload records the attachment and marks an analysis as pending
func (s *Session) BeginUpload(path string) error {
	if s.analyzer == nil {
		return fmt.Errorf("image analysis is not configured")
	}
	if s.pending {
		return fmt.Errorf("a reply is already pending")
	}
	if _, err := api.DetectImageType(path); err != nil {
		return err
	}

	if _, err := s.store.Append(models.RoleUser, AttachmentMarkup(filepath.Base(path))); err != nil {
		s.log.Error().Err(err).Msg("store attachment")
	}
	s.pending = true
	s.uploading = true
	return nil
}

// Analyze runs the upload; it is safe to call off the UI goroutine
func (s *Session) Analyze(ctx context.Context, path string) (models.Reply, error) {
	return s.analyzer.AnalyzeFile(ctx, path)
}

// FinishUpload appends the analysis result or the failure placeholder
func (s *Session) FinishUpload(reply models.Reply, err error) (*models.Message, error) {
	s.pending = false
	s.uploading = false

	text := reply.Display()
	if text == "" {
		text = apierrors.UploadPlaceholder(err)
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("image analysis failed")
	}
	return s.appendAssistant(text)
}

// NewConversation starts an empty conversation
func (s *Session) NewConversation() (*history.Conversation, error) {
	s.pending = false
	return s.store.Create()
}

// SelectConversation switches to id
func (s *Session) SelectConversation(id string) (*history.Conversation, error) {
	return s.store.Select(id)
}

// DeleteConversation removes id and returns what is active afterwards
func (s *Session) DeleteConversation(id string) (*history.Conversation, error) {
	return s.store.Delete(id)
}

// Conversations lists conversations newest first
func (s *Session) Conversations() []*history.Conversation {
	return s.store.List()
}

// Active returns the active conversation, nil for the welcome screen
func (s *Session) Active() *history.Conversation {
	return s.store.Active()
}

// Store exposes the underlying store
func (s *Session) Store() *history.Store {
	return s.store
}

// LastReply returns the newest assistant message of the active conversation
func (s *Session) LastReply() (string, bool) {
	conv := s.store.Active()
	if conv == nil {
		return "", false
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Role == models.RoleAssistant {
			return conv.Messages[i].Text, true
		}
	}
	return "", false
}

func (s *Session) appendAssistant(text string) (*models.Message, error) {
	msg := models.Message{Role: models.RoleAssistant, Text: text}
	if _, err := s.store.Append(msg.Role, msg.Text); err != nil {
		s.log.Error().Err(err).Msg("store assistant message")
		return &msg, err
	}
	return &msg, nil
}

// userMarkup stores user text the way the browser client does: escaped,
// with line breaks as <br>.
func userMarkup(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}

// AttachmentMarkup is the user message recorded for an uploaded image
func AttachmentMarkup(fileName string) string {
	return "<strong>📎 Attached:</strong> " + html.EscapeString(fileName)
}
