package commands

import (
	"context"

	"github.com/diogo/mira/internal/chat"
	"github.com/diogo/mira/internal/render"
	"github.com/diogo/mira/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(ctx context.Context, session *chat.Session, conn tui.Connection, mdOpts render.Options) error
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// TUI is the terminal user interface.
	TUI TUIInterface
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(ctx context.Context, session *chat.Session, conn tui.Connection, mdOpts render.Options) error {
	return tui.RunChat(ctx, session, conn, mdOpts)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		TUI: &DefaultTUI{},
	}
}

var defaultDependencies = NewDependencies()
