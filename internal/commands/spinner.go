package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/mira/internal/render"
)

// spinner draws an animated progress line on stderr while a one-shot
// command waits on the network
type spinner struct {
	out     io.Writer
	message string
	palette []lipgloss.Color
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool
}

// newSpinner creates a spinner colored after the active theme
func newSpinner(message string) *spinner {
	theme := render.GetTUITheme()
	return &spinner{
		out:     os.Stderr,
		message: message,
		palette: []lipgloss.Color{
			theme.Primary, theme.Secondary, theme.Accent,
			theme.UserBubble, theme.AssistantBubble, theme.Warning,
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// start begins the animation
func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// Hide cursor
		fmt.Fprint(s.out, "\033[?25l")

		for {
			select {
			case <-s.stop:
				fmt.Fprint(s.out, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

// setMessage swaps the text shown next to the animation
func (s *spinner) setMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

	color := s.palette[s.frame%len(s.palette)]
	spinnerChar := lipgloss.NewStyle().Foreground(color).Bold(true).Render(chars[s.frame%len(chars)])

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dots.WriteString(lipgloss.NewStyle().Foreground(s.palette[(s.frame+i)%len(s.palette)]).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(render.GetTUITheme().TextMute).Render("○"))
		}
	}

	msg := lipgloss.NewStyle().Foreground(render.GetTUITheme().Text).Render(s.message)
	fmt.Fprintf(s.out, "\r\033[K%s %s %s", spinnerChar, msg, dots.String())
}

// stopOnce closes the stop channel only once
func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

// stopWithSuccess stops the spinner and prints a green check line
func (s *spinner) stopWithSuccess(message string) {
	s.stopOnce()
	<-s.done

	success := render.GetTUITheme().Secondary
	checkmark := lipgloss.NewStyle().Foreground(success).Bold(true).Render("✓")
	fmt.Fprintf(s.out, "%s %s\n", checkmark, lipgloss.NewStyle().Foreground(success).Render(message))
}

// stopWithError stops the spinner and leaves the line clear for the error
func (s *spinner) stopWithError() {
	s.stopOnce()
	<-s.done
}
