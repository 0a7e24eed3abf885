package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	apierrors "github.com/diogo/mira/internal/errors"
	"github.com/diogo/mira/internal/render"
)

func TestFormatError(t *testing.T) {
	if FormatError(nil) != "" {
		t.Error("nil error should format as empty")
	}

	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "connection",
			err:  apierrors.NewConnectionError("ws://localhost:8080/chat", errors.New("refused")),
			want: []string{"refused", "Endpoint: ws://localhost:8080/chat", "Hint:"},
		},
		{
			name: "upload",
			err:  fmt.Errorf("analyze: %w", apierrors.NewUploadError(502, "cat.png", "bad gateway")),
			want: []string{"cat.png", "HTTP Status: 502", "Image upload failed"},
		},
		{
			name: "unsupported image",
			err:  fmt.Errorf("%w: notes.txt", apierrors.ErrUnsupportedImage),
			want: []string{"notes.txt", "PNG"},
		},
		{
			name: "unreadable reply",
			err:  fmt.Errorf("image analysis failed: %w", apierrors.NewParseError("missing aiResponse", "aiResponse")),
			want: []string{"Field: aiResponse", "unexpected shape"},
		},
		{
			name: "not found",
			err:  fmt.Errorf("%w: 42", apierrors.ErrConversationNotFound),
			want: []string{"mira history list"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatError(tt.err)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("FormatError() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestUpdateTheme(t *testing.T) {
	orig := render.GetTUITheme().Name
	t.Cleanup(func() {
		render.SetTUITheme(orig)
		UpdateTheme()
	})

	if !render.SetTUITheme("nord") {
		t.Fatal("nord theme should exist")
	}
	UpdateTheme()

	if colorPrimary != render.NordTheme.Primary {
		t.Errorf("colorPrimary = %v, want %v", colorPrimary, render.NordTheme.Primary)
	}
	if colorUserBubble != render.NordTheme.UserBubble {
		t.Errorf("colorUserBubble = %v", colorUserBubble)
	}
}
