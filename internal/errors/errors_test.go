package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestConnectionError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewConnectionError("ws://localhost:8080/chat", cause)

	expected := "connection to ws://localhost:8080/chat failed: dial tcp: refused"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}

	if !errors.Is(err, cause) {
		t.Error("Expected ConnectionError to unwrap to its cause")
	}

	if !IsConnectionError(fmt.Errorf("wrapped: %w", err)) {
		t.Error("Expected wrapped ConnectionError to be detected")
	}
}

func TestConnectionError_NoCause(t *testing.T) {
	err := NewConnectionError("ws://x", nil)
	if err.Error() != "connection to ws://x failed" {
		t.Errorf("Error() = %s", err.Error())
	}
}

func TestIsConnectionError_NotConnected(t *testing.T) {
	if !IsConnectionError(ErrNotConnected) {
		t.Error("ErrNotConnected should count as a connection error")
	}
	if IsConnectionError(nil) {
		t.Error("nil should not be a connection error")
	}
	if IsConnectionError(errors.New("other")) {
		t.Error("plain error should not be a connection error")
	}
}

func TestParseError(t *testing.T) {
	err := NewParseError("invalid JSON", "candidates.0.content.parts.0.text")

	expected := "parse error at candidates.0.content.parts.0.text: invalid JSON"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}

	if !errors.Is(err, ErrMalformedResponse) {
		t.Error("Expected ParseError to match ErrMalformedResponse")
	}

	if !err.Is(NewParseError("other", "")) {
		t.Error("Expected ParseError to match another ParseError")
	}

	if err.Is(errors.New("standard error")) {
		t.Error("Expected ParseError not to match standard error")
	}

	if !IsParseError(fmt.Errorf("read: %w", err)) {
		t.Error("Expected IsParseError to see through wrapping")
	}
}

func TestParseError_NoPath(t *testing.T) {
	err := NewParseError("empty body", "")
	if err.Error() != "parse error: empty body" {
		t.Errorf("Error() = %s", err.Error())
	}
}

func TestUploadError(t *testing.T) {
	tests := []struct {
		name string
		err  *UploadError
		want string
	}{
		{"with status", NewUploadError(500, "cat.png", "server error"), "upload of cat.png failed [500]: server error"},
		{"without status", NewUploadError(0, "cat.png", "too large"), "upload of cat.png failed: too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %s, want %s", tt.err.Error(), tt.want)
			}
			if !IsUploadError(tt.err) {
				t.Error("IsUploadError returned false")
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	err := fmt.Errorf("%w: 123", ErrConversationNotFound)
	if !IsNotFound(err) {
		t.Error("expected wrapped ErrConversationNotFound to be detected")
	}
	if IsNotFound(ErrNotConnected) {
		t.Error("ErrNotConnected is not a not-found error")
	}
}

func TestUploadPlaceholder(t *testing.T) {
	got := UploadPlaceholder(errors.New("connection refused"))
	if got != "Error uploading image: connection refused" {
		t.Errorf("UploadPlaceholder() = %q", got)
	}

	if UploadPlaceholder(nil) != "Error uploading image: unknown error" {
		t.Errorf("UploadPlaceholder(nil) = %q", UploadPlaceholder(nil))
	}
}
