// Package errors provides custom error types for the mira chat client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotConnected         = errors.New("not connected")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMalformedResponse    = errors.New("malformed response")
	ErrEmptyResponse        = errors.New("no text in response")
	ErrUnsupportedImage     = errors.New("unsupported image type")
)

// Placeholder texts shown in the chat instead of a reply when something fails.
const (
	PlaceholderMalformed    = "Error: Malformed response from server."
	PlaceholderUnparsable   = "Could not parse response."
	PlaceholderConnection   = "Error: Connection failed."
	PlaceholderNoDesc       = "No description found."
	PlaceholderUploadPrefix = "Error uploading image: "
)

// ConnectionError represents a failure on the assistant socket
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection to %s failed", e.URL)
	}
	return fmt.Sprintf("connection to %s failed: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError creates a new ConnectionError
func NewConnectionError(url string, err error) *ConnectionError {
	return &ConnectionError{URL: url, Err: err}
}

// ParseError represents a response parsing error
type ParseError struct {
	Message string
	Path    string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *ParseError) Is(target error) bool {
	if target == ErrMalformedResponse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// NewParseError creates a new ParseError
func NewParseError(message, path string) *ParseError {
	return &ParseError{Message: message, Path: path}
}

// UploadError represents an image upload failure
type UploadError struct {
	StatusCode int
	FileName   string
	Message    string
}

func (e *UploadError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upload of %s failed [%d]: %s", e.FileName, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upload of %s failed: %s", e.FileName, e.Message)
}

// NewUploadError creates a new UploadError
func NewUploadError(statusCode int, fileName, message string) *UploadError {
	return &UploadError{
		StatusCode: statusCode,
		FileName:   fileName,
		Message:    message,
	}
}

// IsConnectionError reports whether err is (or wraps) a ConnectionError or ErrNotConnected
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConnected) {
		return true
	}
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsParseError reports whether err is (or wraps) a parse failure
func IsParseError(err error) bool {
	return err != nil && errors.Is(err, ErrMalformedResponse)
}

// IsUploadError reports whether err is (or wraps) an UploadError
func IsUploadError(err error) bool {
	if err == nil {
		return false
	}
	var ue *UploadError
	return errors.As(err, &ue)
}

// IsNotFound reports whether err means a conversation lookup failed
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrConversationNotFound)
}

// UploadPlaceholder returns the chat text shown when an image upload fails
func UploadPlaceholder(err error) string {
	if err == nil {
		return PlaceholderUploadPrefix + "unknown error"
	}
	return PlaceholderUploadPrefix + err.Error()
}
