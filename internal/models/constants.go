// Package models contains data types and constants for the mira chat client.
package models

import "time"

// Default endpoints of the assistant service
const (
	DefaultSocketURL = "ws://localhost:8080/chat"
	DefaultUploadURL = "http://localhost:8080/image-analyze/image"
)

// Protocol details shared by the client and the development server
const (
	// ReplyTextPath is the gjson path of the reply text in a server envelope
	ReplyTextPath = "candidates.0.content.parts.0.text"

	// UploadFieldName is the multipart form field carrying the image
	UploadFieldName = "image"

	// DefaultReconnectDelay is the fixed wait between a close and the next dial
	DefaultReconnectDelay = 3000 * time.Millisecond
)

// Conversation defaults
const (
	DefaultTitle   = "New Chat"
	TitleMaxLength = 35
	TitleEllipsis  = "..."
)
