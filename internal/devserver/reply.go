package devserver

import (
	"encoding/json"
	"fmt"
	"strings"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type envelope struct {
	Candidates []candidate `json:"candidates"`
}

// Envelope wraps text in the response shape the assistant service uses
func Envelope(text string) []byte {
	data, _ := json.Marshal(envelope{
		Candidates: []candidate{{
			Content:      content{Parts: []part{{Text: text}}, Role: "model"},
			FinishReason: "STOP",
		}},
	})
	return data
}

// EchoReply builds the markdown answer for a prompt
func EchoReply(prompt string) string {
	quoted := "> " + strings.ReplaceAll(strings.TrimSpace(prompt), "\n", "\n> ")
	return fmt.Sprintf("**You said:**\n\n%s\n\n_%d characters received._", quoted, len([]rune(prompt)))
}

// analysisReply describes an uploaded image
func analysisReply(fileName string, size int64, mimeType string) string {
	return fmt.Sprintf("The image **%s** is a %s file of %d bytes.", fileName, mimeType, size)
}
