package models

import (
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/mira/internal/errors"
)

// ReplyKind tags the outcome of decoding a server payload
type ReplyKind int

const (
	// ReplyText carries the assistant's text
	ReplyText ReplyKind = iota
	// ReplyMissingText means the payload was JSON but had no text where expected
	ReplyMissingText
	// ReplyMalformed means the payload was not JSON at all
	ReplyMalformed
	// ReplyFailed means the server reported a failure
	ReplyFailed
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyText:
		return "text"
	case ReplyMissingText:
		return "missing-text"
	case ReplyMalformed:
		return "malformed"
	case ReplyFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reply is the decoded result of a socket message or an analysis response.
// Text is always what should be shown in the chat; for non-text kinds it holds
// the placeholder and Err explains the failure.
type Reply struct {
	Kind ReplyKind
	Text string
	Err  error
}

// OK reports whether the reply carries real assistant text
func (r Reply) OK() bool {
	return r.Kind == ReplyText
}

// Display returns the text to append to the conversation
func (r Reply) Display() string {
	return r.Text
}

// TextReply builds a successful reply
func TextReply(text string) Reply {
	return Reply{Kind: ReplyText, Text: text}
}

// ParseSocketReply decodes a frame received on the chat socket.
func ParseSocketReply(data []byte) Reply {
	if !gjson.ValidBytes(data) {
		return Reply{
			Kind: ReplyMalformed,
			Text: apierrors.PlaceholderMalformed,
			Err:  apierrors.NewParseError("invalid JSON", ""),
		}
	}

	text := gjson.GetBytes(data, ReplyTextPath)
	if text.Type != gjson.String || text.String() == "" {
		return Reply{
			Kind: ReplyMissingText,
			Text: apierrors.PlaceholderUnparsable,
			Err:  apierrors.NewParseError(apierrors.ErrEmptyResponse.Error(), ReplyTextPath),
		}
	}

	return TextReply(text.String())
}

// ParseAnalysisResponse decodes the body returned by the image analysis endpoint.
//
// The aiResponse field may be an object, a string holding JSON, or plain text.
func ParseAnalysisResponse(body []byte) Reply {
	if !gjson.ValidBytes(body) {
		err := apierrors.NewParseError("invalid JSON", "")
		return Reply{
			Kind: ReplyMalformed,
			Text: apierrors.UploadPlaceholder(err),
			Err:  err,
		}
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.Get("success").Bool() {
		msg := parsed.Get("error").String()
		if msg == "" {
			msg = "unknown error"
		}
		return Reply{
			Kind: ReplyFailed,
			Text: "Error: " + msg,
			Err:  apierrors.NewUploadError(0, "", msg),
		}
	}

	ai := parsed.Get("aiResponse")
	switch {
	case ai.IsObject():
		return nestedAnalysisText(ai.Raw)
	case ai.Type == gjson.String:
		s := ai.String()
		if gjson.Valid(s) {
			return nestedAnalysisText(s)
		}
		return TextReply(s)
	default:
		return Reply{
			Kind: ReplyMissingText,
			Text: apierrors.PlaceholderNoDesc,
			Err:  apierrors.NewParseError("missing aiResponse", "aiResponse"),
		}
	}
}

func nestedAnalysisText(raw string) Reply {
	text := gjson.Get(raw, ReplyTextPath)
	if text.Type != gjson.String || text.String() == "" {
		return Reply{
			Kind: ReplyMissingText,
			Text: apierrors.PlaceholderNoDesc,
			Err:  apierrors.NewParseError(apierrors.ErrEmptyResponse.Error(), "aiResponse."+ReplyTextPath),
		}
	}
	return TextReply(text.String())
}
