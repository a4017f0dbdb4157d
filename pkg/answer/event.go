// Package answer accumulates the incremental answer text carried by a stream
// of conversation run frames into a running answer, notifying caller-supplied
// sinks of every fragment and every frame that fails to decode.
package answer

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/papercomputeco/qfagent/pkg/sse"
)

// ParsedEvent is the decoded payload of one conversation run frame.
type ParsedEvent struct {
	RequestID      string    `json:"request_id,omitempty"`
	Date           string    `json:"date,omitempty"`
	Answer         string    `json:"answer"`
	ConversationID string    `json:"conversation_id,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	IsCompletion   bool      `json:"is_completion"`
	Content        []Content `json:"content,omitempty"`
}

// Content is one structural entry of a run event: a tool call, a status
// change, or a piece of generated text.
type Content struct {
	EventCode    int             `json:"event_code"`
	EventMessage string          `json:"event_message,omitempty"`
	EventType    string          `json:"event_type,omitempty"`
	EventID      string          `json:"event_id,omitempty"`
	EventStatus  string          `json:"event_status,omitempty"`
	ContentType  string          `json:"content_type,omitempty"`
	Outputs      json.RawMessage `json:"outputs,omitempty"`
}

// ErrNotObject is wrapped by a FrameDecodeError whose payload is valid JSON
// but not an object, such as null or an array.
var ErrNotObject = errors.New("payload is not a JSON object")

// Decode strips the SSE framing from frame and decodes its payload.
// The returned error is a *FrameDecodeError carrying the raw frame.
func Decode(frame string) (ParsedEvent, error) {
	ev := sse.ParseFrame(frame)

	if !strings.HasPrefix(strings.TrimSpace(ev.Data), "{") && json.Valid([]byte(ev.Data)) {
		return ParsedEvent{}, &FrameDecodeError{Raw: frame, Err: ErrNotObject}
	}

	var parsed ParsedEvent
	if err := json.Unmarshal([]byte(ev.Data), &parsed); err != nil {
		return ParsedEvent{}, &FrameDecodeError{Raw: frame, Err: err}
	}

	return parsed, nil
}
