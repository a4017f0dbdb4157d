// Package eventstream defines the transport-neutral events emitted after a
// conversation run finishes, and the Publisher contract backends implement.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTalkCompleted is emitted after a conversation run returns.
	EventTypeTalkCompleted = "qfagent.talk.completed"
)

// TalkCompletedEvent is a transport-neutral event payload for one finished
// conversation run, successful or not.
type TalkCompletedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	RequestMeta   TalkRequestMeta `json:"request_meta"`
	Talk          TalkRecord      `json:"talk"`
}

// EventSource identifies which app and client produced the run.
type EventSource struct {
	AppID  string `json:"app_id"`
	Client string `json:"client,omitempty"`
}

// TalkRequestMeta captures request lifecycle metadata for the event.
type TalkRequestMeta struct {
	Endpoint    string    `json:"endpoint"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Streaming   bool      `json:"streaming"`
	HTTPStatus  int       `json:"http_status,omitempty"`
}

// TalkRecord is the conversation content of the run.
type TalkRecord struct {
	ConversationID string   `json:"conversation_id"`
	MessageID      string   `json:"message_id,omitempty"`
	RequestID      string   `json:"request_id,omitempty"`
	Query          string   `json:"query"`
	FileIDs        []string `json:"file_ids,omitempty"`
	Answer         string   `json:"answer"`
	Completed      bool     `json:"completed"`
	Frames         int      `json:"frames,omitempty"`
	Fragments      int      `json:"fragments,omitempty"`
	DecodeFailures int      `json:"decode_failures,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// NewTalkCompletedEvent stamps a new event with a random id and the current
// time.
func NewTalkCompletedEvent(source EventSource, meta TalkRequestMeta, talk TalkRecord) *TalkCompletedEvent {
	return &TalkCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTalkCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		RequestMeta:   meta,
		Talk:          talk,
	}
}
