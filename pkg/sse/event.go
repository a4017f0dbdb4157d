// Package sse reassembles server-sent event frames from an arbitrarily
// chunked byte stream. Frames are delimited by a blank line; the bytes of a
// partial frame are carried across reads until its delimiter arrives.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents the fields of a single frame, as parsed by ParseFrame.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n". When the frame carries no "data:" line at all, Data
	// is the whole trimmed frame.
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string

	// Comments holds the text of ":" lines. Servers send comment-only frames
	// as keep-alives.
	Comments []string
}

// KeepAlive reports whether the frame carried nothing but comments.
func (e Event) KeepAlive() bool {
	return e.Data == "" && e.Type == "" && e.ID == "" && len(e.Comments) > 0
}
