package sse

import "strings"

// ParseFrame splits a single frame into its SSE fields.
//
// Per the SSE spec, a line has the form "field:value" where the first space
// after the colon is optional and stripped if present. Lines starting with ':'
// are comments. The "data:" marker is optional on the wire: a frame without
// any recognized field line is treated as a bare payload and returned whole
// in Data.
func ParseFrame(frame string) Event {
	ev := Event{}
	hasData, hasField := false, false

	for line := range strings.Lines(frame) {
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		if comment, ok := strings.CutPrefix(line, ":"); ok {
			ev.Comments = append(ev.Comments, strings.TrimPrefix(comment, " "))
			hasField = true
			continue
		}

		field, value := splitField(line)
		switch field {
		case "data":
			if hasData {
				// Multiple data fields are joined with "\n".
				ev.Data += "\n"
			}
			ev.Data += value
			hasData = true
		case "event":
			ev.Type = value
			hasField = true
		case "id":
			ev.ID = value
			hasField = true
		default:
			// "retry" and unknown fields are ignored per the SSE spec.
		}
	}

	if !hasData && !hasField {
		ev.Data = strings.TrimSpace(frame)
	}

	return ev
}

func splitField(line string) (string, string) {
	before, after, ok := strings.Cut(line, ":")
	if !ok {
		// Line with no colon: the entire line is the field name with
		// an empty value.
		return line, ""
	}

	return before, strings.TrimPrefix(after, " ")
}
