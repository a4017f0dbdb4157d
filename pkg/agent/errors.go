package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/qfagent/pkg/utils"
)

// Kind classifies an *Error.
type Kind int

const (
	// KindTransport is a failed one-shot call: transport failure, non-200
	// status or empty body. Raised before any JSON decoding.
	KindTransport Kind = iota + 1

	// KindMissingField is a one-shot body that decodes without the field the
	// call returns, or that does not decode at all.
	KindMissingField

	// KindFrameDecode is a stream frame that failed to decode. It never aborts
	// a stream; it is reported through TalkResult.DecodeErrors.
	KindFrameDecode

	// KindStreamTransport is a streamed call that failed at the transport
	// level: before any frame (no partial answer) or mid-stream (partial
	// answer returned alongside).
	KindStreamTransport

	// KindInvalidArgument is a call rejected before any request was sent.
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindMissingField:
		return "missing field"
	case KindFrameDecode:
		return "frame decode"
	case KindStreamTransport:
		return "stream transport"
	case KindInvalidArgument:
		return "invalid argument"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyBody marks a response that carried no payload.
	ErrEmptyBody = errors.New("empty response body")

	// ErrUnexpectedStatus marks a response with a status other than 200.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Error is returned by every Client operation.
type Error struct {
	Kind Kind

	// Op is the operation that failed, e.g. "new conversation".
	Op string

	// Status is the HTTP status, when a response was received.
	Status int

	// Body is the raw response body or stream frame involved, if any.
	Body string

	Err error
}

// maxBodyInError bounds how much of Body Error() prints.
const maxBodyInError = 512

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s error", e.Op, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, ": response %s", utils.Truncate(e.Body, maxBodyInError))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var agentErr *Error
	if errors.As(err, &agentErr) {
		return agentErr.Kind == kind
	}
	return false
}
