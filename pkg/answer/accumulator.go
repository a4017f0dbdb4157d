package answer

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/qfagent/pkg/sse"
	"github.com/papercomputeco/qfagent/pkg/utils"
)

// FragmentSink receives every non-empty answer fragment, in arrival order.
type FragmentSink func(fragment string)

// ErrorSink receives the raw text of every frame that failed to decode, in
// arrival order.
type ErrorSink func(raw string)

// FrameSource yields complete frames until it returns io.EOF.
// *sse.Splitter is the canonical implementation.
type FrameSource interface {
	Next() (string, error)
}

var _ FrameSource = (*sse.Splitter)(nil)

// closer is implemented by sources that can be abandoned from a sink or
// another goroutine.
type closer interface {
	Closed() bool
}

// Stats counts what an Accumulator has seen so far.
type Stats struct {
	Frames     int
	Fragments  int
	Failures   int
	KeepAlives int
}

// Accumulator builds the running answer of a single streamed call.
// It is not safe for concurrent use; create one per stream.
type Accumulator struct {
	onFragment       FragmentSink
	onError          ErrorSink
	stopOnCompletion bool
	logger           *zap.Logger

	answer    strings.Builder
	last      ParsedEvent
	stats     Stats
	completed bool
}

// Option configures an Accumulator created with New.
type Option func(*Accumulator)

// WithFragmentSink sets the callback invoked with each non-empty fragment.
func WithFragmentSink(sink FragmentSink) Option {
	return func(a *Accumulator) {
		a.onFragment = sink
	}
}

// WithErrorSink sets the callback invoked with each undecodable frame.
func WithErrorSink(sink ErrorSink) Option {
	return func(a *Accumulator) {
		a.onError = sink
	}
}

// WithStopOnCompletion makes Consume return as soon as a frame with
// is_completion set has been processed, instead of waiting for the source to
// end.
func WithStopOnCompletion(stop bool) Option {
	return func(a *Accumulator) {
		a.stopOnCompletion = stop
	}
}

// WithLogger sets the logger used for per-frame debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Accumulator) {
		a.logger = logger
	}
}

// New creates an empty Accumulator.
func New(opts ...Option) *Accumulator {
	a := &Accumulator{
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = zap.NewNop()
	}

	return a
}

// Feed processes one frame.
//
// A frame that decodes with an empty answer is a structural or status event
// and leaves the running answer untouched. A frame that fails to decode is
// handed verbatim to the error sink and reported as a *FrameDecodeError; the
// running answer is not altered. Comment-only keep-alive frames are skipped.
func (a *Accumulator) Feed(frame string) (ParsedEvent, error) {
	a.stats.Frames++

	if sse.ParseFrame(frame).KeepAlive() {
		a.stats.KeepAlives++
		return ParsedEvent{}, nil
	}

	ev, err := Decode(frame)
	if err != nil {
		a.stats.Failures++
		a.logger.Debug("undecodable stream frame",
			zap.Error(err),
			zap.String("frame", utils.Truncate(frame, 256)),
		)
		if a.onError != nil {
			a.onError(frame)
		}
		return ParsedEvent{}, err
	}

	a.last = ev
	if ev.IsCompletion {
		a.completed = true
	}

	if ev.Answer == "" {
		return ev, nil
	}

	a.stats.Fragments++
	a.answer.WriteString(ev.Answer)
	if a.onFragment != nil {
		a.onFragment(ev.Answer)
	}

	return ev, nil
}

// Consume feeds every frame from src until it is exhausted and returns the
// running answer.
//
// Decode failures never stop consumption. A read error from src or the
// cancellation of ctx stops it; the partial answer is returned alongside the
// error. Once ctx is done, or src has been closed, no sink is invoked again.
func (a *Accumulator) Consume(ctx context.Context, src FrameSource) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return a.Answer(), err
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			return a.Answer(), nil
		}
		if err != nil {
			return a.Answer(), err
		}

		// The read may have blocked for a long time; the caller could have
		// walked away in the meantime.
		if err := ctx.Err(); err != nil {
			return a.Answer(), err
		}
		if c, ok := src.(closer); ok && c.Closed() {
			return a.Answer(), sse.ErrClosed
		}

		ev, err := a.Feed(frame)
		if err == nil && ev.IsCompletion && a.stopOnCompletion {
			a.logger.Debug("completion frame received, stopping stream early",
				zap.String("message_id", ev.MessageID),
			)
			return a.Answer(), nil
		}
	}
}

// Answer returns the concatenation of every fragment fed so far.
func (a *Accumulator) Answer() string {
	return a.answer.String()
}

// Last returns the most recent successfully decoded event. Its identifiers
// describe the conversation and message the stream belongs to.
func (a *Accumulator) Last() ParsedEvent {
	return a.last
}

// Completed reports whether a frame with is_completion set has been seen.
func (a *Accumulator) Completed() bool {
	return a.completed
}

// Stats returns frame counters for the stream so far.
func (a *Accumulator) Stats() Stats {
	return a.stats
}
