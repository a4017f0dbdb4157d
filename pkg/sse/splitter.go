package sse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

const (
	// DefaultChunkSize is the number of bytes requested from the source per read.
	DefaultChunkSize = 128

	// DefaultMaxFrameSize bounds the number of bytes a single frame may hold
	// before its delimiter.
	DefaultMaxFrameSize = 1024 * 1024
)

var (
	// ErrFrameTooLarge is returned by Next once the stream holds a frame
	// longer than the configured max frame size.
	ErrFrameTooLarge = errors.New("sse frame exceeds max frame size")

	// ErrClosed is returned by Next after Close.
	ErrClosed = errors.New("sse splitter closed")
)

var (
	delimLF   = []byte("\n\n")
	delimCRLF = []byte("\r\n\r\n")
)

// Splitter turns an arbitrarily chunked byte stream into a sequence of
// complete frames.
//
// ┌──────────────────┐
// │ source io.Reader │  reads of ChunkSize bytes
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      buffer      │  partial frame carried across reads
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐
// │ Splitter.Next()  │  one frame per call
// └──────────────────┘
//
// The emitted sequence depends only on the bytes of the stream, never on how
// the source happened to chunk them. A Splitter owns its buffer and must not
// be shared between streams or goroutines.
type Splitter struct {
	src   io.Reader
	chunk []byte
	buf   []byte

	// scanFrom is the buffer offset where the next delimiter search starts.
	// Everything before it is known to hold no delimiter.
	scanFrom int

	maxFrameSize int
	eof          bool
	err          error

	closed atomic.Bool
}

// SplitterOption configures a Splitter created with NewSplitter.
type SplitterOption func(*Splitter)

// WithChunkSize sets how many bytes are requested from the source per read.
// Values below 1 keep the default.
func WithChunkSize(n int) SplitterOption {
	return func(s *Splitter) {
		if n > 0 {
			s.chunk = make([]byte, n)
		}
	}
}

// WithMaxFrameSize overrides DefaultMaxFrameSize. Values below 1 keep the
// default.
func WithMaxFrameSize(n int) SplitterOption {
	return func(s *Splitter) {
		if n > 0 {
			s.maxFrameSize = n
		}
	}
}

// NewSplitter returns a Splitter reading frames from src.
func NewSplitter(src io.Reader, opts ...SplitterOption) *Splitter {
	s := &Splitter{
		src:          src,
		chunk:        make([]byte, DefaultChunkSize),
		maxFrameSize: DefaultMaxFrameSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Next returns the next complete frame, without its delimiter. It blocks
// until a delimiter arrives or the source ends.
//
// Frames that are blank after trimming are skipped. When the source reports
// io.EOF, a non-blank remainder that never received its delimiter is returned
// as the final frame, after which Next returns io.EOF. The caller decides
// whether that last frame is well formed.
//
// Any other read error is returned once all complete frames already buffered
// have been emitted; the unterminated remainder is dropped.
//
// A frame holding more than the max frame size before its delimiter fails
// with ErrFrameTooLarge. Frames before it are emitted first, so the outcome
// depends only on the bytes of the stream.
//
// After Close, Next returns ErrClosed without emitting buffered frames.
func (s *Splitter) Next() (string, error) {
	for {
		if s.closed.Load() {
			return "", ErrClosed
		}

		frame, ok, err := s.extract()
		if err != nil {
			return "", err
		}
		if ok {
			return frame, nil
		}

		if s.err != nil {
			return "", s.err
		}

		if s.eof {
			if len(s.buf) > s.maxFrameSize {
				return "", s.fail()
			}
			rest := trimFrame(s.buf)
			s.buf = nil
			s.scanFrom = 0
			if rest != "" {
				return rest, nil
			}
			return "", io.EOF
		}

		// Up to len(delimCRLF)-1 trailing bytes may still turn out to be part
		// of the delimiter; the rest belongs to the frame no matter what
		// arrives next.
		if len(s.buf)-(len(delimCRLF)-1) > s.maxFrameSize {
			return "", s.fail()
		}

		n, err := s.src.Read(s.chunk)
		if n > 0 {
			s.buf = append(s.buf, s.chunk[:n]...)
		}

		switch {
		case errors.Is(err, io.EOF):
			s.eof = true
		case err != nil:
			s.err = err
		}
	}
}

// Buffered returns the number of bytes read from the source but not yet
// emitted as part of a frame.
func (s *Splitter) Buffered() int {
	return len(s.buf)
}

// Close abandons the stream. Every later Next returns ErrClosed, frames
// already buffered included. The source is closed when it is an io.Closer.
// Close may be called from any goroutine.
func (s *Splitter) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Closed reports whether Close has been called.
func (s *Splitter) Closed() bool {
	return s.closed.Load()
}

// fail drops the buffer and makes ErrFrameTooLarge sticky.
func (s *Splitter) fail() error {
	s.buf = nil
	s.scanFrom = 0
	s.eof = false
	s.err = fmt.Errorf("%w: limit is %d bytes", ErrFrameTooLarge, s.maxFrameSize)
	return s.err
}

// extract removes the first complete frame from the buffer. Blank frames are
// consumed and skipped.
func (s *Splitter) extract() (string, bool, error) {
	for {
		pos, size := s.findDelimiter()
		if pos < 0 {
			return "", false, nil
		}

		if pos > s.maxFrameSize {
			return "", false, s.fail()
		}

		frame := trimFrame(s.buf[:pos])

		// Shift the remainder down so the backing array does not grow without
		// bound on long streams.
		s.buf = append(s.buf[:0], s.buf[pos+size:]...)
		s.scanFrom = 0

		if frame != "" {
			return frame, true, nil
		}
	}
}

// findDelimiter returns the offset and length of the earliest frame delimiter
// in the buffer, or -1 when none is present.
func (s *Splitter) findDelimiter() (int, int) {
	window := s.buf[s.scanFrom:]

	pos, size := -1, 0
	if i := bytes.Index(window, delimLF); i >= 0 {
		pos, size = i, len(delimLF)
	}
	if i := bytes.Index(window, delimCRLF); i >= 0 && (pos < 0 || i < pos) {
		pos, size = i, len(delimCRLF)
	}

	if pos < 0 {
		// A delimiter may straddle the end of the buffer; rescan the tail.
		s.scanFrom = max(0, len(s.buf)-(len(delimCRLF)-1))
		return -1, 0
	}

	return s.scanFrom + pos, size
}

// trimFrame drops the line breaks padding a frame. Blank frames become "".
func trimFrame(b []byte) string {
	if len(bytes.TrimSpace(b)) == 0 {
		return ""
	}
	return strings.Trim(string(b), "\r\n")
}
