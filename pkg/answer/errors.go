package answer

import "fmt"

// FrameDecodeError reports a streamed frame whose payload is not a valid run
// event. It never aborts a stream.
type FrameDecodeError struct {
	// Raw is the frame exactly as the splitter emitted it, framing prefix
	// included.
	Raw string
	Err error
}

func (e *FrameDecodeError) Error() string {
	return fmt.Sprintf("decoding frame: %v", e.Err)
}

func (e *FrameDecodeError) Unwrap() error {
	return e.Err
}
