package eventstream

import "errors"

// ErrNilTalkEvent indicates a nil talk event payload was provided to a publisher.
var ErrNilTalkEvent = errors.New("nil talk event")
