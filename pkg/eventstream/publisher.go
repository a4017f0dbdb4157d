package eventstream

import "context"

// Publisher publishes talk events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, event *TalkCompletedEvent) error
	Close() error
}
