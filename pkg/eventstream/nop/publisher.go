// Package nop provides a Publisher that discards every event.
package nop

import (
	"context"

	"github.com/papercomputeco/qfagent/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish validates input and otherwise does nothing.
func (p *Publisher) Publish(_ context.Context, event *eventstream.TalkCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTalkEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
