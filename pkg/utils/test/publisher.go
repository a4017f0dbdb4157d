package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/qfagent/pkg/eventstream"
	"github.com/papercomputeco/qfagent/pkg/worker"
)

// ErrMockPublish is returned by MockPublisher when FailPublish is set.
var ErrMockPublish = errors.New("mock publish failure")

// MockPublisher is a test eventstream publisher that records every event.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TalkCompletedEvent
	closed bool

	// FailPublish causes Publish to return ErrMockPublish.
	FailPublish bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(_ context.Context, event *eventstream.TalkCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTalkEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPublish {
		return ErrMockPublish
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Events returns a copy of the events published so far.
func (m *MockPublisher) Events() []*eventstream.TalkCompletedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.TalkCompletedEvent(nil), m.events...)
}

// Closed reports whether Close was called.
func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// RecordingEnqueuer is a synchronous worker.Enqueuer that keeps every job.
type RecordingEnqueuer struct {
	mu   sync.Mutex
	jobs []worker.Job

	// Reject makes Enqueue drop every job, as a full queue would.
	Reject bool
}

func NewRecordingEnqueuer() *RecordingEnqueuer {
	return &RecordingEnqueuer{}
}

func (r *RecordingEnqueuer) Enqueue(job worker.Job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Reject {
		return false
	}
	r.jobs = append(r.jobs, job)
	return true
}

// Events returns the events of every accepted job, in order.
func (r *RecordingEnqueuer) Events() []*eventstream.TalkCompletedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := make([]*eventstream.TalkCompletedEvent, 0, len(r.jobs))
	for _, job := range r.jobs {
		events = append(events, job.Event)
	}
	return events
}
