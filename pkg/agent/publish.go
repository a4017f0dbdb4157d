package agent

import (
	"time"

	"github.com/papercomputeco/qfagent/pkg/eventstream"
	"github.com/papercomputeco/qfagent/pkg/worker"
)

// publish hands a completion event for one run to the configured publisher.
// It never blocks; a full queue drops the event.
func (c *Client) publish(run runRequest, result *TalkResult, err error, status int, started time.Time) {
	if c.publisher == nil {
		return
	}

	completed := time.Now()
	record := eventstream.TalkRecord{
		ConversationID: run.ConversationID,
		Query:          run.Query,
		FileIDs:        run.FileIDs,
	}

	if result != nil {
		record.ConversationID = result.ConversationID
		record.MessageID = result.MessageID
		record.RequestID = result.RequestID
		record.Answer = result.Answer
		record.Completed = result.Completed
		record.Frames = result.Stats.Frames
		record.Fragments = result.Stats.Fragments
		record.DecodeFailures = result.Stats.Failures
	}
	if err != nil {
		record.Error = err.Error()
	}

	event := eventstream.NewTalkCompletedEvent(
		eventstream.EventSource{AppID: c.appID, Client: c.userAgent},
		eventstream.TalkRequestMeta{
			Endpoint:    runsPath,
			StartedAt:   started.UTC(),
			CompletedAt: completed.UTC(),
			DurationMs:  completed.Sub(started).Milliseconds(),
			Streaming:   run.Stream,
			HTTPStatus:  status,
		},
		record,
	)

	c.publisher.Enqueue(worker.Job{Event: event})
}
