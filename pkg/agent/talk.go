package agent

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/qfagent/pkg/answer"
	"github.com/papercomputeco/qfagent/pkg/sse"
	"github.com/papercomputeco/qfagent/pkg/utils"
)

const (
	opTalk       = "talk"
	opTalkStream = "talk stream"
)

// TalkResult is the outcome of one conversation run.
type TalkResult struct {
	ConversationID string
	MessageID      string
	RequestID      string

	// Answer is the full answer text. For a stream it is the concatenation of
	// every non-empty fragment in arrival order.
	Answer string

	// Completed reports whether the platform flagged the answer as complete.
	Completed bool

	// Stats and DecodeErrors are only populated by TalkStream.
	Stats        answer.Stats
	DecodeErrors []*Error
}

// StreamRequest describes one streamed conversation run.
type StreamRequest struct {
	ConversationID string
	Query          string
	FileIDs        []string

	// OnFragment receives every non-empty answer fragment as it arrives.
	OnFragment func(fragment string)

	// OnError receives the raw text of every frame that failed to decode.
	OnError func(raw string)
}

type runRequest struct {
	AppID          string   `json:"app_id"`
	Query          string   `json:"query"`
	Stream         bool     `json:"stream"`
	ConversationID string   `json:"conversation_id"`
	FileIDs        []string `json:"file_ids,omitempty"`
}

type runResponse struct {
	RequestID      string  `json:"request_id"`
	Answer         string  `json:"answer"`
	ConversationID *string `json:"conversation_id"`
	MessageID      string  `json:"message_id"`
	IsCompletion   bool    `json:"is_completion"`
}

func (c *Client) newRunRequest(conversationID, query string, fileIDs []string, stream bool) runRequest {
	var ids []string
	for _, id := range fileIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}

	return runRequest{
		AppID:          c.appID,
		Query:          utils.TruncateRunes(query, c.queryLimit),
		Stream:         stream,
		ConversationID: conversationID,
		FileIDs:        ids,
	}
}

// Talk runs query in a conversation and waits for the whole answer.
func (c *Client) Talk(ctx context.Context, conversationID, query string, fileIDs ...string) (*TalkResult, error) {
	started := time.Now()
	run := c.newRunRequest(conversationID, query, fileIDs, false)

	result, status, err := c.talk(ctx, run)
	c.publish(run, result, err, status, started)

	return result, err
}

func (c *Client) talk(ctx context.Context, run runRequest) (*TalkResult, int, error) {
	req, err := c.newJSONRequest(ctx, runsPath, run)
	if err != nil {
		return nil, 0, &Error{Kind: KindTransport, Op: opTalk, Err: err}
	}

	body, status, err := c.doOneShot(opTalk, req)
	if err != nil {
		return nil, status, err
	}

	var resp runResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, status, &Error{Kind: KindMissingField, Op: opTalk, Status: status, Body: string(body), Err: err}
	}
	if resp.ConversationID == nil {
		return nil, status, &Error{Kind: KindMissingField, Op: opTalk, Status: status, Body: string(body), Err: errors.New(`response has no "conversation_id"`)}
	}

	c.logger.Debug("talk answered",
		zap.String("conversation_id", *resp.ConversationID),
		zap.String("message_id", resp.MessageID),
		zap.Int("answer_len", len(resp.Answer)),
	)

	return &TalkResult{
		ConversationID: *resp.ConversationID,
		MessageID:      resp.MessageID,
		RequestID:      resp.RequestID,
		Answer:         resp.Answer,
		Completed:      resp.IsCompletion,
	}, status, nil
}

// TalkStream runs a query and consumes the answer as a server-sent event
// stream, invoking the request's callbacks as frames arrive.
//
// A frame that fails to decode is passed to OnError, recorded in
// DecodeErrors and otherwise skipped. If the stream breaks or ctx is done
// after it started, the partial result is returned alongside the error. Once
// ctx is done neither callback is invoked again.
func (c *Client) TalkStream(ctx context.Context, sr StreamRequest) (*TalkResult, error) {
	started := time.Now()
	run := c.newRunRequest(sr.ConversationID, sr.Query, sr.FileIDs, true)

	result, status, err := c.talkStream(ctx, run, sr)
	c.publish(run, result, err, status, started)

	return result, err
}

func (c *Client) talkStream(ctx context.Context, run runRequest, sr StreamRequest) (*TalkResult, int, error) {
	req, err := c.newJSONRequest(ctx, runsPath, run)
	if err != nil {
		return nil, 0, &Error{Kind: KindStreamTransport, Op: opTalkStream, Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, body, err := c.openStream(opTalkStream, req)
	if err != nil {
		return nil, statusOf(err), err
	}
	defer resp.Body.Close()


	result := &TalkResult{ConversationID: run.ConversationID}

	acc := answer.New(
		answer.WithLogger(c.logger),
		answer.WithStopOnCompletion(c.stopOnCompletion),
		answer.WithFragmentSink(func(fragment string) {
			if sr.OnFragment != nil {
				sr.OnFragment(fragment)
			}
		}),
		answer.WithErrorSink(func(raw string) {
			_, decodeErr := answer.Decode(raw)
			result.DecodeErrors = append(result.DecodeErrors, &Error{Kind: KindFrameDecode, Op: opTalkStream, Body: raw, Err: decodeErr})
			if sr.OnError != nil {
				sr.OnError(raw)
			}
		}),
	)

	splitter := sse.NewSplitter(body, sse.WithChunkSize(c.chunkSize))

	// Closing the body unblocks a read that is waiting on the network; closing
	// the splitter keeps buffered frames from reaching the callbacks.
	stop := context.AfterFunc(ctx, func() {
		_ = splitter.Close()
		resp.Body.Close()
	})
	defer stop()

	text, err := acc.Consume(ctx, splitter)

	last := acc.Last()
	result.Answer = text
	result.Completed = acc.Completed()
	result.Stats = acc.Stats()
	result.MessageID = last.MessageID
	result.RequestID = last.RequestID
	if last.ConversationID != "" {
		result.ConversationID = last.ConversationID
	}

	c.logger.Debug("talk stream finished",
		zap.String("conversation_id", result.ConversationID),
		zap.String("message_id", result.MessageID),
		zap.Int("frames", result.Stats.Frames),
		zap.Int("fragments", result.Stats.Fragments),
		zap.Int("decode_failures", result.Stats.Failures),
		zap.Bool("completed", result.Completed),
		zap.Error(err),
	)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, resp.StatusCode, ctxErr
		}
		return result, resp.StatusCode, &Error{Kind: KindStreamTransport, Op: opTalkStream, Status: resp.StatusCode, Err: err}
	}

	return result, resp.StatusCode, nil
}

func statusOf(err error) int {
	var agentErr *Error
	if errors.As(err, &agentErr) {
		return agentErr.Status
	}
	return 0
}
