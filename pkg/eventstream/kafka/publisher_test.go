package kafka

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/qfagent/pkg/eventstream"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		w *fakeWriter
		p *Publisher
	)

	BeforeEach(func() {
		w = &fakeWriter{}
		p = newPublisher(w, "talks", nil)
	})

	Describe("NewPublisher", func() {
		It("requires brokers and a topic", func() {
			_, err := NewPublisher(Config{Topic: "talks"})
			Expect(err).To(MatchError(ContainSubstring("broker")))

			_, err = NewPublisher(Config{Brokers: []string{"localhost:9092"}})
			Expect(err).To(MatchError(ContainSubstring("topic")))
		})

		It("configures a writer without dialing", func() {
			pub, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}, Topic: "talks"})
			Expect(err).NotTo(HaveOccurred())

			kw, ok := pub.writer.(*kafkago.Writer)
			Expect(ok).To(BeTrue())
			Expect(kw.Topic).To(Equal("talks"))
			Expect(kw.WriteTimeout).To(Equal(defaultWriteTimeout))
			Expect(pub.Close()).To(Succeed())
		})
	})

	Describe("Publish", func() {
		It("rejects nil events", func() {
			Expect(p.Publish(context.Background(), nil)).To(MatchError(eventstream.ErrNilTalkEvent))
			Expect(w.msgs).To(BeEmpty())
		})

		It("writes one JSON message keyed by conversation id", func() {
			ev := eventstream.NewTalkCompletedEvent(
				eventstream.EventSource{AppID: "app"},
				eventstream.TalkRequestMeta{Endpoint: "/v2/app/conversation/runs"},
				eventstream.TalkRecord{ConversationID: "conv-1", Answer: "hi"},
			)

			Expect(p.Publish(context.Background(), ev)).To(Succeed())
			Expect(w.msgs).To(HaveLen(1))

			msg := w.msgs[0]
			Expect(string(msg.Key)).To(Equal("conv-1"))
			Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_id", Value: []byte(ev.EventID)}))

			var decoded eventstream.TalkCompletedEvent
			Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
			Expect(decoded.EventID).To(Equal(ev.EventID))
			Expect(decoded.Talk.Answer).To(Equal("hi"))
		})

		It("wraps writer failures", func() {
			w.err = errors.New("leader not available")
			ev := eventstream.NewTalkCompletedEvent(eventstream.EventSource{}, eventstream.TalkRequestMeta{}, eventstream.TalkRecord{})

			err := p.Publish(context.Background(), ev)
			Expect(err).To(MatchError(ContainSubstring("leader not available")))
			Expect(errors.Is(err, w.err)).To(BeTrue())
		})
	})

	It("closes the writer", func() {
		Expect(p.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})
})
