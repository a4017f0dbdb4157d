package answer_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/qfagent/pkg/answer"
	"github.com/papercomputeco/qfagent/pkg/sse"
)

const runFrame = `data: {"request_id": "3b4648f0-1ee8-4805-8465-d7767c566a2d", "date": "2024-04-29T09:31:00Z", "answer": "你好，", "conversation_id": "0e180ce4-8947-457c-90ff-fb8dfeaba0ff", "message_id": "a9025e6c-47c6-4f2f-ab21-eabda4fa4759", "is_completion": false, "content": [{"event_code": 0, "event_message": "", "event_type": "ChatAgent", "event_id": "2", "event_status": "running", "content_type": "text", "outputs": {"text": "你好，"}}]}`

var _ = Describe("Decode", func() {
	It("decodes a conversation run frame", func() {
		ev, err := answer.Decode(runFrame)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.RequestID).To(Equal("3b4648f0-1ee8-4805-8465-d7767c566a2d"))
		Expect(ev.Answer).To(Equal("你好，"))
		Expect(ev.ConversationID).To(Equal("0e180ce4-8947-457c-90ff-fb8dfeaba0ff"))
		Expect(ev.MessageID).To(Equal("a9025e6c-47c6-4f2f-ab21-eabda4fa4759"))
		Expect(ev.IsCompletion).To(BeFalse())
		Expect(ev.Content).To(HaveLen(1))
		Expect(ev.Content[0].EventType).To(Equal("ChatAgent"))
		Expect(ev.Content[0].EventStatus).To(Equal("running"))
		Expect(ev.Content[0].ContentType).To(Equal("text"))

		var outputs map[string]string
		Expect(json.Unmarshal(ev.Content[0].Outputs, &outputs)).To(Succeed())
		Expect(outputs["text"]).To(Equal("你好，"))
	})

	It("decodes a payload without the data marker", func() {
		ev, err := answer.Decode(`{"answer":"bare","is_completion":true}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Answer).To(Equal("bare"))
		Expect(ev.IsCompletion).To(BeTrue())
	})

	It("does not strip a marker appearing inside the payload", func() {
		ev, err := answer.Decode(`data: {"answer":"data: stays"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Answer).To(Equal("data: stays"))
	})

	It("returns a FrameDecodeError carrying the raw frame", func() {
		_, err := answer.Decode("data: {broken")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("decoding frame"))

		decodeErr, ok := err.(*answer.FrameDecodeError)
		Expect(ok).To(BeTrue())
		Expect(decodeErr.Raw).To(Equal("data: {broken"))
		Expect(decodeErr.Unwrap()).NotTo(BeNil())
	})

	DescribeTable("rejects JSON payloads that are not objects",
		func(frame string) {
			_, err := answer.Decode(frame)
			Expect(err).To(MatchError(answer.ErrNotObject))

			var decodeErr *answer.FrameDecodeError
			Expect(errors.As(err, &decodeErr)).To(BeTrue())
			Expect(decodeErr.Raw).To(Equal(frame))
		},
		Entry("null", "data: null"),
		Entry("array", `data: [{"answer":"x"}]`),
		Entry("string", `data: "hello"`),
		Entry("number", "data: 42"),
	)
})

var _ = Describe("chunked accumulation", func() {
	stream := runFrame + "\n\n" +
		`data: {"answer": "很抱歉，我无法直接分析表格数据。", "is_completion": false}` + "\n\n" +
		"data: not-json\n\n" +
		`data: {"answer": "\n\n请问您是否有文件需要上传？", "is_completion": false}` + "\n\n" +
		`data: {"answer": "", "is_completion": true}` + "\n\n"

	DescribeTable("produces the same answer, fragments and errors for every read size",
		func(chunkSize int) {
			var fragments, failures []string
			acc := answer.New(
				answer.WithFragmentSink(func(f string) { fragments = append(fragments, f) }),
				answer.WithErrorSink(func(raw string) { failures = append(failures, raw) }),
			)

			final, err := acc.Consume(context.Background(), sse.NewSplitter(strings.NewReader(stream), sse.WithChunkSize(chunkSize)))
			Expect(err).NotTo(HaveOccurred())
			Expect(final).To(Equal("你好，很抱歉，我无法直接分析表格数据。\n\n请问您是否有文件需要上传？"))
			Expect(fragments).To(HaveLen(3))
			Expect(strings.Join(fragments, "")).To(Equal(final))
			Expect(failures).To(Equal([]string{"data: not-json"}))
			Expect(acc.Completed()).To(BeTrue())
		},
		Entry("1 byte", 1),
		Entry("128 bytes", 128),
		Entry("1024 bytes", 1024),
		Entry("entire sequence", len(stream)),
	)
})
