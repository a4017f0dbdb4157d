package sse_test

import (
	"errors"
	"io"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/qfagent/pkg/sse"
)

// appBuilderStream mirrors the shape of a real conversation run stream:
// status events with empty answers around text events.
const appBuilderStream = `data: {"request_id": "3b4648f0", "answer": "", "conversation_id": "0e180ce4", "message_id": "a9025e6c", "is_completion": false, "content": [{"event_type": "function_call", "event_status": "done", "content_type": "function_call"}]}

data: {"request_id": "3b4648f0", "answer": "你好，", "conversation_id": "0e180ce4", "message_id": "a9025e6c", "is_completion": false, "content": [{"event_type": "ChatAgent", "event_status": "running", "content_type": "text", "outputs": {"text": "你好，"}}]}

data: {"request_id": "3b4648f0", "answer": "很抱歉，我无法直接分析表格数据。", "conversation_id": "0e180ce4", "message_id": "a9025e6c", "is_completion": false}

data: {"request_id": "3b4648f0", "answer": "\n\n请问您是否有文件需要上传？", "conversation_id": "0e180ce4", "message_id": "a9025e6c", "is_completion": false}

data: {"request_id": "3b4648f0", "answer": "", "conversation_id": "0e180ce4", "message_id": "a9025e6c", "is_completion": true}

`

var _ = Describe("Splitter", func() {
	Describe("Next", func() {
		It("emits a single frame without its delimiter", func() {
			s := sse.NewSplitter(strings.NewReader("data: hello world\n\n"))

			frame, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(frame).To(Equal("data: hello world"))

			_, err = s.Next()
			Expect(err).To(MatchError(io.EOF))
		})

		It("emits many frames found in a single read", func() {
			s := sse.NewSplitter(strings.NewReader("data: a\n\ndata: b\n\ndata: c\n\n"), sse.WithChunkSize(4096))

			frames, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal([]string{"data: a", "data: b", "data: c"}))
		})

		It("carries a partial frame across reads", func() {
			src := &chunkReader{chunks: []string{
				`data: {"answer":"He`,
				`llo"}` + "\n\ndata: {\"answer\":\" world\"}\n\n",
			}}
			s := sse.NewSplitter(src)

			frames, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal([]string{
				`data: {"answer":"Hello"}`,
				`data: {"answer":" world"}`,
			}))
		})

		It("finds a delimiter split across two reads", func() {
			src := &chunkReader{chunks: []string{"data: one\n", "\ndata: two\n", "\n"}}
			s := sse.NewSplitter(src)

			frames, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal([]string{"data: one", "data: two"}))
		})

		It("accepts CRLF delimited frames", func() {
			src := &chunkReader{chunks: []string{"data: one\r\n\r", "\ndata: two\r\n\r\n"}}
			s := sse.NewSplitter(src)

			frames, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal([]string{"data: one", "data: two"}))
		})

		It("keeps multi-line frames together", func() {
			s := sse.NewSplitter(strings.NewReader("event: delta\nid: 7\ndata: x\n\n"))

			frames, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal([]string{"event: delta\nid: 7\ndata: x"}))
		})

		It("skips blank frames", func() {
			s := sse.NewSplitter(strings.NewReader("\n\n\n\n   \n\ndata: x\n\n\n\n"))

			frames, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal([]string{"data: x"}))
		})

		It("returns io.EOF on empty input", func() {
			s := sse.NewSplitter(strings.NewReader(""))

			_, err := s.Next()
			Expect(err).To(MatchError(io.EOF))
		})

		It("keeps returning io.EOF once exhausted", func() {
			s := sse.NewSplitter(strings.NewReader("data: x\n\n"))
			_, err := drain(s)
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Next()
			Expect(err).To(MatchError(io.EOF))
		})
	})

	Describe("end of stream", func() {
		It("emits an unterminated remainder as the final frame", func() {
			s := sse.NewSplitter(strings.NewReader("data: first\n\ndata: unterminated"))

			frames, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal([]string{"data: first", "data: unterminated"}))
		})

		It("emits a truncated remainder verbatim for the caller to judge", func() {
			s := sse.NewSplitter(strings.NewReader(`data: {"answer":"cut`))

			frames, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal([]string{`data: {"answer":"cut`}))
		})

		It("emits nothing for a whitespace-only remainder", func() {
			s := sse.NewSplitter(strings.NewReader("data: x\n\n \n"))

			frames, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal([]string{"data: x"}))
		})

		It("handles a source returning data together with io.EOF", func() {
			s := sse.NewSplitter(iotest.DataErrReader(strings.NewReader("data: a\n\ndata: b\n\n")))

			frames, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal([]string{"data: a", "data: b"}))
		})
	})

	Describe("read errors", func() {
		It("emits buffered frames before surfacing the error", func() {
			boom := errors.New("connection reset")
			src := &chunkReader{chunks: []string{"data: a\n\ndata: b\n\ndata: parti"}, err: boom}
			s := sse.NewSplitter(src, sse.WithChunkSize(1024))

			frames, err := drain(s)
			Expect(err).To(MatchError(boom))
			Expect(frames).To(Equal([]string{"data: a", "data: b"}))
		})

		It("stops with ErrFrameTooLarge when no delimiter arrives", func() {
			src := strings.NewReader(strings.Repeat("x", 64))
			s := sse.NewSplitter(src, sse.WithChunkSize(8), sse.WithMaxFrameSize(16))

			_, err := s.Next()
			Expect(err).To(MatchError(sse.ErrFrameTooLarge))

			_, err = s.Next()
			Expect(err).To(MatchError(sse.ErrFrameTooLarge))
		})
	})

	Describe("max frame size", func() {
		oversized := "data: ok\n\n" + strings.Repeat("x", 20) + "\n\ndata: late\n\n"

		DescribeTable("fails at the same frame for every read size",
			func(chunkSize int) {
				s := sse.NewSplitter(strings.NewReader(oversized), sse.WithChunkSize(chunkSize), sse.WithMaxFrameSize(16))

				frames, err := drain(s)
				Expect(err).To(MatchError(sse.ErrFrameTooLarge))
				Expect(frames).To(Equal([]string{"data: ok"}))
			},
			Entry("1 byte", 1),
			Entry("3 bytes", 3),
			Entry("16 bytes", 16),
			Entry("whole stream", len(oversized)+1),
		)

		DescribeTable("accepts a frame exactly at the limit for every read size",
			func(chunkSize int) {
				stream := strings.Repeat("y", 16) + "\r\n\r\n" + strings.Repeat("z", 16)
				s := sse.NewSplitter(strings.NewReader(stream), sse.WithChunkSize(chunkSize), sse.WithMaxFrameSize(16))

				frames, err := drain(s)
				Expect(err).NotTo(HaveOccurred())
				Expect(frames).To(Equal([]string{strings.Repeat("y", 16), strings.Repeat("z", 16)}))
			},
			Entry("1 byte", 1),
			Entry("2 bytes", 2),
			Entry("whole stream", 64),
		)

		It("fails on an oversized unterminated remainder", func() {
			s := sse.NewSplitter(strings.NewReader(strings.Repeat("x", 17)), sse.WithChunkSize(64), sse.WithMaxFrameSize(16))

			_, err := s.Next()
			Expect(err).To(MatchError(sse.ErrFrameTooLarge))
		})
	})

	Describe("Close", func() {
		It("stops emitting frames already buffered", func() {
			s := sse.NewSplitter(strings.NewReader("data: a\n\ndata: b\n\ndata: c\n\n"), sse.WithChunkSize(4096))

			frame, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(frame).To(Equal("data: a"))
			Expect(s.Buffered()).To(BeNumerically(">", 0))

			Expect(s.Close()).To(Succeed())
			Expect(s.Closed()).To(BeTrue())

			_, err = s.Next()
			Expect(err).To(MatchError(sse.ErrClosed))
			_, err = s.Next()
			Expect(err).To(MatchError(sse.ErrClosed))
		})

		It("closes the source once", func() {
			src := &countingCloser{Reader: strings.NewReader("data: a\n\n")}
			s := sse.NewSplitter(src)

			Expect(s.Close()).To(Succeed())
			Expect(s.Close()).To(Succeed())
			Expect(src.closes).To(Equal(1))
		})
	})

	Describe("Buffered", func() {
		It("reports the bytes held back for an incomplete frame", func() {
			src := &chunkReader{chunks: []string{"data: a\n\ndata: par"}}
			s := sse.NewSplitter(src, sse.WithChunkSize(1024))

			frame, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(frame).To(Equal("data: a"))
			Expect(s.Buffered()).To(Equal(len("data: par")))
		})
	})

	Describe("chunk invariance", func() {
		var expected []string

		BeforeEach(func() {
			var err error
			expected, err = drain(sse.NewSplitter(strings.NewReader(appBuilderStream), sse.WithChunkSize(len(appBuilderStream))))
			Expect(err).NotTo(HaveOccurred())
			Expect(expected).To(HaveLen(5))
		})

		DescribeTable("yields identical frames for every read size",
			func(chunkSize int) {
				s := sse.NewSplitter(strings.NewReader(appBuilderStream), sse.WithChunkSize(chunkSize))

				frames, err := drain(s)
				Expect(err).NotTo(HaveOccurred())
				Expect(frames).To(Equal(expected))
			},
			Entry("1 byte", 1),
			Entry("2 bytes", 2),
			Entry("3 bytes", 3),
			Entry("7 bytes", 7),
			Entry("128 bytes", 128),
			Entry("1024 bytes", 1024),
			Entry("whole stream", len(appBuilderStream)+1),
		)

		It("yields identical frames through a one-byte reader", func() {
			s := sse.NewSplitter(iotest.OneByteReader(strings.NewReader(appBuilderStream)), sse.WithChunkSize(4096))

			frames, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal(expected))
		})

		It("yields identical frames through a half reader", func() {
			s := sse.NewSplitter(iotest.HalfReader(strings.NewReader(appBuilderStream)), sse.WithChunkSize(300))

			frames, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal(expected))
		})
	})
})
