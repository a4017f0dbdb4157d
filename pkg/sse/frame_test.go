package sse_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/qfagent/pkg/sse"
)

var _ = Describe("ParseFrame", func() {
	It("strips the data marker", func() {
		ev := sse.ParseFrame(`data: {"answer":"hi"}`)
		Expect(ev.Data).To(Equal(`{"answer":"hi"}`))
		Expect(ev.Type).To(BeEmpty())
		Expect(ev.ID).To(BeEmpty())
	})

	It("handles data field with no space after colon", func() {
		ev := sse.ParseFrame("data:no-space")
		Expect(ev.Data).To(Equal("no-space"))
	})

	It("leaves a second space in place", func() {
		ev := sse.ParseFrame("data:  two")
		Expect(ev.Data).To(Equal(" two"))
	})

	It("joins multiple data lines with newline", func() {
		ev := sse.ParseFrame("data: line one\ndata: line two\r\ndata: line three")
		Expect(ev.Data).To(Equal("line one\nline two\nline three"))
	})

	It("parses event type and ID", func() {
		ev := sse.ParseFrame("event: message\nid: 42\ndata: hello")
		Expect(ev.Type).To(Equal("message"))
		Expect(ev.ID).To(Equal("42"))
		Expect(ev.Data).To(Equal("hello"))
	})

	It("treats a frame without field lines as a bare payload", func() {
		ev := sse.ParseFrame(`{"answer":"bare"}`)
		Expect(ev.Data).To(Equal(`{"answer":"bare"}`))
	})

	It("does not mistake a JSON key for a field name", func() {
		ev := sse.ParseFrame(`{"data":"x"}`)
		Expect(ev.Data).To(Equal(`{"data":"x"}`))
	})

	It("ignores unknown fields", func() {
		ev := sse.ParseFrame("retry: 3000\nfoo: bar\ndata: hello")
		Expect(ev.Data).To(Equal("hello"))
	})

	It("collects comments and flags comment-only frames as keep-alives", func() {
		ev := sse.ParseFrame(": ping")
		Expect(ev.Comments).To(Equal([]string{"ping"}))
		Expect(ev.Data).To(BeEmpty())
		Expect(ev.KeepAlive()).To(BeTrue())
	})

	It("does not flag frames with data as keep-alives", func() {
		ev := sse.ParseFrame(": note\ndata: hello")
		Expect(ev.Data).To(Equal("hello"))
		Expect(ev.KeepAlive()).To(BeFalse())
	})

	It("returns empty data for an event-only frame", func() {
		ev := sse.ParseFrame("event: ping")
		Expect(ev.Type).To(Equal("ping"))
		Expect(ev.Data).To(BeEmpty())
	})
})
