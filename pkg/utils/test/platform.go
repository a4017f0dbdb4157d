// Package testutils holds fakes shared by qfagent tests.
package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

const (
	ConversationPath = "/v2/app/conversation"
	UploadPath       = "/v2/app/conversation/file/upload"
	RunsPath         = "/v2/app/conversation/runs"

	// FakeConversationID and FakeFileID are returned by the default handlers.
	FakeConversationID = "0e180ce4-8947-457c-90ff-fb8dfeaba0ff"
	FakeFileID         = "cdd1e194-cfb7-4173-a154-795fae8535d9"
)

// RecordedRequest is what FakePlatform saw of one request.
type RecordedRequest struct {
	Path   string
	Header http.Header
	Body   []byte

	// JSON is set for application/json bodies.
	JSON map[string]any

	// Fields, FieldOrder and the File values are set for multipart bodies.
	Fields      map[string]string
	FieldOrder  []string
	FileName    string
	FileContent []byte
}

// FakePlatform is an httptest server that mimics the agent platform. Every
// request is recorded before its handler runs.
type FakePlatform struct {
	*httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest
	handlers map[string]http.HandlerFunc
}

// NewFakePlatform starts a fake whose handlers answer every endpoint
// successfully. The runs endpoint streams "Hello" and " world" when asked to
// stream.
func NewFakePlatform() *FakePlatform {
	f := &FakePlatform{
		handlers: map[string]http.HandlerFunc{
			ConversationPath: JSONHandler(http.StatusOK, map[string]any{
				"request_id":      "req-conversation",
				"conversation_id": FakeConversationID,
			}),
			UploadPath: JSONHandler(http.StatusOK, map[string]any{
				"request_id":      "req-upload",
				"id":              FakeFileID,
				"conversation_id": FakeConversationID,
			}),
			RunsPath: defaultRunsHandler,
		},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

// Handle replaces the handler for path.
func (f *FakePlatform) Handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

// Requests returns a copy of every request seen so far.
func (f *FakePlatform) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// LastRequest returns the most recent request, or the zero value.
func (f *FakePlatform) LastRequest() RecordedRequest {
	reqs := f.Requests()
	if len(reqs) == 0 {
		return RecordedRequest{}
	}
	return reqs[len(reqs)-1]
}

func (f *FakePlatform) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	rec := RecordedRequest{
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   raw,
	}

	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/json":
		_ = json.Unmarshal(raw, &rec.JSON)
	case strings.HasPrefix(mediaType, "multipart/"):
		recordMultipart(&rec, raw, params["boundary"])
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	h, ok := f.handlers[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	r.Body = io.NopCloser(bytes.NewReader(raw))
	h(w, r)
}

// JSONHandler replies with status and payload encoded as JSON.
func JSONHandler(status int, payload any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// RawHandler replies with status and body verbatim.
func RawHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// StreamHandler writes chunks as separate flushed writes of an event stream,
// so frames and delimiters can be split across network reads at will.
func StreamHandler(chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)

		flusher, _ := w.(http.Flusher)
		for _, chunk := range chunks {
			_, _ = io.WriteString(w, chunk)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func defaultRunsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversation_id"`
		Stream         bool   `json:"stream"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	if !req.Stream {
		JSONHandler(http.StatusOK, map[string]any{
			"request_id":      "req-run",
			"answer":          "Hello world",
			"conversation_id": req.ConversationID,
			"message_id":      "msg-1",
			"is_completion":   true,
		})(w, r)
		return
	}

	StreamHandler(
		Frame(req.ConversationID, "", false),
		Frame(req.ConversationID, "Hello", false),
		Frame(req.ConversationID, " world", false),
		Frame(req.ConversationID, "", true),
	)(w, r)
}

// Frame renders one complete stream frame, delimiter included.
func Frame(conversationID, answer string, completion bool) string {
	payload, _ := json.Marshal(map[string]any{
		"request_id":      "req-run",
		"answer":          answer,
		"conversation_id": conversationID,
		"message_id":      "msg-1",
		"is_completion":   completion,
	})
	return "data: " + string(payload) + "\n\n"
}
