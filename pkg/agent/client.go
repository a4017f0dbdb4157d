// Package agent is a client for conversational agent apps hosted on the
// Qianfan AppBuilder platform: it opens conversations, uploads files and runs
// queries either one-shot or as a server-sent event stream.
package agent

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/qfagent/pkg/config"
	"github.com/papercomputeco/qfagent/pkg/credentials"
	"github.com/papercomputeco/qfagent/pkg/sse"
	"github.com/papercomputeco/qfagent/pkg/utils"
	"github.com/papercomputeco/qfagent/pkg/worker"
)

const (
	// DefaultBaseURL is the public AppBuilder endpoint.
	DefaultBaseURL = "https://qianfan.baidubce.com"

	// DefaultQueryLimit is the longest query, in runes, the platform accepts.
	DefaultQueryLimit = 2000

	// DefaultTimeout bounds a whole request including a streamed body.
	DefaultTimeout = 5 * time.Minute

	conversationPath = "/v2/app/conversation"
	uploadPath       = "/v2/app/conversation/file/upload"
	runsPath         = "/v2/app/conversation/runs"
)

// Client talks to one agent app. It is safe for concurrent use; every call
// owns its own stream state.
type Client struct {
	appID    string
	appToken string

	baseURL    string
	httpClient *http.Client
	timeout    *time.Duration
	userAgent  string
	logger     *zap.Logger

	chunkSize        int
	queryLimit       int
	stopOnCompletion bool

	publisher worker.Enqueuer
}

// Option configures a Client created with New.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the overall request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = &d
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithChunkSize sets how many bytes are read from a streamed body at a time.
func WithChunkSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithQueryLimit sets the maximum query length in runes. Zero keeps the
// default; a negative value disables truncation.
func WithQueryLimit(n int) Option {
	return func(c *Client) {
		if n != 0 {
			c.queryLimit = n
		}
	}
}

// WithStopOnCompletion makes TalkStream return as soon as a frame with
// is_completion set arrives instead of reading to the end of the body.
func WithStopOnCompletion(stop bool) Option {
	return func(c *Client) {
		c.stopOnCompletion = stop
	}
}

// WithPublisher enqueues a talk completion event after every Talk and
// TalkStream call.
func WithPublisher(p worker.Enqueuer) Option {
	return func(c *Client) {
		c.publisher = p
	}
}

// New creates a Client for the app identified by appID, authenticating with
// appToken.
func New(appID, appToken string, opts ...Option) (*Client, error) {
	if appID == "" {
		return nil, &Error{Kind: KindInvalidArgument, Op: "new client", Err: errors.New("app id must not be empty")}
	}
	if appToken == "" {
		return nil, &Error{Kind: KindInvalidArgument, Op: "new client", Err: errors.New("app token must not be empty")}
	}

	c := &Client{
		appID:      appID,
		appToken:   appToken,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  utils.UserAgent(),
		logger:     zap.NewNop(),
		chunkSize:  sse.DefaultChunkSize,
		queryLimit: DefaultQueryLimit,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.timeout != nil {
		hc := *c.httpClient
		hc.Timeout = *c.timeout
		c.httpClient = &hc
	}

	c.baseURL = strings.TrimRight(c.baseURL, "/")
	c.logger = c.logger.With(zap.String("app_id", c.appID))

	return c, nil
}

// NewFromConfig creates a Client from loaded settings and a resolved
// credential. opts are applied after the settings and win over them.
func NewFromConfig(cfg *config.Config, cred credentials.AppCredential, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, &Error{Kind: KindInvalidArgument, Op: "new client", Err: err}
	}

	base := []Option{
		WithBaseURL(cfg.API.BaseURL),
		WithChunkSize(cfg.Stream.ChunkSize),
		WithQueryLimit(cfg.Stream.QueryLimit),
		WithStopOnCompletion(cfg.Stream.StopOnCompletion),
	}
	if cfg.API.Timeout != "" {
		base = append(base, WithTimeout(timeout))
	}

	return New(cred.AppID, cred.AppToken, append(base, opts...)...)
}

// AppID returns the app this client talks to.
func (c *Client) AppID() string {
	return c.appID
}
