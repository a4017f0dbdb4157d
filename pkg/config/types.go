package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent qfagent configuration stored as config.toml
// in the .qfagent/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	API         APIConfig         `toml:"api"`
	Stream      StreamConfig      `toml:"stream"`
	Log         LogConfig         `toml:"log"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// APIConfig holds settings for reaching the agent platform.
type APIConfig struct {
	BaseURL string `toml:"base_url,omitempty"`

	// Timeout bounds a whole request including a streamed body, in
	// time.ParseDuration syntax. "0" disables it.
	Timeout string `toml:"timeout,omitempty"`
}

// StreamConfig holds settings for the conversation run calls.
type StreamConfig struct {
	ChunkSize        int  `toml:"chunk_size,omitempty"`
	QueryLimit       int  `toml:"query_limit,omitempty"`
	StopOnCompletion bool `toml:"stop_on_completion,omitempty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Debug bool `toml:"debug,omitempty"`
	JSON  bool `toml:"json,omitempty"`
}

// EventStreamConfig selects where talk completion events are published.
type EventStreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// TimeoutDuration parses API.Timeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.API.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid api.timeout %q: %w", c.API.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid api.timeout %q: must not be negative", c.API.Timeout)
	}

	return d, nil
}

// Validate reports the first setting that cannot be used as is.
func (c *Config) Validate() error {
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if c.Stream.ChunkSize < 0 {
		return fmt.Errorf("invalid stream.chunk_size %d: must not be negative", c.Stream.ChunkSize)
	}

	switch c.EventStream.Provider {
	case "", EventStreamNone:
	case EventStreamKafka:
		if len(c.EventStream.Brokers) == 0 {
			return fmt.Errorf("eventstream.provider %q requires eventstream.brokers", EventStreamKafka)
		}
		if c.EventStream.Topic == "" {
			return fmt.Errorf("eventstream.provider %q requires eventstream.topic", EventStreamKafka)
		}
	default:
		return fmt.Errorf("unknown eventstream.provider %q (available: %s, %s)", c.EventStream.Provider, EventStreamNone, EventStreamKafka)
	}

	return nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.base_url": {
		get: func(c *Config) string { return c.API.BaseURL },
		set: func(c *Config, v string) error { c.API.BaseURL = v; return nil },
	},
	"api.timeout": {
		get: func(c *Config) string { return c.API.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for api.timeout: %w", err)
			}
			c.API.Timeout = v
			return nil
		},
	},
	"stream.chunk_size":         intKey("stream.chunk_size", func(c *Config) *int { return &c.Stream.ChunkSize }),
	"stream.query_limit":        intKey("stream.query_limit", func(c *Config) *int { return &c.Stream.QueryLimit }),
	"stream.stop_on_completion": boolKey("stream.stop_on_completion", func(c *Config) *bool { return &c.Stream.StopOnCompletion }),
	"log.debug":                 boolKey("log.debug", func(c *Config) *bool { return &c.Log.Debug }),
	"log.json":                  boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error { c.EventStream.Brokers = splitList(v); return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
}

// orderedKeys lists configKeys in TOML section order.
var orderedKeys = []string{
	"api.base_url",
	"api.timeout",
	"stream.chunk_size",
	"stream.query_limit",
	"stream.stop_on_completion",
	"log.debug",
	"log.json",
	"eventstream.provider",
	"eventstream.brokers",
	"eventstream.topic",
}

// splitList splits a comma or whitespace separated list, dropping empty items.
func splitList(v string) []string {
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
