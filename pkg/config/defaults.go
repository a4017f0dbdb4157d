package config

const (
	// EventStreamNone disables event publishing.
	EventStreamNone = "none"

	// EventStreamKafka publishes talk events to a Kafka topic.
	EventStreamKafka = "kafka"

	defaultBaseURL    = "https://qianfan.baidubce.com"
	defaultTimeout    = "5m"
	defaultChunkSize  = 128
	defaultQueryLimit = 2000
	defaultTopic      = "qfagent.talks"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			BaseURL: defaultBaseURL,
			Timeout: defaultTimeout,
		},
		Stream: StreamConfig{
			ChunkSize:  defaultChunkSize,
			QueryLimit: defaultQueryLimit,
		},
		EventStream: EventStreamConfig{
			Provider: EventStreamNone,
			Topic:    defaultTopic,
		},
	}
}
