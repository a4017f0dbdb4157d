package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/papercomputeco/qfagent/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable viper consults.
const EnvPrefix = "QFAGENT"

const envFile = ".env"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads config.toml (if found via
// dotdir resolution), loads <dir>/.env into the process environment and binds
// environment variables with the QFAGENT_ prefix.
//
// Config precedence (highest to lowest):
//  1. Environment variables (QFAGENT_API_BASE_URL, QFAGENT_STREAM_CHUNK_SIZE, etc.)
//  2. Variables from .env that are not already set in the environment
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	v.AddConfigPath(target)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. .env never overrides variables that are already set.
	if err := godotenv.Load(filepath.Join(target, envFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	// 4. Environment variables: QFAGENT_API_BASE_URL, QFAGENT_LOG_DEBUG, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes the effective Config from v and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version: v.GetInt("version"),
		API: APIConfig{
			BaseURL: v.GetString("api.base_url"),
			Timeout: v.GetString("api.timeout"),
		},
		Stream: StreamConfig{
			ChunkSize:        v.GetInt("stream.chunk_size"),
			QueryLimit:       v.GetInt("stream.query_limit"),
			StopOnCompletion: v.GetBool("stream.stop_on_completion"),
		},
		Log: LogConfig{
			Debug: v.GetBool("log.debug"),
			JSON:  v.GetBool("log.json"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Topic:    v.GetString("eventstream.topic"),
		},
	}

	// A list from the environment arrives as one comma separated string.
	for _, b := range v.GetStringSlice("eventstream.brokers") {
		cfg.EventStream.Brokers = append(cfg.EventStream.Brokers, splitList(b)...)
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// API
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)

	// Stream
	v.SetDefault("stream.chunk_size", d.Stream.ChunkSize)
	v.SetDefault("stream.query_limit", d.Stream.QueryLimit)
	v.SetDefault("stream.stop_on_completion", d.Stream.StopOnCompletion)

	// Log
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.json", d.Log.JSON)

	// Event stream
	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)
}
