// Package start assembles a ready to use agent client from the .qfagent/
// directory: settings, credentials, logging and event publishing.
package start

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/qfagent/pkg/agent"
	"github.com/papercomputeco/qfagent/pkg/config"
	"github.com/papercomputeco/qfagent/pkg/credentials"
	"github.com/papercomputeco/qfagent/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/qfagent/pkg/eventstream/utils"
	"github.com/papercomputeco/qfagent/pkg/logger"
	"github.com/papercomputeco/qfagent/pkg/worker"
)

// Options selects what Open loads.
type Options struct {
	// ConfigDir overrides .qfagent/ directory resolution.
	ConfigDir string

	// App names the stored credential to use. Empty selects the default app.
	App string

	// Logger replaces the logger built from the [log] settings.
	Logger *zap.Logger

	// ClientOptions are applied after the loaded settings.
	ClientOptions []agent.Option
}

// Session owns a Client and everything it needs in the background. Close it
// when done so queued talk events are flushed.
type Session struct {
	Config *config.Config
	Client *agent.Client
	Logger *zap.Logger

	viper     *viper.Viper
	publisher eventstream.Publisher
	pool      *worker.Pool
}

// Open resolves the .qfagent/ directory and builds a Session from it.
func Open(opts Options) (*Session, error) {
	v, err := config.InitViper(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.New(logger.WithDebug(cfg.Log.Debug), logger.WithJSON(cfg.Log.JSON))
	}

	credsMgr, err := credentials.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("opening credentials: %w", err)
	}

	cred, err := credsMgr.Resolve(opts.App)
	if err != nil {
		return nil, err
	}

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.EventStream.Provider,
		Brokers:      cfg.EventStream.Brokers,
		Topic:        cfg.EventStream.Topic,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}

	pool, err := worker.NewPool(&worker.Config{
		Publisher: publisher,
		Logger:    log,
	})
	if err != nil {
		return nil, errors.Join(err, publisher.Close())
	}

	clientOpts := append([]agent.Option{
		agent.WithLogger(log),
		agent.WithPublisher(pool),
	}, opts.ClientOptions...)

	client, err := agent.NewFromConfig(cfg, cred, clientOpts...)
	if err != nil {
		return nil, errors.Join(err, pool.Close())
	}

	log.Debug("session opened",
		zap.String("app_id", cred.AppID),
		zap.String("base_url", cfg.API.BaseURL),
		zap.String("eventstream", cfg.EventStream.Provider),
	)

	return &Session{
		Config:    cfg,
		Client:    client,
		Logger:    log,
		viper:     v,
		publisher: publisher,
		pool:      pool,
	}, nil
}

// Watch calls onChange with the new settings every time config.toml is
// written. Settings already applied to Client are not changed.
func (s *Session) Watch(onChange func(*config.Config)) error {
	return config.Watch(s.viper, s.Logger, onChange)
}

// Close drains pending talk events, closes the publisher and flushes the
// logger.
func (s *Session) Close() error {
	err := s.pool.Close()

	if syncErr := s.Logger.Sync(); syncErr != nil && !isConsoleSyncError(syncErr) {
		err = errors.Join(err, fmt.Errorf("syncing logger: %w", syncErr))
	}

	return err
}

// isConsoleSyncError reports the error fsync returns for a terminal or pipe
// on stdout, which has nothing to flush.
func isConsoleSyncError(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}
