package config

import (
	"errors"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ErrNoConfigFile is returned by Watch when v was not loaded from a file.
var ErrNoConfigFile = errors.New("no config file to watch")

// Watch calls onChange with the re-read Config every time the file backing v
// is written. A change that fails to parse or validate is logged and skipped;
// the previous Config stays in effect.
func Watch(v *viper.Viper, logger *zap.Logger, onChange func(*Config)) error {
	if v.ConfigFileUsed() == "" {
		return ErrNoConfigFile
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := FromViper(v)
		if err != nil {
			logger.Warn("ignoring invalid config change",
				zap.String("file", e.Name),
				zap.Error(err),
			)
			return
		}

		logger.Debug("config reloaded", zap.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()

	return nil
}
