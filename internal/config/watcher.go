package config

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ConfigWatcher watches a config file and publishes validated reloads.
// A running worker cannot be reconfigured, so consumers typically only act on
// the ambient settings (log level) of a reloaded config.
type ConfigWatcher struct {
	path     string
	onChange chan *Config
	onError  chan error
	debounce time.Duration
	logger   *zap.SugaredLogger

	mu   sync.Mutex
	last *Config
}

// NewConfigWatcher creates a new config file watcher. initial is the config
// currently in effect and may be nil.
func NewConfigWatcher(path string, initial *Config, log *zap.SugaredLogger) *ConfigWatcher {
	return &ConfigWatcher{
		path:     path,
		onChange: make(chan *Config, 1),
		onError:  make(chan error, 1),
		debounce: 100 * time.Millisecond,
		logger:   log.Named("ConfigWatcher"),
		last:     initial,
	}
}

// Changes returns channel that receives new configs on file changes.
func (w *ConfigWatcher) Changes() <-chan *Config {
	return w.onChange
}

// Errors returns channel that receives errors during reload.
func (w *ConfigWatcher) Errors() <-chan error {
	return w.onError
}

// Start begins watching the config file. Editors often replace files instead
// of writing them in place, so the parent directory is watched and events are
// filtered by name.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", w.path, err)
	}

	w.logger.Debugf("started watching config file: path=%s", w.path)
	go w.watchLoop(ctx, watcher)
	return nil
}

func (w *ConfigWatcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	target := filepath.Clean(w.path)
	var debounceTimer *time.Timer
	var debounceChan <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			w.logger.Debug("config watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			w.logger.Debugf("config file change detected: op=%s", event.Op)

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.debounce)
			debounceChan = debounceTimer.C

		case <-debounceChan:
			debounceChan = nil
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("fsnotify error: %v", err)
			w.publishError(err)
		}
	}
}

// reload loads and validates the file, publishing it only when it differs
// from the last accepted config.
func (w *ConfigWatcher) reload() {
	cfg, err := Load(w.path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		w.logger.Errorf("rejected config reload: path=%s, error=%v", w.path, err)
		w.publishError(err)
		return
	}

	w.mu.Lock()
	unchanged := w.last != nil && reflect.DeepEqual(*w.last, *cfg)
	if !unchanged {
		w.last = cfg
	}
	w.mu.Unlock()

	if unchanged {
		w.logger.Debug("config file touched without changes")
		return
	}

	w.logger.Infof("config reloaded: path=%s, loglevel=%s", w.path, cfg.LogLevel)

	select {
	case w.onChange <- cfg:
	default:
		w.logger.Warn("config change channel full, dropping update")
	}
}

func (w *ConfigWatcher) publishError(err error) {
	select {
	case w.onError <- err:
	default:
	}
}

// LastConfig returns the last successfully loaded config.
func (w *ConfigWatcher) LastConfig() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
