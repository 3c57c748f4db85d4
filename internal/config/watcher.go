package config

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/pkg/json"
)

// ThresholdWatcher reloads scoring thresholds when the configured file
// changes, so cut-offs can be tuned without a restart.
type ThresholdWatcher struct {
	log      *zap.Logger
	path     string
	onChange func(Thresholds)
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewThresholdWatcher creates a watcher for the given thresholds file.
// onChange is invoked with the parsed thresholds after every change.
func NewThresholdWatcher(log *zap.Logger, path string, onChange func(Thresholds)) (*ThresholdWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ThresholdWatcher{
		log:      log,
		path:     path,
		onChange: onChange,
		watcher:  watcher,
		debounce: time.Second,
	}, nil
}

// Start loads the file once, then begins watching for changes until the
// context is cancelled.
func (w *ThresholdWatcher) Start(ctx context.Context) error {
	if err := w.load(); err != nil {
		return err
	}
	if err := w.watcher.Add(w.path); err != nil {
		return err
	}
	w.log.Info("watching thresholds file", zap.String("path", w.path))

	go func() {
		defer w.watcher.Close()
		timer := time.NewTimer(0)
		<-timer.C
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					timer.Reset(w.debounce)
				}
			case <-timer.C:
				if err := w.load(); err != nil {
					w.log.Warn("failed to reload thresholds", zap.Error(err))
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Warn("thresholds watcher error", zap.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (w *ThresholdWatcher) load() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}
	t := DefaultThresholds()
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	w.log.Info("loaded scoring thresholds",
		zap.Float64("profanity", t.Profanity),
		zap.Float64("spam", t.Spam),
		zap.Float64("quality_floor", t.QualityFloor),
		zap.Float64("sentiment_floor", t.SentimentFloor),
	)
	w.onChange(t)
	return nil
}
