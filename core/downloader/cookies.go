package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"ytbot/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// CookieWatcher tracks whether the cookies file passed to the downloader
// exists, and logs when it is replaced or removed.
type CookieWatcher struct {
	path    string
	present atomic.Bool
	watcher *fsnotify.Watcher
	done    chan struct{}
	log     *zap.Logger
}

// WatchCookies starts watching path. The parent directory is watched so the
// file may be created after start-up.
func WatchCookies(path string) (*CookieWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve cookies path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create cookies watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &CookieWatcher{
		path:    abs,
		watcher: watcher,
		done:    make(chan struct{}),
		log:     logger.Component("cookies"),
	}
	_, statErr := os.Stat(abs)
	w.present.Store(statErr == nil)
	if statErr != nil {
		w.log.Warn("cookies file not found; downloads needing a login will fail", zap.String("path", abs))
	}

	go w.loop()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *CookieWatcher) Path() string { return w.path }

// Present reports whether the cookies file currently exists.
func (w *CookieWatcher) Present() bool { return w.present.Load() }

// Close stops the watcher.
func (w *CookieWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *CookieWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if !w.present.Swap(true) {
					w.log.Info("cookies file available", zap.String("path", w.path))
				} else {
					w.log.Debug("cookies file updated", zap.String("path", w.path))
				}
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.present.Store(false)
				w.log.Warn("cookies file removed", zap.String("path", w.path))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("cookies watcher error", zap.Error(err))
		}
	}
}
