package core

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FnOnConfigReload receives every successfully parsed version of the watched file.
type FnOnConfigReload func(cfg *Config)

// ConfigWatcher reloads a TOML config file whenever it is written or replaced.
type ConfigWatcher struct {
	path     string
	onReload FnOnConfigReload

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	mutex    sync.Mutex
	isClosed bool
}

func NewConfigWatcher(path string, onReload FnOnConfigReload) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors often replace the file instead of writing it in place.
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, err
	}

	cw := &ConfigWatcher{
		path:     abs,
		onReload: onReload,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	cw.wg.Add(1)
	go cw.start()
	return cw, nil
}

func (cw *ConfigWatcher) start() {
	defer cw.wg.Done()
	for {
		select {
		case e, ok := <-cw.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != cw.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				cw.reload()
			}

		case err, ok := <-cw.fsnotify.Errors:
			if !ok {
				return
			}
			LogError("config watcher: %s", err)

		case <-cw.done:
			return
		}
	}
}

func (cw *ConfigWatcher) reload() {
	cfg, err := LoadConfig(cw.path)
	if err != nil {
		// keep the last good config; a half-written file is common during saves
		LogWarn("config reload of %s skipped: %s", cw.path, err)
		return
	}
	LogInfo("config reloaded from %s", cw.path)
	if cw.onReload != nil {
		cw.onReload(cfg)
	}
}

func (cw *ConfigWatcher) Close() error {
	cw.mutex.Lock()
	if cw.isClosed {
		cw.mutex.Unlock()
		return errors.New("config watcher already closed")
	}
	cw.isClosed = true
	cw.mutex.Unlock()

	close(cw.done)
	cw.wg.Wait()
	return cw.fsnotify.Close()
}
