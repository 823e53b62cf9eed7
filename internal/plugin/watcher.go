package plugin

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceWindow = 500 * time.Millisecond

// Watcher reloads the registry when extension files change on disk.
// Events for the same file within the debounce window collapse into a
// single reload, so editors that write in several steps trigger one.
type Watcher struct {
	logger   *slog.Logger
	registry *Registry
	dir      string

	fsw  *fsnotify.Watcher
	stop chan struct{}
	done chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewWatcher(log *slog.Logger, reg *Registry, dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		logger:   log.With(slog.String("service", "plugin-watcher")),
		registry: reg,
		dir:      dir,
		fsw:      fsw,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}, nil
}

func (w *Watcher) Start() {
	go w.loop()
	w.logger.Info("watching plugin directory", slog.String("dir", w.dir))
}

func (w *Watcher) Stop() {
	close(w.stop)
	w.fsw.Close()
	<-w.done

	w.mu.Lock()
	for _, t := range w.pending {
		t.Stop()
	}
	w.pending = map[string]*time.Timer{}
	w.mu.Unlock()
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".go") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, found := w.pending[name]; found {
		t.Reset(debounceWindow)
		return
	}
	w.pending[name] = time.AfterFunc(debounceWindow, func() {
		w.mu.Lock()
		delete(w.pending, name)
		w.mu.Unlock()

		w.logger.Info("plugin file changed", slog.String("file", name))
		if err := w.registry.Reload(); err != nil {
			w.logger.Error("reload after change failed", slog.Any("error", err))
		}
	})
}
