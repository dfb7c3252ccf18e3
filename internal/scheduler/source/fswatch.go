package source

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/lange-studios/gobvh/pkg/utils"
)

// TypeFSWatch is the source type constant for directory-watch sources.
const TypeFSWatch Type = "fswatch"

func init() {
	Register(TypeFSWatch, NewFSWatchSource)
}

// FSWatchOptions configures a directory watch.
type FSWatchOptions struct {
	// Dir is the directory watched for new scene files.
	Dir string
	// Format names the scene.Loader a file in Dir should be parsed with.
	Format string
}

// FSWatchSource emits a BuildRequest each time a file is created in a
// watched directory.
type FSWatchSource struct {
	name    string
	options FSWatchOptions
	logger  utils.Logger

	watcher  *fsnotify.Watcher
	reqChan  chan *Event
	stopCh   chan struct{}
	mu       sync.RWMutex
	running  bool
}

// NewFSWatchSource creates an FSWatchSource from cfg.
func NewFSWatchSource(cfg *Config) (Source, error) {
	opts := FSWatchOptions{
		Dir:    cfg.GetString("dir", "."),
		Format: cfg.GetString("format", "json"),
	}
	return &FSWatchSource{
		name:    cfg.Name,
		options: opts,
		logger:  utils.NewDefaultLogger(utils.LevelInfo, nil),
		reqChan: make(chan *Event, 32),
		stopCh:  make(chan struct{}),
	}, nil
}

// SetLogger overrides the source's logger.
func (s *FSWatchSource) SetLogger(logger utils.Logger) {
	s.logger = logger
}

func (s *FSWatchSource) Type() Type   { return TypeFSWatch }
func (s *FSWatchSource) Name() string { return s.name }

// Start begins watching options.Dir for newly created files.
func (s *FSWatchSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := watcher.Add(s.options.Dir); err != nil {
		watcher.Close()
		s.mu.Unlock()
		return err
	}
	s.watcher = watcher
	s.running = true
	s.mu.Unlock()

	s.logger.Info("fswatch source %s watching %s", s.name, s.options.Dir)
	go s.watchLoop(ctx)
	return nil
}

// Stop stops watching and releases the fsnotify handle.
func (s *FSWatchSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	watcher := s.watcher
	s.mu.Unlock()

	close(s.stopCh)
	if watcher != nil {
		return watcher.Close()
	}
	return nil
}

// Requests returns the channel new-file events are pushed to.
func (s *FSWatchSource) Requests() <-chan *Event {
	return s.reqChan
}

// Ack is a no-op: a processed scene file is left in place for the caller
// to clean up or archive.
func (s *FSWatchSource) Ack(ctx context.Context, event *Event) error { return nil }

// Nack is a no-op for the same reason Ack is.
func (s *FSWatchSource) Nack(ctx context.Context, event *Event, reason string) error { return nil }

// HealthCheck reports whether the watch is still active.
func (s *FSWatchSource) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return errNotRunning(s.name)
	}
	return nil
}

func (s *FSWatchSource) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			req := BuildRequest{ScenePath: filepath.Clean(ev.Name), SceneFormat: s.options.Format}
			event := NewEvent(req, TypeFSWatch, s.name)
			select {
			case s.reqChan <- event:
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			default:
				s.logger.Warn("fswatch source %s request channel full, dropping %s", s.name, ev.Name)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("fswatch source %s watch error: %v", s.name, err)
		}
	}
}
