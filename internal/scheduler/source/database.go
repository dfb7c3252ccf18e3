package source

import (
	"context"
	"sync"
	"time"

	"github.com/lange-studios/gobvh/pkg/utils"
)

// TypeDatabase is the source type constant for the database-poll source.
const TypeDatabase Type = "database"

func init() {
	Register(TypeDatabase, NewDatabaseSource)
}

// RequestStore is the persistence side of a database-poll source: a
// build_requests table a scheduler instance claims rows from. Implemented
// by internal/repository against GORM; kept here as an interface so
// DatabaseSource has no storage-layer dependency of its own.
type RequestStore interface {
	// PendingRequests fetches up to limit unclaimed requests.
	PendingRequests(ctx context.Context, limit int) ([]StoredRequest, error)
	// Claim attempts to lock a request for this instance, returning false
	// if another instance already claimed it first.
	Claim(ctx context.Context, id string) (bool, error)
	// MarkDone records that a claimed request finished successfully.
	MarkDone(ctx context.Context, id string) error
	// MarkFailed records that a claimed request failed, with reason.
	MarkFailed(ctx context.Context, id string, reason string) error
}

// StoredRequest is one row from the build_requests table.
type StoredRequest struct {
	ID       string
	Request  BuildRequest
}

// DatabaseOptions configures poll cadence and batch size.
type DatabaseOptions struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultDatabaseOptions returns the default poll cadence.
func DefaultDatabaseOptions() *DatabaseOptions {
	return &DatabaseOptions{PollInterval: 2 * time.Second, BatchSize: 10}
}

// DatabaseSource implements Source by polling a RequestStore.
type DatabaseSource struct {
	name    string
	options *DatabaseOptions
	logger  utils.Logger

	store RequestStore

	// idByPath maps an Event's scene path back to its store row ID, so
	// Ack/Nack (which only see the Event) can resolve which row to update.
	// ScenePath is unique per pending row in practice (one file, one
	// request) which keeps this adequate without a bigger Event type.
	idByPath map[string]string

	reqChan chan *Event
	stopCh  chan struct{}
	mu      sync.RWMutex
	running bool
}

// NewDatabaseSource creates a DatabaseSource from cfg. The returned source
// has no RequestStore attached yet; call SetStore before Start.
func NewDatabaseSource(cfg *Config) (Source, error) {
	opts := &DatabaseOptions{
		PollInterval: cfg.GetDuration("poll_interval", 2*time.Second),
		BatchSize:    cfg.GetInt("batch_size", 10),
	}
	return &DatabaseSource{
		name:     cfg.Name,
		options:  opts,
		logger:   utils.NewDefaultLogger(utils.LevelInfo, nil),
		idByPath: make(map[string]string),
		reqChan:  make(chan *Event, opts.BatchSize*2),
		stopCh:   make(chan struct{}),
	}, nil
}

// SetStore attaches the RequestStore this instance polls. Must be called
// before Start.
func (s *DatabaseSource) SetStore(store RequestStore) {
	s.store = store
}

// SetLogger overrides the source's logger.
func (s *DatabaseSource) SetLogger(logger utils.Logger) {
	s.logger = logger
}

func (s *DatabaseSource) Type() Type   { return TypeDatabase }
func (s *DatabaseSource) Name() string { return s.name }

// Start begins the poll loop. A nil store makes Start a no-op so a
// scheduler can enable this source type without wiring a database.
func (s *DatabaseSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if s.store == nil {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("database source %s polling every %v, batch %d", s.name, s.options.PollInterval, s.options.BatchSize)
	go s.pollLoop(ctx)
	return nil
}

// Stop stops the poll loop.
func (s *DatabaseSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()
	close(s.stopCh)
	return nil
}

// Requests returns the channel polled requests are emitted on.
func (s *DatabaseSource) Requests() <-chan *Event {
	return s.reqChan
}

// Ack marks the request's row done.
func (s *DatabaseSource) Ack(ctx context.Context, event *Event) error {
	id, ok := s.lookupID(event)
	if !ok || s.store == nil {
		return nil
	}
	return s.store.MarkDone(ctx, id)
}

// Nack marks the request's row failed with reason.
func (s *DatabaseSource) Nack(ctx context.Context, event *Event, reason string) error {
	id, ok := s.lookupID(event)
	if !ok || s.store == nil {
		return nil
	}
	return s.store.MarkFailed(ctx, id, reason)
}

// HealthCheck probes the store with a one-row fetch.
func (s *DatabaseSource) HealthCheck(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	_, err := s.store.PendingRequests(ctx, 1)
	return err
}

func (s *DatabaseSource) lookupID(event *Event) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.idByPath[event.Request.ScenePath]
	return id, ok
}

func (s *DatabaseSource) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.options.PollInterval)
	defer ticker.Stop()

	s.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *DatabaseSource) poll(ctx context.Context) {
	rows, err := s.store.PendingRequests(ctx, s.options.BatchSize)
	if err != nil {
		s.logger.Error("database source %s failed to fetch pending requests: %v", s.name, err)
		return
	}

	for _, row := range rows {
		// Only poll sends on reqChan, so a free slot seen here is still
		// free after Claim. Rows left unclaimed stay pending for the next
		// poll.
		if len(s.reqChan) == cap(s.reqChan) {
			s.logger.Warn("database source %s request channel full, %s will retry", s.name, row.ID)
			return
		}
		claimed, err := s.store.Claim(ctx, row.ID)
		if err != nil {
			s.logger.Error("database source %s failed to claim %s: %v", s.name, row.ID, err)
			continue
		}
		if !claimed {
			continue
		}

		s.mu.Lock()
		s.idByPath[row.Request.ScenePath] = row.ID
		s.mu.Unlock()

		event := NewEvent(row.Request, TypeDatabase, s.name)
		select {
		case s.reqChan <- event:
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
			s.logger.Warn("database source %s request channel full, dropping claimed %s", s.name, row.ID)
		}
	}
}
