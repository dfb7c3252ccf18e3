// Package scheduler is a bounded worker pool that drains build requests
// from one or more scheduler/source.Source instances and runs a full
// build pipeline for each.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/lange-studios/gobvh/internal/scheduler/source"
	"github.com/lange-studios/gobvh/pkg/config"
	"github.com/lange-studios/gobvh/pkg/parallel"
	"github.com/lange-studios/gobvh/pkg/utils"
)

// BuildFunc runs a full build for req, returning the first unrecoverable
// error. The scheduler does not interpret the result further; it Acks on
// nil and Nacks otherwise.
type BuildFunc func(ctx context.Context, req source.BuildRequest) error

// Config holds scheduler configuration.
type Config struct {
	WorkerCount   int
	PrioritySlots int
	QueueSize     int
}

// DefaultConfig returns conservative defaults sized off
// parallel.DefaultPoolConfig's worker count.
func DefaultConfig() Config {
	return Config{
		WorkerCount:   parallel.DefaultPoolConfig().MaxWorkers,
		PrioritySlots: 1,
		QueueSize:     20,
	}
}

// FromConfig adapts a loaded config.SchedulerConfig.
func FromConfig(c config.SchedulerConfig) Config {
	cfg := Config{
		WorkerCount:   c.WorkerCount,
		PrioritySlots: c.PrioritySlots,
		QueueSize:     c.TaskBatchSize * 2,
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultConfig().WorkerCount
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return cfg
}

// Scheduler drains an Aggregator's events into a bounded pool of build
// workers.
type Scheduler struct {
	config     Config
	build      BuildFunc
	logger     utils.Logger
	aggregator *source.Aggregator

	workerPool chan struct{}
	queue      chan *source.Event
	wg         sync.WaitGroup

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// New creates a Scheduler over aggregator, invoking build for every event
// it produces.
func New(cfg Config, aggregator *source.Aggregator, build BuildFunc, logger utils.Logger) *Scheduler {
	if cfg.WorkerCount <= 0 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}
	return &Scheduler{
		config:     cfg,
		aggregator: aggregator,
		build:      build,
		logger:     logger,
		workerPool: make(chan struct{}, cfg.WorkerCount),
		queue:      make(chan *source.Event, cfg.QueueSize),
		stopCh:     make(chan struct{}),
	}
}

// Start starts the aggregator and the dispatch loops.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("starting scheduler with %d workers", s.config.WorkerCount)

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	for i := 0; i < s.config.WorkerCount; i++ {
		s.workerPool <- struct{}{}
	}

	if err := s.aggregator.Start(ctx); err != nil {
		return err
	}

	go s.dispatchLoop(ctx)
	go s.processLoop(ctx)
	return nil
}

// Stop stops dispatch and waits for in-flight builds to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// shouldAccept applies the priority-admission policy: requests with
// Priority > 0 may use any worker slot, others are limited to the slots
// left over once PrioritySlots are reserved for priority work.
func (s *Scheduler) shouldAccept(req source.BuildRequest) bool {
	activeWorkers := s.config.WorkerCount - len(s.workerPool)
	reservedSlots := s.config.WorkerCount - s.config.PrioritySlots
	if req.Priority > 0 {
		return activeWorkers < s.config.WorkerCount
	}
	return activeWorkers < reservedSlots
}

func (s *Scheduler) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case event, ok := <-s.aggregator.Requests():
			if !ok {
				return
			}
			if !s.shouldAccept(event.Request) {
				s.logger.Debug("deferring request %s, no free slot for its priority", event.Request.ScenePath)
				continue
			}
			select {
			case s.queue <- event:
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			default:
				s.logger.Warn("build queue full, nacking %s", event.Request.ScenePath)
				if err := s.aggregator.Nack(ctx, event, "build queue full"); err != nil {
					s.logger.Error("failed to nack request: %v", err)
				}
			}
		}
	}
}

func (s *Scheduler) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case event := <-s.queue:
			select {
			case <-s.workerPool:
				s.wg.Add(1)
				go s.processRequest(ctx, event)
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			}
		}
	}
}

func (s *Scheduler) processRequest(ctx context.Context, event *source.Event) {
	defer func() {
		s.workerPool <- struct{}{}
		s.wg.Done()
	}()

	s.logger.Info("building %s (source %s/%s)", event.Request.ScenePath, event.SourceType, event.SourceName)
	start := time.Now()
	err := s.build(ctx, event.Request)
	elapsed := time.Since(start)

	if err != nil {
		s.logger.Error("build of %s failed after %v: %v", event.Request.ScenePath, elapsed, err)
		if nackErr := s.aggregator.Nack(ctx, event, err.Error()); nackErr != nil {
			s.logger.Error("failed to nack %s: %v", event.Request.ScenePath, nackErr)
		}
		return
	}

	s.logger.Info("build of %s completed in %v", event.Request.ScenePath, elapsed)
	if ackErr := s.aggregator.Ack(ctx, event); ackErr != nil {
		s.logger.Error("failed to ack %s: %v", event.Request.ScenePath, ackErr)
	}
}

// Stats reports current scheduler occupancy.
type Stats struct {
	ActiveWorkers int
	TotalWorkers  int
	QueuedBuilds  int
	Running       bool
}

// Stats returns a snapshot of scheduler occupancy.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	return Stats{
		ActiveWorkers: s.config.WorkerCount - len(s.workerPool),
		TotalWorkers:  s.config.WorkerCount,
		QueuedBuilds:  len(s.queue),
		Running:       running,
	}
}
