package source

import (
	"context"
	"sync"

	"github.com/lange-studios/gobvh/pkg/utils"
)

// Aggregator fans multiple Sources into a single build-request channel,
// starting the sources one after another and forwarding each one's events
// from its own goroutine to one output channel the scheduler reads from.
type Aggregator struct {
	sources    []Source
	sourceMap  map[string]Source
	outputChan chan *Event
	logger     utils.Logger

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
	stopCh  chan struct{}
}

// NewAggregator creates an Aggregator over sources, buffering up to
// bufferSize unconsumed events.
func NewAggregator(sources []Source, bufferSize int, logger utils.Logger) *Aggregator {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	sourceMap := make(map[string]Source, len(sources))
	for _, src := range sources {
		sourceMap[sourceKey(src.Type(), src.Name())] = src
	}

	return &Aggregator{
		sources:    sources,
		sourceMap:  sourceMap,
		outputChan: make(chan *Event, bufferSize),
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

func sourceKey(t Type, name string) string {
	return string(t) + ":" + name
}

// Start starts every source and begins forwarding its events.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = true
	a.mu.Unlock()

	a.logger.Info("starting aggregator with %d sources", len(a.sources))

	for _, src := range a.sources {
		if err := src.Start(ctx); err != nil {
			a.logger.Error("failed to start source %s/%s: %v", src.Type(), src.Name(), err)
			a.Stop()
			return err
		}
		a.wg.Add(1)
		go a.forward(ctx, src)
	}
	return nil
}

func (a *Aggregator) forward(ctx context.Context, src Source) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		case event, ok := <-src.Requests():
			if !ok {
				a.logger.Info("source %s/%s channel closed", src.Type(), src.Name())
				return
			}
			event.SourceType = src.Type()
			event.SourceName = src.Name()
			select {
			case a.outputChan <- event:
			case <-ctx.Done():
				return
			case <-a.stopCh:
				return
			}
		}
	}
}

// Stop stops every source and the aggregator.
func (a *Aggregator) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	close(a.stopCh)
	for _, src := range a.sources {
		if err := src.Stop(); err != nil {
			a.logger.Error("failed to stop source %s/%s: %v", src.Type(), src.Name(), err)
		}
	}
	a.wg.Wait()
	close(a.outputChan)
	return nil
}

// Requests returns the aggregated event channel.
func (a *Aggregator) Requests() <-chan *Event {
	return a.outputChan
}

// GetSource retrieves a specific source by type and name.
func (a *Aggregator) GetSource(t Type, name string) Source {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sourceMap[sourceKey(t, name)]
}

func (a *Aggregator) sourceForEvent(event *Event) Source {
	return a.GetSource(event.SourceType, event.SourceName)
}

// Ack delegates acknowledgement to the event's originating source.
func (a *Aggregator) Ack(ctx context.Context, event *Event) error {
	src := a.sourceForEvent(event)
	if src == nil {
		return nil
	}
	return src.Ack(ctx, event)
}

// Nack delegates rejection to the event's originating source.
func (a *Aggregator) Nack(ctx context.Context, event *Event, reason string) error {
	src := a.sourceForEvent(event)
	if src == nil {
		return nil
	}
	return src.Nack(ctx, event, reason)
}

// HealthCheck checks every source.
func (a *Aggregator) HealthCheck(ctx context.Context) error {
	for _, src := range a.sources {
		if err := src.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Sources returns every source the Aggregator holds.
func (a *Aggregator) Sources() []Source {
	return a.sources
}

// SourceCount returns the number of sources.
func (a *Aggregator) SourceCount() int {
	return len(a.sources)
}
