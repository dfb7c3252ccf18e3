package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lange-studios/gobvh/internal/scheduler/source"
	"github.com/lange-studios/gobvh/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() utils.Logger {
	return utils.NewDefaultLogger(utils.LevelDebug, io.Discard)
}

func TestNew_AppliesDefaultsWhenConfigEmpty(t *testing.T) {
	agg := source.NewAggregator(nil, 10, newTestLogger())
	s := New(Config{}, agg, func(ctx context.Context, req source.BuildRequest) error { return nil }, nil)
	require.NotNil(t, s)
	assert.Equal(t, DefaultConfig().WorkerCount, s.config.WorkerCount)
}

func TestScheduler_RunsBuildFuncForEachRequestAndAcks(t *testing.T) {
	var built int32
	build := func(ctx context.Context, req source.BuildRequest) error {
		atomic.AddInt32(&built, 1)
		return nil
	}

	src := newFakeSource("fake", "two")
	agg := source.NewAggregator([]source.Source{src}, 10, newTestLogger())
	s := New(Config{WorkerCount: 2, PrioritySlots: 1, QueueSize: 10}, agg, build, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	src.emit(source.BuildRequest{ScenePath: "scene-1.json", Priority: 1})
	src.emit(source.BuildRequest{ScenePath: "scene-2.json", Priority: 1})
	src.emit(source.BuildRequest{ScenePath: "scene-3.json", Priority: 1})

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&built) >= 3
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_NacksOnBuildError(t *testing.T) {
	buildErr := errors.New("build failed")
	build := func(ctx context.Context, req source.BuildRequest) error { return buildErr }

	src := newFakeSource("fake", "one")
	agg := source.NewAggregator([]source.Source{src}, 10, newTestLogger())
	s := New(Config{WorkerCount: 1, PrioritySlots: 1, QueueSize: 5}, agg, build, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	src.emit(source.BuildRequest{ScenePath: "bad.json"})

	require.Eventually(t, func() bool {
		return src.nackCount() >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestShouldAccept_ReservesSlotsForPriorityWork(t *testing.T) {
	agg := source.NewAggregator(nil, 10, newTestLogger())
	s := New(Config{WorkerCount: 2, PrioritySlots: 1, QueueSize: 5}, agg, nil, newTestLogger())

	// Fill the pool as Start would, then occupy one of two slots to
	// simulate one active build.
	s.workerPool <- struct{}{}
	s.workerPool <- struct{}{}
	<-s.workerPool

	assert.True(t, s.shouldAccept(source.BuildRequest{Priority: 1}))
	assert.False(t, s.shouldAccept(source.BuildRequest{Priority: 0}))
}

func TestStats_ReportsOccupancy(t *testing.T) {
	agg := source.NewAggregator(nil, 10, newTestLogger())
	s := New(Config{WorkerCount: 3, PrioritySlots: 1, QueueSize: 5}, agg, nil, newTestLogger())

	stats := s.Stats()
	assert.Equal(t, 3, stats.TotalWorkers)
	assert.False(t, stats.Running)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	stats = s.Stats()
	assert.Equal(t, 0, stats.ActiveWorkers)
	assert.True(t, stats.Running)
}

// fakeSource is a minimal source.Source used to exercise Scheduler without
// a real fswatch/http/database backend.
type fakeSource struct {
	typ, name string
	reqChan   chan *source.Event
	nacks     int32
}

func newFakeSource(typ, name string) *fakeSource {
	return &fakeSource{typ: typ, name: name, reqChan: make(chan *source.Event, 10)}
}

func (f *fakeSource) Type() source.Type { return source.Type(f.typ) }
func (f *fakeSource) Name() string      { return f.name }
func (f *fakeSource) Start(ctx context.Context) error { return nil }
func (f *fakeSource) Stop() error                     { return nil }
func (f *fakeSource) Requests() <-chan *source.Event  { return f.reqChan }
func (f *fakeSource) Ack(ctx context.Context, event *source.Event) error { return nil }
func (f *fakeSource) Nack(ctx context.Context, event *source.Event, reason string) error {
	atomic.AddInt32(&f.nacks, 1)
	return nil
}
func (f *fakeSource) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeSource) emit(req source.BuildRequest) {
	f.reqChan <- source.NewEvent(req, f.Type(), f.name)
}
func (f *fakeSource) nackCount() int32 { return atomic.LoadInt32(&f.nacks) }
