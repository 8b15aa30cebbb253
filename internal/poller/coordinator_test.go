package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"pyrometer-service/internal/model"
)

type recordingPublisher struct {
	mu       sync.Mutex
	readings []model.TemperatureReading
	errs     []error
}

func (p *recordingPublisher) OnTemperatureSample(reading model.TemperatureReading) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readings = append(p.readings, reading)
}

func (p *recordingPublisher) OnSampleError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

func (p *recordingPublisher) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.readings), len(p.errs)
}

// blockingSampler parks every sample until released
type blockingSampler struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingSampler() *blockingSampler {
	return &blockingSampler{entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (b *blockingSampler) sample(ctx context.Context) (float64, error) {
	b.entered <- struct{}{}
	<-b.release
	return 21.0, nil
}

func TestCoordinator_SamplesImmediatelyAndPeriodically(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCoordinator(5*time.Millisecond, func(ctx context.Context) (float64, error) {
		return 42.5, nil
	}, pub, zap.NewNop())

	require.NoError(t, c.Start())
	assert.Equal(t, StateRunning, c.State())

	assert.Eventually(t, func() bool {
		n, _ := pub.counts()
		return n >= 3
	}, 2*time.Second, time.Millisecond)

	c.Stop()
	assert.Equal(t, StateStopped, c.State())

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, 42.5, pub.readings[0].Celsius)
	assert.False(t, pub.readings[0].Timestamp.IsZero())
}

func TestCoordinator_FailuresDoNotStopPolling(t *testing.T) {
	pub := &recordingPublisher{}
	var calls atomic.Int64
	c := NewCoordinator(time.Millisecond, func(ctx context.Context) (float64, error) {
		if calls.Inc() <= 3 {
			return 0, errors.New("short read")
		}
		return 20.0, nil
	}, pub, zap.NewNop())

	require.NoError(t, c.Start())
	assert.Eventually(t, func() bool {
		n, _ := pub.counts()
		return n >= 2
	}, 2*time.Second, time.Millisecond)
	c.Stop()

	_, failures := pub.counts()
	assert.Equal(t, 3, failures)
	stats := c.Stats()
	assert.Equal(t, int64(3), stats.Failures)
	assert.GreaterOrEqual(t, stats.Successes, int64(2))
}

func TestCoordinator_PauseWaitsForInFlightTick(t *testing.T) {
	sampler := newBlockingSampler()
	c := NewCoordinator(time.Hour, sampler.sample, &recordingPublisher{}, zap.NewNop())
	require.NoError(t, c.Start())
	<-sampler.entered

	paused := make(chan bool, 1)
	go func() { paused <- c.Pause() }()

	select {
	case <-paused:
		t.Fatal("Pause returned while a tick was still reading")
	case <-time.After(50 * time.Millisecond):
	}

	close(sampler.release)
	select {
	case wasRunning := <-paused:
		assert.True(t, wasRunning)
	case <-time.After(2 * time.Second):
		t.Fatal("Pause did not return after the tick finished")
	}
	assert.Equal(t, StatePaused, c.State())

	assert.False(t, c.Pause(), "pausing a paused coordinator")
	c.Resume()
	assert.Equal(t, StateRunning, c.State())
	c.Stop()
}

func TestCoordinator_StopWaitsForInFlightTick(t *testing.T) {
	sampler := newBlockingSampler()
	pub := &recordingPublisher{}
	c := NewCoordinator(time.Hour, sampler.sample, pub, zap.NewNop())
	require.NoError(t, c.Start())
	<-sampler.entered

	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a tick was still reading")
	case <-time.After(50 * time.Millisecond):
	}

	close(sampler.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	n, _ := pub.counts()
	assert.Equal(t, 1, n, "the in-flight sample is still delivered")
}

func TestCoordinator_NoTickAfterStop(t *testing.T) {
	var stopped atomic.Bool
	var late atomic.Int64
	c := NewCoordinator(100*time.Microsecond, func(ctx context.Context) (float64, error) {
		if stopped.Load() {
			late.Inc()
		}
		return 1, nil
	}, &recordingPublisher{}, zap.NewNop())

	require.NoError(t, c.Start())
	time.Sleep(5 * time.Millisecond)
	c.Stop()
	stopped.Store(true)
	time.Sleep(5 * time.Millisecond)

	assert.Zero(t, late.Load())
}

func TestCoordinator_Lifecycle(t *testing.T) {
	c := NewCoordinator(time.Hour, func(ctx context.Context) (float64, error) {
		return 0, nil
	}, &recordingPublisher{}, zap.NewNop())

	assert.False(t, c.Pause(), "not started")
	require.NoError(t, c.Start())
	require.NoError(t, c.Start(), "start is idempotent while running")

	c.Stop()
	c.Stop()
	assert.ErrorIs(t, c.Start(), ErrCoordinatorStopped)
	assert.False(t, c.Pause())
	c.Resume()
	assert.Equal(t, StateStopped, c.State())
}

func TestCoordinator_StopBeforeStart(t *testing.T) {
	c := NewCoordinator(0, func(ctx context.Context) (float64, error) {
		return 0, nil
	}, &recordingPublisher{}, zap.NewNop())

	c.Stop()
	assert.ErrorIs(t, c.Start(), ErrCoordinatorStopped)
	assert.Equal(t, DefaultInterval, c.interval)
}
