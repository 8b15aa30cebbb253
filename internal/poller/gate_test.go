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

	"pyrometer-service/internal/driver/optris/optristest"
)

type countingPauser struct {
	running bool
	pauses  int
	resumes int
}

func (p *countingPauser) Pause() bool {
	p.pauses++
	was := p.running
	p.running = false
	return was
}

func (p *countingPauser) Resume() {
	p.resumes++
	p.running = true
}

func TestGate_PausesAndResumesRunningPoller(t *testing.T) {
	g := NewGate(zap.NewNop())
	p := &countingPauser{running: true}
	g.Attach(p)

	err := g.Do(context.Background(), func(ctx context.Context) error {
		assert.False(t, p.running, "poller paused while the command runs")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.pauses)
	assert.Equal(t, 1, p.resumes)
	assert.True(t, p.running)
}

func TestGate_ResumesOnFailure(t *testing.T) {
	g := NewGate(zap.NewNop())
	p := &countingPauser{running: true}
	g.Attach(p)

	boom := errors.New("ack mismatch")
	err := g.Do(context.Background(), func(ctx context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, p.resumes)
	assert.True(t, p.running)
}

func TestGate_ResumesOnPanic(t *testing.T) {
	g := NewGate(zap.NewNop())
	p := &countingPauser{running: true}
	g.Attach(p)

	assert.Panics(t, func() {
		_ = g.Do(context.Background(), func(ctx context.Context) error { panic("decode bug") })
	})
	assert.Equal(t, 1, p.resumes)

	// the gate is usable again afterwards
	require.NoError(t, g.Do(context.Background(), func(ctx context.Context) error { return nil }))
}

func TestGate_DoesNotResumeIdlePoller(t *testing.T) {
	g := NewGate(zap.NewNop())
	p := &countingPauser{running: false}
	g.Attach(p)

	require.NoError(t, g.Do(context.Background(), func(ctx context.Context) error { return nil }))
	assert.Equal(t, 1, p.pauses)
	assert.Zero(t, p.resumes)
	assert.False(t, p.running)
}

func TestGate_DetachInsideCommand(t *testing.T) {
	g := NewGate(zap.NewNop())
	p := &countingPauser{running: true}
	g.Attach(p)

	err := g.Do(context.Background(), func(ctx context.Context) error {
		assert.Same(t, p, g.Detach())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.resumes, "the paused poller is resumed even when detached")

	require.NoError(t, g.Do(context.Background(), func(ctx context.Context) error { return nil }))
	assert.Equal(t, 1, p.pauses)
	assert.Nil(t, g.Detach())
}

func TestGate_CancelledContext(t *testing.T) {
	g := NewGate(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := g.Do(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// exchange performs one raw write/read on the simulated line without any
// locking of its own, so only the gate and coordinator keep it exclusive.
func exchange(ctx context.Context, dev *optristest.Device, frame []byte, n int) error {
	if err := dev.Write(ctx, frame); err != nil {
		return err
	}
	_, err := dev.Read(ctx, n)
	return err
}

func TestGateAndCoordinator_NeverShareTheLine(t *testing.T) {
	dev := optristest.NewDevice()
	require.NoError(t, dev.Open(context.Background()))

	g := NewGate(zap.NewNop())
	ctx := context.Background()
	var stopped atomic.Bool
	var lateTicks atomic.Int64

	sample := func(ctx context.Context) (float64, error) {
		if stopped.Load() {
			lateTicks.Inc()
		}
		return 0, exchange(ctx, dev, []byte{0x01}, 2)
	}
	command := func(ctx context.Context) error {
		return exchange(ctx, dev, []byte{0x10}, 1)
	}

	for i := 0; i < 1000; i++ {
		stopped.Store(false)
		c := NewCoordinator(50*time.Microsecond, sample, &recordingPublisher{}, zap.NewNop())
		require.NoError(t, c.Start())
		g.Attach(c)

		var wg sync.WaitGroup
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, g.Do(ctx, command))
			}()
		}
		if i%3 == 0 {
			time.Sleep(time.Duration(i%5) * 10 * time.Microsecond)
		}
		wg.Wait()

		if i%2 == 0 {
			require.NoError(t, g.Do(ctx, func(ctx context.Context) error {
				g.Detach()
				c.Stop()
				return nil
			}))
		} else {
			g.Detach()
			c.Stop()
		}
		stopped.Store(true)
		assert.Equal(t, StateStopped, c.State())
	}

	assert.Zero(t, dev.Overlaps(), "two transport calls in flight")
	assert.Zero(t, dev.Interleaves(), "write issued before the previous response was read")
	assert.Zero(t, lateTicks.Load(), "tick after Stop returned")
	assert.GreaterOrEqual(t, dev.Writes(), int64(2000))
}
