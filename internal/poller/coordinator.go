// internal/poller/coordinator.go
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"pyrometer-service/internal/model"
)

// DefaultInterval is the sampling cadence of the CS Laser monitor
const DefaultInterval = 500 * time.Millisecond

// ErrCoordinatorStopped is returned when starting a stopped coordinator
var ErrCoordinatorStopped = errors.New("poller: coordinator stopped")

// State is the lifecycle state of a Coordinator
type State string

const (
	StateStopped State = "STOPPED"
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
)

// SampleFunc takes one measurement
type SampleFunc func(ctx context.Context) (float64, error)

// Publisher receives the outcome of every tick
type Publisher interface {
	OnTemperatureSample(reading model.TemperatureReading)
	OnSampleError(err error)
}

// Stats counts tick outcomes
type Stats struct {
	Ticks     int64     `json:"ticks"`
	Successes int64     `json:"successes"`
	Failures  int64     `json:"failures"`
	Skipped   int64     `json:"skipped"`
	LastTick  time.Time `json:"last_tick"`
}

// Coordinator samples on a fixed cadence until stopped. Ticks run strictly
// one after another; Pause and Stop block until a running tick has returned.
type Coordinator struct {
	interval  time.Duration
	sample    SampleFunc
	publisher Publisher
	logger    *zap.Logger

	mu       sync.Mutex
	idle     *sync.Cond
	state    State
	started  bool
	inFlight bool
	stopCh   chan struct{}
	done     chan struct{}

	ticks     atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64
	skipped   atomic.Int64
	lastTick  atomic.Time
}

// NewCoordinator creates a stopped coordinator
func NewCoordinator(interval time.Duration, sample SampleFunc, publisher Publisher, logger *zap.Logger) *Coordinator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := &Coordinator{
		interval:  interval,
		sample:    sample,
		publisher: publisher,
		logger:    logger.With(zap.String("component", "poller")),
		state:     StateStopped,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	c.idle = sync.NewCond(&c.mu)
	return c
}

// Start begins sampling. The first sample is taken immediately.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		if c.state == StateStopped {
			return ErrCoordinatorStopped
		}
		return nil
	}

	c.started = true
	c.state = StateRunning
	go c.run()

	c.logger.Info("Polling started", zap.Duration("interval", c.interval))
	return nil
}

// Pause suspends sampling and waits for a running tick to finish. It reports
// whether the coordinator was running, i.e. whether Resume must follow.
func (c *Coordinator) Pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return false
	}
	c.state = StatePaused
	for c.inFlight {
		c.idle.Wait()
	}
	return true
}

// Resume continues sampling after Pause
func (c *Coordinator) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StatePaused {
		c.state = StateRunning
	}
}

// Stop ends sampling for good. It returns once no tick is running and none
// will run again. Stop may be called more than once.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.started {
		c.started = true
		c.state = StateStopped
		close(c.stopCh)
		close(c.done)
		c.mu.Unlock()
		return
	}
	if c.state != StateStopped {
		c.state = StateStopped
		close(c.stopCh)
	}
	c.mu.Unlock()

	<-c.done
}

// State returns the current lifecycle state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns tick counters
func (c *Coordinator) Stats() Stats {
	return Stats{
		Ticks:     c.ticks.Load(),
		Successes: c.successes.Load(),
		Failures:  c.failures.Load(),
		Skipped:   c.skipped.Load(),
		LastTick:  c.lastTick.Load(),
	}
}

func (c *Coordinator) run() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.tick()
	for {
		select {
		case <-c.stopCh:
			c.logger.Info("Polling stopped", zap.Int64("ticks", c.ticks.Load()))
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Coordinator) tick() {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		c.skipped.Inc()
		return
	}
	c.inFlight = true
	c.mu.Unlock()

	celsius, err := c.sample(context.Background())
	now := time.Now()

	c.mu.Lock()
	c.inFlight = false
	c.idle.Broadcast()
	c.mu.Unlock()

	c.ticks.Inc()
	c.lastTick.Store(now)

	if err != nil {
		c.failures.Inc()
		c.logger.Warn("Temperature sample failed", zap.Error(err))
		c.publisher.OnSampleError(err)
		return
	}

	c.successes.Inc()
	c.publisher.OnTemperatureSample(model.TemperatureReading{Celsius: celsius, Timestamp: now})
}
