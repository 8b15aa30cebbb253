// internal/poller/gate.go
package poller

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Pauser is a background task that must be quiet while a command runs
type Pauser interface {
	// Pause blocks until the task is idle and reports whether it was running
	Pause() bool
	Resume()
}

// Gate serializes foreground commands and keeps the attached poller off the
// line while one runs.
type Gate struct {
	mu     sync.Mutex
	pmu    sync.Mutex
	poller Pauser
	logger *zap.Logger
}

// NewGate creates a gate without a poller
func NewGate(logger *zap.Logger) *Gate {
	return &Gate{logger: logger.With(zap.String("component", "command_gate"))}
}

// Attach sets the poller paused around commands
func (g *Gate) Attach(p Pauser) {
	g.pmu.Lock()
	defer g.pmu.Unlock()
	g.poller = p
}

// Detach removes the poller and returns it
func (g *Gate) Detach() Pauser {
	g.pmu.Lock()
	defer g.pmu.Unlock()
	p := g.poller
	g.poller = nil
	return p
}

// Do runs fn with the poller paused. A poller that was running is resumed
// on every exit path, including a failing or panicking fn.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	g.pmu.Lock()
	p := g.poller
	g.pmu.Unlock()

	if p != nil && p.Pause() {
		g.logger.Debug("Poller paused for command")
		defer func() {
			p.Resume()
			g.logger.Debug("Poller resumed")
		}()
	}

	return fn(ctx)
}
