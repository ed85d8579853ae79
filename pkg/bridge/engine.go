package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/itohio/goslider/pkg/hud"
	"github.com/itohio/goslider/pkg/packet"
)

// Publisher receives HUD updates.
type Publisher interface {
	Publish(state hud.State)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(state hud.State)

// Publish calls f(state).
func (f PublisherFunc) Publish(state hud.State) { f(state) }

// Publishers fans every state out to each non-nil publisher in order.
type Publishers []Publisher

// Publish forwards state to every publisher.
func (p Publishers) Publish(state hud.State) {
	for _, pub := range p {
		if pub != nil {
			pub.Publish(state)
		}
	}
}

// Engine dispatches decoded frames to the registry.
type Engine struct {
	registry  Registry
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.RWMutex
	state hud.State
}

// NewEngine creates an engine. publisher may be nil.
func NewEngine(registry Registry, publisher Publisher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		registry:  registry,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle applies one message and reports whether it was recognized.
func (e *Engine) Handle(msg packet.Message) bool {
	desc, ok := e.registry[msg.Command]
	if !ok {
		e.logger.Debug("ignoring unknown command", "command", msg.Command, "length", msg.Length)
		return false
	}

	value := clamp01(msg.Normalized())
	e.logger.Debug("slider event", "function", desc.Function, "raw", msg.Value, "percent", msg.Percent())

	if desc.Apply != nil {
		desc.Apply(value)
	}

	state := hud.State{
		Function: desc.Function.String(),
		Value:    value,
		Percent:  msg.Percent(),
		At:       e.now(),
	}
	if desc.Icon != nil {
		state.Icon = desc.Icon(value)
	}

	e.mu.Lock()
	e.state = state
	e.mu.Unlock()

	if e.publisher != nil {
		e.publisher.Publish(state)
	}
	return true
}

// Run handles messages until in is closed or ctx is canceled.
func (e *Engine) Run(ctx context.Context, in <-chan packet.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				e.logger.Info("device stream closed")
				return
			}
			e.Handle(msg)
		}
	}
}

// State returns the last HUD state.
func (e *Engine) State() hud.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}
