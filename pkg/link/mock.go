package link

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/itohio/goslider/pkg/config"
	"github.com/itohio/goslider/pkg/packet"
	"github.com/itohio/goslider/pkg/slider"
)

// Mock simulates a keyboard with a slider for testing and development. It
// runs an Emulator and decodes the frames it transmits. Like Serial it can
// be reconnected after Close.
type Mock struct {
	cfg    *config.Config
	logger *slog.Logger

	messages  chan packet.Message
	presses   chan struct{}
	mu        sync.RWMutex
	cancel    context.CancelFunc
	connected bool
	stale     bool
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.Config, logger *slog.Logger) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Mock{
		cfg:      cfg,
		logger:   logger.With("device", "mock"),
		messages: make(chan packet.Message, DefaultBufferSize),
		presses:  make(chan struct{}, 1),
	}
}

// Connect starts the simulated keyboard.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrConnected
	}

	if m.stale {
		m.messages = make(chan packet.Message, DefaultBufferSize)
		m.stale = false
	}
	ctx, cancel := context.WithCancel(context.Background())
	out := m.messages

	sim, err := NewEmulator(m.cfg, m.deliver(ctx, out), m.logger)
	if err != nil {
		cancel()
		return err
	}

	m.cancel = cancel
	m.connected = true

	go func() {
		defer close(out)
		sim.Run(ctx, m.presses)
	}()

	return nil
}

// Close stops the mocked device. The messages channel is closed once the
// simulation has stopped.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.connected = false
	m.stale = true

	return nil
}

// Messages returns the channel of decoded frames for the current
// connection.
func (m *Mock) Messages() <-chan packet.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.messages
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Press simulates a press and release of the mode button.
func (m *Mock) Press() {
	select {
	case m.presses <- struct{}{}:
	default:
	}
}

// deliver returns the controller's transmitter for one connection.
func (m *Mock) deliver(ctx context.Context, out chan<- packet.Message) slider.TransmitterFunc {
	return func(frame []byte) error {
		msg, err := packet.Decode(frame)
		if err != nil {
			return err
		}

		select {
		case out <- msg:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			return fmt.Errorf("messages channel full")
		}
	}
}
