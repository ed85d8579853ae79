// Package link moves command frames between the keyboard and the host.
package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/itohio/goslider/pkg/packet"
)

const (
	// DefaultBaudRate is the baud rate the firmware UART runs at.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the messages channel buffer.
	DefaultBufferSize = 100
)

// ErrConnected is returned by Connect on a device that is already connected.
var ErrConnected = errors.New("already connected")

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
	USB         bool
}

// Ports returns a list of available serial ports. USB ports carry their
// vendor and product IDs in the description.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		result = append(result, describePort(d))
	}

	return result, nil
}

func describePort(d *enumerator.PortDetails) Port {
	p := Port{Name: d.Name, Description: d.Name, USB: d.IsUSB}
	if d.IsUSB {
		p.Description = fmt.Sprintf("%s (USB %s:%s", d.Name, d.VID, d.PID)
		if d.Product != "" {
			p.Description += " " + d.Product
		}
		p.Description += ")"
	}
	return p
}

// Serial receives frames from the keyboard over a serial port. It may be
// reconnected after Close; every Connect starts a new messages channel.
type Serial struct {
	port     string
	baudRate int
	bufSize  int
	logger   *slog.Logger
	open     func() (io.ReadCloser, error)

	conn      io.ReadCloser
	messages  chan packet.Message
	mu        sync.RWMutex
	cancel    context.CancelFunc
	connected bool
	stale     bool
}

// New creates a new Serial instance with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int, logger *slog.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		logger:   logger.With("port", port),
		messages: make(chan packet.Message, bufSize),
	}
	d.open = d.openPort
	return d
}

func (d *Serial) openPort() (io.ReadCloser, error) {
	return serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
}

// Connect opens the serial port and starts reading frames.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrConnected
	}

	conn, err := d.open()
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	// The previous reader closed its channel on exit.
	if d.stale {
		d.messages = make(chan packet.Message, d.bufSize)
		d.stale = false
	}
	ctx, cancel := context.WithCancel(context.Background())

	d.conn = conn
	d.cancel = cancel
	d.connected = true

	go d.readFrames(ctx, conn, d.messages)

	return nil
}

// Close closes the connection and stops reading frames.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()
	d.stale = true

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			d.logger.Warn("error closing serial port", "error", err)
		}
		d.conn = nil
	}

	d.connected = false

	return nil
}

// Messages returns the channel of decoded frames for the current
// connection. It is closed once the reader stops.
func (d *Serial) Messages() <-chan packet.Message {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.messages
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func (d *Serial) readFrames(ctx context.Context, r io.Reader, out chan packet.Message) {
	defer close(out)
	pump(ctx, r, out, d.logger)
}

// pump splits r into frames and forwards the decoded messages until r ends
// or ctx is canceled. A full channel drops the message.
func pump(ctx context.Context, r io.Reader, out chan<- packet.Message, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4*packet.FrameSize), 4*packet.FrameSize)
	scanner.Split(SplitFrames)

	for scanner.Scan() {
		msg, err := packet.Decode(scanner.Bytes())
		if err != nil {
			logger.Warn("failed to decode frame", "error", err)
			continue
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return
		default:
			logger.Warn("messages channel full, dropping frame", "command", msg.Command)
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		logger.Error("error reading frames", "error", err)
	}
}

// SplitFrames is a bufio.SplitFunc that yields whole frames. Bytes that
// cannot start a valid frame are skipped, so a reader that attaches in the
// middle of a frame resynchronizes.
func SplitFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i+packet.FrameSize <= len(data); i++ {
		if validFrame(data[i : i+packet.FrameSize]) {
			return i + packet.FrameSize, data[i : i+packet.FrameSize], nil
		}
	}

	if len(data) >= packet.FrameSize {
		// keep a possible frame prefix
		return len(data) - packet.FrameSize + 1, nil, nil
	}
	if atEOF && len(data) > 0 {
		return len(data), nil, nil
	}
	return 0, nil, nil
}

func validFrame(b []byte) bool {
	if !packet.Command(b[0]).Known() || b[1] != 0 {
		return false
	}
	for _, v := range b[packet.HeaderSize:] {
		if v != 0 {
			return false
		}
	}
	return true
}

// Sink writes frames to a serial port or any other writer.
type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSink wraps w.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// OpenSink opens a serial port for writing frames.
func OpenSink(port string, baudRate int) (*Sink, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	conn, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	return NewSink(conn), nil
}

// Transmit writes one frame.
func (s *Sink) Transmit(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.w.Write(frame)
	if err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	if n != len(frame) {
		return io.ErrShortWrite
	}
	return nil
}

// Close closes the underlying writer if it is closable.
func (s *Sink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
