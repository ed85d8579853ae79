package link

import "github.com/itohio/goslider/pkg/packet"

// Device defines the interface for slider devices (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Messages() <-chan packet.Message
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
