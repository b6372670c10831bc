package godiag

import (
	"context"
	"io"
)

// Line is a single GPIO line used to bit-bang the K-line during init.
type Line interface {
	SetValue(int) error
	Value() (int, error)
	Close() error
}

// SerialPort is the UART the K-line runs on once initialised. A Read that
// returns 0 bytes and no error means the read timeout expired.
type SerialPort interface {
	io.ReadWriteCloser
}

// KLineDriver hands out the K-line hardware in either of its two modes.
type KLineDriver interface {
	OpenGPIO() (tx, rx Line, err error)
	OpenUART(baudrate int) (SerialPort, error)
}

type CANSocket interface {
	WriteFrame(context.Context, *CANFrame) error
	ReadFrame(context.Context) (*CANFrame, error)
	Close() error
}

// LinkController brings a CAN network interface up and down.
type LinkController interface {
	Up(ctx context.Context, iface string, bitrate int) error
	Down(ctx context.Context, iface string) error
}
