// Package kline implements the K-line physical layer shared by KWP1281 and
// KWP2000: the 5 baud address init in GPIO mode, baud rate detection from the
// 0x55 sync byte and byte level I/O with complement echo once the line is
// switched to the UART.
package kline

import (
	"context"
	"time"

	"github.com/roffe/godiag"
)

const (
	// InitBaudRate is used to bit-bang the init address.
	InitBaudRate = 5

	// DefaultWriteDelay is waited before every byte written, the ECUs are
	// not fast enough to keep up with back to back bytes.
	DefaultWriteDelay = 5 * time.Millisecond

	ReadTimeout = 1 * time.Second
	EdgeTimeout = 500 * time.Millisecond

	idleTime = 300 * time.Millisecond
)

// KnownBaudRates are the rates a measured baud rate is snapped to.
var KnownBaudRates = []int{9600, 10400}

type Conn struct {
	cfg        *godiag.Config
	port       godiag.SerialPort
	baudrate   int
	writeDelay time.Duration
	loopback   bool
}

type Opt func(*Conn)

func OptWriteDelay(d time.Duration) Opt {
	return func(c *Conn) {
		c.writeDelay = d
	}
}

// OptLoopback controls whether every written byte is read back from the
// line. The K-line is a single wire so this is on by default.
func OptLoopback(enabled bool) Opt {
	return func(c *Conn) {
		c.loopback = enabled
	}
}

// Init addresses the ECU at address on the K-line and returns a connection
// running at the given or measured baud rate.
//
// The address is written at 5 baud, 7 data bits and odd parity, which is
// only possible in GPIO mode. The ECU answers with the 0x55 sync byte which
// is timed to find the baud rate unless cfg.Baudrate is set. Fast init and
// the parallel L-line init are not implemented.
func Init(ctx context.Context, cfg *godiag.Config, drv godiag.KLineDriver, address byte, opts ...Opt) (*Conn, error) {
	tx, rx, err := drv.OpenGPIO()
	if err != nil {
		return nil, err
	}
	measured, err := initGPIO(ctx, tx, rx, address)
	tx.Close()
	rx.Close()
	if err != nil {
		return nil, err
	}

	baudrate := cfg.Baudrate
	if baudrate == 0 {
		baudrate = NearestBaudRate(measured)
		cfg.Debugf("measured baud rate: %d, using nearest known baud rate: %d", measured, baudrate)
	}

	port, err := drv.OpenUART(baudrate)
	if err != nil {
		return nil, err
	}
	return NewConn(cfg, port, baudrate, opts...), nil
}

func initGPIO(ctx context.Context, tx, rx godiag.Line, address byte) (int, error) {
	// The line has to be high for a while before it is pulled down.
	if err := tx.SetValue(1); err != nil {
		return 0, err
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(idleTime):
	}

	if err := WriteSoftware(tx, address, 7, true, InitBaudRate); err != nil {
		return 0, err
	}
	return MeasureBaud(rx, EdgeTimeout)
}

// NewConn wraps an already configured UART.
func NewConn(cfg *godiag.Config, port godiag.SerialPort, baudrate int, opts ...Opt) *Conn {
	c := &Conn{
		cfg:        cfg,
		port:       port,
		baudrate:   baudrate,
		writeDelay: DefaultWriteDelay,
		loopback:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Conn) Baudrate() int {
	return c.baudrate
}

func (c *Conn) Close() error {
	return c.port.Close()
}

// Send writes one byte. With expectComplement it waits for the ECU to echo
// the bit complement; a wrong complement is only reported.
func (c *Conn) Send(value byte, expectComplement bool) error {
	busyWait(time.Now(), c.writeDelay)

	start := time.Now()
	if _, err := c.port.Write([]byte{value}); err != nil {
		return err
	}

	if c.loopback {
		echo, err := c.read()
		if err != nil {
			return err
		}
		if echo != value {
			c.cfg.Debugf("loopback mismatch, wrote 0x%02X read 0x%02X", value, echo)
		}
	}
	// start, 8 data and stop bit
	busyWait(start, 10*time.Second/time.Duration(c.baudrate))

	if expectComplement {
		b, err := c.read()
		if err != nil {
			return err
		}
		if b != 0xFF-value {
			c.cfg.Messagef("invalid complement received for 0x%02X: 0x%02X", value, b)
		}
	}
	return nil
}

// Recv reads one byte and, with complement, answers with its complement.
func (c *Conn) Recv(complement bool) (byte, error) {
	b, err := c.read()
	if err != nil {
		return 0, err
	}
	if complement {
		if err := c.Send(0xFF-b, false); err != nil {
			return 0, err
		}
	}
	return b, nil
}

func (c *Conn) read() (byte, error) {
	buf := make([]byte, 1)
	n, err := c.port.Read(buf)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, &godiag.TimeoutError{Op: "K-line read", After: ReadTimeout}
	}
	return buf[0], nil
}
