package adapter

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/roffe/godiag"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

const socketTimeout = 500 * time.Millisecond

type SocketCAN struct {
	conn net.Conn
	tx   *socketcan.Transmitter
}

// DialSocketCAN opens a raw CAN socket on iface.
func DialSocketCAN(ctx context.Context, iface string) (godiag.CANSocket, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, err
	}
	return &SocketCAN{
		conn: conn,
		tx:   socketcan.NewTransmitter(conn),
	}, nil
}

func (a *SocketCAN) WriteFrame(ctx context.Context, f *godiag.CANFrame) error {
	frame := can.Frame{
		ID:     f.Identifier,
		Length: uint8(f.Length()),
	}
	copy(frame.Data[:], f.Data)

	ctx, cancel := context.WithTimeout(ctx, socketTimeout)
	defer cancel()
	if err := a.tx.TransmitFrame(ctx, frame); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return godiag.Unrecoverable(err)
		}
		return err
	}
	return nil
}

func (a *SocketCAN) ReadFrame(ctx context.Context) (*godiag.CANFrame, error) {
	if err := a.conn.SetReadDeadline(time.Now().Add(socketTimeout)); err != nil {
		return nil, err
	}
	// a receiver keeps its first error, use a new one per read
	rx := socketcan.NewReceiver(a.conn)
	for rx.Receive() {
		if rx.HasErrorFrame() {
			continue
		}
		f := rx.Frame()
		data := make([]byte, f.Length)
		copy(data, f.Data[:f.Length])
		return godiag.NewFrame(f.ID, data, godiag.Incoming), nil
	}
	err := rx.Err()
	switch {
	case err == nil:
		return nil, godiag.ErrClosed
	case errors.Is(err, os.ErrDeadlineExceeded):
		return nil, &godiag.TimeoutError{Op: "CAN read", After: socketTimeout}
	}
	return nil, err
}

func (a *SocketCAN) Close() error {
	return a.conn.Close()
}
