// Package canbus speaks OBD2 over ISO 15765 (CAN-TP) on a raw CAN socket.
package canbus

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/roffe/godiag"
)

const (
	RequestID     = 0x7DF
	ResponseIDMin = 0x7E8
	ResponseIDMax = 0x7EF

	// ResponseTimeout bounds a whole, possibly multi frame, response.
	ResponseTimeout = 2 * time.Second

	padByte = 0xCC

	frameSingle      = 0x0
	frameFirst       = 0x1
	frameConsecutive = 0x2
	frameFlowControl = 0x3
)

type Client struct {
	*godiag.OBD
	cfg  *godiag.Config
	sock godiag.CANSocket
	link *Link
}

// Open brings up the configured interface and dials it. The interface is
// brought down again if anything after that fails, otherwise by Close.
func Open(ctx context.Context, cfg *godiag.Config, ctrl godiag.LinkController, dial func(context.Context, string) (godiag.CANSocket, error)) (*Client, error) {
	link, err := Up(ctx, cfg, ctrl, cfg.Interface, cfg.CANRate)
	if err != nil {
		return nil, err
	}
	sock, err := dial(ctx, cfg.Interface)
	if err != nil {
		link.Close()
		return nil, err
	}
	return New(cfg, sock, link), nil
}

// New wraps an open socket, link may be nil.
func New(cfg *godiag.Config, sock godiag.CANSocket, link *Link) *Client {
	c := &Client{
		cfg:  cfg,
		sock: sock,
		link: link,
	}
	c.OBD = godiag.NewOBD(c)
	return c
}

func (c *Client) Close() error {
	err := c.sock.Close()
	if c.link != nil {
		c.link.Close()
	}
	return err
}

func (c *Client) VIN(ctx context.Context) (string, error) {
	resp, err := c.Query(ctx, godiag.ServiceVehicleInfo, []byte{0x02})
	if err != nil {
		return "", err
	}
	if len(resp) < 1 {
		return "", godiag.Protocolf("VIN response too short")
	}
	// first byte is the number of data items
	return string(resp[1:]), nil
}

// Query sends a single frame request on the functional request identifier
// and assembles the response.
func (c *Client) Query(ctx context.Context, service byte, args []byte) ([]byte, error) {
	if len(args) > 6 {
		return nil, godiag.Protocolf("too many args for a single frame: %d", len(args))
	}
	data := make([]byte, 8)
	data[0] = byte(1 + len(args))
	data[1] = service
	copy(data[2:], args)
	for i := 2 + len(args); i < len(data); i++ {
		data[i] = padByte
	}

	if err := c.insist(ctx, godiag.NewFrame(RequestID, data, godiag.Outgoing)); err != nil {
		return nil, err
	}

	resp, err := c.receive(ctx)
	if err != nil {
		return nil, err
	}
	return godiag.CheckResponse(service, args, resp)
}

// receive assembles one ISO 15765 message from the response identifiers,
// truncated to its declared length.
func (c *Client) receive(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(ResponseTimeout)

	var response []byte
	length := -1
	var seq byte = 1

	for {
		if time.Now().After(deadline) {
			return nil, &godiag.TimeoutError{Op: "CAN-TP response", After: ResponseTimeout}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := c.sock.ReadFrame(ctx)
		if err != nil {
			return nil, err
		}
		if f.Identifier < ResponseIDMin || f.Identifier > ResponseIDMax {
			continue
		}
		c.cfg.Debugf("RECV %s", f.ColorString())

		if len(f.Data) == 0 {
			return nil, godiag.Protocolf("empty CAN-TP frame")
		}

		switch f.Data[0] >> 4 {
		case frameSingle:
			if length >= 0 {
				return nil, godiag.Protocolf("unexpected single frame during multi frame response")
			}
			length = int(f.Data[0] & 0x0F)
			response = append(response, f.Data[1:]...)
		case frameFirst:
			if length >= 0 {
				return nil, godiag.Protocolf("unexpected first frame")
			}
			if len(f.Data) < 2 {
				return nil, godiag.Protocolf("truncated first frame")
			}
			length = int(f.Data[0]&0x0F)<<8 + int(f.Data[1])
			response = append(response, f.Data[2:]...)

			// Let the sender transmit the rest without waiting for further
			// flow control frames.
			// Sent to the physical request ID with block size 0 and STmin 0.
			fc := []byte{frameFlowControl << 4, 0x00, 0x00, padByte, padByte, padByte, padByte, padByte}
			if err := c.insist(ctx, godiag.NewFrame(f.Identifier-8, fc, godiag.Outgoing)); err != nil {
				return nil, err
			}
			continue
		case frameConsecutive:
			if length < 0 {
				return nil, godiag.Protocolf("consecutive frame without first frame")
			}
			if f.Data[0]&0x0F != seq {
				return nil, godiag.Protocolf("consecutive frame out of order, got %d want %d", f.Data[0]&0x0F, seq)
			}
			seq = (seq + 1) & 0x0F
			response = append(response, f.Data[1:]...)
			if len(response) < length {
				continue
			}
		default:
			return nil, godiag.Protocolf("unexpected CAN-TP frame type 0x%X", f.Data[0]>>4)
		}
		break
	}

	if len(response) < length {
		return nil, godiag.Protocolf("response shorter than declared length %d: % X", length, response)
	}
	return response[:length], nil
}

// insist writes f until it goes through. Only the request and its flow
// control frame are sent this way.
func (c *Client) insist(ctx context.Context, f *godiag.CANFrame) error {
	c.cfg.Debugf("SEND %s", f.ColorString())
	return retry.Do(
		func() error {
			return c.sock.WriteFrame(ctx, f)
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(godiag.IsRecoverable),
		retry.OnRetry(func(n uint, err error) {
			c.cfg.Debugf("retry #%d sending frame: %v", n, err)
		}),
		retry.LastErrorOnly(true),
	)
}
