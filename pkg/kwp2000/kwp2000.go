// Package kwp2000 speaks KWP2000 (ISO 14230) over the K-line after a 5 baud
// init.
package kwp2000

import (
	"context"
	"strings"
	"time"

	"github.com/roffe/godiag"
	"github.com/roffe/godiag/pkg/kline"
)

const (
	FormatPhysical   = 0x80
	FormatFunctional = 0xC0

	// SourceAddress is the tester address.
	SourceAddress = 0xF1

	// InterBlockDelay is the minimum gap before the tester sends a block.
	InterBlockDelay = 60 * time.Millisecond

	ServiceStartDiagnosticSession = 0x10
	ServiceClearDiagnosticInfo    = 0x14
	ServiceReadDTCsByStatus       = 0x18
	ServiceReadECUIdentification  = 0x1A

	sessionDefault = 0x89
	identVIN       = 0x90

	keyByte2Mask = 0x7F
	keyByte2     = 0x0F

	maxPending = 10
)

// TargetAddresses maps init addresses to the physical address used in block
// headers.
var TargetAddresses = map[byte]byte{
	0x01: 0x10, // engine
	0x02: 0x18, // transmission
	0x03: 0x28, // brakes
}

type Client struct {
	*godiag.OBD
	cfg        *godiag.Config
	conn       *kline.Conn
	target     byte
	format     byte
	blockDelay time.Duration
	last       time.Time
}

type Opt func(*Client)

// OptFormat selects the header format byte, FormatPhysical by default.
func OptFormat(format byte) Opt {
	return func(c *Client) {
		c.format = format
	}
}

func OptInterBlockDelay(d time.Duration) Opt {
	return func(c *Client) {
		c.blockDelay = d
	}
}

// TargetAddress returns cfg.TargetAddress, or derives it from cfg.Address.
func TargetAddress(cfg *godiag.Config) (byte, error) {
	if cfg.TargetAddress != 0 {
		return cfg.TargetAddress, nil
	}
	if t, ok := TargetAddresses[cfg.Address]; ok {
		return t, nil
	}
	return 0, godiag.Initf("cannot derive target address for 0x%02X, supply one explicitly", cfg.Address)
}

func Open(ctx context.Context, cfg *godiag.Config, drv godiag.KLineDriver, opts ...Opt) (*Client, error) {
	target, err := TargetAddress(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := kline.Init(ctx, cfg, drv, cfg.Address)
	if err != nil {
		return nil, err
	}
	c, err := New(ctx, cfg, conn, target, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// New completes the init on a K-line the ECU has just answered with its sync
// byte and starts a diagnostic session.
func New(ctx context.Context, cfg *godiag.Config, conn *kline.Conn, target byte, opts ...Opt) (*Client, error) {
	c := &Client{
		cfg:        cfg,
		conn:       conn,
		target:     target,
		format:     FormatPhysical,
		blockDelay: InterBlockDelay,
	}
	for _, o := range opts {
		o(c)
	}
	c.OBD = godiag.NewOBD(c)

	kb1, err := conn.Recv(false)
	if err != nil {
		return nil, err
	}
	kb2, err := conn.Recv(false)
	if err != nil {
		return nil, err
	}
	cfg.Debugf("key bytes: %02X %02X", kb1, kb2)
	if kb2&keyByte2Mask != keyByte2 {
		return nil, godiag.Initf("unexpected key byte 0x%02X", kb2)
	}
	if err := conn.Send(0xFF-kb2, false); err != nil {
		return nil, err
	}

	inv, err := conn.Recv(false)
	if err != nil {
		return nil, err
	}
	if inv&0x7F != 0x7F-cfg.Address {
		return nil, godiag.Initf("unexpected inverted address 0x%02X for 0x%02X", inv, cfg.Address)
	}
	c.last = time.Now()

	resp, err := c.exchange(ctx, []byte{ServiceStartDiagnosticSession, sessionDefault})
	if err != nil {
		return nil, err
	}
	cfg.Debugf("start diagnostic session: % X", resp)
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Query sends service and args and returns the response value after the
// echoed args.
func (c *Client) Query(ctx context.Context, service byte, args []byte) ([]byte, error) {
	resp, err := c.exchange(ctx, append([]byte{service}, args...))
	if err != nil {
		return nil, err
	}
	out, err := godiag.CheckResponse(service, args, resp)
	return out, describe(err)
}

// ReadDTCs reads stored DTCs with their status. Pending DTCs are read with
// the OBD service.
func (c *Client) ReadDTCs(ctx context.Context, pending bool) ([]godiag.DTC, error) {
	if pending {
		return godiag.ReadDTCs(ctx, c, true)
	}
	resp, err := c.exchange(ctx, []byte{ServiceReadDTCsByStatus, 0x02, 0xFF, 0x00})
	if err != nil {
		return nil, err
	}
	data, err := godiag.CheckResponse(ServiceReadDTCsByStatus, nil, resp)
	if err != nil {
		return nil, describe(err)
	}
	if len(data) == 0 {
		return nil, godiag.Protocolf("DTC response without count")
	}

	count, records := int(data[0]), data[1:]
	if len(records) != 3*count {
		c.cfg.Messagef("ECU reported %d DTCs in %d bytes", count, len(records))
	}
	dtcs := make([]godiag.DTC, 0, len(records)/3)
	for i := 0; i+2 < len(records); i += 3 {
		code := uint16(records[i])<<8 | uint16(records[i+1])
		dtcs = append(dtcs, godiag.OemDTC(code, records[i+2]))
	}
	return dtcs, nil
}

// ClearDTCs clears all DTC groups. Some ECUs answer negatively and then
// positively, the second reply decides.
func (c *Client) ClearDTCs(ctx context.Context) error {
	resp, err := c.exchange(ctx, []byte{ServiceClearDiagnosticInfo, 0xFF, 0x00})
	if err != nil {
		return err
	}
	if len(resp) > 0 && resp[0] == godiag.NegativeResponse {
		c.cfg.Debugf("negative reply to clear DTCs, reading once more: % X", resp)
		if again, err := c.readBlock(); err == nil {
			resp = again
		}
	}
	_, err = godiag.CheckResponse(ServiceClearDiagnosticInfo, nil, resp)
	return describe(err)
}

func (c *Client) VIN(ctx context.Context) (string, error) {
	resp, err := c.Query(ctx, ServiceReadECUIdentification, []byte{identVIN})
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(resp), "\x00 "), nil
}

// exchange writes one request block and returns the first reply that is not
// a response pending notice.
func (c *Client) exchange(ctx context.Context, req []byte) ([]byte, error) {
	if err := c.writeBlock(ctx, req); err != nil {
		return nil, err
	}
	for i := 0; ; i++ {
		resp, err := c.readBlock()
		if err != nil {
			return nil, err
		}
		if i < maxPending && len(resp) > 2 && resp[0] == godiag.NegativeResponse && resp[2] == nrcResponsePending {
			c.cfg.Debugf("response pending for service 0x%02X", req[0])
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}
		return resp, nil
	}
}

func (c *Client) writeBlock(ctx context.Context, payload []byte) error {
	if len(payload) > 0x3F {
		return godiag.Protocolf("payload too long for a block: %d", len(payload))
	}
	if wait := c.blockDelay - time.Since(c.last); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	block := EncodeBlock(c.format, c.target, SourceAddress, payload)
	c.cfg.Debugf("SEND % X", block)
	for _, b := range block {
		if err := c.conn.Send(b, false); err != nil {
			return err
		}
	}
	c.last = time.Now()
	return nil
}

// readBlock reads one block and returns its payload.
func (c *Client) readBlock() ([]byte, error) {
	var block []byte
	next := func() (byte, error) {
		b, err := c.conn.Recv(false)
		if err == nil {
			block = append(block, b)
		}
		return b, err
	}

	header, err := next()
	if err != nil {
		return nil, err
	}
	if header&0xC0 != 0 {
		for i := 0; i < 2; i++ {
			if _, err := next(); err != nil {
				return nil, err
			}
		}
	}
	length := int(header & 0x3F)
	if length == 0 {
		l, err := next()
		if err != nil {
			return nil, err
		}
		length = int(l)
	}
	start := len(block)
	for i := 0; i < length; i++ {
		if _, err := next(); err != nil {
			return nil, err
		}
	}

	sum := Checksum(block)
	got, err := c.conn.Recv(false)
	if err != nil {
		return nil, err
	}
	c.last = time.Now()
	c.cfg.Debugf("RECV % X %02X", block, got)
	if got != sum {
		return nil, &godiag.ChecksumError{Want: sum, Got: got}
	}
	return block[start:], nil
}

// EncodeBlock frames payload with a header and trailing checksum.
func EncodeBlock(format, target, source byte, payload []byte) []byte {
	block := make([]byte, 0, len(payload)+4)
	block = append(block, format|byte(len(payload))&0x3F, target, source)
	block = append(block, payload...)
	return append(block, Checksum(block))
}

// Checksum is the 8 bit wrapping sum of b.
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}
