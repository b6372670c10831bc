// Package kwp1281 implements the KWP1281 block protocol used by older VAG
// ECUs on the K-line.
package kwp1281

import (
	"bytes"
	"context"
	"fmt"

	"github.com/albenik/bcd"
	"github.com/roffe/godiag"
	"github.com/roffe/godiag/pkg/kline"
)

const (
	keyByte1 = 0x01
	keyByte2 = 0x8A

	blockEnd = 0x03

	// maxBlocks bounds the announcement and DTC loops.
	maxBlocks = 10

	maxWorkshopCode = 999999
)

var noDTCs = []byte{0xFF, 0xFF, 0x88}

type Client struct {
	cfg      *godiag.Config
	conn     *kline.Conn
	counter  byte
	ecuData  []byte
	workshop [3]byte
}

// Open initialises the K-line at cfg.Address and runs the KWP1281
// handshake.
func Open(ctx context.Context, cfg *godiag.Config, drv godiag.KLineDriver, opts ...kline.Opt) (*Client, error) {
	if cfg.WorkshopCode > maxWorkshopCode {
		return nil, fmt.Errorf("workshop code %d has more than 6 digits", cfg.WorkshopCode)
	}
	conn, err := kline.Init(ctx, cfg, drv, cfg.Address, opts...)
	if err != nil {
		return nil, err
	}
	c, err := New(ctx, cfg, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// New runs the KWP1281 handshake on an initialised K-line: key bytes, then
// the ECU's announcement blocks until it hands over with an ACK.
func New(ctx context.Context, cfg *godiag.Config, conn *kline.Conn) (*Client, error) {
	c := &Client{
		cfg:      cfg,
		conn:     conn,
		workshop: workshopCode(cfg.WorkshopCode),
	}

	// The UART may not be ready in time for the first key byte, in which
	// case the first byte read is already the second one.
	kb, err := conn.Recv(false)
	if err != nil {
		return nil, err
	}
	kb2 := kb
	if kb == keyByte1 {
		if kb2, err = conn.Recv(false); err != nil {
			return nil, err
		}
	}
	cfg.Debugf("key bytes: %02X %02X", kb, kb2)
	if kb2 != keyByte2 {
		return nil, godiag.Initf("unexpected key byte 0x%02X", kb2)
	}
	if err := conn.Send(0xFF-kb2, false); err != nil {
		return nil, err
	}

	for i := 0; i < maxBlocks; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := c.readBlock()
		if err != nil {
			return nil, err
		}
		if b.Type == Ack {
			return c, nil
		}
		c.ecuData = append(c.ecuData, b.Data...)
		if err := c.writeAck(); err != nil {
			return nil, err
		}
	}
	return nil, &godiag.TimeoutError{Op: fmt.Sprintf("ECU announcement (%d blocks)", maxBlocks)}
}

// ECUData is the identification the ECU announced after the handshake.
func (c *Client) ECUData() []byte {
	return c.ecuData
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) ReadDTCs(ctx context.Context, pending bool) ([]godiag.DTC, error) {
	if pending {
		c.cfg.Debugf("KWP1281 has no pending DTCs, reading stored DTCs")
	}
	if err := c.writeBlock(Block{Type: GetDTCs}); err != nil {
		return nil, err
	}

	var dtcs []godiag.DTC
	for i := 0; i < maxBlocks; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := c.readBlock()
		if err != nil {
			return nil, err
		}
		if b.Type == Ack {
			return dtcs, nil
		}
		if i == 0 && bytes.Equal(b.Data, noDTCs) {
			return dtcs, nil
		}
		for j := 0; j+2 < len(b.Data); j += 3 {
			code := uint16(b.Data[j])<<8 | uint16(b.Data[j+1])
			dtcs = append(dtcs, godiag.OemDTC(code, b.Data[j+2]))
		}
		if len(b.Data)%3 != 0 {
			c.cfg.Messagef("ignoring %d trailing bytes in DTC block", len(b.Data)%3)
		}
		if err := c.writeAck(); err != nil {
			return nil, err
		}
	}
	return nil, &godiag.TimeoutError{Op: fmt.Sprintf("DTC reply (%d blocks)", maxBlocks)}
}

func (c *Client) ClearDTCs(ctx context.Context) error {
	_, err := c.request(Block{Type: ClearDTCs}, Ack)
	return err
}

// ReadData reads a measuring block group. Freeze frames do not exist in
// KWP1281.
func (c *Client) ReadData(ctx context.Context, group byte, freezeFrame bool) ([]byte, error) {
	if freezeFrame {
		return nil, fmt.Errorf("freeze frame: %w", godiag.ErrUnsupported)
	}
	b, err := c.request(Block{Type: ReadData, Data: []byte{group}}, DataReply)
	if err != nil {
		return nil, err
	}
	return b.Data, nil
}

func (c *Client) ReadAdaptation(ctx context.Context, channel byte) ([]byte, error) {
	b, err := c.request(Block{Type: ReadAdaptation, Data: []byte{channel}}, AdaptationReply)
	if err != nil {
		return nil, err
	}
	if len(b.Data) == 0 {
		return nil, godiag.Protocolf("empty adaptation reply")
	}
	return b.Data[1:], nil
}

// WriteAdaptation writes value to an adaptation channel, or only tests it
// when test is set. A real write is signed with the workshop code.
func (c *Client) WriteAdaptation(ctx context.Context, channel byte, value [2]byte, test bool) ([]byte, error) {
	bt := WriteAdaptation
	if test {
		bt = TestAdaptation
	}
	data := []byte{channel, value[0], value[1]}
	if !test {
		data = append(data, c.workshop[:]...)
	}
	b, err := c.request(Block{Type: bt, Data: data}, AdaptationReply)
	if err != nil {
		return nil, err
	}
	return b.Data, nil
}

func (c *Client) request(req Block, want BlockType) (Block, error) {
	if err := c.writeBlock(req); err != nil {
		return Block{}, err
	}
	resp, err := c.readBlock()
	if err != nil {
		return Block{}, err
	}
	if resp.Type.IsOther() {
		return Block{}, godiag.Protocolf("unknown block type in response to %s: %s", req.Type, resp)
	}
	if resp.Type != want {
		return Block{}, godiag.Protocolf("unexpected response to %s: %s", req.Type, resp)
	}
	return resp, nil
}

func (c *Client) writeAck() error {
	return c.writeBlock(Block{Type: Ack})
}

// writeBlock sends b, every byte but the end marker is complemented by the
// ECU. It does not wait for the ECU's answer.
func (c *Client) writeBlock(b Block) error {
	c.cfg.Debugf("SEND %s", b)
	c.counter++

	header := []byte{byte(len(b.Data) + 3), c.counter, byte(b.Type)}
	for _, v := range append(header, b.Data...) {
		if err := c.conn.Send(v, true); err != nil {
			return err
		}
	}
	return c.conn.Send(blockEnd, false)
}

// readBlock receives one block and complements every byte but the end
// marker. It does not acknowledge it.
func (c *Client) readBlock() (Block, error) {
	length, err := c.conn.Recv(true)
	if err != nil {
		return Block{}, err
	}
	if length < 3 {
		return Block{}, godiag.Protocolf("invalid block length %d", length)
	}

	counter, err := c.conn.Recv(true)
	if err != nil {
		return Block{}, err
	}
	// The counter is not enforced, the ECU's value is simply taken over.
	if counter != c.counter+1 {
		c.cfg.Debugf("block counter 0x%02X, expected 0x%02X", counter, c.counter+1)
	}
	c.counter = counter

	bt, err := c.conn.Recv(true)
	if err != nil {
		return Block{}, err
	}
	data := make([]byte, 0, length-3)
	for i := 0; i < int(length)-3; i++ {
		v, err := c.conn.Recv(true)
		if err != nil {
			return Block{}, err
		}
		data = append(data, v)
	}
	end, err := c.conn.Recv(false)
	if err != nil {
		return Block{}, err
	}
	if end != blockEnd {
		c.cfg.Debugf("unexpected block end 0x%02X", end)
	}

	b := Block{Type: BlockType(bt), Data: data}
	c.cfg.Debugf("RECV %s", b)
	return b, nil
}

// workshopCode packs code as six BCD digits.
func workshopCode(code uint32) [3]byte {
	var out [3]byte
	b := bcd.FromUint32(code)
	if len(b) > len(out) {
		b = b[len(b)-len(out):]
	}
	copy(out[len(out)-len(b):], b)
	return out
}
