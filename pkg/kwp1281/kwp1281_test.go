package kwp1281

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/roffe/godiag"
	"github.com/roffe/godiag/pkg/kline"
)

// fakeECU plays the ECU side of a KWP1281 session on a loopback K-line.
// Every byte the tester writes is echoed first, then the ECU reacts.
type fakeECU struct {
	t *testing.T

	rx      []byte
	tx      []byte
	sending bool
	keyDone bool
	counter byte

	cur      []byte
	queue    []Block
	received []Block
	counters []byte
	respond  func(Block) []Block
}

func newFakeECU(t *testing.T, keyBytes []byte, announce ...Block) *fakeECU {
	return &fakeECU{
		t:       t,
		rx:      append([]byte(nil), keyBytes...),
		queue:   append(announce, Block{Type: Ack}),
		respond: func(Block) []Block { return []Block{{Type: Ack}} },
	}
}

func (e *fakeECU) Read(p []byte) (int, error) {
	if len(e.rx) == 0 {
		return 0, nil
	}
	n := copy(p, e.rx)
	e.rx = e.rx[n:]
	return n, nil
}

func (e *fakeECU) Write(p []byte) (int, error) {
	for _, b := range p {
		e.rx = append(e.rx, b)
		e.handle(b)
	}
	return len(p), nil
}

func (e *fakeECU) Close() error {
	return nil
}

func (e *fakeECU) handle(b byte) {
	switch {
	case !e.keyDone:
		if b != 0xFF-keyByte2 {
			e.t.Errorf("key byte complement = 0x%02X", b)
		}
		e.keyDone = true
		e.sendNext()
	case e.sending:
		e.emit()
	default:
		e.receive(b)
	}
}

func (e *fakeECU) receive(b byte) {
	if len(e.cur) > 0 && len(e.cur) == int(e.cur[0]) {
		if b != blockEnd {
			e.t.Errorf("block end = 0x%02X", b)
		}
		blk := Block{Type: BlockType(e.cur[2]), Data: append([]byte(nil), e.cur[3:]...)}
		e.counter = e.cur[1]
		e.counters = append(e.counters, e.cur[1])
		e.received = append(e.received, blk)
		e.cur = nil
		if blk.Type != Ack || len(e.queue) == 0 {
			e.queue = e.respond(blk)
		}
		e.sendNext()
		return
	}
	e.cur = append(e.cur, b)
	e.rx = append(e.rx, 0xFF-b)
}

func (e *fakeECU) sendNext() {
	if len(e.queue) == 0 {
		return
	}
	blk := e.queue[0]
	e.queue = e.queue[1:]
	e.counter++
	e.tx = append([]byte{byte(len(blk.Data) + 3), e.counter, byte(blk.Type)}, blk.Data...)
	e.tx = append(e.tx, blockEnd)
	e.sending = true
	e.emit()
}

func (e *fakeECU) emit() {
	e.rx = append(e.rx, e.tx[0])
	e.tx = e.tx[1:]
	if len(e.tx) == 0 {
		e.sending = false
	}
}

func newTestClient(t *testing.T, ecu *fakeECU) *Client {
	t.Helper()
	cfg := &godiag.Config{OnMessage: func(string) {}}
	cfg.SetDefaults()
	conn := kline.NewConn(cfg, ecu, 10400, kline.OptWriteDelay(0), kline.OptLoopback(true))
	c, err := New(context.Background(), cfg, conn)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestHandshake(t *testing.T) {
	ident := []byte("1J0907379")
	tests := []struct {
		name     string
		keyBytes []byte
	}{
		{"both key bytes", []byte{keyByte1, keyByte2}},
		{"first key byte lost", []byte{keyByte2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ecu := newFakeECU(t, tt.keyBytes,
				Block{Type: ASCII, Data: ident[:5]},
				Block{Type: ASCII, Data: ident[5:]},
			)
			c := newTestClient(t, ecu)
			if got := string(c.ECUData()); got != string(ident) {
				t.Errorf("ECUData = %q, want %q", got, ident)
			}
			if len(ecu.received) != 2 {
				t.Fatalf("ECU received %d blocks, want 2 ACKs", len(ecu.received))
			}
			for _, b := range ecu.received {
				if b.Type != Ack {
					t.Errorf("tester sent %s during announcement", b)
				}
			}
		})
	}
}

func TestHandshakeBadKeyByte(t *testing.T) {
	ecu := newFakeECU(t, []byte{keyByte1, 0x0F})
	cfg := &godiag.Config{OnMessage: func(string) {}}
	conn := kline.NewConn(cfg, ecu, 10400, kline.OptWriteDelay(0), kline.OptLoopback(true))
	_, err := New(context.Background(), cfg, conn)
	var ie *godiag.InitError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want InitError", err)
	}
}

func TestHandshakeAnnounceBound(t *testing.T) {
	var announce []Block
	for i := 0; i < maxBlocks+1; i++ {
		announce = append(announce, Block{Type: ASCII, Data: []byte{'x'}})
	}
	ecu := newFakeECU(t, []byte{keyByte1, keyByte2}, announce...)
	cfg := &godiag.Config{OnMessage: func(string) {}}
	conn := kline.NewConn(cfg, ecu, 10400, kline.OptWriteDelay(0), kline.OptLoopback(true))
	_, err := New(context.Background(), cfg, conn)
	var te *godiag.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TimeoutError", err)
	}
	if want := "ECU announcement (10 blocks) timeout"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err, want)
	}
}

func TestHandshakeCancelled(t *testing.T) {
	ecu := newFakeECU(t, []byte{keyByte1, keyByte2}, Block{Type: ASCII, Data: []byte{'x'}})
	cfg := &godiag.Config{OnMessage: func(string) {}}
	conn := kline.NewConn(cfg, ecu, 10400, kline.OptWriteDelay(0), kline.OptLoopback(true))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(ctx, cfg, conn); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestReadDTCs(t *testing.T) {
	tests := []struct {
		name  string
		reply []Block
		want  []godiag.DTC
	}{
		{
			name:  "no DTCs",
			reply: []Block{{Type: 0xFC, Data: []byte{0xFF, 0xFF, 0x88}}},
			want:  nil,
		},
		{
			name: "two blocks",
			reply: []Block{
				{Type: 0xFC, Data: []byte{0x02, 0x3A, 0x23, 0x46, 0x81, 0x24}},
				{Type: 0xFC, Data: []byte{0x00, 0x10, 0x1F}},
				{Type: Ack},
			},
			want: []godiag.DTC{
				godiag.OemDTC(0x023A, 0x23),
				godiag.OemDTC(0x4681, 0x24),
				godiag.OemDTC(0x0010, 0x1F),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ecu := newFakeECU(t, []byte{keyByte1, keyByte2})
			c := newTestClient(t, ecu)
			ecu.respond = func(b Block) []Block {
				if b.Type != GetDTCs {
					t.Errorf("request = %s, want GetDTCs", b)
				}
				return tt.reply
			}
			got, err := c.ReadDTCs(context.Background(), false)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadDTCsPendingIgnored(t *testing.T) {
	ecu := newFakeECU(t, []byte{keyByte1, keyByte2})
	c := newTestClient(t, ecu)
	ecu.respond = func(b Block) []Block {
		if b.Type != GetDTCs {
			t.Errorf("request = %s, want GetDTCs", b)
		}
		return []Block{{Type: 0xFC, Data: []byte{0x01, 0x02, 0x23}}, {Type: Ack}}
	}
	got, err := c.ReadDTCs(context.Background(), true)
	if err != nil {
		t.Fatalf("ReadDTCs(pending) error = %v", err)
	}
	want := []godiag.DTC{godiag.OemDTC(0x0102, 0x23)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestClearDTCs(t *testing.T) {
	ecu := newFakeECU(t, []byte{keyByte1, keyByte2})
	c := newTestClient(t, ecu)
	if err := c.ClearDTCs(context.Background()); err != nil {
		t.Fatal(err)
	}
	if last := ecu.received[len(ecu.received)-1]; last.Type != ClearDTCs {
		t.Errorf("request = %s, want ClearDTCs", last)
	}

	ecu.respond = func(Block) []Block { return []Block{{Type: DataReply}} }
	var pe *godiag.ProtocolError
	if err := c.ClearDTCs(context.Background()); !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProtocolError", err)
	}

	ecu.respond = func(Block) []Block { return []Block{{Type: 0xFC}} }
	err := c.ClearDTCs(context.Background())
	if !errors.As(err, &pe) || !strings.Contains(err.Error(), "unknown block type") {
		t.Fatalf("err = %v, want unknown block type ProtocolError", err)
	}
}

func TestReadData(t *testing.T) {
	ecu := newFakeECU(t, []byte{keyByte1, keyByte2})
	c := newTestClient(t, ecu)
	ecu.respond = func(b Block) []Block {
		if b.Type != ReadData || !reflect.DeepEqual(b.Data, []byte{0x02}) {
			t.Errorf("request = %s", b)
		}
		return []Block{{Type: DataReply, Data: []byte{0x01, 0xC8, 0x1E}}}
	}
	got, err := c.ReadData(context.Background(), 0x02, false)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []byte{0x01, 0xC8, 0x1E}) {
		t.Errorf("got % X", got)
	}

	if _, err := c.ReadData(context.Background(), 0x02, true); !errors.Is(err, godiag.ErrUnsupported) {
		t.Fatalf("freeze frame err = %v, want ErrUnsupported", err)
	}
}

func TestAdaptationChannels(t *testing.T) {
	cfg := &godiag.Config{OnMessage: func(string) {}, WorkshopCode: 12345}
	ecu := newFakeECU(t, []byte{keyByte1, keyByte2})
	conn := kline.NewConn(cfg, ecu, 10400, kline.OptWriteDelay(0), kline.OptLoopback(true))
	c, err := New(context.Background(), cfg, conn)
	if err != nil {
		t.Fatal(err)
	}
	ecu.respond = func(b Block) []Block {
		return []Block{{Type: AdaptationReply, Data: []byte{0x01, 0x03, 0x20}}}
	}

	got, err := c.ReadAdaptation(context.Background(), 0x01)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []byte{0x03, 0x20}) {
		t.Errorf("ReadAdaptation = % X", got)
	}

	tests := []struct {
		test     bool
		wantType BlockType
		wantData []byte
	}{
		{true, TestAdaptation, []byte{0x01, 0x03, 0x20}},
		{false, WriteAdaptation, []byte{0x01, 0x03, 0x20, 0x01, 0x23, 0x45}},
	}
	for _, tt := range tests {
		if _, err := c.WriteAdaptation(context.Background(), 0x01, [2]byte{0x03, 0x20}, tt.test); err != nil {
			t.Fatal(err)
		}
		req := ecu.received[len(ecu.received)-1]
		if req.Type != tt.wantType || !reflect.DeepEqual(req.Data, tt.wantData) {
			t.Errorf("test=%v: request = %s", tt.test, req)
		}
	}
}

func TestBlockCounter(t *testing.T) {
	ecu := newFakeECU(t, []byte{keyByte1, keyByte2}, Block{Type: ASCII, Data: []byte{'x'}})
	ecu.counter = 0xFD
	c := newTestClient(t, ecu)
	for i := 0; i < 3; i++ {
		if _, err := c.ReadData(context.Background(), 1, false); err != nil && !errors.As(err, new(*godiag.ProtocolError)) {
			t.Fatal(err)
		}
	}
	// Each tester block continues from the counter of the ECU block before
	// it, wrapping at 256.
	want := []byte{0xFF, 0x01, 0x03, 0x05}
	if !reflect.DeepEqual(ecu.counters, want) {
		t.Errorf("counters = % X, want % X", ecu.counters, want)
	}
}

func TestBlockType(t *testing.T) {
	for b := 0; b < 256; b++ {
		bt := BlockType(b)
		if byte(bt) != byte(b) {
			t.Fatalf("0x%02X did not round trip", b)
		}
		if bt.IsOther() != strings.HasPrefix(bt.String(), "Other(") {
			t.Errorf("0x%02X: IsOther=%v String=%s", b, bt.IsOther(), bt)
		}
	}
	if GetDTCs.IsOther() || !BlockType(0xFC).IsOther() {
		t.Error("IsOther misclassified")
	}
}

func TestWorkshopCode(t *testing.T) {
	if got := workshopCode(12345); got != [3]byte{0x01, 0x23, 0x45} {
		t.Errorf("got % X", got)
	}
	if got := workshopCode(0); got != [3]byte{} {
		t.Errorf("got % X", got)
	}
}

func TestOpenRejectsWorkshopCode(t *testing.T) {
	cfg := &godiag.Config{WorkshopCode: 1000000}
	if _, err := Open(context.Background(), cfg, nil); err == nil {
		t.Fatal("7 digit workshop code accepted")
	}
}
