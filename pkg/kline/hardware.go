package kline

import (
	"context"
	"time"

	"github.com/roffe/godiag"
)

// TestHardware continuously transmits 0x55, or receives and logs bytes,
// until ctx is cancelled. Useful for checking the level shifter with an
// oscilloscope.
func TestHardware(ctx context.Context, cfg *godiag.Config, port godiag.SerialPort, transmit bool) error {
	buf := make([]byte, 1)
	for ctx.Err() == nil {
		if transmit {
			if _, err := port.Write([]byte{0x55}); err != nil {
				return err
			}
			busyWait(time.Now(), 2*time.Millisecond)
			continue
		}
		n, err := port.Read(buf)
		if err != nil {
			return err
		}
		if n == 1 {
			cfg.Messagef("RECV %02X", buf[0])
		}
	}
	return nil
}
