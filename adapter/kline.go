package adapter

import (
	"fmt"
	"time"

	"github.com/roffe/godiag"
	"go.bug.st/serial"
)

const uartReadTimeout = 1 * time.Second

// KLine is the K-line transceiver on a BeagleBone Blue: the UART pins are
// muxed to GPIO for the 5 baud init and back to the UART afterwards.
type KLine struct {
	cfg *godiag.Config
}

func NewKLine(cfg *godiag.Config) *KLine {
	return &KLine{cfg: cfg}
}

// OpenUART muxes the pins to the UART and opens it 8N1, no flow control.
func (k *KLine) OpenUART(baudrate int) (godiag.SerialPort, error) {
	if err := SetPinMode(k.cfg.PinMux, PinModeUART); err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: baudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(k.cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open com port %q : %v", k.cfg.Port, err)
	}
	if err := p.SetReadTimeout(uartReadTimeout); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}
