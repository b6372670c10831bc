package adapter

import (
	"github.com/roffe/godiag"
	"github.com/warthog618/go-gpiocdev"
)

// OpenGPIO muxes the UART pins to GPIO and requests tx as output, idle high,
// and rx as input.
func (k *KLine) OpenGPIO() (godiag.Line, godiag.Line, error) {
	if err := SetPinMode(k.cfg.PinMux, PinModeGPIO); err != nil {
		return nil, nil, err
	}
	tx, err := gpiocdev.RequestLine(k.cfg.GPIOChip, k.cfg.TxLine, gpiocdev.AsOutput(1), gpiocdev.WithConsumer("k-tx"))
	if err != nil {
		return nil, nil, err
	}
	rx, err := gpiocdev.RequestLine(k.cfg.GPIOChip, k.cfg.RxLine, gpiocdev.AsInput, gpiocdev.WithConsumer("k-rx"))
	if err != nil {
		tx.Close()
		return nil, nil, err
	}
	return tx, rx, nil
}
