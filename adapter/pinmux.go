package adapter

import (
	"fmt"
	"os"

	"github.com/roffe/godiag"
)

type PinMode string

const (
	PinModeGPIO PinMode = "gpio"
	PinModeUART PinMode = "uart"
)

// pinmuxPath is a variable so tests can point it at a temp dir.
var pinmuxPath = "/sys/devices/platform/ocp/ocp:P%d_%d_pinmux/state"

// SetPinMode sets the pin multiplexer state of every given pin.
func SetPinMode(pins []godiag.PinMuxPin, mode PinMode) error {
	for _, p := range pins {
		path := fmt.Sprintf(pinmuxPath, p.Header, p.Pin)
		if err := os.WriteFile(path, []byte(mode), 0644); err != nil {
			return fmt.Errorf("failed to set P%d_%d to %s: %w", p.Header, p.Pin, mode, err)
		}
	}
	return nil
}
