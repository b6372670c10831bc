package godiag

import (
	"fmt"
	"log"
)

const (
	DefaultAddress   = 0x01
	DefaultCANRate   = 500000
	DefaultInterface = "can0"
	DefaultPort      = "/dev/ttyO1"
	DefaultGPIOChip  = "gpiochip0"
	DefaultTxLine    = 15
	DefaultRxLine    = 14

	LinkModeIP      = "ip"
	LinkModeNetlink = "netlink"
)

// PinMuxPin is a header/pin pair whose multiplexer state is switched
// between GPIO and UART mode.
type PinMuxPin struct {
	Header int
	Pin    int
}

// DefaultPinMux is UART1 on the BeagleBone Blue.
var DefaultPinMux = []PinMuxPin{{9, 24}, {9, 26}}

type Config struct {
	Debug bool

	// K-line
	Address       byte // init address, 0x01 engine when unset
	TargetAddress byte // KWP2000 block target, derived from Address when unset
	Baudrate      int  // 0 measures it from the sync byte
	Port          string
	GPIOChip      string
	TxLine        int
	RxLine        int
	PinMux        []PinMuxPin
	WorkshopCode  uint32

	// CAN
	CANRate   int
	Interface string
	LinkMode  string

	OnMessage func(string)
}

// SetDefaults fills in every unset field.
func (cfg *Config) SetDefaults() {
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.GPIOChip == "" {
		cfg.GPIOChip = DefaultGPIOChip
	}
	if cfg.TxLine == 0 && cfg.RxLine == 0 {
		cfg.TxLine = DefaultTxLine
		cfg.RxLine = DefaultRxLine
	}
	if cfg.PinMux == nil {
		cfg.PinMux = DefaultPinMux
	}
	if cfg.CANRate == 0 {
		cfg.CANRate = DefaultCANRate
	}
	if cfg.Interface == "" {
		cfg.Interface = DefaultInterface
	}
	if cfg.LinkMode == "" {
		cfg.LinkMode = LinkModeIP
	}
}

// Debugf logs bus traffic when debug mode is enabled.
func (cfg *Config) Debugf(format string, args ...interface{}) {
	if cfg == nil || !cfg.Debug {
		return
	}
	log.Output(2, fmt.Sprintf(format, args...))
}

// Messagef reports a non fatal condition.
func (cfg *Config) Messagef(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if cfg == nil || cfg.OnMessage == nil {
		log.Output(2, msg)
		return
	}
	cfg.OnMessage(msg)
}
