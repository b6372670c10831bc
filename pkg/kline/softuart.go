package kline

import (
	"time"

	"github.com/roffe/godiag"
)

// WriteSoftware bit-bangs value on tx: start bit, bits data bits LSB first,
// an optional odd parity bit and one stop bit. Every edge is timed from the
// same reference so the error does not add up over the byte.
func WriteSoftware(tx godiag.Line, value byte, bits int, parity bool, baudrate int) error {
	period := time.Second / time.Duration(baudrate)
	start := time.Now()

	if err := tx.SetValue(0); err != nil {
		return err
	}
	busyWait(start, period)

	ones := 0
	for i := 0; i < bits; i++ {
		bit := int(value>>i) & 1
		ones += bit
		if err := tx.SetValue(bit); err != nil {
			return err
		}
		busyWait(start, period*time.Duration(i+2))
	}

	slot := bits + 2
	if parity {
		if err := tx.SetValue(1 - ones%2); err != nil {
			return err
		}
		busyWait(start, period*time.Duration(slot))
		slot++
	}

	if err := tx.SetValue(1); err != nil {
		return err
	}
	busyWait(start, period*time.Duration(slot))
	return nil
}

// MeasureBaud times the 0x55 sync byte from the falling edge of its start bit
// to the rising edge of the stop bit, nine bit periods in total.
func MeasureBaud(rx godiag.Line, timeout time.Duration) (int, error) {
	if err := waitForLevel(rx, 0, timeout); err != nil {
		return 0, err
	}
	reference := time.Now()
	if err := waitForLevel(rx, 1, timeout); err != nil {
		return 0, err
	}
	for i := 0; i < 4; i++ {
		if err := waitForLevel(rx, 0, timeout); err != nil {
			return 0, err
		}
		if err := waitForLevel(rx, 1, timeout); err != nil {
			return 0, err
		}
	}

	elapsed := time.Since(reference).Microseconds()
	if elapsed <= 0 {
		elapsed = 1
	}
	return int(1_000_000 * 9 / elapsed), nil
}

// NearestBaudRate snaps measured to the closest of KnownBaudRates, the lower
// one on a tie.
func NearestBaudRate(measured int) int {
	best := KnownBaudRates[0]
	for _, b := range KnownBaudRates[1:] {
		if abs(b-measured) < abs(best-measured) {
			best = b
		}
	}
	return best
}

func waitForLevel(rx godiag.Line, level int, timeout time.Duration) error {
	start := time.Now()
	for time.Since(start) < timeout {
		v, err := rx.Value()
		if err != nil {
			return err
		}
		if v == level {
			return nil
		}
	}
	return &godiag.TimeoutError{Op: "edge", After: timeout}
}

// busyWait spins until d has passed since reference. Sleeping is too coarse
// for the bit timing.
func busyWait(reference time.Time, d time.Duration) {
	for time.Since(reference) < d {
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
