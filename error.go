package godiag

import (
	"errors"
	"fmt"
	"time"
)

type unrecoverableError struct {
	error
}

func (e unrecoverableError) Error() string {
	if e.error == nil {
		return "unrecoverable error"
	}
	return e.error.Error()
}

func (e unrecoverableError) Unwrap() error {
	return e.error
}

// Unrecoverable wraps an error in `unrecoverableError` struct
func Unrecoverable(err error) error {
	return unrecoverableError{err}
}

// IsRecoverable checks if error is an instance of `unrecoverableError`
func IsRecoverable(err error) bool {
	var ue unrecoverableError
	return !errors.As(err, &ue)
}

var (
	ErrUnsupported = errors.New("operation not supported")
	ErrClosed      = errors.New("connection closed")
)

// TimeoutError is returned when no byte, edge or frame arrived in time.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	if e.After == 0 {
		return e.Op + " timeout"
	}
	return fmt.Sprintf("%s timeout (%dms)", e.Op, e.After.Milliseconds())
}

// Timeout reports true, matching net.Error.
func (e *TimeoutError) Timeout() bool {
	return true
}

// ProtocolError is returned for unexpected blocks, frames or replies.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string {
	return "protocol violation: " + e.Msg
}

func Protocolf(format string, args ...interface{}) error {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

type ChecksumError struct {
	Want, Got byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum error: calculated 0x%02X, received 0x%02X", e.Want, e.Got)
}

// InitError is returned when a session handshake fails.
type InitError struct {
	Msg string
}

func (e *InitError) Error() string {
	return "init failed: " + e.Msg
}

func Initf(format string, args ...interface{}) error {
	return &InitError{Msg: fmt.Sprintf(format, args...)}
}

// NegativeResponseError is a 0x7F reply from the ECU.
type NegativeResponseError struct {
	Service byte
	Code    byte
}

func (e *NegativeResponseError) Error() string {
	return fmt.Sprintf("ECU returned error code 0x%02X for service 0x%02X, query may not be supported", e.Code, e.Service)
}
