package kwp2000

import (
	"errors"
	"fmt"

	"github.com/roffe/godiag"
)

const (
	nrcGeneralReject     = 0x10
	nrcServiceNotSupport = 0x11
	nrcSubFunction       = 0x12
	nrcBusyRepeat        = 0x21
	nrcConditions        = 0x22
	nrcOutOfRange        = 0x31
	nrcSecurityDenied    = 0x33
	nrcResponsePending   = 0x78
)

var errorCodes = map[byte]string{
	nrcGeneralReject:     "General reject",
	nrcServiceNotSupport: "Service not supported",
	nrcSubFunction:       "Sub-function not supported - invalid format",
	nrcBusyRepeat:        "Busy, repeat request",
	nrcConditions:        "Conditions not correct or request sequence error",
	0x23:                 "Routine not completed or service in progress",
	nrcOutOfRange:        "Request out of range",
	nrcSecurityDenied:    "Security access denied",
	0x35:                 "Invalid key supplied",
	0x36:                 "Exceeded number of attempts to get security access",
	0x37:                 "Required time delay not expired",
	0x40:                 "Download not accepted",
	0x50:                 "Upload not accepted",
	0x71:                 "Transfer suspended",
	nrcResponsePending:   "Response pending",
	0x80:                 "Service not supported in current diagnostic session",
}

// TranslateErrorCode returns the ISO 14230 description of a negative
// response code.
func TranslateErrorCode(p byte) string {
	if s, ok := errorCodes[p]; ok {
		return s
	}
	return fmt.Sprintf("Unknown error %X", p)
}

// describe adds the negative response text to err, if it is one.
func describe(err error) error {
	var nre *godiag.NegativeResponseError
	if errors.As(err, &nre) {
		return fmt.Errorf("%w: %s", err, TranslateErrorCode(nre.Code))
	}
	return err
}
