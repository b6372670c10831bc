package godiag

import "fmt"

type DTCKind int

const (
	// DTCObd is an OBD2 standard code.
	DTCObd DTCKind = iota
	// DTCOem is a manufacturer block protocol code carrying a status byte.
	DTCOem
)

// DTC is a Diagnostic Trouble Code. Status is only meaningful for DTCOem.
type DTC struct {
	Kind   DTCKind
	Code   uint16
	Status byte
}

func ObdDTC(code uint16) DTC {
	return DTC{Kind: DTCObd, Code: code}
}

func OemDTC(code uint16, status byte) DTC {
	return DTC{Kind: DTCOem, Code: code, Status: status}
}

func (d DTC) String() string {
	if d.Kind == DTCOem {
		return fmt.Sprintf("%05d (status 0x%02X)", d.Code, d.Status)
	}
	return DecodeDTC(byte(d.Code>>8), byte(d.Code))
}

// How to read DTC codes
//B0 B1    First DTC character
//-- --    -------------------
// 0  0    P - Powertrain
// 0  1    C - Chassis
// 1  0    B - Body
// 1  1    U - Network
//
//B2 B3    Second DTC character (0-3)
//B4-B7    Third, fourth and fifth characters as hex digits
//
// Example
// E1 03 -> 11=U 10=2 0001=1 0000=0 0011=3 -> U2103

// DecodeDTC decodes a 2-byte DTC value (A,B) into a string like "P0122".
func DecodeDTC(a, b byte) string {
	systemChars := [4]byte{'P', 'C', 'B', 'U'}
	hexDigits := "0123456789ABCDEF"

	code := make([]byte, 5)
	code[0] = systemChars[(a>>6)&0x03]
	code[1] = hexDigits[(a>>4)&0x03]
	code[2] = hexDigits[a&0x0F]
	code[3] = hexDigits[(b>>4)&0x0F]
	code[4] = hexDigits[b&0x0F]
	return string(code)
}
