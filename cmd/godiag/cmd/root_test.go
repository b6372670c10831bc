package cmd

import "testing"

func TestParseByte(t *testing.T) {
	tests := []struct {
		in      string
		want    byte
		wantErr bool
	}{
		{"0x01", 0x01, false},
		{"0x15", 0x15, false},
		{"17", 17, false},
		{"0xFF", 0xFF, false},
		{"0x100", 0, true},
		{"zz", 0, true},
	}
	for _, tt := range tests {
		got, err := parseByte(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseByte(%q) = 0x%02X, %v", tt.in, got, err)
		}
	}
}

func TestParseUint16(t *testing.T) {
	tests := []struct {
		in      string
		want    [2]byte
		wantErr bool
	}{
		{"0x0320", [2]byte{0x03, 0x20}, false},
		{"800", [2]byte{0x03, 0x20}, false},
		{"0xFFFF", [2]byte{0xFF, 0xFF}, false},
		{"0x10000", [2]byte{}, true},
	}
	for _, tt := range tests {
		got, err := parseUint16(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseUint16(%q) = % X, %v", tt.in, got, err)
		}
	}
}
