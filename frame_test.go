package godiag

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestCANFrameString(t *testing.T) {
	f := NewFrame(0x7E8, []byte{0x03, 0x41, 0x0D, 0x32}, Incoming)
	got := f.String()
	for _, want := range []string{"<i> || ", "0x7E8 || ", "4 || ", "03 41 0D 32", "00000011 01000001", "·A·2"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
	if f.Length() != 4 {
		t.Errorf("Length() = %d", f.Length())
	}

	out := NewFrame(0x7DF, []byte{0x02, 0x01, 0x0D}, Outgoing).String()
	if !strings.HasPrefix(out, "<o> || 0x7DF") {
		t.Errorf("String() = %q", out)
	}
}

func TestCANFrameColorString(t *testing.T) {
	noColor := color.NoColor
	defer func() { color.NoColor = noColor }()

	f := NewFrame(0x7E8, []byte{0x03, 0x41, 0x0D, 0x32}, Incoming)

	color.NoColor = true
	if got := f.ColorString(); got != f.String() {
		t.Errorf("ColorString() without color = %q, want %q", got, f.String())
	}

	color.NoColor = false
	got := f.ColorString()
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("ColorString() = %q, want escape codes", got)
	}
	if !strings.Contains(got, "0x7E8") || !strings.Contains(got, "03 41 0D 32") {
		t.Errorf("ColorString() = %q, missing frame contents", got)
	}
}
