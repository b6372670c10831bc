package godiag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

type CANFrameType struct {
	Type int
}

var (
	Incoming = CANFrameType{Type: 0}
	Outgoing = CANFrameType{Type: 1}
)

type CANFrame struct {
	Identifier uint32
	Data       []byte
	FrameType  CANFrameType
}

func NewFrame(identifier uint32, data []byte, frameType CANFrameType) *CANFrame {
	return &CANFrame{
		Identifier: identifier,
		Data:       data,
		FrameType:  frameType,
	}
}

func (f *CANFrame) Length() int {
	return len(f.Data)
}

var (
	yellow = color.New(color.FgHiBlue).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
)

func (f *CANFrame) String() string {
	return f.format(fmt.Sprintf, fmt.Sprintf, fmt.Sprintf)
}

func (f *CANFrame) ColorString() string {
	return f.format(green, red, yellow)
}

func (f *CANFrame) format(id, bin, text func(string, ...interface{}) string) string {
	var out strings.Builder

	switch f.FrameType.Type {
	case 0:
		out.WriteString("<i> || ")
	case 1:
		out.WriteString("<o> || ")
	}

	out.WriteString(id("0x%03X", f.Identifier) + " || ")
	out.WriteString(strconv.Itoa(len(f.Data)) + " || ")

	var hexView strings.Builder
	for i, b := range f.Data {
		hexView.WriteString(fmt.Sprintf("%02X", b))
		if i != len(f.Data)-1 {
			hexView.WriteString(" ")
		}
	}
	out.WriteString(fmt.Sprintf("%-23s", hexView.String()))
	out.WriteString(" || ")

	var binView strings.Builder
	for i, b := range f.Data {
		binView.WriteString(fmt.Sprintf("%08b", b))
		if i != len(f.Data)-1 {
			binView.WriteString(" ")
		}
	}
	out.WriteString(bin("%-72s", binView.String()))
	out.WriteString(" || ")
	out.WriteString(text("%s", onlyPrintable(f.Data)))
	return out.String()
}

func onlyPrintable(data []byte) string {
	var out strings.Builder
	for _, b := range data {
		if b < 32 || b > 127 {
			out.WriteString("·")
		} else {
			out.WriteByte(b)
		}
	}
	return out.String()
}
